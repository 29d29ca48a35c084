// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"errors"
	"fmt"
	"math"

	"github.com/pdiddy/hepdata-builder/pkg/types"
)

var (
	// ErrNoRetained reports a figure whose series were all filtered out.
	ErrNoRetained = errors.New("no retained series")
	// ErrAxisMismatch reports a series that does not share the figure axis.
	ErrAxisMismatch = errors.New("axis mismatch")
)

const axisTolerance = 1e-9

// Axis is the independent axis shared by every dependent series of a figure.
type Axis struct {
	Name   string
	Units  string
	Binned bool
	// Values are point positions (bin centers for binned axes).
	Values []float64
	Low    []float64
	High   []float64
	// Source names the series the axis was taken from.
	Source string
	// Mismatches describes tolerated value differences between series.
	Mismatches []string
}

// Len returns the number of points on the axis.
func (a Axis) Len() int { return len(a.Values) }

// SharedAxis takes the axis from the first retained series and checks the
// others against it. A length difference always fails; differing values or
// edges are recorded in Mismatches and fail only in strict mode.
func (c *Classifier) SharedAxis(figure string, retained []types.Series) (Axis, error) {
	if len(retained) == 0 {
		return Axis{}, fmt.Errorf("figure %s: %w", figure, ErrNoRetained)
	}
	first := retained[0]
	name, units := c.AxisLabel(figure, first.XTitle)
	axis := Axis{
		Name:   name,
		Units:  units,
		Binned: first.Binned,
		Values: first.X,
		Source: first.Name,
	}
	if first.Binned {
		axis.Low, axis.High = first.Low, first.High
	}

	for _, s := range retained[1:] {
		if s.Len() != first.Len() {
			return Axis{}, fmt.Errorf("figure %s: series %s has %d points, axis from %s has %d: %w",
				figure, s.Name, s.Len(), first.Name, first.Len(), ErrAxisMismatch)
		}
		if msg := compareAxis(first, s); msg != "" {
			if c.strict {
				return Axis{}, fmt.Errorf("figure %s: %s: %w", figure, msg, ErrAxisMismatch)
			}
			axis.Mismatches = append(axis.Mismatches, msg)
		}
	}
	return axis, nil
}

// compareAxis describes the first point where s departs from ref, or
// returns "" when they agree.
func compareAxis(ref, s types.Series) string {
	if i := firstDiff(ref.X, s.X); i >= 0 {
		return fmt.Sprintf("series %s x[%d] = %g, %s has %g", s.Name, i, s.X[i], ref.Name, ref.X[i])
	}
	if ref.Binned && s.Binned {
		if i := firstDiff(ref.Low, s.Low); i >= 0 {
			return fmt.Sprintf("series %s bin %d low edge %g, %s has %g", s.Name, i, s.Low[i], ref.Name, ref.Low[i])
		}
		if i := firstDiff(ref.High, s.High); i >= 0 {
			return fmt.Sprintf("series %s bin %d high edge %g, %s has %g", s.Name, i, s.High[i], ref.Name, ref.High[i])
		}
	}
	return ""
}

func firstDiff(a, b []float64) int {
	for i := range min(len(a), len(b)) {
		scale := math.Max(1, math.Max(math.Abs(a[i]), math.Abs(b[i])))
		if math.Abs(a[i]-b[i]) > axisTolerance*scale {
			return i
		}
	}
	return -1
}
