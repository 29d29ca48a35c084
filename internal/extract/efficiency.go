// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// ErrInconsistentEfficiency reports a bin whose passed count is negative,
// exceeds its total, or is not finite.
var ErrInconsistentEfficiency = errors.New("inconsistent efficiency histograms")

// DefaultConfidenceLevel is the one-sigma coverage used when an efficiency
// declares none.
const DefaultConfidenceLevel = 0.682689492137

// FromEfficiency builds the asymmetric-error graph equivalent of e: one
// point per bin with a non-zero total, at the bin center, with
// Clopper-Pearson errors. Bins with no entries in the total are skipped.
// A bin whose passed count is negative or above its total fails the whole
// efficiency with ErrInconsistentEfficiency.
func FromEfficiency(e Efficiency) (types.Series, error) {
	passed, total := e.Passed(), e.Total()
	s := types.Series{
		Name:   e.Name(),
		XTitle: e.XTitle(),
		YTitle: e.YTitle(),
		Errors: types.ErrorsAsymmetric,
	}
	if passed == nil || total == nil {
		s.Errors = types.ErrorsNone
		return s, nil
	}

	level := e.ConfidenceLevel()
	if !(level > 0 && level < 1) {
		level = DefaultConfidenceLevel
	}

	n := total.NBins()
	if passed.NBins() < n {
		n = passed.NBins()
	}
	for bin := 1; bin <= n; bin++ {
		t, k := total.BinContent(bin), passed.BinContent(bin)
		if !finite(t) || !finite(k) {
			return types.Series{}, fmt.Errorf("%w: %s bin %d: passed %v of %v", ErrInconsistentEfficiency, e.Name(), bin, k, t)
		}
		if t <= 0 {
			continue
		}
		if k < 0 || k > t {
			return types.Series{}, fmt.Errorf("%w: %s bin %d: passed %v of %v", ErrInconsistentEfficiency, e.Name(), bin, k, t)
		}
		eff := k / t
		lo, hi := ClopperPearson(t, k, level)
		s.X = append(s.X, total.BinCenter(bin))
		s.Y = append(s.Y, eff)
		s.ErrMinus = append(s.ErrMinus, eff-lo)
		s.ErrPlus = append(s.ErrPlus, hi-eff)
	}
	if len(s.Y) == 0 {
		s.Errors = types.ErrorsNone
	}
	return s, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ClopperPearson returns the lower and upper bounds of the central interval
// with the given coverage for passed successes out of total trials. Passed
// is clamped to [0, total]; a level outside (0, 1) uses the default.
func ClopperPearson(total, passed, level float64) (lower, upper float64) {
	if !(total > 0) || math.IsInf(total, 1) {
		return 0, 1
	}
	passed = math.Min(math.Max(passed, 0), total)
	if !(level > 0 && level < 1) {
		level = DefaultConfidenceLevel
	}
	alpha := (1 - level) / 2
	if passed <= 0 {
		lower = 0
	} else {
		lower = mathext.InvRegIncBeta(passed, total-passed+1, alpha)
	}
	if passed >= total {
		upper = 1
	} else {
		upper = mathext.InvRegIncBeta(passed+1, total-passed, 1-alpha)
	}
	return lower, upper
}
