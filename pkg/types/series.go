// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ErrorMode describes which error values a Series carries.
type ErrorMode string

const (
	// ErrorsNone means the source object declared no error array.
	ErrorsNone ErrorMode = "none"
	// ErrorsSymmetric means one magnitude per point (ErrMinus == ErrPlus).
	ErrorsSymmetric ErrorMode = "symmetric"
	// ErrorsAsymmetric means separate negative and positive magnitudes.
	ErrorsAsymmetric ErrorMode = "asymmetric"
)

// Series is the canonical point/bin sequence extracted from one plot object.
// For binned series Low, High and X (the bin centers) are populated; for
// unbinned series only X is.
type Series struct {
	// Name is the source object's identifier.
	Name string `json:"name" yaml:"name"`

	// XTitle and YTitle are the raw axis titles of the source object.
	XTitle string `json:"x_title" yaml:"x_title"`
	YTitle string `json:"y_title" yaml:"y_title"`

	// Binned reports whether Low and High are populated.
	Binned bool `json:"binned" yaml:"binned"`

	X    []float64 `json:"x" yaml:"x"`
	Low  []float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High []float64 `json:"high,omitempty" yaml:"high,omitempty"`
	Y    []float64 `json:"y" yaml:"y"`

	Errors   ErrorMode `json:"errors" yaml:"errors"`
	ErrMinus []float64 `json:"err_minus,omitempty" yaml:"err_minus,omitempty"`
	ErrPlus  []float64 `json:"err_plus,omitempty" yaml:"err_plus,omitempty"`
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Y) }

// Empty reports whether the series holds no data.
func (s Series) Empty() bool { return len(s.Y) == 0 }

// HasErrors reports whether the source declared any error array, including
// an all-zero one.
func (s Series) HasErrors() bool {
	return s.Errors == ErrorsSymmetric || s.Errors == ErrorsAsymmetric
}

// Validate checks the array-length and edge-ordering invariants.
func (s Series) Validate() error {
	n := len(s.Y)
	if len(s.X) != n {
		return fmt.Errorf("series %s: %d x values for %d points", s.Name, len(s.X), n)
	}
	if s.Binned {
		if len(s.Low) != n || len(s.High) != n {
			return fmt.Errorf("series %s: %d/%d bin edges for %d bins", s.Name, len(s.Low), len(s.High), n)
		}
		for i := 0; i < n; i++ {
			if s.High[i] < s.Low[i] {
				return fmt.Errorf("series %s: bin %d has high edge %g below low edge %g", s.Name, i, s.High[i], s.Low[i])
			}
			if i > 0 && (s.Low[i] < s.Low[i-1] || s.Low[i] < s.High[i-1]) {
				return fmt.Errorf("series %s: bin %d overlaps bin %d", s.Name, i, i-1)
			}
		}
	}
	if s.HasErrors() && (len(s.ErrMinus) != n || len(s.ErrPlus) != n) {
		return fmt.Errorf("series %s: %d/%d error values for %d points", s.Name, len(s.ErrMinus), len(s.ErrPlus), n)
	}
	return nil
}
