// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hepdata-builder/internal/metadata"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// ErrNoIndependent reports a prior record without an independent variable.
var ErrNoIndependent = errors.New("record has no independent variable")

// recordDoc is the canonical-record YAML shape shared with the writer.
type recordDoc struct {
	Independent []recordVariable `yaml:"independent_variables"`
	Dependent   []recordVariable `yaml:"dependent_variables"`
}

type recordHeader struct {
	Name  string `yaml:"name"`
	Units string `yaml:"units,omitempty"`
}

type recordVariable struct {
	Header     recordHeader      `yaml:"header"`
	Qualifiers []types.Qualifier `yaml:"qualifiers,omitempty"`
	Values     []recordValue     `yaml:"values"`
}

// recordValue is one point. Value is a number or, as the format allows,
// a string such as "-" or a quoted number.
type recordValue struct {
	Value  any           `yaml:"value,omitempty"`
	Low    *float64      `yaml:"low,omitempty"`
	High   *float64      `yaml:"high,omitempty"`
	Errors []recordError `yaml:"errors,omitempty"`
}

type recordError struct {
	Label     string     `yaml:"label,omitempty"`
	Symerror  *float64   `yaml:"symerror,omitempty"`
	Asymerror *asymError `yaml:"asymerror,omitempty"`
}

type asymError struct {
	Minus float64 `yaml:"minus"`
	Plus  float64 `yaml:"plus"`
}

// Merge builds the Table of figure from a prior record. The first
// independent variable is used; further ones are dropped with a warning.
// Dependent qualifiers and uncertainties are carried over.
func Merge(data []byte, figure string, meta metadata.Entry, opts Options) (*types.Table, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("figure %s: %w", figure, err)
	}
	var doc recordDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("figure %s: parsing record: %w", figure, err)
	}
	log := opts.log().With("figure", figure)

	switch n := len(doc.Independent); {
	case n == 0:
		return nil, fmt.Errorf("figure %s: %w", figure, ErrNoIndependent)
	case n > 1:
		log.Warn("record has several independent variables, using the first", "count", n)
	}

	t := newTable(figure, meta)
	indep, err := fromRecord(doc.Independent[0], true)
	if err != nil {
		return nil, fmt.Errorf("figure %s: %w", figure, err)
	}
	if err := t.SetIndependent(indep); err != nil {
		return nil, err
	}
	for _, rv := range doc.Dependent {
		v, err := fromRecord(rv, false)
		if err != nil {
			return nil, fmt.Errorf("figure %s: %w", figure, err)
		}
		if err := t.AddDependent(v); err != nil {
			return nil, err
		}
	}
	if len(doc.Dependent) == 0 {
		log.Warn("record has no dependent variables")
	}
	AttachImage(t, meta.Image, opts)
	return t, nil
}

// fromRecord converts one record variable. Values given as low/high pairs
// make the variable binned; errors become uncertainties grouped by label.
func fromRecord(rv recordVariable, independent bool) (types.Variable, error) {
	v := types.Variable{
		Name:        rv.Header.Name,
		Units:       rv.Header.Units,
		Independent: independent,
		Qualifiers:  append([]types.Qualifier(nil), rv.Qualifiers...),
	}
	if independent {
		v.Qualifiers = nil
	}
	v.Binned = len(rv.Values) > 0 && rv.Values[0].Value == nil && rv.Values[0].Low != nil

	for i, val := range rv.Values {
		switch {
		case v.Binned:
			if val.Low == nil || val.High == nil {
				return types.Variable{}, fmt.Errorf("variable %q point %d: missing bin edge", v.Name, i)
			}
			v.Edges = append(v.Edges, types.BinEdge{Low: *val.Low, High: *val.High})
		case val.Value != nil:
			x, text, err := pointValue(val.Value)
			if err != nil {
				return types.Variable{}, fmt.Errorf("variable %q point %d: %w", v.Name, i, err)
			}
			v.Values = append(v.Values, x)
			if text != "" {
				if v.Text == nil {
					v.Text = make([]string, len(rv.Values))
				}
				v.Text[i] = text
			}
		default:
			return types.Variable{}, fmt.Errorf("variable %q point %d: missing value", v.Name, i)
		}
	}
	if independent {
		return v, nil
	}
	for _, u := range collectUncertainties(rv.Values) {
		if err := v.AddUncertainty(u); err != nil {
			return types.Variable{}, err
		}
	}
	return v, nil
}

// pointValue reads a decoded point value. Numbers and numeric strings give
// a number; any other string is kept verbatim with a zero number.
func pointValue(x any) (float64, string, error) {
	switch n := x.(type) {
	case int:
		return float64(n), "", nil
	case int64:
		return float64(n), "", nil
	case uint64:
		return float64(n), "", nil
	case float64:
		return n, "", nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, "", errors.New("empty value")
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, "", nil
		}
		return 0, s, nil
	default:
		return 0, "", fmt.Errorf("unsupported value %v (%T)", x, x)
	}
}

// collectUncertainties regroups per-point errors into per-variable
// uncertainties. Errors are matched by label, or by position when the
// label is empty. A point missing an error contributes zero. Asymmetric
// errors are stored as magnitudes whatever sign the record uses.
func collectUncertainties(values []recordValue) []types.Uncertainty {
	var order []string
	byKey := make(map[string]*types.Uncertainty)
	n := len(values)

	for i, val := range values {
		for j, e := range val.Errors {
			key := e.Label
			if key == "" {
				key = fmt.Sprintf("#%d", j)
			}
			u, ok := byKey[key]
			if !ok {
				u = &types.Uncertainty{
					Label:     e.Label,
					Symmetric: true,
					Values:    make([]float64, n),
					Minus:     make([]float64, n),
					Plus:      make([]float64, n),
				}
				byKey[key] = u
				order = append(order, key)
			}
			switch {
			case e.Asymerror != nil:
				u.Symmetric = false
				u.Minus[i], u.Plus[i] = math.Abs(e.Asymerror.Minus), math.Abs(e.Asymerror.Plus)
			case e.Symerror != nil:
				u.Values[i] = *e.Symerror
				u.Minus[i], u.Plus[i] = *e.Symerror, *e.Symerror
			}
		}
	}

	out := make([]types.Uncertainty, 0, len(order))
	for _, key := range order {
		u := *byKey[key]
		if u.Symmetric {
			u.Minus, u.Plus = nil, nil
		} else {
			u.Values = nil
		}
		out = append(out, u)
	}
	return out
}
