// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// Encode renders the variables of t in the canonical-record YAML form that
// Merge reads back.
func Encode(t *types.Table) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	doc := recordDoc{
		Independent: []recordVariable{toRecord(*t.Independent)},
		Dependent:   make([]recordVariable, 0, len(t.Dependent)),
	}
	for _, d := range t.Dependent {
		doc.Dependent = append(doc.Dependent, toRecord(d))
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding table %q: %w", t.Name, err)
	}
	return data, nil
}

func toRecord(v types.Variable) recordVariable {
	rv := recordVariable{
		Header:     recordHeader{Name: v.Name, Units: v.Units},
		Qualifiers: v.Qualifiers,
		Values:     make([]recordValue, v.Len()),
	}
	for i := range rv.Values {
		if v.Binned {
			e := v.Edges[i]
			rv.Values[i].Low, rv.Values[i].High = ptr(e.Low), ptr(e.High)
		} else {
			if text := v.TextAt(i); text != "" {
				rv.Values[i].Value = text
			} else {
				rv.Values[i].Value = v.Values[i]
			}
		}
		for _, u := range v.Uncertainties {
			e := recordError{Label: u.Label}
			if u.Symmetric {
				e.Symerror = ptr(u.Values[i])
			} else {
				e.Asymerror = &asymError{Minus: -u.Minus[i], Plus: u.Plus[i]}
			}
			rv.Values[i].Errors = append(rv.Values[i].Errors, e)
		}
	}
	return rv
}

func ptr(f float64) *float64 { return &f }
