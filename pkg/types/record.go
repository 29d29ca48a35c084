// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// BinEdge is the [Low, High) interval of one bin.
type BinEdge struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Qualifier tags a dependent variable with metadata orthogonal to its
// values, e.g. the center-of-mass energy.
type Qualifier struct {
	Name  string `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Value string `json:"value" yaml:"value" mapstructure:"value"`
	Units string `json:"units,omitempty" yaml:"units,omitempty" mapstructure:"units"`
}

// Uncertainty is one labelled error source attached to a Variable.
// Symmetric uncertainties fill Values; asymmetric ones fill Minus and Plus
// with non-negative magnitudes.
type Uncertainty struct {
	Label     string    `json:"label" yaml:"label"`
	Symmetric bool      `json:"symmetric" yaml:"symmetric"`
	Values    []float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Minus     []float64 `json:"minus,omitempty" yaml:"minus,omitempty"`
	Plus      []float64 `json:"plus,omitempty" yaml:"plus,omitempty"`
}

// Len returns the number of points the uncertainty covers.
func (u Uncertainty) Len() int {
	if u.Symmetric {
		return len(u.Values)
	}
	return len(u.Plus)
}

// Variable is either the independent axis of a Table or one dependent
// measured quantity.
type Variable struct {
	Name        string `json:"name" yaml:"name"`
	Units       string `json:"units" yaml:"units"`
	Independent bool   `json:"independent" yaml:"independent"`
	Binned      bool   `json:"binned" yaml:"binned"`

	// Values holds point values for unbinned variables.
	Values []float64 `json:"values,omitempty" yaml:"values,omitempty"`

	// Text holds values recorded verbatim as text, such as "-", index-aligned
	// with Values. An empty entry means the numeric value applies. Nil when
	// every point is numeric.
	Text []string `json:"text,omitempty" yaml:"text,omitempty"`

	// Edges holds bin intervals for binned variables.
	Edges []BinEdge `json:"edges,omitempty" yaml:"edges,omitempty"`

	Uncertainties []Uncertainty `json:"uncertainties,omitempty" yaml:"uncertainties,omitempty"`
	Qualifiers    []Qualifier   `json:"qualifiers,omitempty" yaml:"qualifiers,omitempty"`
}

// Len returns the length of the variable's value sequence.
func (v Variable) Len() int {
	if v.Binned {
		return len(v.Edges)
	}
	return len(v.Values)
}

// TextAt returns the verbatim text recorded for point i, or "" when the
// point is numeric.
func (v Variable) TextAt(i int) string {
	if i < 0 || i >= len(v.Text) {
		return ""
	}
	return v.Text[i]
}

// AddUncertainty attaches u. Independent variables never carry uncertainties.
func (v *Variable) AddUncertainty(u Uncertainty) error {
	if v.Independent {
		return fmt.Errorf("variable %q: independent variables carry no uncertainties", v.Name)
	}
	if u.Len() != v.Len() {
		return fmt.Errorf("variable %q: uncertainty %q has %d values, want %d", v.Name, u.Label, u.Len(), v.Len())
	}
	v.Uncertainties = append(v.Uncertainties, u)
	return nil
}

// AddQualifier appends a qualifier.
func (v *Variable) AddQualifier(q Qualifier) {
	v.Qualifiers = append(v.Qualifiers, q)
}

// Keyword is one named keyword list of a Table (reactions, observables,
// phrases, cmenergies).
type Keyword struct {
	Name   string   `json:"name" yaml:"name" mapstructure:"name"`
	Values []string `json:"values" yaml:"values" mapstructure:"values"`
}

// Table is the canonical record for one figure or sub-figure.
type Table struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Location    string     `json:"location" yaml:"location"`
	Image       string     `json:"image,omitempty" yaml:"image,omitempty"`
	Keywords    []Keyword  `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Independent *Variable  `json:"independent" yaml:"independent"`
	Dependent   []Variable `json:"dependent" yaml:"dependent"`
}

// NewTable returns an empty Table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// SetIndependent installs the shared axis.
func (t *Table) SetIndependent(v Variable) error {
	if !v.Independent {
		return fmt.Errorf("table %q: variable %q is not independent", t.Name, v.Name)
	}
	if len(v.Uncertainties) > 0 {
		return fmt.Errorf("table %q: independent variable %q carries uncertainties", t.Name, v.Name)
	}
	t.Independent = &v
	return nil
}

// AddDependent appends v in display order. The independent variable must be
// set first and v must have the same length.
func (t *Table) AddDependent(v Variable) error {
	if v.Independent {
		return fmt.Errorf("table %q: variable %q is independent", t.Name, v.Name)
	}
	if t.Independent == nil {
		return fmt.Errorf("table %q: no independent variable set", t.Name)
	}
	if v.Len() != t.Independent.Len() {
		return fmt.Errorf("table %q: dependent %q has %d values, independent has %d",
			t.Name, v.Name, v.Len(), t.Independent.Len())
	}
	t.Dependent = append(t.Dependent, v)
	return nil
}

// SetKeyword replaces the values of the named keyword, adding it if needed.
func (t *Table) SetKeyword(name string, values []string) {
	for i := range t.Keywords {
		if t.Keywords[i].Name == name {
			t.Keywords[i].Values = values
			return
		}
	}
	t.Keywords = append(t.Keywords, Keyword{Name: name, Values: values})
}

// Keyword returns the values of the named keyword.
func (t *Table) Keyword(name string) []string {
	for _, k := range t.Keywords {
		if k.Name == name {
			return k.Values
		}
	}
	return nil
}

// Validate checks that the table has one independent variable and that
// every dependent variable matches its length.
func (t *Table) Validate() error {
	if t.Independent == nil {
		return fmt.Errorf("table %q: no independent variable", t.Name)
	}
	n := t.Independent.Len()
	if len(t.Independent.Text) > 0 && len(t.Independent.Text) != n {
		return fmt.Errorf("table %q: independent %q has %d text values, want %d", t.Name, t.Independent.Name, len(t.Independent.Text), n)
	}
	for _, d := range t.Dependent {
		if len(d.Text) > 0 && len(d.Text) != n {
			return fmt.Errorf("table %q: dependent %q has %d text values, want %d", t.Name, d.Name, len(d.Text), n)
		}
		if d.Len() != n {
			return fmt.Errorf("table %q: dependent %q has %d values, independent has %d", t.Name, d.Name, d.Len(), n)
		}
		for _, u := range d.Uncertainties {
			if u.Len() != n {
				return fmt.Errorf("table %q: uncertainty %q of %q has %d values, want %d", t.Name, u.Label, d.Name, u.Len(), n)
			}
		}
	}
	return nil
}

// Link is an additional resource reference attached to the submission.
type Link struct {
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	Location    string `json:"location" yaml:"location" mapstructure:"location"`
}

// Submission is the ordered, append-only collection of Tables handed to the
// writer once processing ends.
type Submission struct {
	Abstract string   `json:"abstract" yaml:"abstract"`
	Links    []Link   `json:"links,omitempty" yaml:"links,omitempty"`
	Tables   []*Table `json:"tables" yaml:"tables"`
}

// AddTable appends t.
func (s *Submission) AddTable(t *Table) {
	s.Tables = append(s.Tables, t)
}

// StripImages removes the image from every table and returns how many were
// removed.
func (s *Submission) StripImages() int {
	n := 0
	for _, t := range s.Tables {
		if t.Image != "" {
			t.Image = ""
			n++
		}
	}
	return n
}
