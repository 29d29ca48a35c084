// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package record assembles canonical Tables, either from classified
// series sharing one axis or from a prior record in canonical YAML form.
package record

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdiddy/hepdata-builder/internal/classify"
	"github.com/pdiddy/hepdata-builder/internal/logger"
	"github.com/pdiddy/hepdata-builder/internal/metadata"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// StatisticalLabel is the label of the uncertainty attached to every
// dependent variable built from a series.
const StatisticalLabel = "Statistical uncertainty"

// ErrInvalidSeries reports a series that breaks the length or edge
// invariants.
var ErrInvalidSeries = errors.New("invalid series")

// Dependent is one retained series with its display name and units.
type Dependent struct {
	Name   string
	Units  string
	Series types.Series
}

// Options controls assembly.
type Options struct {
	// Qualifiers are attached to every dependent variable.
	Qualifiers []types.Qualifier
	// ImageUsable is the image-tool capability gate.
	ImageUsable bool
	// UncertaintyLabel overrides StatisticalLabel.
	UncertaintyLabel string
	Logger           logger.Logger
}

func (o Options) label() string {
	if o.UncertaintyLabel != "" {
		return o.UncertaintyLabel
	}
	return StatisticalLabel
}

func (o Options) log() logger.Logger {
	if o.Logger == nil {
		return logger.Discard()
	}
	return o.Logger
}

// Build assembles the Table of figure from its shared axis and dependents.
// Nothing is returned on error.
func Build(figure string, meta metadata.Entry, axis classify.Axis, deps []Dependent, opts Options) (*types.Table, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("figure %s: %w", figure, err)
	}

	t := newTable(figure, meta)
	if err := t.SetIndependent(Independent(axis)); err != nil {
		return nil, err
	}
	for _, d := range deps {
		if err := d.Series.Validate(); err != nil {
			return nil, fmt.Errorf("figure %s: %w: %w", figure, ErrInvalidSeries, err)
		}
		v, err := DependentVariable(d, opts)
		if err != nil {
			return nil, fmt.Errorf("figure %s: %w", figure, err)
		}
		if err := t.AddDependent(v); err != nil {
			return nil, fmt.Errorf("%w: %w", classify.ErrAxisMismatch, err)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	AttachImage(t, meta.Image, opts)
	return t, nil
}

// Independent converts the shared axis to the independent variable.
func Independent(axis classify.Axis) types.Variable {
	v := types.Variable{
		Name:        axis.Name,
		Units:       axis.Units,
		Independent: true,
		Binned:      axis.Binned,
	}
	if axis.Binned {
		v.Edges = make([]types.BinEdge, len(axis.Low))
		for i := range axis.Low {
			v.Edges[i] = types.BinEdge{Low: axis.Low[i], High: axis.High[i]}
		}
		return v
	}
	v.Values = append([]float64(nil), axis.Values...)
	return v
}

// DependentVariable converts one series to a dependent variable. A series
// with an error array gets exactly one uncertainty, even when every error
// is zero; a series without one gets none.
func DependentVariable(d Dependent, opts Options) (types.Variable, error) {
	s := d.Series
	v := types.Variable{
		Name:   d.Name,
		Units:  d.Units,
		Values: append([]float64(nil), s.Y...),
	}
	if s.HasErrors() {
		u := types.Uncertainty{Label: opts.label(), Symmetric: s.Errors == types.ErrorsSymmetric}
		if u.Symmetric {
			u.Values = append([]float64(nil), s.ErrPlus...)
		} else {
			u.Minus = append([]float64(nil), s.ErrMinus...)
			u.Plus = append([]float64(nil), s.ErrPlus...)
		}
		if err := v.AddUncertainty(u); err != nil {
			return types.Variable{}, err
		}
	}
	for _, q := range opts.Qualifiers {
		v.AddQualifier(q)
	}
	return v, nil
}

// AttachImage sets the table image when path exists and the image tool is
// usable. Otherwise the table is left without an image.
func AttachImage(t *types.Table, path string, opts Options) {
	if path == "" {
		return
	}
	log := opts.log().With("table", t.Name, "image", path)
	if _, err := os.Stat(path); err != nil {
		log.Info("image not found, table has no image")
		return
	}
	if !opts.ImageUsable {
		log.Warn("image tool unavailable, skipping image")
		return
	}
	t.Image = path
	log.Debug("image attached")
}

func newTable(name string, meta metadata.Entry) *types.Table {
	t := types.NewTable(name)
	t.Description = meta.Description
	t.Location = meta.Location
	for _, k := range meta.Keywords {
		t.SetKeyword(k.Name, append([]string(nil), k.Values...))
	}
	return t
}
