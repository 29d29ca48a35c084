// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract converts plot objects (histograms, graphs, efficiency
// curves) into the canonical Series representation. The objects are
// consumed only through the read interfaces below; the numeric engine that
// backs them lives elsewhere.
package extract

import (
	"fmt"

	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// Object is the part every plot object variant shares.
type Object interface {
	// Name returns the object's identifier within its container.
	Name() string
	// XTitle returns the raw independent-axis title.
	XTitle() string
	// YTitle returns the raw dependent-axis title.
	YTitle() string
}

// Histogram is a fixed-bin 1D histogram. Bins are numbered 1..NBins.
type Histogram interface {
	Object
	NBins() int
	BinLowEdge(bin int) float64
	BinWidth(bin int) float64
	BinCenter(bin int) float64
	BinContent(bin int) float64
	BinError(bin int) float64
}

// Graph is a discrete set of points with optional y errors. Points are
// numbered 0..NPoints-1.
type Graph interface {
	Object
	NPoints() int
	Point(i int) (x, y float64)
	// ErrorMode reports which y errors the graph declares.
	ErrorMode() types.ErrorMode
	// ErrorY returns the negative and positive y error of point i. For
	// symmetric graphs both values are equal.
	ErrorY(i int) (minus, plus float64)
}

// Efficiency is a ratio of passed over total counts sharing one binning.
type Efficiency interface {
	Object
	Passed() Histogram
	Total() Histogram
	// ConfidenceLevel is the coverage of the error interval; zero selects
	// the one-sigma default.
	ConfidenceLevel() float64
}

// Kind names the supported object variants.
type Kind string

const (
	KindHistogram  Kind = "histogram"
	KindGraph      Kind = "graph"
	KindEfficiency Kind = "efficiency"
	KindUnknown    Kind = "unknown"
)

// KindOf reports which variant obj implements.
func KindOf(obj Object) Kind {
	switch obj.(type) {
	case Efficiency:
		return KindEfficiency
	case Histogram:
		return KindHistogram
	case Graph:
		return KindGraph
	default:
		return KindUnknown
	}
}

// FromObject dispatches to the converter matching obj's variant.
func FromObject(obj Object) (types.Series, error) {
	switch o := obj.(type) {
	case Efficiency:
		return FromEfficiency(o)
	case Histogram:
		return FromHistogram(o), nil
	case Graph:
		return FromGraph(o), nil
	default:
		return types.Series{}, fmt.Errorf("unsupported plot object %q (%T)", obj.Name(), obj)
	}
}

// FromHistogram emits one binned sample per declared bin with symmetric
// errors. A histogram with no bins yields an empty series.
func FromHistogram(h Histogram) types.Series {
	n := h.NBins()
	s := types.Series{
		Name:   h.Name(),
		XTitle: h.XTitle(),
		YTitle: h.YTitle(),
		Binned: true,
		Errors: types.ErrorsSymmetric,
	}
	if n <= 0 {
		s.Errors = types.ErrorsNone
		return s
	}
	s.X = make([]float64, n)
	s.Low = make([]float64, n)
	s.High = make([]float64, n)
	s.Y = make([]float64, n)
	s.ErrMinus = make([]float64, n)
	s.ErrPlus = make([]float64, n)
	for i := 0; i < n; i++ {
		bin := i + 1
		low := h.BinLowEdge(bin)
		s.Low[i] = low
		s.High[i] = low + h.BinWidth(bin)
		s.X[i] = h.BinCenter(bin)
		s.Y[i] = h.BinContent(bin)
		e := h.BinError(bin)
		s.ErrMinus[i] = e
		s.ErrPlus[i] = e
	}
	return s
}

// FromGraph emits one unbinned sample per point. Errors are copied as the
// graph declares them; a graph without errors yields a series with none.
func FromGraph(g Graph) types.Series {
	n := g.NPoints()
	mode := g.ErrorMode()
	s := types.Series{
		Name:   g.Name(),
		XTitle: g.XTitle(),
		YTitle: g.YTitle(),
		Errors: mode,
	}
	if n <= 0 {
		return s
	}
	s.X = make([]float64, n)
	s.Y = make([]float64, n)
	if s.HasErrors() {
		s.ErrMinus = make([]float64, n)
		s.ErrPlus = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		s.X[i], s.Y[i] = g.Point(i)
		if s.HasErrors() {
			s.ErrMinus[i], s.ErrPlus[i] = g.ErrorY(i)
		}
	}
	return s
}
