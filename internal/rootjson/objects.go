// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rootjson

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/hepdata-builder/internal/extract"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// histogram is a decoded TH1. Contents include the underflow (index 0) and
// overflow (index nbins+1) cells, so bin numbers index them directly.
type histogram struct {
	name           string
	xTitle, yTitle string
	nbins          int
	xmin, xmax     float64
	edges          []float64
	contents       []float64
	sumw2          []float64
}

func newHistogram(r gjson.Result) (*histogram, error) {
	h := &histogram{
		name:   r.Get("fName").String(),
		xTitle: r.Get("fXaxis.fTitle").String(),
		yTitle: r.Get("fYaxis.fTitle").String(),
		xmin:   r.Get("fXaxis.fXmin").Float(),
		xmax:   r.Get("fXaxis.fXmax").Float(),
	}
	nbins := r.Get("fXaxis.fNbins").Int()
	if nbins < 0 || nbins > maxCells {
		return nil, fmt.Errorf("%w: histogram %q declares %d bins", ErrCorrupt, h.name, nbins)
	}
	h.nbins = int(nbins)

	var err error
	if h.edges, err = floats(r.Get("fXaxis.fXbins")); err != nil {
		return nil, fmt.Errorf("histogram %q bin edges: %w", h.name, err)
	}
	if h.contents, err = floats(r.Get("fArray")); err != nil {
		return nil, fmt.Errorf("histogram %q contents: %w", h.name, err)
	}
	if h.sumw2, err = floats(r.Get("fSumw2")); err != nil {
		return nil, fmt.Errorf("histogram %q sum of weights: %w", h.name, err)
	}
	// Cells include underflow and overflow.
	cells := h.nbins + 2
	if len(h.contents) != cells {
		return nil, fmt.Errorf("%w: histogram %q has %d cells for %d bins", ErrCorrupt, h.name, len(h.contents), h.nbins)
	}
	if len(h.sumw2) != 0 && len(h.sumw2) != cells {
		return nil, fmt.Errorf("%w: histogram %q has %d squared weights for %d bins", ErrCorrupt, h.name, len(h.sumw2), h.nbins)
	}
	if len(h.edges) != h.nbins+1 {
		h.edges = nil
	}
	return h, nil
}

func (h *histogram) Name() string   { return h.name }
func (h *histogram) XTitle() string { return h.xTitle }
func (h *histogram) YTitle() string { return h.yTitle }
func (h *histogram) NBins() int     { return h.nbins }

func (h *histogram) BinLowEdge(bin int) float64 {
	if h.edges != nil {
		return h.edges[bin-1]
	}
	return h.xmin + float64(bin-1)*h.uniformWidth()
}

func (h *histogram) BinWidth(bin int) float64 {
	if h.edges != nil {
		return h.edges[bin] - h.edges[bin-1]
	}
	return h.uniformWidth()
}

func (h *histogram) BinCenter(bin int) float64 {
	return h.BinLowEdge(bin) + h.BinWidth(bin)/2
}

func (h *histogram) BinContent(bin int) float64 {
	if bin < 0 || bin >= len(h.contents) {
		return 0
	}
	return h.contents[bin]
}

// BinError follows ROOT: sqrt(sum of squared weights) when stored, else
// sqrt(|content|).
func (h *histogram) BinError(bin int) float64 {
	if bin >= 0 && bin < len(h.sumw2) {
		return math.Sqrt(h.sumw2[bin])
	}
	return math.Sqrt(math.Abs(h.BinContent(bin)))
}

func (h *histogram) uniformWidth() float64 {
	if h.nbins <= 0 {
		return 0
	}
	return (h.xmax - h.xmin) / float64(h.nbins)
}

// graph is a decoded TGraph, TGraphErrors or TGraphAsymmErrors.
type graph struct {
	name           string
	xTitle, yTitle string
	x, y           []float64
	mode           types.ErrorMode
	eyLow, eyHigh  []float64
}

func newGraph(r gjson.Result) (*graph, error) {
	g := &graph{
		name:   r.Get("fName").String(),
		xTitle: r.Get("fHistogram.fXaxis.fTitle").String(),
		yTitle: r.Get("fHistogram.fYaxis.fTitle").String(),
		mode:   types.ErrorsNone,
	}
	n := r.Get("fNpoints").Int()
	if n < 0 || n > maxCells {
		return nil, fmt.Errorf("%w: graph %q declares %d points", ErrCorrupt, g.name, n)
	}

	var err error
	read := func(key string) []float64 {
		if err != nil {
			return nil
		}
		var v []float64
		if v, err = floats(r.Get(key)); err != nil {
			err = fmt.Errorf("graph %q %s: %w", g.name, key, err)
		}
		return truncate(v, int(n))
	}
	g.x, g.y = read("fX"), read("fY")
	switch typeName(r) {
	case "TGraphErrors":
		ey := read("fEY")
		g.mode, g.eyLow, g.eyHigh = types.ErrorsSymmetric, ey, ey
	case "TGraphAsymmErrors":
		g.mode = types.ErrorsAsymmetric
		g.eyLow, g.eyHigh = read("fEYlow"), read("fEYhigh")
	}
	if err != nil {
		return nil, err
	}
	if g.xTitle == "" && g.yTitle == "" {
		g.xTitle, g.yTitle = titleAxes(r.Get("fTitle").String())
	}
	return g, nil
}

func (g *graph) Name() string               { return g.name }
func (g *graph) XTitle() string             { return g.xTitle }
func (g *graph) YTitle() string             { return g.yTitle }
func (g *graph) ErrorMode() types.ErrorMode { return g.mode }

func (g *graph) NPoints() int {
	return min(len(g.x), len(g.y))
}

func (g *graph) Point(i int) (float64, float64) {
	return g.x[i], g.y[i]
}

func (g *graph) ErrorY(i int) (float64, float64) {
	return at(g.eyLow, i), at(g.eyHigh, i)
}

// efficiency is a decoded TEfficiency.
type efficiency struct {
	name           string
	xTitle, yTitle string
	passed, total  *histogram
	level          float64
}

func newEfficiency(r gjson.Result) (*efficiency, error) {
	passed, total := r.Get("fPassedHistogram"), r.Get("fTotalHistogram")
	if !passed.IsObject() || !total.IsObject() {
		return nil, fmt.Errorf("%w: TEfficiency %q without passed/total histograms", ErrUnsupported, r.Get("fName").String())
	}
	e := &efficiency{
		name:  r.Get("fName").String(),
		level: r.Get("fConfLevel").Float(),
	}
	var err error
	if e.passed, err = newHistogram(passed); err != nil {
		return nil, fmt.Errorf("TEfficiency %q passed: %w", e.name, err)
	}
	if e.total, err = newHistogram(total); err != nil {
		return nil, fmt.Errorf("TEfficiency %q total: %w", e.name, err)
	}
	e.xTitle, e.yTitle = titleAxes(r.Get("fTitle").String())
	if e.xTitle == "" {
		e.xTitle = e.total.xTitle
	}
	if e.yTitle == "" {
		e.yTitle = "Efficiency"
	}
	return e, nil
}

func (e *efficiency) Name() string              { return e.name }
func (e *efficiency) XTitle() string            { return e.xTitle }
func (e *efficiency) YTitle() string            { return e.yTitle }
func (e *efficiency) Passed() extract.Histogram { return e.passed }
func (e *efficiency) Total() extract.Histogram  { return e.total }
func (e *efficiency) ConfidenceLevel() float64  { return e.level }

// titleAxes splits ROOT's "title;x title;y title" convention.
func titleAxes(title string) (x, y string) {
	parts := strings.Split(title, ";")
	if len(parts) > 1 {
		x = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		y = strings.TrimSpace(parts[2])
	}
	return x, y
}

func truncate(v []float64, n int) []float64 {
	if n >= 0 && len(v) > n {
		return v[:n]
	}
	return v
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
