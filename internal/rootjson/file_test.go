// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rootjson

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hepdata-builder/internal/extract"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

const figureJSON = `{
  "c;1": {"_typename": "TCanvas", "fName": "c", "fPrimitives": {"arr": [{"_typename": "TFrame"}]}},
  "c;2": {
    "_typename": "TCanvas",
    "fName": "c",
    "fPrimitives": {"arr": [
      {
        "_typename": "TPad",
        "fName": "upper",
        "fPrimitives": {"arr": [
          {"_typename": "TH1F", "fName": "hframe", "fXaxis": {"fNbins": 1, "fXmin": 0, "fXmax": 1}},
          {
            "_typename": "TH1F",
            "fName": "hEffData",
            "fXaxis": {"fNbins": 3, "fXmin": 0, "fXmax": 3, "fTitle": "min(d_{0}) [cm]"},
            "fYaxis": {"fTitle": "Efficiency"},
            "fArray": {"$arr": "Float32", "len": 5, "v": [0.5, 0.75, 0.9], "p": 1},
            "fSumw2": [0, 0.01, 0.04, 0.09, 0]
          },
          {
            "_typename": "TGraphAsymmErrors",
            "fName": "gEffMC",
            "fNpoints": 2,
            "fX": [1, 2, 99],
            "fY": [0.4, 0.8, 99],
            "fEYlow": [0.1, 0.2, 99],
            "fEYhigh": [0.05, 0.1, 99],
            "fHistogram": {"fXaxis": {"fTitle": "p_{T} [GeV]"}, "fYaxis": {"fTitle": "Efficiency"}}
          }
        ]}
      },
      {
        "_typename": "TPad",
        "fName": "lower",
        "fPrimitives": {"arr": [
          {"_typename": "TLegend"},
          {
            "_typename": "TGraphErrors",
            "fName": "ratio",
            "fNpoints": 1,
            "fX": [1],
            "fY": [1.1],
            "fEY": [0.2],
            "fTitle": "ratio;x;Data/MC"
          }
        ]}
      }
    ]}
  },
  "teff": {
    "_typename": "TEfficiency",
    "fName": "teff",
    "fTitle": "Trigger;offline p_{T} [GeV];Efficiency",
    "fConfLevel": 0.95,
    "fPassedHistogram": {
      "_typename": "TH1D", "fName": "passed",
      "fXaxis": {"fNbins": 2, "fXmin": 0, "fXmax": 10, "fXbins": [0, 4, 10]},
      "fArray": [0, 3, 0, 0]
    },
    "fTotalHistogram": {
      "_typename": "TH1D", "fName": "total",
      "fXaxis": {"fNbins": 2, "fXmin": 0, "fXmax": 10, "fXbins": [0, 4, 10]},
      "fArray": [0, 4, 0, 0]
    }
  },
  "label": {"_typename": "TLatex"}
}`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Figure41a.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpen(t *testing.T) {
	f, err := Open(writeFixture(t, figureJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"c;1", "c;2", "teff", "label"}, f.Keys())
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Canvas("c")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "invalid json", content: `{"c": `, wantErr: ErrCorrupt},
		{name: "top level array", content: `[1, 2]`, wantErr: ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(writeFixture(t, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := Open(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCanvas(t *testing.T) {
	f, err := Open(writeFixture(t, figureJSON))
	require.NoError(t, err)
	defer f.Close()

	// The highest cycle wins and the hframe and non-plot primitives are skipped.
	objs, err := f.Canvas("c")
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "hEffData", objs[0].Name())
	assert.Equal(t, "gEffMC", objs[1].Name())
	assert.Equal(t, "ratio", objs[2].Name())

	// Exact key lookup still reaches the older cycle.
	objs, err = f.Canvas("c;1")
	require.NoError(t, err)
	assert.Empty(t, objs)

	_, err = f.Canvas("missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = f.Canvas("teff")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestHistogramDecoding(t *testing.T) {
	f, err := Open(writeFixture(t, figureJSON))
	require.NoError(t, err)
	defer f.Close()

	objs, err := f.Canvas("c")
	require.NoError(t, err)
	h, ok := objs[0].(extract.Histogram)
	require.True(t, ok)

	assert.Equal(t, "min(d_{0}) [cm]", h.XTitle())
	assert.Equal(t, 3, h.NBins())
	assert.InDelta(t, 1.0, h.BinLowEdge(2), 1e-12)
	assert.InDelta(t, 2.5, h.BinCenter(3), 1e-12)

	s := extract.FromHistogram(h)
	require.NoError(t, s.Validate())
	assert.Equal(t, []float64{0.5, 0.75, 0.9}, s.Y)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.3}, s.ErrPlus, 1e-12)
	assert.Equal(t, []float64{0, 1, 2}, s.Low)
	assert.Equal(t, []float64{1, 2, 3}, s.High)
}

func TestGraphDecoding(t *testing.T) {
	f, err := Open(writeFixture(t, figureJSON))
	require.NoError(t, err)
	defer f.Close()

	objs, err := f.Canvas("c")
	require.NoError(t, err)

	g, ok := objs[1].(extract.Graph)
	require.True(t, ok)
	assert.Equal(t, types.ErrorsAsymmetric, g.ErrorMode())
	assert.Equal(t, "p_{T} [GeV]", g.XTitle())

	s := extract.FromGraph(g)
	require.NoError(t, s.Validate())
	assert.Equal(t, []float64{1, 2}, s.X)
	assert.Equal(t, []float64{0.1, 0.2}, s.ErrMinus)
	assert.Equal(t, []float64{0.05, 0.1}, s.ErrPlus)

	ratio, ok := objs[2].(extract.Graph)
	require.True(t, ok)
	assert.Equal(t, types.ErrorsSymmetric, ratio.ErrorMode())
	assert.Equal(t, "Data/MC", ratio.YTitle())
	minus, plus := ratio.ErrorY(0)
	assert.Equal(t, minus, plus)
}

func TestEfficiencyDecoding(t *testing.T) {
	f, err := Open(writeFixture(t, figureJSON))
	require.NoError(t, err)
	defer f.Close()

	obj, err := f.Object("teff")
	require.NoError(t, err)
	e, ok := obj.(extract.Efficiency)
	require.True(t, ok)
	assert.Equal(t, extract.KindEfficiency, extract.KindOf(obj))
	assert.Equal(t, "offline p_{T} [GeV]", e.XTitle())
	assert.Equal(t, "Efficiency", e.YTitle())
	assert.InDelta(t, 0.95, e.ConfidenceLevel(), 1e-12)

	// Variable edges are read from fXbins; the empty second bin is skipped.
	s, err := extract.FromEfficiency(e)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	assert.Equal(t, []float64{2}, s.X)
	assert.Equal(t, []float64{0.75}, s.Y)

	_, err = f.Object("label")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFloats(t *testing.T) {
	f, err := Open(writeFixture(t, `{
		"plain": [1, 2, 3],
		"sparse": {"$arr": "Float64", "len": 4, "v": [7], "p": 2},
		"filled": {"$arr": "Float64", "len": 3, "v": 0.5},
		"none": "text",
		"negative": {"$arr": "Float64", "len": -1},
		"oversized": {"$arr": "Float64", "len": 1e12},
		"offset": {"$arr": "Float64", "len": 3, "v": [1], "p": -2},
		"past end": {"$arr": "Float64", "len": 3, "v": [1], "p": 9}
	}`))
	require.NoError(t, err)
	defer f.Close()

	tests := []struct {
		key     string
		want    []float64
		wantErr bool
	}{
		{key: "plain", want: []float64{1, 2, 3}},
		{key: "sparse", want: []float64{0, 0, 7, 0}},
		{key: "filled", want: []float64{0.5, 0.5, 0.5}},
		{key: "none", want: nil},
		{key: "negative", wantErr: true},
		{key: "oversized", wantErr: true},
		{key: "offset", wantErr: true},
		{key: "past end", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			r, err := f.lookup(tt.key)
			require.NoError(t, err)
			got, err := floats(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCorrupt)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMalformedObjects(t *testing.T) {
	f, err := Open(writeFixture(t, `{
		"negative len": {"_typename": "TH1F", "fName": "h",
			"fXaxis": {"fNbins": 3, "fXmin": 0, "fXmax": 3},
			"fArray": {"$arr": "Float64", "len": -1}},
		"negative bins": {"_typename": "TH1F", "fName": "h",
			"fXaxis": {"fNbins": -4, "fXmin": 0, "fXmax": 3},
			"fArray": [0, 1]},
		"bins disagree with cells": {"_typename": "TH1D", "fName": "h",
			"fXaxis": {"fNbins": 10, "fXmin": 0, "fXmax": 3},
			"fArray": [0, 1, 2, 3, 0]},
		"short sumw2": {"_typename": "TH1D", "fName": "h",
			"fXaxis": {"fNbins": 3, "fXmin": 0, "fXmax": 3},
			"fArray": [0, 1, 2, 3, 0], "fSumw2": [0, 1]},
		"negative points": {"_typename": "TGraph", "fName": "g", "fNpoints": -2,
			"fX": [1, 2], "fY": [1, 2]},
		"bad graph errors": {"_typename": "TGraphAsymmErrors", "fName": "g", "fNpoints": 1,
			"fX": [1], "fY": [1], "fEYlow": {"$arr": "Float64", "len": -3}, "fEYhigh": [0.1]},
		"bad efficiency": {"_typename": "TEfficiency", "fName": "e",
			"fPassedHistogram": {"_typename": "TH1D", "fXaxis": {"fNbins": 1}, "fArray": {"$arr": "Float64", "len": -1}},
			"fTotalHistogram": {"_typename": "TH1D", "fXaxis": {"fNbins": 1}, "fArray": [0, 3, 0]}}
	}`))
	require.NoError(t, err)
	defer f.Close()

	for _, key := range f.Keys() {
		t.Run(key, func(t *testing.T) {
			obj, err := f.Object(key)
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.Nil(t, obj)
		})
	}
}

func TestSplitCycle(t *testing.T) {
	tests := []struct {
		key       string
		wantBase  string
		wantCycle int
	}{
		{key: "c;3", wantBase: "c", wantCycle: 3},
		{key: "c", wantBase: "c", wantCycle: 0},
		{key: "a;b", wantBase: "a;b", wantCycle: 0},
	}
	for _, tt := range tests {
		base, cycle := splitCycle(tt.key)
		assert.Equal(t, tt.wantBase, base, tt.key)
		assert.Equal(t, tt.wantCycle, cycle, tt.key)
	}
}
