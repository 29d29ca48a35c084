// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hepdata-builder/internal/extract"
	"github.com/pdiddy/hepdata-builder/internal/ledger"
	"github.com/pdiddy/hepdata-builder/internal/logger"
	"github.com/pdiddy/hepdata-builder/internal/metadata"
	"github.com/pdiddy/hepdata-builder/internal/rootjson"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// canvasJSON draws a data histogram, a derivative copy of it, a ratio
// panel and a simulation graph on canvas "c".
const canvasJSON = `{
  "c;1": {
    "_typename": "TCanvas",
    "fName": "c",
    "fPrimitives": {"arr": [
      {"_typename": "TPad", "fName": "upper", "fPrimitives": {"arr": [
        {"_typename": "TH1F", "fName": "hframe", "fXaxis": {"fNbins": 1, "fXmin": 0, "fXmax": 3}},
        {
          "_typename": "TH1F", "fName": "hDisplacedL3JetMET2022",
          "fXaxis": {"fNbins": 3, "fXmin": 0, "fXmax": 3, "fTitle": "min p_{T} [GeV]"},
          "fYaxis": {"fTitle": "Efficiency"},
          "fArray": [0, 0.5, 0.75, 0.9, 0],
          "fSumw2": [0, 0.01, 0.04, 0.09, 0]
        },
        {
          "_typename": "TH1F", "fName": "hDisplacedL3JetMET2022_copy",
          "fXaxis": {"fNbins": 3, "fXmin": 0, "fXmax": 3, "fTitle": "min p_{T} [GeV]"},
          "fYaxis": {"fTitle": "Efficiency"},
          "fArray": [0, 0.5, 0.75, 0.9, 0]
        },
        {
          "_typename": "TGraphAsymmErrors", "fName": "gBtoJPsi", "fNpoints": 3,
          "fX": [0.5, 1.5, 2.5], "fY": [0.4, 0.8, 0.85],
          "fEYlow": [0.1, 0.2, 0.05], "fEYhigh": [0.05, 0.1, 0.05],
          "fHistogram": {"fXaxis": {"fTitle": "min p_{T} [GeV]"}, "fYaxis": {"fTitle": "Efficiency"}}
        }
      ]}},
      {"_typename": "TPad", "fName": "lower", "fPrimitives": {"arr": [
        {
          "_typename": "TGraphErrors", "fName": "ratio_2022", "fNpoints": 3,
          "fX": [0.5, 1.5, 2.5], "fY": [1.2, 0.9, 1.05], "fEY": [0.1, 0.1, 0.1],
          "fTitle": "ratio;min p_{T} [GeV];Data/MC"
        }
      ]}}
    ]}
  }
}`

const ratesJSON = `{
  "g_2016;1": {
    "_typename": "TGraphAsymmErrors", "fName": "g_2016", "fNpoints": 2,
    "fX": [600, 1200], "fY": [2.5, 4.0],
    "fEYlow": [0.2, 0.1], "fEYhigh": [0.1, 0.3],
    "fTitle": "rate;colliding bunches;rate [Hz]"
  }
}`

const manifestYAML = `
tables:
  - name: Muon NoBPTX HLT rate vs number of colliding bunches (2016)
    description: Rate of the main muon No-BPTX HLT path as a function of the number of colliding bunches, for 2016.
    location: Data from Fig. 58
    container: rates.json
    axis: {name: Number of colliding bunches}
    energy: "13"
    symmetric: true
    objects:
      - {key: "g_2016;1", label: HLT rate in 2016, units: Hz}
  - name: Muon NoBPTX HLT rate vs number of colliding bunches (2099)
    description: Not recorded.
    container: rates.json
    objects:
      - {key: g_2099, label: HLT rate in 2099}
  - name: Unreachable
    description: Container is gone.
    container: gone.json
    objects:
      - {key: g_2016, label: HLT rate}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testPipeline(t *testing.T, dir string, imageUsable bool) *Pipeline {
	t.Helper()
	meta, err := metadata.Builtin()
	require.NoError(t, err)
	return FromConfig(types.BuildConfig{InputDir: dir}, meta, imageUsable, logger.Discard())
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.yaml", "c.yml", "notes.txt", "Z.JSON"} {
		writeFile(t, dir, name, "{}")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	sources, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, sources, 4)
	assert.Equal(t, Source{Figure: "Z", Path: filepath.Join(dir, "Z.JSON"), Kind: SourceContainer}, sources[0])
	assert.Equal(t, "a", sources[1].Figure)
	assert.Equal(t, SourceRecord, sources[1].Kind)
	assert.Equal(t, "b", sources[2].Figure)
	assert.Equal(t, SourceRecord, sources[3].Kind)

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Figure40.yaml", "independent_variables: []\ndependent_variables: []\n")
	writeFile(t, dir, "Figure41a.json", canvasJSON)
	writeFile(t, dir, "Figure41b.json", "{not json")
	writeFile(t, dir, "Unlisted.json", canvasJSON)
	writeFile(t, dir, "README.md", "ignored")

	p := testPipeline(t, dir, false)
	sub := &types.Submission{}
	var out bytes.Buffer
	result, err := p.Run(context.Background(), sub, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Built)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 2, result.Failed)
	assert.True(t, result.HasFailures())
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Figure41b", result.Errors[0].Figure)
	assert.ErrorIs(t, result.Errors[0], rootjson.ErrCorrupt)
	assert.Equal(t, "Unlisted", result.Errors[1].Figure)
	assert.ErrorIs(t, result.Errors[1], metadata.ErrMissingMetadata)

	require.Len(t, sub.Tables, 1)
	tbl := sub.Tables[0]
	require.NoError(t, tbl.Validate())
	assert.Equal(t, "Figure41a", tbl.Name)
	assert.Equal(t, "Data from Figure 41 (upper left).", tbl.Location)

	require.NotNil(t, tbl.Independent)
	assert.Equal(t, "min($p_T$)", tbl.Independent.Name)
	assert.Equal(t, "GeV", tbl.Independent.Units)
	assert.True(t, tbl.Independent.Binned)
	assert.Equal(t, []types.BinEdge{{Low: 0, High: 1}, {Low: 1, High: 2}, {Low: 2, High: 3}}, tbl.Independent.Edges)

	require.Len(t, tbl.Dependent, 2)
	data, mc := tbl.Dependent[0], tbl.Dependent[1]
	assert.Equal(t, "Run 3 (2022, L3) trigger efficiency - 2022 data", data.Name)
	assert.Equal(t, "Run 3 (2022, L3) trigger efficiency - simulation", mc.Name)
	assert.Equal(t, []float64{0.5, 0.75, 0.9}, data.Values)
	assert.Empty(t, data.Units)
	require.Len(t, data.Uncertainties, 1)
	assert.True(t, data.Uncertainties[0].Symmetric)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.3}, data.Uncertainties[0].Values, 1e-12)
	require.Len(t, mc.Uncertainties, 1)
	assert.False(t, mc.Uncertainties[0].Symmetric)
	assert.Equal(t, []float64{0.1, 0.2, 0.05}, mc.Uncertainties[0].Minus)
	assert.Equal(t, []types.Qualifier{{Name: "SQRT(S)", Value: "13.6", Units: "TeV"}}, mc.Qualifiers)

	assert.Equal(t, []string{"13000", "13600"}, tbl.Keyword("cmenergies"))
	assert.Equal(t, []string{"P P --> X"}, tbl.Keyword("reactions"))

	assert.Contains(t, out.String(), "skipped: Figure40")
	assert.Contains(t, out.String(), "built:   Figure41a (2 dependent variables)")
	assert.Contains(t, out.String(), "failed:  Figure41b")
	assert.Contains(t, out.String(), "Batch summary: 1 built, 1 skipped, 2 failed (total: 4)")
}

func TestRun_Placeholder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Unlisted.json", canvasJSON)

	p := testPipeline(t, dir, false)
	p.AllowPlaceholder = true
	sub := &types.Submission{}
	result, err := p.Run(context.Background(), sub, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Built)
	require.Len(t, sub.Tables, 1)
	assert.Equal(t, metadata.Placeholder("Unlisted").Description, sub.Tables[0].Description)
	assert.Equal(t, metadata.Placeholder("Unlisted").Location, sub.Tables[0].Location)
}

func TestRun_Image(t *testing.T) {
	tests := []struct {
		name        string
		withImage   bool
		imageUsable bool
		wantImage   bool
	}{
		{name: "attached when present and usable", withImage: true, imageUsable: true, wantImage: true},
		{name: "skipped when tool unavailable", withImage: true, imageUsable: false},
		{name: "skipped when image missing", withImage: false, imageUsable: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "Figure41a.json", canvasJSON)
			image := filepath.Join(dir, "Figure41a.pdf")
			if tc.withImage {
				writeFile(t, dir, "Figure41a.pdf", "%PDF-1.4")
			}

			p := testPipeline(t, dir, tc.imageUsable)
			sub := &types.Submission{}
			result, err := p.Run(context.Background(), sub, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, 1, result.Built)
			require.Len(t, sub.Tables, 1)
			if tc.wantImage {
				assert.Equal(t, image, sub.Tables[0].Image)
			} else {
				assert.Empty(t, sub.Tables[0].Image)
			}
		})
	}
}

func TestRun_Manifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rates.json", ratesJSON)
	manifestPath := writeFile(t, dir, "tables.manifest", manifestYAML)

	m, err := LoadManifest(manifestPath)
	require.NoError(t, err)
	require.Len(t, m.Tables, 3)

	p := testPipeline(t, dir, false)
	p.Manifest = m
	sub := &types.Submission{}
	result, err := p.Run(context.Background(), sub, &bytes.Buffer{})
	require.NoError(t, err)

	// rates.json is claimed by the manifest and not read as a canvas.
	assert.Equal(t, 1, result.Built)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.ErrorIs(t, result.Errors[0], rootjson.ErrObjectNotFound)
	assert.ErrorIs(t, result.Errors[1], ErrContainerNotFound)

	require.Len(t, sub.Tables, 1)
	tbl := sub.Tables[0]
	assert.Equal(t, "Data from Fig. 58", tbl.Location)
	assert.Equal(t, "Number of colliding bunches", tbl.Independent.Name)
	assert.Empty(t, tbl.Independent.Units)
	assert.Equal(t, []float64{600, 1200}, tbl.Independent.Values)

	require.Len(t, tbl.Dependent, 1)
	rate := tbl.Dependent[0]
	assert.Equal(t, "HLT rate in 2016", rate.Name)
	assert.Equal(t, "Hz", rate.Units)
	assert.Equal(t, []types.Qualifier{{Name: "SQRT(S)", Value: "13", Units: "TeV"}}, rate.Qualifiers)
	require.Len(t, rate.Uncertainties, 1)
	assert.True(t, rate.Uncertainties[0].Symmetric)
	assert.Equal(t, []float64{0.2, 0.3}, rate.Uncertainties[0].Values)
	assert.Equal(t, []string{"13000", "13600"}, tbl.Keyword("cmenergies"))
}

func TestLoadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "tables:\n  - name: no objects\n    container: x.json\n")
	_, err := LoadManifest(path)
	assert.Error(t, err)

	_, err = LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRun_Recorder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Figure41a.json", canvasJSON)
	writeFile(t, dir, "Figure41b.json", "[]")

	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	ctx := context.Background()
	runID, err := l.StartRun(ctx, dir, "out")
	require.NoError(t, err)

	p := testPipeline(t, dir, false)
	p.Recorder, p.RunID = l, runID
	_, err = p.Run(ctx, &types.Submission{}, &bytes.Buffer{})
	require.NoError(t, err)

	figs, err := l.Figures(ctx, runID)
	require.NoError(t, err)
	require.Len(t, figs, 2)
	assert.Equal(t, ledger.Figure{Name: "Figure41a", Source: filepath.Join(dir, "Figure41a.json"), Status: ledger.StatusSucceeded, Tables: 1}, figs[0])
	assert.Equal(t, ledger.StatusFailed, figs[1].Status)
	assert.NotEmpty(t, figs[1].Error)
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Figure41a.json", canvasJSON)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	_, err := testPipeline(t, dir, false).Run(ctx, &types.Submission{}, &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out.String(), "Batch summary: 0 built, 0 skipped, 0 failed (total: 0)")
}

func TestRun_UnreadableInputDir(t *testing.T) {
	var out bytes.Buffer
	p := testPipeline(t, filepath.Join(t.TempDir(), "missing"), false)
	_, err := p.Run(context.Background(), &types.Submission{}, &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Batch summary: 0 built, 0 skipped, 0 failed (total: 0)")
}

// singleObjectCanvas draws one primitive on canvas "c".
func singleObjectCanvas(primitive string) string {
	return `{"c;1": {"_typename": "TCanvas", "fName": "c", "fPrimitives": {"arr": [` + primitive + `]}}}`
}

func TestRun_MalformedContainers(t *testing.T) {
	tests := []struct {
		name      string
		container string
		wantErr   error
	}{
		{
			name: "negative array length",
			container: singleObjectCanvas(`{"_typename": "TH1F", "fName": "h",
				"fXaxis": {"fNbins": 3, "fXmin": 0, "fXmax": 3},
				"fArray": {"$arr": "Float64", "len": -1}}`),
			wantErr: rootjson.ErrCorrupt,
		},
		{
			name: "oversized array length",
			container: singleObjectCanvas(`{"_typename": "TH1F", "fName": "h",
				"fXaxis": {"fNbins": 3, "fXmin": 0, "fXmax": 3},
				"fArray": {"$arr": "Float64", "len": 1e15}}`),
			wantErr: rootjson.ErrCorrupt,
		},
		{
			name: "bin count disagrees with contents",
			container: singleObjectCanvas(`{"_typename": "TH1D", "fName": "h",
				"fXaxis": {"fNbins": 1000000, "fXmin": 0, "fXmax": 3},
				"fArray": [0, 0.5, 0.75, 0.9, 0]}`),
			wantErr: rootjson.ErrCorrupt,
		},
		{
			name: "passed above total",
			container: singleObjectCanvas(`{"_typename": "TEfficiency", "fName": "eff",
				"fTitle": ";p_{T} [GeV];Efficiency",
				"fPassedHistogram": {"_typename": "TH1D", "fXaxis": {"fNbins": 1, "fXmin": 0, "fXmax": 1}, "fArray": [0, 5, 0]},
				"fTotalHistogram": {"_typename": "TH1D", "fXaxis": {"fNbins": 1, "fXmin": 0, "fXmax": 1}, "fArray": [0, 3, 0]}}`),
			wantErr: extract.ErrInconsistentEfficiency,
		},
		{
			name:      "valid JSON without a canvas",
			container: `{"h;1": {"_typename": "TH1F", "fName": "h"}}`,
			wantErr:   rootjson.ErrObjectNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "Figure41a.json", tt.container)
			writeFile(t, dir, "Figure41b.json", canvasJSON)

			sub := &types.Submission{}
			var out bytes.Buffer
			var result BatchResult
			require.NotPanics(t, func() {
				var err error
				result, err = testPipeline(t, dir, false).Run(context.Background(), sub, &out)
				require.NoError(t, err)
			})

			assert.Equal(t, 1, result.Failed)
			assert.Equal(t, 1, result.Built)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, "Figure41a", result.Errors[0].Figure)
			assert.ErrorIs(t, result.Errors[0], tt.wantErr)
			require.Len(t, sub.Tables, 1)
			assert.Equal(t, "Figure41b", sub.Tables[0].Name)
			assert.Contains(t, out.String(), "Batch summary: 1 built, 0 skipped, 1 failed (total: 2)")
		})
	}
}

func TestGuard(t *testing.T) {
	tbl, err := guard(func() (*types.Table, error) {
		var s []float64
		_ = s[3]
		return types.NewTable("never"), nil
	})
	assert.Nil(t, tbl)
	assert.ErrorIs(t, err, ErrBuildPanic)
	assert.Contains(t, err.Error(), "index out of range")

	tbl, err = guard(func() (*types.Table, error) { return types.NewTable("Figure40"), nil })
	require.NoError(t, err)
	assert.Equal(t, "Figure40", tbl.Name)
}

func TestWithEnergy(t *testing.T) {
	base := types.DefaultQualifiers()
	got := withEnergy(base, "13")
	assert.Equal(t, "13", got[0].Value)
	assert.Equal(t, "13.6", base[0].Value, "input must not be modified")

	got = withEnergy(nil, "13")
	assert.Equal(t, []types.Qualifier{{Name: EnergyQualifier, Value: "13", Units: "TeV"}}, got)
}

func TestWithQualifier(t *testing.T) {
	base := types.DefaultQualifiers()
	lumi := types.Qualifier{Name: "Luminosity", Value: "140", Units: "fb^-1"}

	got := withQualifier(base, lumi)
	require.Len(t, got, len(base)+1)
	assert.Equal(t, lumi, got[len(got)-1])
	assert.Len(t, base, len(types.DefaultQualifiers()), "input must not grow")

	got = withQualifier(got, types.Qualifier{Name: "Luminosity", Value: "36"})
	require.Len(t, got, len(base)+1)
	assert.Equal(t, "36", got[len(got)-1].Value)
}

func TestApplyKeywords(t *testing.T) {
	sub := &types.Submission{}
	tbl := types.NewTable("Figure40")
	tbl.SetKeyword("cmenergies", []string{"13600"})
	sub.AddTable(tbl)

	ApplyKeywords(sub, types.DefaultKeywords())
	assert.Equal(t, []string{"13000", "13600"}, tbl.Keyword("cmenergies"))
	assert.Len(t, tbl.Keywords, 1)
}
