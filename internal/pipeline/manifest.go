// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hepdata-builder/internal/extract"
	"github.com/pdiddy/hepdata-builder/internal/metadata"
	"github.com/pdiddy/hepdata-builder/internal/record"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

// EnergyQualifier is the qualifier a per-table energy override replaces.
const EnergyQualifier = "SQRT(S)"

// Manifest lists tables described explicitly rather than discovered from a
// canvas. Relative paths are resolved against the manifest's directory.
type Manifest struct {
	Tables []ManifestTable `yaml:"tables" validate:"dive"`

	dir string
}

// ManifestTable is one explicitly described table.
type ManifestTable struct {
	Name        string          `yaml:"name" validate:"required"`
	Description string          `yaml:"description"`
	Location    string          `yaml:"location"`
	Image       string          `yaml:"image"`
	Keywords    []types.Keyword `yaml:"keywords"`

	// Container holds every object named in Objects.
	Container string `yaml:"container" validate:"required"`

	// Axis names the independent variable. An empty name falls back to
	// the first object's axis title.
	Axis struct {
		Name  string `yaml:"name"`
		Units string `yaml:"units"`
	} `yaml:"axis"`

	// Energy replaces the SQRT(S) qualifier value for this table, e.g. "13"
	// for tables of Run 2 data.
	Energy string `yaml:"energy"`

	// Qualifiers are set on this table only, replacing configured
	// qualifiers of the same name.
	Qualifiers []types.Qualifier `yaml:"qualifiers" validate:"dive"`

	// Symmetric collapses asymmetric errors to one symmetric error per
	// point, the larger of the two.
	Symmetric bool `yaml:"symmetric"`

	Objects []ManifestObject `yaml:"objects" validate:"required,min=1,dive"`
}

// ManifestObject is one dependent variable of a manifest table.
type ManifestObject struct {
	// Key is the object name, with or without a ";cycle" suffix.
	Key   string `yaml:"key" validate:"required"`
	Label string `yaml:"label" validate:"required"`
	Units string `yaml:"units"`
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := validator.New().Struct(m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

func (m *Manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.dir, path)
}

// buildManifestTable assembles one manifest table. A missing container or
// object fails the table.
func (p *Pipeline) buildManifestTable(mt ManifestTable) (*types.Table, error) {
	meta, err := p.manifestMetadata(mt)
	if err != nil {
		return nil, err
	}

	f, err := openContainer(p.Manifest.resolve(mt.Container))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series := make([]types.Series, 0, len(mt.Objects))
	for _, o := range mt.Objects {
		obj, err := f.Object(o.Key)
		if err != nil {
			return nil, err
		}
		s, err := extract.FromObject(obj)
		if err != nil {
			return nil, err
		}
		if mt.Symmetric {
			s = symmetrize(s)
		}
		series = append(series, s)
	}

	axis, err := p.Classifier.SharedAxis(mt.Name, series)
	if err != nil {
		return nil, err
	}
	if mt.Axis.Name != "" {
		axis.Name, axis.Units = mt.Axis.Name, mt.Axis.Units
	}
	for _, m := range axis.Mismatches {
		p.log().Warn("axis values differ between series", "table", mt.Name, "detail", m)
	}

	deps := make([]record.Dependent, len(series))
	for i, s := range series {
		deps[i] = record.Dependent{Name: mt.Objects[i].Label, Units: mt.Objects[i].Units, Series: s}
	}

	opts := p.Record
	opts.Logger = p.log()
	for _, q := range mt.Qualifiers {
		opts.Qualifiers = withQualifier(opts.Qualifiers, q)
	}
	if mt.Energy != "" {
		opts.Qualifiers = withEnergy(opts.Qualifiers, mt.Energy)
	}
	return record.Build(mt.Name, meta, axis, deps, opts)
}

// manifestMetadata uses the manifest's own text when present and falls
// back to the metadata table otherwise.
func (p *Pipeline) manifestMetadata(mt ManifestTable) (metadata.Entry, error) {
	if mt.Description == "" && mt.Location == "" {
		meta, err := p.lookupMetadata(mt.Name)
		if err != nil {
			return metadata.Entry{}, err
		}
		if mt.Image != "" {
			meta.Image = p.Manifest.resolve(mt.Image)
		}
		return meta, nil
	}
	meta := metadata.Entry{
		Description: mt.Description,
		Location:    mt.Location,
		Image:       p.Manifest.resolve(mt.Image),
		Keywords:    mt.Keywords,
	}
	if p.Metadata != nil {
		meta = p.Metadata.Complete(meta)
	}
	return meta, nil
}

func symmetrize(s types.Series) types.Series {
	if s.Errors != types.ErrorsAsymmetric {
		return s
	}
	errs := make([]float64, len(s.ErrPlus))
	for i := range errs {
		errs[i] = math.Max(s.ErrMinus[i], s.ErrPlus[i])
	}
	s.Errors = types.ErrorsSymmetric
	s.ErrMinus, s.ErrPlus = errs, errs
	return s
}

// withEnergy returns a copy of qs with the energy qualifier set to value.
func withEnergy(qs []types.Qualifier, value string) []types.Qualifier {
	for _, q := range qs {
		if q.Name == EnergyQualifier {
			q.Value = value
			return withQualifier(qs, q)
		}
	}
	return withQualifier(qs, types.Qualifier{Name: EnergyQualifier, Value: value, Units: "TeV"})
}

// withQualifier returns a copy of qs with q replacing the qualifier of the
// same name, or appended when there is none.
func withQualifier(qs []types.Qualifier, q types.Qualifier) []types.Qualifier {
	out := append([]types.Qualifier(nil), qs...)
	for i := range out {
		if out[i].Name == q.Name {
			out[i] = q
			return out
		}
	}
	return append(out, q)
}
