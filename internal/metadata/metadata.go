// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata resolves the description, location, keywords and image
// of a figure. A built-in table is shipped with the binary; a user file
// overrides it field by field.
package metadata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"dario.cat/mergo"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hepdata-builder/pkg/types"
)

//go:embed figures.yaml
var builtin []byte

// ErrMissingMetadata reports a figure with no usable description or location.
var ErrMissingMetadata = errors.New("missing figure metadata")

// Entry is the metadata of one figure.
type Entry struct {
	Description string          `yaml:"description"`
	Location    string          `yaml:"location"`
	Image       string          `yaml:"image,omitempty"`
	Keywords    []types.Keyword `yaml:"keywords,omitempty"`
}

// Validate fails when neither a description nor a location is present.
func (e Entry) Validate() error {
	if e.Description == "" && e.Location == "" {
		return ErrMissingMetadata
	}
	return nil
}

// Placeholder is the entry used for figures without metadata when
// placeholders are allowed.
func Placeholder(figure string) Entry {
	return Entry{
		Description: fmt.Sprintf("PLACEHOLDER: Description for %s", figure),
		Location:    fmt.Sprintf("PLACEHOLDER: Location for %s", figure),
	}
}

type file struct {
	Defaults struct {
		Keywords []types.Keyword `yaml:"keywords"`
	} `yaml:"defaults"`
	Figures map[string]Entry `yaml:"figures"`
}

// Table maps figure names to metadata.
type Table struct {
	defaults []types.Keyword
	figures  map[string]Entry
}

// Builtin returns the table shipped with the binary.
func Builtin() (*Table, error) {
	var f file
	if err := yaml.Unmarshal(builtin, &f); err != nil {
		return nil, fmt.Errorf("parsing built-in metadata: %w", err)
	}
	return &Table{defaults: f.Defaults.Keywords, figures: f.Figures}, nil
}

// Load returns the built-in table overridden by the YAML file at path. An
// empty path returns the built-in table.
func Load(path string) (*Table, error) {
	t, err := Builtin()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}
	if err := t.Merge(data); err != nil {
		return nil, fmt.Errorf("metadata file %s: %w", path, err)
	}
	return t, nil
}

// Merge overlays YAML metadata onto t. Non-empty fields replace existing
// ones; figures not yet known are added.
func (t *Table) Merge(data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing metadata: %w", err)
	}
	if len(f.Defaults.Keywords) > 0 {
		t.defaults = mergeKeywords(t.defaults, f.Defaults.Keywords)
	}
	if t.figures == nil {
		t.figures = make(map[string]Entry)
	}
	for name, override := range f.Figures {
		e := t.figures[name]
		keywords := mergeKeywords(e.Keywords, override.Keywords)
		if err := mergo.Merge(&e, override, mergo.WithOverride); err != nil {
			return fmt.Errorf("merging metadata for %s: %w", name, err)
		}
		e.Keywords = keywords
		t.figures[name] = e
	}
	return nil
}

// Lookup returns the entry for figure with the default keywords filled in.
// Unknown figures fail with ErrMissingMetadata unless placeholder is set.
func (t *Table) Lookup(figure string, placeholder bool) (Entry, error) {
	e, ok := t.figures[figure]
	if !ok {
		if !placeholder {
			return Entry{}, fmt.Errorf("figure %s: %w", figure, ErrMissingMetadata)
		}
		e = Placeholder(figure)
	}
	if err := e.Validate(); err != nil {
		return Entry{}, fmt.Errorf("figure %s: %w", figure, err)
	}
	return t.Complete(e), nil
}

// Complete returns e with the default keywords filled in beneath its own.
func (t *Table) Complete(e Entry) Entry {
	e.Keywords = mergeKeywords(t.defaults, e.Keywords)
	return e
}

// Figures returns the number of figures with metadata.
func (t *Table) Figures() int { return len(t.figures) }

// mergeKeywords returns base with every keyword of over replacing the
// keyword of the same name, or appended when base lacks it.
func mergeKeywords(base, over []types.Keyword) []types.Keyword {
	out := make([]types.Keyword, 0, len(base)+len(over))
	for _, k := range base {
		out = append(out, types.Keyword{Name: k.Name, Values: append([]string(nil), k.Values...)})
	}
	for _, k := range over {
		replaced := false
		for i := range out {
			if out[i].Name == k.Name {
				out[i].Values = append([]string(nil), k.Values...)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, types.Keyword{Name: k.Name, Values: append([]string(nil), k.Values...)})
		}
	}
	return out
}
