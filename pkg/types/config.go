// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ImageToolConfig holds settings for the external image-conversion tool.
type ImageToolConfig struct {
	// Binary is the conversion executable (default "convert").
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`

	// ProbeTimeout bounds the capability probe (default 5s).
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// Disabled skips the probe and treats the tool as unavailable.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// NameRuleConfig is a user-supplied series naming rule. Rules from the
// configuration take precedence over the built-in table.
type NameRuleConfig struct {
	// Figure restricts the rule to one figure; empty applies to all.
	Figure string `json:"figure,omitempty" yaml:"figure,omitempty" mapstructure:"figure"`

	// Contains lists substrings that must all appear in the identifier.
	Contains []string `json:"contains" yaml:"contains" mapstructure:"contains" validate:"required,min=1"`

	// Excludes lists substrings that must not appear.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty" mapstructure:"excludes"`

	// Label is the display name assigned on match.
	Label string `json:"label" yaml:"label" mapstructure:"label" validate:"required"`
}

// AxisOverrideConfig fixes the independent axis name and units for a figure.
type AxisOverrideConfig struct {
	Figure string `json:"figure" yaml:"figure" mapstructure:"figure" validate:"required"`
	Name   string `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Units  string `json:"units" yaml:"units" mapstructure:"units"`
}

// BuildConfig holds settings for the build command.
type BuildConfig struct {
	// InputDir holds the figure containers (.json) and prior records (.yaml).
	InputDir string `json:"input_dir" yaml:"input_dir" mapstructure:"input_dir" validate:"required"`

	// ImageDir is where <figure>.pdf images are looked up (default InputDir).
	ImageDir string `json:"image_dir" yaml:"image_dir" mapstructure:"image_dir"`

	// OutputDir receives one YAML file per table plus submission.yaml.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir" validate:"required"`

	// ArchivePath is the tar.gz bundle written after OutputDir (default
	// "submission.tar.gz").
	ArchivePath string `json:"archive_path" yaml:"archive_path" mapstructure:"archive_path"`

	// MetadataFile is an optional YAML file of per-figure metadata.
	MetadataFile string `json:"metadata_file" yaml:"metadata_file" mapstructure:"metadata_file"`

	// ManifestFile is an optional YAML file of explicitly described tables.
	ManifestFile string `json:"manifest_file" yaml:"manifest_file" mapstructure:"manifest_file"`

	// AbstractFile is an optional plain-text abstract for the submission.
	AbstractFile string `json:"abstract_file" yaml:"abstract_file" mapstructure:"abstract_file"`

	// CanvasName is the canvas object looked up in native containers (default "c").
	CanvasName string `json:"canvas_name" yaml:"canvas_name" mapstructure:"canvas_name"`

	// DedupSuffixes are stripped from identifiers before duplicate detection
	// (default ["_copy"]).
	DedupSuffixes []string `json:"dedup_suffixes" yaml:"dedup_suffixes" mapstructure:"dedup_suffixes"`

	// StrictAxis fails a figure whose retained series disagree on x-values
	// or bin edges. Length mismatches always fail.
	StrictAxis bool `json:"strict_axis" yaml:"strict_axis" mapstructure:"strict_axis"`

	// AllowPlaceholderMetadata builds figures that have no metadata entry
	// with placeholder description and location instead of skipping them.
	AllowPlaceholderMetadata bool `json:"allow_placeholder_metadata" yaml:"allow_placeholder_metadata" mapstructure:"allow_placeholder_metadata"`

	// Qualifiers are attached to every dependent variable built from plot
	// objects (default SQRT(S) = 13.6 TeV).
	Qualifiers []Qualifier `json:"qualifiers" yaml:"qualifiers" mapstructure:"qualifiers" validate:"dive"`

	// Keywords are applied to every table after processing (default
	// cmenergies 13000, 13600).
	Keywords []Keyword `json:"keywords" yaml:"keywords" mapstructure:"keywords"`

	// Links are additional resources recorded in submission.yaml.
	Links []Link `json:"links" yaml:"links" mapstructure:"links"`

	NameRules     []NameRuleConfig     `json:"name_rules" yaml:"name_rules" mapstructure:"name_rules" validate:"dive"`
	AxisOverrides []AxisOverrideConfig `json:"axis_overrides" yaml:"axis_overrides" mapstructure:"axis_overrides" validate:"dive"`

	ImageTool ImageToolConfig `json:"image_tool" yaml:"image_tool" mapstructure:"image_tool"`

	// LedgerPath is the SQLite run ledger; empty disables it.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path" mapstructure:"ledger_path"`
}

// DefaultQualifiers returns the qualifiers attached when none are configured.
func DefaultQualifiers() []Qualifier {
	return []Qualifier{{Name: "SQRT(S)", Value: "13.6", Units: "TeV"}}
}

// DefaultKeywords returns the keywords applied to every table when none are
// configured.
func DefaultKeywords() []Keyword {
	return []Keyword{{Name: "cmenergies", Values: []string{"13000", "13600"}}}
}
