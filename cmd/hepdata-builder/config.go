// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/hepdata-builder/internal/imagetool"
	"github.com/pdiddy/hepdata-builder/internal/submission"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

const (
	defaultInputDir  = "data"
	defaultOutputDir = "hepdata_output"
)

// setBuildDefaults registers the defaults of every build key on v.
func setBuildDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", defaultInputDir)
	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("archive_path", submission.DefaultArchive)
	v.SetDefault("canvas_name", "c")
	v.SetDefault("image_tool.binary", imagetool.DefaultBinary)
	v.SetDefault("image_tool.probe_timeout", imagetool.DefaultProbeTimeout)
}

// loadBuildConfig unmarshals and validates the build configuration held
// by v, filling the defaults the pipeline does not apply itself.
func loadBuildConfig(v *viper.Viper) (types.BuildConfig, error) {
	setBuildDefaults(v)
	var cfg types.BuildConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.BuildConfig{}, fmt.Errorf("reading configuration: %w", err)
	}
	if len(cfg.Qualifiers) == 0 {
		cfg.Qualifiers = types.DefaultQualifiers()
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = types.DefaultKeywords()
	}
	if err := validator.New().Struct(cfg); err != nil {
		return types.BuildConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// readAbstract returns the trimmed contents of path, or "" for an empty
// path.
func readAbstract(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading abstract: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
