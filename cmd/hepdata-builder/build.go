// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/hepdata-builder/internal/imagetool"
	"github.com/pdiddy/hepdata-builder/internal/ledger"
	"github.com/pdiddy/hepdata-builder/internal/metadata"
	"github.com/pdiddy/hepdata-builder/internal/pipeline"
	"github.com/pdiddy/hepdata-builder/internal/submission"
	"github.com/pdiddy/hepdata-builder/pkg/types"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Convert figure containers into a HEPData submission",
	Long: `Build discovers figure containers (.json) and prior records (.yaml) in
the input directory, turns each into one table, and writes the submission
directory and archive. Failing figures are reported and skipped; the command
fails only when the submission cannot be written.

When the image tool cannot convert a figure image, the submission is written
again without any images.`,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.String("input-dir", defaultInputDir, "directory holding figure containers and prior records")
	f.String("image-dir", "", "directory holding <figure>.pdf images (default: input dir)")
	f.String("output-dir", defaultOutputDir, "submission output directory")
	f.String("archive", submission.DefaultArchive, "path of the submission archive")
	f.String("metadata", "", "YAML file of figure metadata overriding the built-in table")
	f.String("manifest", "", "YAML file of explicitly described tables")
	f.String("abstract", "", "plain-text file with the submission abstract")
	f.String("canvas", "c", "canvas name looked up in figure containers")
	f.Bool("strict-axis", false, "fail figures whose series disagree on axis values")
	f.Bool("allow-placeholder-metadata", false, "build figures without metadata using placeholder text")
	f.Bool("no-images", false, "skip the image tool and write no images")
	f.String("ledger", "", "SQLite run ledger to record this build in")

	for key, flag := range map[string]string{
		"input_dir":                  "input-dir",
		"image_dir":                  "image-dir",
		"output_dir":                 "output-dir",
		"archive_path":               "archive",
		"metadata_file":              "metadata",
		"manifest_file":              "manifest",
		"abstract_file":              "abstract",
		"canvas_name":                "canvas",
		"strict_axis":                "strict-axis",
		"allow_placeholder_metadata": "allow-placeholder-metadata",
		"image_tool.disabled":        "no-images",
		"ledger_path":                "ledger",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadBuildConfig(viper.GetViper())
	if err != nil {
		return err
	}
	log := newLogger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	meta, err := metadata.Load(cfg.MetadataFile)
	if err != nil {
		return err
	}
	abstract, err := readAbstract(cfg.AbstractFile)
	if err != nil {
		return err
	}

	tool := imagetool.New(cfg.ImageTool.Binary, cfg.ImageTool.ProbeTimeout)
	capability := imagetool.Unavailable
	if !cfg.ImageTool.Disabled {
		capability = tool.Probe(ctx)
	}
	if capability.Usable() {
		fmt.Fprintf(os.Stderr, "Image tool %s available, images will be processed\n", tool.Name())
	} else {
		fmt.Fprintf(os.Stderr, "Image tool %s %s, tables will have no images\n", tool.Name(), capability)
	}

	p := pipeline.FromConfig(cfg, meta, capability.Usable(), log)
	if cfg.ManifestFile != "" {
		m, err := pipeline.LoadManifest(cfg.ManifestFile)
		if err != nil {
			return err
		}
		p.Manifest = m
	}

	var runs *ledger.Ledger
	if cfg.LedgerPath != "" {
		runs, err = ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer runs.Close()
		p.RunID, err = runs.StartRun(ctx, cfg.InputDir, cfg.OutputDir)
		if err != nil {
			return err
		}
		p.Recorder = runs
	}

	sub := &types.Submission{Abstract: abstract, Links: cfg.Links}
	result, err := p.Run(ctx, sub, os.Stdout)
	if err != nil {
		finishRun(ctx, runs, p.RunID, result, ledger.StatusFailed)
		return err
	}

	w := &submission.Writer{Dir: cfg.OutputDir, Archive: cfg.ArchivePath, Logger: log}
	if capability.Usable() {
		w.Images = tool
	}
	res, err := submission.WriteWithRetry(ctx, w, sub)
	if err != nil {
		finishRun(ctx, runs, p.RunID, result, ledger.StatusFailed)
		return fmt.Errorf("writing submission: %w", err)
	}
	finishRun(ctx, runs, p.RunID, result, ledger.StatusSucceeded)

	fmt.Printf("\nGenerated files in %s:\n", cfg.OutputDir)
	for _, name := range res.Files {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("Archive: %s\n", res.Archive)
	return nil
}

func finishRun(ctx context.Context, runs *ledger.Ledger, runID string, result pipeline.BatchResult, status string) {
	if runs == nil {
		return
	}
	if err := runs.FinishRun(ctx, runID, result.Built, result.Failed, status); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}
