// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/hepdata-builder/internal/imagetool"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether the image tool can be used",
	Long: `Probe runs the configured image tool once with "-version" and reports
available, unavailable, or unknown. Build only processes images when the
result is available.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		tool := imagetool.New(viper.GetString("image_tool.binary"), viper.GetDuration("image_tool.probe_timeout"))
		fmt.Printf("%s: %s\n", tool.Name(), tool.Probe(ctx))
		return nil
	},
}

func init() {
	probeCmd.Flags().String("binary", imagetool.DefaultBinary, "image tool executable")
	probeCmd.Flags().Duration("timeout", imagetool.DefaultProbeTimeout, "probe timeout")
	_ = viper.BindPFlag("image_tool.binary", probeCmd.Flags().Lookup("binary"))
	_ = viper.BindPFlag("image_tool.probe_timeout", probeCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(probeCmd)
}
