// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the hepdata-builder CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/hepdata-builder/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the hepdata-builder CLI.
var rootCmd = &cobra.Command{
	Use:   "hepdata-builder",
	Short: "Build HEPData submissions from plot containers and prior records",
	Long: `hepdata-builder converts the plot objects of published figures into
HEPData tables. Each figure container in the input directory is read, its
series are classified and merged onto one shared axis, and the resulting
tables are written as a submission directory and archive.

Subcommands: build runs the conversion, probe checks the image tool, and
history lists past runs recorded in the ledger.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./hepdata-builder.yaml or ~/.config/hepdata-builder/hepdata-builder.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error, or disabled")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("hepdata-builder")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "hepdata-builder"))
		}
	}

	viper.SetEnvPrefix("HEPDATA_BUILDER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the run logger from the log.* configuration keys.
func newLogger() logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.Level(viper.GetString("log.level"))
	cfg.JSON = viper.GetBool("log.json")
	return logger.New(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
