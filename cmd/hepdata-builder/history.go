// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/hepdata-builder/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past builds recorded in the run ledger",
	Long: `History lists the builds recorded in the SQLite run ledger, newest
first. With a run ID it prints the outcome of every figure of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("ledger", "", "SQLite run ledger")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	_ = viper.BindPFlag("ledger_path", historyCmd.Flags().Lookup("ledger"))

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("ledger_path")
	if path == "" {
		return fmt.Errorf("no ledger configured; set --ledger or ledger_path")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer runs.Close()

	if len(args) == 1 {
		return printFigures(ctx, os.Stdout, runs, args[0])
	}
	limit, _ := cmd.Flags().GetInt("limit")
	return printRuns(ctx, os.Stdout, runs, limit)
}

func printRuns(ctx context.Context, w io.Writer, runs *ledger.Ledger, limit int) error {
	list, err := runs.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range list {
		fmt.Fprintf(w, "%s  %s  %-9s  %d built, %d failed  %s -> %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Succeeded, r.Failed, r.InputDir, r.OutputDir)
	}
	return nil
}

func printFigures(ctx context.Context, w io.Writer, runs *ledger.Ledger, runID string) error {
	figs, err := runs.Figures(ctx, runID)
	if err != nil {
		return err
	}
	for _, f := range figs {
		line := fmt.Sprintf("%-9s %s", f.Status+":", f.Name)
		if f.Error != "" {
			line += fmt.Sprintf(" (%s)", f.Error)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
