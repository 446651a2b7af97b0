package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/swu-binder/internal/charts"
	"github.com/ramonehamilton/swu-binder/internal/export"
	"github.com/ramonehamilton/swu-binder/internal/importer"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import a snapshot or a third-party collection CSV",
		Long: `Imports ledger snapshots (.json) and collection CSVs with either
Set, CardNumber, Count columns or Set, Base card id, Normal, ... columns.
Alt-art numbers count toward their base card. Quantities are capped at the quota.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := ledger.ParseImportMode(mode)
			if err != nil {
				return err
			}
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				parsed, err := importer.Parse(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				res, err := a.sess.Ledger.Import(cmd.Context(), parsed.Data, m)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				fmt.Fprintf(out, "%s (%s): %s rows applied to %s, %d skipped\n",
					filepath.Base(path), parsed.Format, humanize.Comma(int64(res.Applied)),
					strings.Join(res.Sets, ", "), res.Skipped+parsed.Skipped)
				if len(res.UnknownSets) > 0 {
					fmt.Fprintf(out, "  unknown sets: %s\n", strings.Join(res.UnknownSets, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(ledger.ModeMerge), "merge (add to owned copies) or replace (overwrite imported sets)")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		output    string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of every set's ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.sess.Ledger.Export(cmd.Context())
			if err != nil {
				return err
			}
			if output == "-" {
				data, err := ledger.MarshalSnapshot(snap)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if output == "" {
				output = export.GenerateFilename("ledger", export.FormatJSON, time.Now())
			}
			if err := export.SaveSnapshot(output, snap, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sets to %s\n", len(snap.Sets), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("-" for stdout; default ledger_<timestamp>.json)`)
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")
	return cmd
}

func newChartCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "chart [set...]",
		Short: "Render an HTML completion chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if len(args) == 0 {
				a.loadAll(ctx)
				for _, cat := range a.sess.Catalogs.Loaded() {
					args = append(args, cat.SetKey)
				}
			}

			stats := make([]ledger.Stats, 0, len(args))
			for _, setKey := range args {
				s, err := a.sess.Ledger.CompletionStats(ctx, setKey, ledger.Filter{})
				if err != nil {
					return err
				}
				stats = append(stats, s)
			}

			if err := charts.RenderCompletionFile(output, stats, charts.DefaultChartConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "completion.html", "output HTML file")
	return cmd
}
