package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/swu-binder/internal/export"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/search"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find cards by number or name across every set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			a.loadAll(ctx)

			hits := a.sess.Search(ctx, strings.Join(args, " "), opts.cfg.App.DefaultSet)
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, h := range hits {
				fmt.Fprintf(tw, "%s\t#%d\t%s\t%s\t%s\n", h.SetKey, h.BaseNumber, suggestionName(h), h.Type, h.Kind)
			}
			return tw.Flush()
		},
	}
}

func suggestionName(s search.Suggestion) string {
	if s.Subtitle == "" {
		return s.Name
	}
	return s.Name + " - " + s.Subtitle
}

func newLocateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "locate [set] <number>",
		Short: "Show where a card number sits in the binder",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			setArg, numArg := "", args[0]
			if len(args) == 2 {
				setArg, numArg = args[0], args[1]
			}
			setKey, err := a.setKey(setArg)
			if err != nil {
				return err
			}
			number, err := strconv.Atoi(strings.TrimLeft(numArg, "#"))
			if err != nil {
				return fmt.Errorf("invalid card number %q", numArg)
			}

			loc, err := a.sess.Locate(cmd.Context(), setKey, number)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			c := loc.Cursor
			fmt.Fprintf(out, "%s #%d  %s\n", loc.SetKey, loc.Card.Number, loc.Card.DisplayName())
			fmt.Fprintf(out, "Page %d, row %d, column %d (spread %d, column %d)\n",
				c.Layout.Page, c.Layout.Row, c.Layout.Column, c.Spread.Spread, c.Spread.Column)
			if !loc.IsBase {
				fmt.Fprintf(out, "Alt printing of #%d\n", loc.Base.Number)
			}
			if len(loc.Printings) > 1 {
				fmt.Fprintf(out, "Printings: %s\n", joinInts(loc.Printings))
			}
			fmt.Fprintf(out, "Owned: %d/%d\n", loc.Quantity, loc.Quota)
			return nil
		},
	}
}

func addFilterFlags(cmd *cobra.Command, f *ledger.Filter) {
	cmd.Flags().StringVar(&f.Rarity, "rarity", "", "only cards of this rarity (Special groups the special rarities)")
	cmd.Flags().StringVar(&f.Type, "type", "", "only cards of this type")
	cmd.Flags().StringVar(&f.Aspect, "aspect", "", "only cards with this aspect")
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var filter ledger.Filter
	cmd := &cobra.Command{
		Use:   "stats [set...]",
		Short: "Show completion for one or more sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				s, err := a.setKey("")
				if err != nil {
					return err
				}
				args = []string{s}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "Set\tComplete\tIncomplete\tMissing\tTotal\tOwned\tDone\t")
			for _, setKey := range args {
				st, err := a.sess.Ledger.CompletionStats(cmd.Context(), setKey, filter)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s%%\t\n", st.SetKey, st.Complete, st.Incomplete,
					st.Missing, st.Total, humanize.Comma(int64(st.Owned)), humanize.FtoaWithDigits(st.Percent, 1))
			}
			return tw.Flush()
		},
	}
	addFilterFlags(cmd, &filter)
	return cmd
}

func newMissingCmd(opts *rootOptions) *cobra.Command {
	var (
		filter ledger.Filter
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "missing [set...]",
		Short: "List copies still needed to complete sets",
		Long:  "Lists every base card below its quota. --format tcg prints a purchase list for mass-entry tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				s, err := a.setKey("")
				if err != nil {
					return err
				}
				args = []string{s}
			}

			reports := make([]ledger.MissingReport, 0, len(args))
			for _, setKey := range args {
				r, err := a.sess.Ledger.MissingList(cmd.Context(), setKey, filter)
				if err != nil {
					return err
				}
				reports = append(reports, r)
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer file.Close()
				out = file
			}

			switch f {
			case export.FormatTCG:
				if err := export.WriteTCGList(out, reports...); err != nil {
					return err
				}
			case export.FormatCSV:
				var rows []ledger.MissingRow
				for _, r := range reports {
					rows = append(rows, r.Rows...)
				}
				if err := export.Write(out, f, rows, false); err != nil {
					return err
				}
			default:
				if output == "" {
					printMissing(out, reports)
					return nil
				}
				if err := export.Write(out, f, reports, true); err != nil {
					return err
				}
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			}
			return nil
		},
	}
	addFilterFlags(cmd, &filter)
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "output format: json, csv, or tcg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

// printMissing writes a human-readable table per set.
func printMissing(w io.Writer, reports []ledger.MissingReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	var needed int
	var cost float64
	for _, r := range reports {
		fmt.Fprintf(tw, "%s: %d base cards short, %s copies, $%s\n", r.SetKey, len(r.Rows),
			humanize.Comma(int64(r.TotalNeeded)), humanize.CommafWithDigits(r.TotalCost, 2))
		for _, row := range r.Rows {
			fmt.Fprintf(tw, "  #%d\t%s\t%s\t%d/%d\tneed %d\n", row.BaseNumber, row.DisplayName(), row.Rarity, row.Have, row.Quota, row.Needed)
		}
		needed += r.TotalNeeded
		cost += r.TotalCost
	}
	if len(reports) > 1 {
		fmt.Fprintf(tw, "Total: %s copies, $%s\n", humanize.Comma(int64(needed)), humanize.CommafWithDigits(cost, 2))
	}
	_ = tw.Flush()
}

func newBulkCmd(opts *rootOptions) *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "bulk <set> <add|addMax|remove|removeAll> [target]",
		Short: "Apply one action to a group of cards",
		Long:  `Target is "all" (the default), a rarity, "Special", or a card type.`,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := ledger.ParseAction(args[1])
			if err != nil {
				return err
			}
			target := ledger.TargetAll
			if len(args) == 3 {
				target = args[2]
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.sess.Ledger.BulkApply(cmd.Context(), args[0], action, target, qty)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cards matched %q, %d changed\n", res.SetKey, res.Selected, target, res.Changed)
			return nil
		},
	}
	cmd.Flags().IntVarP(&qty, "quantity", "n", 1, "copies to add or remove per card")
	return cmd
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = "#" + strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
