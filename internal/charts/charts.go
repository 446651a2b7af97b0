// Package charts renders completion charts as standalone HTML pages.
package charts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title    string
	Subtitle string
	Width    string // e.g. "900px"
	Height   string
	Theme    string
	// Colors for the complete, incomplete, and missing series, in that order.
	Colors []string
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Title:  "Set completion",
		Width:  "900px",
		Height: "500px",
		Theme:  "light",
		Colors: []string{"#3BA272", "#FAC858", "#EE6666"},
	}
}

// CompletionChart builds a stacked bar chart with one bar per set,
// split into complete, incomplete, and missing base cards.
func CompletionChart(stats []ledger.Stats, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
		charts.WithColorsOpts(opts.Colors(config.Colors)),
	)

	labels := make([]string, len(stats))
	complete := make([]opts.BarData, len(stats))
	incomplete := make([]opts.BarData, len(stats))
	missing := make([]opts.BarData, len(stats))
	for i, s := range stats {
		labels[i] = fmt.Sprintf("%s (%.0f%%)", s.SetKey, s.Percent)
		complete[i] = opts.BarData{Value: s.Complete}
		incomplete[i] = opts.BarData{Value: s.Incomplete}
		missing[i] = opts.BarData{Value: s.Missing}
	}

	stack := charts.WithBarChartOpts(opts.BarChart{Stack: "cards"})
	bar.SetXAxis(labels).
		AddSeries("Complete", complete, stack).
		AddSeries("Incomplete", incomplete, stack).
		AddSeries("Missing", missing, stack)
	return bar
}

// RenderCompletion writes the completion chart as HTML to w.
func RenderCompletion(w io.Writer, stats []ledger.Stats, config ChartConfig) error {
	if len(stats) == 0 {
		return fmt.Errorf("no sets to chart")
	}
	if err := CompletionChart(stats, config).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderCompletionFile writes the completion chart to an HTML file.
func RenderCompletionFile(path string, stats []ledger.Stats, config ChartConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	return RenderCompletion(f, stats, config)
}
