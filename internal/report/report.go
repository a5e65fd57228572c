// Package report renders sweep results as a standalone HTML page with
// go-echarts: a line chart of Einstein radius against max separation and a
// scatter of the traced source-plane positions of the best model.
package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/resultsdb"
)

// SweepReport collects everything one sweep report page shows.
type SweepReport struct {
	// Title heads the page, typically the scene path.
	Title string

	// Results in ascending Einstein-radius order.
	Results []resultsdb.SweepResult

	// BestSourcePositions are the traced source-plane positions of the
	// best-scoring model, optional.
	BestSourcePositions []grids.Coord
}

// WriteHTML renders the report page to path.
func (r *SweepReport) WriteHTML(path string) error {
	page := components.NewPage()
	page.PageTitle = "Einstein radius sweep"

	page.AddCharts(r.separationChart())
	if len(r.BestSourcePositions) > 0 {
		page.AddCharts(r.positionsChart())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// separationChart plots max separation against swept Einstein radius. A
// well-constrained fit shows a single minimum at the true radius.
func (r *SweepReport) separationChart() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Einstein radius sweep",
			Subtitle: r.Title,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Einstein radius (arcsec)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "max separation (arcsec)"}),
	)

	xs := make([]string, 0, len(r.Results))
	seps := make([]opts.LineData, 0, len(r.Results))
	for _, res := range r.Results {
		xs = append(xs, fmt.Sprintf("%.3f", res.EinsteinRadius))
		value := res.MaxSeparation
		if !res.Valid {
			// Invalid models keep an unfavourable score so the sweep
			// line shows where sampling failed.
			value = 0
		}
		seps = append(seps, opts.LineData{Value: value})
	}

	line.SetXAxis(xs)
	line.AddSeries("max separation", seps,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))
	return line
}

// positionsChart scatters the best model's traced source-plane positions: a
// tight cluster is the visual signature of a good fit.
func (r *SweepReport) positionsChart() *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "700px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Traced source-plane positions (best model)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (arcsec)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (arcsec)"}),
	)

	data := make([]opts.ScatterData, 0, len(r.BestSourcePositions))
	for _, c := range r.BestSourcePositions {
		data = append(data, opts.ScatterData{Value: []interface{}{c.X, c.Y}})
	}
	scatter.AddSeries("source positions", data,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter
}
