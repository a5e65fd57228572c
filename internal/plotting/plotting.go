// Package plotting renders per-pixel observables and traced grids to PNG
// files with gonum/plot.
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/quasarlab/lenstracer/internal/grids"
)

// scatterColors is a small fixed palette for scatter series.
var scatterColors = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// pixelGrid adapts one per-pixel observable on a uniform grid to
// plotter.GridXYZ. Values are row-major with descending y, the grid's
// native ordering.
type pixelGrid struct {
	rows, cols int
	pixelScale float64
	values     []float64
}

func (p pixelGrid) Dims() (int, int) { return p.cols, p.rows }

func (p pixelGrid) X(c int) float64 {
	return (float64(c) - float64(p.cols-1)/2.0) * p.pixelScale
}

func (p pixelGrid) Y(r int) float64 {
	// plotter.HeatMap draws row index upward; mirror to ascending y.
	return (float64(r) - float64(p.rows-1)/2.0) * p.pixelScale
}

func (p pixelGrid) Z(c, r int) float64 {
	// values row 0 is the top of the image (largest y).
	return p.values[(p.rows-1-r)*p.cols+c]
}

// Heatmap renders a per-pixel observable as a PNG. rows*cols must match the
// value count; non-finite values are clamped to the finite range for the
// colour scale.
func Heatmap(path, title string, values []float64, rows, cols int, pixelScale float64) error {
	if rows*cols != len(values) {
		return fmt.Errorf("heatmap shape %dx%d does not match %d values", rows, cols, len(values))
	}

	clamped := clampFinite(values)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (arcsec)"
	p.Y.Label.Text = "y (arcsec)"

	hm := plotter.NewHeatMap(pixelGrid{
		rows:       rows,
		cols:       cols,
		pixelScale: pixelScale,
		values:     clamped,
	}, moreland.SmoothBlueRed().Palette(255))
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save heatmap: %w", err)
	}
	return nil
}

// clampFinite replaces NaN and infinities with the extreme finite values of
// the slice. Singular profile centres produce a handful of such pixels.
func clampFinite(values []float64) []float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min > max {
		min, max = 0, 0
	}

	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = min
		case math.IsInf(v, 1):
			out[i] = max
		case math.IsInf(v, -1):
			out[i] = min
		default:
			out[i] = v
		}
	}
	return out
}

// Scatter renders coordinate sets as a PNG scatter plot, one series per
// label. Used for traced grids and image-position overlays.
func Scatter(path, title string, series map[string][]grids.Coord) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (arcsec)"
	p.Y.Label.Text = "y (arcsec)"
	p.Legend.Top = true

	labels := make([]string, 0, len(series))
	for label := range series {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for i, label := range labels {
		coords := series[label]
		pts := make(plotter.XYs, len(coords))
		for j, c := range coords {
			pts[j] = plotter.XY{X: c.X, Y: c.Y}
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to build scatter series %q: %w", label, err)
		}
		s.GlyphStyle.Radius = vg.Points(2)
		s.GlyphStyle.Color = scatterColors[i%len(scatterColors)]
		p.Add(s)
		p.Legend.Add(label, s)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save scatter: %w", err)
	}
	return nil
}
