// Package grids provides the coordinate containers the ray-tracing engine
// works on: arc-second (y,x) coordinate grids, deflection vector fields, and
// bundles of named grid variants that are transformed together.
package grids

import (
	"fmt"
)

// Coord is a (y,x) arc-second coordinate. The (y,x) ordering matches the
// row-major pixel convention of the imaging data the grids are built from.
type Coord struct {
	Y float64
	X float64
}

// Sub returns c - other.
func (c Coord) Sub(other Coord) Coord {
	return Coord{Y: c.Y - other.Y, X: c.X - other.X}
}

// Add returns c + other.
func (c Coord) Add(other Coord) Coord {
	return Coord{Y: c.Y + other.Y, X: c.X + other.X}
}

// Scale returns c scaled by f.
func (c Coord) Scale(f float64) Coord {
	return Coord{Y: c.Y * f, X: c.X * f}
}

// Grid is an ordered sequence of coordinates sharing one pixel scale.
// SubFactor records the sub-sampling factor for sub-grids; it is 1 for
// regular grids.
type Grid struct {
	Coords     []Coord
	PixelScale float64
	SubFactor  int
}

// Len returns the number of coordinates in the grid.
func (g Grid) Len() int { return len(g.Coords) }

// Uniform builds a centred regular grid of rows x cols pixels at the given
// pixel scale, ordered top-left to bottom-right (descending y, ascending x).
func Uniform(rows, cols int, pixelScale float64) Grid {
	coords := make([]Coord, 0, rows*cols)
	yTop := float64(rows-1) / 2.0 * pixelScale
	xLeft := -float64(cols-1) / 2.0 * pixelScale
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			coords = append(coords, Coord{
				Y: yTop - float64(r)*pixelScale,
				X: xLeft + float64(c)*pixelScale,
			})
		}
	}
	return Grid{Coords: coords, PixelScale: pixelScale, SubFactor: 1}
}

// UniformSub builds the sub-grid of a centred regular grid: each pixel is
// split into subFactor x subFactor sub-pixels evaluated at their centres.
// Sub-coordinates of one pixel are contiguous, so binning back to the image
// grid is a stride-subFactor^2 mean.
func UniformSub(rows, cols int, pixelScale float64, subFactor int) Grid {
	if subFactor < 1 {
		subFactor = 1
	}
	subScale := pixelScale / float64(subFactor)
	coords := make([]Coord, 0, rows*cols*subFactor*subFactor)
	yTop := float64(rows-1) / 2.0 * pixelScale
	xLeft := -float64(cols-1) / 2.0 * pixelScale
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			// Pixel centre, then offsets of each sub-pixel centre.
			py := yTop - float64(r)*pixelScale
			px := xLeft + float64(c)*pixelScale
			for sr := 0; sr < subFactor; sr++ {
				for sc := 0; sc < subFactor; sc++ {
					coords = append(coords, Coord{
						Y: py + pixelScale/2.0 - (float64(sr)+0.5)*subScale,
						X: px - pixelScale/2.0 + (float64(sc)+0.5)*subScale,
					})
				}
			}
		}
	}
	return Grid{Coords: coords, PixelScale: pixelScale, SubFactor: subFactor}
}

// VectorField is a per-coordinate (y,x) vector field shaped like a Grid,
// typically holding deflection angles.
type VectorField []Coord

// Scaled returns the field with every vector multiplied by f.
func (v VectorField) Scaled(f float64) VectorField {
	out := make(VectorField, len(v))
	for i, d := range v {
		out[i] = d.Scale(f)
	}
	return out
}

// AddField returns the elementwise sum of two fields of equal length.
func (v VectorField) AddField(other VectorField) (VectorField, error) {
	if len(v) != len(other) {
		return nil, fmt.Errorf("vector field length mismatch: %d vs %d", len(v), len(other))
	}
	out := make(VectorField, len(v))
	for i := range v {
		out[i] = v[i].Add(other[i])
	}
	return out, nil
}

// SubtractField returns the grid with the vector field subtracted from each
// coordinate: the lens equation step.
func (g Grid) SubtractField(field VectorField) (Grid, error) {
	if len(field) != len(g.Coords) {
		return Grid{}, fmt.Errorf("field length %d does not match grid length %d", len(field), len(g.Coords))
	}
	coords := make([]Coord, len(g.Coords))
	for i, c := range g.Coords {
		coords[i] = c.Sub(field[i])
	}
	return Grid{Coords: coords, PixelScale: g.PixelScale, SubFactor: g.SubFactor}, nil
}

// BinSubToImage reduces a per-sub-pixel value slice to per-image-pixel values
// by averaging each pixel's subFactor^2 contiguous sub-values.
func (g Grid) BinSubToImage(subValues []float64) ([]float64, error) {
	n := g.SubFactor * g.SubFactor
	if n == 0 || len(subValues)%n != 0 {
		return nil, fmt.Errorf("cannot bin %d sub-values with sub-factor %d", len(subValues), g.SubFactor)
	}
	out := make([]float64, len(subValues)/n)
	for i := range out {
		var sum float64
		for j := 0; j < n; j++ {
			sum += subValues[i*n+j]
		}
		out[i] = sum / float64(n)
	}
	return out, nil
}
