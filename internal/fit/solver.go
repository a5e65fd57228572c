package fit

import (
	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/tracer"
)

// PositionsSolver finds the image-plane positions that a tracer maps onto a
// given coordinate of an upper plane: the multiple images of one source.
type PositionsSolver interface {
	Solve(tr *tracer.Tracer, sourcePlaneCoord grids.Coord, upperPlaneIndex int) ([]grids.Coord, error)
}

// GridSearchSolver locates image positions by scanning a square image-plane
// grid for local minima of the source-plane residual |beta(theta) - beta*|
// and refining each minimum on progressively finer grids.
type GridSearchSolver struct {
	// Extent is the half-width of the scanned square in arc seconds.
	Extent float64

	// Steps is the number of grid points per side of the coarse scan.
	Steps int

	// Refinements is how many times each local minimum is re-scanned on a
	// grid shrunk to one coarse cell around it.
	Refinements int

	// Tolerance is the largest refined residual accepted as a solution.
	// A singular mass centre is a local minimum of the residual that never
	// refines to zero; the tolerance rejects it.
	Tolerance float64
}

// NewGridSearchSolver returns a solver with sane defaults for the given
// extent: a 100-per-side coarse scan and 8 refinement passes resolve
// positions to roughly extent * 1e-4 arc seconds.
func NewGridSearchSolver(extent float64) *GridSearchSolver {
	return &GridSearchSolver{Extent: extent, Steps: 100, Refinements: 8, Tolerance: extent / 100}
}

// Solve scans for the multiple images of sourcePlaneCoord.
func (s *GridSearchSolver) Solve(tr *tracer.Tracer, sourcePlaneCoord grids.Coord, upperPlaneIndex int) ([]grids.Coord, error) {
	steps := s.Steps
	if steps < 3 {
		steps = 3
	}

	residuals, coords, err := s.scan(tr, sourcePlaneCoord, upperPlaneIndex, grids.Coord{}, s.Extent, steps)
	if err != nil {
		return nil, err
	}

	cell := 2 * s.Extent / float64(steps-1)
	minima := localMinima(residuals, coords, steps)

	var out []grids.Coord
	for _, m := range minima {
		refined := m
		halfWidth := cell
		var residual float64
		for r := 0; r < s.Refinements; r++ {
			res, crd, err := s.scan(tr, sourcePlaneCoord, upperPlaneIndex, refined, halfWidth, steps)
			if err != nil {
				return nil, err
			}
			best := 0
			for i, v := range res {
				if v < res[best] {
					best = i
				}
			}
			refined = crd[best]
			residual = res[best]
			halfWidth = 2 * halfWidth / float64(steps-1)
		}
		if s.Tolerance > 0 && residual > s.Tolerance {
			continue
		}
		out = append(out, refined)
	}
	return dedupe(out, cell/2), nil
}

// scan evaluates the source-plane residual on a (steps x steps) grid of
// half-width extent around centre, row-major with descending y.
func (s *GridSearchSolver) scan(tr *tracer.Tracer, target grids.Coord, upperPlaneIndex int, centre grids.Coord, extent float64, steps int) ([]float64, []grids.Coord, error) {
	coords := make([]grids.Coord, 0, steps*steps)
	step := 2 * extent / float64(steps-1)
	for row := 0; row < steps; row++ {
		y := centre.Y + extent - float64(row)*step
		for col := 0; col < steps; col++ {
			x := centre.X - extent + float64(col)*step
			coords = append(coords, grids.Coord{Y: y, X: x})
		}
	}

	traced, err := tr.TracePositions(coords)
	if err != nil {
		return nil, nil, err
	}
	upper := traced[upperPlaneIndex]

	residuals := make([]float64, len(coords))
	for i := range coords {
		residuals[i] = separation(upper[i], target)
	}
	return residuals, coords, nil
}

// localMinima returns the coordinates of every grid cell whose residual is
// strictly below all of its in-bounds neighbours.
func localMinima(residuals []float64, coords []grids.Coord, steps int) []grids.Coord {
	var out []grids.Coord
	for row := 0; row < steps; row++ {
		for col := 0; col < steps; col++ {
			v := residuals[row*steps+col]
			isMin := true
			for dr := -1; dr <= 1 && isMin; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					r, c := row+dr, col+dc
					if r < 0 || r >= steps || c < 0 || c >= steps {
						continue
					}
					if residuals[r*steps+c] <= v {
						isMin = false
						break
					}
				}
			}
			if isMin {
				out = append(out, coords[row*steps+col])
			}
		}
	}
	return out
}

// dedupe merges refined minima closer together than minSeparation, which a
// coarse scan can produce around one true image.
func dedupe(coords []grids.Coord, minSeparation float64) []grids.Coord {
	var out []grids.Coord
	for _, c := range coords {
		keep := true
		for _, existing := range out {
			if separation(c, existing) < minSeparation {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}
