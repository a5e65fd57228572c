package fit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasarlab/lenstracer/internal/grids"
)

func TestGridSearchSolverFindsSISImagePair(t *testing.T) {
	tr := sisTracer(t, 1.0)
	solver := NewGridSearchSolver(2.0)

	// Source at beta = (0, 0.1): images at (0, 1.1) and (0, -0.9).
	solutions, err := solver.Solve(tr, grids.Coord{X: 0.1}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, solutions)

	wantNear := func(want grids.Coord) {
		t.Helper()
		best := math.Inf(1)
		for _, s := range solutions {
			if d := separation(s, want); d < best {
				best = d
			}
		}
		assert.Lessf(t, best, 1e-3, "no solution near (%v, %v)", want.Y, want.X)
	}
	wantNear(grids.Coord{X: 1.1})
	wantNear(grids.Coord{X: -0.9})

	// The singular lens centre is a local minimum of the residual but not
	// a solution; the tolerance must reject it.
	for _, s := range solutions {
		assert.Greater(t, separation(s, grids.Coord{}), 0.1)
	}
}

func TestGridSearchSolverSolutionsLandOnSource(t *testing.T) {
	tr := sisTracer(t, 1.0)
	solver := NewGridSearchSolver(2.0)
	target := grids.Coord{Y: 0.15, X: -0.05}

	solutions, err := solver.Solve(tr, target, 1)
	require.NoError(t, err)
	require.NotEmpty(t, solutions)

	traced, err := tr.TracePositions(solutions)
	require.NoError(t, err)
	for _, beta := range traced[1] {
		assert.InDelta(t, target.Y, beta.Y, 1e-3)
		assert.InDelta(t, target.X, beta.X, 1e-3)
	}
}
