package fit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasarlab/lenstracer/internal/galaxy"
	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/profiles"
	"github.com/quasarlab/lenstracer/internal/tracer"
)

func sisTracer(t *testing.T, thetaE float64) *tracer.Tracer {
	t.Helper()
	return tracerWithLens(t, profiles.NewSphericalIsothermal(grids.Coord{}, thetaE))
}

func tracerWithLens(t *testing.T, mass galaxy.MassProfile) *tracer.Tracer {
	t.Helper()
	flux := 2.0
	tr, err := tracer.NewTwoPlane(
		[]*galaxy.Galaxy{galaxy.New("lens", galaxy.WithMassProfiles(mass))},
		[]*galaxy.Galaxy{galaxy.New("source", galaxy.WithPointSources(
			galaxy.PointSource{Name: "quasar", Centre: grids.Coord{}, Flux: &flux},
		))},
		grids.NewBundle(grids.Uniform(3, 3, 0.5)),
		nil,
	)
	require.NoError(t, err)
	return tr
}

var einsteinRingPositions = []grids.Coord{
	{Y: 0, X: 1.0},
	{Y: 1.0, X: 0},
	{Y: 0, X: -1.0},
	{Y: -1.0, X: 0},
}

func TestFitPositionsMaxSeparationPerfectModel(t *testing.T) {
	tr := sisTracer(t, 1.0)
	f, err := NewFitPositionsMaxSeparation("", einsteinRingPositions, 0.05, tr)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, f.MaxSeparation(), 1e-8)
	assert.True(t, f.MaxSeparationWithinThreshold(1e-6))
	assert.InDelta(t, 0.0, f.ChiSquared(), 1e-8)
	assert.InDelta(t, 0.0, f.FigureOfMerit(), 1e-8)

	seps := f.FurthestSeparations()
	require.Len(t, seps, 4)
	for _, s := range seps {
		assert.InDelta(t, 0.0, s, 1e-8)
	}
}

func TestFitPositionsMaxSeparationWrongModel(t *testing.T) {
	// An SIS with the wrong Einstein radius spreads ring positions over a
	// circle of radius |thetaE_true - thetaE_model|.
	tr := sisTracer(t, 0.7)
	f, err := NewFitPositionsMaxSeparation("", einsteinRingPositions, 0.05, tr)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, f.MaxSeparation(), 1e-8)
	assert.False(t, f.MaxSeparationWithinThreshold(0.5))
	assert.InDelta(t, 144.0, f.ChiSquared(), 1e-6)
	assert.InDelta(t, -72.0, f.FigureOfMerit(), 1e-6)
}

func TestFitPositionsMaxSeparationSweepIsMonotonicAroundTruth(t *testing.T) {
	// Positions sit on the Einstein ring of thetaE = 1. The max separation
	// must fall monotonically toward the true radius from either side.
	maxSepFor := func(thetaE float64) float64 {
		f, err := NewFitPositionsMaxSeparation("", einsteinRingPositions, 0.05, sisTracer(t, thetaE))
		require.NoError(t, err)
		return f.MaxSeparation()
	}

	assert.Greater(t, maxSepFor(0.6), maxSepFor(0.8))
	assert.Greater(t, maxSepFor(0.8), maxSepFor(0.95))
	assert.Greater(t, maxSepFor(1.4), maxSepFor(1.2))
	assert.Greater(t, maxSepFor(1.2), maxSepFor(1.05))
	assert.Less(t, maxSepFor(1.0), 1e-8)
}

func TestFitPositionsMaxSeparationSIEScenario(t *testing.T) {
	sie := profiles.NewEllipticalIsothermal(grids.Coord{Y: 0.01, X: 0.01}, 1.6, 0.8, 80.0)
	tr := tracerWithLens(t, sie)

	observed := []grids.Coord{
		{Y: 1.0, X: 1.0}, {Y: 1.0, X: -1.0}, {Y: -1.0, X: 1.0}, {Y: -1.0, X: -1.0},
	}
	f, err := NewFitPositionsMaxSeparation("quasar", observed, 0.05, tr)
	require.NoError(t, err)

	assert.True(t, f.MaxSeparationWithinThreshold(0.7),
		"positions near the Einstein ring must focus to well under their image-plane spread")
	assert.False(t, f.MaxSeparationWithinThreshold(0.01))
}

func TestFitPositionsMaxSeparationValidation(t *testing.T) {
	tr := sisTracer(t, 1.0)

	_, err := NewFitPositionsMaxSeparation("", nil, 0.05, tr)
	require.ErrorIs(t, err, ErrNoPositions)

	_, err = NewFitPositionsMaxSeparation("", einsteinRingPositions, 0, tr)
	require.ErrorIs(t, err, ErrNoiseNotPositive)

	_, err = NewFitPositionsMaxSeparation("missing", einsteinRingPositions, 0.05, tr)
	require.ErrorIs(t, err, tracer.ErrPointSourceNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestFitPositionsImagePlane(t *testing.T) {
	// SIS with a source offset by 0.1: two images at x = 1.1 and x = -0.9.
	flux := 2.0
	tr, err := tracer.NewTwoPlane(
		[]*galaxy.Galaxy{galaxy.New("lens",
			galaxy.WithMassProfiles(profiles.NewSphericalIsothermal(grids.Coord{}, 1.0)))},
		[]*galaxy.Galaxy{galaxy.New("source", galaxy.WithPointSources(
			galaxy.PointSource{Name: "quasar", Centre: grids.Coord{X: 0.1}, Flux: &flux},
		))},
		grids.NewBundle(grids.Uniform(3, 3, 0.5)),
		nil,
	)
	require.NoError(t, err)

	observed := []grids.Coord{{X: 1.1}, {X: -0.9}}
	f, err := NewFitPositionsImagePlane("quasar", observed, 0.05, tr, NewGridSearchSolver(2.0))
	require.NoError(t, err)

	residuals := f.ResidualDistances()
	require.Len(t, residuals, 2)
	for _, r := range residuals {
		assert.Less(t, r, 1e-3)
	}
	assert.Less(t, f.ChiSquared(), 1e-2)
	assert.Greater(t, f.FigureOfMerit(), -1e-2)
}

func TestFitPositionsImagePlaneMissingProfile(t *testing.T) {
	tr := sisTracer(t, 1.0)
	_, err := NewFitPositionsImagePlane("missing", einsteinRingPositions, 0.05, tr, NewGridSearchSolver(2.0))
	require.ErrorIs(t, err, tracer.ErrPointSourceNotFound)
}
