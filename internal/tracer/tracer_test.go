package tracer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasarlab/lenstracer/internal/cosmo"
	"github.com/quasarlab/lenstracer/internal/galaxy"
	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/profiles"
)

func sisLens(thetaE float64, opts ...galaxy.Option) *galaxy.Galaxy {
	opts = append(opts, galaxy.WithMassProfiles(profiles.NewSphericalIsothermal(grids.Coord{}, thetaE)))
	return galaxy.New("lens", opts...)
}

func sourceGalaxy(opts ...galaxy.Option) *galaxy.Galaxy {
	opts = append(opts, galaxy.WithLightProfiles(profiles.NewSersicLight(grids.Coord{}, 1.0, 0.2, 1.0, 1.0, 0.0)))
	return galaxy.New("source", opts...)
}

func TestTwoPlaneEinsteinRingTracesToCentre(t *testing.T) {
	tr, err := NewTwoPlane(
		[]*galaxy.Galaxy{sisLens(1.0)},
		[]*galaxy.Galaxy{sourceGalaxy()},
		grids.NewBundle(grids.Uniform(5, 5, 0.1)),
		nil,
	)
	require.NoError(t, err)

	// A position on the Einstein ring of an SIS traces exactly to the
	// lens centre.
	ring := []grids.Coord{
		{Y: 0, X: 1.0},
		{Y: 1.0, X: 0},
		{Y: 0, X: -1.0},
		{Y: math.Sqrt2 / 2, X: math.Sqrt2 / 2},
	}
	traced, err := tr.TracePositions(ring)
	require.NoError(t, err)
	require.Len(t, traced, 2)

	for i, c := range traced[0] {
		assert.Equal(t, ring[i], c, "plane 0 positions are the inputs")
	}
	for _, c := range traced[1] {
		assert.InDelta(t, 0.0, c.Y, 1e-12)
		assert.InDelta(t, 0.0, c.X, 1e-12)
	}
}

func TestTwoPlaneCentreIsFixedPoint(t *testing.T) {
	tr, err := NewTwoPlane(
		[]*galaxy.Galaxy{sisLens(1.6)},
		[]*galaxy.Galaxy{sourceGalaxy()},
		grids.NewBundle(grids.Uniform(5, 5, 0.1)),
		nil,
	)
	require.NoError(t, err)

	traced, err := tr.TracePositions([]grids.Coord{{}})
	require.NoError(t, err)
	assert.Equal(t, grids.Coord{}, traced[1][0], "the singular centre deflects nothing")
}

func TestTwoPlaneGeometryOnlyWithRedshifts(t *testing.T) {
	bundle := grids.NewBundle(grids.Uniform(5, 5, 0.1))
	cosmology := cosmo.Planck15()

	tr, err := NewTwoPlane(
		[]*galaxy.Galaxy{sisLens(1.0)},
		[]*galaxy.Galaxy{sourceGalaxy()},
		bundle, cosmology,
	)
	require.NoError(t, err)
	assert.Nil(t, tr.Geometry, "no redshifts, no geometry")

	tr, err = NewTwoPlane(
		[]*galaxy.Galaxy{sisLens(1.0, galaxy.WithRedshift(0.5))},
		[]*galaxy.Galaxy{sourceGalaxy(galaxy.WithRedshift(1.0))},
		bundle, cosmology,
	)
	require.NoError(t, err)
	require.NotNil(t, tr.Geometry)
	sf, err := tr.Geometry.ScalingFactor(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sf)

	_, err = NewTwoPlane(
		[]*galaxy.Galaxy{sisLens(1.0, galaxy.WithRedshift(1.0))},
		[]*galaxy.Galaxy{sourceGalaxy(galaxy.WithRedshift(0.5))},
		bundle, cosmology,
	)
	require.ErrorIs(t, err, ErrRedshiftOrder)
}

func TestMultiPlaneValidation(t *testing.T) {
	bundle := grids.NewBundle(grids.Uniform(5, 5, 0.1))
	cosmology := cosmo.Planck15()

	_, err := NewMultiPlane(nil, bundle, cosmology)
	require.ErrorIs(t, err, ErrNoPlanes)

	_, err = NewMultiPlane([]*galaxy.Galaxy{sisLens(1.0)}, bundle, cosmology)
	require.ErrorIs(t, err, ErrGeometryUndefined)

	_, err = NewMultiPlane([]*galaxy.Galaxy{sisLens(1.0, galaxy.WithRedshift(0.5))}, bundle, nil)
	require.ErrorIs(t, err, ErrGeometryUndefined)
}

func TestMultiPlaneGroupsByRedshiftAscending(t *testing.T) {
	bundle := grids.NewBundle(grids.Uniform(5, 5, 0.1))
	gals := []*galaxy.Galaxy{
		sourceGalaxy(galaxy.WithRedshift(2.0)),
		sisLens(1.0, galaxy.WithRedshift(0.5)),
		galaxy.New("companion",
			galaxy.WithRedshift(0.5),
			galaxy.WithMassProfiles(profiles.NewSphericalIsothermal(grids.Coord{Y: 0.3}, 0.2))),
		galaxy.New("perturber",
			galaxy.WithRedshift(1.0),
			galaxy.WithMassProfiles(profiles.NewSphericalIsothermal(grids.Coord{X: 0.5}, 0.1))),
	}

	tr, err := NewMultiPlane(gals, bundle, cosmo.Planck15())
	require.NoError(t, err)
	require.Len(t, tr.Planes, 3)

	assert.Equal(t, 0.5, *tr.Planes[0].Redshift)
	assert.Len(t, tr.Planes[0].Galaxies, 2)
	assert.Equal(t, 1.0, *tr.Planes[1].Redshift)
	assert.Equal(t, 2.0, *tr.Planes[2].Redshift)

	assert.NotNil(t, tr.Planes[0].Deflections)
	assert.NotNil(t, tr.Planes[1].Deflections)
	assert.Nil(t, tr.Planes[2].Deflections, "the final plane never computes deflections")
}

func TestMultiPlaneMatchesTwoPlaneForTwoRedshifts(t *testing.T) {
	bundle := grids.NewBundle(grids.Uniform(7, 7, 0.2))
	cosmology := cosmo.Planck15()
	lens := sisLens(1.3, galaxy.WithRedshift(0.5))
	source := sourceGalaxy(galaxy.WithRedshift(1.0))

	two, err := NewTwoPlane([]*galaxy.Galaxy{lens}, []*galaxy.Galaxy{source}, bundle, cosmology)
	require.NoError(t, err)
	multi, err := NewMultiPlane([]*galaxy.Galaxy{lens, source}, bundle, cosmology)
	require.NoError(t, err)

	twoImg := two.Image()
	multiImg := multi.Image()
	require.Len(t, multiImg, len(twoImg))
	for i := range twoImg {
		assert.InDelta(t, twoImg[i], multiImg[i], 1e-12)
	}

	positions := []grids.Coord{{Y: 0.7, X: -0.4}, {Y: -1.1, X: 0.2}}
	twoTraced, err := two.TracePositions(positions)
	require.NoError(t, err)
	multiTraced, err := multi.TracePositions(positions)
	require.NoError(t, err)
	for k := range twoTraced {
		for i := range twoTraced[k] {
			assert.InDelta(t, twoTraced[k][i].Y, multiTraced[k][i].Y, 1e-12)
			assert.InDelta(t, twoTraced[k][i].X, multiTraced[k][i].X, 1e-12)
		}
	}
}

func TestMultiPlaneRecurrenceFromOriginalGrid(t *testing.T) {
	// The grid of plane k is the input grid minus the scaled deflections of
	// every foreground plane, accumulated from the original input grid.
	bundle := grids.NewBundle(grids.Uniform(3, 3, 0.5))
	cosmology := cosmo.Planck15()
	gals := []*galaxy.Galaxy{
		sisLens(1.0, galaxy.WithRedshift(0.25)),
		galaxy.New("mid",
			galaxy.WithRedshift(0.5),
			galaxy.WithMassProfiles(profiles.NewSphericalIsothermal(grids.Coord{Y: 0.2, X: 0.2}, 0.4))),
		sourceGalaxy(galaxy.WithRedshift(1.0)),
	}

	tr, err := NewMultiPlane(gals, bundle, cosmology)
	require.NoError(t, err)
	require.Len(t, tr.Planes, 3)

	d0, ok := tr.Planes[0].Deflections.Field(grids.VariantImage)
	require.True(t, ok)
	d1, ok := tr.Planes[1].Deflections.Field(grids.VariantImage)
	require.True(t, ok)

	sf02, err := tr.Geometry.ScalingFactor(0, 2)
	require.NoError(t, err)
	sf12, err := tr.Geometry.ScalingFactor(1, 2)
	require.NoError(t, err)

	input := bundle.Image()
	final := tr.Planes[2].Bundle.Image()
	for i, c := range input.Coords {
		want := c.Sub(d0[i].Scale(sf02)).Sub(d1[i].Scale(sf12))
		assert.InDelta(t, want.Y, final.Coords[i].Y, 1e-12)
		assert.InDelta(t, want.X, final.Coords[i].X, 1e-12)
	}
}

func TestTracerObservablesSumDeflectingPlanes(t *testing.T) {
	bundle := grids.NewBundle(grids.Uniform(5, 5, 0.3))
	tr, err := NewTwoPlane(
		[]*galaxy.Galaxy{sisLens(1.0)},
		[]*galaxy.Galaxy{sourceGalaxy()},
		bundle, nil,
	)
	require.NoError(t, err)

	// Source-plane light must not leak into mass observables.
	kappaTracer := tr.Convergence()
	kappaImagePlane := tr.ImagePlane().Convergence()
	require.Len(t, kappaTracer, len(kappaImagePlane))
	for i := range kappaTracer {
		assert.Equal(t, kappaImagePlane[i], kappaTracer[i])
	}

	assert.Len(t, tr.DeflectionsY(), bundle.Image().Len())
	assert.Len(t, tr.DeflectionsX(), bundle.Image().Len())
	assert.Len(t, tr.Potential(), bundle.Image().Len())

	gridsOfPlanes := tr.TracedGridsOfPlanes()
	require.Len(t, gridsOfPlanes, 2)
	assert.Equal(t, bundle.Image(), gridsOfPlanes[0].Image(), "plane 0 sees the input grid")
}

func TestTracerImageSumsPlanes(t *testing.T) {
	bundle := grids.NewBundle(grids.Uniform(5, 5, 0.3))
	lensLight := profiles.NewSersicLight(grids.Coord{}, 2.0, 0.5, 2.0, 0.9, 0.0)
	tr, err := NewTwoPlane(
		[]*galaxy.Galaxy{galaxy.New("lens",
			galaxy.WithLightProfiles(lensLight),
			galaxy.WithMassProfiles(profiles.NewSphericalIsothermal(grids.Coord{}, 1.0)))},
		[]*galaxy.Galaxy{sourceGalaxy()},
		bundle, nil,
	)
	require.NoError(t, err)

	img := tr.Image()
	p0 := tr.ImagePlane().Image()
	p1 := tr.SourcePlane().Image()
	require.Len(t, img, len(p0))
	for i := range img {
		assert.InDelta(t, p0[i]+p1[i], img[i], 1e-12)
	}
}

func TestExtractProfile(t *testing.T) {
	bundle := grids.NewBundle(grids.Uniform(3, 3, 0.5))
	flux := 0.8
	src := galaxy.New("source",
		galaxy.WithRedshift(1.0),
		galaxy.WithPointSources(galaxy.PointSource{Name: "quasar", Centre: grids.Coord{Y: 0.1}, Flux: &flux}))
	tr, err := NewMultiPlane(
		[]*galaxy.Galaxy{sisLens(1.0, galaxy.WithRedshift(0.5)), src},
		bundle, cosmo.Planck15(),
	)
	require.NoError(t, err)

	ps, err := tr.ExtractProfile("quasar")
	require.NoError(t, err)
	assert.Equal(t, "quasar", ps.Name)

	idx, err := tr.ExtractPlaneIndexOfProfile("quasar")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = tr.ExtractProfile("nope")
	require.ErrorIs(t, err, ErrPointSourceNotFound)
	assert.Contains(t, err.Error(), "nope")

	_, err = tr.ExtractPlaneIndexOfProfile("nope")
	require.ErrorIs(t, err, ErrPointSourceNotFound)
}

func TestMagnificationViaHessianSIS(t *testing.T) {
	tr, err := NewTwoPlane(
		[]*galaxy.Galaxy{sisLens(1.0)},
		[]*galaxy.Galaxy{sourceGalaxy()},
		grids.NewBundle(grids.Uniform(3, 3, 0.5)),
		nil,
	)
	require.NoError(t, err)

	// SIS magnification is 1 / (1 - theta_E/r): 2 at r = 2 theta_E, -1 at
	// r = theta_E/2, and divergent approaching the Einstein ring.
	mu, err := tr.MagnificationViaHessian([]grids.Coord{
		{Y: 0, X: 2.0},
		{Y: 0.5, X: 0},
		{Y: 0, X: 1.05},
	}, 0, nil)
	require.NoError(t, err)
	require.Len(t, mu, 3)

	assert.InDelta(t, 2.0, mu[0], 1e-3)
	assert.InDelta(t, -1.0, mu[1], 1e-3)
	assert.Greater(t, math.Abs(mu[2]), 10.0, "magnification blows up near the critical curve")
}

func TestMagnificationFocusesTracedPositions(t *testing.T) {
	// Image-plane positions spanning the Einstein ring trace to a tight
	// cluster around the source: lensing focuses.
	sie := profiles.NewEllipticalIsothermal(grids.Coord{Y: 0.01, X: 0.01}, 1.6, 0.8, 80.0)
	tr, err := NewTwoPlane(
		[]*galaxy.Galaxy{galaxy.New("lens", galaxy.WithMassProfiles(sie))},
		[]*galaxy.Galaxy{sourceGalaxy()},
		grids.NewBundle(grids.Uniform(3, 3, 0.5)),
		nil,
	)
	require.NoError(t, err)

	observed := []grids.Coord{
		{Y: 1.0, X: 1.0}, {Y: 1.0, X: -1.0}, {Y: -1.0, X: 1.0}, {Y: -1.0, X: -1.0},
	}
	traced, err := tr.TracePositions(observed)
	require.NoError(t, err)

	assert.Less(t, maxSeparation(traced[1]), maxSeparation(observed))
}

func maxSeparation(coords []grids.Coord) float64 {
	var max float64
	for i := range coords {
		for j := i + 1; j < len(coords); j++ {
			d := math.Hypot(coords[i].Y-coords[j].Y, coords[i].X-coords[j].X)
			if d > max {
				max = d
			}
		}
	}
	return max
}
