package galaxy

import (
	"math"
	"testing"

	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/profiles"
)

func TestCapabilityFlags(t *testing.T) {
	t.Run("bare galaxy has no capabilities", func(t *testing.T) {
		g := New("empty")
		if g.HasLightProfile || g.HasMassProfile || g.HasPointSource ||
			g.HasPixelization || g.HasRegularization {
			t.Errorf("bare galaxy reports capabilities: %+v", g)
		}
		if g.Redshift != nil {
			t.Error("bare galaxy should have no redshift")
		}
	})

	t.Run("flags follow construction options", func(t *testing.T) {
		g := New("lens",
			WithRedshift(0.5),
			WithMassProfiles(profiles.NewSphericalIsothermal(grids.Coord{}, 1.0)),
			WithPixelization("rectangular"),
		)
		if !g.HasMassProfile || g.HasLightProfile {
			t.Errorf("unexpected capability flags: %+v", g)
		}
		if !g.HasPixelization || g.HasRegularization {
			t.Errorf("unexpected pixelization flags: %+v", g)
		}
		if g.Redshift == nil || *g.Redshift != 0.5 {
			t.Errorf("redshift = %v, want 0.5", g.Redshift)
		}
	})
}

func TestGalaxyAggregation(t *testing.T) {
	c := grids.Coord{Y: 0, X: 1}

	t.Run("no mass profiles contribute zero vector", func(t *testing.T) {
		g := New("light-only",
			WithLightProfiles(profiles.NewSersicLight(grids.Coord{}, 1, 1, 1, 1, 0)))
		if d := g.Deflection(c); d != (grids.Coord{}) {
			t.Errorf("deflection = %+v, want zero", d)
		}
		if k := g.Convergence(c); k != 0 {
			t.Errorf("convergence = %v, want 0", k)
		}
	})

	t.Run("profiles superpose", func(t *testing.T) {
		sis1 := profiles.NewSphericalIsothermal(grids.Coord{}, 1.0)
		sis2 := profiles.NewSphericalIsothermal(grids.Coord{}, 0.5)
		g := New("double", WithMassProfiles(sis1, sis2))

		d := g.Deflection(c)
		want := sis1.Deflection(c).Add(sis2.Deflection(c))
		if math.Abs(d.Y-want.Y) > 1e-12 || math.Abs(d.X-want.X) > 1e-12 {
			t.Errorf("deflection = %+v, want %+v", d, want)
		}
		if got := g.EinsteinRadius(); math.Abs(got-1.5) > 1e-12 {
			t.Errorf("EinsteinRadius() = %v, want 1.5", got)
		}
	})

	t.Run("light superposition", func(t *testing.T) {
		a := profiles.NewSersicLight(grids.Coord{}, 1.0, 1.0, 1.0, 1.0, 0)
		b := profiles.NewSersicLight(grids.Coord{Y: 1, X: 1}, 2.0, 0.5, 4.0, 1.0, 0)
		combined := New("ab", WithLightProfiles(a, b))
		onlyA := New("a", WithLightProfiles(a))
		onlyB := New("b", WithLightProfiles(b))

		got := combined.Intensity(c)
		want := onlyA.Intensity(c) + onlyB.Intensity(c)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("combined intensity = %v, want %v", got, want)
		}
	})
}

func TestPointSourceByName(t *testing.T) {
	flux := 0.8
	g := New("quasar-host",
		WithPointSources(
			PointSource{Name: "point_0", Centre: grids.Coord{Y: 0.1, X: 0.2}},
			PointSource{Name: "point_1", Centre: grids.Coord{}, Flux: &flux},
		))

	ps, ok := g.PointSourceByName("point_1")
	if !ok {
		t.Fatal("point_1 not found")
	}
	if ps.Flux == nil || *ps.Flux != 0.8 {
		t.Errorf("flux = %v, want 0.8", ps.Flux)
	}

	if _, ok := g.PointSourceByName("missing"); ok {
		t.Error("found a point source that does not exist")
	}
}

func TestLuminosityWithinCircle(t *testing.T) {
	// A circular exponential profile with I_e=1, R_e=1 has total flux
	// 2*pi*n*Gamma(2n)*exp(b_n)/b_n^(2n) * R_e^2 * I_e; for n=1 this is
	// ~= 3.80 * 2*pi/ (b^2) * e^b ... rather than the closed form, check
	// convergence: nearly all flux inside 10 R_e, and monotone growth.
	g := New("disc", WithLightProfiles(profiles.NewExponentialLight(grids.Coord{}, 1.0, 1.0, 1.0, 0)))

	l1 := g.LuminosityWithinCircle(grids.Coord{}, 1.0)
	l5 := g.LuminosityWithinCircle(grids.Coord{}, 5.0)
	l10 := g.LuminosityWithinCircle(grids.Coord{}, 10.0)
	if !(l1 < l5 && l5 < l10) {
		t.Errorf("luminosity not monotone: %v, %v, %v", l1, l5, l10)
	}
	// Half-light property of the effective radius.
	if ratio := l1 / l10; math.Abs(ratio-0.5) > 0.02 {
		t.Errorf("flux fraction inside R_e = %v, want ~0.5", ratio)
	}

	if got := New("nolight").LuminosityWithinCircle(grids.Coord{}, 5.0); got != 0 {
		t.Errorf("luminosity of light-less galaxy = %v, want 0", got)
	}
}

func TestMassWithinCircleAngular(t *testing.T) {
	// SIS: integral of kappa over a disc of radius R is pi * theta_E * R.
	g := New("sis", WithMassProfiles(profiles.NewSphericalIsothermal(grids.Coord{}, 2.0)))
	got := g.MassWithinCircleAngular(grids.Coord{}, 1.0)
	want := math.Pi * 2.0 * 1.0
	if math.Abs(got-want)/want > 0.01 {
		t.Errorf("angular mass = %v, want %v", got, want)
	}
}
