package profiles

import (
	"math"

	"github.com/quasarlab/lenstracer/internal/grids"
)

// axisRatioSphericalCutoff is the axis ratio above which an elliptical
// isothermal profile falls back to the spherical formulas, whose elliptical
// counterparts degenerate as q -> 1.
const axisRatioSphericalCutoff = 0.9999

// SphericalIsothermal is the singular isothermal sphere (SIS): a flat
// rotation-curve mass distribution with deflection magnitude equal to the
// Einstein radius everywhere.
//
// The profile is singular at its centre. The deflection there is
// direction-undefined; this implementation returns the zero vector, which
// keeps the centre an exact fixed point of the lens equation. Convergence at
// the exact centre is +Inf.
type SphericalIsothermal struct {
	centre grids.Coord

	// ThetaE is the Einstein radius in arc seconds.
	ThetaE float64
}

// NewSphericalIsothermal builds an SIS with the given centre and Einstein
// radius in arc seconds.
func NewSphericalIsothermal(centre grids.Coord, einsteinRadius float64) *SphericalIsothermal {
	return &SphericalIsothermal{centre: centre, ThetaE: einsteinRadius}
}

// Centre returns the profile centre.
func (s *SphericalIsothermal) Centre() grids.Coord {
	return s.centre
}

// EinsteinRadius returns the Einstein radius in arc seconds.
func (s *SphericalIsothermal) EinsteinRadius() float64 {
	return s.ThetaE
}

// Deflection returns the radial deflection of magnitude EinsteinRadius.
func (s *SphericalIsothermal) Deflection(c grids.Coord) grids.Coord {
	dy := c.Y - s.centre.Y
	dx := c.X - s.centre.X
	r := math.Hypot(dy, dx)
	if r == 0 {
		return grids.Coord{}
	}
	return grids.Coord{
		Y: s.ThetaE * dy / r,
		X: s.ThetaE * dx / r,
	}
}

// Convergence returns theta_E / (2 r).
func (s *SphericalIsothermal) Convergence(c grids.Coord) float64 {
	r := math.Hypot(c.Y-s.centre.Y, c.X-s.centre.X)
	if r == 0 {
		return math.Inf(1)
	}
	return s.ThetaE / (2.0 * r)
}

// Potential returns theta_E * r.
func (s *SphericalIsothermal) Potential(c grids.Coord) float64 {
	r := math.Hypot(c.Y-s.centre.Y, c.X-s.centre.X)
	return s.ThetaE * r
}

// EllipticalIsothermal is the singular isothermal ellipsoid (SIE) in the
// Kormann parameterization. Its centre shares the SIS boundary behaviour:
// zero deflection at the exact (singular) centre.
type EllipticalIsothermal struct {
	geom ellipticalGeometry

	// ThetaE is the Einstein radius in arc seconds.
	ThetaE float64
}

// NewEllipticalIsothermal builds an SIE with the given centre, Einstein
// radius in arc seconds, axis ratio in (0, 1] and position angle in degrees
// counter-clockwise from the x-axis.
func NewEllipticalIsothermal(centre grids.Coord, einsteinRadius, axisRatio, phiDeg float64) *EllipticalIsothermal {
	if axisRatio <= 0 || axisRatio > 1 {
		axisRatio = 1
	}
	return &EllipticalIsothermal{
		geom:   ellipticalGeometry{Centre: centre, AxisRatio: axisRatio, PhiDeg: phiDeg},
		ThetaE: einsteinRadius,
	}
}

// Centre returns the profile centre.
func (e *EllipticalIsothermal) Centre() grids.Coord {
	return e.geom.Centre
}

// EinsteinRadius returns the Einstein radius in arc seconds.
func (e *EllipticalIsothermal) EinsteinRadius() float64 {
	return e.ThetaE
}

// AxisRatio returns the minor-to-major axis ratio q.
func (e *EllipticalIsothermal) AxisRatio() float64 {
	return e.geom.AxisRatio
}

// einsteinRadiusRescaled is theta_E / (1 + q), the convergence
// normalization of the slope-2 power law.
func (e *EllipticalIsothermal) einsteinRadiusRescaled() float64 {
	return e.ThetaE / (1.0 + e.geom.AxisRatio)
}

// sphericalEquivalent is the SIS the profile degenerates to as q -> 1.
func (e *EllipticalIsothermal) sphericalEquivalent() *SphericalIsothermal {
	return &SphericalIsothermal{centre: e.geom.Centre, ThetaE: e.ThetaE}
}

// Deflection evaluates the closed-form SIE deflection.
func (e *EllipticalIsothermal) Deflection(c grids.Coord) grids.Coord {
	q := e.geom.AxisRatio
	if q > axisRatioSphericalCutoff {
		return e.sphericalEquivalent().Deflection(c)
	}

	x, y := e.geom.toProfileFrame(c)
	psi := math.Sqrt(q*q*x*x + y*y)
	if psi == 0 {
		return grids.Coord{}
	}
	oneMinusQ2 := math.Sqrt(1.0 - q*q)
	factor := 2.0 * e.einsteinRadiusRescaled() * q / oneMinusQ2
	ax := factor * math.Atan(oneMinusQ2*x/psi)
	ay := factor * math.Atanh(oneMinusQ2*y/psi)
	return e.geom.fromProfileFrame(ax, ay)
}

// Convergence returns the rescaled Einstein radius over the elliptical
// radius.
func (e *EllipticalIsothermal) Convergence(c grids.Coord) float64 {
	x, y := e.geom.toProfileFrame(c)
	xi := e.geom.ellipticalRadius(x, y)
	if xi == 0 {
		return math.Inf(1)
	}
	return e.einsteinRadiusRescaled() / xi
}

// Potential uses the degree-one homogeneity of the isothermal potential:
// psi(theta) = theta . alpha(theta), exact for slope 2.
func (e *EllipticalIsothermal) Potential(c grids.Coord) float64 {
	q := e.geom.AxisRatio
	if q > axisRatioSphericalCutoff {
		return e.sphericalEquivalent().Potential(c)
	}
	x, y := e.geom.toProfileFrame(c)
	psi := math.Sqrt(q*q*x*x + y*y)
	if psi == 0 {
		return 0
	}
	oneMinusQ2 := math.Sqrt(1.0 - q*q)
	factor := 2.0 * e.einsteinRadiusRescaled() * q / oneMinusQ2
	ax := factor * math.Atan(oneMinusQ2*x/psi)
	ay := factor * math.Atanh(oneMinusQ2*y/psi)
	return x*ax + y*ay
}
