package galaxy

import (
	"math"

	"github.com/quasarlab/lenstracer/internal/grids"
)

// Quadrature resolution for the circular aperture integrals. The integrands
// are smooth away from profile centres, so a midpoint product rule converges
// quickly.
const (
	radialSteps  = 200
	azimuthSteps = 64
)

// integrateWithinCircle computes the integral of f over a disc of the given
// radius centred on centre, by a midpoint rule in polar coordinates.
func integrateWithinCircle(f func(grids.Coord) float64, centre grids.Coord, radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	dr := radius / float64(radialSteps)
	dphi := 2 * math.Pi / float64(azimuthSteps)
	var total float64
	for i := 0; i < radialSteps; i++ {
		r := (float64(i) + 0.5) * dr
		var ring float64
		for j := 0; j < azimuthSteps; j++ {
			phi := (float64(j) + 0.5) * dphi
			c := grids.Coord{
				Y: centre.Y + r*math.Sin(phi),
				X: centre.X + r*math.Cos(phi),
			}
			ring += f(c)
		}
		total += ring * r * dr * dphi
	}
	return total
}

// LuminosityWithinCircle integrates the galaxy's surface brightness over a
// disc of the given arc-second radius around centre. The value is
// dimensionless; multiply by a photometric conversion factor to obtain a
// physical luminosity.
func (g *Galaxy) LuminosityWithinCircle(centre grids.Coord, radius float64) float64 {
	if !g.HasLightProfile {
		return 0
	}
	return integrateWithinCircle(g.Intensity, centre, radius)
}

// MassWithinCircleAngular integrates the galaxy's convergence over a disc of
// the given arc-second radius around centre. The value is in angular units;
// multiply by a critical surface density to obtain solar masses.
func (g *Galaxy) MassWithinCircleAngular(centre grids.Coord, radius float64) float64 {
	if !g.HasMassProfile {
		return 0
	}
	return integrateWithinCircle(g.Convergence, centre, radius)
}
