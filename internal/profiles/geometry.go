// Package profiles implements the analytic light and mass profiles used to
// model galaxies: Sersic surface brightness and singular isothermal mass
// distributions in spherical and elliptical form.
package profiles

import (
	"math"

	"github.com/quasarlab/lenstracer/internal/grids"
)

// ellipticalGeometry holds the shared shape parameters of elliptical
// profiles: a centre, an axis ratio q = b/a and a position angle phi in
// degrees counter-clockwise from the positive x-axis.
type ellipticalGeometry struct {
	Centre    grids.Coord
	AxisRatio float64
	PhiDeg    float64
}

// toProfileFrame shifts a coordinate to the profile centre and rotates it so
// the profile's major axis lies along x.
func (e ellipticalGeometry) toProfileFrame(c grids.Coord) (x, y float64) {
	dy := c.Y - e.Centre.Y
	dx := c.X - e.Centre.X
	phi := e.PhiDeg * math.Pi / 180.0
	cos, sin := math.Cos(phi), math.Sin(phi)
	x = dx*cos + dy*sin
	y = dy*cos - dx*sin
	return x, y
}

// fromProfileFrame rotates a vector in the profile frame back to the sky
// frame. Vectors are not shifted.
func (e ellipticalGeometry) fromProfileFrame(vx, vy float64) grids.Coord {
	phi := e.PhiDeg * math.Pi / 180.0
	cos, sin := math.Cos(phi), math.Sin(phi)
	return grids.Coord{
		Y: vy*cos + vx*sin,
		X: vx*cos - vy*sin,
	}
}

// ellipticalRadius is the radius of the ellipse through (x, y) measured on
// the major axis: sqrt(x^2 + (y/q)^2).
func (e ellipticalGeometry) ellipticalRadius(x, y float64) float64 {
	return math.Hypot(x, y/e.AxisRatio)
}

// eccentricRadius is the area-preserving elliptical radius
// sqrt(q) * sqrt(x^2 + (y/q)^2), used by light profiles so that changing the
// axis ratio conserves total flux.
func (e ellipticalGeometry) eccentricRadius(x, y float64) float64 {
	return math.Sqrt(e.AxisRatio) * e.ellipticalRadius(x, y)
}
