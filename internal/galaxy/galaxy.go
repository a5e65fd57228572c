// Package galaxy models the galaxies consumed by the ray-tracing engine: a
// named object at an optional redshift carrying light profiles, mass
// profiles, point sources and opaque pixelization/regularization handles.
//
// Capabilities are fixed flags computed once at construction; the tracer
// branches on these flags rather than probing for behaviour at runtime.
package galaxy

import (
	"github.com/quasarlab/lenstracer/internal/grids"
)

// LightProfile evaluates a surface brightness at a coordinate.
type LightProfile interface {
	// Intensity returns the surface brightness at the given arc-second
	// coordinate, in electrons per second per pixel area.
	Intensity(c grids.Coord) float64
}

// MassProfile evaluates a deflection field and its scalar observables.
type MassProfile interface {
	// Centre returns the profile centre in arc seconds.
	Centre() grids.Coord

	// Deflection returns the (y,x) deflection angle at the coordinate, in
	// arc seconds.
	Deflection(c grids.Coord) grids.Coord

	// Convergence returns the dimensionless surface density at the
	// coordinate.
	Convergence(c grids.Coord) float64

	// Potential returns the lensing potential at the coordinate.
	Potential(c grids.Coord) float64

	// EinsteinRadius returns the profile's Einstein radius in arc seconds.
	EinsteinRadius() float64
}

// PointSource is a named source-plane point, optionally carrying an
// intrinsic flux for magnification-scaled flux prediction.
type PointSource struct {
	Name   string
	Centre grids.Coord
	Flux   *float64
}

// Galaxy is immutable for the duration of one ray-trace evaluation. The Has*
// flags are derived once in New and never change.
type Galaxy struct {
	Name     string
	Redshift *float64

	LightProfiles []LightProfile
	MassProfiles  []MassProfile
	PointSources  []PointSource

	// Pixelization and Regularization are opaque to the tracer; it only
	// enforces the at-most-one-per-plane rule and hands them through.
	Pixelization   interface{}
	Regularization interface{}

	HasLightProfile   bool
	HasMassProfile    bool
	HasPointSource    bool
	HasPixelization   bool
	HasRegularization bool
}

// Option configures a Galaxy under construction.
type Option func(*Galaxy)

// WithRedshift sets the galaxy's redshift.
func WithRedshift(z float64) Option {
	return func(g *Galaxy) { g.Redshift = &z }
}

// WithLightProfiles appends light profiles.
func WithLightProfiles(profiles ...LightProfile) Option {
	return func(g *Galaxy) { g.LightProfiles = append(g.LightProfiles, profiles...) }
}

// WithMassProfiles appends mass profiles.
func WithMassProfiles(profiles ...MassProfile) Option {
	return func(g *Galaxy) { g.MassProfiles = append(g.MassProfiles, profiles...) }
}

// WithPointSources appends point sources.
func WithPointSources(sources ...PointSource) Option {
	return func(g *Galaxy) { g.PointSources = append(g.PointSources, sources...) }
}

// WithPixelization attaches an opaque pixelization handle.
func WithPixelization(p interface{}) Option {
	return func(g *Galaxy) { g.Pixelization = p }
}

// WithRegularization attaches an opaque regularization handle.
func WithRegularization(r interface{}) Option {
	return func(g *Galaxy) { g.Regularization = r }
}

// New constructs a Galaxy and freezes its capability flags.
func New(name string, opts ...Option) *Galaxy {
	g := &Galaxy{Name: name}
	for _, opt := range opts {
		opt(g)
	}
	g.HasLightProfile = len(g.LightProfiles) > 0
	g.HasMassProfile = len(g.MassProfiles) > 0
	g.HasPointSource = len(g.PointSources) > 0
	g.HasPixelization = g.Pixelization != nil
	g.HasRegularization = g.Regularization != nil
	return g
}

// Intensity sums the galaxy's light profiles at a coordinate. Galaxies
// without light profiles contribute zero.
func (g *Galaxy) Intensity(c grids.Coord) float64 {
	var sum float64
	for _, p := range g.LightProfiles {
		sum += p.Intensity(c)
	}
	return sum
}

// Deflection sums the galaxy's mass-profile deflections at a coordinate.
// Galaxies without mass profiles contribute the zero vector.
func (g *Galaxy) Deflection(c grids.Coord) grids.Coord {
	var sum grids.Coord
	for _, p := range g.MassProfiles {
		sum = sum.Add(p.Deflection(c))
	}
	return sum
}

// Convergence sums the galaxy's mass-profile convergences at a coordinate.
func (g *Galaxy) Convergence(c grids.Coord) float64 {
	var sum float64
	for _, p := range g.MassProfiles {
		sum += p.Convergence(c)
	}
	return sum
}

// Potential sums the galaxy's mass-profile potentials at a coordinate.
func (g *Galaxy) Potential(c grids.Coord) float64 {
	var sum float64
	for _, p := range g.MassProfiles {
		sum += p.Potential(c)
	}
	return sum
}

// EinsteinRadius sums the Einstein radii of the galaxy's mass profiles, in
// arc seconds. Zero when the galaxy carries no mass.
func (g *Galaxy) EinsteinRadius() float64 {
	var sum float64
	for _, p := range g.MassProfiles {
		sum += p.EinsteinRadius()
	}
	return sum
}

// MassCentre returns the centre of the galaxy's first mass profile. The
// second return is false when the galaxy carries no mass.
func (g *Galaxy) MassCentre() (grids.Coord, bool) {
	if !g.HasMassProfile {
		return grids.Coord{}, false
	}
	return g.MassProfiles[0].Centre(), true
}

// PointSourceByName returns the galaxy's point source with the given name.
func (g *Galaxy) PointSourceByName(name string) (PointSource, bool) {
	for _, ps := range g.PointSources {
		if ps.Name == name {
			return ps, true
		}
	}
	return PointSource{}, false
}
