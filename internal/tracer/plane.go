package tracer

import (
	"fmt"

	"github.com/quasarlab/lenstracer/internal/cosmo"
	"github.com/quasarlab/lenstracer/internal/galaxy"
	"github.com/quasarlab/lenstracer/internal/grids"
)

// Plane is a set of galaxies sharing one redshift together with the grid
// bundle on which their profiles are evaluated. Planes are immutable after
// construction and are created once per tracer construction.
//
// A plane constructed with computeDeflections=false is a terminal plane:
// light profiles there are evaluated at the already-traced coordinates and
// the light is deflected no further.
type Plane struct {
	// Redshift is the shared redshift of the plane's galaxies, nil when
	// the galaxies carry none. Without a redshift the plane's cosmological
	// quantities are undefined.
	Redshift *float64

	// Galaxies in evaluation order. Profile sums preserve this order.
	Galaxies []*galaxy.Galaxy

	// Bundle holds the grid variants of this plane, already traced to the
	// plane's own frame.
	Bundle grids.Bundle

	// Deflections is the per-variant deflection field summed over the
	// plane's galaxies, nil for terminal planes.
	Deflections *grids.FieldBundle

	cosmology cosmo.Cosmology
}

// NewPlane builds a plane from a non-empty galaxy list. All galaxies must
// share one redshift (or all carry none). When computeDeflections is set the
// plane's deflection field is summed over its galaxies for every grid
// variant; galaxies without mass profiles contribute the zero vector.
func NewPlane(galaxies []*galaxy.Galaxy, bundle grids.Bundle, computeDeflections bool, cosmology cosmo.Cosmology) (*Plane, error) {
	if len(galaxies) == 0 {
		return nil, ErrNoGalaxies
	}

	redshift, err := sharedRedshift(galaxies)
	if err != nil {
		return nil, err
	}

	p := &Plane{
		Redshift:  redshift,
		Galaxies:  galaxies,
		Bundle:    bundle,
		cosmology: cosmology,
	}

	if computeDeflections {
		fields := bundle.Apply(func(g grids.Grid) grids.VectorField {
			return deflectionsOfGalaxies(g, galaxies)
		})
		p.Deflections = &fields
	}

	return p, nil
}

// sharedRedshift validates that all galaxies agree on a redshift. A plane
// where every galaxy lacks a redshift is valid and returns nil.
func sharedRedshift(galaxies []*galaxy.Galaxy) (*float64, error) {
	anyPresent := false
	for _, g := range galaxies {
		if g.Redshift != nil {
			anyPresent = true
			break
		}
	}
	if !anyPresent {
		return nil, nil
	}
	first := galaxies[0].Redshift
	for _, g := range galaxies {
		if g.Redshift == nil || first == nil || *g.Redshift != *first {
			return nil, fmt.Errorf("%w: galaxy %q", ErrMixedRedshifts, g.Name)
		}
	}
	z := *first
	return &z, nil
}

// deflectionsOfGalaxies sums the deflections of all galaxies at each grid
// coordinate, in galaxy list order.
func deflectionsOfGalaxies(g grids.Grid, galaxies []*galaxy.Galaxy) grids.VectorField {
	field := make(grids.VectorField, g.Len())
	for i, c := range g.Coords {
		var sum grids.Coord
		for _, gal := range galaxies {
			sum = sum.Add(gal.Deflection(c))
		}
		field[i] = sum
	}
	return field
}

// sumOverGalaxies evaluates fn for every galaxy at every coordinate of the
// grid and accumulates in galaxy order.
func sumOverGalaxies(g grids.Grid, galaxies []*galaxy.Galaxy, fn func(*galaxy.Galaxy, grids.Coord) float64) []float64 {
	out := make([]float64, g.Len())
	for i, c := range g.Coords {
		var sum float64
		for _, gal := range galaxies {
			sum += fn(gal, c)
		}
		out[i] = sum
	}
	return out
}

// TraceToNextPlane subtracts the plane's deflection field from every grid
// variant: the two-plane lens equation. Terminal planes cannot trace onward.
func (p *Plane) TraceToNextPlane() (grids.Bundle, error) {
	if p.Deflections == nil {
		return grids.Bundle{}, ErrNoDeflections
	}
	return p.Bundle.SubtractFields(*p.Deflections)
}

// evalGrid picks the grid a scalar observable is evaluated on: the sub-grid
// variant when the bundle carries one, otherwise the image grid. Returned
// values are binned back to image pixels when sub-gridded.
func (p *Plane) evalScalar(fn func(*galaxy.Galaxy, grids.Coord) float64) []float64 {
	if sub, ok := p.Bundle.Variant(grids.VariantSub); ok {
		values := sumOverGalaxies(sub, p.Galaxies, fn)
		binned, err := sub.BinSubToImage(values)
		if err == nil {
			return binned
		}
	}
	return sumOverGalaxies(p.Bundle.Image(), p.Galaxies, fn)
}

// Image sums the light-profile intensities of the plane's galaxies on its
// (sub-gridded, when available) grid, binned to image pixels. Galaxies
// without light profiles contribute zero.
func (p *Plane) Image() []float64 {
	return p.evalScalar((*galaxy.Galaxy).Intensity)
}

// BlurringImage is the light aggregate over the blurring-grid variant:
// pixels just outside the mask whose flux blurs into it under the PSF.
// ok is false when the bundle carries no blurring grid.
func (p *Plane) BlurringImage() ([]float64, bool) {
	blurring, ok := p.Bundle.Variant(grids.VariantBlurring)
	if !ok {
		return nil, false
	}
	return sumOverGalaxies(blurring, p.Galaxies, (*galaxy.Galaxy).Intensity), true
}

// Convergence sums the galaxies' dimensionless surface density over the
// plane's own (pre-deflection) grid.
func (p *Plane) Convergence() []float64 {
	return p.evalScalar((*galaxy.Galaxy).Convergence)
}

// Potential sums the galaxies' lensing potential over the plane's own
// (pre-deflection) grid.
func (p *Plane) Potential() []float64 {
	return p.evalScalar((*galaxy.Galaxy).Potential)
}

// DeflectionsY returns the y-component of the summed galaxy deflections per
// image pixel.
func (p *Plane) DeflectionsY() []float64 {
	return p.evalScalar(func(g *galaxy.Galaxy, c grids.Coord) float64 {
		return g.Deflection(c).Y
	})
}

// DeflectionsX returns the x-component of the summed galaxy deflections per
// image pixel.
func (p *Plane) DeflectionsX() []float64 {
	return p.evalScalar(func(g *galaxy.Galaxy, c grids.Coord) float64 {
		return g.Deflection(c).X
	})
}

// Mapper returns the pixelization handle of the plane's single pixelized
// galaxy, nil when no galaxy is pixelized, and an error when more than one
// is.
func (p *Plane) Mapper() (interface{}, error) {
	var found interface{}
	count := 0
	for _, g := range p.Galaxies {
		if g.HasPixelization {
			found = g.Pixelization
			count++
		}
	}
	if count > 1 {
		return nil, fmt.Errorf("%w: found %d", ErrMultiplePixelizations, count)
	}
	return found, nil
}

// Regularization mirrors Mapper for regularization handles.
func (p *Plane) Regularization() (interface{}, error) {
	var found interface{}
	count := 0
	for _, g := range p.Galaxies {
		if g.HasRegularization {
			found = g.Regularization
			count++
		}
	}
	if count > 1 {
		return nil, fmt.Errorf("%w: found %d", ErrMultipleRegularizations, count)
	}
	return found, nil
}

// EinsteinRadius sums the Einstein radii of the plane's galaxies in arc
// seconds.
func (p *Plane) EinsteinRadius() float64 {
	var sum float64
	for _, g := range p.Galaxies {
		sum += g.EinsteinRadius()
	}
	return sum
}

// ArcsecPerKpc returns the plane's angular scale. ok is false when the plane
// has no redshift or no cosmology: cosmological quantities are then
// undefined, never silently zero.
func (p *Plane) ArcsecPerKpc() (float64, bool) {
	if p.Redshift == nil || p.cosmology == nil {
		return 0, false
	}
	return p.cosmology.ArcsecPerKpcProper(*p.Redshift), true
}

// KpcPerArcsec returns the plane's inverse angular scale.
func (p *Plane) KpcPerArcsec() (float64, bool) {
	a, ok := p.ArcsecPerKpc()
	if !ok {
		return 0, false
	}
	return 1.0 / a, true
}

// AngularDiameterDistanceToObserver returns the plane's distance from the
// observer in kpc.
func (p *Plane) AngularDiameterDistanceToObserver() (float64, bool) {
	if p.Redshift == nil || p.cosmology == nil {
		return 0, false
	}
	return p.cosmology.AngularDiameterDistance(*p.Redshift), true
}

// CosmicAverageMassDensityArcsec returns the critical density of the
// universe at the plane's redshift, converted to solar masses per cubic arc
// second of this plane.
func (p *Plane) CosmicAverageMassDensityArcsec() (float64, bool) {
	if p.Redshift == nil || p.cosmology == nil {
		return 0, false
	}
	arcsecPerKpc := p.cosmology.ArcsecPerKpcProper(*p.Redshift)
	return p.cosmology.CriticalDensity(*p.Redshift) / (arcsecPerKpc * arcsecPerKpc * arcsecPerKpc), true
}

// EinsteinMass returns the plane's Einstein mass in solar masses given the
// critical surface density in solMass per square arcsec of this plane.
func (p *Plane) EinsteinMass(criticalSurfaceDensityArcsec float64) float64 {
	var sum float64
	for _, g := range p.Galaxies {
		if !g.HasMassProfile {
			continue
		}
		centre, _ := g.MassCentre()
		r := g.EinsteinRadius()
		sum += g.MassWithinCircleAngular(centre, r) * criticalSurfaceDensityArcsec
	}
	return sum
}
