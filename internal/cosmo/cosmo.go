// Package cosmo provides the cosmology lookups consumed by the ray-tracing
// geometry: angular diameter distances, angular scales and critical densities
// as pure functions of redshift.
package cosmo

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/quasarlab/lenstracer/internal/units"
)

// ArcsecPerRadian converts angles in radians to arc seconds.
const ArcsecPerRadian = 648000.0 / math.Pi

// Cosmology is the lookup surface the tracer geometry depends on. All
// quantities are pure functions of redshift. Distances are proper angular
// diameter distances in kpc, densities in solMass/kpc^3.
type Cosmology interface {
	// AngularDiameterDistance returns the angular diameter distance from the
	// observer to redshift z, in kpc.
	AngularDiameterDistance(z float64) float64

	// AngularDiameterDistanceZ1Z2 returns the angular diameter distance
	// between redshifts z1 and z2 (z1 < z2), in kpc.
	AngularDiameterDistanceZ1Z2(z1, z2 float64) float64

	// ArcsecPerKpcProper returns the angular scale at redshift z in
	// arcsec per proper kpc.
	ArcsecPerKpcProper(z float64) float64

	// CriticalDensity returns the cosmological critical density at redshift
	// z in solMass/kpc^3.
	CriticalDensity(z float64) float64
}

// FlatLambdaCDM is a flat Friedmann cosmology with a cosmological constant.
type FlatLambdaCDM struct {
	// H0 is the Hubble constant in km/s/Mpc.
	H0 float64

	// OmegaM is the matter density parameter at z=0. The dark energy
	// density is 1 - OmegaM (flatness).
	OmegaM float64
}

// Planck15 returns the 2015 Planck satellite parameter set, the default
// cosmology for lens modelling.
func Planck15() FlatLambdaCDM {
	return FlatLambdaCDM{H0: 67.74, OmegaM: 0.3089}
}

// quadNodes is the number of Gauss-Legendre nodes used for the comoving
// distance integral. 60 nodes keeps the integral converged to well below the
// float accumulation error of the downstream superpositions.
const quadNodes = 60

// efunc is the dimensionless Hubble parameter E(z) = H(z)/H0.
func (c FlatLambdaCDM) efunc(z float64) float64 {
	omegaL := 1.0 - c.OmegaM
	zp1 := 1.0 + z
	return math.Sqrt(c.OmegaM*zp1*zp1*zp1 + omegaL)
}

// hubbleDistanceKpc is c/H0 in kpc.
func (c FlatLambdaCDM) hubbleDistanceKpc() float64 {
	return 299792.458 / c.H0 * 1000.0
}

// comovingDistance returns the line-of-sight comoving distance to z in kpc.
func (c FlatLambdaCDM) comovingDistance(z float64) float64 {
	if z <= 0 {
		return 0
	}
	integral := quad.Fixed(func(zp float64) float64 {
		return 1.0 / c.efunc(zp)
	}, 0, z, quadNodes, nil, 0)
	return c.hubbleDistanceKpc() * integral
}

// AngularDiameterDistance returns the angular diameter distance to z in kpc.
func (c FlatLambdaCDM) AngularDiameterDistance(z float64) float64 {
	return c.comovingDistance(z) / (1.0 + z)
}

// AngularDiameterDistanceZ1Z2 returns the angular diameter distance between
// z1 and z2 in kpc. Valid for a flat universe.
func (c FlatLambdaCDM) AngularDiameterDistanceZ1Z2(z1, z2 float64) float64 {
	return (c.comovingDistance(z2) - c.comovingDistance(z1)) / (1.0 + z2)
}

// ArcsecPerKpcProper returns the angular scale at z in arcsec per proper kpc.
func (c FlatLambdaCDM) ArcsecPerKpcProper(z float64) float64 {
	return ArcsecPerRadian / c.AngularDiameterDistance(z)
}

// CriticalDensity returns 3 H(z)^2 / (8 pi G) in solMass/kpc^3.
func (c FlatLambdaCDM) CriticalDensity(z float64) float64 {
	hz := c.H0 * c.efunc(z) / (units.KpcInKm * 1000.0) // 1/s, H0 is per Mpc
	return 3.0 * hz * hz / (8.0 * math.Pi * units.GravitationalConstKpc)
}
