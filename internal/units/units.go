// Package units provides shared length/mass unit constants, conversions and
// the physical constants used by lensing calculations.
package units

import (
	"errors"
	"math"
)

// Unit constants
const (
	Arcsec  = "arcsec"
	Kpc     = "kpc"
	SolMass = "solMass"
)

// ValidLengthUnits contains all valid length unit values
var ValidLengthUnits = []string{Arcsec, Kpc}

// ErrUnitMismatch is returned when a conversion between unit systems is
// requested without the conversion factor that relates them.
var ErrUnitMismatch = errors.New("mismatched units and no conversion factor supplied")

// IsValidLength checks if the given unit is in the list of valid length units
func IsValidLength(unit string) bool {
	for _, validUnit := range ValidLengthUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ConvertLength converts a length between the angular (arcsec) and physical
// (kpc) unit systems. Conversions between the two systems require a
// kpcPerArcsec factor, which depends on redshift and cosmology; passing a
// zero, negative or NaN factor for a cross-system conversion returns
// ErrUnitMismatch. Same-system conversions ignore the factor.
func ConvertLength(value float64, from, to string, kpcPerArcsec float64) (float64, error) {
	if !IsValidLength(from) || !IsValidLength(to) {
		return 0, ErrUnitMismatch
	}
	if from == to {
		return value, nil
	}
	if math.IsNaN(kpcPerArcsec) || kpcPerArcsec <= 0 {
		return 0, ErrUnitMismatch
	}
	switch {
	case from == Arcsec && to == Kpc:
		return value * kpcPerArcsec, nil
	default: // kpc to arcsec
		return value / kpcPerArcsec, nil
	}
}

// Physical constants in the kpc / solar-mass / second system.
const (
	// KpcInKm is one kiloparsec in kilometres.
	KpcInKm = 3.0856775814913673e16

	// SpeedOfLightKpcPerSec is c in kpc/s.
	SpeedOfLightKpcPerSec = 299792.458 / KpcInKm

	// GravitationalConstKpc is G in kpc^3 / (solMass s^2).
	GravitationalConstKpc = 4.51710305e-39
)

// CriticalSurfaceDensityConstKpc returns c^2 / (4 pi G) in solMass / kpc,
// the prefactor of the critical surface mass density between two planes.
func CriticalSurfaceDensityConstKpc() float64 {
	return math.Pow(SpeedOfLightKpcPerSec, 2.0) / (4 * math.Pi * GravitationalConstKpc)
}
