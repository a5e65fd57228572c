package profiles

import (
	"math"

	"github.com/quasarlab/lenstracer/internal/grids"
)

// SersicLight is an elliptical Sersic surface-brightness profile
// I(xi) = I_e * exp(-b_n * ((xi/R_e)^(1/n) - 1)).
type SersicLight struct {
	geom ellipticalGeometry

	// IntensityEff is the surface brightness at the effective radius.
	IntensityEff float64

	// EffectiveRadius is the half-light radius in arc seconds.
	EffectiveRadius float64

	// SersicIndex controls the profile concentration (1 = exponential,
	// 4 = de Vaucouleurs).
	SersicIndex float64
}

// NewSersicLight builds a Sersic light profile. axisRatio of 1 gives a
// circular profile; phiDeg is ignored in that case.
func NewSersicLight(centre grids.Coord, intensity, effectiveRadius, sersicIndex, axisRatio, phiDeg float64) *SersicLight {
	if axisRatio <= 0 || axisRatio > 1 {
		axisRatio = 1
	}
	return &SersicLight{
		geom:            ellipticalGeometry{Centre: centre, AxisRatio: axisRatio, PhiDeg: phiDeg},
		IntensityEff:    intensity,
		EffectiveRadius: effectiveRadius,
		SersicIndex:     sersicIndex,
	}
}

// NewExponentialLight is the Sersic index-1 disc profile.
func NewExponentialLight(centre grids.Coord, intensity, effectiveRadius, axisRatio, phiDeg float64) *SersicLight {
	return NewSersicLight(centre, intensity, effectiveRadius, 1.0, axisRatio, phiDeg)
}

// NewDeVaucouleursLight is the Sersic index-4 bulge profile.
func NewDeVaucouleursLight(centre grids.Coord, intensity, effectiveRadius, axisRatio, phiDeg float64) *SersicLight {
	return NewSersicLight(centre, intensity, effectiveRadius, 4.0, axisRatio, phiDeg)
}

// sersicConstant returns b_n, the scale constant tying the effective radius
// to the half-light point, via the Ciotti & Bertin (1999) series.
func (s *SersicLight) sersicConstant() float64 {
	n := s.SersicIndex
	return 2.0*n - 1.0/3.0 + 4.0/(405.0*n) + 46.0/(25515.0*n*n) +
		131.0/(1148175.0*n*n*n) - 2194697.0/(30690717750.0*n*n*n*n)
}

// Intensity returns the surface brightness at the given coordinate.
func (s *SersicLight) Intensity(c grids.Coord) float64 {
	x, y := s.geom.toProfileFrame(c)
	xi := s.geom.eccentricRadius(x, y)
	bn := s.sersicConstant()
	return s.IntensityEff * math.Exp(-bn*(math.Pow(xi/s.EffectiveRadius, 1.0/s.SersicIndex)-1.0))
}

// Centre returns the profile centre.
func (s *SersicLight) Centre() grids.Coord {
	return s.geom.Centre
}
