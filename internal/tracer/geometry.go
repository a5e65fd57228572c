package tracer

import (
	"fmt"

	"github.com/quasarlab/lenstracer/internal/cosmo"
	"github.com/quasarlab/lenstracer/internal/units"
)

// TracerGeometry resolves the cosmological bookkeeping of an ordered sequence
// of lens planes: angular diameter distances, critical surface densities and
// the inter-plane scaling factors of the multi-plane lens equation.
//
// Distances are cached per plane pair after first computation; the cosmology
// lookups are assumed to be pure functions of redshift. A TracerGeometry is
// owned by a single tracer construction and is not safe for concurrent use.
type TracerGeometry struct {
	redshifts []float64
	cosmology cosmo.Cosmology

	angToObserver map[int]float64
	angBetween    map[[2]int]float64
}

// NewTracerGeometry builds the geometry of an ordered plane sequence. The
// redshift list must be non-empty and strictly increasing.
func NewTracerGeometry(redshifts []float64, cosmology cosmo.Cosmology) (*TracerGeometry, error) {
	if len(redshifts) == 0 {
		return nil, fmt.Errorf("%w: empty redshift list", ErrGeometryUndefined)
	}
	if cosmology == nil {
		return nil, fmt.Errorf("%w: no cosmology supplied", ErrGeometryUndefined)
	}
	for i := 1; i < len(redshifts); i++ {
		if redshifts[i] <= redshifts[i-1] {
			return nil, fmt.Errorf("%w: plane %d (z=%v) does not exceed plane %d (z=%v)",
				ErrRedshiftOrder, i, redshifts[i], i-1, redshifts[i-1])
		}
	}
	return &TracerGeometry{
		redshifts:     append([]float64(nil), redshifts...),
		cosmology:     cosmology,
		angToObserver: make(map[int]float64),
		angBetween:    make(map[[2]int]float64),
	}, nil
}

// NumPlanes returns the number of planes in the geometry.
func (g *TracerGeometry) NumPlanes() int { return len(g.redshifts) }

// FinalPlane returns the index of the furthest (source) plane.
func (g *TracerGeometry) FinalPlane() int { return len(g.redshifts) - 1 }

// Redshift returns the redshift of plane i.
func (g *TracerGeometry) Redshift(i int) (float64, error) {
	if err := g.checkIndex(i); err != nil {
		return 0, err
	}
	return g.redshifts[i], nil
}

func (g *TracerGeometry) checkIndex(indices ...int) error {
	for _, i := range indices {
		if i < 0 || i >= len(g.redshifts) {
			return fmt.Errorf("%w: %d with %d planes", ErrPlaneIndex, i, len(g.redshifts))
		}
	}
	return nil
}

// AngToObserver returns the angular diameter distance from the observer to
// plane i, in kpc.
func (g *TracerGeometry) AngToObserver(i int) (float64, error) {
	if err := g.checkIndex(i); err != nil {
		return 0, err
	}
	if d, ok := g.angToObserver[i]; ok {
		return d, nil
	}
	d := g.cosmology.AngularDiameterDistance(g.redshifts[i])
	g.angToObserver[i] = d
	return d, nil
}

// AngBetweenPlanes returns the angular diameter distance between planes i
// and j (i < j), in kpc.
func (g *TracerGeometry) AngBetweenPlanes(i, j int) (float64, error) {
	if err := g.checkIndex(i, j); err != nil {
		return 0, err
	}
	if i >= j {
		return 0, fmt.Errorf("%w: need i < j, got i=%d j=%d", ErrPlaneIndex, i, j)
	}
	key := [2]int{i, j}
	if d, ok := g.angBetween[key]; ok {
		return d, nil
	}
	d := g.cosmology.AngularDiameterDistanceZ1Z2(g.redshifts[i], g.redshifts[j])
	g.angBetween[key] = d
	return d, nil
}

// ArcsecPerKpc returns the angular scale of plane i in arcsec per proper kpc.
func (g *TracerGeometry) ArcsecPerKpc(i int) (float64, error) {
	if err := g.checkIndex(i); err != nil {
		return 0, err
	}
	return g.cosmology.ArcsecPerKpcProper(g.redshifts[i]), nil
}

// KpcPerArcsec returns the inverse angular scale of plane i.
func (g *TracerGeometry) KpcPerArcsec(i int) (float64, error) {
	a, err := g.ArcsecPerKpc(i)
	if err != nil {
		return 0, err
	}
	return 1.0 / a, nil
}

// CriticalSurfaceDensityKpc returns the critical surface mass density
// between lens plane i and source plane j in solMass/kpc^2:
// c^2/(4 pi G) * D(0->j) / (D(i->j) * D(0->i)).
func (g *TracerGeometry) CriticalSurfaceDensityKpc(i, j int) (float64, error) {
	dj, err := g.AngToObserver(j)
	if err != nil {
		return 0, err
	}
	di, err := g.AngToObserver(i)
	if err != nil {
		return 0, err
	}
	dij, err := g.AngBetweenPlanes(i, j)
	if err != nil {
		return 0, err
	}
	return units.CriticalSurfaceDensityConstKpc() * dj / (dij * di), nil
}

// CriticalSurfaceDensityArcsec returns the critical surface density between
// planes i and j in solMass per square arc second of plane i.
func (g *TracerGeometry) CriticalSurfaceDensityArcsec(i, j int) (float64, error) {
	kpc, err := g.CriticalSurfaceDensityKpc(i, j)
	if err != nil {
		return 0, err
	}
	kpcPerArcsec, err := g.KpcPerArcsec(i)
	if err != nil {
		return 0, err
	}
	return kpc * kpcPerArcsec * kpcPerArcsec, nil
}

// ScalingFactor returns the factor by which plane i's deflections are
// rescaled when propagating to plane j:
// [D(i->j) * D(0->final)] / [D(0->j) * D(i->final)].
//
// For a two-plane geometry ScalingFactor(0, 1) is exactly 1.
func (g *TracerGeometry) ScalingFactor(i, j int) (float64, error) {
	if err := g.checkIndex(i, j); err != nil {
		return 0, err
	}
	if i >= j {
		return 0, fmt.Errorf("%w: need i < j, got i=%d j=%d", ErrPlaneIndex, i, j)
	}
	final := g.FinalPlane()
	if j == final {
		// D(i->j) == D(i->final) and D(0->j) == D(0->final): avoid the
		// roundoff of evaluating the four distances separately.
		return 1.0, nil
	}
	dij, err := g.AngBetweenPlanes(i, j)
	if err != nil {
		return 0, err
	}
	dToFinal, err := g.AngToObserver(final)
	if err != nil {
		return 0, err
	}
	dj, err := g.AngToObserver(j)
	if err != nil {
		return 0, err
	}
	diFinal, err := g.AngBetweenPlanes(i, final)
	if err != nil {
		return 0, err
	}
	return (dij * dToFinal) / (dj * diFinal), nil
}
