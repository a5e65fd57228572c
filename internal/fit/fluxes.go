package fit

import (
	"fmt"
	"math"

	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/tracer"
)

// FitFluxes scores a lens model against the observed fluxes of a
// multiply-imaged point source: each image's model flux is the source's
// intrinsic flux times the unsigned magnification at the image position.
type FitFluxes struct {
	// Name of the point-source profile being fit.
	Name string

	// Positions are the observed image positions.
	Positions []grids.Coord

	// ObservedFluxes pair one-to-one with Positions.
	ObservedFluxes []float64

	// Noise is the flux noise, shared across images.
	Noise float64

	magnifications []float64
	intrinsicFlux  float64
}

// NewFitFluxes resolves the named point source, which must carry a flux, and
// evaluates the tracer magnification at every observed position. For sources
// on an intermediate plane the magnification uses the deflections between
// the image plane and that plane only.
func NewFitFluxes(name string, positions []grids.Coord, observedFluxes []float64, noise float64, tr *tracer.Tracer) (*FitFluxes, error) {
	if len(positions) == 0 {
		return nil, ErrNoPositions
	}
	if len(observedFluxes) != len(positions) {
		return nil, fmt.Errorf("%w: %d fluxes, %d positions", ErrFluxCountMismatch, len(observedFluxes), len(positions))
	}
	if noise <= 0 {
		return nil, ErrNoiseNotPositive
	}

	ps, err := tr.ExtractProfile(name)
	if err != nil {
		return nil, err
	}
	if ps.Flux == nil {
		return nil, fmt.Errorf("%w: %q (did you mean a positions-only fit?)", ErrProfileHasNoFlux, name)
	}
	planeIndex, err := tr.ExtractPlaneIndexOfProfile(name)
	if err != nil {
		return nil, err
	}

	var deflFunc tracer.DeflFunc
	if planeIndex < len(tr.Planes)-1 {
		deflFunc, err = tr.DeflectionsBetweenPlanes(0, planeIndex)
		if err != nil {
			return nil, err
		}
	}
	mags, err := tr.MagnificationViaHessian(positions, 0, deflFunc)
	if err != nil {
		return nil, err
	}

	return &FitFluxes{
		Name:           name,
		Positions:      positions,
		ObservedFluxes: observedFluxes,
		Noise:          noise,
		magnifications: mags,
		intrinsicFlux:  *ps.Flux,
	}, nil
}

// Magnifications returns the signed magnification at each observed position.
func (f *FitFluxes) Magnifications() []float64 {
	return append([]float64(nil), f.magnifications...)
}

// ModelFluxes returns intrinsic flux times unsigned magnification per image.
func (f *FitFluxes) ModelFluxes() []float64 {
	out := make([]float64, len(f.magnifications))
	for i, mu := range f.magnifications {
		out[i] = math.Abs(mu) * f.intrinsicFlux
	}
	return out
}

// Residuals returns observed minus model flux per image.
func (f *FitFluxes) Residuals() []float64 {
	model := f.ModelFluxes()
	out := make([]float64, len(model))
	for i := range model {
		out[i] = f.ObservedFluxes[i] - model[i]
	}
	return out
}

// ChiSquared sums the squared residuals in noise units.
func (f *FitFluxes) ChiSquared() float64 {
	var sum float64
	for _, r := range f.Residuals() {
		v := r / f.Noise
		sum += v * v
	}
	return sum
}

// FigureOfMerit is -chi^2 / 2; higher is better.
func (f *FitFluxes) FigureOfMerit() float64 {
	return -0.5 * f.ChiSquared()
}
