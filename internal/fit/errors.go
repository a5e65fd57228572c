package fit

import "errors"

var (
	// ErrProfileHasNoFlux is returned when a flux fit names a point source
	// that carries no flux value. Distinct from the profile being absent
	// altogether, which surfaces as tracer.ErrPointSourceNotFound.
	ErrProfileHasNoFlux = errors.New("point-source profile carries no flux")

	// ErrNoPositions rejects a fit over an empty position set.
	ErrNoPositions = errors.New("a positions fit requires at least one position")

	// ErrFluxCountMismatch rejects observed fluxes that do not pair
	// one-to-one with the observed positions.
	ErrFluxCountMismatch = errors.New("observed fluxes must pair one-to-one with positions")

	// ErrNoiseNotPositive rejects a non-positive noise value.
	ErrNoiseNotPositive = errors.New("noise must be positive")

	// ErrNoSolutions is returned when a positions solver finds no
	// image-plane solutions for the requested source position.
	ErrNoSolutions = errors.New("positions solver found no image-plane solutions")
)
