package tracer

import "errors"

// Sentinel errors of the ray-tracing engine. Callers match with errors.Is;
// the wrapped messages carry the offending plane/galaxy details.
var (
	// ErrNoGalaxies rejects construction of a plane with an empty galaxy
	// list. A plane never silently degrades to a zero-deflection plane.
	ErrNoGalaxies = errors.New("a plane requires at least one galaxy")

	// ErrMixedRedshifts rejects a plane whose galaxies carry different
	// redshifts, or where only some galaxies carry one.
	ErrMixedRedshifts = errors.New("galaxies in one plane must share a single redshift")

	// ErrNoPlanes rejects a tracer built from zero galaxy groups.
	ErrNoPlanes = errors.New("a tracer requires at least one plane of galaxies")

	// ErrRedshiftOrder rejects a geometry whose plane redshifts are not
	// strictly increasing.
	ErrRedshiftOrder = errors.New("plane redshifts must be strictly increasing")

	// ErrGeometryUndefined is returned when a cosmological quantity is
	// requested but a participating redshift or the cosmology is absent.
	ErrGeometryUndefined = errors.New("geometry undefined")

	// ErrPlaneIndex is returned for out-of-range plane indices.
	ErrPlaneIndex = errors.New("plane index out of range")

	// ErrMultiplePixelizations enforces the at-most-one pixelized galaxy
	// per plane rule.
	ErrMultiplePixelizations = errors.New("at most one pixelized galaxy per plane")

	// ErrMultipleRegularizations enforces the analogous rule for
	// regularizations.
	ErrMultipleRegularizations = errors.New("at most one regularized galaxy per plane")

	// ErrPointSourceNotFound is returned when a named point-source profile
	// exists in no plane of the tracer.
	ErrPointSourceNotFound = errors.New("no point-source profile with the requested name")

	// ErrNoDeflections is returned when a terminal plane, which never
	// computes deflections, is asked to trace onward.
	ErrNoDeflections = errors.New("plane has no computed deflections")
)
