package tracer

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/quasarlab/lenstracer/internal/cosmo"
	"github.com/quasarlab/lenstracer/internal/galaxy"
	"github.com/quasarlab/lenstracer/internal/grids"
)

// Tracer is an ordered stack of planes with the grids of each plane already
// traced to its frame. The first plane sees the input grid; every later plane
// sees the input grid minus the scaled deflections of all foreground planes.
// Tracers are immutable after construction.
type Tracer struct {
	// Planes in ascending redshift order. The last plane is terminal: it
	// computes no deflections.
	Planes []*Plane

	// Geometry resolves distances and scaling factors between the planes.
	// Nil for a two-plane tracer built without a cosmology, in which case
	// all quantities stay in arc seconds.
	Geometry *TracerGeometry

	cosmology cosmo.Cosmology
}

// NewTwoPlane builds the classic strong-lens configuration: one image plane
// carrying the lens galaxies and one terminal source plane carrying the
// sources, connected by a single application of the lens equation.
//
// cosmology may be nil; the tracer then carries no geometry and all
// observables remain in arc seconds. When a cosmology is given and both
// galaxy sets carry redshifts, the lens redshift must be strictly below the
// source redshift.
func NewTwoPlane(lensGalaxies, sourceGalaxies []*galaxy.Galaxy, bundle grids.Bundle, cosmology cosmo.Cosmology) (*Tracer, error) {
	imagePlane, err := NewPlane(lensGalaxies, bundle, true, cosmology)
	if err != nil {
		return nil, fmt.Errorf("image plane: %w", err)
	}

	traced, err := imagePlane.TraceToNextPlane()
	if err != nil {
		return nil, err
	}

	sourcePlane, err := NewPlane(sourceGalaxies, traced, false, cosmology)
	if err != nil {
		return nil, fmt.Errorf("source plane: %w", err)
	}

	t := &Tracer{
		Planes:    []*Plane{imagePlane, sourcePlane},
		cosmology: cosmology,
	}

	if cosmology != nil && imagePlane.Redshift != nil && sourcePlane.Redshift != nil {
		geom, err := NewTracerGeometry([]float64{*imagePlane.Redshift, *sourcePlane.Redshift}, cosmology)
		if err != nil {
			return nil, err
		}
		t.Geometry = geom
	}

	return t, nil
}

// NewMultiPlane builds a tracer with one plane per distinct galaxy redshift,
// in ascending order. Every galaxy must carry a redshift and cosmology must
// be non-nil: multi-plane tracing is meaningless without distances.
//
// The grid of plane k is the input grid minus the sum over all foreground
// planes p < k of that plane's deflections scaled by ScalingFactor(p, k).
// The correction is always accumulated from the original input grid, not
// chained plane to plane. The final plane computes no deflections.
func NewMultiPlane(galaxies []*galaxy.Galaxy, bundle grids.Bundle, cosmology cosmo.Cosmology) (*Tracer, error) {
	if len(galaxies) == 0 {
		return nil, ErrNoPlanes
	}
	if cosmology == nil {
		return nil, fmt.Errorf("%w: multi-plane tracing requires a cosmology", ErrGeometryUndefined)
	}
	for _, g := range galaxies {
		if g.Redshift == nil {
			return nil, fmt.Errorf("%w: galaxy %q has no redshift", ErrGeometryUndefined, g.Name)
		}
	}

	groups := groupByRedshift(galaxies)
	redshifts := make([]float64, len(groups))
	for i, grp := range groups {
		redshifts[i] = *grp[0].Redshift
	}

	geom, err := NewTracerGeometry(redshifts, cosmology)
	if err != nil {
		return nil, err
	}

	t := &Tracer{
		Planes:    make([]*Plane, 0, len(groups)),
		Geometry:  geom,
		cosmology: cosmology,
	}

	for k, grp := range groups {
		traced := bundle
		for p := 0; p < k; p++ {
			sf, err := geom.ScalingFactor(p, k)
			if err != nil {
				return nil, err
			}
			traced, err = traced.SubtractFields(t.Planes[p].Deflections.Scaled(sf))
			if err != nil {
				return nil, fmt.Errorf("tracing to plane %d: %w", k, err)
			}
		}
		isFinal := k == len(groups)-1
		plane, err := NewPlane(grp, traced, !isFinal, cosmology)
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", k, err)
		}
		t.Planes = append(t.Planes, plane)
	}

	return t, nil
}

// groupByRedshift partitions the galaxies into groups of identical redshift,
// ascending. Every galaxy has already been checked to carry one.
func groupByRedshift(galaxies []*galaxy.Galaxy) [][]*galaxy.Galaxy {
	sorted := append([]*galaxy.Galaxy(nil), galaxies...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return *sorted[i].Redshift < *sorted[j].Redshift
	})

	var groups [][]*galaxy.Galaxy
	for _, g := range sorted {
		n := len(groups)
		if n > 0 && *groups[n-1][0].Redshift == *g.Redshift {
			groups[n-1] = append(groups[n-1], g)
			continue
		}
		groups = append(groups, []*galaxy.Galaxy{g})
	}
	return groups
}

// ImagePlane returns the first plane.
func (t *Tracer) ImagePlane() *Plane { return t.Planes[0] }

// SourcePlane returns the terminal plane.
func (t *Tracer) SourcePlane() *Plane { return t.Planes[len(t.Planes)-1] }

// TracedGridsOfPlanes returns each plane's grid bundle, already traced to
// that plane's frame.
func (t *Tracer) TracedGridsOfPlanes() []grids.Bundle {
	out := make([]grids.Bundle, len(t.Planes))
	for i, p := range t.Planes {
		out[i] = p.Bundle
	}
	return out
}

// Image sums every plane's light on its own traced grid: the combined image
// an observer sees, with each plane's galaxies lensed by all foreground
// planes.
func (t *Tracer) Image() []float64 {
	out := t.Planes[0].Image()
	for _, p := range t.Planes[1:] {
		floats.Add(out, p.Image())
	}
	return out
}

// BlurringImage sums every plane's blurring-grid light. ok is false when the
// input bundle carries no blurring grid.
func (t *Tracer) BlurringImage() ([]float64, bool) {
	out, ok := t.Planes[0].BlurringImage()
	if !ok {
		return nil, false
	}
	for _, p := range t.Planes[1:] {
		img, ok := p.BlurringImage()
		if !ok {
			return nil, false
		}
		floats.Add(out, img)
	}
	return out, true
}

// sumOverMassPlanes accumulates a per-pixel observable over the planes that
// carry deflections. Terminal planes deflect nothing and are excluded.
func (t *Tracer) sumOverMassPlanes(fn func(*Plane) []float64) []float64 {
	var out []float64
	for _, p := range t.Planes {
		if p.Deflections == nil {
			continue
		}
		vals := fn(p)
		if out == nil {
			out = vals
			continue
		}
		floats.Add(out, vals)
	}
	if out == nil {
		out = make([]float64, t.Planes[0].Bundle.Image().Len())
	}
	return out
}

// Convergence sums the dimensionless surface density of all deflecting
// planes per image pixel.
func (t *Tracer) Convergence() []float64 {
	return t.sumOverMassPlanes((*Plane).Convergence)
}

// Potential sums the lensing potential of all deflecting planes per image
// pixel.
func (t *Tracer) Potential() []float64 {
	return t.sumOverMassPlanes((*Plane).Potential)
}

// DeflectionsY sums the y deflections of all deflecting planes per image
// pixel.
func (t *Tracer) DeflectionsY() []float64 {
	return t.sumOverMassPlanes((*Plane).DeflectionsY)
}

// DeflectionsX sums the x deflections of all deflecting planes per image
// pixel.
func (t *Tracer) DeflectionsX() []float64 {
	return t.sumOverMassPlanes((*Plane).DeflectionsX)
}

// scalingFactor is ScalingFactor(p, k) when the tracer carries a geometry and
// exactly 1 otherwise. A two-plane tracer without redshifts has only the
// single lens equation step, whose factor is unity.
func (t *Tracer) scalingFactor(p, k int) (float64, error) {
	if t.Geometry == nil {
		return 1.0, nil
	}
	return t.Geometry.ScalingFactor(p, k)
}

// TracePositions traces a set of irregular positions through the plane
// stack, returning one position set per plane. Plane 0 holds the input
// positions unchanged; plane k holds the inputs minus the scaled deflections
// of every foreground plane, each evaluated at that plane's own traced
// positions.
func (t *Tracer) TracePositions(positions []grids.Coord) ([][]grids.Coord, error) {
	traced := make([][]grids.Coord, len(t.Planes))
	deflections := make([][]grids.Coord, len(t.Planes))

	for k := range t.Planes {
		pos := append([]grids.Coord(nil), positions...)
		for p := 0; p < k; p++ {
			sf, err := t.scalingFactor(p, k)
			if err != nil {
				return nil, err
			}
			for i := range pos {
				pos[i] = pos[i].Sub(deflections[p][i].Scale(sf))
			}
		}
		traced[k] = pos

		if t.Planes[k].Deflections != nil {
			defl := make([]grids.Coord, len(pos))
			for i, c := range pos {
				var sum grids.Coord
				for _, g := range t.Planes[k].Galaxies {
					sum = sum.Add(g.Deflection(c))
				}
				defl[i] = sum
			}
			deflections[k] = defl
		}
	}
	return traced, nil
}

// ExtractProfile returns the named point source from whichever plane carries
// it. The name is reported when no plane does.
func (t *Tracer) ExtractProfile(name string) (galaxy.PointSource, error) {
	for _, p := range t.Planes {
		for _, g := range p.Galaxies {
			if ps, ok := g.PointSourceByName(name); ok {
				return ps, nil
			}
		}
	}
	return galaxy.PointSource{}, fmt.Errorf("%w: %q", ErrPointSourceNotFound, name)
}

// ExtractPlaneIndexOfProfile returns the index of the plane carrying the
// named point source.
func (t *Tracer) ExtractPlaneIndexOfProfile(name string) (int, error) {
	for i, p := range t.Planes {
		for _, g := range p.Galaxies {
			if _, ok := g.PointSourceByName(name); ok {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrPointSourceNotFound, name)
}

// DeflFunc evaluates an effective deflection field at a single coordinate.
type DeflFunc func(grids.Coord) (grids.Coord, error)

// DeflectionsBetweenPlanes returns the effective deflection field from plane
// i to plane j: the difference between a position's traced coordinate on the
// two planes. For i=0 and j=final this is the whole-tracer deflection of the
// lens equation.
func (t *Tracer) DeflectionsBetweenPlanes(i, j int) (DeflFunc, error) {
	if i < 0 || j >= len(t.Planes) || i >= j {
		return nil, fmt.Errorf("%w: between planes %d and %d of %d", ErrPlaneIndex, i, j, len(t.Planes))
	}
	return func(c grids.Coord) (grids.Coord, error) {
		traced, err := t.TracePositions([]grids.Coord{c})
		if err != nil {
			return grids.Coord{}, err
		}
		return traced[i][0].Sub(traced[j][0]), nil
	}, nil
}

// hessianStep is the default central-difference step in arc seconds.
const hessianStep = 1e-4

// MagnificationViaHessian computes the signed point magnification at each
// position: mu = 1 / det(A) with A = I - d(alpha)/d(theta), the Jacobian
// estimated by central differences of step arc seconds. A step of 0 uses the
// default. A nil deflFunc uses the whole-tracer deflection field from the
// image plane to the final plane.
//
// Near a critical curve det(A) crosses zero and the returned magnification
// diverges; callers compare magnitudes, not raw values.
func (t *Tracer) MagnificationViaHessian(positions []grids.Coord, step float64, deflFunc DeflFunc) ([]float64, error) {
	if step <= 0 {
		step = hessianStep
	}
	if deflFunc == nil {
		var err error
		deflFunc, err = t.DeflectionsBetweenPlanes(0, len(t.Planes)-1)
		if err != nil {
			return nil, err
		}
	}

	out := make([]float64, len(positions))
	for i, c := range positions {
		aYPlus, err := deflFunc(grids.Coord{Y: c.Y + step, X: c.X})
		if err != nil {
			return nil, err
		}
		aYMinus, err := deflFunc(grids.Coord{Y: c.Y - step, X: c.X})
		if err != nil {
			return nil, err
		}
		aXPlus, err := deflFunc(grids.Coord{Y: c.Y, X: c.X + step})
		if err != nil {
			return nil, err
		}
		aXMinus, err := deflFunc(grids.Coord{Y: c.Y, X: c.X - step})
		if err != nil {
			return nil, err
		}

		dYdY := (aYPlus.Y - aYMinus.Y) / (2 * step)
		dYdX := (aXPlus.Y - aXMinus.Y) / (2 * step)
		dXdY := (aYPlus.X - aYMinus.X) / (2 * step)
		dXdX := (aXPlus.X - aXMinus.X) / (2 * step)

		jac := mat.NewDense(2, 2, []float64{
			1 - dYdY, -dYdX,
			-dXdY, 1 - dXdX,
		})
		out[i] = 1.0 / mat.Det(jac)
	}
	return out, nil
}

// GeneratePixelizationMatricesOfSourceGalaxy returns the source plane's
// pixelization handle, nil when the source plane carries none.
func (t *Tracer) GeneratePixelizationMatricesOfSourceGalaxy() (interface{}, error) {
	return t.SourcePlane().Mapper()
}
