package fit

import (
	"math"

	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/tracer"
)

// FitPositionsMaxSeparation scores a lens model by how tightly the observed
// multiple-image positions converge when traced back to the plane of their
// source: a correct model maps all images of one source to (nearly) one
// point.
type FitPositionsMaxSeparation struct {
	// Name of the point-source profile the positions belong to. Empty
	// means the terminal plane.
	Name string

	// Positions are the observed image-plane positions in arc seconds.
	Positions []grids.Coord

	// Noise is the positional noise in arc seconds.
	Noise float64

	sourcePositions []grids.Coord
}

// NewFitPositionsMaxSeparation traces the observed positions through the
// tracer to the plane of the named point source (the terminal plane when the
// name is empty) and prepares the separation statistics.
func NewFitPositionsMaxSeparation(name string, positions []grids.Coord, noise float64, tr *tracer.Tracer) (*FitPositionsMaxSeparation, error) {
	if len(positions) == 0 {
		return nil, ErrNoPositions
	}
	if noise <= 0 {
		return nil, ErrNoiseNotPositive
	}

	planeIndex := len(tr.Planes) - 1
	if name != "" {
		idx, err := tr.ExtractPlaneIndexOfProfile(name)
		if err != nil {
			return nil, err
		}
		planeIndex = idx
	}

	traced, err := tr.TracePositions(positions)
	if err != nil {
		return nil, err
	}

	return &FitPositionsMaxSeparation{
		Name:            name,
		Positions:       positions,
		Noise:           noise,
		sourcePositions: traced[planeIndex],
	}, nil
}

// SourcePlanePositions returns the observed positions traced to the source's
// plane.
func (f *FitPositionsMaxSeparation) SourcePlanePositions() []grids.Coord {
	return append([]grids.Coord(nil), f.sourcePositions...)
}

// FurthestSeparations returns, per traced position, its distance to the
// traced position furthest from it.
func (f *FitPositionsMaxSeparation) FurthestSeparations() []float64 {
	out := make([]float64, len(f.sourcePositions))
	for i, a := range f.sourcePositions {
		var furthest float64
		for j, b := range f.sourcePositions {
			if i == j {
				continue
			}
			if d := separation(a, b); d > furthest {
				furthest = d
			}
		}
		out[i] = furthest
	}
	return out
}

// MaxSeparation returns the largest pairwise distance between the traced
// positions. Zero for a single position.
func (f *FitPositionsMaxSeparation) MaxSeparation() float64 {
	var max float64
	for _, d := range f.FurthestSeparations() {
		if d > max {
			max = d
		}
	}
	return max
}

// MaxSeparationWithinThreshold reports whether every traced position lies
// within the threshold of every other.
func (f *FitPositionsMaxSeparation) MaxSeparationWithinThreshold(threshold float64) bool {
	return f.MaxSeparation() <= threshold
}

// ChiSquared is the squared max separation in noise units.
func (f *FitPositionsMaxSeparation) ChiSquared() float64 {
	r := f.MaxSeparation() / f.Noise
	return r * r
}

// FigureOfMerit is -chi^2 / 2; higher is better.
func (f *FitPositionsMaxSeparation) FigureOfMerit() float64 {
	return -0.5 * f.ChiSquared()
}

// FitPositionsImagePlane scores a lens model in the image plane: model image
// positions are solved for the named source and each observed position is
// paired with its nearest model counterpart.
type FitPositionsImagePlane struct {
	// Name of the point-source profile being fit.
	Name string

	// Positions are the observed image-plane positions.
	Positions []grids.Coord

	// Noise is the positional noise in arc seconds.
	Noise float64

	modelPositions []grids.Coord
}

// NewFitPositionsImagePlane resolves the named point source, solves its
// model image positions with the given solver and pairs observations with
// model positions.
func NewFitPositionsImagePlane(name string, positions []grids.Coord, noise float64, tr *tracer.Tracer, solver PositionsSolver) (*FitPositionsImagePlane, error) {
	if len(positions) == 0 {
		return nil, ErrNoPositions
	}
	if noise <= 0 {
		return nil, ErrNoiseNotPositive
	}

	ps, err := tr.ExtractProfile(name)
	if err != nil {
		return nil, err
	}
	planeIndex, err := tr.ExtractPlaneIndexOfProfile(name)
	if err != nil {
		return nil, err
	}

	model, err := solver.Solve(tr, ps.Centre, planeIndex)
	if err != nil {
		return nil, err
	}
	if len(model) == 0 {
		return nil, ErrNoSolutions
	}

	return &FitPositionsImagePlane{
		Name:           name,
		Positions:      positions,
		Noise:          noise,
		modelPositions: model,
	}, nil
}

// ModelPositions returns the solved image-plane positions of the source.
func (f *FitPositionsImagePlane) ModelPositions() []grids.Coord {
	return append([]grids.Coord(nil), f.modelPositions...)
}

// ResidualDistances returns, per observed position, its distance to the
// nearest model position.
func (f *FitPositionsImagePlane) ResidualDistances() []float64 {
	out := make([]float64, len(f.Positions))
	for i, obs := range f.Positions {
		nearest := math.Inf(1)
		for _, m := range f.modelPositions {
			if d := separation(obs, m); d < nearest {
				nearest = d
			}
		}
		out[i] = nearest
	}
	return out
}

// ChiSquared sums the squared residual distances in noise units.
func (f *FitPositionsImagePlane) ChiSquared() float64 {
	var sum float64
	for _, d := range f.ResidualDistances() {
		r := d / f.Noise
		sum += r * r
	}
	return sum
}

// FigureOfMerit is -chi^2 / 2; higher is better.
func (f *FitPositionsImagePlane) FigureOfMerit() float64 {
	return -0.5 * f.ChiSquared()
}

func separation(a, b grids.Coord) float64 {
	return math.Hypot(a.Y-b.Y, a.X-b.X)
}
