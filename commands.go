package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quasarlab/lenstracer/internal/cosmo"
	"github.com/quasarlab/lenstracer/internal/fit"
	"github.com/quasarlab/lenstracer/internal/galaxy"
	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/monitoring"
	"github.com/quasarlab/lenstracer/internal/plotting"
	"github.com/quasarlab/lenstracer/internal/report"
	"github.com/quasarlab/lenstracer/internal/resultsdb"
	"github.com/quasarlab/lenstracer/internal/scene"
	"github.com/quasarlab/lenstracer/internal/tracer"
)

// invalidFigureOfMerit is the score recorded for models that fail to build
// or trace: unfavourable enough that no valid model loses to them, so a
// sweep keeps sampling instead of aborting.
const invalidFigureOfMerit = -1e8

// parsePositions parses "y,x,y,x,..." into coordinates.
func parsePositions(s string) ([]grids.Coord, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("positions need an even number of values, got %d", len(parts))
	}
	out := make([]grids.Coord, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y value %q: %w", parts[i], err)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x value %q: %w", parts[i+1], err)
		}
		out = append(out, grids.Coord{Y: y, X: x})
	}
	return out, nil
}

// sweepRange returns steps evenly spaced values from start to stop
// inclusive.
func sweepRange(start, stop float64, steps int) []float64 {
	if steps < 2 {
		return []float64{start}
	}
	out := make([]float64, steps)
	delta := (stop - start) / float64(steps-1)
	for i := range out {
		out[i] = start + float64(i)*delta
	}
	return out
}

// buildTracer builds a multi-plane tracer when every galaxy carries a
// redshift; otherwise a redshift-free two-plane tracer with the mass-bearing
// galaxies as the lens plane.
func buildTracer(gals []*galaxy.Galaxy, bundle grids.Bundle, cosmology cosmo.Cosmology) (*tracer.Tracer, error) {
	allRedshifts := true
	for _, g := range gals {
		if g.Redshift == nil {
			allRedshifts = false
			break
		}
	}
	if allRedshifts {
		return tracer.NewMultiPlane(gals, bundle, cosmology)
	}

	var lenses, sources []*galaxy.Galaxy
	for _, g := range gals {
		if g.HasMassProfile {
			lenses = append(lenses, g)
		} else {
			sources = append(sources, g)
		}
	}
	return tracer.NewTwoPlane(lenses, sources, bundle, nil)
}

func runTrace(args []string) error {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	scenePath := fs.String("scene", "", "scene JSON file (required)")
	outDir := fs.String("out", "out", "output directory for rendered PNGs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scenePath == "" {
		return errors.New("-scene is required")
	}

	cfg, err := scene.Load(*scenePath)
	if err != nil {
		return err
	}
	gals, bundle, cosmology, err := cfg.Build()
	if err != nil {
		return err
	}
	tr, err := buildTracer(gals, bundle, cosmology)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	rows, cols, pixelScale := *cfg.Grid.Rows, *cfg.Grid.Cols, *cfg.Grid.PixelScale
	renders := []struct {
		name   string
		values []float64
	}{
		{"image", tr.Image()},
		{"convergence", tr.Convergence()},
		{"potential", tr.Potential()},
	}
	for _, r := range renders {
		path := filepath.Join(*outDir, r.name+".png")
		if err := plotting.Heatmap(path, r.name, r.values, rows, cols, pixelScale); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", path)
	}

	fmt.Printf("planes: %d\n", len(tr.Planes))
	for i, p := range tr.Planes {
		z := "none"
		if p.Redshift != nil {
			z = fmt.Sprintf("%.3f", *p.Redshift)
		}
		fmt.Printf("plane %d: redshift=%s galaxies=%d einstein_radius=%.4f\n",
			i, z, len(p.Galaxies), p.EinsteinRadius())
	}
	return nil
}

func runPositions(args []string) error {
	fs := flag.NewFlagSet("positions", flag.ExitOnError)
	scenePath := fs.String("scene", "", "scene JSON file (required)")
	name := fs.String("name", "", "point-source name (default: trace to the final plane)")
	positionsArg := fs.String("positions", "", "observed positions as y,x,y,x,... (required)")
	noise := fs.Float64("noise", 0.05, "positional noise in arcsec")
	threshold := fs.Float64("threshold", 0.1, "max-separation acceptance threshold in arcsec")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scenePath == "" {
		return errors.New("-scene is required")
	}
	positions, err := parsePositions(*positionsArg)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return errors.New("-positions is required")
	}

	cfg, err := scene.Load(*scenePath)
	if err != nil {
		return err
	}
	gals, bundle, cosmology, err := cfg.Build()
	if err != nil {
		return err
	}
	tr, err := buildTracer(gals, bundle, cosmology)
	if err != nil {
		return err
	}

	f, err := fit.NewFitPositionsMaxSeparation(*name, positions, *noise, tr)
	if err != nil {
		return err
	}

	fmt.Printf("max separation:  %.6f arcsec\n", f.MaxSeparation())
	fmt.Printf("chi-squared:     %.6f\n", f.ChiSquared())
	fmt.Printf("figure of merit: %.6f\n", f.FigureOfMerit())
	fmt.Printf("within %.3f:    %v\n", *threshold, f.MaxSeparationWithinThreshold(*threshold))
	return nil
}

func runSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	scenePath := fs.String("scene", "", "scene JSON file (required)")
	name := fs.String("name", "", "point-source name (default: trace to the final plane)")
	positionsArg := fs.String("positions", "", "observed positions as y,x,y,x,... (required)")
	noise := fs.Float64("noise", 0.05, "positional noise in arcsec")
	start := fs.Float64("start", 1.0, "first Einstein radius of the sweep")
	stop := fs.Float64("stop", 2.0, "last Einstein radius of the sweep")
	steps := fs.Int("steps", 21, "number of swept radii")
	dbPath := fs.String("db", "lenstracer.db", "results database path")
	reportPath := fs.String("report", "sweep.html", "sweep report HTML path")
	notes := fs.String("notes", "", "free-form run notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scenePath == "" {
		return errors.New("-scene is required")
	}
	positions, err := parsePositions(*positionsArg)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return errors.New("-positions is required")
	}

	cfg, err := scene.Load(*scenePath)
	if err != nil {
		return err
	}
	sweepProfile, err := firstMassProfileConfig(cfg)
	if err != nil {
		return err
	}

	db, err := resultsdb.New(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := db.CreateRun(*scenePath, *notes)
	if err != nil {
		return err
	}
	monitoring.Logf("sweep run %s: %d radii in [%.3f, %.3f]", runID, *steps, *start, *stop)

	for _, thetaE := range sweepRange(*start, *stop, *steps) {
		*sweepProfile.EinsteinRadius = thetaE

		result := resultsdb.SweepResult{
			RunID:          runID,
			EinsteinRadius: thetaE,
			FigureOfMerit:  invalidFigureOfMerit,
		}
		if f, err := scoreModel(cfg, *name, positions, *noise); err != nil {
			monitoring.Logf("radius %.4f: invalid model: %v", thetaE, err)
		} else {
			result.MaxSeparation = f.MaxSeparation()
			result.FigureOfMerit = f.FigureOfMerit()
			result.Valid = true
		}
		if err := db.RecordSweepResult(result); err != nil {
			return err
		}
	}

	best, err := db.BestResult(runID)
	if err != nil {
		return err
	}
	fmt.Printf("best einstein radius: %.4f (max separation %.6f, figure of merit %.4f)\n",
		best.EinsteinRadius, best.MaxSeparation, best.FigureOfMerit)

	*sweepProfile.EinsteinRadius = best.EinsteinRadius
	var bestPositions []grids.Coord
	if f, err := scoreModel(cfg, *name, positions, *noise); err == nil {
		bestPositions = f.SourcePlanePositions()
	}

	results, err := db.SweepResults(runID)
	if err != nil {
		return err
	}
	rep := &report.SweepReport{
		Title:               *scenePath,
		Results:             results,
		BestSourcePositions: bestPositions,
	}
	if err := rep.WriteHTML(*reportPath); err != nil {
		return err
	}
	monitoring.Logf("wrote %s", *reportPath)
	return nil
}

// scoreModel rebuilds the scene and scores it against the observed
// positions.
func scoreModel(cfg *scene.SceneConfig, name string, positions []grids.Coord, noise float64) (*fit.FitPositionsMaxSeparation, error) {
	gals, bundle, cosmology, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	tr, err := buildTracer(gals, bundle, cosmology)
	if err != nil {
		return nil, err
	}
	return fit.NewFitPositionsMaxSeparation(name, positions, noise, tr)
}

// firstMassProfileConfig returns the swept profile: the first mass profile
// of the first mass-bearing galaxy. Its einstein_radius pointer is mutated
// in place between rebuilds.
func firstMassProfileConfig(cfg *scene.SceneConfig) (*scene.ProfileConfig, error) {
	for gi := range cfg.Galaxies {
		if len(cfg.Galaxies[gi].MassKinds) > 0 {
			pc := &cfg.Galaxies[gi].MassKinds[0]
			if pc.EinsteinRadius == nil {
				return nil, fmt.Errorf("galaxy %q mass profile has no einstein_radius to sweep", cfg.Galaxies[gi].Name)
			}
			return pc, nil
		}
	}
	return nil, errors.New("scene has no mass profile to sweep")
}
