// Package scene loads JSON descriptions of a lens system and builds the
// galaxies, grids and cosmology the tracer consumes. All numeric fields are
// pointers so that partial scene files are safe: omitted fields fall back to
// defaults rather than silently becoming zero.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quasarlab/lenstracer/internal/cosmo"
	"github.com/quasarlab/lenstracer/internal/galaxy"
	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/profiles"
)

// ErrUnknownProfileKind is returned for a profile kind no builder exists
// for.
var ErrUnknownProfileKind = errors.New("unknown profile kind")

// Profile kinds accepted in scene files.
const (
	KindSersic               = "sersic"
	KindExponential          = "exponential"
	KindDeVaucouleurs        = "dev_vaucouleurs"
	KindSphericalIsothermal  = "spherical_isothermal"
	KindEllipticalIsothermal = "elliptical_isothermal"
)

// SceneConfig is the root scene description.
type SceneConfig struct {
	Cosmology *CosmologyConfig `json:"cosmology,omitempty"`
	Grid      *GridConfig      `json:"grid,omitempty"`
	Galaxies  []GalaxyConfig   `json:"galaxies"`
}

// CosmologyConfig overrides the default flat Lambda-CDM parameters.
type CosmologyConfig struct {
	H0     *float64 `json:"h0,omitempty"`      // km/s/Mpc
	OmegaM *float64 `json:"omega_m,omitempty"` // matter density today
}

// GridConfig describes the uniform image grid.
type GridConfig struct {
	Rows       *int     `json:"rows,omitempty"`
	Cols       *int     `json:"cols,omitempty"`
	PixelScale *float64 `json:"pixel_scale,omitempty"` // arcsec per pixel
	SubFactor  *int     `json:"sub_factor,omitempty"`  // 1 disables sub-gridding
}

// GalaxyConfig describes one galaxy and its profiles.
type GalaxyConfig struct {
	Name         string              `json:"name"`
	Redshift     *float64            `json:"redshift,omitempty"`
	LightKinds   []ProfileConfig     `json:"light_profiles,omitempty"`
	MassKinds    []ProfileConfig     `json:"mass_profiles,omitempty"`
	PointSources []PointSourceConfig `json:"point_sources,omitempty"`
}

// ProfileConfig is the parameter bag shared by all profile kinds; each kind
// reads the fields it needs and rejects absent required ones.
type ProfileConfig struct {
	Kind            string   `json:"kind"`
	CentreY         *float64 `json:"centre_y,omitempty"`
	CentreX         *float64 `json:"centre_x,omitempty"`
	Intensity       *float64 `json:"intensity,omitempty"`
	EffectiveRadius *float64 `json:"effective_radius,omitempty"`
	SersicIndex     *float64 `json:"sersic_index,omitempty"`
	AxisRatio       *float64 `json:"axis_ratio,omitempty"`
	PhiDeg          *float64 `json:"phi,omitempty"`
	EinsteinRadius  *float64 `json:"einstein_radius,omitempty"`
}

// PointSourceConfig describes a named point source.
type PointSourceConfig struct {
	Name    string   `json:"name"`
	CentreY *float64 `json:"centre_y,omitempty"`
	CentreX *float64 `json:"centre_x,omitempty"`
	Flux    *float64 `json:"flux,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// Load reads and validates a scene file. Fields omitted from the JSON stay
// nil until ApplyDefaults fills them.
func Load(path string) (*SceneConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("scene file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scene file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("scene file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	cfg := &SceneConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scene JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills every nil optional with its default: Planck 2015
// cosmology and a 100x100 grid at 0.05 arcsec per pixel without
// sub-gridding.
func (c *SceneConfig) ApplyDefaults() {
	planck := cosmo.Planck15()
	if c.Cosmology == nil {
		c.Cosmology = &CosmologyConfig{}
	}
	if c.Cosmology.H0 == nil {
		c.Cosmology.H0 = ptrFloat64(planck.H0)
	}
	if c.Cosmology.OmegaM == nil {
		c.Cosmology.OmegaM = ptrFloat64(planck.OmegaM)
	}

	if c.Grid == nil {
		c.Grid = &GridConfig{}
	}
	if c.Grid.Rows == nil {
		c.Grid.Rows = ptrInt(100)
	}
	if c.Grid.Cols == nil {
		c.Grid.Cols = ptrInt(100)
	}
	if c.Grid.PixelScale == nil {
		c.Grid.PixelScale = ptrFloat64(0.05)
	}
	if c.Grid.SubFactor == nil {
		c.Grid.SubFactor = ptrInt(1)
	}
}

// Validate rejects scenes with no galaxies or structurally bad parameters.
// Profile-level parameter checks happen in Build, where the kinds are
// interpreted.
func (c *SceneConfig) Validate() error {
	if len(c.Galaxies) == 0 {
		return errors.New("scene has no galaxies")
	}
	for i, g := range c.Galaxies {
		if g.Name == "" {
			return fmt.Errorf("galaxy %d has no name", i)
		}
		if g.Redshift != nil && *g.Redshift <= 0 {
			return fmt.Errorf("galaxy %q: redshift must be positive, got %v", g.Name, *g.Redshift)
		}
	}
	if c.Grid != nil {
		if c.Grid.Rows != nil && *c.Grid.Rows < 1 {
			return fmt.Errorf("grid rows must be >= 1, got %d", *c.Grid.Rows)
		}
		if c.Grid.Cols != nil && *c.Grid.Cols < 1 {
			return fmt.Errorf("grid cols must be >= 1, got %d", *c.Grid.Cols)
		}
		if c.Grid.PixelScale != nil && *c.Grid.PixelScale <= 0 {
			return fmt.Errorf("grid pixel scale must be positive, got %v", *c.Grid.PixelScale)
		}
		if c.Grid.SubFactor != nil && *c.Grid.SubFactor < 1 {
			return fmt.Errorf("grid sub factor must be >= 1, got %d", *c.Grid.SubFactor)
		}
	}
	if c.Cosmology != nil {
		if c.Cosmology.H0 != nil && *c.Cosmology.H0 <= 0 {
			return fmt.Errorf("cosmology h0 must be positive, got %v", *c.Cosmology.H0)
		}
		if c.Cosmology.OmegaM != nil && (*c.Cosmology.OmegaM <= 0 || *c.Cosmology.OmegaM > 1) {
			return fmt.Errorf("cosmology omega_m must be in (0, 1], got %v", *c.Cosmology.OmegaM)
		}
	}
	return nil
}

// Build constructs the galaxies, grid bundle and cosmology of the scene.
// Defaults are applied first, so Build on a freshly loaded scene is safe.
func (c *SceneConfig) Build() ([]*galaxy.Galaxy, grids.Bundle, cosmo.Cosmology, error) {
	c.ApplyDefaults()

	cosmology := cosmo.FlatLambdaCDM{H0: *c.Cosmology.H0, OmegaM: *c.Cosmology.OmegaM}

	bundle := grids.NewBundle(grids.Uniform(*c.Grid.Rows, *c.Grid.Cols, *c.Grid.PixelScale))
	if *c.Grid.SubFactor > 1 {
		bundle = bundle.WithVariant(grids.VariantSub,
			grids.UniformSub(*c.Grid.Rows, *c.Grid.Cols, *c.Grid.PixelScale, *c.Grid.SubFactor))
	}

	gals := make([]*galaxy.Galaxy, 0, len(c.Galaxies))
	for _, gc := range c.Galaxies {
		g, err := buildGalaxy(gc)
		if err != nil {
			return nil, grids.Bundle{}, nil, fmt.Errorf("galaxy %q: %w", gc.Name, err)
		}
		gals = append(gals, g)
	}
	return gals, bundle, cosmology, nil
}

func buildGalaxy(gc GalaxyConfig) (*galaxy.Galaxy, error) {
	var opts []galaxy.Option
	if gc.Redshift != nil {
		opts = append(opts, galaxy.WithRedshift(*gc.Redshift))
	}

	var lights []galaxy.LightProfile
	for i, pc := range gc.LightKinds {
		lp, err := buildLightProfile(pc)
		if err != nil {
			return nil, fmt.Errorf("light profile %d: %w", i, err)
		}
		lights = append(lights, lp)
	}
	if len(lights) > 0 {
		opts = append(opts, galaxy.WithLightProfiles(lights...))
	}

	var masses []galaxy.MassProfile
	for i, pc := range gc.MassKinds {
		mp, err := buildMassProfile(pc)
		if err != nil {
			return nil, fmt.Errorf("mass profile %d: %w", i, err)
		}
		masses = append(masses, mp)
	}
	if len(masses) > 0 {
		opts = append(opts, galaxy.WithMassProfiles(masses...))
	}

	var points []galaxy.PointSource
	for i, pc := range gc.PointSources {
		if pc.Name == "" {
			return nil, fmt.Errorf("point source %d has no name", i)
		}
		points = append(points, galaxy.PointSource{
			Name:   pc.Name,
			Centre: centreOf(pc.CentreY, pc.CentreX),
			Flux:   pc.Flux,
		})
	}
	if len(points) > 0 {
		opts = append(opts, galaxy.WithPointSources(points...))
	}

	return galaxy.New(gc.Name, opts...), nil
}

func centreOf(y, x *float64) grids.Coord {
	var c grids.Coord
	if y != nil {
		c.Y = *y
	}
	if x != nil {
		c.X = *x
	}
	return c
}

func buildLightProfile(pc ProfileConfig) (galaxy.LightProfile, error) {
	centre := centreOf(pc.CentreY, pc.CentreX)
	axisRatio := 1.0
	if pc.AxisRatio != nil {
		axisRatio = *pc.AxisRatio
	}
	phi := 0.0
	if pc.PhiDeg != nil {
		phi = *pc.PhiDeg
	}

	switch pc.Kind {
	case KindSersic:
		if pc.Intensity == nil || pc.EffectiveRadius == nil || pc.SersicIndex == nil {
			return nil, fmt.Errorf("kind %q requires intensity, effective_radius and sersic_index", pc.Kind)
		}
		return checkLight(profiles.NewSersicLight(centre, *pc.Intensity, *pc.EffectiveRadius, *pc.SersicIndex, axisRatio, phi), pc)
	case KindExponential:
		if pc.Intensity == nil || pc.EffectiveRadius == nil {
			return nil, fmt.Errorf("kind %q requires intensity and effective_radius", pc.Kind)
		}
		return checkLight(profiles.NewExponentialLight(centre, *pc.Intensity, *pc.EffectiveRadius, axisRatio, phi), pc)
	case KindDeVaucouleurs:
		if pc.Intensity == nil || pc.EffectiveRadius == nil {
			return nil, fmt.Errorf("kind %q requires intensity and effective_radius", pc.Kind)
		}
		return checkLight(profiles.NewDeVaucouleursLight(centre, *pc.Intensity, *pc.EffectiveRadius, axisRatio, phi), pc)
	default:
		return nil, fmt.Errorf("%w: %q (light)", ErrUnknownProfileKind, pc.Kind)
	}
}

func checkLight(p *profiles.SersicLight, pc ProfileConfig) (galaxy.LightProfile, error) {
	if *pc.Intensity <= 0 {
		return nil, fmt.Errorf("intensity must be positive, got %v", *pc.Intensity)
	}
	if *pc.EffectiveRadius <= 0 {
		return nil, fmt.Errorf("effective_radius must be positive, got %v", *pc.EffectiveRadius)
	}
	if pc.AxisRatio != nil && (*pc.AxisRatio <= 0 || *pc.AxisRatio > 1) {
		return nil, fmt.Errorf("axis_ratio must be in (0, 1], got %v", *pc.AxisRatio)
	}
	return p, nil
}

func buildMassProfile(pc ProfileConfig) (galaxy.MassProfile, error) {
	if pc.EinsteinRadius == nil {
		return nil, fmt.Errorf("kind %q requires einstein_radius", pc.Kind)
	}
	if *pc.EinsteinRadius <= 0 {
		return nil, fmt.Errorf("einstein_radius must be positive, got %v", *pc.EinsteinRadius)
	}
	centre := centreOf(pc.CentreY, pc.CentreX)

	switch pc.Kind {
	case KindSphericalIsothermal:
		return profiles.NewSphericalIsothermal(centre, *pc.EinsteinRadius), nil
	case KindEllipticalIsothermal:
		if pc.AxisRatio == nil {
			return nil, fmt.Errorf("kind %q requires axis_ratio", pc.Kind)
		}
		if *pc.AxisRatio <= 0 || *pc.AxisRatio > 1 {
			return nil, fmt.Errorf("axis_ratio must be in (0, 1], got %v", *pc.AxisRatio)
		}
		phi := 0.0
		if pc.PhiDeg != nil {
			phi = *pc.PhiDeg
		}
		return profiles.NewEllipticalIsothermal(centre, *pc.EinsteinRadius, *pc.AxisRatio, phi), nil
	default:
		return nil, fmt.Errorf("%w: %q (mass)", ErrUnknownProfileKind, pc.Kind)
	}
}
