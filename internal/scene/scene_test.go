package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/tracer"
)

const exampleScene = `{
  "cosmology": {"h0": 70.0},
  "grid": {"rows": 20, "cols": 20, "pixel_scale": 0.1, "sub_factor": 2},
  "galaxies": [
    {
      "name": "lens",
      "redshift": 0.5,
      "mass_profiles": [
        {"kind": "elliptical_isothermal", "centre_y": 0.01, "centre_x": 0.01,
         "einstein_radius": 1.6, "axis_ratio": 0.8, "phi": 80.0}
      ]
    },
    {
      "name": "source",
      "redshift": 1.0,
      "light_profiles": [
        {"kind": "sersic", "intensity": 1.0, "effective_radius": 0.2, "sersic_index": 1.5}
      ],
      "point_sources": [
        {"name": "quasar", "centre_y": 0.0, "centre_x": 0.05, "flux": 2.0}
      ]
    }
  ]
}`

func writeScene(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndBuildScene(t *testing.T) {
	cfg, err := Load(writeScene(t, exampleScene))
	require.NoError(t, err)

	gals, bundle, cosmology, err := cfg.Build()
	require.NoError(t, err)
	require.Len(t, gals, 2)
	require.NotNil(t, cosmology)

	assert.Equal(t, "lens", gals[0].Name)
	assert.True(t, gals[0].HasMassProfile)
	assert.False(t, gals[0].HasLightProfile)
	assert.Equal(t, 0.5, *gals[0].Redshift)

	assert.True(t, gals[1].HasLightProfile)
	ps, ok := gals[1].PointSourceByName("quasar")
	require.True(t, ok)
	assert.Equal(t, grids.Coord{Y: 0, X: 0.05}, ps.Centre)
	require.NotNil(t, ps.Flux)
	assert.Equal(t, 2.0, *ps.Flux)

	assert.Equal(t, 400, bundle.Image().Len())
	sub, ok := bundle.Variant(grids.VariantSub)
	require.True(t, ok)
	assert.Equal(t, 1600, sub.Len())

	// The built scene feeds straight into a multi-plane tracer.
	tr, err := tracer.NewMultiPlane(gals, bundle, cosmology)
	require.NoError(t, err)
	assert.Len(t, tr.Planes, 2)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &SceneConfig{Galaxies: []GalaxyConfig{{Name: "lens"}}}
	cfg.ApplyDefaults()

	require.NotNil(t, cfg.Cosmology)
	assert.InDelta(t, 67.74, *cfg.Cosmology.H0, 1e-9)
	assert.InDelta(t, 0.3089, *cfg.Cosmology.OmegaM, 1e-9)
	require.NotNil(t, cfg.Grid)
	assert.Equal(t, 100, *cfg.Grid.Rows)
	assert.Equal(t, 0.05, *cfg.Grid.PixelScale)
	assert.Equal(t, 1, *cfg.Grid.SubFactor)
}

func TestLoadRejectsBadScenes(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no galaxies", `{"galaxies": []}`},
		{"unnamed galaxy", `{"galaxies": [{}]}`},
		{"negative redshift", `{"galaxies": [{"name": "a", "redshift": -1}]}`},
		{"bad pixel scale", `{"grid": {"pixel_scale": 0}, "galaxies": [{"name": "a"}]}`},
		{"bad omega_m", `{"cosmology": {"omega_m": 2.0}, "galaxies": [{"name": "a"}]}`},
		{"not json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeScene(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, ".json")
}

func TestBuildRejectsUnknownAndInvalidProfiles(t *testing.T) {
	cases := []struct {
		name    string
		galaxy  GalaxyConfig
		wantErr string
	}{
		{
			"unknown mass kind",
			GalaxyConfig{Name: "g", MassKinds: []ProfileConfig{{Kind: "nfw", EinsteinRadius: ptrFloat64(1)}}},
			"unknown profile kind",
		},
		{
			"unknown light kind",
			GalaxyConfig{Name: "g", LightKinds: []ProfileConfig{{Kind: "gaussian"}}},
			"unknown profile kind",
		},
		{
			"missing einstein radius",
			GalaxyConfig{Name: "g", MassKinds: []ProfileConfig{{Kind: KindSphericalIsothermal}}},
			"einstein_radius",
		},
		{
			"sie without axis ratio",
			GalaxyConfig{Name: "g", MassKinds: []ProfileConfig{{Kind: KindEllipticalIsothermal, EinsteinRadius: ptrFloat64(1)}}},
			"axis_ratio",
		},
		{
			"sersic without index",
			GalaxyConfig{Name: "g", LightKinds: []ProfileConfig{{Kind: KindSersic, Intensity: ptrFloat64(1), EffectiveRadius: ptrFloat64(1)}}},
			"sersic_index",
		},
		{
			"negative intensity",
			GalaxyConfig{Name: "g", LightKinds: []ProfileConfig{{Kind: KindExponential, Intensity: ptrFloat64(-1), EffectiveRadius: ptrFloat64(1)}}},
			"intensity",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &SceneConfig{Galaxies: []GalaxyConfig{tc.galaxy}}
			_, _, _, err := cfg.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
