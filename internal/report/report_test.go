package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasarlab/lenstracer/internal/grids"
	"github.com/quasarlab/lenstracer/internal/resultsdb"
)

func TestWriteHTML(t *testing.T) {
	r := &SweepReport{
		Title: "scenes/sie.json",
		Results: []resultsdb.SweepResult{
			{EinsteinRadius: 1.4, MaxSeparation: 0.4, FigureOfMerit: -32, Valid: true},
			{EinsteinRadius: 1.6, MaxSeparation: 0.02, FigureOfMerit: -0.08, Valid: true},
			{EinsteinRadius: 1.8, MaxSeparation: 0, FigureOfMerit: -1e8, Valid: false},
		},
		BestSourcePositions: []grids.Coord{
			{Y: 0.01, X: 0.02}, {Y: 0.012, X: 0.018},
		},
	}

	path := filepath.Join(t.TempDir(), "sweep.html")
	require.NoError(t, r.WriteHTML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.True(t, strings.Contains(html, "Einstein radius sweep"))
	assert.True(t, strings.Contains(html, "scenes/sie.json"))
	assert.True(t, strings.Contains(html, "source positions"))
}

func TestWriteHTMLWithoutPositions(t *testing.T) {
	r := &SweepReport{Title: "t", Results: []resultsdb.SweepResult{{EinsteinRadius: 1.0, MaxSeparation: 0.1, Valid: true}}}
	path := filepath.Join(t.TempDir(), "sweep.html")
	require.NoError(t, r.WriteHTML(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "source positions")
}
