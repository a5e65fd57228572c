// Package resultsdb persists model-evaluation results. Model sweeps score
// many candidate lens models, invalid ones included (those keep an
// unfavourable score rather than aborting the sweep), and the store is what
// later reporting reads them back from.
package resultsdb

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/quasarlab/lenstracer/internal/monitoring"
	"github.com/quasarlab/lenstracer/internal/timeutil"
)

// schema.sql defines the runs and sweep_results tables. Applied in full at
// open; every statement is idempotent.
//
//go:embed schema.sql
var schemaSQL string

// DB is the results store.
type DB struct {
	*sql.DB

	clock timeutil.Clock
}

// New opens (creating if needed) the results database at path and applies
// the embedded schema.
func New(path string) (*DB, error) {
	return NewWithClock(path, timeutil.RealClock{})
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(path string, clock timeutil.Clock) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply results schema: %w", err)
	}

	monitoring.Logf("initialized results database at %s", path)

	return &DB{DB: db, clock: clock}, nil
}

// Run is one recorded model-evaluation run.
type Run struct {
	ID        string
	CreatedAt time.Time
	ScenePath string
	Notes     string
}

// SweepResult is one scored model of an Einstein-radius sweep.
type SweepResult struct {
	RunID          string
	EinsteinRadius float64
	MaxSeparation  float64
	FigureOfMerit  float64
	Valid          bool
}

// CreateRun inserts a new run and returns its generated id.
func (db *DB) CreateRun(scenePath, notes string) (string, error) {
	id := uuid.New().String()
	createdAt := db.clock.Now().UTC().Format(time.RFC3339Nano)

	_, err := db.Exec(
		`INSERT INTO runs (id, created_at, scene_path, notes) VALUES (?, ?, ?, ?)`,
		id, createdAt, scenePath, notes,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// GetRun returns the run with the given id.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	var createdAt string
	err := db.QueryRow(
		`SELECT id, created_at, scene_path, notes FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &createdAt, &r.ScenePath, &r.Notes)
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s has a malformed created_at: %w", id, err)
	}
	return r, nil
}

// RecordSweepResult appends one scored model to a run.
func (db *DB) RecordSweepResult(r SweepResult) error {
	valid := 0
	if r.Valid {
		valid = 1
	}
	_, err := db.Exec(
		`INSERT INTO sweep_results (run_id, einstein_radius, max_separation, figure_of_merit, valid)
		 VALUES (?, ?, ?, ?, ?)`,
		r.RunID, r.EinsteinRadius, r.MaxSeparation, r.FigureOfMerit, valid,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sweep result: %w", err)
	}
	return nil
}

// SweepResults returns a run's results ordered by Einstein radius.
func (db *DB) SweepResults(runID string) ([]SweepResult, error) {
	rows, err := db.Query(
		`SELECT run_id, einstein_radius, max_separation, figure_of_merit, valid
		 FROM sweep_results WHERE run_id = ? ORDER BY einstein_radius`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep results: %w", err)
	}
	defer rows.Close()

	var out []SweepResult
	for rows.Next() {
		var r SweepResult
		var valid int
		if err := rows.Scan(&r.RunID, &r.EinsteinRadius, &r.MaxSeparation, &r.FigureOfMerit, &valid); err != nil {
			return nil, fmt.Errorf("failed to scan sweep result: %w", err)
		}
		r.Valid = valid != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// BestResult returns the valid result with the highest figure of merit.
func (db *DB) BestResult(runID string) (SweepResult, error) {
	var r SweepResult
	var valid int
	err := db.QueryRow(
		`SELECT run_id, einstein_radius, max_separation, figure_of_merit, valid
		 FROM sweep_results WHERE run_id = ? AND valid = 1
		 ORDER BY figure_of_merit DESC LIMIT 1`,
		runID,
	).Scan(&r.RunID, &r.EinsteinRadius, &r.MaxSeparation, &r.FigureOfMerit, &valid)
	if err != nil {
		return SweepResult{}, fmt.Errorf("no valid result for run %s: %w", runID, err)
	}
	r.Valid = true
	return r, nil
}
