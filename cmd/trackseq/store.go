package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/sparseflow/internal/flow"
)

// ResultStore persists run metadata and per-point tracking outcomes.
type ResultStore struct {
	db *sql.DB
}

const resultSchema = `
CREATE TABLE IF NOT EXISTS flow_runs (
	run_id TEXT PRIMARY KEY,
	frame_dir TEXT NOT NULL,
	started_at_ns INTEGER NOT NULL,
	finished_at_ns INTEGER,
	frame_count INTEGER NOT NULL DEFAULT 0,
	tracked_count INTEGER NOT NULL DEFAULT 0,
	lost_count INTEGER NOT NULL DEFAULT 0,
	mean_displacement REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS flow_points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	frame_idx INTEGER NOT NULL,
	point_idx INTEGER NOT NULL,
	x0 REAL NOT NULL,
	y0 REAL NOT NULL,
	x1 REAL NOT NULL,
	y1 REAL NOT NULL,
	status TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES flow_runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_flow_points_run_frame ON flow_points(run_id, frame_idx);
`

// OpenResultStore opens (or creates) the SQLite results database and
// ensures the schema exists.
func OpenResultStore(path string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}

	if _, err := db.Exec(resultSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results schema: %w", err)
	}

	return &ResultStore{db: db}, nil
}

// Close closes the underlying database.
func (rs *ResultStore) Close() error {
	return rs.db.Close()
}

// BeginRun inserts the run row with its start timestamp.
func (rs *ResultStore) BeginRun(runID, frameDir string) error {
	query := `INSERT INTO flow_runs (run_id, frame_dir, started_at_ns) VALUES (?, ?, ?)`
	if _, err := rs.db.Exec(query, runID, frameDir, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// InsertFrameResults stores the per-point outcome of one frame pair,
// keyed by the index of the earlier frame.
func (rs *ResultStore) InsertFrameResults(runID string, frameIdx int, points []flow.Point, results []flow.FlowResult) error {
	if len(points) != len(results) {
		return fmt.Errorf("points/results length mismatch: %d vs %d", len(points), len(results))
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO flow_points (run_id, frame_idx, point_idx, x0, y0, x1, y1, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare point insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		if _, err := stmt.Exec(runID, frameIdx, i, points[i].X, points[i].Y, r.X, r.Y, r.Status.String()); err != nil {
			return fmt.Errorf("insert point %d of frame %d: %w", i, frameIdx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit frame %d: %w", frameIdx, err)
	}
	return nil
}

// FinishRun stamps the run row with its end time and summary counts.
func (rs *ResultStore) FinishRun(runID string, frameCount int, tracked, lost int64, meanDisplacement float64) error {
	query := `
		UPDATE flow_runs
		SET finished_at_ns = ?, frame_count = ?, tracked_count = ?, lost_count = ?, mean_displacement = ?
		WHERE run_id = ?`
	res, err := rs.db.Exec(query, time.Now().UnixNano(), frameCount, tracked, lost, meanDisplacement, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: no such run", runID)
	}
	return nil
}

// RunSummary is one row of the flow_runs table.
type RunSummary struct {
	RunID            string
	FrameDir         string
	FrameCount       int
	TrackedCount     int64
	LostCount        int64
	MeanDisplacement float64
}

// GetRun fetches the summary row for a run.
func (rs *ResultStore) GetRun(runID string) (*RunSummary, error) {
	query := `
		SELECT run_id, frame_dir, frame_count, tracked_count, lost_count, mean_displacement
		FROM flow_runs
		WHERE run_id = ?`
	var s RunSummary
	err := rs.db.QueryRow(query, runID).Scan(
		&s.RunID, &s.FrameDir, &s.FrameCount, &s.TrackedCount, &s.LostCount, &s.MeanDisplacement)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &s, nil
}

// CountPoints returns how many per-point rows a run has stored.
func (rs *ResultStore) CountPoints(runID string) (int, error) {
	var n int
	err := rs.db.QueryRow(`SELECT COUNT(*) FROM flow_points WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count points for %s: %w", runID, err)
	}
	return n, nil
}
