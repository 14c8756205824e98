// Package db provides database connectivity and migration logic for bictrace.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store provides persistence for trace runs and their results.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunRecord represents a trace run.
type RunRecord struct {
	RunID     string
	CreatedAt string
	FixCommit string
	Mode      string
	Status    string
	EndedAt   string
}

// TraceRecord represents one traced line within a run.
type TraceRecord struct {
	RunID      string
	FilePath   string
	LineNum    int
	FixCommit  string
	BICCommit  *string
	Verified   bool
	Iterations int
	ChainJSON  string
}

// CreateRun inserts the run record in status "running".
func (s *Store) CreateRun(ctx context.Context, runID, fixCommit, mode string) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, fix_commit, mode, status, ended_at)
		VALUES(?, ?, ?, ?, ?, NULL)`,
		runID, createdAt, fixCommit, mode, "running"); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun marks the run as done or failed.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	endedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `UPDATE runs SET status=?, ended_at=? WHERE run_id=?`,
		status, endedAt, runID); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// InsertTrace persists a single traced line result.
func (s *Store) InsertTrace(ctx context.Context, rec TraceRecord) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO traces(run_id, file_path, line_num, fix_commit, bic_commit, verified, iterations, chain_json, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.FilePath, rec.LineNum, rec.FixCommit, nullableStringPtr(rec.BICCommit),
		boolInt(rec.Verified), rec.Iterations, rec.ChainJSON, createdAt); err != nil {
		return fmt.Errorf("insert trace: %w", err)
	}
	return nil
}

// GetRun returns the run record, or nil if missing.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, created_at, fix_commit, mode, status, COALESCE(ended_at, '')
		FROM runs WHERE run_id=?`, runID)
	var rec RunRecord
	if err := row.Scan(&rec.RunID, &rec.CreatedAt, &rec.FixCommit, &rec.Mode, &rec.Status, &rec.EndedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	return &rec, nil
}

// LatestRunID returns the most recently created run id, or empty when no runs exist.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY created_at DESC, run_id DESC LIMIT 1`)
	var runID string
	if err := row.Scan(&runID); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("read latest run: %w", err)
	}
	return runID, nil
}

// ListTraces returns the traces for a run ordered by file and line.
func (s *Store) ListTraces(ctx context.Context, runID string) ([]TraceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, file_path, line_num, fix_commit, bic_commit, verified, iterations, chain_json
		FROM traces WHERE run_id=? ORDER BY file_path, line_num`, runID)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TraceRecord
	for rows.Next() {
		var rec TraceRecord
		var bic sql.NullString
		var verified int
		if err := rows.Scan(&rec.RunID, &rec.FilePath, &rec.LineNum, &rec.FixCommit, &bic, &verified, &rec.Iterations, &rec.ChainJSON); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		if bic.Valid {
			v := bic.String
			rec.BICCommit = &v
		}
		rec.Verified = verified != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate traces: %w", err)
	}
	return out, nil
}

func nullableStringPtr(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
