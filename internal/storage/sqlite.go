package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gateway-fm/cubench/pkg/types"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode keeps reads cheap while a run is appending outcomes
	dsn := fmt.Sprintf("%s?_journal=WAL&_sync=NORMAL&_foreign_keys=ON", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bench_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		artifact_path TEXT NOT NULL,
		program_id TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		error_message TEXT,
		submitted INTEGER DEFAULT 0,
		succeeded INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		report TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_bench_runs_started ON bench_runs(started_at DESC);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		test_name TEXT NOT NULL,
		selector INTEGER NOT NULL,
		payload_size INTEGER NOT NULL,
		success INTEGER NOT NULL,
		compute_units INTEGER,
		logs TEXT,
		error_detail TEXT,
		duration_ns INTEGER DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES bench_runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// CreateBenchRun inserts a new run record.
func (s *SQLiteStorage) CreateBenchRun(ctx context.Context, run *types.BenchRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bench_runs (id, started_at, artifact_path, program_id, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.ArtifactPath, run.ProgramID, run.Status)
	return err
}

// CompleteBenchRun stores the final state and report of a run.
func (s *SQLiteStorage) CompleteBenchRun(ctx context.Context, run *types.BenchRun) error {
	var reportJSON []byte
	if run.Report != nil {
		var err error
		reportJSON, err = json.Marshal(run.Report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
	}

	completedAt := run.CompletedAt
	if completedAt == nil {
		now := time.Now().UTC()
		completedAt = &now
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE bench_runs
		SET completed_at = ?, status = ?, error_message = ?,
		    submitted = ?, succeeded = ?, failed = ?, report = ?
		WHERE id = ?
	`, completedAt, run.Status, run.ErrorMessage,
		run.Submitted, run.Succeeded, run.Failed, string(reportJSON), run.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBenchRun fetches a single run by id.
func (s *SQLiteStorage) GetBenchRun(ctx context.Context, id string) (*types.BenchRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, completed_at, artifact_path, program_id,
		       status, COALESCE(error_message, ''), submitted, succeeded, failed,
		       COALESCE(report, '')
		FROM bench_runs WHERE id = ?
	`, id)
	return scanBenchRun(row)
}

// ListBenchRuns returns a page of run history, newest first.
func (s *SQLiteStorage) ListBenchRuns(ctx context.Context, limit, offset int) (*types.PaginatedBenchRuns, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bench_runs`).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, artifact_path, program_id,
		       status, COALESCE(error_message, ''), submitted, succeeded, failed,
		       COALESCE(report, '')
		FROM bench_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &types.PaginatedBenchRuns{Total: total, Limit: limit, Offset: offset}
	for rows.Next() {
		run, err := scanBenchRun(rows)
		if err != nil {
			return nil, err
		}
		page.Runs = append(page.Runs, *run)
	}
	return page, rows.Err()
}

// DeleteBenchRun removes a run and its outcomes.
func (s *SQLiteStorage) DeleteBenchRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bench_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkInsertOutcomes stores a run's outcomes in submission order.
func (s *SQLiteStorage) BulkInsertOutcomes(ctx context.Context, runID string, outcomes []types.ExecutionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes (run_id, idx, test_name, selector, payload_size,
		                      success, compute_units, logs, error_detail, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, o := range outcomes {
		logsJSON, err := json.Marshal(o.Logs)
		if err != nil {
			return fmt.Errorf("failed to marshal logs: %w", err)
		}

		var units any
		if o.ComputeUnits != nil {
			units = int64(*o.ComputeUnits)
		}

		if _, err := stmt.ExecContext(ctx, runID, i, o.TestName, o.Selector, o.PayloadSize,
			o.Success, units, string(logsJSON), o.ErrorDetail, o.Duration.Nanoseconds()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetOutcomes returns a run's outcomes in submission order.
func (s *SQLiteStorage) GetOutcomes(ctx context.Context, runID string) ([]types.ExecutionOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT test_name, selector, payload_size, success, compute_units,
		       COALESCE(logs, ''), COALESCE(error_detail, ''), duration_ns
		FROM outcomes WHERE run_id = ? ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []types.ExecutionOutcome
	for rows.Next() {
		var o types.ExecutionOutcome
		var units sql.NullInt64
		var logsJSON string
		var durationNs int64
		if err := rows.Scan(&o.TestName, &o.Selector, &o.PayloadSize, &o.Success,
			&units, &logsJSON, &o.ErrorDetail, &durationNs); err != nil {
			return nil, err
		}
		if units.Valid {
			u := uint64(units.Int64)
			o.ComputeUnits = &u
		}
		o.Duration = time.Duration(durationNs)
		if logsJSON != "" {
			if err := json.Unmarshal([]byte(logsJSON), &o.Logs); err != nil {
				slog.Warn("failed to unmarshal outcome logs",
					"runID", runID, "test", o.TestName, "error", err.Error())
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBenchRun(row rowScanner) (*types.BenchRun, error) {
	var run types.BenchRun
	var completedAt sql.NullTime
	var reportJSON string

	err := row.Scan(&run.ID, &run.StartedAt, &completedAt, &run.ArtifactPath, &run.ProgramID,
		&run.Status, &run.ErrorMessage, &run.Submitted, &run.Succeeded, &run.Failed, &reportJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if reportJSON != "" {
		var report types.RunReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			slog.Warn("failed to unmarshal run report", "runID", run.ID, "error", err.Error())
		} else {
			run.Report = &report
		}
	}
	return &run, nil
}
