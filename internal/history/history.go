// Package history records every job run in a table on the destination so
// operators can see when each table was last replaced and why a run failed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/sqlutil"
)

// DefaultTable is the run history table name.
const DefaultTable = "goingest_runs"

// RunStatus is the state of a recorded run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// createTableSQL is accepted by MySQL, PostgreSQL and SQLite alike.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	run_id VARCHAR(36) PRIMARY KEY,
	job_name VARCHAR(255) NOT NULL,
	table_name VARCHAR(255) NOT NULL,
	status VARCHAR(20) NOT NULL,
	records BIGINT NOT NULL DEFAULT 0,
	rows_written BIGINT NOT NULL DEFAULT 0,
	error_message TEXT,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP NULL
)`

// Run is one row of the history table.
type Run struct {
	RunID        string
	JobName      string
	Table        string
	Status       RunStatus
	Records      int64
	RowsWritten  int64
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// Duration is the wall time of a finished run, zero while it is running.
func (r Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Recorder persists run history in the destination database.
type Recorder struct {
	db     *sql.DB
	driver string
	table  string
	logger *logger.Logger
}

// NewRecorder creates a recorder writing to table (DefaultTable when empty).
func NewRecorder(db *sql.DB, driver, table string, log *logger.Logger) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if table == "" {
		table = DefaultTable
	}
	quoted, err := sqlutil.QuoteIdentifierSafe(driver, table)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Recorder{
		db:     db,
		driver: driver,
		table:  quoted,
		logger: log,
	}, nil
}

// InitializeTable creates the history table if it does not exist.
func (r *Recorder) InitializeTable(ctx context.Context) error {
	r.logger.Debugw("Initializing run history table", "table", r.table)

	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(createTableSQL, r.table)); err != nil {
		return fmt.Errorf("failed to create run history table %s: %w", r.table, err)
	}
	return nil
}

// Start records a run as running.
func (r *Recorder) Start(ctx context.Context, runID, jobName, table string, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.bind("INSERT INTO "+r.table+" (run_id, job_name, table_name, status, started_at) VALUES (?, ?, ?, ?, ?)"),
		runID, jobName, table, string(StatusRunning), startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record start of run %s: %w", runID, err)
	}

	r.logger.Debugw("Recorded run start", "run_id", runID, "job", jobName)
	return nil
}

// Complete marks a run completed with its record and row counts.
func (r *Recorder) Complete(ctx context.Context, runID string, records, rowsWritten int64, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.bind("UPDATE "+r.table+" SET status = ?, records = ?, rows_written = ?, completed_at = ? WHERE run_id = ?"),
		string(StatusCompleted), records, rowsWritten, completedAt.UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run %s completed: %w", runID, err)
	}

	r.logger.Debugw("Recorded run completion", "run_id", runID, "rows_written", rowsWritten)
	return nil
}

// Fail marks a run failed with errorMsg.
func (r *Recorder) Fail(ctx context.Context, runID, errorMsg string, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.bind("UPDATE "+r.table+" SET status = ?, error_message = ?, completed_at = ? WHERE run_id = ?"),
		string(StatusFailed), errorMsg, completedAt.UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", runID, err)
	}

	r.logger.Warnw("Recorded run failure", "run_id", runID, "error", errorMsg)
	return nil
}

// Recent returns up to limit runs, newest first. An empty jobName returns
// runs of every job.
func (r *Recorder) Recent(ctx context.Context, jobName string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT run_id, job_name, table_name, status, records, rows_written, error_message, started_at, completed_at FROM " + r.table
	args := []interface{}{}
	if jobName != "" {
		query += " WHERE job_name = ?"
		args = append(args, jobName)
	}
	query += " ORDER BY started_at DESC LIMIT " + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, r.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warnf("Failed to close rows: %v", err)
		}
	}()

	var runs []Run
	for rows.Next() {
		var run Run
		var status string
		var errMsg sql.NullString
		var completed sql.NullTime
		if err := rows.Scan(&run.RunID, &run.JobName, &run.Table, &status, &run.Records,
			&run.RowsWritten, &errMsg, &run.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan run history: %w", err)
		}
		run.Status = RunStatus(status)
		run.ErrorMessage = errMsg.String
		if completed.Valid {
			t := completed.Time
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run history: %w", err)
	}
	return runs, nil
}

// Counts returns the number of runs per status for a job.
func (r *Recorder) Counts(ctx context.Context, jobName string) (running, completed, failed int, err error) {
	rows, err := r.db.QueryContext(ctx,
		r.bind("SELECT status, COUNT(*) FROM "+r.table+" WHERE job_name = ? GROUP BY status"),
		jobName,
	)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count runs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warnf("Failed to close rows: %v", err)
		}
	}()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return 0, 0, 0, fmt.Errorf("failed to scan run counts: %w", err)
		}

		switch RunStatus(status) {
		case StatusRunning:
			running = count
		case StatusCompleted:
			completed = count
		case StatusFailed:
			failed = count
		}
	}

	return running, completed, failed, rows.Err()
}

// bind rewrites ? placeholders as $n for PostgreSQL.
func (r *Recorder) bind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
