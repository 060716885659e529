package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/schema"
	"github.com/dbsmedya/goingest/internal/sqlutil"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 1000

// ErrEmptySchema is returned when the schema has no columns to create.
var ErrEmptySchema = errors.New("schema has no columns")

// MismatchPolicy decides what happens to a value that does not fit its column.
type MismatchPolicy string

const (
	// MismatchFail aborts the write on the first mismatching row.
	MismatchFail MismatchPolicy = "fail"
	// MismatchNull stores NULL in the offending column and counts the row as coerced.
	MismatchNull MismatchPolicy = "null"
)

// ParseMismatchPolicy parses a configured policy; empty means fail.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch MismatchPolicy(s) {
	case "", MismatchFail:
		return MismatchFail, nil
	case MismatchNull:
		return MismatchNull, nil
	default:
		return "", fmt.Errorf("unsupported on_mismatch policy: %s", s)
	}
}

// Options configures a Writer.
type Options struct {
	BatchSize  int
	OnMismatch MismatchPolicy
}

// WriteStats contains statistics about a write.
type WriteStats struct {
	Table       string
	Columns     int
	RowsWritten int64
	RowsCoerced int64 // rows with at least one column set to NULL by MismatchNull
	Statements  int
	Duration    time.Duration
}

// Writer replaces a destination table with a set of records.
type Writer struct {
	db      *sql.DB
	dialect Dialect
	opts    Options
	logger  *logger.Logger
}

// NewWriter creates a writer for db using the dialect of driver.
func NewWriter(db *sql.DB, driver string, opts Options, log *logger.Logger) (*Writer, error) {
	if db == nil {
		return nil, fmt.Errorf("destination database is nil")
	}
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.OnMismatch == "" {
		opts.OnMismatch = MismatchFail
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Writer{db: db, dialect: d, opts: opts, logger: log}, nil
}

// Dialect returns the writer's SQL dialect.
func (w *Writer) Dialect() Dialect {
	return w.dialect
}

// Write drops and recreates table from s and inserts records, all inside one
// transaction. Nothing is committed unless every row is written.
func (w *Writer) Write(ctx context.Context, table string, s *schema.StructNode, records []record.Mapping) (*WriteStats, error) {
	startTime := time.Now()

	quoted, err := sqlutil.QuoteIdentifierSafe(w.dialect.Driver, table)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Len() == 0 {
		return nil, fmt.Errorf("table %s: %w", table, ErrEmptySchema)
	}
	if s.Len() > w.dialect.MaxParams {
		return nil, fmt.Errorf("table %s: %d columns exceed the %s parameter limit", table, s.Len(), w.dialect.Driver)
	}
	if err := w.dialect.CheckColumns(s.Names()); err != nil {
		return nil, fmt.Errorf("table %s: %w", table, err)
	}

	// Conform every row before touching the destination.
	rows, coerced, err := w.conformAll(s, records)
	if err != nil {
		return nil, err
	}

	log := w.logger.WithTable(table)
	stats := &WriteStats{
		Table:       table,
		Columns:     s.Len(),
		RowsCoerced: coerced,
	}

	log.Debug("Starting destination transaction")
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin destination transaction: %w", err)
	}

	defer func() {
		if tx != nil {
			log.Warn("Rolling back destination transaction")
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, w.dialect.DropTable(quoted)); err != nil {
		return nil, fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, w.dialect.CreateTable(quoted, s)); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	columns := s.Names()
	perStatement := w.dialect.RowsPerStatement(w.opts.BatchSize, len(columns))
	for start, batchNum := 0, 1; start < len(rows); start, batchNum = start+perStatement, batchNum+1 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("write interrupted: %w", err)
		}

		end := start + perStatement
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		args := make([]any, 0, len(batch)*len(columns))
		for _, row := range batch {
			args = append(args, row...)
		}

		if _, err := tx.ExecContext(ctx, w.dialect.Insert(quoted, columns, len(batch)), args...); err != nil {
			return nil, fmt.Errorf("failed to insert batch %d into %s: %w", batchNum, table, err)
		}

		stats.Statements++
		stats.RowsWritten += int64(len(batch))
		log.WithBatch(batchNum).Debugf("Inserted %d rows", len(batch))
	}

	log.Debug("Committing destination transaction")
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit destination transaction: %w", err)
	}
	tx = nil

	stats.Duration = time.Since(startTime)
	log.Infof("Write complete: %d rows, %d columns, %d coerced, duration: %s",
		stats.RowsWritten,
		stats.Columns,
		stats.RowsCoerced,
		stats.Duration,
	)
	return stats, nil
}

// conformAll converts records into rows, applying the mismatch policy.
func (w *Writer) conformAll(s *schema.StructNode, records []record.Mapping) ([]schema.Row, int64, error) {
	rows := make([]schema.Row, len(records))
	var coerced int64
	for i, rec := range records {
		row := make(schema.Row, s.Len())
		rowCoerced := false
		for c, f := range s.Fields {
			v, _ := rec.Get(f.Name)
			col, err := schema.ConformColumn(v, f)
			if err != nil {
				if w.opts.OnMismatch != MismatchNull || !errors.Is(err, schema.ErrTypeMismatch) {
					return nil, 0, fmt.Errorf("record %d: %w", i, err)
				}
				col = nil
				rowCoerced = true
			}
			row[c] = col
		}
		if rowCoerced {
			coerced++
			w.logger.Debugf("Record %d coerced to NULL in mismatching columns", i)
		}
		rows[i] = row
	}
	return rows, coerced, nil
}
