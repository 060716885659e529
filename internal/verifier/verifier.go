// Package verifier checks that a loaded table holds the rows that were written.
package verifier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/sqlutil"
)

// ErrCountMismatch is returned when the table row count differs from the
// number of rows written.
var ErrCountMismatch = errors.New("verification count mismatch")

// VerificationMethod defines how to verify a load.
type VerificationMethod string

const (
	// MethodCount compares SELECT COUNT(*) with the rows written.
	MethodCount VerificationMethod = "count"
	// MethodSkip skips verification entirely.
	MethodSkip VerificationMethod = "skip"
)

// ParseMethod parses a configured method; empty means count.
func ParseMethod(s string) (VerificationMethod, error) {
	switch VerificationMethod(s) {
	case "", MethodCount:
		return MethodCount, nil
	case MethodSkip:
		return MethodSkip, nil
	default:
		return "", fmt.Errorf("unsupported verification method: %s", s)
	}
}

// VerifyResult holds verification results for a single table.
type VerifyResult struct {
	Table         string
	Method        VerificationMethod
	ExpectedCount int64
	ActualCount   int64
	Match         bool
	ErrorMessage  string
}

// Verifier checks loaded tables on the destination database.
type Verifier struct {
	destination *sql.DB
	driver      string
	method      VerificationMethod
	logger      *logger.Logger
}

// NewVerifier creates a verifier for tables on destination, quoting
// identifiers for driver.
func NewVerifier(destination *sql.DB, driver string, method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if destination == nil && method != MethodSkip {
		return nil, fmt.Errorf("destination database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	if method == "" {
		method = MethodCount
	}

	return &Verifier{
		destination: destination,
		driver:      driver,
		method:      method,
		logger:      log,
	}, nil
}

// Method returns the configured verification method.
func (v *Verifier) Method() VerificationMethod {
	return v.method
}

// Verify checks that table holds expected rows. A mismatch returns the
// result together with an error wrapping ErrCountMismatch.
func (v *Verifier) Verify(ctx context.Context, table string, expected int64) (*VerifyResult, error) {
	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		return &VerifyResult{
			Table:         table,
			Method:        MethodSkip,
			ExpectedCount: expected,
			Match:         true,
		}, nil
	}
	if v.method != MethodCount {
		return nil, fmt.Errorf("unsupported verification method: %s", v.method)
	}

	result, err := v.verifyByCount(ctx, table, expected)
	if err != nil {
		return nil, fmt.Errorf("verification failed for table %s: %w", table, err)
	}

	if !result.Match {
		v.logger.Errorf("Verification FAILED for table %q: %s", table, result.ErrorMessage)
		return result, fmt.Errorf("%w in table %s: %s", ErrCountMismatch, table, result.ErrorMessage)
	}

	v.logger.Infof("Verification PASSED for table %q (%d rows)", table, result.ActualCount)
	return result, nil
}

func (v *Verifier) verifyByCount(ctx context.Context, table string, expected int64) (*VerifyResult, error) {
	quoted, err := sqlutil.QuoteIdentifierSafe(v.driver, table)
	if err != nil {
		return nil, err
	}

	var actual int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoted)
	if err := v.destination.QueryRowContext(ctx, query).Scan(&actual); err != nil {
		return nil, fmt.Errorf("failed to count destination: %w", err)
	}

	result := &VerifyResult{
		Table:         table,
		Method:        MethodCount,
		ExpectedCount: expected,
		ActualCount:   actual,
		Match:         actual == expected,
	}
	if !result.Match {
		result.ErrorMessage = fmt.Sprintf("count mismatch: written=%d, table=%d", expected, actual)
	}
	return result, nil
}
