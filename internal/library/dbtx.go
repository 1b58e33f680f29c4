package library

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// DBTX is the statement surface shared by *sql.DB, *sql.Tx, and Store.
// Repositories are constructed over a DBTX so the same code runs inside a
// unit of work or directly against the base connection for reads.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Auditor receives one record per repository mutation. The audit package
// provides the real implementation bound to an open batch; repositories treat
// a nil Auditor as "no batch open" and refuse to mutate.
type Auditor interface {
	LogInsert(ctx context.Context, entity string, recordID int64, detail any) error
	LogUpdate(ctx context.Context, entity string, recordID int64, before, after any) error
	LogDelete(ctx context.Context, entity string, recordID int64, snapshot any) error
}

// ErrNoBatch is returned when a mutation is attempted outside an audit batch.
var ErrNoBatch = errors.New("mutation attempted outside an audit batch")

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
