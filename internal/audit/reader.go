package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cadenza/internal/library"
)

// Batch summarizes one unit of work as recorded in the audit log.
type Batch struct {
	BatchID    string
	Operation  string
	StartedAt  time.Time
	Committed  bool
	RolledBack bool
	// EntryCount is the number of row-level records, excluding batch markers.
	EntryCount int
}

// Entry is one audit record.
type Entry struct {
	ID        int64
	BatchID   string
	CreatedAt time.Time
	Action    string
	Entity    string
	RecordID  int64
	Detail    string
}

// ListBatches returns recent batches, newest first.
func ListBatches(ctx context.Context, db library.DBTX, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(
		ctx,
		`SELECT batch_id,
                MIN(created_at),
                MAX(CASE WHEN action IN ('BEGIN_BATCH', 'COMMIT_BATCH', 'ROLLBACK_BATCH') THEN entity ELSE '' END),
                SUM(CASE WHEN action = 'COMMIT_BATCH' THEN 1 ELSE 0 END),
                SUM(CASE WHEN action = 'ROLLBACK_BATCH' THEN 1 ELSE 0 END),
                SUM(CASE WHEN action IN ('INSERT', 'UPDATE', 'DELETE') THEN 1 ELSE 0 END)
         FROM audit_log
         GROUP BY batch_id
         ORDER BY MIN(created_at) DESC, batch_id
         LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var (
			batch      Batch
			startedRaw string
			commits    int
			rollbacks  int
		)
		if err := rows.Scan(&batch.BatchID, &startedRaw, &batch.Operation, &commits, &rollbacks, &batch.EntryCount); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
			batch.StartedAt = started
		}
		batch.Committed = commits > 0
		batch.RolledBack = rollbacks > 0
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// Entries returns every record of one batch in insertion order.
func Entries(ctx context.Context, db library.DBTX, batchID string) ([]Entry, error) {
	rows, err := db.QueryContext(
		ctx,
		`SELECT id, batch_id, created_at, action, entity, record_id, detail
         FROM audit_log WHERE batch_id = ? ORDER BY id`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list batch entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			createdRaw string
			recordID   sql.NullInt64
			detail     sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.BatchID, &createdRaw, &entry.Action, &entry.Entity, &recordID, &detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entry.RecordID = recordID.Int64
		entry.Detail = detail.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
