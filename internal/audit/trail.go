package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cadenza/internal/library"
)

// Actions recorded in the audit log. Row-level actions carry the affected
// entity and record id; batch markers carry the operation name in the entity
// column and no record id.
const (
	ActionInsert        = "INSERT"
	ActionUpdate        = "UPDATE"
	ActionDelete        = "DELETE"
	ActionBeginBatch    = "BEGIN_BATCH"
	ActionCommitBatch   = "COMMIT_BATCH"
	ActionRollbackBatch = "ROLLBACK_BATCH"
)

// Trail records audit rows against one batch. It writes through the DBTX it
// was constructed with, which is the open transaction for row-level records
// and the base connection for the rollback marker.
type Trail struct {
	db      library.DBTX
	batchID string
}

// NewTrail binds a trail to a statement surface and batch id. Most callers
// obtain a Trail from an audit.Unit rather than constructing one directly.
func NewTrail(db library.DBTX, batchID string) *Trail {
	return &Trail{db: db, batchID: batchID}
}

// BatchID returns the batch identifier all records of this trail share.
func (t *Trail) BatchID() string {
	return t.batchID
}

// LogInsert records a row creation with its full field snapshot.
func (t *Trail) LogInsert(ctx context.Context, entity string, recordID int64, detail any) error {
	return t.log(ctx, ActionInsert, entity, recordID, detail)
}

// LogUpdate records a row change with before and after field snapshots.
func (t *Trail) LogUpdate(ctx context.Context, entity string, recordID int64, before, after any) error {
	return t.log(ctx, ActionUpdate, entity, recordID, map[string]any{
		"before": before,
		"after":  after,
	})
}

// LogDelete records a row removal with the snapshot of what was destroyed.
func (t *Trail) LogDelete(ctx context.Context, entity string, recordID int64, snapshot any) error {
	return t.log(ctx, ActionDelete, entity, recordID, snapshot)
}

func (t *Trail) log(ctx context.Context, action, entity string, recordID int64, detail any) error {
	var detailValue any
	if detail != nil {
		encoded, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detailValue = string(encoded)
	}

	var recordValue any
	if recordID != 0 {
		recordValue = recordID
	}

	_, err := t.db.ExecContext(
		ctx,
		`INSERT INTO audit_log (batch_id, created_at, action, entity, record_id, detail)
         VALUES (?, ?, ?, ?, ?, ?)`,
		t.batchID,
		time.Now().UTC().Format(time.RFC3339Nano),
		action,
		entity,
		recordValue,
		detailValue,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}
