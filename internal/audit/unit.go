package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cadenza/internal/library"
)

// Unit is one transactional unit of work. All repository mutations performed
// through its Tx are attributed to one batch id and commit or roll back as a
// whole.
type Unit struct {
	store     *library.Store
	tx        *sql.Tx
	trail     *Trail
	operation string
	finished  bool
}

// Begin opens a transaction, assigns a fresh batch id, and writes the
// BEGIN_BATCH marker.
func Begin(ctx context.Context, store *library.Store, operation string) (*Unit, error) {
	if operation == "" {
		return nil, fmt.Errorf("%w: operation name is required", library.ErrValidation)
	}
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}

	unit := &Unit{
		store:     store,
		tx:        tx,
		trail:     NewTrail(tx, uuid.NewString()),
		operation: operation,
	}
	if err := unit.trail.log(ctx, ActionBeginBatch, operation, 0, nil); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return unit, nil
}

// Tx exposes the open transaction for repository construction.
func (u *Unit) Tx() library.DBTX {
	return u.tx
}

// Trail returns the audit trail bound to this unit's batch.
func (u *Unit) Trail() *Trail {
	return u.trail
}

// BatchID returns the batch identifier assigned at Begin.
func (u *Unit) BatchID() string {
	return u.trail.BatchID()
}

// Operation returns the operation name this unit was opened with.
func (u *Unit) Operation() string {
	return u.operation
}

// Commit writes the COMMIT_BATCH marker and commits the transaction.
func (u *Unit) Commit(ctx context.Context) error {
	if u.finished {
		return errors.New("unit of work already finished")
	}
	if err := u.trail.log(ctx, ActionCommitBatch, u.operation, 0, nil); err != nil {
		_ = u.tx.Rollback()
		u.finished = true
		return err
	}
	if err := u.tx.Commit(); err != nil {
		u.finished = true
		return fmt.Errorf("commit unit of work: %w", err)
	}
	u.finished = true
	return nil
}

// Rollback aborts the transaction and records the ROLLBACK_BATCH marker with
// the causing error. The marker goes through the base connection so it is not
// erased by the rollback it describes.
func (u *Unit) Rollback(ctx context.Context, cause error) error {
	if u.finished {
		return nil
	}
	u.finished = true

	rollbackErr := u.tx.Rollback()

	marker := NewTrail(u.store, u.trail.BatchID())
	detail := map[string]any{}
	if cause != nil {
		detail["error"] = cause.Error()
	}
	if err := marker.log(ctx, ActionRollbackBatch, u.operation, 0, detail); err != nil {
		return err
	}
	return rollbackErr
}

// Run executes fn inside a fresh unit of work: commit when fn returns nil,
// rollback (preserving fn's error) otherwise.
func Run(ctx context.Context, store *library.Store, operation string, fn func(*Unit) error) error {
	unit, err := Begin(ctx, store, operation)
	if err != nil {
		return err
	}
	if err := fn(unit); err != nil {
		_ = unit.Rollback(ctx, err)
		return err
	}
	return unit.Commit(ctx)
}
