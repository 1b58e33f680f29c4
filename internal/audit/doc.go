// Package audit implements the append-only change log and the transactional
// unit of work that groups mutations into batches.
//
// Every mutation executed through a repository lands in audit_log attributed
// to the batch id of the enclosing Unit. Commit and rollback write marker
// rows; the rollback marker is written through the base connection after the
// data transaction has been rolled back, so the trace of a failed batch
// survives the rollback itself.
package audit
