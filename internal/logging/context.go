package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID is the standardized structured logging key for audit batch identifiers.
	FieldBatchID = "batch_id"
	// FieldOperation is the standardized structured logging key for unit-of-work operation names.
	FieldOperation = "operation"
	// FieldSongID is the standardized structured logging key for song identifiers.
	FieldSongID = "song_id"
)

type contextKey int

const (
	batchIDKey contextKey = iota
	operationKey
)

// WithBatch returns a context carrying the audit batch id and operation name.
func WithBatch(ctx context.Context, batchID, operation string) context.Context {
	ctx = context.WithValue(ctx, batchIDKey, batchID)
	return context.WithValue(ctx, operationKey, operation)
}

// BatchFromContext extracts the audit batch id recorded by WithBatch.
func BatchFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(batchIDKey).(string)
	return id, ok && id != ""
}

// OperationFromContext extracts the operation name recorded by WithBatch.
func OperationFromContext(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(operationKey).(string)
	return op, ok && op != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := BatchFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if op, ok := OperationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperation, op))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, attr := range fields {
		args = append(args, attr)
	}
	return logger.With(args...)
}
