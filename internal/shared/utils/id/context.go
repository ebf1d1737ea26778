package id

import "context"

type contextKey string

const logKey contextKey = "blobvault_log_id"

// WithLogID stores the log identifier on the context.
func WithLogID(ctx context.Context, logID string) context.Context {
	if logID == "" {
		return ctx
	}
	return context.WithValue(ctx, logKey, logID)
}

// LogIDFromContext extracts the log identifier from context.
func LogIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if logID, ok := ctx.Value(logKey).(string); ok {
		return logID
	}
	return ""
}

// EnsureLogID returns a context carrying a log id, generating one when absent.
func EnsureLogID(ctx context.Context, generate func() string) (context.Context, string) {
	if existing := LogIDFromContext(ctx); existing != "" {
		return ctx, existing
	}
	if generate == nil {
		generate = NewLogID
	}
	logID := generate()
	return WithLogID(ctx, logID), logID
}
