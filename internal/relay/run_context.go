package relay

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const runIDKey contextKey = "runID"

// WithRunID returns a context carrying a fresh run ID.
func WithRunID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(ctx, runIDKey, id), id
}

// RunIDFromContext returns the run ID stored by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}
