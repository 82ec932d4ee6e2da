// Package execctx carries per-execution identifiers through context so the
// engine, transport, and logs can refer to the same run of a template.
package execctx

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const executionIDKey contextKey = "execution_id"

// WithExecutionID adds an execution ID to the context
func WithExecutionID(ctx context.Context, executionID string) context.Context {
	return context.WithValue(ctx, executionIDKey, executionID)
}

// ExecutionID retrieves the execution ID from context
func ExecutionID(ctx context.Context) string {
	if id, ok := ctx.Value(executionIDKey).(string); ok {
		return id
	}
	return ""
}

// NewExecutionID generates a unique execution ID
func NewExecutionID() string {
	return uuid.NewString()
}

// Ensure returns ctx unchanged when an execution ID is already present,
// otherwise attaches a fresh one.
func Ensure(ctx context.Context) context.Context {
	if ExecutionID(ctx) != "" {
		return ctx
	}
	return WithExecutionID(ctx, NewExecutionID())
}
