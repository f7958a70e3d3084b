package tracing

import (
	"context"

	"go.uber.org/zap"
)

// NotAvailable is the trace id stand-in outside any traced request, so log
// lines always carry a trace field.
const NotAvailable = "N/A"

// Context keys for trace propagation
type contextKey string

const activeContextKey contextKey = "swagent_context"

// WithContext binds a tracing context to ctx for propagation through call
// chains and into log correlation.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, activeContextKey, tc)
}

// FromContext retrieves the tracing context bound to ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	tc, ok := ctx.Value(activeContextKey).(*Context)
	if !ok || tc == nil {
		return nil, false
	}
	return tc, true
}

// TraceID returns the active global trace id for log correlation, or the
// NotAvailable marker when ctx carries no trace. Never panics, nil-safe.
func TraceID(ctx context.Context) string {
	tc, ok := FromContext(ctx)
	if !ok {
		return NotAvailable
	}
	return tc.segment.TraceID.String()
}

// LogField returns the trace id as a zap field for request-scoped logging.
func LogField(ctx context.Context) zap.Field {
	return zap.String("trace_id", TraceID(ctx))
}
