package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type key string

// TraceIDKey is the context key under which the per-request trace id is stored.
const TraceIDKey key = "trace_id"

// WithTraceID attaches a trace id to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id stored in the context, or "" if absent.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// GetTraceIdOfRequest returns the trace id of the inbound request,
// generating one when the middleware has not set it yet.
func GetTraceIdOfRequest(c *gin.Context) string {
	traceID := GetTraceID(c.Request.Context())
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return traceID
}
