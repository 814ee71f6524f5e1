package ports

import (
	"context"

	"github.com/google/uuid"
)

// Logger is the structured logging contract shared by every layer. Calls take
// key/value pairs, must be safe for concurrent use, and enrich entries with
// the correlation ID carried by the context. Common fields:
//   - correlation_id (UUIDv4, one per CLI command or scheduler fire)
//   - layer (application|infrastructure)
//   - component (releases, scheduler, storage, schemas)
//   - release_id / action_id / content_type
//   - duration_ms for publish runs
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

type correlationIDKey struct{}

// WithCorrelationID attaches the provided correlation ID to the context so
// downstream layers can emit correlated logs and events.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID extracts a correlation ID from context. It returns an empty
// string when none has been set; callers treat that as "uncorrelated".
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GenerateCorrelationID produces a new UUIDv4 string suitable for log
// correlation. CLI entry points call it once per command; the scheduler calls
// it once per fired timer.
func GenerateCorrelationID() string {
	return uuid.NewString()
}
