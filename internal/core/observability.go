package core

import (
	"context"
	"time"
)

// Logger is the minimal structured logging interface consumed by the service.
// Args are alternating key/value pairs in the slog style.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditStatus classifies the outcome recorded in an audit entry.
type AuditStatus string

const (
	// AuditStatusSuccess marks an operation that committed.
	AuditStatusSuccess AuditStatus = "success"
	// AuditStatusError marks an operation that failed or was blocked.
	AuditStatusError AuditStatus = "error"
)

// AuditEntry captures one service-level operation for compliance trails.
type AuditEntry struct {
	Operation  string        `json:"operation"`
	Status     AuditStatus   `json:"status"`
	EntityID   string        `json:"entity_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	Violations []Violation   `json:"violations,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	At         time.Time     `json:"at"`
}

// AuditRecorder receives audit entries emitted after each service operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation outcomes for aggregation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan is an in-flight span completed when the operation returns.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}
