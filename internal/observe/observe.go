// Package observe defines the injected observability surfaces shared by the
// reduction stages: leveled logging, operation metrics, trace spans, and
// per-exposure audit records. Components hold these interfaces; wiring picks
// the implementations.
package observe

import (
	"context"
	"time"
)

// Logger is the minimal leveled logging surface components depend on.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards all records. The zero value is ready to use.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// MetricsRecorder aggregates operation outcomes and timings.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens a span per operation; spans are closed with the operation's error.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, Span)
}

// Span terminates a traced operation.
type Span interface {
	End(err error)
}

// AuditStatus classifies an audited operation outcome.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusSkipped AuditStatus = "skipped"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records one exposure-level decision for operational review.
type AuditEntry struct {
	Operation string
	Status    AuditStatus
	Seq       int
	Reason    string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries. Implementations must not block the batch.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// NopMetrics ignores all observations.
type NopMetrics struct{}

func (NopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// NopTracer produces spans that do nothing.
type NopTracer struct{}

func (NopTracer) Start(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

type nopSpan struct{}

func (nopSpan) End(error) {}

// NopAudit drops all entries.
type NopAudit struct{}

func (NopAudit) Record(context.Context, AuditEntry) {}

// LoggerAudit forwards audit entries to a Logger at info level.
type LoggerAudit struct {
	Log Logger
}

func (a LoggerAudit) Record(_ context.Context, entry AuditEntry) {
	if a.Log == nil {
		return
	}
	a.Log.Info("audit",
		"operation", entry.Operation,
		"status", string(entry.Status),
		"seq", entry.Seq,
		"reason", entry.Reason,
		"duration_ms", float64(entry.Duration)/float64(time.Millisecond),
	)
}

var (
	_ Logger          = NopLogger{}
	_ MetricsRecorder = NopMetrics{}
	_ Tracer          = NopTracer{}
	_ AuditRecorder   = NopAudit{}
	_ AuditRecorder   = LoggerAudit{}
)
