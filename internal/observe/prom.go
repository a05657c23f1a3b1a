package observe

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromRecorder fulfills MetricsRecorder on a private prometheus registry so
// batch runs can expose or push their counters without touching the default
// registry.
type PromRecorder struct {
	reg        *prometheus.Registry
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPromRecorder constructs a recorder with an operations counter and a
// duration histogram registered on a fresh registry.
func NewPromRecorder() *PromRecorder {
	reg := prometheus.NewRegistry()
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kderp_operations_total",
		Help: "Reduction operations by outcome.",
	}, []string{"operation", "status"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kderp_operation_seconds",
		Help:    "Reduction operation wall time in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(operations, durations)
	return &PromRecorder{reg: reg, operations: operations, durations: durations}
}

// Observe records an operation outcome.
func (r *PromRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// Registry exposes the private registry for HTTP handlers or pushers.
func (r *PromRecorder) Registry() *prometheus.Registry { return r.reg }

var _ MetricsRecorder = (*PromRecorder)(nil)
