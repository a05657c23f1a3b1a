package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/namrataroy/kderp/internal/journal"
	"github.com/namrataroy/kderp/internal/observe"
)

// RunnerOptions carries the observability and journalling surfaces for a
// batch run. Nil fields fall back to no-op implementations.
type RunnerOptions struct {
	Log      observe.Logger
	Metrics  observe.MetricsRecorder
	Tracer   observe.Tracer
	Audit    observe.AuditRecorder
	Journal  journal.Journal
	Now      func() time.Time
	NewRunID func() string
}

// Report summarizes one batch run. Skipped aggregates every skip state;
// Failed counts exposures whose correction errored. Outcomes preserves the
// input order.
type Report struct {
	RunID     string
	Started   time.Time
	Elapsed   time.Duration
	Attempted int
	Corrected int
	Skipped   int
	Failed    int
	Outcomes  []Outcome
}

// Runner drives a Processor over a list of exposures sequentially. A failed
// exposure never aborts the batch; only context cancellation stops the loop
// early.
type Runner struct {
	proc *Processor
	opts RunnerOptions
}

// NewRunner wires a runner around proc, filling unset options with no-ops.
func NewRunner(proc *Processor, opts RunnerOptions) *Runner {
	if opts.Log == nil {
		opts.Log = observe.NopLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = observe.NopMetrics{}
	}
	if opts.Tracer == nil {
		opts.Tracer = observe.NopTracer{}
	}
	if opts.Audit == nil {
		opts.Audit = observe.NopAudit{}
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Runner{proc: proc, opts: opts}
}

// Run processes recs in order and returns the aggregate report. The summary
// is journalled and logged even when the context is cancelled partway; the
// returned error is non-nil only for cancellation.
func (r *Runner) Run(ctx context.Context, recs []ExposureRecord) (Report, error) {
	report := Report{
		RunID:    r.opts.NewRunID(),
		Started:  r.opts.Now().UTC(),
		Outcomes: make([]Outcome, 0, len(recs)),
	}
	r.opts.Log.Info("batch started",
		"run_id", report.RunID,
		"mode", string(r.proc.cfg.Mode),
		"exposures", len(recs),
	)

	var runErr error
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			runErr = err
			r.opts.Log.Warn("batch cancelled", "run_id", report.RunID, "seq", rec.Seq, "error", err)
			break
		}
		out := r.processOne(ctx, report.RunID, rec)
		report.Outcomes = append(report.Outcomes, out)
		report.Attempted++
		switch {
		case out.State == StateCorrected:
			report.Corrected++
		case out.State == StateFailed:
			report.Failed++
		case out.State.Skipped():
			report.Skipped++
		}
	}

	report.Elapsed = r.opts.Now().UTC().Sub(report.Started)
	r.finish(ctx, report)
	return report, runErr
}

func (r *Runner) processOne(ctx context.Context, runID string, rec ExposureRecord) Outcome {
	spanCtx, span := r.opts.Tracer.Start(ctx, "process_exposure")
	out := r.proc.Process(spanCtx, rec)
	span.End(stateError(out))
	r.opts.Metrics.Observe(ctx, "process_exposure", out.State != StateFailed, out.Elapsed)
	r.opts.Audit.Record(ctx, observe.AuditEntry{
		Operation: "process_exposure",
		Status:    statusFor(out.State),
		Seq:       out.Seq,
		Reason:    out.Reason,
		Duration:  out.Elapsed,
		Timestamp: r.opts.Now().UTC(),
	})
	entry := journal.Entry{
		RunID:   runID,
		Seq:     out.Seq,
		State:   string(out.State),
		Reason:  out.Reason,
		CalFile: out.CalFile,
		Elapsed: out.Elapsed,
		At:      r.opts.Now().UTC(),
	}
	if err := r.opts.Journal.RecordEntry(ctx, entry); err != nil {
		r.opts.Log.Warn("journal entry failed", "run_id", runID, "seq", out.Seq, "error", err)
	}
	return out
}

func (r *Runner) finish(ctx context.Context, report Report) {
	summary := journal.Summary{
		RunID:     report.RunID,
		Mode:      string(r.proc.cfg.Mode),
		Started:   report.Started,
		Elapsed:   report.Elapsed,
		Attempted: report.Attempted,
		Corrected: report.Corrected,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
	}
	if err := r.opts.Journal.RecordSummary(ctx, summary); err != nil {
		r.opts.Log.Warn("journal summary failed", "run_id", report.RunID, "error", err)
	}
	r.opts.Metrics.Observe(ctx, "run_batch", report.Failed == 0, report.Elapsed)
	r.opts.Log.Info("batch finished",
		"run_id", report.RunID,
		"attempted", report.Attempted,
		"corrected", report.Corrected,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"elapsed_ms", float64(report.Elapsed)/float64(time.Millisecond),
	)
}

func statusFor(s State) observe.AuditStatus {
	switch s {
	case StateCorrected:
		return observe.AuditStatusSuccess
	case StateFailed:
		return observe.AuditStatusError
	default:
		return observe.AuditStatusSkipped
	}
}

func stateError(out Outcome) error {
	if out.State != StateFailed {
		return nil
	}
	return fmt.Errorf("process seq %d: %s", out.Seq, out.Reason)
}
