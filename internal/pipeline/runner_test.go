package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/namrataroy/kderp/internal/calib"
	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/framestore"
	"github.com/namrataroy/kderp/internal/journal"
	"github.com/namrataroy/kderp/internal/observe"
)

type captureMetrics struct {
	ops       []string
	successes []bool
}

func (m *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	m.ops = append(m.ops, op)
	m.successes = append(m.successes, success)
}

type captureAudit struct {
	entries []observe.AuditEntry
}

func (a *captureAudit) Record(_ context.Context, e observe.AuditEntry) {
	a.entries = append(a.entries, e)
}

type countBuilder struct {
	inner calib.Builder
	calls int
}

func (b *countBuilder) Build(ctx context.Context, req calib.BuildRequest) error {
	b.calls++
	return b.inner.Build(ctx, req)
}

type failingJournal struct{}

func (failingJournal) RecordEntry(context.Context, journal.Entry) error {
	return errors.New("journal down")
}

func (failingJournal) RecordSummary(context.Context, journal.Summary) error {
	return errors.New("journal down")
}

func (failingJournal) Entries(context.Context, string) ([]journal.Entry, error) { return nil, nil }

func (failingJournal) Summaries(context.Context) ([]journal.Summary, error) { return nil, nil }

func (failingJournal) Close() error { return nil }

func TestRunnerReportCountsAndJournal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, framestore.NewMemory(), ProcessorConfig{Mode: calib.KindDark})
	shape := frame.Shape{Slices: 1, X: 2, Lambda: 4}

	// seq 20 corrects, 21 has no input, 22 has no calibration, 23 fails on a
	// shape-inconsistent variance.
	h.seedDarkScience(t, ctx, shape)
	h.seedDarkInput(t, ctx, shape)
	sci22 := fillFrame(shape, 10)
	h.write(t, ctx, "kb00022_icube.frm", sci22)
	sci23 := fillFrame(shape, 10)
	h.write(t, ctx, "kb00023_icube.frm", sci23)
	h.write(t, ctx, "kb00023_vcube.frm", fillFrame(frame.Shape{Slices: 2, X: 2, Lambda: 4}, 1))

	recs, err := FromLists([]int{20, 21, 22, 23}, []int{7, 7, -1, 7})
	if err != nil {
		t.Fatalf("from lists: %v", err)
	}

	jnl := journal.NewMemory()
	metrics := &captureMetrics{}
	audit := &captureAudit{}
	runner := NewRunner(h.proc, RunnerOptions{
		Metrics:  metrics,
		Audit:    audit,
		Journal:  jnl,
		NewRunID: func() string { return "run-1" },
	})

	report, err := runner.Run(ctx, recs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RunID != "run-1" {
		t.Fatalf("run id %q", report.RunID)
	}
	if report.Attempted != 4 || report.Corrected != 1 || report.Skipped != 2 || report.Failed != 1 {
		t.Fatalf("counts attempted=%d corrected=%d skipped=%d failed=%d",
			report.Attempted, report.Corrected, report.Skipped, report.Failed)
	}
	wantStates := []State{StateCorrected, StateSkippedNoInput, StateSkippedNoCalib, StateFailed}
	if len(report.Outcomes) != len(wantStates) {
		t.Fatalf("expected %d outcomes, got %d", len(wantStates), len(report.Outcomes))
	}
	for i, out := range report.Outcomes {
		if out.State != wantStates[i] {
			t.Fatalf("outcome %d: state %s, want %s (%s)", i, out.State, wantStates[i], out.Reason)
		}
	}

	entries, err := jnl.Entries(ctx, "run-1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 journal entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.State != string(wantStates[i]) {
			t.Fatalf("entry %d: state %q, want %q", i, e.State, wantStates[i])
		}
	}
	if entries[0].CalFile != "kb00007_mdark.frm" {
		t.Fatalf("corrected entry should carry the cal file, got %q", entries[0].CalFile)
	}

	summaries, err := jnl.Summaries(ctx)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	sum := summaries[0]
	if sum.Mode != string(calib.KindDark) || sum.Attempted != 4 || sum.Corrected != 1 || sum.Skipped != 2 || sum.Failed != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	if len(metrics.ops) != 5 || metrics.ops[4] != "run_batch" {
		t.Fatalf("metrics ops %v", metrics.ops)
	}
	// Skips observe as successes; only the genuine failure and the batch
	// containing it observe false.
	wantSuccess := []bool{true, true, true, false, false}
	for i, s := range metrics.successes {
		if s != wantSuccess[i] {
			t.Fatalf("metric %d success=%v, want %v", i, s, wantSuccess[i])
		}
	}

	wantStatus := []observe.AuditStatus{
		observe.AuditStatusSuccess,
		observe.AuditStatusSkipped,
		observe.AuditStatusSkipped,
		observe.AuditStatusError,
	}
	if len(audit.entries) != len(wantStatus) {
		t.Fatalf("expected %d audit entries, got %d", len(wantStatus), len(audit.entries))
	}
	for i, e := range audit.entries {
		if e.Status != wantStatus[i] || e.Operation != "process_exposure" {
			t.Fatalf("audit %d: %+v", i, e)
		}
	}
}

func TestRunnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newHarness(t, framestore.NewMemory(), ProcessorConfig{Mode: calib.KindDark})
	jnl := journal.NewMemory()
	runner := NewRunner(h.proc, RunnerOptions{Journal: jnl})

	report, err := runner.Run(ctx, []ExposureRecord{{Seq: 20, CalibSeq: 7}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Attempted != 0 {
		t.Fatalf("cancelled run attempted %d", report.Attempted)
	}
	summaries, err := jnl.Summaries(context.Background())
	if err != nil || len(summaries) != 1 {
		t.Fatalf("summary should record even on cancel: %v %d", err, len(summaries))
	}
	if summaries[0].Attempted != 0 {
		t.Fatalf("unexpected summary %+v", summaries[0])
	}
}

func TestRunnerSharedCalibrationBuildsOnce(t *testing.T) {
	ctx := context.Background()
	store := framestore.NewMemory()
	naming := calib.Naming{Prefix: "kb"}
	builder := &countBuilder{inner: &calib.CopyBuilder{Store: store}}
	cache := calib.NewCache(store, naming, builder, nil, nil)
	proc, err := NewProcessor(store, cache, naming, ProcessorConfig{Mode: calib.KindDark}, nil)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	h := &harness{store: store, naming: naming, cache: cache, proc: proc, log: &captureLogger{}}

	shape := frame.Shape{Slices: 1, X: 2, Lambda: 4}
	for _, seq := range []int{20, 21} {
		sci := fillFrame(shape, 10)
		sci.Header.Set(frame.KeyExpTime, 30.0)
		h.write(t, ctx, naming.FramePath(seq, "_icube"), sci)
	}
	h.seedDarkInput(t, ctx, shape)

	recs, _ := FromLists([]int{20, 21}, []int{7, 7})
	report, err := NewRunner(proc, RunnerOptions{}).Run(ctx, recs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Corrected != 2 {
		t.Fatalf("corrected %d of 2: %+v", report.Corrected, report.Outcomes)
	}
	if builder.calls != 1 {
		t.Fatalf("master built %d times, want 1", builder.calls)
	}
}

func TestRunnerJournalFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, framestore.NewMemory(), ProcessorConfig{Mode: calib.KindDark})
	shape := frame.Shape{Slices: 1, X: 2, Lambda: 4}
	h.seedDarkScience(t, ctx, shape)
	h.seedDarkInput(t, ctx, shape)

	log := &captureLogger{}
	runner := NewRunner(h.proc, RunnerOptions{Log: log, Journal: failingJournal{}})
	report, err := runner.Run(ctx, []ExposureRecord{{Seq: 20, CalibSeq: 7}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Corrected != 1 {
		t.Fatalf("corrected %d: %+v", report.Corrected, report.Outcomes)
	}
	var entryWarn, summaryWarn bool
	for _, w := range log.warns {
		if strings.Contains(w, "journal entry failed") {
			entryWarn = true
		}
		if strings.Contains(w, "journal summary failed") {
			summaryWarn = true
		}
	}
	if !entryWarn || !summaryWarn {
		t.Fatalf("expected journal warnings, got %v", log.warns)
	}
}

func TestRunnerDefaultsGenerateRunID(t *testing.T) {
	h := newHarness(t, framestore.NewMemory(), ProcessorConfig{Mode: calib.KindDark})
	report, err := NewRunner(h.proc, RunnerOptions{}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RunID == "" {
		t.Fatalf("expected a generated run id")
	}
	if report.Attempted != 0 || len(report.Outcomes) != 0 {
		t.Fatalf("empty batch report %+v", report)
	}
}
