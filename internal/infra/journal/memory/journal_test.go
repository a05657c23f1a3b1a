package memory

import (
	"context"
	"testing"
	"time"

	"github.com/namrataroy/kderp/internal/journal/core"
)

func TestJournalEntriesFilterByRun(t *testing.T) {
	ctx := context.Background()
	j := New()
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, runID := range []string{"run-a", "run-b", "run-a"} {
		err := j.RecordEntry(ctx, core.Entry{
			RunID:   runID,
			Seq:     i,
			State:   "corrected",
			Elapsed: time.Duration(i) * time.Millisecond,
			At:      at.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("record entry %d: %v", i, err)
		}
	}

	got, err := j.Entries(ctx, "run-a")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 0 || got[1].Seq != 2 {
		t.Fatalf("run-a entries = %+v", got)
	}
	if other, _ := j.Entries(ctx, "run-c"); len(other) != 0 {
		t.Fatalf("unknown run returned entries: %+v", other)
	}
}

func TestJournalSummaryUpsert(t *testing.T) {
	ctx := context.Background()
	j := New()
	started := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	first := core.Summary{RunID: "run-a", Mode: "dark", Started: started, Attempted: 3, Corrected: 1, Skipped: 2}
	if err := j.RecordSummary(ctx, first); err != nil {
		t.Fatalf("record summary: %v", err)
	}
	second := first
	second.Corrected = 3
	second.Skipped = 0
	if err := j.RecordSummary(ctx, second); err != nil {
		t.Fatalf("re-record summary: %v", err)
	}
	if err := j.RecordSummary(ctx, core.Summary{RunID: "run-0", Mode: "dark", Started: started.Add(-time.Hour)}); err != nil {
		t.Fatalf("record earlier summary: %v", err)
	}

	got, err := j.Summaries(ctx)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("summaries = %+v, want 2", got)
	}
	if got[0].RunID != "run-0" || got[1].RunID != "run-a" {
		t.Fatalf("summaries not ordered by start time: %+v", got)
	}
	if got[1].Corrected != 3 || got[1].Skipped != 0 {
		t.Fatalf("summary not replaced: %+v", got[1])
	}
}

func TestJournalCloseIsNoop(t *testing.T) {
	j := New()
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := j.RecordEntry(context.Background(), core.Entry{RunID: "r"}); err != nil {
		t.Fatalf("record after close: %v", err)
	}
}
