// Package memory provides an in-memory journal for tests and ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/namrataroy/kderp/internal/journal/core"
)

var _ core.Journal = (*Journal)(nil)

// Journal keeps run records in process memory. Safe for concurrent use.
type Journal struct {
	mu        sync.RWMutex
	entries   []core.Entry
	summaries map[string]core.Summary
}

// New returns an empty in-memory journal.
func New() *Journal {
	return &Journal{summaries: make(map[string]core.Summary)}
}

func (j *Journal) RecordEntry(_ context.Context, e core.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *Journal) RecordSummary(_ context.Context, s core.Summary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.summaries[s.RunID] = s
	return nil
}

func (j *Journal) Entries(_ context.Context, runID string) ([]core.Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []core.Entry
	for _, e := range j.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *Journal) Summaries(_ context.Context) ([]core.Summary, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]core.Summary, 0, len(j.summaries))
	for _, s := range j.summaries {
		out = append(out, s)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].Started.Equal(out[b].Started) {
			return out[a].Started.Before(out[b].Started)
		}
		return out[a].RunID < out[b].RunID
	})
	return out, nil
}

func (j *Journal) Close() error { return nil }
