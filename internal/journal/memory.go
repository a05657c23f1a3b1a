package journal

import memoryjournal "github.com/namrataroy/kderp/internal/infra/journal/memory"

// NewMemory returns an in-memory journal.
func NewMemory() Journal { return memoryjournal.New() }
