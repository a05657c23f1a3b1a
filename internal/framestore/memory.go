package framestore

import (
	memorystore "github.com/namrataroy/kderp/internal/infra/framestore/memory"
)

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }
