package framestore

import (
	"github.com/namrataroy/kderp/internal/infra/framestore/fs"
)

// NewFilesystem constructs a filesystem-backed Store rooted at the provided path.
// Returns Store to encourage call sites to depend on the interface instead of
// concrete implementations.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
