// Package core defines core abstractions for frame storage backends
// used internally by the reduction stages.
package core

import (
	"context"
	"errors"

	"github.com/namrataroy/kderp/internal/frame"
)

// Driver identifies a concrete frame storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// Store provides keyed persistence for science frames and masks. Keys are
// slash-separated relative paths; variance, mask, and companion arrays live
// under their own keys rather than inside a multi-extension container.
type Store interface {
	// Write stores a new frame at key. MUST fail if the key already exists;
	// replacement is an explicit Delete followed by Write at the call site.
	Write(ctx context.Context, key string, f *frame.Frame) error
	// WriteMask stores a new mask at key with the same create-only semantics.
	WriteMask(ctx context.Context, key string, m *frame.MaskFrame) error
	// Read loads the frame at key. Returns an error wrapping ErrNotFound if missing.
	Read(ctx context.Context, key string) (*frame.Frame, error)
	// ReadMask loads the mask at key. Returns an error wrapping ErrNotFound if missing.
	ReadMask(ctx context.Context, key string) (*frame.MaskFrame, error)
	// Exists reports whether a frame or mask is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object at key. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns keys with the provided prefix. Stable ordering, key ascending.
	List(ctx context.Context, prefix string) ([]string, error)
	// Driver returns the configured backend driver string.
	Driver() Driver
}

var (
	// ErrNotFound indicates no object is stored at the requested key.
	ErrNotFound = errors.New("framestore: frame not found")
	// ErrExists indicates a create-only write hit an existing key.
	ErrExists = errors.New("framestore: frame already exists")
)
