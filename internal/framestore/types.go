// Package framestore re-exports core frame storage abstractions for stable
// internal imports and selects concrete backends.
package framestore

import (
	"github.com/namrataroy/kderp/internal/framestore/core"
)

type (
	// Driver identifies a frame store backend driver.
	Driver = core.Driver
	// Store is the interface for frame storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound indicates no object is stored at the requested key.
	ErrNotFound = core.ErrNotFound
	// ErrExists indicates a create-only write hit an existing key.
	ErrExists = core.ErrExists
)
