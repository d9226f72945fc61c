// Package blob re-exports the document store abstractions and selects a
// concrete driver. Callers outside this package depend on Store only.
package blob

import (
	"healthlog/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// PreconditionError reports a Replace against a stale ETag.
	PreconditionError = core.PreconditionError
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	ErrNotFound           = core.ErrNotFound
	ErrExists             = core.ErrExists
	ErrPreconditionFailed = core.ErrPreconditionFailed
	ErrForbidden          = core.ErrForbidden
	ErrUnavailable        = core.ErrUnavailable
	ErrUnsupported        = core.ErrUnsupported
)
