// Package core defines the storage contract shared by the document store
// drivers.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem stores documents as files under a root directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 targets an S3 compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps documents in process memory (tests, demos).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put and Replace.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored blob. ETag changes on every content change and is
// the precondition token for Replace.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a small object store with compare-and-swap updates.
type Store interface {
	// Put creates key and fails with ErrExists when it is already present.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Replace overwrites key only while its current ETag equals ifMatch.
	Replace(ctx context.Context, key, ifMatch string, r io.Reader, opts PutOptions) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("blobstore: not found")
	// ErrExists is returned by Put when the key is taken.
	ErrExists = errors.New("blobstore: already exists")
	// ErrPreconditionFailed is returned by Replace when the ETag moved on.
	ErrPreconditionFailed = errors.New("blobstore: precondition failed")
	// ErrForbidden is returned when the backend refuses access.
	ErrForbidden = errors.New("blobstore: forbidden")
	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("blobstore: unavailable")
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("blobstore: unsupported operation")
)

// PreconditionError carries the ETag a Replace expected and the one found.
type PreconditionError struct {
	Key      string
	Expected string
	Actual   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("blob %s: etag %s does not match %s", e.Key, e.Expected, e.Actual)
}

// Is reports ErrPreconditionFailed so callers can match the sentinel.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionFailed
}

// NotFound wraps ErrNotFound with the key.
func NotFound(key string) error {
	return fmt.Errorf("blob %s: %w", key, ErrNotFound)
}

// Exists wraps ErrExists with the key.
func Exists(key string) error {
	return fmt.Errorf("blob %s: %w", key, ErrExists)
}
