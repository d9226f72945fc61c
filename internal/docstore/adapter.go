// Package docstore is the contract between the sync engine and the remote
// file store holding the household and log documents, plus an implementation
// over blob.Store.
package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"healthlog/internal/blob"
)

// Handle is an opaque reference to a remote file or folder.
type Handle string

// ReadResult is a file's content together with its version token.
type ReadResult struct {
	Bytes []byte
	Token string
	Name  string
}

// WriteResult carries the token of the version just written.
type WriteResult struct {
	Token string
	Name  string
}

// CreateResult describes a newly created file.
type CreateResult struct {
	Handle Handle
	Token  string
	Name   string
}

// Identity is the signed-in account, when the store knows it.
type Identity struct {
	EmailAddress string
}

// Adapter is the remote file store as seen by the sync engine.
type Adapter interface {
	Read(ctx context.Context, h Handle) (ReadResult, error)
	// WriteConditional replaces the file only if its version still equals token.
	WriteConditional(ctx context.Context, h Handle, token string, data []byte) (WriteResult, error)
	// CreateFile creates name under parent. An existing file is never
	// overwritten; a unique name is chosen instead.
	CreateFile(ctx context.Context, parent Handle, name string, data []byte) (CreateResult, error)
	PickExistingFile(ctx context.Context) (Handle, error)
	PickFolder(ctx context.Context) (Handle, error)
	// CurrentUserIdentity is best effort; failures yield a zero Identity.
	CurrentUserIdentity(ctx context.Context) Identity
}

const (
	contentType       = "application/json"
	maxNameCandidates = 100
)

// BlobAdapter implements Adapter over a blob.Store. Handles are blob keys;
// tokens are ETags.
type BlobAdapter struct {
	store   blob.Store
	session *Session
}

// NewBlobAdapter wraps store. A nil session gets a default one with no
// picker and no identity.
func NewBlobAdapter(store blob.Store, session *Session) *BlobAdapter {
	if session == nil {
		session = NewSession(nil, nil)
	}
	return &BlobAdapter{store: store, session: session}
}

// Store returns the underlying blob store.
func (a *BlobAdapter) Store() blob.Store { return a.store }

func (a *BlobAdapter) Read(ctx context.Context, h Handle) (ReadResult, error) {
	info, rc, err := a.store.Get(ctx, string(h))
	if err != nil {
		return ReadResult{}, classify("read", h, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return ReadResult{}, classify("read", h, err)
	}
	return ReadResult{Bytes: data, Token: info.ETag, Name: path.Base(info.Key)}, nil
}

func (a *BlobAdapter) WriteConditional(ctx context.Context, h Handle, token string, data []byte) (WriteResult, error) {
	if token == "" {
		return WriteResult{}, fmt.Errorf("write %s: %w", h, ErrMissingToken)
	}
	info, err := a.store.Replace(ctx, string(h), token, bytes.NewReader(data), blob.PutOptions{ContentType: contentType})
	if err != nil {
		var pe *blob.PreconditionError
		if errors.As(err, &pe) {
			return WriteResult{}, &ConflictError{Handle: h, ExpectedToken: token, CurrentToken: pe.Actual}
		}
		return WriteResult{}, classify("write", h, err)
	}
	return WriteResult{Token: info.ETag, Name: path.Base(info.Key)}, nil
}

func (a *BlobAdapter) CreateFile(ctx context.Context, parent Handle, name string, data []byte) (CreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return CreateResult{}, fmt.Errorf("create: invalid file name %q", name)
	}
	for i := 1; i <= maxNameCandidates; i++ {
		candidate := candidateName(name, i)
		key := path.Join(string(parent), candidate)
		info, err := a.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: contentType})
		if errors.Is(err, blob.ErrExists) {
			continue
		}
		if err != nil {
			return CreateResult{}, classify("create", Handle(key), err)
		}
		return CreateResult{Handle: Handle(key), Token: info.ETag, Name: candidate}, nil
	}
	return CreateResult{}, fmt.Errorf("create %s: no free name after %d attempts", name, maxNameCandidates)
}

// candidateName returns name for the first attempt and "base (n).ext" after.
func candidateName(name string, attempt int) string {
	if attempt == 1 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), attempt, ext)
}

// PickExistingFile offers the JSON files in the store to the session picker.
func (a *BlobAdapter) PickExistingFile(ctx context.Context) (Handle, error) {
	infos, err := a.store.List(ctx, "")
	if err != nil {
		return "", classify("list", "", err)
	}
	var files []string
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".json") {
			files = append(files, info.Key)
		}
	}
	return a.session.pickFile(ctx, files)
}

// PickFolder offers the folders that already hold files, plus the root.
func (a *BlobAdapter) PickFolder(ctx context.Context) (Handle, error) {
	infos, err := a.store.List(ctx, "")
	if err != nil {
		return "", classify("list", "", err)
	}
	seen := map[string]bool{"": true}
	folders := []string{""}
	for _, info := range infos {
		dir := path.Dir(info.Key)
		if dir == "." || seen[dir] {
			continue
		}
		seen[dir] = true
		folders = append(folders, dir)
	}
	return a.session.pickFolder(ctx, folders)
}

func (a *BlobAdapter) CurrentUserIdentity(ctx context.Context) Identity {
	return a.session.identity(ctx)
}

// classify maps blob failures onto the docstore sentinels, keeping the cause.
func classify(op string, h Handle, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, h, err)
	case errors.Is(err, blob.ErrNotFound):
		return fmt.Errorf("%s %s: %w: %w", op, h, ErrNotFound, err)
	case errors.Is(err, blob.ErrForbidden):
		return fmt.Errorf("%s %s: %w: %w", op, h, ErrForbidden, err)
	case errors.Is(err, blob.ErrUnavailable):
		return fmt.Errorf("%s %s: %w: %w", op, h, ErrOffline, err)
	case errors.Is(err, blob.ErrPreconditionFailed):
		return fmt.Errorf("%s %s: %w: %w", op, h, ErrPreconditionFailed, err)
	default:
		return fmt.Errorf("%s %s: %w", op, h, err)
	}
}
