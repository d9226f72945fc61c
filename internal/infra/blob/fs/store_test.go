package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"healthlog/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_PutGetHeadListDelete(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "family/household.json", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "family/household.json" || info.Size != 5 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "family/household.json", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	h, err := store.Head(ctx, "family/household.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	g, rc, err := store.Get(ctx, "family/household.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != "hello" || g.ETag != h.ETag || g.ETag != info.ETag || g.ContentType != "application/json" {
		t.Fatalf("unexpected get artifacts %+v", g)
	}
	list, err := store.List(ctx, "family/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "family/household.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	ok, err := store.Delete(ctx, "family/household.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "family/household.json")
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
	if _, _, err := store.Get(ctx, "family/household.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_PathTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "../escape.txt", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected traversal error")
	}
	if _, err := store.Put(ctx, "/abs.txt", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected absolute error")
	}
	if _, err := store.Put(ctx, " ", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestStore_ReplaceCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	first, err := store.Put(ctx, "log.json", bytes.NewReader([]byte("v1")), core.PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := store.Replace(ctx, "log.json", first.ETag, bytes.NewReader([]byte("v2")), core.PutOptions{})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if second.ETag == first.ETag {
		t.Fatalf("etag must change")
	}
	if _, err := store.Replace(ctx, "log.json", first.ETag, bytes.NewReader([]byte("v3")), core.PutOptions{}); !errors.Is(err, core.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	if _, err := store.Replace(ctx, "missing.json", "x", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// A file rewritten by an external sync client invalidates outstanding ETags
// even though the sidecar was not touched.
func TestStore_ReplaceDetectsExternalWrite(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "log.json", bytes.NewReader([]byte("v1")), core.PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	dataPath, _, _ := store.pathFor("log.json")
	if err := os.WriteFile(dataPath, []byte("from another device"), 0o644); err != nil {
		t.Fatalf("external write: %v", err)
	}
	if _, err := store.Replace(ctx, "log.json", info.ETag, bytes.NewReader([]byte("v2")), core.PutOptions{}); !errors.Is(err, core.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	fresh, err := store.Head(ctx, "log.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, err := store.Replace(ctx, "log.json", fresh.ETag, bytes.NewReader([]byte("v2")), core.PutOptions{}); err != nil {
		t.Fatalf("replace with fresh etag: %v", err)
	}
}

func TestStore_ListIncludesFilesWithoutSidecar(t *testing.T) {
	store := newTempStore(t)
	if err := os.WriteFile(filepath.Join(store.root, "dropped.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	list, err := store.List(context.Background(), "")
	if err != nil || len(list) != 1 || list[0].Key != "dropped.json" || list[0].Size != 2 {
		t.Fatalf("unexpected list %v %+v", err, list)
	}
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStore_PutReadError(t *testing.T) {
	store := newTempStore(t)
	if _, err := store.Put(context.Background(), "bad.bin", errorReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := os.Stat(filepath.Join(store.root, "bad.bin")); !os.IsNotExist(err) {
		t.Fatalf("failed write must not leave a file")
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("expected fs driver")
	}
}
