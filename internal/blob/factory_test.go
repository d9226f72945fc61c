package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("default driver: %v %v", err, fsStore)
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory driver: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

// Every driver implements the same compare-and-swap contract.
func TestDriversShareReplaceContract(t *testing.T) {
	ctx := context.Background()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	stores := map[string]Store{"fs": fsStore, "memory": NewMemory(), "s3": NewMockS3ForTests()}
	for name, store := range stores {
		first, err := store.Put(ctx, "health-log.json", bytes.NewReader([]byte(`{"v":1}`)), PutOptions{ContentType: "application/json"})
		if err != nil {
			t.Fatalf("%s put: %v", name, err)
		}
		if _, err := store.Put(ctx, "health-log.json", bytes.NewReader([]byte(`{}`)), PutOptions{}); !errors.Is(err, ErrExists) {
			t.Fatalf("%s: expected ErrExists, got %v", name, err)
		}
		second, err := store.Replace(ctx, "health-log.json", first.ETag, bytes.NewReader([]byte(`{"v":2}`)), PutOptions{})
		if err != nil {
			t.Fatalf("%s replace: %v", name, err)
		}
		_, err = store.Replace(ctx, "health-log.json", first.ETag, bytes.NewReader([]byte(`{"v":3}`)), PutOptions{})
		if !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("%s: expected precondition failure, got %v", name, err)
		}
		head, err := store.Head(ctx, "health-log.json")
		if err != nil || head.ETag != second.ETag {
			t.Fatalf("%s: head etag %q want %q (%v)", name, head.ETag, second.ETag, err)
		}
		if _, _, err := store.Get(ctx, "missing.json"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
	}
}
