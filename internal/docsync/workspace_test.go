package docsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"healthlog/internal/blob"
	"healthlog/internal/docstore"
	"healthlog/pkg/domain"
)

type mapHandles struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapHandles() *mapHandles { return &mapHandles{m: map[string]string{}} }

func (h *mapHandles) Get(_ context.Context, key string) (string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.m[key]
	return v, ok, nil
}

func (h *mapHandles) Set(_ context.Context, key, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[key] = value
	return nil
}

func (h *mapHandles) Delete(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.m, key)
	return nil
}

func bootstrapped(t *testing.T, adapter docstore.Adapter, handles HandleStore, opts ...Option) *Workspace {
	t.Helper()
	ws := NewWorkspace(adapter, handles, opts...)
	if err := ws.Bootstrap(context.Background(), "family"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return ws
}

func TestBootstrapThenOpen(t *testing.T) {
	ctx := context.Background()
	adapter := docstore.NewBlobAdapter(blob.NewMemory(), docstore.NewSession(nil, docstore.StaticIdentity("ada@example.com")))
	handles := newMapHandles()
	first := bootstrapped(t, adapter, handles, WithClock(newStepClock()))

	snap := first.Snapshot()
	if !snap.HasHousehold || !snap.HasLog || snap.LastSyncedAt.IsZero() {
		t.Fatalf("expected both documents after bootstrap: %+v", snap)
	}
	if snap.Identity.EmailAddress != "ada@example.com" {
		t.Fatalf("expected identity, got %+v", snap.Identity)
	}
	if h, _, _ := handles.Get(ctx, KeyLog); h != "family/health-log.json" {
		t.Fatalf("log handle not remembered: %q", h)
	}

	if _, err := first.UpdateLog(ctx, addTemp("member-1", 38.5, base)); err != nil {
		t.Fatalf("update: %v", err)
	}

	second := NewWorkspace(adapter, handles)
	if err := second.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	got := second.Snapshot()
	if len(got.Log.Temps) != 1 || len(got.Household.Members) != domain.MemberSlots {
		t.Fatalf("unexpected reopened state: %d temps, %d members", len(got.Log.Temps), len(got.Household.Members))
	}

	// A second bootstrap in the same folder never clobbers the first files.
	third := bootstrapped(t, adapter, newMapHandles())
	if third.Snapshot().LogName != "health-log (2).json" {
		t.Fatalf("expected a unique name, got %q", third.Snapshot().LogName)
	}
}

func TestOpenWithoutHandles(t *testing.T) {
	ws := NewWorkspace(docstore.NewBlobAdapter(blob.NewMemory(), nil), newMapHandles())
	if err := ws.Open(context.Background()); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	if _, err := ws.UpdateLog(context.Background(), addTemp("member-1", 37, base)); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestOpenMissingRemoteFile(t *testing.T) {
	handles := newMapHandles()
	_ = handles.Set(context.Background(), KeyLog, "gone.json")
	ws := NewWorkspace(docstore.NewBlobAdapter(blob.NewMemory(), nil), handles)
	err := ws.Open(context.Background())
	if docstore.KindOf(err) != docstore.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if ws.Snapshot().HasLog {
		t.Fatalf("failed open must not populate state")
	}
}

func TestFailedCommitLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	racer := &racingAdapter{Adapter: docstore.NewBlobAdapter(blob.NewMemory(), nil)}
	ws := bootstrapped(t, racer, nil)
	before := ws.Snapshot()

	racer.writeErr = fmt.Errorf("write: %w", docstore.ErrOffline)
	_, err := ws.UpdateLog(ctx, addTemp("member-1", 38, base))
	if !errors.Is(err, docstore.ErrOffline) {
		t.Fatalf("expected offline, got %v", err)
	}
	after := ws.Snapshot()
	if len(after.Log.Temps) != 0 || after.LastSyncedAt != before.LastSyncedAt {
		t.Fatalf("state changed after failed commit")
	}
	if !strings.Contains(UserMessage(err), "could not be reached") {
		t.Fatalf("unexpected message %q", UserMessage(err))
	}

	racer.writeErr = nil
	if _, err := ws.UpdateLog(ctx, addTemp("member-1", 38, base)); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestConcurrentCommitIsRejected(t *testing.T) {
	ctx := context.Background()
	ws := bootstrapped(t, docstore.NewBlobAdapter(blob.NewMemory(), nil), nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := ws.UpdateLog(ctx, func(d domain.LogDocument) (domain.LogDocument, error) {
			close(entered)
			<-release
			return d, nil
		})
		done <- err
	}()
	<-entered
	if !ws.Busy() {
		t.Fatalf("expected busy while commit in flight")
	}
	if _, err := ws.UpdateHousehold(ctx, func(h domain.Household) (domain.Household, error) { return h, nil }); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if ws.Busy() {
		t.Fatalf("busy flag must clear")
	}
}

func TestTwoDevicesMergeAndNotify(t *testing.T) {
	ctx := context.Background()
	adapter := docstore.NewBlobAdapter(blob.NewMemory(), nil)
	handles := newMapHandles()
	phone := bootstrapped(t, adapter, handles, WithClock(newStepClock()))
	laptop := NewWorkspace(adapter, handles)
	if err := laptop.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	later := base.Add(time.Hour)
	var notified []Snapshot
	laptop.OnChange(func(s Snapshot) { notified = append(notified, s) })

	if _, err := phone.UpdateHousehold(ctx, func(h domain.Household) (domain.Household, error) {
		return domain.RenameMember(h, "member-1", "Ada", later)
	}); err != nil {
		t.Fatalf("phone rename: %v", err)
	}
	merged, err := laptop.UpdateHousehold(ctx, func(h domain.Household) (domain.Household, error) {
		return domain.SetMemberColor(h, "member-2", "#000000", later.Add(time.Minute))
	})
	if err != nil {
		t.Fatalf("laptop color: %v", err)
	}
	if !merged {
		t.Fatalf("expected merge")
	}
	hh := laptop.Snapshot().Household
	if hh.Members[0].Name != "Ada" || hh.Members[1].AccentColor != "#000000" {
		t.Fatalf("expected both edits, got %+v", hh.Members)
	}
	if len(notified) != 1 || notified[0].Household.Members[0].Name != "Ada" {
		t.Fatalf("expected one change notification")
	}

	if err := phone.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if phone.Snapshot().Household.Members[1].AccentColor != "#000000" {
		t.Fatalf("refresh did not pick up remote change")
	}
}

func TestAttachAndForget(t *testing.T) {
	ctx := context.Background()
	adapter := docstore.NewBlobAdapter(blob.NewMemory(), nil)
	source := bootstrapped(t, adapter, nil)
	snap := source.Snapshot()

	handles := newMapHandles()
	ws := NewWorkspace(adapter, handles)
	if err := ws.AttachLog(ctx, docstore.Handle("family/"+snap.LogName)); err != nil {
		t.Fatalf("attach log: %v", err)
	}
	if err := ws.AttachHousehold(ctx, docstore.Handle("family/"+snap.HouseholdName)); err != nil {
		t.Fatalf("attach household: %v", err)
	}
	if v, ok, _ := handles.Get(ctx, KeyHousehold); !ok || v != "family/household.json" {
		t.Fatalf("attach must remember handle, got %q", v)
	}
	if err := ws.AttachLog(ctx, ""); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument for empty handle, got %v", err)
	}

	if err := ws.Forget(ctx); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, _ := handles.Get(ctx, KeyLog); ok {
		t.Fatalf("handle must be forgotten")
	}
	if s := ws.Snapshot(); s.HasLog || s.HasHousehold {
		t.Fatalf("state must be cleared")
	}
}

func TestPrometheusRecorder(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	again, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}

	adapter := docstore.NewBlobAdapter(blob.NewMemory(), nil)
	orch, v0 := newLog(t, adapter, WithMetricsRecorder(MultiRecorder{rec, NewExpvarMetricsRecorder("")}))
	if _, err := orch.Commit(ctx, v0, startEpisode("member-1", "flu", base)); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := orch.Commit(ctx, v0, startEpisode("member-2", "cold", base)); err != nil {
		t.Fatalf("merged commit: %v", err)
	}

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("commit_log", "success")); got != 2 {
		t.Fatalf("expected 2 successful commits, got %v", got)
	}
	if got := testutil.ToFloat64(again.merges.WithLabelValues("log")); got != 1 {
		t.Fatalf("expected shared merge counter at 1, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 2 {
		t.Fatalf("expected create and commit histograms, got %d", n)
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrBusy, "still in progress"},
		{ErrNoDocument, "healthlog init"},
		{fmt.Errorf("read: %w", docstore.ErrForbidden), "denied"},
		{&docstore.ConflictError{Handle: "a.json"}, "same moment"},
		{fmt.Errorf("read: %w", docstore.ErrNotFound), "could not be found"},
		{docstore.ErrUserCancelled, "No file"},
		{context.Canceled, "interrupted"},
		{domain.ValidationError{Field: "tempC", Message: "outside plausible range"}, "invalid tempC"},
		{domain.ErrNotFound{Entity: domain.EntityEpisode, ID: "e1"}, "episode e1 not found"},
		{errors.New("boom"), "Something went wrong: boom"},
	}
	for _, tc := range cases {
		got := UserMessage(tc.err)
		if tc.want == "" {
			if got != "" {
				t.Fatalf("expected empty message, got %q", got)
			}
			continue
		}
		if !strings.Contains(got, tc.want) {
			t.Fatalf("message for %v = %q, want substring %q", tc.err, got, tc.want)
		}
	}
}
