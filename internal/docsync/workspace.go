package docsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"healthlog/internal/docstore"
	"healthlog/pkg/domain"
)

// Keys under which the remembered document handles are stored.
const (
	KeyHousehold = "household_handle"
	KeyLog       = "log_handle"
)

// Default file names used when bootstrapping a new household.
const (
	HouseholdFileName = "household.json"
	LogFileName       = "health-log.json"
)

// HandleStore remembers which remote files this device works with.
type HandleStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Snapshot is a read-only view of the working state.
type Snapshot struct {
	Household     domain.Household
	HasHousehold  bool
	HouseholdName string
	Log           domain.LogDocument
	HasLog        bool
	LogName       string
	LastSyncedAt  time.Time
	Identity      docstore.Identity
}

// Workspace holds the current household and log documents with their
// tokens. Commits are serialized: while one is in flight, others fail with
// ErrBusy. State is swapped only after a commit succeeds.
type Workspace struct {
	adapter   docstore.Adapter
	handles   HandleStore
	household *Orchestrator[domain.Household]
	log       *Orchestrator[domain.LogDocument]
	opts      options

	mu         sync.Mutex
	busy       bool
	hh         *State[domain.Household]
	lg         *State[domain.LogDocument]
	lastSynced time.Time
	identity   docstore.Identity
	onChange   func(Snapshot)
}

// NewWorkspace returns an empty workspace. handles may be nil, in which case
// nothing is remembered between runs.
func NewWorkspace(adapter docstore.Adapter, handles HandleStore, opts ...Option) *Workspace {
	return &Workspace{
		adapter:   adapter,
		handles:   handles,
		household: NewOrchestrator(adapter, HouseholdKind(), opts...),
		log:       NewOrchestrator(adapter, LogKind(), opts...),
		opts:      applyOptions(opts),
	}
}

// OnChange registers fn to be called with the new snapshot after every
// successful load or commit.
func (w *Workspace) OnChange(fn func(Snapshot)) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Snapshot returns copies of the current documents.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() Snapshot {
	s := Snapshot{LastSyncedAt: w.lastSynced, Identity: w.identity}
	if w.hh != nil {
		s.Household, s.HasHousehold, s.HouseholdName = w.hh.Doc.Clone(), true, w.hh.Name
	}
	if w.lg != nil {
		s.Log, s.HasLog, s.LogName = w.lg.Doc.Clone(), true, w.lg.Name
	}
	return s
}

// Busy reports whether a sync is in flight.
func (w *Workspace) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// LastSyncedAt is the time of the last successful load or commit.
func (w *Workspace) LastSyncedAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSynced
}

func (w *Workspace) begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}
	w.busy = true
	return nil
}

func (w *Workspace) end() {
	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
}

// publish applies mutate under the lock, stamps the sync time and notifies
// the change listener outside the lock.
func (w *Workspace) publish(mutate func()) {
	w.mu.Lock()
	mutate()
	w.lastSynced = w.opts.clock.Now()
	snap := w.snapshotLocked()
	fn := w.onChange
	w.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Open loads the remembered documents. Documents without a remembered
// handle stay unset; if neither is remembered ErrNoDocument is returned.
func (w *Workspace) Open(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	hhHandle, err := w.remembered(ctx, KeyHousehold)
	if err != nil {
		return err
	}
	lgHandle, err := w.remembered(ctx, KeyLog)
	if err != nil {
		return err
	}
	if hhHandle == "" && lgHandle == "" {
		return ErrNoDocument
	}

	var hh State[domain.Household]
	var lg State[domain.LogDocument]
	g, gctx := errgroup.WithContext(ctx)
	if hhHandle != "" {
		g.Go(func() (err error) {
			hh, err = w.household.Load(gctx, hhHandle)
			return err
		})
	}
	if lgHandle != "" {
		g.Go(func() (err error) {
			lg, err = w.log.Load(gctx, lgHandle)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	identity := w.adapter.CurrentUserIdentity(ctx)

	w.publish(func() {
		if hhHandle != "" {
			w.hh = &hh
		}
		if lgHandle != "" {
			w.lg = &lg
		}
		w.identity = identity
	})
	w.opts.logger.Info("workspace opened", "household", hh.Name, "log", lg.Name)
	return nil
}

// Refresh reloads every attached document from the remote store.
func (w *Workspace) Refresh(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	w.mu.Lock()
	var hhHandle, lgHandle docstore.Handle
	if w.hh != nil {
		hhHandle = w.hh.Handle
	}
	if w.lg != nil {
		lgHandle = w.lg.Handle
	}
	w.mu.Unlock()
	if hhHandle == "" && lgHandle == "" {
		return ErrNoDocument
	}

	var hh State[domain.Household]
	var lg State[domain.LogDocument]
	g, gctx := errgroup.WithContext(ctx)
	if hhHandle != "" {
		g.Go(func() (err error) {
			hh, err = w.household.Load(gctx, hhHandle)
			return err
		})
	}
	if lgHandle != "" {
		g.Go(func() (err error) {
			lg, err = w.log.Load(gctx, lgHandle)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	w.publish(func() {
		if hhHandle != "" {
			w.hh = &hh
		}
		if lgHandle != "" {
			w.lg = &lg
		}
	})
	return nil
}

func (w *Workspace) remembered(ctx context.Context, key string) (docstore.Handle, error) {
	if w.handles == nil {
		return "", nil
	}
	v, ok, err := w.handles.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read remembered %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return docstore.Handle(v), nil
}

func (w *Workspace) remember(ctx context.Context, key string, h docstore.Handle) error {
	if w.handles == nil {
		return nil
	}
	if err := w.handles.Set(ctx, key, string(h)); err != nil {
		return fmt.Errorf("remember %s: %w", key, err)
	}
	return nil
}

// Bootstrap creates a fresh household and log under folder and remembers
// both. Existing files are never overwritten; the store picks unique names.
func (w *Workspace) Bootstrap(ctx context.Context, folder docstore.Handle) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	now := w.opts.clock.Now()
	hh, err := w.household.Create(ctx, folder, HouseholdFileName, domain.NewHousehold(now))
	if err != nil {
		return err
	}
	lg, err := w.log.Create(ctx, folder, LogFileName, domain.NewLogDocument(now))
	if err != nil {
		return err
	}
	if err := w.remember(ctx, KeyHousehold, hh.Handle); err != nil {
		return err
	}
	if err := w.remember(ctx, KeyLog, lg.Handle); err != nil {
		return err
	}
	identity := w.adapter.CurrentUserIdentity(ctx)
	w.publish(func() {
		w.hh, w.lg = &hh, &lg
		w.identity = identity
	})
	w.opts.logger.Info("household bootstrapped", "household", string(hh.Handle), "log", string(lg.Handle))
	return nil
}

// AttachHousehold loads the household at h and remembers it.
func (w *Workspace) AttachHousehold(ctx context.Context, h docstore.Handle) error {
	return attach(ctx, w, w.household, KeyHousehold, h, &w.hh)
}

// AttachLog loads the log at h and remembers it.
func (w *Workspace) AttachLog(ctx context.Context, h docstore.Handle) error {
	return attach(ctx, w, w.log, KeyLog, h, &w.lg)
}

func attach[D any](ctx context.Context, w *Workspace, o *Orchestrator[D], key string, h docstore.Handle, slot **State[D]) error {
	if h == "" {
		return ErrNoDocument
	}
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	st, err := o.Load(ctx, h)
	if err != nil {
		return err
	}
	if err := w.remember(ctx, key, h); err != nil {
		return err
	}
	w.publish(func() { *slot = &st })
	return nil
}

// Forget drops the remembered handles and clears the working state.
func (w *Workspace) Forget(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()
	if w.handles != nil {
		if err := errors.Join(w.handles.Delete(ctx, KeyHousehold), w.handles.Delete(ctx, KeyLog)); err != nil {
			return fmt.Errorf("forget handles: %w", err)
		}
	}
	w.mu.Lock()
	w.hh, w.lg = nil, nil
	w.lastSynced = time.Time{}
	w.mu.Unlock()
	return nil
}

// UpdateHousehold commits update against the household. It reports whether
// the saved document had to be merged with a concurrent remote change.
func (w *Workspace) UpdateHousehold(ctx context.Context, update Updater[domain.Household]) (bool, error) {
	return commit(ctx, w, w.household, &w.hh, update)
}

// UpdateLog commits update against the log.
func (w *Workspace) UpdateLog(ctx context.Context, update Updater[domain.LogDocument]) (bool, error) {
	return commit(ctx, w, w.log, &w.lg, update)
}

func commit[D any](ctx context.Context, w *Workspace, o *Orchestrator[D], slot **State[D], update Updater[D]) (bool, error) {
	if err := w.begin(); err != nil {
		return false, err
	}
	defer w.end()

	w.mu.Lock()
	cur := *slot
	w.mu.Unlock()
	if cur == nil {
		return false, ErrNoDocument
	}
	res, err := o.Commit(ctx, *cur, update)
	if err != nil {
		return false, err
	}
	w.publish(func() { *slot = &res.State })
	if res.Merged {
		w.opts.logger.Info("saved after merging remote changes", "document", o.Kind().Name)
	}
	return res.Merged, nil
}
