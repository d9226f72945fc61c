// Package docsync keeps a local working copy of the household and log
// documents and commits changes to the remote store with optimistic
// concurrency: a conditional write, and on conflict one merge with the
// latest remote copy followed by a single retry.
package docsync

import (
	"context"
	"errors"
	"fmt"

	"healthlog/internal/docstore"
)

var (
	// ErrNoDocument is returned when an operation needs a document that has
	// not been attached or created yet.
	ErrNoDocument = errors.New("docsync: document not configured")
	// ErrBusy is returned when a commit is already in flight.
	ErrBusy = errors.New("docsync: sync already in progress")
)

// State is a document together with the remote coordinates it was read from.
type State[D any] struct {
	Handle docstore.Handle
	Name   string
	Token  string
	Doc    D
}

// CommitResult is the state after a successful commit. Merged reports that
// the first write lost a race and the stored document is a merge.
type CommitResult[D any] struct {
	State  State[D]
	Merged bool
}

// Updater transforms a working copy into the candidate to be saved.
type Updater[D any] func(doc D) (D, error)

// Orchestrator runs load, create and commit for one document kind.
type Orchestrator[D any] struct {
	kind    Kind[D]
	adapter docstore.Adapter
	opts    options
}

// NewOrchestrator returns an orchestrator for kind over adapter.
func NewOrchestrator[D any](adapter docstore.Adapter, kind Kind[D], opts ...Option) *Orchestrator[D] {
	return &Orchestrator[D]{kind: kind, adapter: adapter, opts: applyOptions(opts)}
}

// Kind returns the document kind handled by o.
func (o *Orchestrator[D]) Kind() Kind[D] { return o.kind }

func (o *Orchestrator[D]) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := o.opts.tracer.Start(ctx, op)
	start := o.opts.clock.Now()
	err := fn(ctx)
	o.opts.metrics.Observe(ctx, op, err == nil, o.opts.clock.Now().Sub(start))
	span.End(err)
	if err != nil {
		o.opts.logger.Warn("sync operation failed", "operation", op, "error", err)
	} else {
		o.opts.logger.Debug("sync operation completed", "operation", op)
	}
	return err
}

// Load reads and normalizes the document at h.
func (o *Orchestrator[D]) Load(ctx context.Context, h docstore.Handle) (State[D], error) {
	var st State[D]
	err := o.run(ctx, "load_"+o.kind.Name, func(ctx context.Context) error {
		res, err := o.adapter.Read(ctx, h)
		if err != nil {
			return err
		}
		st = State[D]{
			Handle: h,
			Name:   res.Name,
			Token:  res.Token,
			Doc:    o.kind.Decode(res.Bytes, o.opts.clock.Now()),
		}
		return nil
	})
	return st, err
}

// Create writes doc as a new file called name under parent.
func (o *Orchestrator[D]) Create(ctx context.Context, parent docstore.Handle, name string, doc D) (State[D], error) {
	var st State[D]
	err := o.run(ctx, "create_"+o.kind.Name, func(ctx context.Context) error {
		normalized := o.kind.Normalize(doc, o.opts.clock.Now())
		data, err := o.kind.Encode(normalized)
		if err != nil {
			return err
		}
		res, err := o.adapter.CreateFile(ctx, parent, name, data)
		if err != nil {
			return err
		}
		st = State[D]{Handle: res.Handle, Name: res.Name, Token: res.Token, Doc: normalized}
		return nil
	})
	return st, err
}

// Commit applies update to a copy of current and writes the result only if
// the remote file is still at current.Token. When the write loses a race the
// candidate is merged with a fresh read and written once more against the
// new token. A second conflict is returned to the caller. current is never
// modified.
func (o *Orchestrator[D]) Commit(ctx context.Context, current State[D], update Updater[D]) (CommitResult[D], error) {
	var res CommitResult[D]
	err := o.run(ctx, "commit_"+o.kind.Name, func(ctx context.Context) error {
		if current.Handle == "" {
			return ErrNoDocument
		}
		if current.Token == "" {
			return fmt.Errorf("commit %s: %w", o.kind.Name, docstore.ErrMissingToken)
		}
		now := o.opts.clock.Now()
		candidate, err := update(o.kind.Touch(current.Doc, now))
		if err != nil {
			return err
		}
		candidate = o.kind.Normalize(candidate, now)
		data, err := o.kind.Encode(candidate)
		if err != nil {
			return err
		}

		written, err := o.adapter.WriteConditional(ctx, current.Handle, current.Token, data)
		if err == nil {
			res.State = State[D]{Handle: current.Handle, Name: nameOr(written.Name, current.Name), Token: written.Token, Doc: candidate}
			return nil
		}
		if !errors.Is(err, docstore.ErrPreconditionFailed) {
			return err
		}

		o.opts.logger.Info("remote document changed, merging", "document", o.kind.Name, "handle", string(current.Handle))
		remote, err := o.adapter.Read(ctx, current.Handle)
		if err != nil {
			return fmt.Errorf("reread %s after conflict: %w", o.kind.Name, err)
		}
		merged := o.kind.Merge(candidate, o.kind.Decode(remote.Bytes, now), now)
		data, err = o.kind.Encode(merged)
		if err != nil {
			return err
		}
		written, err = o.adapter.WriteConditional(ctx, current.Handle, remote.Token, data)
		if err != nil {
			return fmt.Errorf("write merged %s: %w", o.kind.Name, err)
		}
		if mr, ok := o.opts.metrics.(MergeRecorder); ok {
			mr.RecordMerge(ctx, o.kind.Name)
		}
		res = CommitResult[D]{
			State:  State[D]{Handle: current.Handle, Name: nameOr(written.Name, remote.Name), Token: written.Token, Doc: merged},
			Merged: true,
		}
		return nil
	})
	return res, err
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
