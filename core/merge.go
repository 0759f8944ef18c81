package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Remote is the subset of the note service the merge engine writes to.
type Remote interface {
	Create(ctx context.Context, note Note) (*Note, error)
	Update(ctx context.Context, id NoteID, fields NoteFields) error
}

type MutationKind int

const (
	MutationCreate MutationKind = iota
	MutationUpdate
)

func (k MutationKind) String() string {
	switch k {
	case MutationCreate:
		return "create"
	case MutationUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Mutation is a remote write the merge decided on.
type Mutation struct {
	Kind   MutationKind
	Note   Note
	Fields NoteFields
}

// MergePlan is the outcome of a reconciliation pass before any I/O.
type MergePlan struct {
	Notes     []Note
	Mutations []Mutation
}

// PlanMerge reconciles a remote and a local snapshot, last writer wins per
// note. A local note wins only when its UpdatedAt is strictly after the
// remote one; ties keep the remote version. Notes are ordered remote first,
// then local-only notes in local order.
func PlanMerge(remote, local []Note) MergePlan {
	if len(remote) == 0 && len(local) == 0 {
		return MergePlan{Notes: []Note{}}
	}

	order := []NoteID{}
	merged := map[NoteID]Note{}

	for _, n := range remote {
		if _, ok := merged[n.ID]; !ok {
			order = append(order, n.ID)
		}
		merged[n.ID] = n
	}

	var mutations []Mutation
	pending := map[NoteID]int{}

	for _, n := range local {
		current, ok := merged[n.ID]

		if !ok {
			order = append(order, n.ID)
			merged[n.ID] = n

			pending[n.ID] = len(mutations)
			mutations = append(mutations, Mutation{Kind: MutationCreate, Note: n})
			continue
		}

		if !n.UpdatedAt.After(current.UpdatedAt) {
			continue
		}

		merged[n.ID] = n

		// A newer duplicate rewrites the write already planned for this id,
		// so a local-only note is still created exactly once.
		if i, ok := pending[n.ID]; ok {
			mutations[i].Note = n
			if mutations[i].Kind == MutationUpdate {
				mutations[i].Fields = contentFields(n)
			}
			continue
		}

		pending[n.ID] = len(mutations)
		mutations = append(mutations, Mutation{Kind: MutationUpdate, Note: n, Fields: contentFields(n)})
	}

	notes := make([]Note, 0, len(order))
	for _, id := range order {
		notes = append(notes, merged[id])
	}

	return MergePlan{Notes: notes, Mutations: mutations}
}

func contentFields(n Note) NoteFields {
	title, content := n.Title, n.Content
	return NoteFields{Title: &title, Content: &content}
}

// Dispatcher delivers planned mutations. Dispatch must not block on the
// remote call.
type Dispatcher interface {
	Dispatch(ctx context.Context, m Mutation)
}

// AsyncDispatcher sends every mutation from its own goroutine and logs
// failures instead of returning them.
type AsyncDispatcher struct {
	remote Remote
	logger *slog.Logger

	wg         sync.WaitGroup
	dispatched atomic.Int64
	failed     atomic.Int64
}

func NewAsyncDispatcher(remote Remote, logger *slog.Logger) *AsyncDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncDispatcher{remote: remote, logger: logger}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, m Mutation) {
	// The write outlives the pass that planned it.
	ctx = context.WithoutCancel(ctx)

	d.dispatched.Add(1)
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		if err := d.send(ctx, m); err != nil {
			d.failed.Add(1)
			d.logger.Warn("remote write failed", "op", m.Kind.String(), "id", m.Note.ID, "error", err)
			return
		}

		d.logger.Debug("remote write done", "op", m.Kind.String(), "id", m.Note.ID)
	}()
}

func (d *AsyncDispatcher) send(ctx context.Context, m Mutation) error {
	switch m.Kind {
	case MutationCreate:
		_, err := d.remote.Create(ctx, m.Note)
		return err
	case MutationUpdate:
		return d.remote.Update(ctx, m.Note.ID, m.Fields)
	}
	return nil
}

// Wait blocks until every dispatched write has settled.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

// Stats returns how many writes were dispatched and how many of the
// settled ones failed.
func (d *AsyncDispatcher) Stats() (dispatched, failed int64) {
	return d.dispatched.Load(), d.failed.Load()
}

// Engine runs reconciliation passes.
type Engine struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewEngine(dispatcher Dispatcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{dispatcher: dispatcher, logger: logger}
}

// Reconcile merges the snapshots and hands the resulting writes to the
// dispatcher without waiting for them. Write failures never change the
// returned collection.
func (e *Engine) Reconcile(ctx context.Context, remote, local []Note) []Note {
	plan := PlanMerge(remote, local)

	for _, m := range plan.Mutations {
		e.dispatcher.Dispatch(ctx, m)
	}

	e.logger.Info("reconciled notes",
		"remote", len(remote),
		"local", len(local),
		"merged", len(plan.Notes),
		"writes", len(plan.Mutations),
	)

	return plan.Notes
}
