// Package runner implements the event pipeline runner: it subscribes to
// watcher events, starts matching pipelines, enforces single-flight
// execution per pipeline and cancels running pipelines superseded by a
// later event per ups.Event.Cancels.
package runner

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"upsentryd/collab"
	"upsentryd/pipeline"
	"upsentryd/ups"
)

// eventSource is the subset of *watcher.Subscription the runner needs,
// narrowed so tests can substitute a fake event stream.
type eventSource interface {
	Events() <-chan ups.Event
}

// pipelineExecutor is the subset of *action.Executor the runner needs,
// narrowed so tests can substitute a fake.
type pipelineExecutor interface {
	RunPipeline(ctx context.Context, p pipeline.EventPipeline)
}

// Runner owns the table of currently-running pipeline executions. The
// table is only ever touched from the goroutine running Run, so it needs
// no locking of its own.
type Runner struct {
	store    collab.PipelineStore
	executor pipelineExecutor
	log      zerolog.Logger

	mu    sync.Mutex // guards group only; group is set once at Run start
	group *errgroup.Group

	// running is only ever read/written from the goroutine executing Run;
	// completions are message-passed in via removals rather than deleted
	// from a background goroutine, so it needs no mutex of its own.
	running  map[uuid.UUID]*runningPipeline
	removals chan uuid.UUID
}

type runningPipeline struct {
	event       ups.Event
	cancellable bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// New constructs a Runner. Start it with Run.
func New(store collab.PipelineStore, executor pipelineExecutor, log zerolog.Logger) *Runner {
	return &Runner{
		store:    store,
		executor: executor,
		log:      log,
		running:  make(map[uuid.UUID]*runningPipeline),
		removals: make(chan uuid.UUID, 8),
	}
}

// Run subscribes to sub and processes events until ctx is cancelled or the
// event channel closes. It is intended to be run in its own goroutine.
func (r *Runner) Run(ctx context.Context, sub eventSource) error {
	group, ctx := errgroup.WithContext(ctx)
	r.mu.Lock()
	r.group = group
	r.mu.Unlock()

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return waitIgnoringContextCancel(group)
		case ev, ok := <-events:
			if !ok {
				return waitIgnoringContextCancel(group)
			}
			r.handleEvent(ctx, ev)
		case id := <-r.removals:
			delete(r.running, id)
		}
	}
}

func waitIgnoringContextCancel(group *errgroup.Group) error {
	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func (r *Runner) handleEvent(ctx context.Context, ev ups.Event) {
	r.cancelSuperseded(ev)

	pipelines, err := r.store.List(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to list pipelines")
		return
	}

	for _, p := range pipelines {
		if !p.Enabled || p.Event != ev {
			continue
		}
		r.startPipeline(ctx, p)
	}
}

// cancelSuperseded aborts any running, cancellable pipeline whose
// triggering event is cancelled by ev, per ups.Event.Cancels. A pipeline
// started with Cancellable false always runs to completion regardless of
// what events follow it.
func (r *Runner) cancelSuperseded(ev ups.Event) {
	cancelled := ev.Cancels()
	if len(cancelled) == 0 {
		return
	}
	for id, rp := range r.running {
		if !rp.cancellable {
			continue
		}
		for _, c := range cancelled {
			if rp.event == c {
				r.log.Info().Stringer("superseding_event", ev).Stringer("cancelled_event", c).Msg("cancelling superseded pipeline")
				rp.cancel()
				delete(r.running, id)
				break
			}
		}
	}
}

// startPipeline spawns p's execution unless an instance of it is already
// running (single-flight).
func (r *Runner) startPipeline(ctx context.Context, p pipeline.EventPipeline) {
	if _, running := r.running[p.ID]; running {
		r.log.Debug().Str("pipeline", p.Name).Msg("pipeline already running, skipping")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.running[p.ID] = &runningPipeline{event: p.Event, cancellable: p.Cancellable, cancel: cancel, done: done}

	r.mu.Lock()
	group := r.group
	r.mu.Unlock()

	group.Go(func() error {
		defer close(done)
		r.executor.RunPipeline(runCtx, p)
		return nil
	})

	// This goroutine message-passes the removal back into Run's select
	// loop rather than deleting from r.running here, keeping the map
	// single-owner despite completion happening on another goroutine.
	go func() {
		<-done
		r.removals <- p.ID
	}()
}
