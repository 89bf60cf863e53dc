package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/history"
	"github.com/roach88/hafiza/internal/middleware"
	"github.com/roach88/hafiza/internal/state"
)

// Store holds the canonical snapshot and serializes every transition
// through a single loop goroutine.
//
// Thread-safety model:
//   - Dispatch, State, Subscribe, Select: safe from any goroutine
//   - reducer and middleware: only ever run on the loop goroutine
//   - Close: must not be called from inside the pipeline
type Store struct {
	mu    sync.RWMutex
	state *state.Object

	reducer  action.Reducer
	pipeline middleware.Next
	logger   *slog.Logger
	ids      action.IDGenerator
	history  *history.Log[*state.Object] // nil when disabled

	queue     *jobQueue
	done      chan struct{}
	closeOnce sync.Once

	subMu   sync.Mutex
	subs    []subscription
	nextSub uint64

	cacheMu   sync.Mutex
	selectors map[any]cacheEntry
	computed  map[any]cacheEntry
}

// New creates a store and starts its dispatch loop. A nil initial state is
// treated as the empty object. Call Close to stop the loop.
func New(initial *state.Object, reducer action.Reducer, opts ...Option) (*Store, error) {
	if reducer == nil {
		return nil, errors.New("store: nil reducer")
	}
	if initial == nil {
		initial = state.Empty()
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.ids == nil {
		cfg.ids = action.UUIDv7Generator{}
	}

	s := &Store{
		state:     initial,
		reducer:   reducer,
		logger:    cfg.logger,
		ids:       cfg.ids,
		queue:     newJobQueue(),
		done:      make(chan struct{}),
		selectors: make(map[any]cacheEntry),
		computed:  make(map[any]cacheEntry),
	}

	if cfg.history {
		var hopts []history.Option
		if cfg.now != nil {
			hopts = append(hopts, history.WithNow(cfg.now))
		}
		s.history = history.New[*state.Object](cfg.historyCap, hopts...)
		s.history.Push(initial, action.Action{ID: s.ids.Generate(), Kind: action.KindInit})
	}

	var mws []middleware.Middleware
	if cfg.composer != nil {
		composed, err := cfg.composer.Compose()
		if err != nil {
			return nil, fmt.Errorf("compose middleware: %w", err)
		}
		mws = append(mws, composed)
	}
	mws = append(mws, cfg.middlewares...)

	api := middleware.API{GetState: s.State, Dispatch: s.Dispatch}
	s.pipeline = middleware.Chain(api, s.reduce, mws...)

	go s.run()
	return s, nil
}

// State returns the current snapshot.
func (s *Store) State() *state.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// GetState is an alias of State.
func (s *Store) GetState() *state.Object {
	return s.State()
}

// Dispatch queues a for processing and returns its future. Actions without
// an ID are stamped. Dispatch never blocks.
func (s *Store) Dispatch(ctx context.Context, a action.Action) *action.Future {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.ID == "" {
		a.ID = s.ids.Generate()
	}
	return s.enqueue(job{ctx: ctx, action: a})
}

func (s *Store) enqueue(j job) *action.Future {
	j.future = action.NewFuture(s)
	if !s.queue.Enqueue(j) {
		return action.Failed(s, ErrClosed)
	}
	return j.future
}

// Close stops accepting dispatches, lets queued ones finish and waits for
// the loop to exit. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(s.queue.Close)
	<-s.done
	return nil
}

// run is the single-writer loop.
func (s *Store) run() {
	defer close(s.done)
	for {
		if j, ok := s.queue.TryDequeue(); ok {
			s.process(j)
			continue
		}
		if s.queue.Drained() {
			return
		}
		// Wakes on enqueue, and immediately once the queue is closed.
		<-s.queue.Wait()
	}
}

// process runs one job through the pipeline.
// CRITICAL: called only from run().
func (s *Store) process(j job) {
	ctx := action.WithPipeline(j.ctx, s)
	a := j.action

	index := -1
	if j.target != nil {
		index = j.target(s.history.CurrentIndex())
		entry, ok := s.history.At(index)
		if !ok {
			j.future.Complete(&DispatchError{Code: ErrCodeNoHistory, Message: "no history entry to travel to"})
			return
		}
		a = action.ReplaceState(entry.State)
		a.ID = s.ids.Generate()
	}

	err := s.pipeline(ctx, a)
	if err != nil {
		s.logger.Debug("dispatch aborted", "kind", a.Kind, "id", a.ID, "error", err)
	}
	if err == nil && index >= 0 {
		s.history.JumpToIndex(index)
	}
	j.future.Complete(err)
}

// reduce is the innermost pipeline stage: payload resolution, reduction,
// commit and fan-out.
func (s *Store) reduce(ctx context.Context, a action.Action) error {
	if p, ok := a.Payload.(action.Pending); ok {
		v, err := p.Await(ctx)
		if err != nil {
			return &DispatchError{
				Code:    ErrCodePayloadRejected,
				Kind:    a.Kind,
				ID:      a.ID,
				Message: "payload rejected",
				Err:     err,
			}
		}
		a.Payload = v
	}

	next, err := s.nextState(a)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	s.resetSelectors()

	if s.history != nil && a.Kind != action.KindReplaceState {
		s.history.Push(next, a)
	}

	s.notify(ctx, next)
	return nil
}

func (s *Store) nextState(a action.Action) (next *state.Object, err error) {
	if a.Kind == action.KindReplaceState {
		obj, ok := a.Payload.(*state.Object)
		if !ok || obj == nil {
			return nil, &DispatchError{
				Code:    ErrCodeInvalidReplace,
				Kind:    a.Kind,
				ID:      a.ID,
				Message: fmt.Sprintf("payload must be a snapshot, got %T", a.Payload),
			}
		}
		return obj, nil
	}

	defer func() {
		if r := recover(); r != nil {
			next, err = nil, &DispatchError{
				Code:    ErrCodeReducerPanic,
				Kind:    a.Kind,
				ID:      a.ID,
				Message: fmt.Sprint(r),
			}
		}
	}()

	next = s.reducer(s.State(), a)
	if next == nil {
		return nil, &DispatchError{
			Code:    ErrCodeNilState,
			Kind:    a.Kind,
			ID:      a.ID,
			Message: "reducer returned nil state",
		}
	}
	return next, nil
}

// Undo moves the store one entry back in its history.
func (s *Store) Undo(ctx context.Context) *action.Future {
	return s.travel(ctx, func(cursor int) int { return cursor - 1 })
}

// Redo moves the store one entry forward in its history.
func (s *Store) Redo(ctx context.Context) *action.Future {
	return s.travel(ctx, func(cursor int) int { return cursor + 1 })
}

// JumpTo moves the store to history entry i.
func (s *Store) JumpTo(ctx context.Context, i int) *action.Future {
	return s.travel(ctx, func(int) int { return i })
}

// travel replays a history entry through the pipeline. If the replay
// fails the cursor stays where it was.
func (s *Store) travel(ctx context.Context, target func(cursor int) int) *action.Future {
	if s.history == nil {
		return action.Failed(s, &DispatchError{Code: ErrCodeNoHistory, Message: "history is disabled"})
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.enqueue(job{ctx: ctx, target: target})
}

// CanUndo reports whether Undo would succeed right now.
func (s *Store) CanUndo() bool {
	return s.history != nil && s.history.CanUndo()
}

// CanRedo reports whether Redo would succeed right now.
func (s *Store) CanRedo() bool {
	return s.history != nil && s.history.CanRedo()
}

// History returns the recorded entries, oldest first, and the cursor.
// Returns (nil, -1) when history is disabled.
func (s *Store) History() ([]history.Entry[*state.Object], int) {
	if s.history == nil {
		return nil, -1
	}
	return s.history.Entries(), s.history.CurrentIndex()
}
