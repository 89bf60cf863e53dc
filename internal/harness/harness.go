package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/history"
	"github.com/roach88/hafiza/internal/middleware"
	"github.com/roach88/hafiza/internal/reducer"
	"github.com/roach88/hafiza/internal/schema"
	"github.com/roach88/hafiza/internal/state"
	"github.com/roach88/hafiza/internal/store"
	"github.com/roach88/hafiza/internal/testutil"
)

// IDPrefix prefixes the deterministic action IDs ("act-1", "act-2", ...).
const IDPrefix = "act"

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger      *slog.Logger
	middlewares []middleware.Middleware
	initial     *state.Object
}

// WithLogger sets the logger used by the store and schema guard. Runs are
// silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithMiddleware adds middleware inside the trace recorder, in order.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *runConfig) { c.middlewares = append(c.middlewares, mws...) }
}

// WithInitial overrides the scenario's initial snapshot, e.g. with a
// persisted one.
func WithInitial(s *state.Object) Option {
	return func(c *runConfig) { c.initial = s }
}

// Run executes a scenario against a fresh store and returns the result.
//
// All actions are dispatched up front and then awaited in order, so delayed
// payloads still commit in dispatch order. Undo steps run after every action
// has settled. An error is returned only when the run itself cannot be set
// up or ctx ends; unmet expectations are reported in Result.Failures.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	initial := cfg.initial
	if initial == nil {
		var err error
		initial, err = initialState(sc.Initial)
		if err != nil {
			return nil, fmt.Errorf("initial state: %w", err)
		}
	}

	red := reducer.Patcher()
	if sc.Schema != "" {
		sch, err := schema.Load(sc.Schema)
		if err != nil {
			return nil, err
		}
		if err := sch.Validate(initial); err != nil {
			return nil, fmt.Errorf("initial state: %w", err)
		}
		red = schema.Guard(red, sch, cfg.logger)
	}

	rec := newRecorder()
	mws := append([]middleware.Middleware{rec.middleware()}, cfg.middlewares...)
	storeOpts := []store.Option{
		store.WithLogger(cfg.logger),
		store.WithIDGenerator(action.NewFixedGenerator(IDPrefix)),
		store.WithNow(testutil.NewStepClock(time.Time{}, 0).Now),
		store.WithMiddleware(mws...),
	}
	if sc.History > 0 {
		storeOpts = append(storeOpts, store.WithHistory(sc.History))
	}

	st, err := store.New(initial, red, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	defer st.Close()

	futures := make([]*action.Future, len(sc.Actions))
	for i, step := range sc.Actions {
		futures[i] = st.Dispatch(ctx, buildAction(ctx, step))
	}

	result := NewResult()
	for i, f := range futures {
		err := f.Wait(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		step := sc.Actions[i]
		switch {
		case err != nil && !step.ExpectError:
			result.AddFailure(fmt.Sprintf("actions[%d] (%s): unexpected error: %v", i, step.Kind, err))
		case err == nil && step.ExpectError:
			result.AddFailure(fmt.Sprintf("actions[%d] (%s): expected an error, dispatch succeeded", i, step.Kind))
		}
		cfg.logger.Debug("scenario step settled", "step", i, "kind", step.Kind, "error", err)
	}

	for i := 0; i < sc.Undo; i++ {
		if err := st.Undo(ctx).Wait(ctx); err != nil {
			result.AddFailure(fmt.Sprintf("undo[%d]: %v", i, err))
		}
	}

	result.Trace = rec.events()
	result.Final = st.State()
	result.History, result.Cursor = st.History()

	for _, msg := range EvaluateAssertions(result, sc.Assertions) {
		result.AddFailure(msg)
	}
	return result, nil
}

func initialState(m map[string]any) (*state.Object, error) {
	if len(m) == 0 {
		return state.Empty(), nil
	}
	v, err := state.FromGo(m)
	if err != nil {
		return nil, err
	}
	return v.(*state.Object), nil
}

// buildAction turns a step into an action, wrapping the payload in a
// promise when it is delayed or rejected.
func buildAction(ctx context.Context, step Step) action.Action {
	if step.Delay == 0 && step.Reject == "" {
		return action.New(step.Kind, step.Payload)
	}

	var rejection error
	if step.Reject != "" {
		rejection = errors.New(step.Reject)
	}
	if step.Delay == 0 {
		return action.New(step.Kind, action.Reject(rejection))
	}

	payload := step.Payload
	return action.New(step.Kind, action.Go(ctx, func(ctx context.Context) (any, error) {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			if rejection != nil {
				return nil, rejection
			}
			return payload, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}))
}

// recorder is the outermost middleware of a run; it captures each dispatch
// once the inner pipeline has finished with it.
type recorder struct {
	clock *history.Clock

	mu    sync.Mutex
	trace []TraceEvent
}

func newRecorder() *recorder {
	return &recorder{clock: history.NewClock()}
}

func (r *recorder) middleware() middleware.Middleware {
	return func(api middleware.API) func(middleware.Next) middleware.Next {
		return func(next middleware.Next) middleware.Next {
			return func(ctx context.Context, a action.Action) error {
				err := next(ctx, a)

				ev := TraceEvent{Seq: r.clock.Next(), ID: a.ID, Kind: a.Kind}
				ev.Payload = resolvedPayload(ctx, a.Payload)
				if err != nil {
					ev.Error = err.Error()
				} else {
					ev.State = api.GetState()
				}

				r.mu.Lock()
				r.trace = append(r.trace, ev)
				r.mu.Unlock()
				return err
			}
		}
	}
}

func (r *recorder) events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraceEvent(nil), r.trace...)
}

// resolvedPayload converts a payload for the trace. Pending payloads have
// already settled by the time the recorder sees them; rejected ones and
// absent ones yield nil.
func resolvedPayload(ctx context.Context, p any) state.Value {
	if pending, ok := p.(action.Pending); ok {
		v, err := pending.Await(ctx)
		if err != nil {
			return nil
		}
		p = v
	}
	if p == nil {
		return nil
	}
	if v, err := state.FromGo(p); err == nil {
		return v
	}
	return state.String(middleware.RenderPayload(p))
}
