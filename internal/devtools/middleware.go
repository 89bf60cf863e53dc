package devtools

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/history"
	"github.com/roach88/hafiza/internal/middleware"
	"github.com/roach88/hafiza/internal/state"
)

// Middleware reports every committed action to ext and services the
// debugger's time-travel commands. A nil extension, or one that fails to
// connect, yields a pass-through middleware.
//
// REPLACE_STATE actions are applied but not reported: they are the
// debugger's own time travel echoing back.
func Middleware(ext Extension, opts Options, logger *slog.Logger) middleware.Middleware {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return func(api middleware.API) func(middleware.Next) middleware.Next {
		if ext == nil {
			return passThrough
		}
		conn, err := ext.Connect(opts)
		if err != nil {
			logger.Warn("devtools unavailable", "name", opts.Name, "error", err)
			return passThrough
		}

		b := &bridge{
			api:    api,
			conn:   conn,
			log:    history.New[*state.Object](opts.MaxAge),
			logger: logger,
		}
		b.reset(api.GetState())
		conn.Subscribe(b.handle)

		return func(next middleware.Next) middleware.Next {
			return func(ctx context.Context, a action.Action) error {
				if err := next(ctx, a); err != nil {
					return err
				}
				if a.Kind == action.KindReplaceState {
					return nil
				}
				resolved, err := resolve(ctx, a)
				if err != nil {
					return nil
				}
				cur := api.GetState()
				b.log.Push(cur, resolved)
				conn.Send(resolved, cur)
				return nil
			}
		}
	}
}

func passThrough(next middleware.Next) middleware.Next {
	return next
}

// resolve substitutes a pending payload with its (already settled) value.
func resolve(ctx context.Context, a action.Action) (action.Action, error) {
	p, ok := a.Payload.(action.Pending)
	if !ok {
		return a, nil
	}
	v, err := p.Await(ctx)
	if err != nil {
		return a, err
	}
	a.Payload = v
	return a, nil
}

// bridge holds the debugger session state for one store.
type bridge struct {
	api    middleware.API
	conn   Connection
	log    *history.Log[*state.Object]
	logger *slog.Logger

	mu        sync.Mutex
	committed *state.Object
}

// reset makes s the committed baseline and the only history entry.
func (b *bridge) reset(s *state.Object) {
	b.mu.Lock()
	b.committed = s
	b.mu.Unlock()

	b.log.Clear()
	b.log.Push(s, action.Action{Kind: action.KindInit})
	b.conn.Init(s)
}

func (b *bridge) handle(m Message) {
	if m.Type != MessageDispatch {
		return
	}

	switch m.Payload.Type {
	case CommandJumpToState:
		b.jump(m.Payload.Index)
	case CommandJumpToAction:
		b.jump(m.Payload.ActionID)
	case CommandReset:
		b.mu.Lock()
		committed := b.committed
		b.mu.Unlock()
		b.replace(committed)
		b.reset(committed)
	case CommandCommit:
		b.reset(b.api.GetState())
	case CommandRollback:
		target, err := state.DecodeObject([]byte(m.State))
		if err != nil {
			b.logger.Warn("devtools rollback with unreadable state", "error", err)
			b.mu.Lock()
			target = b.committed
			b.mu.Unlock()
		}
		b.replace(target)
		b.reset(target)
	default:
		b.logger.Debug("devtools command ignored", "command", m.Payload.Type)
	}
}

func (b *bridge) jump(i int) {
	target, ok := b.log.JumpToIndex(i)
	if !ok {
		b.logger.Warn("devtools jump out of range", "index", i, "entries", b.log.Len())
		return
	}
	b.replace(target)
}

func (b *bridge) replace(s *state.Object) {
	b.api.Dispatch(context.Background(), action.ReplaceState(s))
}
