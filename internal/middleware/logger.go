package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
)

// Logger returns a middleware that logs every dispatch: the action and the
// state it was dispatched against, then the resulting state. A nil logger
// uses slog.Default().
func Logger(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(api API) func(Next) Next {
		return func(next Next) Next {
			return func(ctx context.Context, a action.Action) error {
				logger.InfoContext(ctx, "dispatching",
					"kind", a.Kind,
					"id", a.ID,
					"payload", RenderPayload(a.Payload),
					"prev_state", state.CanonicalString(api.GetState()),
				)

				err := next(ctx, a)
				if err != nil {
					logger.WarnContext(ctx, "dispatch failed", "kind", a.Kind, "id", a.ID, "error", err)
					return err
				}

				logger.InfoContext(ctx, "next state",
					"kind", a.Kind,
					"id", a.ID,
					"state", state.CanonicalString(api.GetState()),
				)
				return nil
			}
		}
	}
}

// RenderPayload formats a payload for logs and traces. Snapshot values and
// plain Go data render as canonical JSON; pending payloads render as
// "<pending>".
func RenderPayload(p any) string {
	switch v := p.(type) {
	case nil:
		return "null"
	case action.Pending:
		return "<pending>"
	case state.Value:
		return state.CanonicalString(v)
	}
	if v, err := state.FromGo(p); err == nil {
		return state.CanonicalString(v)
	}
	return fmt.Sprint(p)
}
