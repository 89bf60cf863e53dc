package devtools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
	"github.com/roach88/hafiza/internal/store"
)

func count(s *state.Object) int64 {
	v, _ := s.Get("count")
	n, _ := v.(state.Int)
	return int64(n)
}

func counter(prev *state.Object, a action.Action) *state.Object {
	switch a.Kind {
	case "increment":
		return prev.Set("count", state.Int(count(prev)+1))
	case "set":
		v, _ := state.FromGo(a.Payload)
		return prev.Set("count", v)
	}
	return prev
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newStore(t *testing.T, ext Extension, opts Options) *store.Store {
	t.Helper()
	s, err := store.New(
		state.NewObject(state.P("count", state.Int(0))),
		counter,
		store.WithMiddleware(Middleware(ext, opts, quiet)),
		store.WithLogger(quiet),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dispatch(t *testing.T, s *store.Store, a action.Action) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Dispatch(ctx, a).Wait(ctx))
}

func eventuallyCount(t *testing.T, s *store.Store, want int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return count(s.State()) == want
	}, time.Second, time.Millisecond, "count never reached %d", want)
}

func jumpTo(index int) Message {
	return Message{Type: MessageDispatch, Payload: Command{Type: CommandJumpToState, Index: index}}
}

func TestMiddleware_InitAndDefaults(t *testing.T) {
	lb := NewLoopback()
	s := newStore(t, lb, Options{})

	opts, ok := lb.Connected()
	require.True(t, ok)
	assert.Equal(t, Options{Name: "Hafiza Store", MaxAge: 50}, opts)

	inits := lb.Inits()
	require.Len(t, inits, 1)
	assert.Same(t, s.State(), inits[0])
}

func TestMiddleware_SendsResolvedAction(t *testing.T) {
	lb := NewLoopback()
	s := newStore(t, lb, Options{Name: "test"})

	dispatch(t, s, action.New("set", action.Resolve(42)))
	dispatch(t, s, action.New("increment"))

	sent := lb.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "set", sent[0].Action.Kind)
	assert.Equal(t, 42, sent[0].Action.Payload)
	assert.Equal(t, int64(42), count(sent[0].State))
	assert.Equal(t, int64(43), count(sent[1].State))
}

func TestMiddleware_FailedDispatchIsNotSent(t *testing.T) {
	lb := NewLoopback()
	s := newStore(t, lb, Options{})

	ctx := context.Background()
	err := s.Dispatch(ctx, action.New("set", action.Reject(errors.New("nope")))).Wait(ctx)
	require.Error(t, err)
	assert.Empty(t, lb.Sent())
}

func TestMiddleware_NilExtensionPassesThrough(t *testing.T) {
	s := newStore(t, nil, Options{})
	dispatch(t, s, action.New("increment"))
	assert.Equal(t, int64(1), count(s.State()))
}

type brokenExtension struct{}

func (brokenExtension) Connect(Options) (Connection, error) {
	return nil, errors.New("no debugger attached")
}

func TestMiddleware_ConnectFailurePassesThrough(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	s, err := store.New(state.Empty(), counter, store.WithMiddleware(Middleware(brokenExtension{}, Options{}, logger)))
	require.NoError(t, err)
	defer s.Close()

	dispatch(t, s, action.New("increment"))
	assert.Equal(t, int64(1), count(s.State()))
	assert.Contains(t, logs.String(), "devtools unavailable")
}

func TestMiddleware_JumpCommands(t *testing.T) {
	lb := NewLoopback()
	s := newStore(t, lb, Options{})
	for i := 0; i < 3; i++ {
		dispatch(t, s, action.New("increment"))
	}

	lb.Inject(jumpTo(1))
	eventuallyCount(t, s, 1)

	lb.Inject(Message{Type: MessageDispatch, Payload: Command{Type: CommandJumpToAction, ActionID: 3}})
	eventuallyCount(t, s, 3)

	lb.Inject(jumpTo(0))
	eventuallyCount(t, s, 0)

	// Time travel is not echoed back to the debugger.
	assert.Len(t, lb.Sent(), 3)

	// Out of range jumps and foreign messages are ignored.
	lb.Inject(jumpTo(99))
	lb.Inject(Message{Type: "START"})
	dispatch(t, s, action.New("increment"))
	assert.Equal(t, int64(1), count(s.State()))
}

func TestMiddleware_CommitResetRollback(t *testing.T) {
	lb := NewLoopback()
	s := newStore(t, lb, Options{})

	dispatch(t, s, action.New("set", 5))
	lb.Inject(Message{Type: MessageDispatch, Payload: Command{Type: CommandCommit}})
	inits := lb.Inits()
	require.Len(t, inits, 2)
	assert.Equal(t, int64(5), count(inits[1]))

	dispatch(t, s, action.New("increment"))
	lb.Inject(Message{Type: MessageDispatch, Payload: Command{Type: CommandReset}})
	eventuallyCount(t, s, 5)

	lb.Inject(Message{
		Type:    MessageDispatch,
		Payload: Command{Type: CommandRollback},
		State:   `{"count":10}`,
	})
	eventuallyCount(t, s, 10)
	assert.Equal(t, int64(10), count(lb.Inits()[len(lb.Inits())-1]))

	// Unreadable rollback state falls back to the committed state.
	lb.Inject(Message{
		Type:    MessageDispatch,
		Payload: Command{Type: CommandRollback},
		State:   `not json`,
	})
	eventuallyCount(t, s, 10)
}

func TestLoopback_Unsubscribe(t *testing.T) {
	lb := NewLoopback()
	var got []string
	unsubscribe := lb.Subscribe(func(m Message) { got = append(got, m.Payload.Type) })

	lb.Inject(Message{Type: MessageDispatch, Payload: Command{Type: CommandCommit}})
	unsubscribe()
	lb.Inject(Message{Type: MessageDispatch, Payload: Command{Type: CommandReset}})

	assert.Equal(t, []string{CommandCommit}, got)
}
