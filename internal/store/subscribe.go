package store

import (
	"context"
	"reflect"

	"github.com/roach88/hafiza/internal/state"
)

// Listener is notified after every committed transition.
type Listener interface {
	StateChanged(ctx context.Context, next *state.Object)
}

// ListenerFunc adapts a function to Listener. Function values are not
// comparable, so every subscription of a ListenerFunc value is distinct.
// Subscribe a *ListenerFunc to get identity-based deduplication.
type ListenerFunc func(ctx context.Context, next *state.Object)

// StateChanged implements Listener.
func (f ListenerFunc) StateChanged(ctx context.Context, next *state.Object) {
	f(ctx, next)
}

type subscription struct {
	id       uint64
	listener Listener
}

// Subscribe registers l and returns a function that removes it.
//
// Subscribing the same comparable listener value twice is a no-op that
// returns an unsubscribe function for the existing registration.
// Listeners run on the loop goroutine, in subscription order; a panicking
// listener is logged and skipped.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if reflect.TypeOf(l).Comparable() {
		for _, sub := range s.subs {
			if sub.listener == l {
				return s.unsubscriber(sub.id)
			}
		}
	}

	s.nextSub++
	s.subs = append(s.subs, subscription{id: s.nextSub, listener: l})
	return s.unsubscriber(s.nextSub)
}

func (s *Store) unsubscriber(id uint64) func() {
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// notify fans next out to a snapshot of the subscriber list, so listeners
// may subscribe or unsubscribe while being notified.
func (s *Store) notify(ctx context.Context, next *state.Object) {
	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		s.notifyOne(ctx, sub, next)
	}
}

func (s *Store) notifyOne(ctx context.Context, sub subscription, next *state.Object) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked", "subscription", sub.id, "panic", r)
		}
	}()
	sub.listener.StateChanged(ctx, next)
}
