package devtools

import (
	"sync"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
)

// Sent is one action reported over a connection.
type Sent struct {
	Action action.Action
	State  *state.Object
}

// Loopback is an in-process Extension that records what it is told and
// lets the caller inject debugger messages. It is its own Connection.
//
// Thread-safety: safe for concurrent use.
type Loopback struct {
	mu        sync.Mutex
	opts      Options
	connected bool
	inits     []*state.Object
	sent      []Sent
	listeners map[int]func(Message)
	nextID    int
}

// NewLoopback returns an unconnected loopback extension.
func NewLoopback() *Loopback {
	return &Loopback{listeners: make(map[int]func(Message))}
}

// Connect implements Extension.
func (l *Loopback) Connect(opts Options) (Connection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts = opts
	l.connected = true
	return l, nil
}

// Init implements Connection.
func (l *Loopback) Init(s *state.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inits = append(l.inits, s)
}

// Send implements Connection.
func (l *Loopback) Send(a action.Action, s *state.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, Sent{Action: a, State: s})
}

// Subscribe implements Connection.
func (l *Loopback) Subscribe(listener func(Message)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.listeners[id] = listener
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

// Inject delivers m to every subscribed listener, synchronously.
func (l *Loopback) Inject(m Message) {
	l.mu.Lock()
	listeners := make([]func(Message), 0, len(l.listeners))
	for id := 1; id <= l.nextID; id++ {
		if fn, ok := l.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(m)
	}
}

// Connected reports whether Connect has been called, and with what options.
func (l *Loopback) Connected() (Options, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opts, l.connected
}

// Inits returns every state passed to Init.
func (l *Loopback) Inits() []*state.Object {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*state.Object(nil), l.inits...)
}

// Sent returns every action passed to Send.
func (l *Loopback) Sent() []Sent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Sent(nil), l.sent...)
}
