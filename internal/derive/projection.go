package derive

import "github.com/roach88/hafiza/internal/state"

// Kind tells the store how to cache a projection.
type Kind int

const (
	// KindSelector projections are memoized on snapshot identity.
	KindSelector Kind = iota + 1
	// KindComputed projections are memoized on their recorded dependencies.
	KindComputed
)

func (k Kind) String() string {
	switch k {
	case KindSelector:
		return "selector"
	case KindComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// Projection is anything the store can Select.
type Projection[R any] interface {
	Kind() Kind
	Eval(root *state.Object) R
}

// Tracked is implemented by projections that know what they read.
type Tracked interface {
	Dependencies() []string
}
