package reducer

import (
	"fmt"

	"github.com/roach88/hafiza/internal/action"
	"github.com/roach88/hafiza/internal/state"
)

// Patch action kinds.
const (
	KindSet       = "set"
	KindUnset     = "unset"
	KindIncrement = "increment"
	KindAppend    = "append"
	KindMerge     = "merge"
)

// Patch is a path-addressed edit carried as an action payload.
type Patch struct {
	// Path is dot-joined; "" addresses the root.
	Path string

	// Value is the operand for set, append and merge.
	Value state.Value

	// By is the increment step. Defaults to 1.
	By int64
}

// PatchError reports a patch that cannot be applied. Patch reducers panic
// with a *PatchError; the store turns that into a failed dispatch and keeps
// the previous state.
type PatchError struct {
	Kind    string
	Path    string
	Message string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Path, e.Message)
}

// ParsePatch reads a payload of the form {path, value?, by?}. The payload
// may be a *state.Object, a Patch, or plain Go data (as decoded from YAML).
func ParsePatch(payload any) (Patch, error) {
	switch p := payload.(type) {
	case Patch:
		return p, nil
	case *Patch:
		return *p, nil
	}

	v, err := state.FromGo(payload)
	if err != nil {
		return Patch{}, fmt.Errorf("patch payload: %w", err)
	}
	obj, ok := v.(*state.Object)
	if !ok {
		return Patch{}, fmt.Errorf("patch payload must be an object, got %s", state.TypeName(v))
	}

	var out Patch
	if raw, ok := obj.Get("path"); ok {
		s, ok := raw.(state.String)
		if !ok {
			return Patch{}, fmt.Errorf("patch path must be a string, got %s", state.TypeName(raw))
		}
		out.Path = string(s)
	}
	out.Value, _ = obj.Get("value")
	if raw, ok := obj.Get("by"); ok {
		n, ok := raw.(state.Int)
		if !ok {
			return Patch{}, fmt.Errorf("patch by must be an integer, got %s", state.TypeName(raw))
		}
		out.By = int64(n)
	}
	return out, nil
}

// NewPatch builds a patch action.
func NewPatch(kind string, p Patch) action.Action {
	return action.New(kind, p)
}

// Patcher returns the generic patch reducer. It handles set, unset,
// increment, append and merge; other kinds pass through unchanged.
func Patcher() action.Reducer {
	return Map{
		KindSet:       patchWith(applySet),
		KindUnset:     patchWith(applyUnset),
		KindIncrement: patchWith(applyIncrement),
		KindAppend:    patchWith(applyAppend),
		KindMerge:     patchWith(applyMerge),
	}.Reduce
}

func patchWith(apply func(prev *state.Object, p Patch) (*state.Object, error)) action.Reducer {
	return func(prev *state.Object, a action.Action) *state.Object {
		p, err := ParsePatch(a.Payload)
		if err != nil {
			panic(&PatchError{Kind: a.Kind, Message: err.Error()})
		}
		next, err := apply(prev, p)
		if err != nil {
			panic(&PatchError{Kind: a.Kind, Path: p.Path, Message: err.Error()})
		}
		return next
	}
}

func applySet(prev *state.Object, p Patch) (*state.Object, error) {
	if p.Value == nil {
		return nil, fmt.Errorf("missing value")
	}
	return state.SetIn(prev, state.ParsePath(p.Path), p.Value)
}

func applyUnset(prev *state.Object, p Patch) (*state.Object, error) {
	return state.DeleteIn(prev, state.ParsePath(p.Path))
}

func applyIncrement(prev *state.Object, p Patch) (*state.Object, error) {
	path := state.ParsePath(p.Path)
	by := p.By
	if by == 0 {
		by = 1
	}
	var cur state.Int
	if v, ok := state.Lookup(prev, path); ok {
		n, ok := v.(state.Int)
		if !ok {
			return nil, fmt.Errorf("cannot increment %s", state.TypeName(v))
		}
		cur = n
	}
	return state.SetIn(prev, path, cur+state.Int(by))
}

func applyAppend(prev *state.Object, p Patch) (*state.Object, error) {
	if p.Value == nil {
		return nil, fmt.Errorf("missing value")
	}
	path := state.ParsePath(p.Path)
	var arr state.Array
	if v, ok := state.Lookup(prev, path); ok {
		a, ok := v.(state.Array)
		if !ok {
			return nil, fmt.Errorf("cannot append to %s", state.TypeName(v))
		}
		arr = a
	}
	return state.SetIn(prev, path, arr.Append(p.Value))
}

func applyMerge(prev *state.Object, p Patch) (*state.Object, error) {
	patch, ok := p.Value.(*state.Object)
	if !ok {
		return nil, fmt.Errorf("merge value must be an object, got %s", state.TypeName(p.Value))
	}
	path := state.ParsePath(p.Path)
	base := state.Empty()
	if v, ok := state.Lookup(prev, path); ok {
		obj, ok := v.(*state.Object)
		if !ok {
			return nil, fmt.Errorf("cannot merge into %s", state.TypeName(v))
		}
		base = obj
	}
	return state.SetIn(prev, path, base.Merge(patch))
}
