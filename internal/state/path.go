package state

import (
	"fmt"
	"strconv"
	"strings"
)

// LengthSegment is the synthetic path segment that resolves to the length
// of an array.
const LengthSegment = "length"

// ParsePath splits a dot-joined path into segments. The empty string is the
// root path.
func ParsePath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// JoinPath joins segments with dots.
func JoinPath(segments ...string) string {
	return strings.Join(segments, ".")
}

// Lookup walks path from root. Missing keys, out-of-range indexes and
// descents into scalars resolve to (nil, false); the walk never fails.
func Lookup(root Value, path []string) (Value, bool) {
	cur := root
	for _, seg := range path {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// child resolves one segment against a node.
func child(node Value, seg string) (Value, bool) {
	switch n := node.(type) {
	case *Object:
		return n.Get(seg)
	case Array:
		if seg == LengthSegment {
			return Int(len(n)), true
		}
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(n) {
			return nil, false
		}
		return n[i], true
	default:
		return nil, false
	}
}

// PathError reports a structural update that could not be applied.
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q: %s", e.Path, e.Message)
}

// SetIn returns a new root with v written at path. Missing intermediate
// objects are created. Only the nodes on the path are copied; all siblings
// are shared with root.
func SetIn(root *Object, path []string, v Value) (*Object, error) {
	if len(path) == 0 {
		obj, ok := v.(*Object)
		if !ok {
			return nil, &PathError{Path: "", Message: "root must be an object, got " + TypeName(v)}
		}
		return obj, nil
	}
	out, err := setIn(root, path, 0, v)
	if err != nil {
		return nil, err
	}
	return out.(*Object), nil
}

func setIn(node Value, path []string, depth int, v Value) (Value, error) {
	seg := path[depth]
	last := depth == len(path)-1

	switch n := node.(type) {
	case nil:
		// Absent intermediate: materialise an object.
		return setIn(Empty(), path, depth, v)
	case *Object:
		if last {
			return n.Set(seg, v), nil
		}
		existing, _ := n.Get(seg)
		updated, err := setIn(existing, path, depth+1, v)
		if err != nil {
			return nil, err
		}
		return n.Set(seg, updated), nil
	case Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(n) {
			return nil, &PathError{Path: JoinPath(path[:depth+1]...), Message: "array index out of range"}
		}
		if last {
			return n.With(i, v), nil
		}
		updated, err := setIn(n[i], path, depth+1, v)
		if err != nil {
			return nil, err
		}
		return n.With(i, updated), nil
	default:
		return nil, &PathError{
			Path:    JoinPath(path[:depth]...),
			Message: "cannot descend into " + TypeName(node),
		}
	}
}

// DeleteIn returns a new root without the value at path. Deleting an absent
// path returns root itself.
func DeleteIn(root *Object, path []string) (*Object, error) {
	if len(path) == 0 {
		return nil, &PathError{Path: "", Message: "cannot delete root"}
	}
	if _, ok := Lookup(root, path); !ok {
		return root, nil
	}
	out, err := deleteIn(root, path, 0)
	if err != nil {
		return nil, err
	}
	return out.(*Object), nil
}

func deleteIn(node Value, path []string, depth int) (Value, error) {
	seg := path[depth]
	last := depth == len(path)-1

	switch n := node.(type) {
	case *Object:
		if last {
			return n.Delete(seg), nil
		}
		existing, _ := n.Get(seg)
		updated, err := deleteIn(existing, path, depth+1)
		if err != nil {
			return nil, err
		}
		return n.Set(seg, updated), nil
	case Array:
		i, _ := strconv.Atoi(seg) // Lookup already validated the path
		if last {
			return n.Without(i), nil
		}
		updated, err := deleteIn(n[i], path, depth+1)
		if err != nil {
			return nil, err
		}
		return n.With(i, updated), nil
	default:
		return nil, &PathError{Path: JoinPath(path[:depth]...), Message: "cannot descend into " + TypeName(node)}
	}
}
