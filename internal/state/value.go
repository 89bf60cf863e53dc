package state

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the node types of a snapshot tree.
// Only Null, String, Int, Bool, Array and *Object implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an explicit null leaf.
type Null struct{}

func (Null) value() {}

// String is a string leaf.
type String string

func (String) value() {}

// Int is an integer leaf. Always int64, never float64.
type Int int64

func (Int) value() {}

// Bool is a boolean leaf.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
// Arrays are treated as immutable: use With and Append to derive new ones.
type Array []Value

func (Array) value() {}

// With returns a copy of the array with index i replaced by v.
// Out-of-range indexes return the array unchanged.
func (a Array) With(i int, v Value) Array {
	if i < 0 || i >= len(a) {
		return a
	}
	out := slices.Clone(a)
	out[i] = v
	return out
}

// Append returns a new array with vals appended. The receiver is never
// aliased by the result.
func (a Array) Append(vals ...Value) Array {
	out := make(Array, 0, len(a)+len(vals))
	out = append(out, a...)
	return append(out, vals...)
}

// Without returns a copy of the array with index i removed.
func (a Array) Without(i int) Array {
	if i < 0 || i >= len(a) {
		return a
	}
	out := make(Array, 0, len(a)-1)
	out = append(out, a[:i]...)
	return append(out, a[i+1:]...)
}

// sortKeys orders keys in RFC 8785 canonical order (UTF-16 code units).
// Go's default string comparison uses UTF-8 which produces a different order
// for characters outside the BMP.
func sortKeys(keys []string) {
	slices.SortFunc(keys, compareKeysRFC8785)
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// TypeName returns a short lowercase name for the value's node type.
// Used in error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "absent"
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case *Object:
		return "object"
	default:
		return "unknown"
	}
}
