package state

import (
	"iter"
	"maps"
)

// Object is an immutable keyed node. Identity is the pointer: two distinct
// *Object values are different snapshots even when their contents match.
type Object struct {
	fields map[string]Value
}

func (*Object) value() {}

// Pair is a key/value pair for typed Object construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewObject(P("count", Int(0)), P("name", String("cart")))
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject builds an object from pairs. Later pairs win on duplicate keys.
func NewObject(pairs ...Pair) *Object {
	fields := make(map[string]Value, len(pairs))
	for _, p := range pairs {
		fields[p.Key] = p.Value
	}
	return &Object{fields: fields}
}

// FromMap builds an object from a map. The map is copied.
func FromMap(m map[string]Value) *Object {
	return &Object{fields: maps.Clone(m)}
}

// Empty returns a new empty object.
func Empty() *Object {
	return &Object{fields: map[string]Value{}}
}

// Get returns the value stored at key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

// Keys returns keys in RFC 8785 canonical order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// All iterates key/value pairs in canonical key order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range o.Keys() {
			if !yield(k, o.fields[k]) {
				return
			}
		}
	}
}

// Set returns a new object with key bound to v. Every other child is shared
// with the receiver.
func (o *Object) Set(key string, v Value) *Object {
	fields := make(map[string]Value, o.Len()+1)
	if o != nil {
		maps.Copy(fields, o.fields)
	}
	fields[key] = v
	return &Object{fields: fields}
}

// Delete returns a new object without key. When key is absent the receiver
// itself is returned, so callers can detect a no-op by identity.
func (o *Object) Delete(key string) *Object {
	if !o.Has(key) {
		return o
	}
	fields := maps.Clone(o.fields)
	delete(fields, key)
	return &Object{fields: fields}
}

// Merge returns a new object with every key of other written over the
// receiver (shallow).
func (o *Object) Merge(other *Object) *Object {
	if other.Len() == 0 {
		return o
	}
	fields := make(map[string]Value, o.Len()+other.Len())
	if o != nil {
		maps.Copy(fields, o.fields)
	}
	maps.Copy(fields, other.fields)
	return &Object{fields: fields}
}
