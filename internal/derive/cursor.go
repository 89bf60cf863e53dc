package derive

import (
	"iter"
	"strconv"
	"unicode/utf8"

	"github.com/roach88/hafiza/internal/state"
)

// frame collects the paths read during one evaluation.
type frame struct {
	seen  map[string]struct{}
	order []string

	// Enclosing evaluation, for nested computed values.
	parent *frame
	prefix []string
}

func newFrame(parent *frame, prefix []string) *frame {
	return &frame{seen: make(map[string]struct{}), parent: parent, prefix: prefix}
}

func (f *frame) record(path []string) {
	if f == nil || len(path) == 0 {
		return
	}
	key := state.JoinPath(path...)
	if _, ok := f.seen[key]; !ok {
		f.seen[key] = struct{}{}
		f.order = append(f.order, key)
	}
	if f.parent != nil {
		f.parent.record(joinSegments(f.prefix, path))
	}
}

func (f *frame) paths() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// joinSegments never aliases either input.
func joinSegments(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// Cursor is a read-only, tracking view of a position in a snapshot.
//
// Cursors are cheap values. Reading through a cursor that points at a
// missing position is safe and yields further missing cursors.
type Cursor struct {
	frame *frame
	path  []string
	node  state.Value
	found bool
}

// NewCursor returns an untracked cursor over root. Useful for sharing one
// projection body between computed values and plain code.
func NewCursor(root state.Value) Cursor {
	return Cursor{node: root, found: root != nil}
}

// Get descends into an object key (or array index given as a string).
func (c Cursor) Get(key string) Cursor {
	p := joinSegments(c.path, []string{key})
	c.frame.record(p)
	v, ok := state.Lookup(c.node, []string{key})
	return Cursor{frame: c.frame, path: p, node: v, found: ok}
}

// Index descends into an array element.
func (c Cursor) Index(i int) Cursor {
	return c.Get(strconv.Itoa(i))
}

// At follows a dot-joined path, recording every prefix on the way just as
// chained Get calls would.
func (c Cursor) At(path string) Cursor {
	cur := c
	for _, seg := range state.ParsePath(path) {
		cur = cur.Get(seg)
	}
	return cur
}

// Len returns the length of an array (or rune count of a string) and
// records "<path>.length".
func (c Cursor) Len() int {
	c.frame.record(joinSegments(c.path, []string{state.LengthSegment}))
	switch n := c.node.(type) {
	case state.Array:
		return len(n)
	case state.String:
		return utf8.RuneCountInString(string(n))
	default:
		return 0
	}
}

// Items iterates array elements. Reading the sequence records the length
// and each visited index.
func (c Cursor) Items() iter.Seq2[int, Cursor] {
	return func(yield func(int, Cursor) bool) {
		n := c.Len()
		for i := 0; i < n; i++ {
			if !yield(i, c.Index(i)) {
				return
			}
		}
	}
}

// Keys returns object keys in canonical order. Listing keys records no
// path beyond the cursor's own.
func (c Cursor) Keys() []string {
	if obj, ok := c.node.(*state.Object); ok {
		return obj.Keys()
	}
	return nil
}

// Entries iterates object fields, recording each visited key.
func (c Cursor) Entries() iter.Seq2[string, Cursor] {
	return func(yield func(string, Cursor) bool) {
		for _, k := range c.Keys() {
			if !yield(k, c.Get(k)) {
				return
			}
		}
	}
}

// Exists reports whether the cursor points at a present value.
func (c Cursor) Exists() bool {
	return c.found
}

// Path returns the dot-joined path of the cursor.
func (c Cursor) Path() string {
	return state.JoinPath(c.path...)
}

// Value returns the raw value at the cursor. No tracking wrapper leaks out:
// the result is plain snapshot data.
func (c Cursor) Value() state.Value {
	return c.node
}

// String returns the string at the cursor, or "".
func (c Cursor) String() string {
	s, _ := c.node.(state.String)
	return string(s)
}

// Int returns the integer at the cursor, or 0.
func (c Cursor) Int() int64 {
	n, _ := c.node.(state.Int)
	return int64(n)
}

// Bool returns the boolean at the cursor, or false.
func (c Cursor) Bool() bool {
	b, _ := c.node.(state.Bool)
	return bool(b)
}
