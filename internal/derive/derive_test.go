package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hafiza/internal/state"
)

func todos(items ...state.Value) *state.Object {
	return state.NewObject(
		state.P("todos", state.Array(items)),
		state.P("filter", state.String("all")),
	)
}

func todo(text string, done bool) *state.Object {
	return state.NewObject(state.P("text", state.String(text)), state.P("done", state.Bool(done)))
}

func TestComputed_RecordsReadPaths(t *testing.T) {
	count := NewComputed("count", func(c Cursor) int {
		return c.Get("todos").Len()
	})

	s := todos(todo("a", false), todo("b", true))
	assert.Equal(t, 2, count.Eval(s))
	assert.Equal(t, []string{"todos", "todos.length"}, count.Dependencies())
	assert.Equal(t, KindComputed, count.Kind())
}

func TestComputed_DependenciesAreReplaced(t *testing.T) {
	branch := NewComputed("branch", func(c Cursor) int64 {
		if c.Get("flag").Bool() {
			return c.At("a.b").Int()
		}
		return c.At("a.c").Int()
	})

	a := state.NewObject(state.P("b", state.Int(1)), state.P("c", state.Int(2)))
	on := state.NewObject(state.P("flag", state.Bool(true)), state.P("a", a))
	off := on.Set("flag", state.Bool(false))

	assert.Equal(t, int64(1), branch.Eval(on))
	assert.ElementsMatch(t, []string{"flag", "a", "a.b"}, branch.Dependencies())

	assert.Equal(t, int64(2), branch.Eval(off))
	assert.ElementsMatch(t, []string{"flag", "a", "a.c"}, branch.Dependencies())
	assert.NotContains(t, branch.Dependencies(), "a.b")
}

func TestComputed_DependenciesReplacedOnPanic(t *testing.T) {
	explode := NewComputed("explode", func(c Cursor) int {
		c.Get("x")
		panic("boom")
	})
	require.Panics(t, func() { explode.Eval(state.Empty()) })
	assert.Equal(t, []string{"x"}, explode.Dependencies())
}

func TestComputed_FilterTracksLengthAndIndexes(t *testing.T) {
	open := NewComputed("open", func(c Cursor) []string {
		var out []string
		for _, item := range c.Get("todos").Items() {
			if !item.Get("done").Bool() {
				out = append(out, item.Get("text").String())
			}
		}
		return out
	})

	s := todos(todo("a", false), todo("b", true))
	assert.Equal(t, []string{"a"}, open.Eval(s))
	deps := open.Dependencies()
	assert.Contains(t, deps, "todos.length")
	assert.Contains(t, deps, "todos.0.done")
	assert.Contains(t, deps, "todos.1.done")
	assert.Contains(t, deps, "todos.0.text")
	assert.NotContains(t, deps, "filter")
}

func TestComputed_NestedReadMirrorsIntoOuter(t *testing.T) {
	inner := NewComputed("name", func(c Cursor) string {
		return c.Get("name").String()
	})
	outer := NewComputed("greeting", func(c Cursor) string {
		return "hi " + inner.Read(c.Get("user"))
	})

	s := state.NewObject(state.P("user", state.NewObject(state.P("name", state.String("ada")))))
	assert.Equal(t, "hi ada", outer.Eval(s))
	assert.Equal(t, []string{"name"}, inner.Dependencies())
	assert.Equal(t, []string{"user", "user.name"}, outer.Dependencies())
}

func TestComputed_MissingPathsAreSafe(t *testing.T) {
	c := NewComputed("deep", func(c Cursor) bool {
		return c.At("a.b.c").Exists()
	})
	assert.False(t, c.Eval(state.Empty()))
	assert.Equal(t, []string{"a", "a.b", "a.b.c"}, c.Dependencies())
}

func TestShouldRecompute(t *testing.T) {
	count := NewComputed("count", func(c Cursor) int {
		return c.Get("todos").Len()
	})

	s1 := todos(todo("a", false))
	count.Eval(s1)

	t.Run("unrelated field", func(t *testing.T) {
		s2 := s1.Set("filter", state.String("done"))
		assert.False(t, ShouldRecompute(count, s1, s2))
	})

	t.Run("same snapshot", func(t *testing.T) {
		assert.False(t, ShouldRecompute(count, s1, s1))
	})

	t.Run("appended item", func(t *testing.T) {
		arr, _ := s1.Get("todos")
		s2 := s1.Set("todos", arr.(state.Array).Append(todo("b", false)))
		assert.True(t, ShouldRecompute(count, s1, s2))
	})
}

func TestChanged_Rules(t *testing.T) {
	shared := todo("a", false)

	tests := []struct {
		name string
		prev *state.Object
		next *state.Object
		want bool
	}{
		{
			name: "equal scalars",
			prev: state.NewObject(state.P("x", state.Int(1))),
			next: state.NewObject(state.P("x", state.Int(1))),
			want: false,
		},
		{
			name: "different scalars",
			prev: state.NewObject(state.P("x", state.Int(1))),
			next: state.NewObject(state.P("x", state.Int(2))),
			want: true,
		},
		{
			name: "scalar type change",
			prev: state.NewObject(state.P("x", state.Int(1))),
			next: state.NewObject(state.P("x", state.String("1"))),
			want: true,
		},
		{
			name: "both absent",
			prev: state.Empty(),
			next: state.NewObject(state.P("y", state.Int(1))),
			want: false,
		},
		{
			name: "absent to present",
			prev: state.Empty(),
			next: state.NewObject(state.P("x", state.Int(0))),
			want: true,
		},
		{
			name: "present to absent",
			prev: state.NewObject(state.P("x", state.Null{})),
			next: state.Empty(),
			want: true,
		},
		{
			name: "same object reference",
			prev: state.NewObject(state.P("x", shared)),
			next: state.NewObject(state.P("x", shared)),
			want: false,
		},
		{
			name: "structurally equal objects differ by identity",
			prev: state.NewObject(state.P("x", todo("a", false))),
			next: state.NewObject(state.P("x", todo("a", false))),
			want: true,
		},
		{
			name: "arrays equal element-wise",
			prev: state.NewObject(state.P("x", state.Array{state.Int(1), shared})),
			next: state.NewObject(state.P("x", state.Array{state.Int(1), shared})),
			want: false,
		},
		{
			name: "arrays of different length",
			prev: state.NewObject(state.P("x", state.Array{state.Int(1)})),
			next: state.NewObject(state.P("x", state.Array{state.Int(1), state.Int(2)})),
			want: true,
		},
		{
			name: "array element changed",
			prev: state.NewObject(state.P("x", state.Array{state.Int(1)})),
			next: state.NewObject(state.P("x", state.Array{state.Int(9)})),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Changed([]string{"x"}, tt.prev, tt.next))
		})
	}
}

func TestChanged_NoDependencies(t *testing.T) {
	assert.False(t, Changed(nil, state.Empty(), todos()))
}

func TestSelector_MemoizesOnIdentity(t *testing.T) {
	calls := 0
	sel := NewSelector(func(s *state.Object) int {
		calls++
		v, _ := s.Get("todos")
		return len(v.(state.Array))
	})
	assert.Equal(t, KindSelector, sel.Kind())

	s1 := todos(todo("a", false))
	assert.Equal(t, 1, sel.Eval(s1))
	assert.Equal(t, 1, sel.Eval(s1))
	assert.Equal(t, 1, calls)

	// Irrelevant change still invalidates a selector.
	s2 := s1.Set("filter", state.String("done"))
	assert.Equal(t, 1, sel.Eval(s2))
	assert.Equal(t, 2, calls)
}

func TestCursor_Accessors(t *testing.T) {
	s := state.NewObject(
		state.P("n", state.Int(7)),
		state.P("ok", state.Bool(true)),
		state.P("word", state.String("h\u00e9")),
		state.P("obj", state.NewObject(state.P("b", state.Int(1)), state.P("a", state.Int(2)))),
	)
	c := NewCursor(s)

	assert.Equal(t, int64(7), c.Get("n").Int())
	assert.True(t, c.Get("ok").Bool())
	assert.Equal(t, 2, c.Get("word").Len())
	assert.Equal(t, []string{"a", "b"}, c.Get("obj").Keys())
	assert.Equal(t, "obj.a", c.At("obj.a").Path())
	assert.Equal(t, "", c.Get("missing").String())
	assert.False(t, c.Get("missing").Exists())

	var keys []string
	for k, v := range c.Get("obj").Entries() {
		keys = append(keys, k)
		assert.True(t, v.Exists())
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}
