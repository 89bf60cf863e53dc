package history

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hafiza/internal/action"
)

func fixedNow() func() time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func pushCounts(l *Log[int], counts ...int) {
	for _, c := range counts {
		l.Push(c, action.New("set", c))
	}
}

func TestLog_JumpPastAndFuture(t *testing.T) {
	l := New[int](10)
	pushCounts(l, 0, 1, 2, 3)

	got, ok := l.JumpToPast(2)
	require.True(t, ok)
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, l.CurrentIndex())

	got, ok = l.JumpToFuture(1)
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, l.CurrentIndex())
}

func TestLog_EvictsOldestWhenFull(t *testing.T) {
	l := New[int](3)
	pushCounts(l, 0, 1, 2, 3, 4)

	require.Equal(t, 3, l.Len())
	var states []int
	for _, e := range l.Entries() {
		states = append(states, e.State)
	}
	assert.Equal(t, []int{2, 3, 4}, states)
	assert.Equal(t, 2, l.CurrentIndex())

	first, ok := l.At(0)
	require.True(t, ok)
	assert.Equal(t, int64(3), first.Seq)
}

func TestLog_GrowsOnDemand(t *testing.T) {
	l := New[int](5_000_000)
	assert.Equal(t, 5_000_000, l.Cap())
	assert.Zero(t, cap(l.buf), "no storage before the first push")

	pushCounts(l, 0, 1, 2)
	assert.Equal(t, 3, l.Len())
	assert.Less(t, cap(l.buf), 64)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	big := New[int](5_000_000)
	runtime.ReadMemStats(&after)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
	runtime.KeepAlive(big)

	l.Clear()
	assert.Nil(t, l.buf)
	assert.Equal(t, 5_000_000, l.Cap())
}

func TestLog_GrowThenWrap(t *testing.T) {
	l := New[int](4)
	pushCounts(l, 0, 1)
	_, ok := l.JumpToIndex(0)
	require.True(t, ok)
	pushCounts(l, 2, 3, 4, 5, 6)

	var states []int
	for _, e := range l.Entries() {
		states = append(states, e.State)
	}
	assert.Equal(t, []int{3, 4, 5, 6}, states)
	assert.Equal(t, 4, len(l.buf))
}

func TestLog_UndoRedoFlags(t *testing.T) {
	l := New[int](5)
	assert.False(t, l.CanUndo())
	assert.False(t, l.CanRedo())

	pushCounts(l, 0)
	assert.False(t, l.CanUndo())
	assert.False(t, l.CanRedo())

	pushCounts(l, 1)
	assert.True(t, l.CanUndo())
	assert.False(t, l.CanRedo())

	_, ok := l.JumpToPast(1)
	require.True(t, ok)
	assert.False(t, l.CanUndo())
	assert.True(t, l.CanRedo())
}

func TestLog_PushPrunesRedoBranch(t *testing.T) {
	l := New[int](10)
	pushCounts(l, 0, 1, 2, 3)

	_, ok := l.JumpToIndex(1)
	require.True(t, ok)
	l.Push(10, action.New("set", 10))

	var states []int
	for _, e := range l.Entries() {
		states = append(states, e.State)
	}
	assert.Equal(t, []int{0, 1, 10}, states)
	assert.Equal(t, 2, l.CurrentIndex())
	assert.False(t, l.CanRedo())
}

func TestLog_PruneThenEvictWrapsAround(t *testing.T) {
	l := New[int](3)
	pushCounts(l, 0, 1, 2, 3) // [1 2 3], start has wrapped

	_, ok := l.JumpToIndex(0)
	require.True(t, ok)
	pushCounts(l, 7, 8, 9)

	var states []int
	for _, e := range l.Entries() {
		states = append(states, e.State)
	}
	assert.Equal(t, []int{7, 8, 9}, states)
}

func TestLog_InvalidJumpsHaveNoEffect(t *testing.T) {
	l := New[int](5)
	_, ok := l.JumpToIndex(0)
	assert.False(t, ok)
	assert.Equal(t, -1, l.CurrentIndex())

	pushCounts(l, 0, 1)
	for _, i := range []int{-1, 2, 100} {
		_, ok := l.JumpToIndex(i)
		assert.False(t, ok, "index %d", i)
		assert.Equal(t, 1, l.CurrentIndex())
	}
	_, ok = l.JumpToPast(5)
	assert.False(t, ok)
	_, ok = l.JumpToFuture(1)
	assert.False(t, ok)
	assert.Equal(t, 1, l.CurrentIndex())
}

func TestLog_Clear(t *testing.T) {
	l := New[int](5)
	pushCounts(l, 0, 1, 2)
	l.Clear()

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, -1, l.CurrentIndex())
	_, ok := l.Current()
	assert.False(t, ok)

	e := l.Push(5, action.New("set", 5))
	assert.Equal(t, int64(4), e.Seq, "seq continues after clear")
	assert.Equal(t, 0, l.CurrentIndex())
}

func TestLog_Timestamps(t *testing.T) {
	l := New[string](0, WithNow(fixedNow()))
	assert.Equal(t, DefaultCapacity, l.Cap())

	a := l.Push("a", action.New("x"))
	b := l.Push("b", action.New("y"))
	assert.True(t, b.Timestamp.After(a.Timestamp))
	assert.Equal(t, "x", a.Action.Kind)

	cur, ok := l.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.State)
}

func TestLog_SharedClock(t *testing.T) {
	clock := NewClockAt(100)
	l := New[int](2, WithClock(clock))
	e := l.Push(1, action.New("x"))
	assert.Equal(t, int64(101), e.Seq)
	assert.Equal(t, int64(101), clock.Current())
}

func TestLog_ConcurrentPush(t *testing.T) {
	l := New[int](100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				l.Push(i*10+j, action.New("set"))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, l.Len())
	seen := make(map[int64]bool)
	for _, e := range l.Entries() {
		assert.False(t, seen[e.Seq])
		seen[e.Seq] = true
	}
}

func TestClock_Next(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}
