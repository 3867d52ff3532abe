package solid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal(t *testing.T) {
	t.Run("equal write is dropped", func(t *testing.T) {
		rt := newTestRuntime(t)
		s := NewSignal(rt, 1)
		callCount := 0
		memo(t, rt, func(int) int {
			callCount++
			return s.Read()
		})
		require.Equal(t, 1, s.Observers())

		clock := rt.Clock()
		require.NoError(t, s.Write(1))
		assert.Equal(t, clock, rt.Clock())
		assert.Equal(t, 1, callCount)

		require.NoError(t, s.Write(2))
		assert.Greater(t, rt.Clock(), clock)
		assert.Equal(t, 2, callCount)
	})

	t.Run("slices compare by value", func(t *testing.T) {
		rt := newTestRuntime(t)
		s := NewSignal(rt, []int{1, 2})
		callCount := 0
		memo(t, rt, func(int) int {
			callCount++
			return len(s.Read())
		})

		require.NoError(t, s.Write([]int{1, 2}))
		assert.Equal(t, 1, callCount)
		require.NoError(t, s.Write([]int{1, 2, 3}))
		assert.Equal(t, 2, callCount)
	})

	t.Run("without equals every write propagates", func(t *testing.T) {
		rt := newTestRuntime(t)
		s := NewSignal(rt, 1, WithoutEquals[int]())
		callCount := 0
		m := memo(t, rt, func(int) int {
			callCount++
			return s.Read()
		})
		downstream := 0
		memo(t, rt, func(int) int {
			downstream++
			return m.Read()
		})

		require.NoError(t, s.Write(1))
		require.NoError(t, s.Write(1))
		assert.Equal(t, 3, callCount)
		// m still compares its own value.
		assert.Equal(t, 1, downstream)
	})

	t.Run("custom equals", func(t *testing.T) {
		rt := newTestRuntime(t)
		s := NewSignal(rt, "hello", WithEquals(strings.EqualFold))
		callCount := 0
		m := memo(t, rt, func(string) string {
			callCount++
			return s.Read()
		})

		require.NoError(t, s.Write("HELLO"))
		assert.Equal(t, "hello", s.Peek())
		assert.Equal(t, 1, callCount)

		require.NoError(t, s.Write("world"))
		assert.Equal(t, "world", m.Read())
		assert.Equal(t, 2, callCount)
	})

	t.Run("update", func(t *testing.T) {
		rt := newTestRuntime(t)
		count, setCount := CreateSignal(rt, 1)
		double := memo(t, rt, func(int) int {
			return count() * 2
		})
		require.NoError(t, setCount(5))
		assert.Equal(t, 10, double.Read())

		s := NewSignal(rt, 1)
		require.NoError(t, s.Update(func(prev int) int { return prev + 41 }))
		assert.Equal(t, 42, s.Peek())
	})

	t.Run("memo gets its previous value", func(t *testing.T) {
		rt := newTestRuntime(t)
		s := NewSignal(rt, 1)
		m, err := CreateMemo(rt, func(prev int) (int, error) {
			return prev + s.Read(), nil
		}, 100)
		require.NoError(t, err)
		assert.Equal(t, 101, m.Read())

		require.NoError(t, s.Write(2))
		assert.Equal(t, 103, m.Accessor()())
	})

	t.Run("memo custom equals", func(t *testing.T) {
		rt := newTestRuntime(t)
		s := NewSignal(rt, 1)
		parity := memo(t, rt, func(int) int {
			return s.Read()
		}, WithEquals(func(prev, next int) bool { return prev%2 == next%2 }))
		callCount := 0
		memo(t, rt, func(int) int {
			callCount++
			return parity.Read()
		})

		require.NoError(t, s.Write(3))
		assert.Equal(t, 1, callCount)
		assert.Equal(t, 1, parity.Peek())
		require.NoError(t, s.Write(4))
		assert.Equal(t, 2, callCount)
		assert.Equal(t, 4, parity.Peek())
	})
}

func TestUntrack(t *testing.T) {
	/*
	   a  b (untracked)
	   |
	   c
	*/
	t.Run("untracked reads are not linked", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		b := NewSignal(rt, 10)
		callCount := 0
		c := memo(t, rt, func(int) int {
			callCount++
			return a.Read() + Untrack(rt, b.Read)
		})

		assert.Equal(t, 11, c.Read())
		assert.Equal(t, 0, b.Observers())

		require.NoError(t, b.Write(20))
		assert.Equal(t, 1, callCount)
		assert.Equal(t, 11, c.Read())

		require.NoError(t, a.Write(2))
		assert.Equal(t, 22, c.Read())
		assert.Equal(t, 2, callCount)
	})

	t.Run("peek does not track", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		m := memo(t, rt, func(int) int {
			return a.Peek()
		})
		assert.Equal(t, 0, a.Observers())
		require.NoError(t, a.Write(2))
		assert.Equal(t, 1, m.Read())
	})

	t.Run("tracking resumes after untrack", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		b := NewSignal(rt, 2)
		var seen []int
		effect(t, rt, func() {
			rt.Untrack(func() {
				a.Read()
			})
			seen = append(seen, b.Read())
		})
		assert.Equal(t, 0, a.Observers())
		assert.Equal(t, 1, b.Observers())

		require.NoError(t, a.Write(3))
		require.NoError(t, b.Write(4))
		assert.Equal(t, []int{2, 4}, seen)
	})

	t.Run("reading twice links once", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		callCount := 0
		memo(t, rt, func(int) int {
			callCount++
			return a.Read() + a.Read() + a.Read()
		})
		assert.Equal(t, 1, a.Observers())
		require.NoError(t, a.Write(2))
		assert.Equal(t, 2, callCount)
		requireSlotsConsistent(t, &a.src)
	})
}
