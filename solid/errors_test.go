package solid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCycles(t *testing.T) {
	/*
	   a <-+
	   |   |
	   m --+ (writes a)
	*/
	t.Run("memo writing its own source", func(t *testing.T) {
		rt := newTestRuntime(t, WithMaxUpdates(10))
		a := NewSignal(rt, 0)
		runs := 0
		_, err := CreateMemo(rt, func(int) (int, error) {
			runs++
			v := a.Read()
			_ = a.Write(v + 1)
			return v, nil
		}, 0)
		require.ErrorIs(t, err, ErrCycle)
		assert.Less(t, runs, 20)

		// The runtime is usable again once the flush is dropped.
		b := NewSignal(rt, 1)
		double := memo(t, rt, func(int) int {
			return b.Read() * 2
		})
		require.NoError(t, b.Write(2))
		assert.Equal(t, 4, double.Read())
	})

	/*
	   a <-+
	   |   |
	   e --+ (writes a)
	*/
	t.Run("effect writing its own source", func(t *testing.T) {
		rt := newTestRuntime(t, WithMaxEffectRounds(5))
		a := NewSignal(rt, 0)
		_, err := CreateEffect(rt, func() error {
			v := a.Read()
			_ = a.Write(v + 1)
			return nil
		})
		require.ErrorIs(t, err, ErrCycle)
		assert.LessOrEqual(t, a.Peek(), 6)

		var seen []int
		b := NewSignal(rt, 1)
		effect(t, rt, func() {
			seen = append(seen, b.Read())
		})
		require.NoError(t, b.Write(2))
		assert.Equal(t, []int{1, 2}, seen)
	})
}

func TestComputationErrors(t *testing.T) {
	t.Run("returned from the flush", func(t *testing.T) {
		rt := newTestRuntime(t)
		_, err := CreateMemo(rt, func(int) (int, error) {
			return 0, errBoom
		}, 0, Named[int]("total"))
		require.ErrorIs(t, err, errBoom)

		var cErr *ComputationError
		require.ErrorAs(t, err, &cErr)
		assert.Equal(t, "total", cErr.Name)
		assert.Equal(t, "memo", cErr.Kind)
		assert.Contains(t, err.Error(), `memo "total" failed: boom`)
	})

	t.Run("panics become errors", func(t *testing.T) {
		rt := newTestRuntime(t)
		_, err := CreateEffect(rt, func() error {
			panic("kaboom")
		}, EffectName("exploder"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic: kaboom")

		_, err = CreateEffect(rt, func() error {
			panic(errBoom)
		})
		require.ErrorIs(t, err, errBoom)
	})

	/*
	     a
	    / \
	  e1   e2
	*/
	t.Run("siblings keep running", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		var first, second []int
		_, err := CreateEffect(rt, func() error {
			v := a.Read()
			if v == 2 {
				return errBoom
			}
			first = append(first, v)
			return nil
		})
		require.NoError(t, err)
		effect(t, rt, func() {
			second = append(second, a.Read())
		})

		err = a.Write(2)
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, []int{1, 2}, second)

		// The failed effect still tracks a.
		require.NoError(t, a.Write(3))
		assert.Equal(t, []int{1, 3}, first)
		assert.Equal(t, []int{1, 2, 3}, second)
	})

	t.Run("failed memo stays stale until read", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		runs := 0
		m, err := CreateMemo(rt, func(prev int) (int, error) {
			runs++
			v := a.Read()
			if v == 2 {
				return prev, errBoom
			}
			return v, nil
		}, 0)
		require.NoError(t, err)

		require.ErrorIs(t, a.Write(2), errBoom)
		assert.Equal(t, stateStale, m.comp.state)
		assert.Equal(t, 1, m.Peek())
		assert.Equal(t, 2, runs)

		// Already stale, so the write alone does not schedule it again.
		require.NoError(t, a.Write(3))
		assert.Equal(t, 2, runs)
		assert.Equal(t, 3, m.Read())
		assert.Equal(t, 3, runs)
		assert.Equal(t, stateClean, m.comp.state)
	})

	t.Run("memo recovering in the same batch", func(t *testing.T) {
		rt := newTestRuntime(t)
		s := NewSignal(rt, 1)
		m, err := CreateMemo(rt, func(int) (int, error) {
			v := s.Read()
			if v < 0 {
				return 0, errBoom
			}
			return v * 10, nil
		}, 0)
		require.NoError(t, err)

		var seen []int
		effect(t, rt, func() {
			seen = append(seen, m.Read())
		})

		err = rt.Batch(func() error {
			require.NoError(t, s.Write(-1))
			assert.Equal(t, 10, m.Read())
			require.NoError(t, s.Write(5))
			assert.Equal(t, 50, m.Read())
			return nil
		})
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, 50, m.Read())
		assert.Equal(t, stateClean, m.comp.state)
		assert.Equal(t, []int{10, 50}, seen)
	})

	t.Run("failed pure computation disposes what it created", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		childCleanups := 0
		_, err := CreateComputed(rt, func() error {
			v := a.Read()
			if _, err := CreateComputed(rt, func() error {
				OnCleanup(rt, func() { childCleanups++ })
				return nil
			}); err != nil {
				return err
			}
			if v == 2 {
				return errBoom
			}
			return nil
		})
		require.NoError(t, err)

		require.ErrorIs(t, a.Write(2), errBoom)
		assert.Equal(t, 2, childCleanups)
	})
}

func TestErrorHandlers(t *testing.T) {
	t.Run("on error", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		var handled []error
		root(t, rt, func(func()) {
			OnError(rt, func(err error) {
				handled = append(handled, err)
			})
			effect(t, rt, func() {
				if a.Read() == 2 {
					panic(errBoom)
				}
			})
		})

		require.NoError(t, a.Write(2))
		require.Len(t, handled, 1)
		require.ErrorIs(t, handled[0], errBoom)
		var cErr *ComputationError
		require.ErrorAs(t, handled[0], &cErr)
		assert.Equal(t, "effect", cErr.Kind)
	})

	t.Run("closest handler wins", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		var outer, inner int
		root(t, rt, func(func()) {
			OnError(rt, func(error) { outer++ })
			effect(t, rt, func() {
				OnError(rt, func(error) { inner++ })
				effect(t, rt, func() {
					if a.Read() == 2 {
						panic("inner")
					}
				})
			})
		})

		require.NoError(t, a.Write(2))
		assert.Equal(t, 0, outer)
		assert.Equal(t, 1, inner)
	})

	t.Run("failing handler is reported", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		root(t, rt, func(func()) {
			OnError(rt, func(error) { panic("handler") })
			effect(t, rt, func() {
				if a.Read() == 2 {
					panic("effect")
				}
			})
		})

		err := a.Write(2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic: handler")
	})

	t.Run("catch error", func(t *testing.T) {
		rt := newTestRuntime(t)
		a := NewSignal(rt, 1)
		var handled []error
		root(t, rt, func(func()) {
			CatchError(rt, func() error {
				_, err := CreateMemo(rt, func(int) (int, error) {
					if v := a.Read(); v != 2 {
						return v, nil
					}
					return 0, errBoom
				}, 0)
				return err
			}, func(err error) {
				handled = append(handled, err)
			})

			CatchError(rt, func() error {
				return errors.New("direct")
			}, func(err error) {
				handled = append(handled, err)
			})
		})
		require.Len(t, handled, 1)
		assert.EqualError(t, handled[0], "direct")

		require.NoError(t, a.Write(2))
		require.Len(t, handled, 2)
		require.ErrorIs(t, handled[1], errBoom)
	})
}
