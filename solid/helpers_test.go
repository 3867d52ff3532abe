package solid

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRuntime(append([]Option{WithLogger(logger)}, opts...)...)
}

func memo[T any](t *testing.T, rt *Runtime, fn func(prev T) T, opts ...SignalOption[T]) *Memo[T] {
	t.Helper()
	var zero T
	m, err := CreateMemo(rt, func(prev T) (T, error) {
		return fn(prev), nil
	}, zero, opts...)
	require.NoError(t, err)
	return m
}

func effect(t *testing.T, rt *Runtime, fn func()) *Computation {
	t.Helper()
	e, err := CreateEffect(rt, func() error {
		fn()
		return nil
	})
	require.NoError(t, err)
	return e
}

// requireSlotsConsistent checks both directions of every edge touching src.
func requireSlotsConsistent(t *testing.T, src *source) {
	t.Helper()
	require.Len(t, src.observerSlots, len(src.observers))
	for i, o := range src.observers {
		slot := src.observerSlots[i]
		require.Less(t, slot, len(o.sources))
		require.Same(t, src, o.sources[slot])
		require.Equal(t, i, o.sourceSlots[slot])
	}
}

func root(t *testing.T, rt *Runtime, fn func(dispose func())) {
	t.Helper()
	_, err := CreateRoot(rt, func(dispose func()) (struct{}, error) {
		fn(dispose)
		return struct{}{}, nil
	})
	require.NoError(t, err)
}
