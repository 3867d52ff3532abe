package solid

import "reflect"

type nodeState uint8

const (
	stateClean   nodeState = iota // value is valid, nothing to do
	stateStale                    // a direct source changed, must re-run
	statePending                  // an upstream memo might change, check sources before re-running
)

type nodeKind uint8

const (
	kindScope        nodeKind = iota // plain owner, never runs
	kindMemo                         // pure, exposes a value
	kindComputed                     // pure, no value
	kindRenderEffect                 // effect, system cohort
	kindUserEffect                   // effect, user cohort
)

func (k nodeKind) pure() bool {
	return k == kindMemo || k == kindComputed
}

func (k nodeKind) String() string {
	switch k {
	case kindScope:
		return "scope"
	case kindMemo:
		return "memo"
	case kindComputed:
		return "computed"
	case kindRenderEffect:
		return "render effect"
	case kindUserEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// Accessor reads a reactive value, tracking it when called inside a computation.
type Accessor[T any] func() T

// Setter writes a signal and flushes whatever the write made stale.
type Setter[T any] func(value T) error

// Equals reports whether two values should be considered the same.
// A write whose new value equals the current one is dropped.
type Equals[T any] func(prev, next T) bool

// source is the observable half of a node: either a signal or the output of a memo.
// observers[i] reads this source at observers[i].sources[observerSlots[i]].
type source struct {
	observers     []*computation
	observerSlots []int

	// comp is the memo producing this value, nil for plain signals.
	comp *computation
}

func defaultEquals[T any](prev, next T) bool {
	a, b := any(prev), any(next)
	t := reflect.TypeOf(a)
	if t == nil {
		return b == nil
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
