package solid

// Batch runs fn and holds every re-run its writes cause until fn returns, so
// computations depending on several written signals run once. Nested batches fold
// into the outermost one. Memos read inside fn are still up to date.
func (rt *Runtime) Batch(fn func() error) error {
	return rt.runUpdates(func() error {
		return safeCall(fn)
	}, false)
}

// Batch is Runtime.Batch for functions returning a value.
func Batch[T any](rt *Runtime, fn func() (T, error)) (T, error) {
	var result T
	err := rt.Batch(func() (err error) {
		result, err = fn()
		return err
	})
	return result, err
}

// Untrack runs fn without linking what it reads to the running computation.
func Untrack[T any](rt *Runtime, fn func() T) T {
	if rt.listener == nil {
		return fn()
	}
	prev := rt.listener
	rt.listener = nil
	defer func() { rt.listener = prev }()
	return fn()
}

// Untrack is the package level Untrack for functions without a result.
func (rt *Runtime) Untrack(fn func()) {
	Untrack(rt, func() struct{} {
		fn()
		return struct{}{}
	})
}

// On builds an effect body with explicit dependencies: only deps is tracked and fn
// runs untracked with the current and previous value of deps. With deferFirst the
// first run only records the dependencies.
//
//	solid.CreateEffect(rt, solid.On(rt, count.Read, func(v, prev int) error {
//		return nil
//	}, false))
func On[T any](rt *Runtime, deps func() T, fn func(value, prev T) error, deferFirst bool) func() error {
	var prev T
	skip := deferFirst
	return func() error {
		value := deps()
		if skip {
			skip = false
			prev = value
			return nil
		}
		last := prev
		prev = value
		return Untrack(rt, func() error {
			return fn(value, last)
		})
	}
}
