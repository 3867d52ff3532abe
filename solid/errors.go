package solid

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrCycle is returned when a flush keeps scheduling work past the runtime's ceiling,
	// which means some computation writes to something it depends on.
	ErrCycle = errors.New("solid: potential infinite loop detected")

	// ErrDisposed is returned when running code under an owner that has been disposed.
	ErrDisposed = errors.New("solid: owner disposed")
)

// Owner-scoped key holding the error handlers registered with OnError.
var symbolErrors = xxhash.Sum64String("SYMBOL_ERRORS")

// ComputationError wraps an error returned (or a panic raised) by a user function.
type ComputationError struct {
	Name string
	Kind string
	Err  error
}

func (e *ComputationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("solid: %s %q failed: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("solid: %s failed: %v", e.Kind, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// safeCall runs fn and turns a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", rErr)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	return fn()
}

// OnError registers a handler on the current owner. Errors raised by computations
// in this scope (or below it) go to the closest handlers instead of the caller.
func OnError(rt *Runtime, fn func(err error)) {
	if rt.owner == nil {
		rt.logger.Warn("error handlers created outside a `CreateRoot` or `RunWithOwner` will never be run")
		return
	}
	o := rt.owner
	if o.values == nil {
		o.values = map[uint64]any{}
	}
	fns, _ := o.values[symbolErrors].([]func(error))
	o.values[symbolErrors] = append(fns, fn)
}

// CatchError runs fn in a new scope whose errors are routed to handler.
func CatchError(rt *Runtime, fn func() error, handler func(err error)) {
	scope := rt.createComputation(kindScope, "catch")
	scope.values = map[uint64]any{symbolErrors: []func(error){handler}}

	prevOwner := rt.owner
	rt.owner = &scope.Owner
	defer func() { rt.owner = prevOwner }()

	if err := safeCall(fn); err != nil {
		rt.handleError(&scope.Owner, err)
	}
}

// handleError hands err to the closest error handlers above from, or keeps it for
// the outermost flush to return.
func (rt *Runtime) handleError(from *Owner, err error) {
	if v, ok := from.lookup(symbolErrors); ok {
		if fns, _ := v.([]func(error)); len(fns) > 0 {
			for _, fn := range fns {
				if hErr := safeCall(func() error { fn(err); return nil }); hErr != nil {
					rt.report(hErr)
				}
			}
			return
		}
	}
	rt.report(err)
}

func (rt *Runtime) report(err error) {
	if rt.depth == 0 {
		rt.logger.Error("unhandled computation error", "err", err)
		return
	}
	rt.errs = append(rt.errs, err)
}
