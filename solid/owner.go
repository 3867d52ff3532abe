package solid

// Owner is a node in the disposal tree. Disposing it disposes everything created
// under it, last created first, then runs its cleanups in reverse order.
//
// Roots and every computation are owners. A root is detached: its parent is only
// used to look up context and error handlers, it never disposes the root.
type Owner struct {
	rt     *Runtime
	parent *Owner

	owned    []*computation
	cleanups []func()
	// Context values and error handlers, looked up through parents.
	values map[uint64]any

	// comp is the computation this scope belongs to, nil for roots.
	comp     *computation
	disposed bool
}

// IsDisposed reports whether the owner has been disposed.
func (o *Owner) IsDisposed() bool {
	return o.disposed
}

// Dispose disposes the owner. For a computation this also detaches it from its
// parent. Disposing twice is a no-op.
func (o *Owner) Dispose() {
	if o.comp != nil {
		o.comp.Dispose()
		return
	}
	if o.disposed {
		return
	}
	Untrack(o.rt, func() struct{} {
		o.clean()
		return struct{}{}
	})
	o.disposed = true
	o.values = nil
	o.rt.roots.Remove(o)
}

func (c *computation) Dispose() {
	if c.disposed {
		return
	}
	Untrack(c.rt, func() struct{} {
		c.destroy()
		return struct{}{}
	})
	if c.parent != nil {
		c.parent.removeOwned(c)
	}
}

func (o *Owner) clean() {
	o.disposeOwned()
	for i := len(o.cleanups) - 1; i >= 0; i-- {
		fn := o.cleanups[i]
		if err := safeCall(func() error { fn(); return nil }); err != nil {
			o.rt.logger.Error("cleanup failed", "err", err)
		}
	}
	o.cleanups = nil
}

func (o *Owner) disposeOwned() {
	owned := o.owned
	o.owned = nil
	for i := len(owned) - 1; i >= 0; i-- {
		owned[i].destroy()
	}
}

func (o *Owner) removeOwned(c *computation) {
	for i, child := range o.owned {
		if child == c {
			o.owned = append(o.owned[:i], o.owned[i+1:]...)
			return
		}
	}
}

func (o *Owner) lookup(key uint64) (any, bool) {
	for ; o != nil; o = o.parent {
		if v, ok := o.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// CreateRoot runs fn in a new detached owner and returns what fn returns. fn gets
// the function that disposes the root; nothing else will. Reads inside fn are not
// tracked and effects created in it run once fn returns.
func CreateRoot[T any](rt *Runtime, fn func(dispose func()) (T, error)) (T, error) {
	root := &Owner{rt: rt, parent: rt.owner}
	rt.roots.Add(root)

	prevOwner, prevListener := rt.owner, rt.listener
	rt.owner, rt.listener = root, nil
	defer func() { rt.owner, rt.listener = prevOwner, prevListener }()

	var result T
	err := rt.runUpdates(func() error {
		return safeCall(func() (err error) {
			result, err = fn(root.Dispose)
			return err
		})
	}, true)
	return result, err
}

// GetOwner returns the owner new computations would attach to, nil outside any scope.
func GetOwner(rt *Runtime) *Owner {
	return rt.owner
}

// RunWithOwner runs fn as if it was called inside o: computations, cleanups and
// context reads attach to o. Reads are not tracked.
func RunWithOwner(o *Owner, fn func() error) error {
	if o.disposed {
		return ErrDisposed
	}
	rt := o.rt

	prevOwner, prevListener := rt.owner, rt.listener
	rt.owner, rt.listener = o, nil
	defer func() { rt.owner, rt.listener = prevOwner, prevListener }()

	return rt.runUpdates(func() error {
		if err := safeCall(fn); err != nil {
			rt.handleError(o, err)
		}
		return nil
	}, true)
}

// OnCleanup registers fn on the current owner. It runs when the owner is disposed
// or, for a computation, right before it re-runs.
func OnCleanup(rt *Runtime, fn func()) {
	if rt.owner == nil {
		rt.logger.Warn("cleanups created outside a `CreateRoot` or `RunWithOwner` will never be run")
		return
	}
	rt.owner.cleanups = append(rt.owner.cleanups, fn)
}
