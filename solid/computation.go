package solid

// A computation is an owner that can re-run: memos, effects and plain scopes.
type computation struct {
	Owner

	name  string
	kind  nodeKind
	state nodeState

	// call runs the user function and keeps its result aside, commit publishes it.
	// Both are nil for scopes.
	call   func() error
	commit func(propagate bool)

	// Sources read during the last run. sourceSlots[i] is our index in sources[i].observers.
	sources     []*source
	sourceSlots []int

	// out is the memo's own value, nil for everything that isn't a memo.
	out *source

	updatedAt uint64
	ran       bool
	// failed is set when the last run returned an error, so the next good run commits.
	failed bool
	// seq orders effects by creation within a cohort.
	seq uint64
}

// Computation is a handle on an effect or computed node.
type Computation struct {
	c *computation
}

// Dispose stops the computation: its edges are removed, owned work is disposed
// and its cleanups run. Disposing twice is a no-op.
func (h *Computation) Dispose() {
	h.c.Dispose()
}

func (rt *Runtime) createComputation(kind nodeKind, name string) *computation {
	c := &computation{
		name:  name,
		kind:  kind,
		state: stateStale,
	}
	rt.nodeSeq++
	c.seq = rt.nodeSeq
	c.Owner = Owner{rt: rt, parent: rt.owner, comp: c}
	if kind == kindMemo || kind == kindScope {
		c.state = stateClean
	}

	if rt.owner == nil {
		rt.logger.Warn("computations created outside a `CreateRoot` will never be disposed", "kind", kind.String(), "name", name)
		return c
	}
	rt.owner.owned = append(rt.owner.owned, c)
	return c
}

// updateComputation throws away the previous run and runs c again.
func (rt *Runtime) updateComputation(c *computation) {
	if c.call == nil || c.disposed {
		return
	}
	c.clean()
	rt.runComputation(c, rt.clock)
}

func (rt *Runtime) runComputation(c *computation, time uint64) {
	prevOwner, prevListener := rt.owner, rt.listener
	rt.owner, rt.listener = &c.Owner, c
	err := safeCall(c.call)
	rt.owner, rt.listener = prevOwner, prevListener

	if err != nil {
		if c.kind.pure() {
			c.state = stateStale
			c.disposeOwned()
		}
		c.updatedAt = time + 1
		c.failed = true
		rt.handleError(&c.Owner, &ComputationError{Name: c.name, Kind: c.kind.String(), Err: err})
		return
	}

	if !c.ran || c.failed || c.updatedAt <= time {
		c.commit(c.out != nil && len(c.out.observers) > 0)
		c.updatedAt = time
		c.ran = true
		c.failed = false
	}
}

// clean removes every edge to c's sources, disposes what c owns and runs its
// cleanups. c is left clean and inert until it runs again.
func (c *computation) clean() {
	for len(c.sources) > 0 {
		last := len(c.sources) - 1
		src, index := c.sources[last], c.sourceSlots[last]
		c.sources[last] = nil
		c.sources, c.sourceSlots = c.sources[:last], c.sourceSlots[:last]

		n := len(src.observers)
		if n == 0 {
			continue
		}
		moved, slot := src.observers[n-1], src.observerSlots[n-1]
		src.observers[n-1] = nil
		src.observers, src.observerSlots = src.observers[:n-1], src.observerSlots[:n-1]
		if index < n-1 {
			moved.sourceSlots[slot] = index
			src.observers[index] = moved
			src.observerSlots[index] = slot
		}
	}

	c.Owner.clean()
	c.values = nil
	c.state = stateClean
}

// destroy cleans c for good without detaching it from its parent.
func (c *computation) destroy() {
	if c.disposed {
		return
	}
	c.clean()
	c.disposed = true
}
