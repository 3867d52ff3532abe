package solid

// track links src to the running listener, once per execution.
func (rt *Runtime) track(src *source) {
	l := rt.listener
	if l == nil || l.disposed {
		return
	}
	for i := len(l.sources) - 1; i >= 0; i-- {
		if l.sources[i] == src {
			return
		}
	}

	l.sources = append(l.sources, src)
	l.sourceSlots = append(l.sourceSlots, len(src.observers))
	src.observers = append(src.observers, l)
	src.observerSlots = append(src.observerSlots, len(l.sources)-1)
}

// propagate marks everything reading src and flushes, unless a flush is already
// collecting work in which case the marks are folded into it.
func (rt *Runtime) propagate(src *source) error {
	if len(src.observers) == 0 {
		return nil
	}
	return rt.runUpdates(func() error {
		for _, o := range src.observers {
			if o.state == stateClean {
				rt.enqueue(o)
				if o.out != nil && len(o.out.observers) > 0 {
					rt.markDownstream(o.out)
				}
			}
			o.state = stateStale
		}
		if len(rt.updates) > rt.maxUpdates {
			rt.fail("pure queue exceeded its ceiling", "queued", len(rt.updates), "max", rt.maxUpdates)
		}
		return nil
	}, false)
}

// markDownstream marks everything below a memo as pending. They only re-run if
// the memo's value actually changes.
func (rt *Runtime) markDownstream(src *source) {
	for _, o := range src.observers {
		if o.state != stateClean {
			continue
		}
		o.state = statePending
		rt.enqueue(o)
		if o.out != nil && len(o.out.observers) > 0 {
			rt.markDownstream(o.out)
		}
	}
}

func (rt *Runtime) enqueue(c *computation) {
	if c.kind.pure() {
		rt.updates = append(rt.updates, c)
		return
	}
	rt.effects = append(rt.effects, c)
}

// runTop brings c up to date. Stale owners above c run first, outermost first, so
// c never runs under a parent that is about to dispose it.
func (rt *Runtime) runTop(c *computation) {
	switch c.state {
	case stateClean:
		return
	case statePending:
		rt.lookUpstream(c, nil)
		return
	}

	ancestors := []*computation{c}
	for o := c.parent; o != nil; o = o.parent {
		a := o.comp
		if a == nil {
			continue
		}
		if a.ran && a.updatedAt >= rt.clock {
			break
		}
		if a.state != stateClean {
			ancestors = append(ancestors, a)
		}
	}

	for i := len(ancestors) - 1; i >= 0; i-- {
		a := ancestors[i]
		switch a.state {
		case stateStale:
			rt.updateComputation(a)
		case statePending:
			rt.isolated(func() { rt.lookUpstream(a, c) })
		}
	}
}

// lookUpstream resolves a pending node: stale memos above it re-run, and if one of
// them changes value the write marks c stale again.
func (rt *Runtime) lookUpstream(c, ignore *computation) {
	c.state = stateClean
	for i := 0; i < len(c.sources); i++ {
		src := c.sources[i].comp
		if src == nil {
			continue
		}
		switch src.state {
		case stateStale:
			if src != ignore && (!src.ran || src.updatedAt < rt.clock) {
				rt.runTop(src)
			}
		case statePending:
			rt.lookUpstream(src, ignore)
		}
	}
}

// isolated runs fn with its own pure queue so whatever fn makes stale settles
// before returning, leaving the queue being drained untouched.
func (rt *Runtime) isolated(fn func()) {
	saved, savedOpen := rt.updates, rt.updatesOpen
	rt.updates, rt.updatesOpen = nil, false
	rt.runUpdates(func() error {
		fn()
		return nil
	}, false)
	rt.updates, rt.updatesOpen = saved, savedOpen
}
