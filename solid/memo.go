package solid

// Memo is a derived value, recomputed only when something it read changed.
type Memo[T any] struct {
	rt     *Runtime
	comp   *computation
	src    source
	value  T
	next   T
	equals Equals[T]
}

// CreateMemo runs fn right away and again whenever its dependencies change. fn gets
// the previous value, init on the first run. Downstream computations only re-run
// when the result differs from the previous one.
//
// When fn fails the memo keeps its last value and stays stale. Later writes to its
// dependencies do not schedule it again and nothing downstream is notified; the
// next Read recomputes it.
func CreateMemo[T any](rt *Runtime, fn func(prev T) (T, error), init T, opts ...SignalOption[T]) (*Memo[T], error) {
	o := newSignalOptions(opts)
	m := &Memo[T]{
		rt:     rt,
		value:  init,
		equals: o.equals,
	}

	err := rt.runUpdates(func() error {
		c := rt.createComputation(kindMemo, o.name)
		c.out = &m.src
		c.call = func() error {
			next, err := fn(m.value)
			if err != nil {
				return err
			}
			m.next = next
			return nil
		}
		c.commit = m.commit
		m.comp = c
		m.src.comp = c

		rt.updateComputation(c)
		return nil
	}, false)
	return m, err
}

func (m *Memo[T]) commit(propagate bool) {
	next := m.next
	var zero T
	m.next = zero

	if !propagate {
		m.value = next
		return
	}
	if m.equals != nil && m.equals(m.value, next) {
		return
	}
	m.value = next
	m.rt.propagate(&m.src)
}

// Read returns the memo's value, bringing it up to date first if something above
// it changed and the flush has not reached it yet.
func (m *Memo[T]) Read() T {
	rt := m.rt
	if c := m.comp; c.state != stateClean {
		if rt.depth == 0 {
			if err := rt.runUpdates(func() error {
				rt.refresh(c)
				return nil
			}, false); err != nil {
				rt.logger.Error("memo refresh failed", "name", c.name, "err", err)
			}
		} else {
			rt.refresh(c)
		}
	}
	rt.track(&m.src)
	return m.value
}

// Peek returns the current value without tracking or refreshing it.
func (m *Memo[T]) Peek() T {
	return m.value
}

// Accessor returns Read as a function value.
func (m *Memo[T]) Accessor() Accessor[T] {
	return m.Read
}

// Dispose stops the memo. It keeps its last value.
func (m *Memo[T]) Dispose() {
	m.comp.Dispose()
}

// Observers returns how many computations currently read the memo.
func (m *Memo[T]) Observers() int {
	return len(m.src.observers)
}

func (rt *Runtime) refresh(c *computation) {
	switch c.state {
	case stateStale:
		rt.updateComputation(c)
	case statePending:
		rt.isolated(func() { rt.lookUpstream(c, nil) })
	}
}

// CreateComputed runs fn now and whenever what it reads changes, as part of the
// pure phase, before any effect.
func CreateComputed(rt *Runtime, fn func() error, opts ...EffectOption) (*Computation, error) {
	return rt.createRunner(kindComputed, fn, opts)
}

// CreateRenderEffect runs fn immediately and re-runs it after pure computations
// settle, ahead of user effects.
func CreateRenderEffect(rt *Runtime, fn func() error, opts ...EffectOption) (*Computation, error) {
	return rt.createRunner(kindRenderEffect, fn, opts)
}

// CreateEffect runs fn for its side effects whenever what it reads changes. Created
// inside a root or another computation it first runs once the current work settles.
func CreateEffect(rt *Runtime, fn func() error, opts ...EffectOption) (*Computation, error) {
	return rt.createRunner(kindUserEffect, fn, opts)
}

type effectOptions struct {
	name string
}

type EffectOption func(*effectOptions)

// EffectName labels an effect or computed in logs and errors.
func EffectName(name string) EffectOption {
	return func(o *effectOptions) {
		o.name = name
	}
}

func (rt *Runtime) createRunner(kind nodeKind, fn func() error, opts []EffectOption) (*Computation, error) {
	o := &effectOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var c *computation
	err := rt.runUpdates(func() error {
		c = rt.createComputation(kind, o.name)
		c.call = fn
		c.commit = func(bool) {}

		if kind == kindUserEffect && rt.effectsOpen {
			rt.effects = append(rt.effects, c)
			return nil
		}
		rt.updateComputation(c)
		return nil
	}, false)
	return &Computation{c: c}, err
}
