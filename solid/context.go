package solid

// Context carries a value down the owner tree without passing it through every call.
type Context[T any] struct {
	rt *Runtime
	// Unique identifier for the context
	id uint64
	// Returned when no owner above provides a value
	defaultValue T
}

func CreateContext[T any](rt *Runtime, defaultValue T) *Context[T] {
	rt.contextSeq++
	return &Context[T]{
		rt:           rt,
		id:           rt.contextSeq,
		defaultValue: defaultValue,
	}
}

// Read returns the value provided by the closest owner, or the default.
func (c *Context[T]) Read() T {
	v, ok := c.rt.owner.lookup(c.id)
	if !ok {
		return c.defaultValue
	}
	t, ok := v.(T)
	if !ok {
		return c.defaultValue
	}
	return t
}

// Write provides value to the current owner and everything created below it.
func (c *Context[T]) Write(value T) {
	o := c.rt.owner
	if o == nil {
		c.rt.logger.Warn("context values written outside a `CreateRoot` or `RunWithOwner` are dropped")
		return
	}
	if o.values == nil {
		o.values = map[uint64]any{}
	}
	o.values[c.id] = value
}

// UseContext reads c, for symmetry with CreateContext.
func UseContext[T any](c *Context[T]) T {
	return c.Read()
}
