package solid

type signalOptions[T any] struct {
	name   string
	equals Equals[T]
}

type SignalOption[T any] func(*signalOptions[T])

// WithEquals replaces the comparator deciding whether a write is a change.
func WithEquals[T any](fn Equals[T]) SignalOption[T] {
	return func(o *signalOptions[T]) {
		o.equals = fn
	}
}

// WithoutEquals makes every write propagate, even when the value is unchanged.
func WithoutEquals[T any]() SignalOption[T] {
	return func(o *signalOptions[T]) {
		o.equals = nil
	}
}

// Named labels a signal or memo in logs and errors.
func Named[T any](name string) SignalOption[T] {
	return func(o *signalOptions[T]) {
		o.name = name
	}
}

func newSignalOptions[T any](opts []SignalOption[T]) *signalOptions[T] {
	o := &signalOptions[T]{equals: defaultEquals[T]}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Signal is a reactive cell.
type Signal[T any] struct {
	rt     *Runtime
	src    source
	name   string
	value  T
	equals Equals[T]
}

func NewSignal[T any](rt *Runtime, value T, opts ...SignalOption[T]) *Signal[T] {
	o := newSignalOptions(opts)
	return &Signal[T]{
		rt:     rt,
		name:   o.name,
		value:  value,
		equals: o.equals,
	}
}

// CreateSignal returns the read and write halves of a new signal.
func CreateSignal[T any](rt *Runtime, value T, opts ...SignalOption[T]) (Accessor[T], Setter[T]) {
	s := NewSignal(rt, value, opts...)
	return s.Read, s.Write
}

// Read returns the value, making the running computation depend on it.
func (s *Signal[T]) Read() T {
	s.rt.track(&s.src)
	return s.value
}

// Peek returns the value without tracking it.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Write sets the value and, unless it equals the current one, re-runs everything
// depending on it. Inside a batch the re-runs wait for the batch to end.
func (s *Signal[T]) Write(value T) error {
	if s.equals != nil && s.equals(s.value, value) {
		return nil
	}
	s.value = value
	return s.rt.propagate(&s.src)
}

// Update writes the result of fn applied to the current value.
func (s *Signal[T]) Update(fn func(prev T) T) error {
	return s.Write(fn(s.value))
}

// Observers returns how many computations currently read the signal.
func (s *Signal[T]) Observers() int {
	return len(s.src.observers)
}
