// Package solid is a fine-grained reactive engine: signals notify exactly the
// computations that read them, and those re-run in a glitch-free order.
package solid

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	DefaultMaxUpdates      = 100_000
	DefaultMaxEffectRounds = 1_000
)

// Runtime holds everything that is ambient while the graph runs: the current owner
// and listener, the two work queues and the logical clock.
//
// A Runtime is single threaded. Every call runs to completion on the caller's
// goroutine and nothing is locked, so confine each Runtime to one goroutine.
type Runtime struct {
	// Scope new computations and cleanups attach to.
	owner *Owner
	// Computation currently running with tracking on, reads link to it.
	listener *computation

	// Pure computations waiting to re-run. updatesOpen tells whether a flush is collecting them.
	updates     []*computation
	updatesOpen bool
	// Effects waiting to run once pure work settles.
	effects     []*computation
	effectsOpen bool

	clock  uint64
	depth  int
	rounds int
	abort  error
	errs   []error

	roots mapset.Set[*Owner]

	contextSeq uint64
	nodeSeq    uint64

	logger          *slog.Logger
	maxUpdates      int
	maxEffectRounds int
}

type Option func(*Runtime)

// WithLogger sets the logger used for warnings and flush traces.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithMaxUpdates caps how many pure computations one flush may queue before it
// fails with ErrCycle.
func WithMaxUpdates(n int) Option {
	return func(rt *Runtime) {
		rt.maxUpdates = n
	}
}

// WithMaxEffectRounds caps how many times effects may re-trigger each other in
// one flush before it fails with ErrCycle.
func WithMaxEffectRounds(n int) Option {
	return func(rt *Runtime) {
		rt.maxEffectRounds = n
	}
}

func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		roots:           mapset.NewThreadUnsafeSet[*Owner](),
		logger:          slog.Default(),
		maxUpdates:      DefaultMaxUpdates,
		maxEffectRounds: DefaultMaxEffectRounds,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Clock returns the logical clock, advanced once per flush.
func (rt *Runtime) Clock() uint64 {
	return rt.clock
}

// Dispose tears down every root still alive in this runtime.
func (rt *Runtime) Dispose() {
	for _, root := range rt.roots.ToSlice() {
		root.Dispose()
	}
}

// runUpdates runs fn inside a flush. When one is already collecting pure work fn
// runs inline and its writes are folded into it; otherwise a flush is opened and
// completed once fn returns. init leaves the pure queue closed, which is what
// roots need so memos created in them run right away.
func (rt *Runtime) runUpdates(fn func() error, init bool) error {
	if rt.updatesOpen {
		if err := fn(); err != nil {
			return err
		}
		return rt.abort
	}

	outermost := rt.depth == 0
	wait := false
	if !init {
		rt.updates, rt.updatesOpen = nil, true
	}
	if rt.effectsOpen {
		wait = true
	} else {
		rt.effects, rt.effectsOpen = nil, true
	}
	rt.clock++
	rt.depth++

	fnErr := fn()
	if rt.abort == nil {
		rt.completeUpdates(wait)
	}
	rt.depth--

	if rt.abort != nil {
		rt.resetQueues(wait)
	}

	if !outermost {
		if fnErr != nil {
			return fnErr
		}
		return rt.abort
	}

	errs := append(rt.errs, fnErr, rt.abort)
	rt.errs, rt.abort, rt.rounds = nil, nil, 0
	return errors.Join(errs...)
}

func (rt *Runtime) completeUpdates(wait bool) {
	if rt.updatesOpen {
		rt.runQueue()
		rt.updates, rt.updatesOpen = nil, false
	}
	if wait || rt.abort != nil {
		return
	}

	queue := rt.effects
	rt.effects, rt.effectsOpen = nil, false
	if len(queue) == 0 {
		return
	}

	rt.rounds++
	if rt.rounds > rt.maxEffectRounds {
		rt.fail("effects kept re-triggering", "rounds", rt.rounds)
		return
	}
	if rt.logger.Enabled(context.Background(), slog.LevelDebug) {
		rt.logger.Debug("running effects", "clock", rt.clock, "effects", len(queue), "round", rt.rounds)
	}
	rt.runUpdates(func() error {
		rt.runEffects(queue)
		return nil
	}, false)
}

// runQueue drains the pure queue to a fixed point, entries queued while draining included.
func (rt *Runtime) runQueue() {
	for i := 0; i < len(rt.updates); i++ {
		if rt.abort != nil {
			return
		}
		rt.runTop(rt.updates[i])
	}
}

// runEffects runs render effects first, then user effects, each cohort in the
// order its effects were created.
func (rt *Runtime) runEffects(queue []*computation) {
	var render, user []*computation
	for _, e := range queue {
		if e.kind == kindUserEffect {
			user = append(user, e)
			continue
		}
		render = append(render, e)
	}
	byCreation := func(a, b *computation) int {
		return cmp.Compare(a.seq, b.seq)
	}
	slices.SortStableFunc(render, byCreation)
	slices.SortStableFunc(user, byCreation)

	for _, cohort := range [][]*computation{render, user} {
		for _, e := range cohort {
			if rt.abort != nil {
				return
			}
			rt.runTop(e)
		}
	}
}

// fail aborts the in-flight flush with ErrCycle.
func (rt *Runtime) fail(msg string, args ...any) {
	if rt.abort != nil {
		return
	}
	rt.logger.Error(msg, args...)
	rt.abort = fmt.Errorf("%w: %s", ErrCycle, msg)
}

// resetQueues drops work left behind by an aborted flush. Dropped nodes go back
// to clean so later writes schedule them again.
func (rt *Runtime) resetQueues(wait bool) {
	for _, c := range rt.updates {
		c.state = stateClean
	}
	rt.updates, rt.updatesOpen = nil, false
	if wait {
		return
	}
	for _, c := range rt.effects {
		c.state = stateClean
	}
	rt.effects, rt.effectsOpen = nil, false
}
