package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/spotview/internal/record"
)

// Resolver resolves record IDs for one scope. A resultstore.Store or
// DriftStore satisfies it.
type Resolver interface {
	Fetch(id record.ID) (record.Record, error)
}

// Change describes one applied focus mutation.
type Change struct {
	Scope      Scope
	Previous   record.ID
	ID         record.ID
	Generation uint64 // mutation count of the State, starting at 1
	Gesture    string
}

// Observer receives focus changes.
type Observer interface {
	FocusChanged(ctx context.Context, c Change) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Change) error

// FocusChanged calls f.
func (f ObserverFunc) FocusChanged(ctx context.Context, c Change) error {
	return f(ctx, c)
}

// Registry owns the live State of every open scope.
//
// INVARIANTS:
//   - At most one State per Scope
//   - A closed State is never reachable from the registry
//   - The notification queue is empty whenever no Set is on the stack
type Registry struct {
	states   map[Scope]*State
	gestures GestureIDGenerator
	logger   *slog.Logger
	budget   cascadeBudget

	pending  []delivery
	draining bool
	abort    error
}

type delivery struct {
	sub    *Subscription
	change Change
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxCascade sets how many mutations one gesture may cause.
//
// Default: 64 (DefaultMaxCascade).
func WithMaxCascade(n int) Option {
	return func(r *Registry) {
		r.budget.max = n
	}
}

// WithGestureIDs sets the gesture ID generator. Default: UUIDv7Generator.
func WithGestureIDs(g GestureIDGenerator) Option {
	return func(r *Registry) {
		r.gestures = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		states:   make(map[Scope]*State),
		gestures: UUIDv7Generator{},
		logger:   slog.Default(),
		budget:   cascadeBudget{max: DefaultMaxCascade},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open creates the State for scope, initially unfocused.
func (r *Registry) Open(scope Scope, resolver Resolver) (*State, error) {
	if _, ok := r.states[scope]; ok {
		return nil, alreadyOpen(scope)
	}
	if resolver == nil {
		return nil, fmt.Errorf("open %s: nil resolver", scope)
	}
	st := &State{
		reg:      r,
		scope:    scope,
		resolver: resolver,
		id:       record.None,
	}
	r.states[scope] = st
	r.logger.Debug("focus scope opened", "scope", scope.String())
	return st, nil
}

// Close tears down the State of scope: every subscription is cancelled and
// any queued notification for it is dropped. Closing a scope that is not
// open is a no-op.
func (r *Registry) Close(scope Scope) {
	st, ok := r.states[scope]
	if !ok {
		return
	}
	delete(r.states, scope)
	st.closed = true
	for _, sub := range st.subs {
		sub.cancelled = true
	}
	st.subs = nil
	r.logger.Debug("focus scope closed", "scope", scope.String(), "id", st.id)
}

// State returns the live State of scope.
func (r *Registry) State(scope Scope) (*State, bool) {
	st, ok := r.states[scope]
	return st, ok
}

// Get returns the focused ID of scope.
func (r *Registry) Get(scope Scope) (record.ID, error) {
	st, ok := r.states[scope]
	if !ok {
		return record.None, notOpen(scope)
	}
	return st.id, nil
}

// Set focuses id in scope. See State.Set.
func (r *Registry) Set(ctx context.Context, scope Scope, id record.ID) error {
	st, ok := r.states[scope]
	if !ok {
		return notOpen(scope)
	}
	return st.Set(ctx, id)
}

// Scopes returns every open scope in a stable order.
func (r *Registry) Scopes() []Scope {
	out := make([]Scope, 0, len(r.states))
	for s := range r.states {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Scope) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return out
}

// Draining reports whether a notification queue is being delivered.
func (r *Registry) Draining() bool {
	return r.draining
}

func (r *Registry) apply(ctx context.Context, st *State, id record.ID) error {
	if st.closed {
		return notOpen(st.scope)
	}
	if id != record.None {
		if !id.Valid() {
			return NewStaleSelectionError(st.scope, id, fmt.Errorf("invalid record id %d", id))
		}
		if _, err := st.resolver.Fetch(id); err != nil {
			r.logger.Debug("stale selection rejected", "scope", st.scope.String(), "id", id, "error", err)
			return NewStaleSelectionError(st.scope, id, err)
		}
	}

	outermost := !r.draining
	gesture, ok := GestureFrom(ctx)
	if !ok {
		gesture = r.gestures.Generate()
		ctx = WithGesture(ctx, gesture)
	}
	if outermost {
		r.budget.reset()
	}
	if err := r.budget.spend(st.scope, gesture); err != nil {
		if r.abort == nil {
			r.abort = err
		}
		r.logger.Debug("cascade limit reached", "scope", st.scope.String(), "gesture", gesture)
		return err
	}

	prev := st.id
	st.id = id
	st.generation++
	c := Change{
		Scope:      st.scope,
		Previous:   prev,
		ID:         id,
		Generation: st.generation,
		Gesture:    gesture,
	}
	r.logger.Debug("focus set",
		"scope", st.scope.String(),
		"id", id,
		"previous", prev,
		"generation", st.generation,
		"gesture", gesture)

	for _, sub := range st.subs {
		r.pending = append(r.pending, delivery{sub: sub, change: c})
	}
	if !outermost {
		return nil
	}
	return r.drain(ctx)
}

// drain delivers queued notifications in FIFO order until the queue is
// empty or the cascade budget is exhausted. Observer errors do not stop
// delivery; they are joined and returned once the queue is empty.
func (r *Registry) drain(ctx context.Context) error {
	r.draining = true
	defer func() {
		r.draining = false
		r.pending = nil
		r.abort = nil
	}()

	var errs []error
	for len(r.pending) > 0 && r.abort == nil {
		d := r.pending[0]
		r.pending[0] = delivery{}
		r.pending = r.pending[1:]
		if d.sub.cancelled {
			continue
		}
		if err := d.sub.obs.FocusChanged(ctx, d.change); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", d.sub.name(), err))
		}
	}
	if r.abort != nil {
		if dropped := len(r.pending); dropped > 0 {
			r.logger.Debug("notifications dropped after cascade abort", "count", dropped)
		}
		errs = append(errs, r.abort)
	}
	return errors.Join(errs...)
}
