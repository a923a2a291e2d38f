package focus

import (
	"context"
	"fmt"

	"github.com/roach88/spotview/internal/record"
)

// State is the FocusState of one scope.
type State struct {
	reg        *Registry
	scope      Scope
	resolver   Resolver
	id         record.ID
	generation uint64
	subs       []*Subscription
	nextSub    int
	closed     bool
}

// Scope returns the scope this State belongs to.
func (s *State) Scope() Scope { return s.scope }

// Get returns the focused ID, record.None when unfocused.
func (s *State) Get() record.ID { return s.id }

// Generation returns the number of applied mutations.
func (s *State) Generation() uint64 { return s.generation }

// Resolver returns the store that validates IDs for this scope.
func (s *State) Resolver() Resolver { return s.resolver }

// Closed reports whether the scope has been closed.
func (s *State) Closed() bool { return s.closed }

// Set focuses id, or clears the focus with record.None.
//
// The ID is validated by fetching it through the scope's resolver. On
// failure the previous value is kept, nobody is notified and a
// STALE_SELECTION error is returned. Setting the current ID again is a
// mutation like any other.
//
// Errors returned by observers are joined and returned after every queued
// notification has been delivered.
func (s *State) Set(ctx context.Context, id record.ID) error {
	return s.reg.apply(ctx, s, id)
}

// Subscribe registers o for notifications. Observers are notified in
// subscription order.
func (s *State) Subscribe(o Observer) *Subscription {
	return s.SubscribeNamed(fmt.Sprintf("observer-%d", s.nextSub+1), o)
}

// SubscribeNamed is Subscribe with a name used in errors and logs.
func (s *State) SubscribeNamed(name string, o Observer) *Subscription {
	s.nextSub++
	sub := &Subscription{state: s, obs: o, label: name}
	if s.closed {
		sub.cancelled = true
		return sub
	}
	s.subs = append(s.subs, sub)
	return sub
}

// Observers returns the number of active subscriptions.
func (s *State) Observers() int {
	return len(s.subs)
}

// Subscription is one observer's registration with a State.
type Subscription struct {
	state     *State
	obs       Observer
	label     string
	cancelled bool
}

// Cancel deregisters the observer. Notifications already queued for it are
// dropped. Safe to call twice.
func (sub *Subscription) Cancel() {
	if sub.cancelled {
		return
	}
	sub.cancelled = true
	subs := sub.state.subs
	for i, other := range subs {
		if other == sub {
			sub.state.subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

// Cancelled reports whether Cancel has been called or the scope closed.
func (sub *Subscription) Cancelled() bool {
	return sub.cancelled
}

func (sub *Subscription) name() string {
	return sub.label
}
