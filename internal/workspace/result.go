package workspace

import (
	"fmt"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/project"
	"github.com/roach88/spotview/internal/resultstore"
	"github.com/roach88/spotview/internal/syncguard"
)

// Owner identifies an open result.
type Owner struct {
	Kind project.OwnerKind
	ID   int32
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%d", o.Kind, o.ID)
}

func (o Owner) scope(secondary bool) focus.Scope {
	if o.Kind == project.OwnerAlignment {
		return focus.AlignmentScope(o.ID, secondary)
	}
	return focus.SampleScope(o.ID, secondary)
}

// Result is an open sample or alignment: its stores, its focus scopes and
// the bindings attached to them.
type Result struct {
	Owner Owner
	Set   *resultstore.ResultSet

	scopes   []focus.Scope // primary first
	bindings []*binding.Binding
	guards   []*syncguard.Guard
}

// Primary returns the spot scope.
func (r *Result) Primary() focus.Scope {
	return r.scopes[0]
}

// Secondary returns the mobility scope, present when the result has a drift
// store.
func (r *Result) Secondary() (focus.Scope, bool) {
	if len(r.scopes) < 2 {
		return focus.Scope{}, false
	}
	return r.scopes[1], true
}

// Scopes returns every open scope of the result.
func (r *Result) Scopes() []focus.Scope {
	return append([]focus.Scope(nil), r.scopes...)
}

// Bindings returns the bindings in creation order.
func (r *Result) Bindings() []*binding.Binding {
	return append([]*binding.Binding(nil), r.bindings...)
}

// Binding returns the binding with the given panel name.
func (r *Result) Binding(name string) (*binding.Binding, bool) {
	for _, b := range r.bindings {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

// Guards returns the guards created by ApplyLayout.
func (r *Result) Guards() []*syncguard.Guard {
	return append([]*syncguard.Guard(nil), r.guards...)
}

// Store returns the store that resolves scope: the spectra store for the
// primary scope, the drift store for the secondary one.
func (r *Result) Store(scope focus.Scope) (*resultstore.Store, bool) {
	switch {
	case scope == r.Primary():
		return r.Set.Primary(), r.Set.Primary() != nil
	case len(r.scopes) > 1 && scope == r.scopes[1]:
		return r.Set.Drift.Store(), true
	}
	return nil, false
}

func (r *Result) resolver(scope focus.Scope) focus.Resolver {
	if scope.Kind.Secondary() {
		return r.Set.Drift
	}
	return r.Set.Primary()
}

func (r *Result) has(scope focus.Scope) bool {
	for _, s := range r.scopes {
		if s == scope {
			return true
		}
	}
	return false
}
