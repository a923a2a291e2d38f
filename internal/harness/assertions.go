package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/workspace"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluate runs every assertion and returns the failure messages.
func (h *Harness) evaluate(r *workspace.Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.assert(r, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) assert(r *workspace.Result, a Assertion) error {
	switch a.Type {
	case AssertFocus, AssertSets:
		scope, err := scopeOf(r, a.Scope)
		if err != nil {
			return err
		}
		if a.Type == AssertSets {
			return compareCount(a, fmt.Sprintf("%d focus changes in %s", *a.Count, scope), h.sets[scope])
		}
		got, err := h.ws.Registry().Get(scope)
		if err != nil {
			return err
		}
		if want := record.ID(*a.ID); got != want {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s focused on %d", scope, want),
				Actual:   fmt.Sprintf("focused on %d", got),
			}
		}
		return nil

	case AssertRenders:
		p, err := h.panel(a.Panel)
		if err != nil {
			return err
		}
		return compareCount(a, fmt.Sprintf("%d renders of %s", *a.Count, a.Panel), len(p.focused))

	case AssertRendered:
		p, err := h.panel(a.Panel)
		if err != nil {
			return err
		}
		want := make([]record.ID, len(a.IDs))
		for i, id := range a.IDs {
			want[i] = record.ID(id)
		}
		if !slices.Equal(want, p.focused) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s rendered %v", a.Panel, want),
				Actual:   fmt.Sprintf("rendered %v", p.focused),
			}
		}
		return nil

	case AssertEchoes, AssertWrites:
		b, ok := r.Binding(a.Panel)
		if !ok {
			return fmt.Errorf("panel %q is not bound", a.Panel)
		}
		stats := b.Stats()
		got := stats.Echoes
		if a.Type == AssertWrites {
			got = stats.Writes
		}
		return compareCount(a, fmt.Sprintf("%d %s by %s", *a.Count, a.Type, a.Panel), got)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func compareCount(a Assertion, expected string, got int) error {
	if got == *a.Count {
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: fmt.Sprintf("%d", got)}
}

func (h *Harness) panel(name string) (*tracePanel, error) {
	p, ok := h.panels[name]
	if !ok {
		return nil, fmt.Errorf("panel %q is not bound", name)
	}
	return p, nil
}

// scopeOf finds the scope of r with the named kind.
func scopeOf(r *workspace.Result, kind string) (focus.Scope, error) {
	k, err := focus.ParseScopeKind(kind)
	if err != nil {
		return focus.Scope{}, err
	}
	for _, s := range r.Scopes() {
		if s.Kind == k {
			return s, nil
		}
	}
	return focus.Scope{}, fmt.Errorf("result %s has no %s scope", r.Owner, kind)
}

// Stats returns the binding statistics of every bound panel, by name.
func Stats(r *workspace.Result) map[string]binding.Stats {
	out := make(map[string]binding.Stats)
	for _, b := range r.Bindings() {
		out[b.Name()] = b.Stats()
	}
	return out
}
