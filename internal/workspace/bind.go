package workspace

import (
	"errors"
	"fmt"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/layout"
)

// Bind attaches impl to r as layout panel p. The panel's sources that r has
// no store for are left out.
func (w *Workspace) Bind(r *Result, p layout.Panel, impl binding.Panel) (*binding.Binding, error) {
	var scope focus.Scope
	found := false
	for _, s := range r.scopes {
		if s.Kind == p.Scope {
			scope, found = s, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("bind %s: %s has no %s scope", p.Name, r.Owner, p.Scope)
	}
	if _, dup := r.Binding(p.Name); dup {
		return nil, fmt.Errorf("bind %s: already bound in %s", p.Name, r.Owner)
	}
	st, ok := w.registry.State(scope)
	if !ok {
		return nil, fmt.Errorf("bind %s: %w", p.Name, focus.NewScopeNotOpenError(scope))
	}

	opts := []binding.Option{
		binding.WithWritable(p.CanWrite()),
		binding.WithLogger(w.logger),
	}
	for _, src := range p.Sources {
		s, ok, err := sourceFor(r.Set, p.Scope, src)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", p.Name, err)
		}
		if !ok {
			w.logger.Debug("panel source not available", "panel", p.Name, "source", string(src), "owner", r.Owner.String())
			continue
		}
		opts = append(opts, binding.WithSource(s))
	}

	b, err := binding.New(p.Name, p.Kind, st, impl, opts...)
	if err != nil {
		return nil, err
	}
	r.bindings = append(r.bindings, b)
	return b, nil
}

// ApplyLayout binds every panel of l that has an implementation in panels
// and a scope in r, then links them as l declares. Links whose members are
// not all bound are applied to the bound ones. On error, nothing this call
// created stays bound.
func (w *Workspace) ApplyLayout(r *Result, l *layout.Layout, panels map[string]binding.Panel) (err error) {
	if verrs := l.Validate(); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return fmt.Errorf("layout: %w", errors.Join(errs...))
	}

	firstBinding, firstGuard := len(r.bindings), len(r.guards)
	defer func() {
		if err == nil {
			return
		}
		for _, b := range r.bindings[firstBinding:] {
			b.Close()
		}
		for _, g := range r.guards[firstGuard:] {
			g.Close()
		}
		r.bindings = r.bindings[:firstBinding]
		r.guards = r.guards[:firstGuard]
	}()

	for _, scope := range r.scopes {
		for _, p := range l.PanelsFor(scope.Kind) {
			impl, ok := panels[p.Name]
			if !ok {
				continue
			}
			if _, err := w.Bind(r, p, impl); err != nil {
				return err
			}
		}
		for _, link := range l.LinksFor(scope.Kind) {
			hub, ok := r.Binding(link.Hub)
			if !ok {
				continue
			}
			var spokes []*binding.Binding
			for _, name := range link.Spokes {
				if b, ok := r.Binding(name); ok {
					spokes = append(spokes, b)
				}
			}
			guards, err := binding.LinkStar(hub, spokes...)
			if err != nil {
				return err
			}
			r.guards = append(r.guards, guards...)
		}
	}
	return nil
}
