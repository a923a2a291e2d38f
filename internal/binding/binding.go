package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/syncguard"
)

// ErrReadOnly is returned for gestures on a binding that may not write.
var ErrReadOnly = errors.New("binding is read-only")

// ErrClosed is returned for gestures on a closed binding.
var ErrClosed = errors.New("binding is closed")

// View is what a panel renders.
type View struct {
	Scope   focus.Scope
	Focused record.ID
	Records map[string][]record.Record // by source name; empty when unfocused
	Change  focus.Change
}

// Record returns the first record of the named source.
func (v View) Record(source string) (record.Record, bool) {
	recs := v.Records[source]
	if len(recs) == 0 {
		return record.Record{}, false
	}
	return recs[0], true
}

// Panel draws a View.
type Panel interface {
	Render(ctx context.Context, v View) error
}

// PanelFunc adapts a function to Panel.
type PanelFunc func(ctx context.Context, v View) error

// Render calls f.
func (f PanelFunc) Render(ctx context.Context, v View) error {
	return f(ctx, v)
}

// Stats counts what a binding has done.
type Stats struct {
	Renders  int // completed and failed renders
	Failures int // renders or fetches that returned an error
	Gestures int // gestures received, echoes included
	Echoes   int // gestures dropped as echoes
	Writes   int // gestures passed to FocusState.Set
}

// Binding connects one panel to the FocusState of its scope.
//
// On a focus change the binding holds its latches, fetches what the panel
// needs and renders. Gestures write the focus unless they arrive while a
// render is in progress on either side of one of the binding's guards, in
// which case they are echoes and are dropped. An unlinked binding only
// drops echoes of its own render.
type Binding struct {
	name     string
	kind     PanelKind
	state    *focus.State
	panel    Panel
	sources  []Source
	writable bool
	logger   *slog.Logger

	own       *syncguard.Latch
	endpoints []*syncguard.Endpoint
	sub       *focus.Subscription
	closed    bool
	stats     Stats
}

// Option configures a Binding.
type Option func(*Binding)

// WithSource adds a record source. Sources are fetched in the order added.
func WithSource(s Source) Option {
	return func(b *Binding) {
		b.sources = append(b.sources, s)
	}
}

// WithWritable overrides whether the binding may write the focus. The
// default follows PanelKind.Interactive.
func WithWritable(w bool) Option {
	return func(b *Binding) {
		b.writable = w
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Binding) {
		b.logger = l
	}
}

// New binds panel to state and subscribes it.
func New(name string, kind PanelKind, state *focus.State, panel Panel, opts ...Option) (*Binding, error) {
	if _, ok := kinds[kind]; !ok {
		return nil, fmt.Errorf("binding %s: unknown panel kind %d", name, kind)
	}
	if !kind.Accepts(state.Scope().Kind) {
		return nil, fmt.Errorf("binding %s: a %s panel cannot show scope %s", name, kind, state.Scope())
	}
	if state.Closed() {
		return nil, fmt.Errorf("binding %s: scope %s is closed", name, state.Scope())
	}

	b := &Binding{
		name:     name,
		kind:     kind,
		state:    state,
		panel:    panel,
		writable: kind.Interactive(),
		logger:   slog.Default(),
		own:      syncguard.NewLatch(name),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.sub = state.SubscribeNamed(name, b)
	return b, nil
}

// Name returns the binding name.
func (b *Binding) Name() string { return b.name }

// Kind returns the panel kind.
func (b *Binding) Kind() PanelKind { return b.kind }

// Scope returns the bound scope.
func (b *Binding) Scope() focus.Scope { return b.state.Scope() }

// State returns the bound FocusState.
func (b *Binding) State() *focus.State { return b.state }

// Writable reports whether gestures may write the focus.
func (b *Binding) Writable() bool { return b.writable }

// Stats returns the binding's counters.
func (b *Binding) Stats() Stats { return b.stats }

// Closed reports whether Close has been called.
func (b *Binding) Closed() bool { return b.closed }

func (b *Binding) latches() []*syncguard.Latch {
	out := make([]*syncguard.Latch, 0, len(b.endpoints)+1)
	out = append(out, b.own)
	for _, e := range b.endpoints {
		out = append(out, e.Latch)
	}
	return out
}

// Linked reports whether the binding takes part in an open guard.
func (b *Binding) Linked() bool {
	for _, e := range b.endpoints {
		if e.Live() {
			return true
		}
	}
	return false
}

// echo reports whether a gesture arriving now was caused by a render, and
// names what swallowed it. A linked binding is guarded only by its guards;
// its own latch stands in while it has none.
func (b *Binding) echo() (string, bool) {
	if b.Linked() {
		if g := syncguard.EchoOn(b.endpoints...); g != nil {
			return g.String(), true
		}
		return "", false
	}
	if b.own.Echo() {
		return b.name, true
	}
	return "", false
}

// FocusChanged re-renders the panel for c. Latches are held for the whole
// fetch and render and released on every exit path.
func (b *Binding) FocusChanged(ctx context.Context, c focus.Change) error {
	if b.closed {
		return nil
	}
	release := syncguard.HoldAll(b.latches()...)
	defer release()

	v := View{
		Scope:   c.Scope,
		Focused: c.ID,
		Records: make(map[string][]record.Record, len(b.sources)),
		Change:  c,
	}
	if c.ID != record.None {
		for _, src := range b.sources {
			recs, err := src.Records(c.ID)
			if err != nil {
				b.stats.Failures++
				return fmt.Errorf("%s: fetch %s record %d: %w", b.name, src.Name(), c.ID, err)
			}
			v.Records[src.Name()] = recs
		}
	}

	b.stats.Renders++
	if err := b.panel.Render(ctx, v); err != nil {
		b.stats.Failures++
		return fmt.Errorf("%s: render: %w", b.name, err)
	}
	return nil
}

// Gesture handles a selection made on the panel. It reports whether the
// focus was written. Echoes return (false, nil).
func (b *Binding) Gesture(ctx context.Context, id record.ID) (bool, error) {
	if b.closed {
		return false, ErrClosed
	}
	b.stats.Gestures++
	if by, ok := b.echo(); ok {
		b.stats.Echoes++
		b.logger.Debug("echo swallowed", "binding", b.name, "by", by, "scope", b.Scope().String(), "id", id)
		return false, nil
	}
	if !b.writable {
		return false, fmt.Errorf("%s: %w", b.name, ErrReadOnly)
	}
	b.stats.Writes++
	if err := b.state.Set(ctx, id); err != nil {
		return !focus.IsStaleSelection(err) && !focus.IsScopeNotOpen(err), err
	}
	return true, nil
}

// Guards returns the guards this binding takes part in.
func (b *Binding) Guards() []*syncguard.Guard {
	out := make([]*syncguard.Guard, len(b.endpoints))
	for i, e := range b.endpoints {
		out[i] = e.Guard()
	}
	return out
}

// Close cancels the subscription and closes every guard the binding takes
// part in. Safe to call twice.
func (b *Binding) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.sub.Cancel()
	for _, e := range b.endpoints {
		e.Guard().Close()
	}
}

// Link creates the guard between two bindings of the same scope.
func Link(a, c *Binding) (*syncguard.Guard, error) {
	switch {
	case a == c:
		return nil, fmt.Errorf("cannot link %s to itself", a.name)
	case a.closed || c.closed:
		return nil, fmt.Errorf("cannot link %s and %s: binding closed", a.name, c.name)
	case a.state != c.state:
		return nil, fmt.Errorf("cannot link %s (%s) and %s (%s): different scopes",
			a.name, a.Scope(), c.name, c.Scope())
	}
	for _, e := range a.endpoints {
		if e.Peer().Name() == c.name && !e.Guard().Closed() {
			return nil, fmt.Errorf("%s and %s are already linked", a.name, c.name)
		}
	}
	g := syncguard.New(a.name, c.name)
	a.endpoints = append(a.endpoints, g.A())
	c.endpoints = append(c.endpoints, g.B())
	return g, nil
}

// LinkStar links hub to every spoke.
func LinkStar(hub *Binding, spokes ...*Binding) ([]*syncguard.Guard, error) {
	guards := make([]*syncguard.Guard, 0, len(spokes))
	for _, s := range spokes {
		g, err := Link(hub, s)
		if err != nil {
			for _, made := range guards {
				made.Close()
			}
			return nil, err
		}
		guards = append(guards, g)
	}
	return guards, nil
}
