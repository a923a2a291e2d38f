package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/dispatch"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/layout"
	"github.com/roach88/spotview/internal/project"
	"github.com/roach88/spotview/internal/resultstore"
)

// Generation keys for result switches.
const (
	KeySample    = "sample"
	KeyAlignment = "alignment"
)

// ErrClosed is returned by operations on a closed Workspace.
var ErrClosed = errors.New("workspace is closed")

// PanelFactory builds the panel implementation for a layout panel bound to
// scope. Returning nil leaves the panel unbound.
type PanelFactory func(p layout.Panel, scope focus.Scope) binding.Panel

// Workspace is the viewer's application context.
type Workspace struct {
	project  *project.Project
	registry *focus.Registry
	loop     *dispatch.Loop
	gens     *dispatch.Generations
	logger   *slog.Logger

	storeOpts []resultstore.Option
	focusOpts []focus.Option
	layout    *layout.Layout
	factory   PanelFactory

	sample    *Result
	alignment *Result
	closed    bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger for the workspace and everything it creates.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = l
	}
}

// WithStoreOptions sets the options every result store is opened with.
func WithStoreOptions(opts ...resultstore.Option) Option {
	return func(w *Workspace) {
		w.storeOpts = append(w.storeOpts, opts...)
	}
}

// WithFocusOptions sets the focus registry options.
func WithFocusOptions(opts ...focus.Option) Option {
	return func(w *Workspace) {
		w.focusOpts = append(w.focusOpts, opts...)
	}
}

// WithLayout binds the panels of l, built by factory, to every result the
// workspace opens.
func WithLayout(l *layout.Layout, factory PanelFactory) Option {
	return func(w *Workspace) {
		w.layout = l
		w.factory = factory
	}
}

// New creates a workspace over an open project. The project stays owned by
// the caller.
func New(p *project.Project, opts ...Option) *Workspace {
	w := &Workspace{
		project: p,
		gens:    dispatch.NewGenerations(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.registry = focus.NewRegistry(append([]focus.Option{focus.WithLogger(w.logger)}, w.focusOpts...)...)
	w.loop = dispatch.NewLoop(dispatch.WithLogger(w.logger))
	w.storeOpts = append([]resultstore.Option{resultstore.WithLogger(w.logger)}, w.storeOpts...)
	return w
}

// Project returns the project database.
func (w *Workspace) Project() *project.Project { return w.project }

// Registry returns the focus registry.
func (w *Workspace) Registry() *focus.Registry { return w.registry }

// Loop returns the dispatch loop.
func (w *Workspace) Loop() *dispatch.Loop { return w.loop }

// Generations returns the generation tracker for result switches.
func (w *Workspace) Generations() *dispatch.Generations { return w.gens }

// Layout returns the configured layout, or nil.
func (w *Workspace) Layout() *layout.Layout { return w.layout }

// Sample returns the open sample, or nil.
func (w *Workspace) Sample() *Result { return w.sample }

// Alignment returns the open alignment, or nil.
func (w *Workspace) Alignment() *Result { return w.alignment }

// Results returns the open results, sample first.
func (w *Workspace) Results() []*Result {
	var out []*Result
	for _, r := range []*Result{w.sample, w.alignment} {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// ResultFor returns the open result owning scope.
func (w *Workspace) ResultFor(scope focus.Scope) (*Result, bool) {
	for _, r := range w.Results() {
		if r.has(scope) {
			return r, true
		}
	}
	return nil, false
}

// Run runs the dispatch loop until ctx is cancelled or Stop is called.
func (w *Workspace) Run(ctx context.Context) error {
	return w.loop.Run(ctx)
}

// Stop stops the dispatch loop after the queued tasks.
func (w *Workspace) Stop() {
	w.loop.Stop()
}

// Do runs fn on the dispatch loop and waits for it.
func (w *Workspace) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return w.loop.Do(ctx, fn)
}

// OpenSample opens a registered sample and makes it the current one,
// closing the previous sample. Opening the current sample again returns it
// unchanged.
//
// Store errors are returned before any focus scope exists.
func (w *Workspace) OpenSample(ctx context.Context, id int32) (*Result, error) {
	owner := Owner{Kind: project.OwnerSample, ID: id}
	if r := w.sample; r != nil && r.Owner == owner {
		return r, nil
	}
	w.gens.Advance(KeySample)
	set, err := w.loadSample(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.install(ctx, owner, set)
}

// OpenAlignment opens a registered alignment result and makes it the
// current one. See OpenSample.
func (w *Workspace) OpenAlignment(ctx context.Context, id int32) (*Result, error) {
	owner := Owner{Kind: project.OwnerAlignment, ID: id}
	if r := w.alignment; r != nil && r.Owner == owner {
		return r, nil
	}
	w.gens.Advance(KeyAlignment)
	set, err := w.loadAlignment(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.install(ctx, owner, set)
}

// OpenSampleAsync opens a sample off the loop and installs it on the loop.
// A later OpenSample or OpenSampleAsync supersedes it: the stale stores are
// closed unseen and done receives dispatch.ErrStale.
func (w *Workspace) OpenSampleAsync(ctx context.Context, id int32, done chan<- error) dispatch.Token {
	tok := w.gens.Advance(KeySample)
	owner := Owner{Kind: project.OwnerSample, ID: id}
	dispatch.Background(ctx, w.loop, w.gens, tok,
		func(ctx context.Context) (*resultstore.ResultSet, error) {
			return w.loadSample(ctx, id)
		},
		func(ctx context.Context, set *resultstore.ResultSet) error {
			_, err := w.install(ctx, owner, set)
			return err
		},
		done)
	return tok
}

// OpenAlignmentAsync is OpenSampleAsync for alignment results.
func (w *Workspace) OpenAlignmentAsync(ctx context.Context, id int32, done chan<- error) dispatch.Token {
	tok := w.gens.Advance(KeyAlignment)
	owner := Owner{Kind: project.OwnerAlignment, ID: id}
	dispatch.Background(ctx, w.loop, w.gens, tok,
		func(ctx context.Context) (*resultstore.ResultSet, error) {
			return w.loadAlignment(ctx, id)
		},
		func(ctx context.Context, set *resultstore.ResultSet) error {
			_, err := w.install(ctx, owner, set)
			return err
		},
		done)
	return tok
}

func (w *Workspace) loadSample(ctx context.Context, id int32) (*resultstore.ResultSet, error) {
	paths, err := w.project.SamplePaths(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open sample %d: %w", id, err)
	}
	set, err := resultstore.OpenSample(paths, w.storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open sample %d: %w", id, err)
	}
	return set, nil
}

func (w *Workspace) loadAlignment(ctx context.Context, id int32) (*resultstore.ResultSet, error) {
	paths, err := w.project.AlignmentPaths(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open alignment %d: %w", id, err)
	}
	set, err := resultstore.OpenAlignment(ctx, paths, w.storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open alignment %d: %w", id, err)
	}
	return set, nil
}

// install makes set the current result of its kind. set is closed on every
// failure path.
func (w *Workspace) install(ctx context.Context, owner Owner, set *resultstore.ResultSet) (_ *Result, err error) {
	if w.closed {
		set.Close()
		return nil, ErrClosed
	}
	current := &w.sample
	if owner.Kind == project.OwnerAlignment {
		current = &w.alignment
	}
	if *current != nil {
		if err := w.closeResult(ctx, *current); err != nil {
			w.logger.Warn("closing previous result failed", "owner", (*current).Owner.String(), "error", err)
		}
		*current = nil
	}

	r := &Result{Owner: owner, Set: set}
	defer func() {
		if err != nil {
			if terr := w.teardown(r); terr != nil {
				w.logger.Warn("teardown after failed open", "owner", owner.String(), "error", terr)
			}
		}
	}()

	scopes := []focus.Scope{owner.scope(false)}
	if set.Drift != nil {
		scopes = append(scopes, owner.scope(true))
	}
	for _, scope := range scopes {
		if _, err := w.registry.Open(scope, r.resolver(scope)); err != nil {
			return nil, err
		}
		r.scopes = append(r.scopes, scope)
	}

	if w.layout != nil && w.factory != nil {
		panels := make(map[string]binding.Panel)
		for _, scope := range r.scopes {
			for _, p := range w.layout.PanelsFor(scope.Kind) {
				if impl := w.factory(p, scope); impl != nil {
					panels[p.Name] = impl
				}
			}
		}
		if err := w.ApplyLayout(r, w.layout, panels); err != nil {
			return nil, err
		}
	}

	w.restoreFocus(ctx, r)
	*current = r
	w.logger.Info("result opened", "owner", owner.String(), "scopes", len(r.scopes))
	return r, nil
}

func (w *Workspace) restoreFocus(ctx context.Context, r *Result) {
	for _, scope := range r.scopes {
		id, ok, err := w.project.LoadFocus(ctx, scope)
		if err != nil {
			w.logger.Warn("load focus failed", "scope", scope.String(), "error", err)
			continue
		}
		if !ok {
			continue
		}
		gctx := focus.WithGesture(ctx, "restore:"+scope.String())
		if err := w.registry.Set(gctx, scope, id); err != nil {
			w.logger.Warn("restore focus failed", "scope", scope.String(), "id", id, "error", err)
		}
	}
}

// CloseSample closes the current sample, persisting its focus.
func (w *Workspace) CloseSample(ctx context.Context) error {
	r := w.sample
	if r == nil {
		return nil
	}
	w.sample = nil
	w.gens.Advance(KeySample)
	return w.closeResult(ctx, r)
}

// CloseAlignment closes the current alignment, persisting its focus.
func (w *Workspace) CloseAlignment(ctx context.Context) error {
	r := w.alignment
	if r == nil {
		return nil
	}
	w.alignment = nil
	w.gens.Advance(KeyAlignment)
	return w.closeResult(ctx, r)
}

// Close closes every open result. The dispatch loop and the project are
// left to the caller. Safe to call twice.
func (w *Workspace) Close(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(w.CloseSample(ctx), w.CloseAlignment(ctx))
}

// Closed reports whether Close has been called.
func (w *Workspace) Closed() bool { return w.closed }

func (w *Workspace) closeResult(ctx context.Context, r *Result) error {
	var errs []error
	for _, scope := range r.scopes {
		id, err := w.registry.Get(scope)
		if err != nil {
			continue
		}
		if err := w.project.SaveFocus(ctx, scope, id); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, w.teardown(r))
	w.logger.Info("result closed", "owner", r.Owner.String())
	return errors.Join(errs...)
}

// teardown releases everything r holds, in reverse order of creation.
func (w *Workspace) teardown(r *Result) error {
	for _, b := range r.bindings {
		b.Close()
	}
	for _, g := range r.guards {
		g.Close()
	}
	for _, scope := range r.scopes {
		w.registry.Close(scope)
	}
	r.bindings = nil
	r.guards = nil
	return r.Set.Close()
}
