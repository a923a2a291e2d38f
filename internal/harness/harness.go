package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/layout"
	"github.com/roach88/spotview/internal/project"
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/testutil"
	"github.com/roach88/spotview/internal/workspace"
)

// fixtureOwner is the sample or alignment ID every fixture is registered as.
const fixtureOwner int32 = 1

// Harness is the scenario execution state for one run.
type Harness struct {
	scenario *Scenario
	seq      *testutil.Sequence
	result   *Result
	ws       *workspace.Workspace
	panels   map[string]*tracePanel
	sets     map[focus.Scope]int
	traced   map[focus.Scope]bool
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run writes its fixture into a fresh temporary directory and opens a
// fresh in-memory project, so runs are isolated and deterministic.
//
// Execution flow:
//  1. Write fixture data files and register them
//  2. Build the layout and open the result through a workspace
//  3. Play the steps, checking expected outcomes
//  4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "spotview-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture directory: %w", err)
	}
	defer os.RemoveAll(dir)

	proj, err := project.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory project: %w", err)
	}
	defer proj.Close()

	ctx := context.Background()
	if err := registerFixture(ctx, proj, dir, scenario.Fixture); err != nil {
		return nil, fmt.Errorf("failed to build fixture: %w", err)
	}

	l, err := scenario.buildLayout()
	if err != nil {
		return nil, fmt.Errorf("failed to build layout: %w", err)
	}

	prefix := scenario.GesturePrefix
	if prefix == "" {
		prefix = "g"
	}
	focusOpts := []focus.Option{focus.WithGestureIDs(testutil.NewGestureIDs(prefix))}
	if scenario.MaxCascade > 0 {
		focusOpts = append(focusOpts, focus.WithMaxCascade(scenario.MaxCascade))
	}

	h := &Harness{
		scenario: scenario,
		seq:      testutil.NewSequence(),
		result:   NewResult(),
		panels:   make(map[string]*tracePanel),
		sets:     make(map[focus.Scope]int),
		traced:   make(map[focus.Scope]bool),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // quiet in tests
	}
	h.ws = workspace.New(proj,
		workspace.WithLogger(h.logger),
		workspace.WithFocusOptions(focusOpts...),
		workspace.WithLayout(l, h.newPanel),
	)
	defer h.ws.Close(ctx)

	var r *workspace.Result
	if scenario.Fixture.Kind == FixtureAlignment {
		r, err = h.ws.OpenAlignment(ctx, fixtureOwner)
	} else {
		r, err = h.ws.OpenSample(ctx, fixtureOwner)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	for _, b := range r.Bindings() {
		if p, ok := h.panels[b.Name()]; ok {
			p.b = b
		}
	}

	for i, step := range scenario.Steps {
		if err := h.play(ctx, r, i, step); err != nil {
			return nil, err
		}
	}

	for _, msg := range h.evaluate(r, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func registerFixture(ctx context.Context, proj *project.Project, dir string, f Fixture) error {
	if f.Kind == FixtureAlignment {
		samples := f.Samples
		if samples <= 0 {
			samples = 3
		}
		files, err := testutil.BuildAlignment(dir, fixtureOwner, f.Spots, samples)
		if err != nil {
			return err
		}
		return proj.RegisterAlignment(ctx, project.Alignment{
			ID:               fixtureOwner,
			Name:             "fixture",
			SpectraPath:      files.Spectra,
			ChromatogramPath: files.Chromatograms,
			BarPath:          files.Bars,
		})
	}

	files, err := testutil.BuildSample(dir, fixtureOwner, f.Spots, f.Mobility)
	if err != nil {
		return err
	}
	if err := proj.RegisterSample(ctx, project.Sample{
		ID:          fixtureOwner,
		Name:        "fixture",
		SpectraPath: files.Spectra,
		DriftPath:   files.Drift,
	}); err != nil {
		return err
	}
	if f.Mobility {
		return proj.SetDriftLinks(ctx, project.OwnerSample, fixtureOwner, files.Links)
	}
	return nil
}

// newPanel is the workspace panel factory. The first panel of each scope
// also subscribes the focus tracer, ahead of every binding.
func (h *Harness) newPanel(p layout.Panel, scope focus.Scope) binding.Panel {
	if !h.traced[scope] {
		if st, ok := h.ws.Registry().State(scope); ok {
			st.SubscribeNamed("harness-trace", focus.ObserverFunc(h.focusChanged))
			h.traced[scope] = true
		}
	}
	tp := &tracePanel{h: h, name: p.Name, echo: h.scenario.echoes(p)}
	h.panels[p.Name] = tp
	return tp
}

func (h *Harness) focusChanged(ctx context.Context, c focus.Change) error {
	h.sets[c.Scope]++
	h.record(TraceEvent{
		Type:       EventFocus,
		Scope:      c.Scope.String(),
		Previous:   c.Previous,
		ID:         c.ID,
		Generation: int64(c.Generation),
		Gesture:    c.Gesture,
	})
	return nil
}

func (h *Harness) record(e TraceEvent) int {
	e.Seq = h.seq.Next()
	h.result.Trace = append(h.result.Trace, e)
	return len(h.result.Trace) - 1
}

// gesture sends a gesture to b and traces it with its outcome.
func (h *Harness) gesture(ctx context.Context, b *binding.Binding, id record.ID, source string) string {
	i := h.record(TraceEvent{Type: EventGesture, Panel: b.Name(), ID: id, Source: source})
	wrote, err := b.Gesture(ctx, id)
	outcome := classify(wrote, err)
	h.result.Trace[i].Outcome = outcome
	return outcome
}

func (h *Harness) play(ctx context.Context, r *workspace.Result, i int, step Step) error {
	b, ok := r.Binding(step.Gesture)
	if !ok {
		return fmt.Errorf("steps[%d]: panel %q is not bound", i, step.Gesture)
	}
	outcome := h.gesture(ctx, b, record.ID(*step.ID), SourceUser)
	if step.Expect != "" && outcome != step.Expect {
		h.result.AddError(fmt.Sprintf("steps[%d]: gesture %s %d: expected %s, got %s",
			i, step.Gesture, *step.ID, step.Expect, outcome))
	}
	return nil
}

func classify(wrote bool, err error) string {
	switch {
	case err == nil && wrote:
		return OutcomeWritten
	case err == nil:
		return OutcomeEcho
	case errors.Is(err, binding.ErrReadOnly):
		return OutcomeReadOnly
	case focus.IsStaleSelection(err):
		return OutcomeStale
	case focus.IsCascadeExceeded(err):
		return OutcomeCascade
	case wrote:
		return OutcomeFailed
	}
	return OutcomeError
}

// tracePanel traces its renders and, when echo is set, re-asserts each
// render as a gesture.
type tracePanel struct {
	h       *Harness
	b       *binding.Binding
	name    string
	echo    bool
	focused []record.ID
}

func (p *tracePanel) Render(ctx context.Context, v binding.View) error {
	n := 0
	for _, recs := range v.Records {
		n += len(recs)
	}
	p.focused = append(p.focused, v.Focused)
	p.h.record(TraceEvent{
		Type:    EventRender,
		Panel:   p.name,
		ID:      v.Focused,
		Gesture: v.Change.Gesture,
		Records: n,
	})
	if p.echo && p.b != nil {
		p.h.gesture(ctx, p.b, v.Focused, SourceEcho)
	}
	return nil
}
