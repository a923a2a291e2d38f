package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/datafile"
	"github.com/roach88/spotview/internal/dispatch"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/layout"
	"github.com/roach88/spotview/internal/project"
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/resultstore"
	"github.com/roach88/spotview/internal/testutil"
)

type env struct {
	proj   *project.Project
	panels map[string]*testutil.RecordingPanel
	files  map[int32]testutil.SampleFiles
}

func newEnv(t *testing.T) *env {
	t.Helper()
	p, err := project.Open(filepath.Join(t.TempDir(), "project.db"))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return &env{proj: p, panels: map[string]*testutil.RecordingPanel{}, files: map[int32]testutil.SampleFiles{}}
}

func (e *env) addSample(t *testing.T, id int32, n int, mobility bool) testutil.SampleFiles {
	t.Helper()
	ctx := context.Background()
	files := testutil.WriteSample(t, t.TempDir(), id, n, mobility)
	require.NoError(t, e.proj.RegisterSample(ctx, project.Sample{
		ID:          id,
		Name:        fmt.Sprintf("sample-%d", id),
		SpectraPath: files.Spectra,
		DriftPath:   files.Drift,
	}))
	if mobility {
		require.NoError(t, e.proj.SetDriftLinks(ctx, project.OwnerSample, id, files.Links))
	}
	e.files[id] = files
	return files
}

// factory builds recording panels; interactive ones echo their renders.
func (e *env) factory(p layout.Panel, scope focus.Scope) binding.Panel {
	rp := &testutil.RecordingPanel{Echo: p.CanWrite()}
	e.panels[p.Name] = rp
	return rp
}

func (e *env) workspace(t *testing.T, opts ...Option) *Workspace {
	t.Helper()
	opts = append([]Option{
		WithLayout(layout.Default(), e.factory),
		WithFocusOptions(focus.WithGestureIDs(testutil.NewGestureIDs("ws"))),
	}, opts...)
	w := New(e.proj, opts...)
	t.Cleanup(func() { w.Close(context.Background()) })
	return w
}

// attach connects every recording panel to its binding so echoes flow.
func (e *env) attach(r *Result) {
	for _, b := range r.Bindings() {
		if p, ok := e.panels[b.Name()]; ok {
			p.Attach(b)
		}
	}
}

func TestOpenSample_ScopesBindingsAndGuards(t *testing.T) {
	e := newEnv(t)
	e.addSample(t, 1, 8, true)
	w := e.workspace(t)
	ctx := context.Background()

	r, err := w.OpenSample(ctx, 1)
	require.NoError(t, err)
	e.attach(r)

	assert.Equal(t, focus.SampleScope(1, false), r.Primary())
	sec, ok := r.Secondary()
	require.True(t, ok)
	assert.Equal(t, focus.SampleScope(1, true), sec)
	assert.Equal(t, []focus.Scope{r.Primary(), sec}, w.Registry().Scopes())

	var names []string
	for _, b := range r.Bindings() {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"plot", "table", "spectrum", "mobility"}, names)
	require.Len(t, r.Guards(), 1)

	plot, _ := r.Binding("plot")
	table, _ := r.Binding("table")
	wrote, err := plot.Gesture(ctx, 2)
	require.NoError(t, err)
	assert.True(t, wrote)

	assert.Equal(t, []record.ID{2}, e.panels["table"].Focused())
	assert.Equal(t, []record.ID{2}, e.panels["plot"].Focused())
	assert.Equal(t, 1, plot.Stats().Writes)
	assert.Equal(t, 1, plot.Stats().Echoes)
	assert.Equal(t, 0, table.Stats().Writes)
	assert.Equal(t, 1, table.Stats().Echoes)
	assert.Empty(t, e.panels["mobility"].Views(), "secondary scope untouched")

	views := e.panels["spectrum"].Views()
	require.Len(t, views, 1)
	spectrumRec, ok := views[0].Record("spectra")
	require.True(t, ok)
	assert.Equal(t, record.ID(2), spectrumRec.ID)
	assert.Len(t, views[0].Records["drift"], 2)
}

func TestOpenSample_MobilityFollowsMaster(t *testing.T) {
	e := newEnv(t)
	e.addSample(t, 1, 8, true)
	w := e.workspace(t)
	ctx := context.Background()

	r, err := w.OpenSample(ctx, 1)
	require.NoError(t, err)
	e.attach(r)
	mob, ok := r.Binding("mobility")
	require.True(t, ok)

	wrote, err := mob.Gesture(ctx, 1002)
	require.NoError(t, err)
	assert.True(t, wrote)
	rec, ok := e.panels["mobility"].Views()[0].Record("drift")
	require.True(t, ok)
	assert.Equal(t, record.KindDrift, rec.Kind)

	_, err = mob.Gesture(ctx, 1001)
	assert.True(t, focus.IsStaleSelection(err), "linked but not materialized: %v", err)
	id, err := w.Registry().Get(mob.Scope())
	require.NoError(t, err)
	assert.Equal(t, record.ID(1002), id)
}

func TestOpenSample_StoreErrorsBeforeScopes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	files := e.addSample(t, 1, 4, true)
	require.NoError(t, e.proj.RegisterSample(ctx, project.Sample{
		ID: 2, Name: "broken", SpectraPath: files.Spectra, DriftPath: filepath.Join(t.TempDir(), "gone.spd"),
	}))
	w := e.workspace(t)

	_, err := w.OpenSample(ctx, 2)
	require.Error(t, err)
	assert.True(t, datafile.IsNotFound(err))
	assert.Empty(t, w.Registry().Scopes())
	assert.Nil(t, w.Sample())

	// The spectra store opened before the failure was released.
	s, err := resultstore.Open(files.Spectra, resultstore.WithReadWrite())
	require.NoError(t, err)
	s.Close()

	_, err = w.OpenSample(ctx, 99)
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestOpenSample_WithoutMobility(t *testing.T) {
	e := newEnv(t)
	e.addSample(t, 1, 4, false)
	w := e.workspace(t)

	r, err := w.OpenSample(context.Background(), 1)
	require.NoError(t, err)
	_, ok := r.Secondary()
	assert.False(t, ok)
	_, ok = r.Binding("mobility")
	assert.False(t, ok)

	spectrum, ok := r.Binding("spectrum")
	require.True(t, ok)
	require.NoError(t, w.Registry().Set(context.Background(), r.Primary(), 3))
	assert.Equal(t, 1, spectrum.Stats().Renders)
	_, hasDrift := e.panels["spectrum"].Views()[0].Records["drift"]
	assert.False(t, hasDrift)
}

func TestFocusPersistsAcrossReopen(t *testing.T) {
	e := newEnv(t)
	e.addSample(t, 1, 6, true)
	w := e.workspace(t)
	ctx := context.Background()

	r, err := w.OpenSample(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, w.Registry().Set(ctx, r.Primary(), 4))
	require.NoError(t, w.CloseSample(ctx))
	assert.Empty(t, w.Registry().Scopes())

	id, ok, err := e.proj.LoadFocus(ctx, focus.SampleScope(1, false))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record.ID(4), id)
	_, ok, err = e.proj.LoadFocus(ctx, focus.SampleScope(1, true))
	require.NoError(t, err)
	assert.False(t, ok, "unfocused scope leaves no row")

	r, err = w.OpenSample(ctx, 1)
	require.NoError(t, err)
	got, err := w.Registry().Get(r.Primary())
	require.NoError(t, err)
	assert.Equal(t, record.ID(4), got)
	assert.Equal(t, []record.ID{4}, e.panels["plot"].Focused(), "restored focus renders")
}

func TestOpenSample_SwitchClosesPrevious(t *testing.T) {
	e := newEnv(t)
	first := e.addSample(t, 1, 4, false)
	e.addSample(t, 2, 4, false)
	w := e.workspace(t)
	ctx := context.Background()

	r1, err := w.OpenSample(ctx, 1)
	require.NoError(t, err)
	again, err := w.OpenSample(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, r1, again)

	plot1, _ := r1.Binding("plot")
	_, err = w.OpenSample(ctx, 2)
	require.NoError(t, err)
	assert.True(t, plot1.Closed())
	assert.Equal(t, []focus.Scope{focus.SampleScope(2, false)}, w.Registry().Scopes())

	s, err := resultstore.Open(first.Spectra, resultstore.WithReadWrite())
	require.NoError(t, err)
	s.Close()
}

func TestOpenSampleAsync_StaleSwitchDiscarded(t *testing.T) {
	e := newEnv(t)
	first := e.addSample(t, 1, 4, false)
	e.addSample(t, 2, 4, false)
	w := e.workspace(t)
	ctx := context.Background()

	d1, d2 := make(chan error, 1), make(chan error, 1)
	t1 := w.OpenSampleAsync(ctx, 1, d1)
	t2 := w.OpenSampleAsync(ctx, 2, d2)
	assert.False(t, w.Generations().Valid(t1))
	assert.True(t, w.Generations().Valid(t2))

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	assert.ErrorIs(t, <-d1, dispatch.ErrStale)
	require.NoError(t, <-d2)

	var owner Owner
	require.NoError(t, w.Do(ctx, func(ctx context.Context) error {
		owner = w.Sample().Owner
		return nil
	}))
	w.Stop()
	require.NoError(t, <-runErr)

	assert.Equal(t, Owner{Kind: project.OwnerSample, ID: 2}, owner)
	assert.Equal(t, []focus.Scope{focus.SampleScope(2, false)}, w.Registry().Scopes())

	// The discarded result's store was closed.
	s, err := resultstore.Open(first.Spectra, resultstore.WithReadWrite())
	require.NoError(t, err)
	s.Close()
}

func TestOpenAlignment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	files := testutil.WriteAlignment(t, t.TempDir(), 5, 6, 3)
	require.NoError(t, e.proj.RegisterAlignment(ctx, project.Alignment{
		ID: 5, Name: "batch", SpectraPath: files.Spectra,
		ChromatogramPath: files.Chromatograms, BarPath: files.Bars,
	}))
	w := e.workspace(t)

	r, err := w.OpenAlignment(ctx, 5)
	require.NoError(t, err)
	e.attach(r)
	assert.Len(t, r.Bindings(), 4)

	plot, ok := r.Binding("aligned-plot")
	require.True(t, ok)
	_, err = plot.Gesture(ctx, 3)
	require.NoError(t, err)

	bars := e.panels["bars"].Views()
	require.Len(t, bars, 1)
	rec, ok := bars[0].Record("bars")
	require.True(t, ok)
	assert.Equal(t, record.KindBar, rec.Kind)
	assert.Len(t, rec.Arrays[0], 3)

	chrom, ok := e.panels["chromatogram"].Views()[0].Record("chromatograms")
	require.True(t, ok)
	assert.Equal(t, record.ID(3), chrom.ID)

	store, ok := r.Store(r.Primary())
	require.True(t, ok)
	assert.Equal(t, 6, store.Len())
	res, ok := w.ResultFor(focus.AlignmentScope(5, false))
	require.True(t, ok)
	assert.Same(t, r, res)
}

func TestBind_Errors(t *testing.T) {
	e := newEnv(t)
	e.addSample(t, 1, 4, false)
	w := New(e.proj)
	defer w.Close(context.Background())

	r, err := w.OpenSample(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, r.Bindings(), "no layout configured")

	l := layout.Default()
	bars, _ := l.Panel("bars")
	_, err = w.Bind(r, bars, &testutil.RecordingPanel{})
	assert.Error(t, err)

	plot, _ := l.Panel("plot")
	_, err = w.Bind(r, plot, &testutil.RecordingPanel{})
	require.NoError(t, err)
	_, err = w.Bind(r, plot, &testutil.RecordingPanel{})
	assert.Error(t, err, "duplicate name")
}

func TestApplyLayout_InvalidBindsNothing(t *testing.T) {
	e := newEnv(t)
	e.addSample(t, 1, 4, false)
	w := New(e.proj)
	defer w.Close(context.Background())
	r, err := w.OpenSample(context.Background(), 1)
	require.NoError(t, err)

	l, err := layout.Compile("bad.cue", []byte(`
panels: {
	a: {kind: "spot-plot", scope: "sample/primary"}
	b: {kind: "spectrum", scope: "sample/primary"}
}
links: [{hub: "a", spokes: ["b"]}]
`))
	require.NoError(t, err)
	err = w.ApplyLayout(r, l, map[string]binding.Panel{
		"a": &testutil.RecordingPanel{},
		"b": &testutil.RecordingPanel{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), layout.CodeNotWritable)
	assert.Empty(t, r.Bindings())
}

func TestClose(t *testing.T) {
	e := newEnv(t)
	e.addSample(t, 1, 4, true)
	w := e.workspace(t)
	ctx := context.Background()

	r, err := w.OpenSample(ctx, 1)
	require.NoError(t, err)
	guards := r.Guards()

	require.NoError(t, w.Close(ctx))
	require.NoError(t, w.Close(ctx))
	assert.True(t, w.Closed())
	assert.Empty(t, w.Registry().Scopes())
	for _, g := range guards {
		assert.True(t, g.Closed())
	}
	_, err = w.OpenSample(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenSample_FailedInstallReleasesEverything(t *testing.T) {
	e := newEnv(t)
	files := e.addSample(t, 1, 4, true)
	bad, err := layout.Compile("bad.cue", []byte(`
panels: {
	plot:     {kind: "spot-plot", scope: "sample/primary"}
	spectrum: {kind: "spectrum", scope: "sample/primary"}
}
links: [{hub: "plot", spokes: ["spectrum"]}]
`))
	require.NoError(t, err)
	w := New(e.proj, WithLayout(bad, e.factory))
	defer w.Close(context.Background())
	ctx := context.Background()

	_, err = w.OpenSample(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), layout.CodeNotWritable)
	assert.Nil(t, w.Sample())
	assert.Empty(t, w.Registry().Scopes())

	// Both files are unlocked again.
	for _, path := range []string{files.Spectra, files.Drift} {
		s, err := resultstore.Open(path, resultstore.WithReadWrite())
		require.NoError(t, err, path)
		require.NoError(t, s.Close())
	}

	// A workspace with a usable layout can open the sample afterwards.
	good := New(e.proj, WithLayout(layout.Default(), e.factory))
	defer good.Close(ctx)
	_, err = good.OpenSample(ctx, 1)
	require.NoError(t, err)
}

type anyID struct{}

func (anyID) Fetch(id record.ID) (record.Record, error) { return record.Record{ID: id}, nil }

func TestOpenSample_ScopeTakenLeavesOtherOwner(t *testing.T) {
	e := newEnv(t)
	files := e.addSample(t, 1, 4, false)
	w := e.workspace(t)
	ctx := context.Background()

	taken := focus.SampleScope(1, false)
	_, err := w.Registry().Open(taken, anyID{})
	require.NoError(t, err)

	_, err = w.OpenSample(ctx, 1)
	require.Error(t, err)
	assert.True(t, focus.IsScopeAlreadyOpen(err))
	assert.Equal(t, []focus.Scope{taken}, w.Registry().Scopes(), "the existing scope is not ours to close")

	s, err := resultstore.Open(files.Spectra, resultstore.WithReadWrite())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
