package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int    { return &n }
func idp(n int32) *int32 { return &n }
func boolp(b bool) *bool { return &b }

func linkedScenario() *Scenario {
	return &Scenario{
		Name:        "linked",
		Description: "plot and table linked",
		Fixture:     Fixture{Kind: FixtureSample, Spots: 4},
		Panels: []PanelDecl{
			{Name: "plot", Kind: "spot-plot", Scope: "sample/primary"},
			{Name: "table", Kind: "spot-table", Scope: "sample/primary"},
		},
		Links: []LinkDecl{{Hub: "plot", Spokes: []string{"table"}}},
		Steps: []Step{{Gesture: "plot", ID: idp(1), Expect: OutcomeWritten}},
		Assertions: []Assertion{
			{Type: AssertFocus, Scope: "sample/primary", ID: idp(1)},
			{Type: AssertSets, Scope: "sample/primary", Count: intp(1)},
		},
	}
}

func TestRun_LinkedPanels(t *testing.T) {
	result, err := Run(linkedScenario())
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)

	assert.Equal(t, 1, result.Count(EventFocus, ""))
	assert.Equal(t, 2, result.Count(EventRender, ""))
	assert.Equal(t, 3, result.Count(EventGesture, ""), "one user gesture plus two echoes")
	for _, e := range result.Trace {
		if e.Type == EventGesture && e.Source == SourceEcho {
			assert.Equal(t, OutcomeEcho, e.Outcome)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	a, err := Run(linkedScenario())
	require.NoError(t, err)
	b, err := Run(linkedScenario())
	require.NoError(t, err)
	assert.Equal(t, a.Trace, b.Trace)
}

func TestRun_FailingAssertions(t *testing.T) {
	s := linkedScenario()
	s.Steps[0].Expect = OutcomeStale
	s.Assertions = append(s.Assertions,
		Assertion{Type: AssertRenders, Panel: "table", Count: intp(7)},
		Assertion{Type: AssertRendered, Panel: "plot", IDs: []int32{2}},
		Assertion{Type: AssertFocus, Scope: "sample/secondary", ID: idp(1)},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "expected stale, got written")
	assert.Contains(t, result.Errors[1], "Expected: 7 renders of table")
	assert.Contains(t, result.Errors[2], "rendered [2]")
	assert.Contains(t, result.Errors[3], "no sample/secondary scope")
}

func TestRun_EchoDisabledPanelIsNotGuarded(t *testing.T) {
	s := linkedScenario()
	s.Links = nil
	s.Panels[1].Echo = boolp(false)
	s.Assertions = []Assertion{
		{Type: AssertEchoes, Panel: "plot", Count: intp(1)},
		{Type: AssertEchoes, Panel: "table", Count: intp(0)},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_UnboundPanel(t *testing.T) {
	s := linkedScenario()
	s.Steps[0].Gesture = "ghost"
	_, err := Run(s)
	assert.Error(t, err)
}

func TestRun_InvalidLayout(t *testing.T) {
	s := linkedScenario()
	s.Panels = append(s.Panels, PanelDecl{Name: "spectrum", Kind: "spectrum", Scope: "sample/primary"})
	s.Links = []LinkDecl{{Hub: "plot", Spokes: []string{"spectrum"}}}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "L103")
}

func TestScenarioFiles(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, files, 3)

	for _, o := range RunFiles(files) {
		t.Run(filepath.Base(o.Path), func(t *testing.T) {
			require.NoError(t, o.Err)
			assert.True(t, o.Passed(), o.Result.Errors)
		})
	}
}

func TestGolden(t *testing.T) {
	for _, name := range []string{"linked_table_plot", "mobility_follow"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestTraceSnapshot_Canonical(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "tiny",
		Trace: []TraceEvent{
			{Seq: 1, Type: EventGesture, Panel: "plot", ID: 0, Source: SourceUser, Outcome: OutcomeWritten},
		},
	}
	b, err := snap.Canonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"tiny","trace":[{"id":0,"outcome":"written","panel":"plot","seq":1,"source":"user","type":"gesture"}]}`,
		string(b))
}

func TestCompareGolden(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "linked_table_plot.yaml"))
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	require.NoError(t, CompareGolden(filepath.Join("testdata", "golden"), s.Name, result, false))

	dir := t.TempDir()
	assert.Error(t, CompareGolden(dir, s.Name, result, false), "missing golden file")
	require.NoError(t, CompareGolden(dir, s.Name, result, true))
	require.NoError(t, CompareGolden(dir, s.Name, result, false))

	result.Trace = result.Trace[:len(result.Trace)-1]
	assert.ErrorIs(t, CompareGolden(dir, s.Name, result, false), ErrGoldenMismatch)
}
