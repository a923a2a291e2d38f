package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")

func runTestCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCmd(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenarios(t *testing.T) {
	_, err := runTestCmd(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to find scenarios")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := runTestCmd(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandRunsScenarios(t *testing.T) {
	out, err := runTestCmd(t, "text", scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ linked_table_plot")
	assert.Contains(t, out, "✓ mobility_follow")
	assert.Contains(t, out, "0 failed")
}

func TestTestCommandJSONWithFilter(t *testing.T) {
	out, err := runTestCmd(t, "json", scenariosDir, "--filter", "mobility*")
	require.NoError(t, err, out)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "mobility_follow", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.Positive(t, resp.Data.Scenarios[0].Events)
}

func TestTestCommandGolden(t *testing.T) {
	golden := t.TempDir()

	_, err := runTestCmd(t, "text", scenariosDir, "--golden", golden)
	require.Error(t, err, "missing golden files fail")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = runTestCmd(t, "text", scenariosDir, "--golden", golden, "--update")
	require.NoError(t, err)
	entries, err := os.ReadDir(golden)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	out, err := runTestCmd(t, "text", scenariosDir, "--golden", golden)
	require.NoError(t, err, out)
}

func TestTestCommandUpdateRequiresGolden(t *testing.T) {
	_, err := runTestCmd(t, "text", scenariosDir, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong
description: "asserts a focus the gesture never set"
fixture: {kind: sample, spots: 4}
panels:
  - {name: plot, kind: spot-plot, scope: sample/primary}
steps:
  - {gesture: plot, id: 1, expect: written}
assertions:
  - {type: focus, scope: sample/primary, id: 2}
`), 0o644))

	out, err := runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestFilterScenarios(t *testing.T) {
	files := []string{"a/linked_table_plot.yaml", "a/mobility_follow.yml", "b/alignment_bars.yaml"}

	got, err := filterScenarios(files, "")
	require.NoError(t, err)
	assert.Equal(t, files, got)

	got, err = filterScenarios(files, "*_follow")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/mobility_follow.yml"}, got)

	_, err = filterScenarios(files, "[")
	assert.Error(t, err)
}
