package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("SPOTVIEW_DATA", "/data/run42")

	d, err := ParseDefaults(strings.NewReader(`
[project]
database = $SPOTVIEW_DATA/project.db
layout = /etc/spotview/viewer.cue

[viewer]
max-cascade = 16
cache-records = 512
`))
	require.NoError(t, err)
	assert.Equal(t, Defaults{
		Database:     "/data/run42/project.db",
		Layout:       "/etc/spotview/viewer.cue",
		MaxCascade:   16,
		CacheRecords: 512,
	}, d)
}

func TestParseDefaults_Partial(t *testing.T) {
	d, err := ParseDefaults(strings.NewReader("[viewer]\nmax-cascade = 8\n"))
	require.NoError(t, err)
	assert.Equal(t, Defaults{MaxCascade: 8}, d)
}

func TestParseDefaults_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"zero cascade", "[viewer]\nmax-cascade = 0\n"},
		{"not a number", "[viewer]\ncache-records = lots\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefaults(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	d, err := LoadDefaults(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, Defaults{}, d)

	path := filepath.Join(dir, DefaultsFile)
	require.NoError(t, os.WriteFile(path, []byte("[project]\ndatabase = p.db\n"), 0o644))
	d, err = LoadDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "p.db", d.Database)

	require.NoError(t, os.WriteFile(path, []byte("[viewer]\nmax-cascade = -1\n"), 0o644))
	_, err = LoadDefaults(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestDefaultsApply(t *testing.T) {
	d := Defaults{Database: "d.db", Layout: "l.cue", MaxCascade: 8, CacheRecords: 32}

	opts := &RootOptions{Project: "flag.db", MaxCascade: 4}
	d.apply(opts)
	assert.Equal(t, "flag.db", opts.Project, "flags win")
	assert.Equal(t, "l.cue", opts.Layout)
	assert.Equal(t, 4, opts.MaxCascade)
	assert.Equal(t, 32, opts.CacheRecords)
}

func TestDefaultsPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, DefaultsFile), defaultsPath())

	t.Setenv("HOME", "")
	assert.Equal(t, "", defaultsPath())
}
