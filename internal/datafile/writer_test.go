package datafile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spotview/internal/record"
)

func TestOpenFile_NotFound(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.spd"), false)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestOpenFile_SharedLocksCoexist(t *testing.T) {
	path := writeSpots(t, []record.Record{spot(0, 1)})

	a, err := OpenFile(path, false)
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenFile(path, false)
	require.NoError(t, err)
	defer b.Close()
}

func TestLockConflicts(t *testing.T) {
	path := writeSpots(t, []record.Record{spot(0, 1)})

	viewer, err := OpenFile(path, false)
	require.NoError(t, err)

	_, err = Create(path, record.KindSpectrum)
	require.Error(t, err)
	assert.True(t, IsLocked(err))

	_, err = OpenFile(path, true)
	assert.True(t, IsLocked(err))

	_, err = AppendRecord(path, spot(1, 1))
	assert.True(t, IsLocked(err))

	// The failed writer must not have truncated the file.
	ix, _, err := ScanFile(viewer, path)
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())

	require.NoError(t, viewer.Close())
	w, err := Create(path, record.KindSpectrum)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestWriter_Rejects(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "w.spd"), record.KindSpectrum)
	require.NoError(t, err)
	defer w.Abort()

	_, err = w.Append(spot(0, 1))
	require.NoError(t, err)

	_, err = w.Append(spot(0, 2))
	assert.ErrorContains(t, err, "already written")

	bar := spot(1, 1)
	bar.Kind = record.KindBar
	_, err = w.Append(bar)
	assert.ErrorContains(t, err, "bar")

	assert.Equal(t, 1, w.Len())
}

func TestWriter_AppendAfterClose(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "w.spd"), record.KindSpectrum)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Append(spot(0, 1))
	assert.True(t, IsClosed(err))
}

func TestAppendRecord(t *testing.T) {
	path := writeSpots(t, []record.Record{spot(0, 0), spot(1, 1)})

	off, err := AppendRecord(path, spot(2, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(96), off)
	assert.NoFileExists(t, SidecarPath(path))

	ix, hdr, err := scanPath(t, path)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), hdr.Count)
	got, err := ix.OffsetOf(2)
	require.NoError(t, err)
	assert.Equal(t, int64(96), got)

	_, err = AppendRecord(path, spot(1, 0))
	assert.ErrorContains(t, err, "already present")
}

func TestCreate_RemovesStaleSidecar(t *testing.T) {
	path := writeSpots(t, []record.Record{spot(0, 0)})
	require.FileExists(t, SidecarPath(path))

	w, err := Create(path, record.KindSpectrum, WithoutSidecar())
	require.NoError(t, err)
	assert.NoFileExists(t, SidecarPath(path))
	require.NoError(t, w.Close())
	assert.NoFileExists(t, SidecarPath(path))
}
