package resultstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spotview/internal/datafile"
	"github.com/roach88/spotview/internal/record"
)

func drift(master record.ID) record.Record {
	r := spot(master, 2)
	r.Kind = record.KindDrift
	return r
}

func TestMasterMap(t *testing.T) {
	m, err := NewMasterMap(map[record.ID][]record.ID{
		3: {30, 31, 32},
		1: {10},
	})
	require.NoError(t, err)

	assert.Equal(t, []record.ID{30, 31, 32}, m.Masters(3))
	assert.Nil(t, m.Masters(2))
	assert.Equal(t, []record.ID{1, 3}, m.Parents())

	p, ok := m.Parent(31)
	assert.True(t, ok)
	assert.Equal(t, record.ID(3), p)

	_, err = NewMasterMap(map[record.ID][]record.ID{1: {5}, 2: {5}})
	assert.ErrorContains(t, err, "linked to both")
}

func TestDriftStore_Unmaterialized(t *testing.T) {
	// Master 31 is linked but was never written.
	path := writeFile(t, "drift.spd", []record.Record{drift(30), drift(32), drift(10)})
	m, err := NewMasterMap(map[record.ID][]record.ID{3: {30, 31, 32}, 1: {10}})
	require.NoError(t, err)

	d, err := OpenDrift(path, m)
	require.NoError(t, err)
	defer d.Close()

	_, ok, err := d.Lookup(31)
	require.NoError(t, err)
	assert.False(t, ok)

	rec, ok, err := d.Lookup(30)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record.ID(30), rec.ID)

	recs, err := d.FetchParent(3)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, record.ID(30), recs[0].ID)
	assert.Equal(t, record.ID(32), recs[1].ID)

	none, err := d.FetchParent(7)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = d.Fetch(31)
	assert.True(t, datafile.IsUnknownRecord(err))
}

func TestDriftStore_ClosedPropagates(t *testing.T) {
	path := writeFile(t, "drift.spd", []record.Record{drift(0)})
	m, _ := NewMasterMap(map[record.ID][]record.ID{0: {0}})
	d, err := OpenDrift(path, m)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, _, err = d.Lookup(0)
	assert.True(t, datafile.IsClosed(err))
}

func TestOpenSample(t *testing.T) {
	spectra := writeFile(t, "s.spd", []record.Record{spot(0, 1), spot(1, 1)})
	driftPath := writeFile(t, "d.spd", []record.Record{drift(100)})

	rs, err := OpenSample(Paths{
		Spectra: spectra,
		Drift:   driftPath,
		Links:   map[record.ID][]record.ID{1: {100}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Primary().Len())
	assert.Equal(t, []record.ID{100}, rs.Drift.Masters(1))

	require.NoError(t, rs.Close())
	require.NoError(t, rs.Close())
	assert.True(t, rs.Spectra.Closed())
	assert.True(t, rs.Drift.Store().Closed())
}

func TestOpenSample_DriftFailureClosesSpectra(t *testing.T) {
	spectra := writeFile(t, "s.spd", []record.Record{spot(0, 1)})

	_, err := OpenSample(Paths{Spectra: spectra, Drift: filepath.Join(t.TempDir(), "missing.spd")})
	require.Error(t, err)
	assert.True(t, datafile.IsNotFound(err))

	f, err := datafile.OpenFile(spectra, true)
	require.NoError(t, err, "spectra store must have been released")
	f.Close()
}

func TestOpenAlignment(t *testing.T) {
	spectra := writeFile(t, "a.spd", []record.Record{spot(0, 1), spot(1, 2)})
	chrom := spot(0, 5)
	chrom.Kind = record.KindChromatogram
	chroms := writeFile(t, "a.chr", []record.Record{chrom})

	rs, err := OpenAlignment(context.Background(), Paths{Spectra: spectra, Chromatograms: chroms})
	require.NoError(t, err)
	defer rs.Close()

	assert.Equal(t, record.KindChromatogram, rs.Chromatograms.Kind())
	assert.Nil(t, rs.Drift)
	assert.Nil(t, rs.Bars)
}

func TestOpenAlignment_PartialFailure(t *testing.T) {
	spectra := writeFile(t, "a.spd", []record.Record{spot(0, 1)})
	chrom := spot(0, 5)
	chrom.Kind = record.KindChromatogram
	chroms := writeFile(t, "a.chr", []record.Record{chrom})

	// Hold the chromatogram file exclusively.
	holder, err := datafile.OpenFile(chroms, true)
	require.NoError(t, err)
	defer holder.Close()

	_, err = OpenAlignment(context.Background(), Paths{Spectra: spectra, Chromatograms: chroms})
	require.Error(t, err)
	assert.True(t, datafile.IsLocked(err))

	f, err := datafile.OpenFile(spectra, true)
	require.NoError(t, err, "spectra store must have been released")
	f.Close()
}
