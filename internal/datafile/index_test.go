package datafile

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spotview/internal/record"
)

func TestNewIndex_Dense(t *testing.T) {
	ix, err := NewIndex([]Entry{
		{ID: 0, Offset: 0, Length: 40},
		{ID: 1, Offset: 40, Length: 56},
	})
	require.NoError(t, err)
	assert.True(t, ix.Dense())

	off, err := ix.OffsetOf(1)
	require.NoError(t, err)
	assert.Equal(t, int64(40), off)

	_, err = ix.OffsetOf(2)
	assert.True(t, IsUnknownRecord(err))
	_, err = ix.OffsetOf(-1)
	assert.True(t, IsUnknownRecord(err))
}

func TestNewIndex_Sparse(t *testing.T) {
	ix, err := NewIndex([]Entry{
		{ID: 900, Offset: 0, Length: 40},
		{ID: 7, Offset: 40, Length: 40},
		{ID: 31, Offset: 80, Length: 56},
	})
	require.NoError(t, err)
	assert.False(t, ix.Dense())
	assert.Equal(t, []record.ID{7, 31, 900}, ix.IDs())

	n, err := ix.LengthOf(31)
	require.NoError(t, err)
	assert.Equal(t, int64(56), n)

	_, ok := ix.Lookup(8)
	assert.False(t, ok)

	// Entries come back in file order.
	entries := ix.Entries()
	assert.Equal(t, record.ID(900), entries[0].ID)
	assert.Equal(t, record.ID(31), entries[2].ID)
	assert.Equal(t, int64(136), ix.BodySize())
}

func TestNewIndex_DuplicateID(t *testing.T) {
	_, err := NewIndex([]Entry{
		{ID: 4, Offset: 0, Length: 40},
		{ID: 4, Offset: 40, Length: 40},
	})
	require.Error(t, err)
	assert.True(t, IsCorruptIndex(err))
}

func TestBuild_ThreeRecordExample(t *testing.T) {
	// Sizes 40, 56 and 40 bytes.
	path := writeSpots(t, []record.Record{spot(0, 0), spot(1, 1), spot(2, 0)}, WithoutSidecar())

	ix, hdr, err := scanPath(t, path)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), hdr.Count)
	assert.True(t, ix.Dense())

	for id, want := range []int64{0, 40, 96} {
		off, err := ix.OffsetOf(record.ID(id))
		require.NoError(t, err)
		assert.Equal(t, want, off, "id %d", id)
	}

	_, err = ix.OffsetOf(3)
	require.Error(t, err)
	assert.True(t, IsUnknownRecord(err))

	// Building twice over the same bytes gives the same index.
	again, _, err := scanPath(t, path)
	require.NoError(t, err)
	assert.Equal(t, ix.Entries(), again.Entries())
}

func TestBuild_RoundTripOffsets(t *testing.T) {
	recs := make([]record.Record, 250)
	for i := range recs {
		recs[i] = spot(record.ID(i), i%7)
	}
	path := writeSpots(t, recs, WithoutSidecar())
	raw := readAll(t, path)

	ix, _, err := scanPath(t, path)
	require.NoError(t, err)
	require.Equal(t, len(recs), ix.Len())

	for _, r := range recs {
		e, ok := ix.Lookup(r.ID)
		require.True(t, ok)
		want, err := EncodeRecord(r)
		require.NoError(t, err)

		got := raw[HeaderSize+e.Offset : HeaderSize+e.End()]
		assert.Equal(t, want, got, "record %d", r.ID)

		dec, _, err := DecodeRecord(path, got)
		require.NoError(t, err)
		assert.True(t, r.Equal(dec))
	}
}

func TestBuild_CountMismatch(t *testing.T) {
	tests := []struct {
		name  string
		delta int
	}{
		{"declares one more", 1},
		{"declares one fewer", -1},
		{"declares zero", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := []record.Record{spot(0, 1), spot(1, 2), spot(2, 0), spot(3, 1), spot(4, 4)}
			path := writeSpots(t, recs, WithoutSidecar())

			raw := readAll(t, path)
			binary.LittleEndian.PutUint32(raw[8:12], uint32(len(recs)+tt.delta))
			require.NoError(t, os.WriteFile(path, raw, 0o644))

			_, _, err := scanPath(t, path)
			require.Error(t, err)
			assert.True(t, IsCorruptIndex(err), "got %v", err)
		})
	}
}

func TestBuild_Overrun(t *testing.T) {
	path := writeSpots(t, []record.Record{spot(0, 1), spot(1, 3)}, WithoutSidecar())
	raw := readAll(t, path)

	for _, cut := range []int{1, 8, 16, 40} {
		require.NoError(t, os.WriteFile(path, raw[:len(raw)-cut], 0o644))
		_, _, err := scanPath(t, path)
		require.Error(t, err, "cut=%d", cut)
		assert.True(t, IsCorruptIndex(err), "cut=%d: %v", cut, err)
	}
}

func TestBuild_HugeArrayCount(t *testing.T) {
	path := writeSpots(t, []record.Record{spot(0, 1)}, WithoutSidecar())
	raw := readAll(t, path)
	// Array count prefix of record 0.
	binary.LittleEndian.PutUint32(raw[HeaderSize+RecordHeaderSize+3*8:], 0xFFFFFFFF)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, _, err := scanPath(t, path)
	require.Error(t, err)
	assert.True(t, IsCorruptIndex(err))
}

func TestBuild_DuplicateIDOnDisk(t *testing.T) {
	path := writeSpots(t, []record.Record{spot(0, 0), spot(1, 0)}, WithoutSidecar())
	raw := readAll(t, path)
	binary.LittleEndian.PutUint32(raw[HeaderSize+40:], 0)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, _, err := scanPath(t, path)
	require.Error(t, err)
	assert.True(t, IsCorruptIndex(err))
	assert.Contains(t, err.Error(), path)
}

func TestBuild_EmptyFile(t *testing.T) {
	path := writeSpots(t, nil, WithoutSidecar())

	ix, hdr, err := scanPath(t, path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), hdr.Count)
	assert.Equal(t, 0, ix.Len())
}

func TestBuild_ShorterThanHeader(t *testing.T) {
	path := writeSpots(t, nil, WithoutSidecar())
	require.NoError(t, os.Truncate(path, 5))

	_, _, err := scanPath(t, path)
	assert.True(t, IsCorruptIndex(err))
}
