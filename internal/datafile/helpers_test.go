package datafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/spotview/internal/record"
)

// spot returns a spectrum record with three summary fields and npeaks peaks.
func spot(id record.ID, npeaks int) record.Record {
	peaks := make([]record.Point, npeaks)
	for i := range peaks {
		peaks[i] = record.Point{X: 100 + float64(i)*1.5, Y: float64(1000 * (i + 1))}
	}
	return record.Record{
		ID:     id,
		Owner:  1,
		Kind:   record.KindSpectrum,
		Fields: []float64{float64(id) * 0.25, 300 + float64(id), 5000},
		Arrays: [][]record.Point{peaks},
	}
}

func writeSpots(t *testing.T, recs []record.Record, opts ...WriterOption) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.spd")
	_, err := WriteFile(path, record.KindSpectrum, recs, opts...)
	require.NoError(t, err)
	return path
}

func scanPath(t *testing.T, path string) (*Index, Header, error) {
	t.Helper()
	f, err := OpenFile(path, false)
	require.NoError(t, err)
	defer f.Close()
	return ScanFile(f, path)
}

func readAll(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}
