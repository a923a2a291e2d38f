package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/spotview/internal/datafile"
	"github.com/roach88/spotview/internal/record"
)

// Spot returns a spectrum record for spot id of owner with npeaks peaks.
// Summary fields are retention time, precursor m/z and height.
func Spot(owner int32, id record.ID, npeaks int) record.Record {
	peaks := make([]record.Point, npeaks)
	for i := range peaks {
		peaks[i] = record.Point{X: 50 + float64(i)*12.5, Y: float64((i%7 + 1) * 1000)}
	}
	return record.Record{
		ID:     id,
		Owner:  owner,
		Kind:   record.KindSpectrum,
		Fields: []float64{1 + float64(id)*0.05, 150 + float64(id)*3.25, 1e4 + float64(id)},
		Arrays: [][]record.Point{peaks},
	}
}

// Spots returns spots 0..n-1, peak counts cycling through 0..4.
func Spots(owner int32, n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i] = Spot(owner, record.ID(i), i%5)
	}
	return out
}

// Drift returns the mobility record of master id with a short mobilogram.
func Drift(owner int32, id record.ID) record.Record {
	return record.Record{
		ID:     id,
		Owner:  owner,
		Kind:   record.KindDrift,
		Fields: []float64{0.8 + float64(id)*0.01, 210, 5e3},
		Arrays: [][]record.Point{{{X: 0.7, Y: 10}, {X: 0.8, Y: 90}, {X: 0.9, Y: 15}}},
	}
}

// Bar returns the per-sample intensities of alignment spot id.
func Bar(owner int32, id record.ID, samples int) record.Record {
	bars := make([]record.Point, samples)
	for i := range bars {
		bars[i] = record.Point{X: float64(i), Y: float64(100*(i+1)) + float64(id)}
	}
	return record.Record{
		ID:     id,
		Owner:  owner,
		Kind:   record.KindBar,
		Fields: []float64{float64(samples), 0, 0},
		Arrays: [][]record.Point{bars},
	}
}

// Chromatogram returns the extracted ion chromatogram of alignment spot id.
func Chromatogram(owner int32, id record.ID) record.Record {
	return record.Record{
		ID:     id,
		Owner:  owner,
		Kind:   record.KindChromatogram,
		Fields: []float64{1 + float64(id)*0.05, 0.2, 1e4},
		Arrays: [][]record.Point{{{X: 0.9, Y: 0}, {X: 1, Y: 100}, {X: 1.1, Y: 0}}},
	}
}

// WriteFile writes recs as a data file of kind under dir and returns its
// path.
func WriteFile(t testing.TB, dir, name string, kind record.Kind, recs []record.Record) string {
	t.Helper()
	path, err := buildFile(dir, name, kind, recs)
	require.NoError(t, err)
	return path
}

func buildFile(dir, name string, kind record.Kind, recs []record.Record) (string, error) {
	path := filepath.Join(dir, name)
	if _, err := datafile.WriteFile(path, kind, recs); err != nil {
		return "", err
	}
	return path, nil
}

// SampleFiles are the files of a synthetic sample.
type SampleFiles struct {
	Spectra string
	Drift   string                    // empty without mobility
	Links   map[record.ID][]record.ID // spot → masters
}

// BuildSample writes a sample of n spots under dir. When mobility is true,
// every even spot gets two drift masters numbered from 1000, and the odd
// master of every fourth spot is left out of the drift file (linked but not
// materialized).
func BuildSample(dir string, owner int32, n int, mobility bool) (SampleFiles, error) {
	var files SampleFiles
	var err error
	if files.Spectra, err = buildFile(dir, "spectra.spd", record.KindSpectrum, Spots(owner, n)); err != nil {
		return files, err
	}
	if !mobility {
		return files, nil
	}

	files.Links = make(map[record.ID][]record.ID)
	var drift []record.Record
	next := record.ID(1000)
	for spot := 0; spot < n; spot += 2 {
		a, b := next, next+1
		next += 2
		files.Links[record.ID(spot)] = []record.ID{a, b}
		drift = append(drift, Drift(owner, a))
		if spot%4 != 0 {
			drift = append(drift, Drift(owner, b))
		}
	}
	files.Drift, err = buildFile(dir, "drift.spd", record.KindDrift, drift)
	return files, err
}

// WriteSample is BuildSample failing t on error.
func WriteSample(t testing.TB, dir string, owner int32, n int, mobility bool) SampleFiles {
	t.Helper()
	files, err := BuildSample(dir, owner, n, mobility)
	require.NoError(t, err)
	return files
}

// AlignmentFiles are the files of a synthetic alignment result.
type AlignmentFiles struct {
	Spectra       string
	Chromatograms string
	Bars          string
}

// BuildAlignment writes an alignment of n spots over samples samples.
func BuildAlignment(dir string, owner int32, n, samples int) (AlignmentFiles, error) {
	chroms := make([]record.Record, n)
	bars := make([]record.Record, n)
	for i := range n {
		chroms[i] = Chromatogram(owner, record.ID(i))
		bars[i] = Bar(owner, record.ID(i), samples)
	}
	var files AlignmentFiles
	var err error
	if files.Spectra, err = buildFile(dir, "aligned.spd", record.KindSpectrum, Spots(owner, n)); err != nil {
		return files, err
	}
	if files.Chromatograms, err = buildFile(dir, "chrom.spd", record.KindChromatogram, chroms); err != nil {
		return files, err
	}
	files.Bars, err = buildFile(dir, "bars.spd", record.KindBar, bars)
	return files, err
}

// WriteAlignment is BuildAlignment failing t on error.
func WriteAlignment(t testing.TB, dir string, owner int32, n, samples int) AlignmentFiles {
	t.Helper()
	files, err := BuildAlignment(dir, owner, n, samples)
	require.NoError(t, err)
	return files
}
