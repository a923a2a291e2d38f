package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		ID:     7,
		Owner:  2,
		Kind:   KindSpectrum,
		Fields: []float64{12.5, 301.1412, 1.5e6},
		Arrays: [][]Point{{{X: 85.03, Y: 1200}, {X: 301.14, Y: 98000}}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Record)
		wantErr string
	}{
		{"valid", func(r *Record) {}, ""},
		{"negative id", func(r *Record) { r.ID = None }, "negative"},
		{"unknown kind", func(r *Record) { r.Kind = 99 }, "unknown kind"},
		{"too few fields", func(r *Record) { r.Fields = r.Fields[:2] }, "summary fields"},
		{"too many fields", func(r *Record) { r.Fields = make([]float64, 9) }, "summary fields"},
		{"no arrays", func(r *Record) { r.Arrays = nil }, "arrays"},
		{"empty array is fine", func(r *Record) { r.Arrays = [][]Point{{}} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRecord()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEqual(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	assert.True(t, a.Equal(b))

	b.Arrays[0][1].Y = 98001
	assert.False(t, a.Equal(b))

	c := sampleRecord()
	c.Fields[0] = math.NaN()
	d := sampleRecord()
	d.Fields[0] = math.NaN()
	assert.True(t, c.Equal(d), "identical NaN payloads compare equal")
}

func TestPoints(t *testing.T) {
	r := sampleRecord()
	r.Arrays = append(r.Arrays, []Point{{X: 1, Y: 2}})
	assert.Equal(t, 3, r.Points())
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindSpectrum, KindChromatogram, KindDrift, KindBar} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("heatmap")
	assert.Error(t, err)
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestHash_StableAndContentSensitive(t *testing.T) {
	a := sampleRecord()
	h1 := a.MustHash()
	h2 := sampleRecord().MustHash()
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	b := sampleRecord()
	b.Owner = 3
	assert.NotEqual(t, h1, b.MustHash())
}

func TestHash_RejectsNaN(t *testing.T) {
	r := sampleRecord()
	r.Fields[1] = math.NaN()
	_, err := r.Hash()
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	a := sampleRecord()
	b := a.Clone()
	require.True(t, a.Equal(b))

	b.Fields[0] = 99
	b.Arrays[0][0].X = 1
	assert.Equal(t, 12.5, a.Fields[0])
	assert.Equal(t, 85.03, a.Arrays[0][0].X)
}
