package record

import (
	"fmt"
	"math"
	"slices"
)

// ID identifies a record within one data file (one sample or one alignment
// result). IDs are assigned by the producing algorithm.
type ID int32

// None is the ID that denotes "nothing focused".
const None ID = -1

// Valid reports whether id can address a record.
func (id ID) Valid() bool {
	return id >= 0
}

// Kind is the record family stored in a data file.
type Kind uint8

const (
	// KindSpectrum is a deconvoluted spot spectrum (per sample or alignment).
	KindSpectrum Kind = iota + 1
	// KindChromatogram is an aggregated chromatogram of one alignment spot.
	KindChromatogram
	// KindDrift is a mobility sub-record keyed by master ID.
	KindDrift
	// KindBar holds per-sample intensities for one alignment spot.
	KindBar
)

var kindNames = map[Kind]string{
	KindSpectrum:     "spectrum",
	KindChromatogram: "chromatogram",
	KindDrift:        "drift",
	KindBar:          "bar",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the Kind with the given name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown record kind %q", s)
}

// Field count and array count limits of one record.
const (
	MinFields = 3
	MaxFields = 8
	MinArrays = 1
	MaxArrays = 8
)

// Point is one (x, y) pair, e.g. (m/z, intensity) or (retention time, intensity).
type Point struct {
	X float64
	Y float64
}

// Record is one decoded payload.
//
// Fields carries the fixed numeric summary (retention time, m/z, height,
// area, ... depending on Kind). Arrays carries the variable-length point
// arrays, e.g. a spectrum's peaks or a chromatogram's trace.
type Record struct {
	ID     ID
	Owner  int32 // owning sample or alignment ID
	Kind   Kind
	Fields []float64
	Arrays [][]Point
}

// Points returns the number of points across all arrays.
func (r Record) Points() int {
	n := 0
	for _, a := range r.Arrays {
		n += len(a)
	}
	return n
}

// Validate checks that r can be encoded.
func (r Record) Validate() error {
	if !r.ID.Valid() {
		return fmt.Errorf("record id %d is negative", r.ID)
	}
	if _, ok := kindNames[r.Kind]; !ok {
		return fmt.Errorf("record %d: unknown kind %d", r.ID, r.Kind)
	}
	if n := len(r.Fields); n < MinFields || n > MaxFields {
		return fmt.Errorf("record %d: %d summary fields, want %d..%d", r.ID, n, MinFields, MaxFields)
	}
	if n := len(r.Arrays); n < MinArrays || n > MaxArrays {
		return fmt.Errorf("record %d: %d arrays, want %d..%d", r.ID, n, MinArrays, MaxArrays)
	}
	return nil
}

// Equal reports whether r and other carry identical content. NaN values
// compare equal to NaN so that a round trip through a data file is an
// identity.
func (r Record) Equal(other Record) bool {
	if r.ID != other.ID || r.Owner != other.Owner || r.Kind != other.Kind {
		return false
	}
	if len(r.Fields) != len(other.Fields) || len(r.Arrays) != len(other.Arrays) {
		return false
	}
	for i := range r.Fields {
		if !sameFloat(r.Fields[i], other.Fields[i]) {
			return false
		}
	}
	for i := range r.Arrays {
		a, b := r.Arrays[i], other.Arrays[i]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if !sameFloat(a[j].X, b[j].X) || !sameFloat(a[j].Y, b[j].Y) {
				return false
			}
		}
	}
	return true
}

func sameFloat(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b) || a == b
}

// Canonical returns r as a map suitable for MarshalCanonical.
func (r Record) Canonical() map[string]any {
	fields := make([]any, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = f
	}
	arrays := make([]any, len(r.Arrays))
	for i, a := range r.Arrays {
		pts := make([]any, len(a))
		for j, p := range a {
			pts[j] = []any{p.X, p.Y}
		}
		arrays[i] = pts
	}
	return map[string]any{
		"id":     int64(r.ID),
		"owner":  int64(r.Owner),
		"kind":   r.Kind.String(),
		"fields": fields,
		"arrays": arrays,
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Fields = slices.Clone(r.Fields)
	if r.Arrays != nil {
		out.Arrays = make([][]Point, len(r.Arrays))
		for i, a := range r.Arrays {
			out.Arrays[i] = slices.Clone(a)
		}
	}
	return out
}
