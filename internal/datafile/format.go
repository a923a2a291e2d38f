package datafile

import (
	"encoding/binary"
	"math"

	"github.com/roach88/spotview/internal/record"
)

// Binary format constants.
const (
	Magic   uint32 = 0x53505456 // "SPTV"
	Version uint16 = 1

	HeaderSize       = 16
	RecordHeaderSize = 12

	fieldSize = 8
	countSize = 4
	pointSize = 16

	minRecordLength = RecordHeaderSize + record.MinFields*fieldSize + record.MinArrays*countSize
)

// Header is the fixed file header.
type Header struct {
	Version uint16
	Kind    record.Kind
	Count   uint32 // declared record count
}

// MarshalBinary encodes h into 16 bytes.
func (h Header) MarshalBinary() ([]byte, error) {
	return h.appendTo(make([]byte, 0, HeaderSize)), nil
}

func (h Header) appendTo(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, Magic)
	buf = binary.LittleEndian.AppendUint16(buf, h.Version)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Kind))
	buf = binary.LittleEndian.AppendUint32(buf, h.Count)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	return buf
}

// ParseHeader decodes the file header. path is used for error context only.
func ParseHeader(path string, b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, corrupt(path, "file is %d bytes, shorter than the %d-byte header", len(b), HeaderSize)
	}
	if magic := binary.LittleEndian.Uint32(b[0:4]); magic != Magic {
		return Header{}, corrupt(path, "invalid magic number 0x%08X", magic)
	}
	h := Header{
		Version: binary.LittleEndian.Uint16(b[4:6]),
		Kind:    record.Kind(binary.LittleEndian.Uint16(b[6:8])),
		Count:   binary.LittleEndian.Uint32(b[8:12]),
	}
	if h.Version != Version {
		return Header{}, corrupt(path, "unsupported format version %d", h.Version)
	}
	return h, nil
}

// RecordLength returns the encoded size of r in bytes.
func RecordLength(r record.Record) int64 {
	n := int64(RecordHeaderSize) + int64(len(r.Fields))*fieldSize
	for _, a := range r.Arrays {
		n += countSize + int64(len(a))*pointSize
	}
	return n
}

// EncodeRecord encodes one record.
func EncodeRecord(r record.Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, RecordLength(r))
	return appendRecord(buf, r), nil
}

func appendRecord(buf []byte, r record.Record) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.ID))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Owner))
	buf = append(buf, byte(r.Kind), byte(len(r.Fields)), byte(len(r.Arrays)), 0)
	for _, f := range r.Fields {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
	}
	for _, a := range r.Arrays {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(a)))
		for _, p := range a {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.X))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Y))
		}
	}
	return buf
}

// recordHeader is the fixed part at the start of every record.
type recordHeader struct {
	id      record.ID
	owner   int32
	kind    record.Kind
	nfields int
	narrays int
}

func parseRecordHeader(b []byte) recordHeader {
	return recordHeader{
		id:      record.ID(int32(binary.LittleEndian.Uint32(b[0:4]))),
		owner:   int32(binary.LittleEndian.Uint32(b[4:8])),
		kind:    record.Kind(b[8]),
		nfields: int(b[9]),
		narrays: int(b[10]),
	}
}

func (h recordHeader) plausible() bool {
	return h.id >= 0 &&
		h.nfields >= record.MinFields && h.nfields <= record.MaxFields &&
		h.narrays >= record.MinArrays && h.narrays <= record.MaxArrays
}

// DecodeRecord decodes one record from the start of b. It returns the record
// and the number of bytes it occupies. A TRUNCATED_RECORD error is returned
// when b holds fewer bytes than the record declares.
func DecodeRecord(path string, b []byte) (record.Record, int, error) {
	if len(b) < RecordHeaderSize {
		return record.Record{}, 0, truncated(path, record.None,
			"record header needs %d bytes, %d available", RecordHeaderSize, len(b))
	}
	h := parseRecordHeader(b)
	if !h.plausible() {
		return record.Record{}, 0, corrupt(path,
			"implausible record header (id=%d fields=%d arrays=%d)", h.id, h.nfields, h.narrays)
	}

	off := RecordHeaderSize
	need := off + h.nfields*fieldSize
	if len(b) < need {
		return record.Record{}, 0, truncated(path, h.id,
			"record %d declares %d summary fields, only %d bytes available", h.id, h.nfields, len(b))
	}

	r := record.Record{
		ID:     h.id,
		Owner:  h.owner,
		Kind:   h.kind,
		Fields: make([]float64, h.nfields),
		Arrays: make([][]record.Point, h.narrays),
	}
	for i := range r.Fields {
		r.Fields[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
		off += fieldSize
	}

	for i := range r.Arrays {
		if len(b) < off+countSize {
			return record.Record{}, 0, truncated(path, h.id,
				"record %d array %d: count prefix at byte %d is past the %d available", h.id, i, off, len(b))
		}
		n := int64(binary.LittleEndian.Uint32(b[off:]))
		off += countSize
		if int64(len(b)-off) < n*pointSize {
			return record.Record{}, 0, truncated(path, h.id,
				"record %d array %d declares %d points, only %d bytes available", h.id, i, n, len(b)-off)
		}
		pts := make([]record.Point, n)
		for j := range pts {
			pts[j].X = math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
			pts[j].Y = math.Float64frombits(binary.LittleEndian.Uint64(b[off+8:]))
			off += pointSize
		}
		r.Arrays[i] = pts
	}

	return r, off, nil
}
