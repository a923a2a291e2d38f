package datafile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/roach88/spotview/internal/record"
)

// Entry locates one record in the body of a data file.
type Entry struct {
	ID     record.ID
	Offset int64 // relative to the start of the body
	Length int64
}

// End returns the body offset just past the record.
func (e Entry) End() int64 {
	return e.Offset + e.Length
}

// Index maps record IDs to body offsets.
//
// Dense indexes (IDs 0..n-1 in file order) resolve in O(1); sparse indexes
// keep entries sorted by ID and resolve by binary search.
//
// INVARIANTS:
//   - Every entry points to the start of a record whose full length lies
//     inside the body
//   - IDs are unique
//   - The index never changes after construction
type Index struct {
	entries []Entry // dense: position == ID; sparse: sorted by ID
	dense   bool
}

// NewIndex builds an Index from entries in file order.
// Returns a CORRUPT_INDEX error on duplicate IDs.
func NewIndex(entries []Entry) (*Index, error) {
	ix := &Index{entries: slices.Clone(entries), dense: true}
	for i, e := range ix.entries {
		if e.ID != record.ID(i) {
			ix.dense = false
			break
		}
	}
	if ix.dense {
		return ix, nil
	}

	sort.SliceStable(ix.entries, func(i, j int) bool {
		return ix.entries[i].ID < ix.entries[j].ID
	})
	for i := 1; i < len(ix.entries); i++ {
		if ix.entries[i].ID == ix.entries[i-1].ID {
			return nil, corrupt("", "record id %d appears more than once", ix.entries[i].ID)
		}
	}
	return ix, nil
}

// Lookup returns the entry for id.
func (ix *Index) Lookup(id record.ID) (Entry, bool) {
	if id < 0 {
		return Entry{}, false
	}
	if ix.dense {
		if int(id) >= len(ix.entries) {
			return Entry{}, false
		}
		return ix.entries[id], true
	}
	i := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].ID >= id
	})
	if i < len(ix.entries) && ix.entries[i].ID == id {
		return ix.entries[i], true
	}
	return Entry{}, false
}

// OffsetOf returns the body offset of id, or an UNKNOWN_RECORD_ID error.
func (ix *Index) OffsetOf(id record.ID) (int64, error) {
	e, ok := ix.Lookup(id)
	if !ok {
		return 0, NewUnknownRecordError("", id)
	}
	return e.Offset, nil
}

// LengthOf returns the encoded length of id, or an UNKNOWN_RECORD_ID error.
func (ix *Index) LengthOf(id record.ID) (int64, error) {
	e, ok := ix.Lookup(id)
	if !ok {
		return 0, NewUnknownRecordError("", id)
	}
	return e.Length, nil
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Dense reports whether lookups are direct array accesses.
func (ix *Index) Dense() bool {
	return ix.dense
}

// IDs returns all indexed IDs in ascending order.
func (ix *Index) IDs() []record.ID {
	ids := make([]record.ID, len(ix.entries))
	for i, e := range ix.entries {
		ids[i] = e.ID
	}
	return ids
}

// Entries returns a copy of the entries in file order.
func (ix *Index) Entries() []Entry {
	out := slices.Clone(ix.entries)
	if !ix.dense {
		sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	}
	return out
}

// BodySize returns the number of body bytes covered by the index.
func (ix *Index) BodySize() int64 {
	var n int64
	for _, e := range ix.entries {
		n += e.Length
	}
	return n
}

// Build scans a data file of the given size and builds its index.
//
// The scan reads one record header at a time, derives the record's length
// from the declared field count and array element counts, and skips to the
// next record. It fails with CORRUPT_INDEX when a record would extend past
// the end of the file, when the body holds more or fewer records than the
// header declares, or when a record ID repeats.
func Build(r io.ReaderAt, size int64) (*Index, Header, error) {
	return build("", r, size)
}

func build(path string, r io.ReaderAt, size int64) (*Index, Header, error) {
	if size < HeaderSize {
		return nil, Header{}, corrupt(path, "file is %d bytes, shorter than the %d-byte header", size, HeaderSize)
	}
	hb := make([]byte, HeaderSize)
	if _, err := r.ReadAt(hb, 0); err != nil {
		return nil, Header{}, fmt.Errorf("read header: %w", err)
	}
	hdr, err := ParseHeader(path, hb)
	if err != nil {
		return nil, Header{}, err
	}

	bodySize := size - HeaderSize
	br := bufio.NewReaderSize(io.NewSectionReader(r, HeaderSize, bodySize), 64*1024)
	hint := int64(hdr.Count)
	if limit := bodySize/minRecordLength + 1; hint > limit {
		hint = limit
	}
	entries := make([]Entry, 0, hint)
	rh := make([]byte, RecordHeaderSize)
	cb := make([]byte, countSize)

	var off int64
	for off < bodySize {
		if uint32(len(entries)) == hdr.Count {
			return nil, hdr, corrupt(path,
				"header declares %d records but the body continues at offset %d", hdr.Count, off)
		}
		if bodySize-off < RecordHeaderSize {
			return nil, hdr, corrupt(path,
				"record header at offset %d overruns the end of the file", off)
		}
		if _, err := io.ReadFull(br, rh); err != nil {
			return nil, hdr, fmt.Errorf("read record header at %d: %w", off, err)
		}
		h := parseRecordHeader(rh)
		if !h.plausible() {
			return nil, hdr, corrupt(path,
				"implausible record header at offset %d (id=%d fields=%d arrays=%d)", off, h.id, h.nfields, h.narrays)
		}

		pos := off + RecordHeaderSize + int64(h.nfields)*fieldSize
		if pos > bodySize {
			return nil, hdr, corrupt(path, "record %d at offset %d overruns the end of the file", h.id, off)
		}
		if err := discard(br, int64(h.nfields)*fieldSize); err != nil {
			return nil, hdr, err
		}
		for i := 0; i < h.narrays; i++ {
			if pos+countSize > bodySize {
				return nil, hdr, corrupt(path, "record %d at offset %d overruns the end of the file", h.id, off)
			}
			if _, err := io.ReadFull(br, cb); err != nil {
				return nil, hdr, fmt.Errorf("read array count at %d: %w", pos, err)
			}
			n := int64(binary.LittleEndian.Uint32(cb))
			pos += countSize + n*pointSize
			if pos > bodySize {
				return nil, hdr, corrupt(path,
					"record %d at offset %d declares %d points in array %d, past the end of the file", h.id, off, n, i)
			}
			if err := discard(br, n*pointSize); err != nil {
				return nil, hdr, err
			}
		}

		entries = append(entries, Entry{ID: h.id, Offset: off, Length: pos - off})
		off = pos
	}

	if uint32(len(entries)) != hdr.Count {
		return nil, hdr, corrupt(path, "header declares %d records, found %d", hdr.Count, len(entries))
	}

	ix, err := NewIndex(entries)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Path = path
		}
		return nil, hdr, err
	}
	return ix, hdr, nil
}

func discard(br *bufio.Reader, n int64) error {
	for n > 0 {
		step := n
		if step > 1<<30 {
			step = 1 << 30
		}
		if _, err := br.Discard(int(step)); err != nil {
			return fmt.Errorf("skip record payload: %w", err)
		}
		n -= step
	}
	return nil
}
