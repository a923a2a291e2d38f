package datafile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/roach88/spotview/internal/record"
)

// Writer produces a data file. It holds an exclusive lock for its whole
// lifetime, so a producer rerun fails fast with FILE_LOCKED while a viewer
// still has the previous file open.
//
// The header's record count is patched on Close, and the index sidecar is
// written next to the data file.
type Writer struct {
	f       *os.File
	buf     *bufio.Writer
	path    string
	kind    record.Kind
	entries []Entry
	off     int64
	seen    map[record.ID]bool
	closed  bool
	noIndex bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithoutSidecar suppresses the .idx sidecar.
func WithoutSidecar() WriterOption {
	return func(w *Writer) {
		w.noIndex = true
	}
}

// Create creates (or wholesale rewrites) the data file at path.
func Create(path string, kind record.Kind, opts ...WriterOption) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create data file: %w", err)
	}
	if err := Lock(f, path, true); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate data file: %w", err)
	}
	// A stale sidecar must not outlive the data it described.
	if err := os.Remove(SidecarPath(path)); err != nil && !os.IsNotExist(err) {
		f.Close()
		return nil, fmt.Errorf("remove stale sidecar: %w", err)
	}

	w := &Writer{
		f:    f,
		buf:  bufio.NewWriterSize(f, 64*1024),
		path: path,
		kind: kind,
		seen: make(map[record.ID]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	hdr, _ := Header{Version: Version, Kind: kind}.MarshalBinary()
	if _, err := w.buf.Write(hdr); err != nil {
		w.Abort()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return w, nil
}

// Append writes one record and returns its body offset.
func (w *Writer) Append(r record.Record) (int64, error) {
	if w.closed {
		return 0, NewClosedError(w.path)
	}
	if r.Kind != w.kind {
		return 0, fmt.Errorf("record %d is a %s, file holds %s records", r.ID, r.Kind, w.kind)
	}
	if w.seen[r.ID] {
		return 0, fmt.Errorf("record id %d already written", r.ID)
	}
	b, err := EncodeRecord(r)
	if err != nil {
		return 0, err
	}
	if _, err := w.buf.Write(b); err != nil {
		return 0, fmt.Errorf("write record %d: %w", r.ID, err)
	}

	off := w.off
	w.entries = append(w.entries, Entry{ID: r.ID, Offset: off, Length: int64(len(b))})
	w.seen[r.ID] = true
	w.off += int64(len(b))
	return off, nil
}

// Len returns the number of records appended so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// Close flushes the body, patches the record count, writes the sidecar and
// releases the file. Safe to call twice.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.f.Close()

	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush data file: %w", err)
	}
	if err := patchCount(w.f, uint32(len(w.entries))); err != nil {
		return err
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync data file: %w", err)
	}
	if w.noIndex {
		return nil
	}

	ix, err := NewIndex(w.entries)
	if err != nil {
		return err
	}
	hdr := Header{Version: Version, Kind: w.kind, Count: uint32(len(w.entries))}
	return WriteSidecar(w.path, hdr, HeaderSize+w.off, ix)
}

// Abort discards the partially written file.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.f.Close()
	os.Remove(w.path)
}

func patchCount(f io.WriterAt, count uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], count)
	if _, err := f.WriteAt(b[:], 8); err != nil {
		return fmt.Errorf("patch record count: %w", err)
	}
	return nil
}

// WriteFile writes recs to a new data file at path and returns its index.
func WriteFile(path string, kind record.Kind, recs []record.Record, opts ...WriterOption) (*Index, error) {
	w, err := Create(path, kind, opts...)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if _, err := w.Append(r); err != nil {
			w.Abort()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return NewIndex(w.entries)
}

// AppendRecord appends one record to an existing data file and returns its
// body offset. The sidecar is removed, so the next open rebuilds the whole
// index; handles opened before the append must be closed and reopened to see
// the new record.
func AppendRecord(path string, r record.Record) (int64, error) {
	f, err := OpenFile(path, true)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	ix, hdr, err := ScanFile(f, path)
	if err != nil {
		return 0, err
	}
	if r.Kind != hdr.Kind {
		return 0, fmt.Errorf("record %d is a %s, file holds %s records", r.ID, r.Kind, hdr.Kind)
	}
	if _, dup := ix.Lookup(r.ID); dup {
		return 0, fmt.Errorf("record id %d already present in %s", r.ID, path)
	}
	b, err := EncodeRecord(r)
	if err != nil {
		return 0, err
	}

	off := ix.BodySize()
	if _, err := f.WriteAt(b, HeaderSize+off); err != nil {
		return 0, fmt.Errorf("append record %d: %w", r.ID, err)
	}
	if err := patchCount(f, hdr.Count+1); err != nil {
		return 0, err
	}
	if err := os.Remove(SidecarPath(path)); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("remove stale sidecar: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}
	return off, nil
}
