package resultstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/roach88/spotview/internal/datafile"
	"github.com/roach88/spotview/internal/record"
)

// ErrReadOnly is returned by Rewrite on a store opened for shared read.
var ErrReadOnly = errors.New("store is opened read-only")

// Store is an open data file plus its ByteOffsetIndex.
//
// Thread-safety model:
//   - Fetch, FetchRaw and the accessors: safe from any goroutine
//   - Rewrite: serialized against Fetch and Close
//   - Close: safe to call more than once
//
// INVARIANTS:
//   - The index never changes while the store is open
//   - Fetch never returns a record whose ID differs from the requested one
type Store struct {
	mu     sync.RWMutex
	f      *os.File
	closed bool

	path     string
	hdr      datafile.Header
	ix       *datafile.Index
	writable bool
	cache    *lru
	logger   *slog.Logger
}

type options struct {
	readWrite   bool
	cacheSize   int
	skipSidecar bool
	logger      *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithReadWrite opens the file with an exclusive lock so that Rewrite can edit
// records in place.
func WithReadWrite() Option {
	return func(o *options) {
		o.readWrite = true
	}
}

// WithCache keeps up to n decoded records in memory.
func WithCache(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithoutSidecar ignores any .idx sidecar and always scans the file.
func WithoutSidecar() Option {
	return func(o *options) {
		o.skipSidecar = true
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Open opens the data file at path and builds (or loads) its index.
//
// Errors: FILE_NOT_FOUND, FILE_LOCKED (never retried), CORRUPT_INDEX. No
// handle is left open on failure.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := datafile.OpenFile(path, o.readWrite)
	if err != nil {
		return nil, err
	}

	ix, hdr, err := loadIndex(f, path, o)
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &Store{
		f:        f,
		path:     path,
		hdr:      hdr,
		ix:       ix,
		writable: o.readWrite,
		logger:   o.logger,
	}
	if o.cacheSize > 0 {
		s.cache = newLRU(o.cacheSize)
	}

	s.logger.Info("store opened",
		"path", path,
		"kind", hdr.Kind.String(),
		"records", ix.Len(),
		"dense", ix.Dense(),
		"writable", o.readWrite)
	return s, nil
}

func loadIndex(f *os.File, path string, o options) (*datafile.Index, datafile.Header, error) {
	if o.skipSidecar {
		return datafile.ScanFile(f, path)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, datafile.Header{}, err
	}
	hb := make([]byte, datafile.HeaderSize)
	n, err := f.ReadAt(hb, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, datafile.Header{}, fmt.Errorf("read header: %w", err)
	}
	hdr, err := datafile.ParseHeader(path, hb[:n])
	if err != nil {
		return nil, datafile.Header{}, err
	}

	ix, err := datafile.LoadSidecar(path, hdr, info.Size())
	switch {
	case err != nil:
		o.logger.Debug("ignoring index sidecar", "path", path, "error", err)
	case ix != nil:
		o.logger.Debug("index loaded from sidecar", "path", path, "records", ix.Len())
		return ix, hdr, nil
	}
	return datafile.ScanFile(f, path)
}

// Fetch reads and decodes the record with the given ID.
//
// Errors: UNKNOWN_RECORD_ID, TRUNCATED_RECORD, STORE_CLOSED.
func (s *Store) Fetch(id record.ID) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return record.Record{}, datafile.NewClosedError(s.path)
	}
	if s.cache != nil {
		if r, ok := s.cache.get(id); ok {
			return r.Clone(), nil
		}
	}

	b, err := s.readLocked(id)
	if err != nil {
		return record.Record{}, err
	}
	r, _, err := datafile.DecodeRecord(s.path, b)
	if err != nil {
		return record.Record{}, err
	}
	if r.ID != id {
		return record.Record{}, &datafile.Error{
			Code:     datafile.ErrCodeCorruptIndex,
			Message:  fmt.Sprintf("index points record %d at a record with id %d", id, r.ID),
			Path:     s.path,
			RecordID: id,
		}
	}

	if s.cache != nil {
		s.cache.put(id, r.Clone())
	}
	return r, nil
}

// FetchRaw returns the exact on-disk bytes of one record.
func (s *Store) FetchRaw(id record.ID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, datafile.NewClosedError(s.path)
	}
	b, err := s.readLocked(id)
	if err != nil {
		return nil, err
	}
	// Validate declared lengths against what was read.
	if _, _, err := datafile.DecodeRecord(s.path, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) readLocked(id record.ID) ([]byte, error) {
	e, ok := s.ix.Lookup(id)
	if !ok {
		return nil, datafile.NewUnknownRecordError(s.path, id)
	}
	b := make([]byte, e.Length)
	n, err := s.f.ReadAt(b, datafile.HeaderSize+e.Offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read record %d: %w", id, err)
	}
	// A short read is reported by the decoder as TRUNCATED_RECORD.
	return b[:n], nil
}

// Rewrite replaces one record's payload in place. The replacement must
// encode to exactly as many bytes as the record it replaces; anything else
// fails with LENGTH_CHANGED and leaves the file untouched. Length-changing
// edits go through datafile.AppendRecord and a reopen.
func (s *Store) Rewrite(r record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return datafile.NewClosedError(s.path)
	}
	if !s.writable {
		return ErrReadOnly
	}
	if r.Kind != s.hdr.Kind {
		return fmt.Errorf("record %d is a %s, store holds %s records", r.ID, r.Kind, s.hdr.Kind)
	}

	e, ok := s.ix.Lookup(r.ID)
	if !ok {
		return datafile.NewUnknownRecordError(s.path, r.ID)
	}
	b, err := datafile.EncodeRecord(r)
	if err != nil {
		return err
	}
	if int64(len(b)) != e.Length {
		return datafile.NewLengthChangedError(s.path, r.ID, e.Length, int64(len(b)))
	}

	if _, err := s.f.WriteAt(b, datafile.HeaderSize+e.Offset); err != nil {
		return fmt.Errorf("rewrite record %d: %w", r.ID, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}
	if s.cache != nil {
		s.cache.remove(r.ID)
	}
	// The sidecar still describes the same offsets; no need to touch it.
	s.logger.Debug("record rewritten", "path", s.path, "id", r.ID)
	return nil
}

// Close releases the file handle and its lock. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cache = nil
	s.logger.Info("store closed", "path", s.path)
	return s.f.Close()
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Path returns the data file path.
func (s *Store) Path() string { return s.path }

// Kind returns the record kind held by the file.
func (s *Store) Kind() record.Kind { return s.hdr.Kind }

// Header returns the parsed file header.
func (s *Store) Header() datafile.Header { return s.hdr }

// Index returns the store's immutable index.
func (s *Store) Index() *datafile.Index { return s.ix }

// Len returns the number of records.
func (s *Store) Len() int { return s.ix.Len() }

// IDs returns all record IDs in ascending order.
func (s *Store) IDs() []record.ID { return s.ix.IDs() }

// Has reports whether id is in the index.
func (s *Store) Has(id record.ID) bool {
	_, ok := s.ix.Lookup(id)
	return ok
}
