package resultstore

import (
	"fmt"
	"slices"

	"github.com/roach88/spotview/internal/datafile"
	"github.com/roach88/spotview/internal/record"
)

// MasterMap resolves a parent spot to the master IDs of its drift
// sub-records. Masters keep the order they were linked in.
type MasterMap struct {
	masters  map[record.ID][]record.ID
	parentOf map[record.ID]record.ID
}

// NewMasterMap builds a MasterMap from parent → masters links. A master may
// belong to only one parent.
func NewMasterMap(links map[record.ID][]record.ID) (*MasterMap, error) {
	m := &MasterMap{
		masters:  make(map[record.ID][]record.ID, len(links)),
		parentOf: make(map[record.ID]record.ID),
	}
	for parent, masters := range links {
		if !parent.Valid() {
			return nil, fmt.Errorf("invalid parent id %d", parent)
		}
		for _, master := range masters {
			if !master.Valid() {
				return nil, fmt.Errorf("parent %d: invalid master id %d", parent, master)
			}
			if other, dup := m.parentOf[master]; dup {
				return nil, fmt.Errorf("master %d linked to both parent %d and parent %d", master, other, parent)
			}
			m.parentOf[master] = parent
		}
		m.masters[parent] = slices.Clone(masters)
	}
	return m, nil
}

// Masters returns the master IDs linked to parent, or nil.
func (m *MasterMap) Masters(parent record.ID) []record.ID {
	return slices.Clone(m.masters[parent])
}

// Parent returns the parent a master is linked to.
func (m *MasterMap) Parent(master record.ID) (record.ID, bool) {
	p, ok := m.parentOf[master]
	return p, ok
}

// Parents returns every parent with at least one link, ascending.
func (m *MasterMap) Parents() []record.ID {
	out := make([]record.ID, 0, len(m.masters))
	for p := range m.masters {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Links returns a copy of the parent → masters table.
func (m *MasterMap) Links() map[record.ID][]record.ID {
	out := make(map[record.ID][]record.ID, len(m.masters))
	for p, ms := range m.masters {
		out[p] = slices.Clone(ms)
	}
	return out
}

// DriftStore is the secondary-dimension store: drift sub-records keyed by
// master ID, reached from a parent spot through a MasterMap.
//
// A master that is linked but has no record in the file is unmaterialized:
// Lookup reports it as absent and FetchParent skips it. Nothing is ever
// synthesized for it.
type DriftStore struct {
	store   *Store
	masters *MasterMap
}

// NewDriftStore wraps an open store. The DriftStore takes ownership of s.
func NewDriftStore(s *Store, m *MasterMap) *DriftStore {
	if m == nil {
		m, _ = NewMasterMap(nil)
	}
	return &DriftStore{store: s, masters: m}
}

// OpenDrift opens the drift data file at path.
func OpenDrift(path string, m *MasterMap, opts ...Option) (*DriftStore, error) {
	s, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return NewDriftStore(s, m), nil
}

// Masters returns the master IDs linked to parent.
func (d *DriftStore) Masters(parent record.ID) []record.ID {
	return d.masters.Masters(parent)
}

// MasterMap returns the parent → master mapping.
func (d *DriftStore) MasterMap() *MasterMap {
	return d.masters
}

// Lookup returns the drift record for master. ok is false when the master
// has no materialized record; err is set only for real failures.
func (d *DriftStore) Lookup(master record.ID) (rec record.Record, ok bool, err error) {
	rec, err = d.store.Fetch(master)
	if datafile.IsUnknownRecord(err) {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, err
	}
	return rec, true, nil
}

// FetchParent returns the materialized drift records of parent in link
// order. A parent without links, or with no materialized masters, yields an
// empty slice.
func (d *DriftStore) FetchParent(parent record.ID) ([]record.Record, error) {
	masters := d.masters.Masters(parent)
	out := make([]record.Record, 0, len(masters))
	for _, m := range masters {
		rec, ok, err := d.Lookup(m)
		if err != nil {
			return nil, fmt.Errorf("parent %d: %w", parent, err)
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Fetch returns the drift record for master, failing with
// UNKNOWN_RECORD_ID when it is not materialized.
func (d *DriftStore) Fetch(master record.ID) (record.Record, error) {
	return d.store.Fetch(master)
}

// Store returns the underlying store.
func (d *DriftStore) Store() *Store {
	return d.store
}

// Close closes the underlying store.
func (d *DriftStore) Close() error {
	return d.store.Close()
}
