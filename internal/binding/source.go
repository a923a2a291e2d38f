package binding

import (
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/resultstore"
)

// Source supplies the records a panel needs for one focused ID.
type Source interface {
	Name() string
	Records(id record.ID) ([]record.Record, error)
}

// Fetcher fetches one record by ID.
type Fetcher interface {
	Fetch(id record.ID) (record.Record, error)
}

type fetchSource struct {
	name string
	f    Fetcher
}

// StoreSource fetches the record with the focused ID from f.
func StoreSource(name string, f Fetcher) Source {
	return fetchSource{name: name, f: f}
}

func (s fetchSource) Name() string { return s.name }

func (s fetchSource) Records(id record.ID) ([]record.Record, error) {
	r, err := s.f.Fetch(id)
	if err != nil {
		return nil, err
	}
	return []record.Record{r}, nil
}

type driftSource struct {
	name string
	d    *resultstore.DriftStore
}

// DriftSource fetches every materialized drift record under the focused
// parent spot.
func DriftSource(name string, d *resultstore.DriftStore) Source {
	return driftSource{name: name, d: d}
}

func (s driftSource) Name() string { return s.name }

func (s driftSource) Records(id record.ID) ([]record.Record, error) {
	return s.d.FetchParent(id)
}
