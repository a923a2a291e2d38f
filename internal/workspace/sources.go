package workspace

import (
	"fmt"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/layout"
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/resultstore"
)

// sourceFor maps a layout source onto the stores of set. ok is false when
// the result does not have that store.
//
// Primary scopes are keyed by spot ID, so the drift source lists every
// mobility record under the focused spot. Secondary scopes are keyed by
// master ID: the drift source is the record itself and the other sources
// are read for the master's parent spot.
func sourceFor(set *resultstore.ResultSet, kind focus.ScopeKind, src layout.Source) (binding.Source, bool, error) {
	name := string(src)
	var store *resultstore.Store
	switch src {
	case layout.SourceSpectra:
		store = set.Spectra
	case layout.SourceChromatograms:
		store = set.Chromatograms
	case layout.SourceBars:
		store = set.Bars
	case layout.SourceDrift:
		if set.Drift == nil {
			return nil, false, nil
		}
		if kind.Secondary() {
			return binding.StoreSource(name, set.Drift), true, nil
		}
		return binding.DriftSource(name, set.Drift), true, nil
	default:
		return nil, false, fmt.Errorf("unknown source %q", src)
	}
	if store == nil {
		return nil, false, nil
	}
	if kind.Secondary() {
		if set.Drift == nil {
			return nil, false, nil
		}
		return parentSource{name: name, drift: set.Drift, f: store}, true, nil
	}
	return binding.StoreSource(name, store), true, nil
}

// parentSource fetches from f the parent spot of the focused master.
type parentSource struct {
	name  string
	drift *resultstore.DriftStore
	f     binding.Fetcher
}

func (s parentSource) Name() string { return s.name }

func (s parentSource) Records(master record.ID) ([]record.Record, error) {
	parent, ok := s.drift.MasterMap().Parent(master)
	if !ok {
		return nil, nil
	}
	r, err := s.f.Fetch(parent)
	if err != nil {
		return nil, err
	}
	return []record.Record{r}, nil
}
