package resultstore

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/spotview/internal/record"
)

// Paths locates the data files of one result. Empty paths are absent stores.
type Paths struct {
	Spectra       string
	Chromatograms string // alignment results only
	Bars          string // alignment results only
	Drift         string
	Links         map[record.ID][]record.ID // drift parent → masters
}

// ResultSet holds every open store of one analysed sample or alignment
// result. Stores that the result does not have are nil.
type ResultSet struct {
	Spectra       *Store
	Chromatograms *Store
	Bars          *Store
	Drift         *DriftStore

	closeOnce sync.Once
	closeErr  error
}

// OpenSample opens the stores of an analysed sample. Either every store
// opens or none stays open.
func OpenSample(p Paths, opts ...Option) (*ResultSet, error) {
	rs := &ResultSet{}
	var err error
	if rs.Spectra, err = Open(p.Spectra, opts...); err != nil {
		return nil, err
	}
	if p.Drift != "" {
		if rs.Drift, err = openDrift(p, opts); err != nil {
			rs.Close()
			return nil, err
		}
	}
	return rs, nil
}

// OpenAlignment opens the stores of an alignment result in parallel. Either
// every store opens or none stays open; the first error is returned.
func OpenAlignment(ctx context.Context, p Paths, opts ...Option) (*ResultSet, error) {
	rs := &ResultSet{}
	g, ctx := errgroup.WithContext(ctx)

	open := func(path string, dst **Store) {
		if path == "" {
			return
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := Open(path, opts...)
			if err != nil {
				return err
			}
			*dst = s
			return nil
		})
	}
	open(p.Spectra, &rs.Spectra)
	open(p.Chromatograms, &rs.Chromatograms)
	open(p.Bars, &rs.Bars)
	if p.Drift != "" {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := openDrift(p, opts)
			if err != nil {
				return err
			}
			rs.Drift = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		rs.Close()
		return nil, err
	}
	return rs, nil
}

func openDrift(p Paths, opts []Option) (*DriftStore, error) {
	m, err := NewMasterMap(p.Links)
	if err != nil {
		return nil, err
	}
	return OpenDrift(p.Drift, m, opts...)
}

// Primary returns the store that resolves the primary focus scope.
func (rs *ResultSet) Primary() *Store {
	return rs.Spectra
}

// Close closes every open store. Safe to call twice.
func (rs *ResultSet) Close() error {
	rs.closeOnce.Do(func() {
		var errs []error
		for _, s := range []*Store{rs.Spectra, rs.Chromatograms, rs.Bars} {
			if s != nil {
				errs = append(errs, s.Close())
			}
		}
		if rs.Drift != nil {
			errs = append(errs, rs.Drift.Close())
		}
		rs.closeErr = errors.Join(errs...)
	})
	return rs.closeErr
}
