package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/resultstore"
)

// OwnerKind distinguishes sample and alignment owners of drift links.
type OwnerKind string

const (
	OwnerSample    OwnerKind = "sample"
	OwnerAlignment OwnerKind = "alignment"
)

// Sample is one analysed sample's result files.
type Sample struct {
	ID          int32
	Name        string
	SpectraPath string
	DriftPath   string // empty without ion mobility
}

// Alignment is one alignment result's files.
type Alignment struct {
	ID               int32
	Name             string
	SpectraPath      string
	ChromatogramPath string
	BarPath          string
	DriftPath        string
}

// RegisterSample inserts or replaces a sample.
func (p *Project) RegisterSample(ctx context.Context, s Sample) error {
	if s.SpectraPath == "" {
		return fmt.Errorf("register sample %d: spectra path is required", s.ID)
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO samples (id, name, spectra_path, drift_path)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			spectra_path = excluded.spectra_path,
			drift_path = excluded.drift_path
	`, s.ID, s.Name, s.SpectraPath, s.DriftPath)
	if err != nil {
		return fmt.Errorf("register sample %d: %w", s.ID, err)
	}
	return nil
}

// Sample returns a registered sample, or ErrNotFound.
func (p *Project) Sample(ctx context.Context, id int32) (Sample, error) {
	var s Sample
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, spectra_path, drift_path FROM samples WHERE id = ?
	`, id).Scan(&s.ID, &s.Name, &s.SpectraPath, &s.DriftPath)
	if errors.Is(err, sql.ErrNoRows) {
		return Sample{}, fmt.Errorf("sample %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Sample{}, fmt.Errorf("query sample %d: %w", id, err)
	}
	return s, nil
}

// Samples returns all samples ordered by ID.
func (p *Project) Samples(ctx context.Context) ([]Sample, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, spectra_path, drift_path FROM samples ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.Name, &s.SpectraPath, &s.DriftPath); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RegisterAlignment inserts or replaces an alignment result.
func (p *Project) RegisterAlignment(ctx context.Context, a Alignment) error {
	if a.SpectraPath == "" {
		return fmt.Errorf("register alignment %d: spectra path is required", a.ID)
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO alignments (id, name, spectra_path, chromatogram_path, bar_path, drift_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			spectra_path = excluded.spectra_path,
			chromatogram_path = excluded.chromatogram_path,
			bar_path = excluded.bar_path,
			drift_path = excluded.drift_path
	`, a.ID, a.Name, a.SpectraPath, a.ChromatogramPath, a.BarPath, a.DriftPath)
	if err != nil {
		return fmt.Errorf("register alignment %d: %w", a.ID, err)
	}
	return nil
}

// Alignment returns a registered alignment, or ErrNotFound.
func (p *Project) Alignment(ctx context.Context, id int32) (Alignment, error) {
	var a Alignment
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, spectra_path, chromatogram_path, bar_path, drift_path
		FROM alignments WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &a.SpectraPath, &a.ChromatogramPath, &a.BarPath, &a.DriftPath)
	if errors.Is(err, sql.ErrNoRows) {
		return Alignment{}, fmt.Errorf("alignment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Alignment{}, fmt.Errorf("query alignment %d: %w", id, err)
	}
	return a, nil
}

// Alignments returns all alignments ordered by ID.
func (p *Project) Alignments(ctx context.Context) ([]Alignment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, spectra_path, chromatogram_path, bar_path, drift_path
		FROM alignments ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query alignments: %w", err)
	}
	defer rows.Close()

	var out []Alignment
	for rows.Next() {
		var a Alignment
		if err := rows.Scan(&a.ID, &a.Name, &a.SpectraPath, &a.ChromatogramPath, &a.BarPath, &a.DriftPath); err != nil {
			return nil, fmt.Errorf("scan alignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetDriftLinks replaces the parent → master links of one owner.
func (p *Project) SetDriftLinks(ctx context.Context, kind OwnerKind, owner int32, links map[record.ID][]record.ID) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM drift_links WHERE owner_kind = ? AND owner_id = ?
		`, string(kind), owner); err != nil {
			return fmt.Errorf("clear drift links: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO drift_links (owner_kind, owner_id, parent_id, master_id, position)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for parent, masters := range links {
			for pos, m := range masters {
				if _, err := stmt.ExecContext(ctx, string(kind), owner, int32(parent), int32(m), pos); err != nil {
					return fmt.Errorf("insert drift link %d→%d: %w", parent, m, err)
				}
			}
		}
		return nil
	})
}

// DriftLinks returns the parent → master links of one owner, masters in
// link order.
func (p *Project) DriftLinks(ctx context.Context, kind OwnerKind, owner int32) (map[record.ID][]record.ID, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT parent_id, master_id FROM drift_links
		WHERE owner_kind = ? AND owner_id = ?
		ORDER BY parent_id ASC, position ASC
	`, string(kind), owner)
	if err != nil {
		return nil, fmt.Errorf("query drift links: %w", err)
	}
	defer rows.Close()

	links := make(map[record.ID][]record.ID)
	for rows.Next() {
		var parent, master int32
		if err := rows.Scan(&parent, &master); err != nil {
			return nil, fmt.Errorf("scan drift link: %w", err)
		}
		links[record.ID(parent)] = append(links[record.ID(parent)], record.ID(master))
	}
	return links, rows.Err()
}

// SamplePaths returns the files of a sample in the form resultstore opens.
func (p *Project) SamplePaths(ctx context.Context, id int32) (resultstore.Paths, error) {
	s, err := p.Sample(ctx, id)
	if err != nil {
		return resultstore.Paths{}, err
	}
	paths := resultstore.Paths{Spectra: s.SpectraPath, Drift: s.DriftPath}
	if s.DriftPath != "" {
		if paths.Links, err = p.DriftLinks(ctx, OwnerSample, id); err != nil {
			return resultstore.Paths{}, err
		}
	}
	return paths, nil
}

// AlignmentPaths returns the files of an alignment in the form resultstore
// opens.
func (p *Project) AlignmentPaths(ctx context.Context, id int32) (resultstore.Paths, error) {
	a, err := p.Alignment(ctx, id)
	if err != nil {
		return resultstore.Paths{}, err
	}
	paths := resultstore.Paths{
		Spectra:       a.SpectraPath,
		Chromatograms: a.ChromatogramPath,
		Bars:          a.BarPath,
		Drift:         a.DriftPath,
	}
	if a.DriftPath != "" {
		if paths.Links, err = p.DriftLinks(ctx, OwnerAlignment, id); err != nil {
			return resultstore.Paths{}, err
		}
	}
	return paths, nil
}
