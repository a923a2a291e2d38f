package tui

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/layout"
	"github.com/roach88/spotview/internal/record"
	"github.com/roach88/spotview/internal/resultstore"
	"github.com/roach88/spotview/internal/workspace"
)

// Viewer owns the panels of one open sample. Install Factory on the
// workspace with workspace.WithLayout, then call Open.
type Viewer struct {
	w      *workspace.Workspace
	result *workspace.Result
	rows   []spotRow
	byRT   []int // row indices in retention time order

	table    *tablePanel
	plot     *plotPanel
	spectrum *recordPanel
	mobility *recordPanel
}

// NewViewer returns a viewer with no panels yet.
func NewViewer() *Viewer {
	return &Viewer{}
}

// Factory builds the viewer panel for a layout panel on a sample scope.
// Alignment scopes and second panels of a kind stay unbound.
func (v *Viewer) Factory(p layout.Panel, scope focus.Scope) binding.Panel {
	if scope.Kind.Alignment() {
		return nil
	}
	switch p.Kind {
	case binding.SpotTable:
		if v.table == nil {
			v.table = newTablePanel(p.Name)
			return v.table
		}
	case binding.SpotPlot:
		if v.plot == nil {
			v.plot = newPlotPanel(p.Name)
			return v.plot
		}
	case binding.SpectrumView:
		if v.spectrum == nil {
			v.spectrum = newRecordPanel(p.Name)
			return v.spectrum
		}
	case binding.DriftPlot:
		if v.mobility == nil {
			v.mobility = newRecordPanel(p.Name)
			return v.mobility
		}
	}
	return nil
}

// Open opens sample on w, attaches the panels to their bindings and loads
// the spot list. w's dispatch loop must be running.
func (v *Viewer) Open(ctx context.Context, w *workspace.Workspace, sample int32) error {
	if v.result != nil {
		return fmt.Errorf("viewer already shows %s", v.result.Owner)
	}
	v.w = w

	var store *resultstore.Store
	err := w.Do(ctx, func(ctx context.Context) error {
		r, err := w.OpenSample(ctx, sample)
		if err != nil {
			return err
		}
		v.result = r
		for _, b := range r.Bindings() {
			if p := v.panelNamed(b.Name()); p != nil {
				p.attach(b)
			}
		}
		store, _ = r.Store(r.Primary())
		return nil
	})
	if err != nil {
		return err
	}
	if v.table == nil || v.plot == nil {
		return fmt.Errorf("layout has no spot-table or spot-plot panel on sample/primary")
	}

	rows, err := loadRows(store)
	if err != nil {
		return err
	}
	v.rows = rows
	v.byRT = make([]int, len(rows))
	for i := range rows {
		v.byRT[i] = i
	}
	sort.SliceStable(v.byRT, func(i, j int) bool {
		return rows[v.byRT[i]].RT < rows[v.byRT[j]].RT
	})
	v.table.setRows(rows)
	return nil
}

func (v *Viewer) panelNamed(name string) *panel {
	switch {
	case v.table != nil && v.table.name == name:
		return &v.table.panel
	case v.plot != nil && v.plot.name == name:
		return &v.plot.panel
	case v.spectrum != nil && v.spectrum.name == name:
		return &v.spectrum.panel
	case v.mobility != nil && v.mobility.name == name:
		return &v.mobility.panel
	}
	return nil
}

func loadRows(store *resultstore.Store) ([]spotRow, error) {
	if store == nil {
		return nil, fmt.Errorf("sample has no spectra store")
	}
	ids := store.IDs()
	rows := make([]spotRow, 0, len(ids))
	for _, id := range ids {
		r, err := store.Fetch(id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, newSpotRow(r))
	}
	return rows, nil
}

// gesture selects id on p's binding through the dispatch loop. It returns
// the number of echoes the table binding has swallowed so far.
func (v *Viewer) gesture(ctx context.Context, p *panel, id record.ID) (echoes int, err error) {
	b := p.bound()
	if b == nil {
		return 0, fmt.Errorf("%s is not bound", p.name)
	}
	err = v.w.Do(ctx, func(ctx context.Context) error {
		_, gerr := b.Gesture(ctx, id)
		if t := v.table.bound(); t != nil {
			echoes = t.Stats().Echoes
		}
		return gerr
	})
	return echoes, err
}

// plotStep returns the spot delta places from the plot's focus in retention
// time order.
func (v *Viewer) plotStep(delta int) (record.ID, bool) {
	if len(v.byRT) == 0 {
		return record.None, false
	}
	focused := v.plot.Focused()
	pos := -1
	for i, row := range v.byRT {
		if v.rows[row].ID == focused {
			pos = i
			break
		}
	}
	switch {
	case pos < 0 && delta > 0:
		pos = 0
	case pos < 0:
		pos = len(v.byRT) - 1
	default:
		pos += delta
	}
	if pos < 0 || pos >= len(v.byRT) {
		return record.None, false
	}
	return v.rows[v.byRT[pos]].ID, true
}

// mobilityStep returns the drift master delta places from the mobility
// panel's focus among the masters of the focused spot.
func (v *Viewer) mobilityStep(delta int) (record.ID, bool) {
	if v.spectrum == nil || v.mobility == nil {
		return record.None, false
	}
	masters := v.spectrum.Records(layout.SourceDrift)
	if len(masters) == 0 {
		return record.None, false
	}
	focused := v.mobility.Focused()
	pos := -1
	for i, m := range masters {
		if m.ID == focused {
			pos = i
			break
		}
	}
	if pos < 0 {
		return masters[0].ID, true
	}
	pos = (pos + delta + len(masters)) % len(masters)
	return masters[pos].ID, true
}
