package tui

import (
	"context"
	"sync"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/layout"
	"github.com/roach88/spotview/internal/record"
)

// spotRow is one spot as the table and the map show it.
type spotRow struct {
	ID     record.ID
	RT     float64
	MZ     float64
	Height float64
	Peaks  int
}

func newSpotRow(r record.Record) spotRow {
	row := spotRow{ID: r.ID}
	if len(r.Fields) >= 3 {
		row.RT, row.MZ, row.Height = r.Fields[0], r.Fields[1], r.Fields[2]
	}
	if len(r.Arrays) > 0 {
		row.Peaks = len(r.Arrays[0])
	}
	return row
}

// panel is the state every viewer panel shares: its binding and the last
// focused ID it rendered.
type panel struct {
	mu      sync.Mutex
	name    string
	b       *binding.Binding
	focused record.ID
	renders int
}

func (p *panel) attach(b *binding.Binding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.b = b
}

func (p *panel) bound() *binding.Binding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b
}

// Focused returns the ID of the last render.
func (p *panel) Focused() record.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

// Renders returns the number of renders.
func (p *panel) Renders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}

// tablePanel backs the spot table. Render moves the cursor to the focused
// row; like a widget's selection signal, moving the cursor re-asserts the
// row as a gesture.
type tablePanel struct {
	panel
	rowOf  map[record.ID]int
	cursor int
	moved  bool
}

func newTablePanel(name string) *tablePanel {
	return &tablePanel{panel: panel{name: name, focused: record.None}, cursor: -1}
}

func (p *tablePanel) setRows(rows []spotRow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rowOf = make(map[record.ID]int, len(rows))
	for i, r := range rows {
		p.rowOf[r.ID] = i
	}
	if i, ok := p.rowOf[p.focused]; ok {
		p.cursor, p.moved = i, true
	}
}

// Render implements binding.Panel.
func (p *tablePanel) Render(ctx context.Context, v binding.View) error {
	p.mu.Lock()
	p.focused = v.Focused
	p.renders++
	row, ok := p.rowOf[v.Focused]
	if ok && row != p.cursor {
		p.cursor, p.moved = row, true
	}
	b := p.b
	p.mu.Unlock()

	if ok && b != nil {
		if _, err := b.Gesture(ctx, v.Focused); err != nil {
			return err
		}
	}
	return nil
}

// takeCursor returns the cursor row set by the last renders, once.
func (p *tablePanel) takeCursor() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.moved {
		return 0, false
	}
	p.moved = false
	return p.cursor, true
}

// plotPanel backs the spot map.
type plotPanel struct {
	panel
}

func newPlotPanel(name string) *plotPanel {
	return &plotPanel{panel: panel{name: name, focused: record.None}}
}

// Render implements binding.Panel.
func (p *plotPanel) Render(ctx context.Context, v binding.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = v.Focused
	p.renders++
	return nil
}

// recordPanel keeps the records of the last render: the spectrum panel on
// the primary scope and the mobility panel on the secondary one.
type recordPanel struct {
	panel
	records map[string][]record.Record
}

func newRecordPanel(name string) *recordPanel {
	return &recordPanel{panel: panel{name: name, focused: record.None}}
}

// Render implements binding.Panel.
func (p *recordPanel) Render(ctx context.Context, v binding.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = v.Focused
	p.renders++
	p.records = v.Records
	return nil
}

// Records returns the records of source from the last render.
func (p *recordPanel) Records(source layout.Source) []record.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.records[string(source)]
}
