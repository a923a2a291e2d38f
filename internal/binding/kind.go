package binding

import (
	"fmt"

	"github.com/roach88/spotview/internal/focus"
)

// PanelKind identifies what a panel shows. It is fixed when the binding is
// created.
type PanelKind uint8

const (
	// SpotPlot is the 2-D spot map (retention time × m/z).
	SpotPlot PanelKind = iota + 1
	// SpotTable is the tabular spot browser.
	SpotTable
	// DriftPlot is the mobility sub-view of the focused spot.
	DriftPlot
	// BarChart shows per-sample intensities of the focused alignment spot.
	BarChart
	// SpectrumView shows the focused spot's spectrum.
	SpectrumView
	// ChromatogramView shows the focused alignment spot's chromatogram.
	ChromatogramView
)

type kindInfo struct {
	name        string
	interactive bool
	secondary   bool // binds to a secondary (mobility) scope
	alignment   bool // only meaningful for alignment results
}

var kinds = map[PanelKind]kindInfo{
	SpotPlot:         {name: "spot-plot", interactive: true},
	SpotTable:        {name: "spot-table", interactive: true},
	DriftPlot:        {name: "drift-plot", interactive: true, secondary: true},
	BarChart:         {name: "bar-chart", alignment: true},
	SpectrumView:     {name: "spectrum"},
	ChromatogramView: {name: "chromatogram", alignment: true},
}

func (k PanelKind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("panel(%d)", uint8(k))
}

// ParsePanelKind parses names like "spot-table".
func ParsePanelKind(s string) (PanelKind, error) {
	for k, info := range kinds {
		if info.name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown panel kind %q", s)
}

// PanelKinds returns every kind in declaration order.
func PanelKinds() []PanelKind {
	return []PanelKind{SpotPlot, SpotTable, DriftPlot, BarChart, SpectrumView, ChromatogramView}
}

// Interactive reports whether panels of this kind are direct gesture
// surfaces that write the focus.
func (k PanelKind) Interactive() bool {
	return kinds[k].interactive
}

// Accepts reports whether a panel of kind k can bind to a scope of kind s.
func (k PanelKind) Accepts(s focus.ScopeKind) bool {
	info, ok := kinds[k]
	if !ok {
		return false
	}
	if info.secondary != s.Secondary() {
		return false
	}
	return !info.alignment || s.Alignment()
}
