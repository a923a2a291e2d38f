package layout

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/focus"
)

//go:embed schema.cue
var schemaCUE string

//go:embed default.cue
var defaultCUE []byte

// Source names the store of a result set a panel reads from.
type Source string

const (
	SourceSpectra       Source = "spectra"
	SourceChromatograms Source = "chromatograms"
	SourceBars          Source = "bars"
	SourceDrift         Source = "drift"
)

// Panel is one declared panel.
type Panel struct {
	Name     string
	Kind     binding.PanelKind
	Scope    focus.ScopeKind
	Sources  []Source
	Writable *bool // nil: follow Kind.Interactive
	Pos      token.Pos
}

// CanWrite reports whether the panel's binding may write the focus.
func (p Panel) CanWrite() bool {
	if p.Writable != nil {
		return *p.Writable
	}
	return p.Kind.Interactive()
}

// Link joins a hub panel to its spokes with one guard per spoke.
type Link struct {
	Hub    string
	Spokes []string
	Pos    token.Pos
}

// Layout is a compiled layout.
type Layout struct {
	Panels []Panel // declaration order
	Links  []Link
}

// Panel returns the panel with the given name.
func (l *Layout) Panel(name string) (Panel, bool) {
	for _, p := range l.Panels {
		if p.Name == name {
			return p, true
		}
	}
	return Panel{}, false
}

// PanelsFor returns the panels bound to scope kind k, in declaration order.
func (l *Layout) PanelsFor(k focus.ScopeKind) []Panel {
	var out []Panel
	for _, p := range l.Panels {
		if p.Scope == k {
			out = append(out, p)
		}
	}
	return out
}

// CompileError is a layout error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError turns a CUE error into a *CompileError. Pos is the first
// position any of the reported errors carries, and stays zero when none
// does (schema disjunction failures often have none).
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	ce := &CompileError{Field: "cue", Message: err.Error()}
	errs := errors.Errors(err)
	if len(errs) > 0 {
		ce.Message = errs[0].Error()
	}
	for _, e := range errs {
		if positions := errors.Positions(e); len(positions) > 0 {
			ce.Pos = positions[0]
			break
		}
	}
	return ce
}

// CompileFile compiles the layout file at path.
func CompileFile(path string) (*Layout, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return Compile(path, src)
}

// Default returns the built-in layout.
func Default() *Layout {
	l, err := Compile("default.cue", defaultCUE)
	if err != nil {
		panic(fmt.Sprintf("layout: built-in layout does not compile: %v", err))
	}
	return l
}

// Compile compiles layout source. filename is used in error positions.
// Structural errors come back as *CompileError; call Validate for the link
// graph checks.
func Compile(filename string, src []byte) (*Layout, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("layout schema: %w", err)
	}

	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := schema.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	l := &Layout{}
	var err error
	if l.Panels, err = parsePanels(v.LookupPath(cue.ParsePath("panels"))); err != nil {
		return nil, err
	}
	if l.Links, err = parseLinks(v.LookupPath(cue.ParsePath("links"))); err != nil {
		return nil, err
	}
	return l, nil
}

func parsePanels(v cue.Value) ([]Panel, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "panels", Message: "at least one panel is required"}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var panels []Panel
	for iter.Next() {
		name := iter.Label()
		pv := iter.Value()
		p := Panel{Name: name, Pos: pv.Pos()}

		kindStr, err := pv.LookupPath(cue.ParsePath("kind")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if p.Kind, err = binding.ParsePanelKind(kindStr); err != nil {
			return nil, &CompileError{Field: "panels." + name + ".kind", Message: err.Error(), Pos: pv.Pos()}
		}

		scopeStr, err := pv.LookupPath(cue.ParsePath("scope")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if p.Scope, err = focus.ParseScopeKind(scopeStr); err != nil {
			return nil, &CompileError{Field: "panels." + name + ".scope", Message: err.Error(), Pos: pv.Pos()}
		}

		if sv := pv.LookupPath(cue.ParsePath("sources")); sv.Exists() {
			var names []string
			if err := sv.Decode(&names); err != nil {
				return nil, formatCUEError(err)
			}
			for _, n := range names {
				p.Sources = append(p.Sources, Source(n))
			}
		}
		if len(p.Sources) == 0 {
			p.Sources = DefaultSources(p.Kind)
		}

		if wv := pv.LookupPath(cue.ParsePath("writable")); wv.Exists() && wv.IsConcrete() {
			w, err := wv.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			p.Writable = &w
		}
		panels = append(panels, p)
	}
	if len(panels) == 0 {
		return nil, &CompileError{Field: "panels", Message: "at least one panel is required", Pos: v.Pos()}
	}
	return panels, nil
}

func parseLinks(v cue.Value) ([]Link, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var links []Link
	for iter.Next() {
		lv := iter.Value()
		var l Link
		if l.Hub, err = lv.LookupPath(cue.ParsePath("hub")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if err := lv.LookupPath(cue.ParsePath("spokes")).Decode(&l.Spokes); err != nil {
			return nil, formatCUEError(err)
		}
		l.Pos = lv.Pos()
		links = append(links, l)
	}
	return links, nil
}

// DefaultSources returns the stores a panel of kind k reads when the layout
// does not say.
func DefaultSources(k binding.PanelKind) []Source {
	switch k {
	case binding.DriftPlot:
		return []Source{SourceDrift}
	case binding.BarChart:
		return []Source{SourceBars}
	case binding.ChromatogramView:
		return []Source{SourceChromatograms}
	default:
		return []Source{SourceSpectra}
	}
}

// Names returns the panel names in declaration order.
func (l *Layout) Names() []string {
	out := make([]string, len(l.Panels))
	for i, p := range l.Panels {
		out[i] = p.Name
	}
	return out
}

// LinksFor returns the links whose hub is bound to scope kind k.
func (l *Layout) LinksFor(k focus.ScopeKind) []Link {
	var out []Link
	for _, link := range l.Links {
		if hub, ok := l.Panel(link.Hub); ok && hub.Scope == k {
			out = append(out, Link{Hub: link.Hub, Spokes: slices.Clone(link.Spokes), Pos: link.Pos})
		}
	}
	return out
}
