package layout

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"
)

// Validation error codes.
const (
	CodeUnknownPanel   = "L101" // link names a panel that is not declared
	CodeScopeMismatch  = "L102" // link member bound to another scope kind
	CodeNotWritable    = "L103" // link member cannot write the focus
	CodeSelfLink       = "L104" // panel linked to itself or listed twice
	CodeSharedSpoke    = "L105" // spoke under more than one hub
	CodeHubIsSpoke     = "L106" // a hub is also some link's spoke
	CodeLinkCycle      = "L107" // panel reachable from itself through links
	CodeKindScope      = "L108" // panel kind cannot bind to its scope kind
	CodeSourceForScope = "L109" // source not produced for the panel's scope
)

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Code    string
	Panel   string
	Message string
	Pos     token.Pos
}

func (e ValidationError) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	fmt.Fprintf(&b, "%s %s", e.Code, e.Message)
	return b.String()
}

// Validate checks panel bindings and the link graph. It returns every problem
// found, in a stable order; an empty result means the layout can be bound.
func (l *Layout) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, l.validatePanels()...)
	errs = append(errs, l.validateLinks()...)
	errs = append(errs, l.validateCycles()...)
	return errs
}

func (l *Layout) validatePanels() []ValidationError {
	var errs []ValidationError
	for _, p := range l.Panels {
		if !p.Kind.Accepts(p.Scope) {
			errs = append(errs, ValidationError{
				Code:    CodeKindScope,
				Panel:   p.Name,
				Message: fmt.Sprintf("panel %q: %s cannot bind to %s", p.Name, p.Kind, p.Scope),
				Pos:     p.Pos,
			})
		}
		for _, src := range p.Sources {
			if (src == SourceBars || src == SourceChromatograms) && !p.Scope.Alignment() {
				errs = append(errs, ValidationError{
					Code:    CodeSourceForScope,
					Panel:   p.Name,
					Message: fmt.Sprintf("panel %q: source %s exists only for alignments", p.Name, src),
					Pos:     p.Pos,
				})
			}
		}
	}
	return errs
}

func (l *Layout) validateLinks() []ValidationError {
	var errs []ValidationError
	hubs := make(map[string]bool)
	for _, link := range l.Links {
		hubs[link.Hub] = true
	}
	owner := make(map[string]string) // spoke → hub

	for _, link := range l.Links {
		hub, ok := l.Panel(link.Hub)
		if !ok {
			errs = append(errs, ValidationError{
				Code:    CodeUnknownPanel,
				Panel:   link.Hub,
				Message: fmt.Sprintf("link hub %q is not a declared panel", link.Hub),
				Pos:     link.Pos,
			})
			continue
		}
		if !hub.CanWrite() {
			errs = append(errs, ValidationError{
				Code:    CodeNotWritable,
				Panel:   hub.Name,
				Message: fmt.Sprintf("link hub %q (%s) does not write the focus", hub.Name, hub.Kind),
				Pos:     link.Pos,
			})
		}

		seen := make(map[string]bool)
		for _, name := range link.Spokes {
			if name == link.Hub || seen[name] {
				errs = append(errs, ValidationError{
					Code:    CodeSelfLink,
					Panel:   name,
					Message: fmt.Sprintf("panel %q appears twice in the link of %q", name, link.Hub),
					Pos:     link.Pos,
				})
				continue
			}
			seen[name] = true

			spoke, ok := l.Panel(name)
			if !ok {
				errs = append(errs, ValidationError{
					Code:    CodeUnknownPanel,
					Panel:   name,
					Message: fmt.Sprintf("link spoke %q is not a declared panel", name),
					Pos:     link.Pos,
				})
				continue
			}
			if spoke.Scope != hub.Scope {
				errs = append(errs, ValidationError{
					Code:    CodeScopeMismatch,
					Panel:   name,
					Message: fmt.Sprintf("spoke %q is bound to %s, hub %q to %s", name, spoke.Scope, hub.Name, hub.Scope),
					Pos:     link.Pos,
				})
			}
			if !spoke.CanWrite() {
				errs = append(errs, ValidationError{
					Code:    CodeNotWritable,
					Panel:   name,
					Message: fmt.Sprintf("link spoke %q (%s) does not write the focus", name, spoke.Kind),
					Pos:     link.Pos,
				})
			}
			if prev, dup := owner[name]; dup && prev != link.Hub {
				errs = append(errs, ValidationError{
					Code:    CodeSharedSpoke,
					Panel:   name,
					Message: fmt.Sprintf("spoke %q is linked under both %q and %q", name, prev, link.Hub),
					Pos:     link.Pos,
				})
			} else {
				owner[name] = link.Hub
			}
			if hubs[name] {
				errs = append(errs, ValidationError{
					Code:    CodeHubIsSpoke,
					Panel:   name,
					Message: fmt.Sprintf("panel %q is a hub and also a spoke of %q", name, link.Hub),
					Pos:     link.Pos,
				})
			}
		}
	}
	return errs
}

// linkGraph maps a hub to the panels it links to. Self links are left out;
// they are reported as CodeSelfLink.
type linkGraph map[string][]string

func (l *Layout) graph() linkGraph {
	g := make(linkGraph)
	for _, link := range l.Links {
		if g[link.Hub] == nil {
			g[link.Hub] = []string{}
		}
		for _, s := range link.Spokes {
			if s != link.Hub {
				g[link.Hub] = append(g[link.Hub], s)
			}
		}
	}
	return g
}

func (l *Layout) validateCycles() []ValidationError {
	g := l.graph()
	var errs []ValidationError
	for _, scc := range tarjanSCC(g) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], g) {
			continue
		}
		path := cyclePath(scc, g)
		errs = append(errs, ValidationError{
			Code:    CodeLinkCycle,
			Panel:   path[0],
			Message: "link cycle: " + strings.Join(path, " → "),
		})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Panel < errs[j].Panel })
	return errs
}

func hasSelfLoop(node string, g linkGraph) bool {
	for _, n := range g[node] {
		if n == node {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of g. Nodes are
// visited in sorted order so results do not depend on map iteration.
func tarjanSCC(g linkGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its first member back to it.
func cyclePath(scc []string, g linkGraph) []string {
	if len(scc) == 1 {
		return []string{scc[0], scc[0]}
	}
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		var next string
		for _, n := range g[current] {
			if members[n] && (!visited[n] || n == start) {
				next = n
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
