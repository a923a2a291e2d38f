package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spotview/internal/binding"
	"github.com/roach88/spotview/internal/focus"
	"github.com/roach88/spotview/internal/layout"
)

// Scenario defines one sync scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture describes the synthetic result the panels are bound to.
	Fixture Fixture `yaml:"fixture"`

	// Layout is a CUE layout file. Mutually exclusive with Panels.
	Layout string `yaml:"layout,omitempty"`

	// Panels and Links declare the layout inline.
	Panels []PanelDecl `yaml:"panels,omitempty"`
	Links  []LinkDecl  `yaml:"links,omitempty"`

	// Steps are played in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`

	// GesturePrefix prefixes generated gesture IDs. Default "g".
	GesturePrefix string `yaml:"gesture_prefix,omitempty"`

	// MaxCascade overrides the focus registry's cascade limit.
	MaxCascade int `yaml:"max_cascade,omitempty"`

	dir string
}

// Fixture kinds.
const (
	FixtureSample    = "sample"
	FixtureAlignment = "alignment"
)

// Fixture describes synthetic result files.
type Fixture struct {
	// Kind is "sample" or "alignment".
	Kind string `yaml:"kind"`

	// Spots is the number of spot records.
	Spots int `yaml:"spots"`

	// Mobility adds a drift store (samples only). Even spots get two
	// masters from 1000 upward; the second master of every fourth spot is
	// linked but not materialized.
	Mobility bool `yaml:"mobility,omitempty"`

	// Samples is the number of bars per alignment spot. Default 3.
	Samples int `yaml:"samples,omitempty"`
}

// PanelDecl declares one panel.
type PanelDecl struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Scope    string   `yaml:"scope"`
	Sources  []string `yaml:"sources,omitempty"`
	Writable *bool    `yaml:"writable,omitempty"`

	// Echo makes the panel re-assert every render as a gesture. Defaults
	// to whether the panel can write.
	Echo *bool `yaml:"echo,omitempty"`
}

// LinkDecl declares one guard star.
type LinkDecl struct {
	Hub    string   `yaml:"hub"`
	Spokes []string `yaml:"spokes"`
}

// Step is one user gesture on a panel.
type Step struct {
	// Gesture names the panel.
	Gesture string `yaml:"gesture"`

	// ID is the selected record; -1 clears the selection.
	ID *int32 `yaml:"id"`

	// Expect is the expected outcome (see Outcome constants). Empty skips
	// the check.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Scope is a scope kind such as "sample/primary" (focus, sets).
	Scope string `yaml:"scope,omitempty"`

	// Panel names the panel (renders, rendered, echoes, writes).
	Panel string `yaml:"panel,omitempty"`

	// ID is the expected focused record (focus).
	ID *int32 `yaml:"id,omitempty"`

	// Count is the expected count (sets, renders, echoes, writes).
	Count *int `yaml:"count,omitempty"`

	// IDs are the expected rendered records (rendered).
	IDs []int32 `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertFocus    = "focus"
	AssertSets     = "sets"
	AssertRenders  = "renders"
	AssertRendered = "rendered"
	AssertEchoes   = "echoes"
	AssertWrites   = "writes"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	if s.Layout != "" && !filepath.IsAbs(s.Layout) {
		s.Layout = filepath.Join(s.dir, s.Layout)
	}
	if s.Layout != "" {
		if _, err := os.Stat(s.Layout); err != nil {
			return nil, fmt.Errorf("invalid scenario: layout file: %w", err)
		}
	}
	return s, nil
}

// ParseScenario parses scenario YAML. A layout path is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos such as "assertion:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Fixture.Kind {
	case FixtureSample:
	case FixtureAlignment:
		if s.Fixture.Mobility {
			return fmt.Errorf("fixture: mobility is only supported for samples")
		}
	default:
		return fmt.Errorf("fixture: kind must be %q or %q, got %q", FixtureSample, FixtureAlignment, s.Fixture.Kind)
	}
	if s.Fixture.Spots <= 0 {
		return fmt.Errorf("fixture: spots must be positive")
	}

	switch {
	case s.Layout != "" && len(s.Panels) > 0:
		return fmt.Errorf("layout and panels are mutually exclusive")
	case s.Layout == "" && len(s.Panels) == 0:
		return fmt.Errorf("panels list or layout file is required")
	}
	names := make(map[string]bool)
	for i, p := range s.Panels {
		if p.Name == "" {
			return fmt.Errorf("panels[%d]: name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("panels[%d]: duplicate panel %q", i, p.Name)
		}
		names[p.Name] = true
		if _, err := binding.ParsePanelKind(p.Kind); err != nil {
			return fmt.Errorf("panels[%d]: %w", i, err)
		}
		if _, err := focus.ParseScopeKind(p.Scope); err != nil {
			return fmt.Errorf("panels[%d]: %w", i, err)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Gesture == "" {
			return fmt.Errorf("steps[%d]: gesture is required", i)
		}
		if step.ID == nil {
			return fmt.Errorf("steps[%d]: id is required", i)
		}
		if step.Expect != "" && !knownOutcome(step.Expect) {
			return fmt.Errorf("steps[%d]: unknown outcome %q", i, step.Expect)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFocus:
		if a.Scope == "" || a.ID == nil {
			return fmt.Errorf("assertions[%d]: scope and id are required for focus", index)
		}
	case AssertSets:
		if a.Scope == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: scope and count are required for sets", index)
		}
	case AssertRenders, AssertEchoes, AssertWrites:
		if a.Panel == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: panel and count are required for %s", index, a.Type)
		}
	case AssertRendered:
		if a.Panel == "" {
			return fmt.Errorf("assertions[%d]: panel is required for rendered", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Scope != "" {
		if _, err := focus.ParseScopeKind(a.Scope); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}

// buildLayout returns the scenario's layout: compiled from its file, or
// assembled from the inline declarations.
func (s *Scenario) buildLayout() (*layout.Layout, error) {
	if s.Layout != "" {
		return layout.CompileFile(s.Layout)
	}
	l := &layout.Layout{}
	for _, d := range s.Panels {
		kind, _ := binding.ParsePanelKind(d.Kind)
		scope, _ := focus.ParseScopeKind(d.Scope)
		p := layout.Panel{Name: d.Name, Kind: kind, Scope: scope, Writable: d.Writable}
		for _, src := range d.Sources {
			p.Sources = append(p.Sources, layout.Source(src))
		}
		if len(p.Sources) == 0 {
			p.Sources = layout.DefaultSources(kind)
		}
		l.Panels = append(l.Panels, p)
	}
	for _, d := range s.Links {
		l.Links = append(l.Links, layout.Link{Hub: d.Hub, Spokes: d.Spokes})
	}
	return l, nil
}

// echoes reports whether the named panel echoes its renders.
func (s *Scenario) echoes(p layout.Panel) bool {
	for _, d := range s.Panels {
		if d.Name == p.Name && d.Echo != nil {
			return *d.Echo
		}
	}
	return p.CanWrite()
}
