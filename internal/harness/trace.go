package harness

import (
	"github.com/roach88/spotview/internal/record"
)

// Trace event types.
const (
	EventGesture = "gesture"
	EventFocus   = "focus"
	EventRender  = "render"
)

// Gesture outcomes.
const (
	OutcomeWritten  = "written"
	OutcomeEcho     = "echo"
	OutcomeStale    = "stale"
	OutcomeReadOnly = "read_only"
	OutcomeCascade  = "cascade_exceeded"
	OutcomeFailed   = "failed" // written, but a render or fetch failed
	OutcomeError    = "error"
)

func knownOutcome(s string) bool {
	switch s {
	case OutcomeWritten, OutcomeEcho, OutcomeStale, OutcomeReadOnly, OutcomeCascade, OutcomeFailed, OutcomeError:
		return true
	}
	return false
}

// Gesture sources.
const (
	SourceUser = "user"
	SourceEcho = "echo"
)

// TraceEvent is one entry of a scenario trace. Which fields are meaningful
// depends on Type:
//
//   - gesture: Panel, ID, Source, Outcome
//   - focus: Scope, Previous, ID, Generation, Gesture
//   - render: Panel, ID, Gesture, Records
type TraceEvent struct {
	Seq        int64     `json:"seq"`
	Type       string    `json:"type"`
	Panel      string    `json:"panel,omitempty"`
	Scope      string    `json:"scope,omitempty"`
	ID         record.ID `json:"id"`
	Previous   record.ID `json:"previous,omitempty"`
	Generation int64     `json:"generation,omitempty"`
	Gesture    string    `json:"gesture,omitempty"`
	Source     string    `json:"source,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	Records    int       `json:"records,omitempty"`
}

// canonical returns the event as a map for canonical JSON.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"seq":  e.Seq,
		"type": e.Type,
		"id":   e.ID,
	}
	switch e.Type {
	case EventGesture:
		m["panel"] = e.Panel
		m["source"] = e.Source
		m["outcome"] = e.Outcome
	case EventFocus:
		m["scope"] = e.Scope
		m["previous"] = e.Previous
		m["generation"] = e.Generation
		m["gesture"] = e.Gesture
	case EventRender:
		m["panel"] = e.Panel
		m["gesture"] = e.Gesture
		m["records"] = e.Records
	}
	return m
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step outcome and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds gestures, focus changes and renders in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events matching type and panel. An
// empty panel matches every event of the type.
func (r *Result) Count(typ, panel string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == typ && (panel == "" || e.Panel == panel) {
			n++
		}
	}
	return n
}
