package focus

import "fmt"

// DefaultMaxCascade is the default number of focus mutations one gesture
// may cause across all scopes.
const DefaultMaxCascade = 64

// cascadeBudget counts the mutations applied while one notification queue
// drains.
//
// Echo suppression keeps a correctly wired layout at one mutation per
// gesture, plus one per scope it fans into. A binding pair wired without a
// guard ping-pongs forever; the budget turns that into an error instead of a
// hang.
type cascadeBudget struct {
	max     int
	current int
}

func (b *cascadeBudget) reset() {
	b.current = 0
}

// spend records one mutation and fails once the budget is exhausted.
func (b *cascadeBudget) spend(scope Scope, gesture string) error {
	b.current++
	if b.current > b.max {
		return &Error{
			Code:     ErrCodeCascadeExceeded,
			Message:  fmt.Sprintf("gesture caused %d focus mutations, limit is %d", b.current, b.max),
			Scope:    scope,
			RecordID: -1,
			Gesture:  gesture,
		}
	}
	return nil
}
