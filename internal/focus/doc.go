// Package focus holds FocusState: the single source of truth for which spot
// is selected in each scope.
//
// A scope is one sample or one alignment result in its primary or secondary
// (mobility) dimension. The Registry keeps exactly one State per open scope.
//
// State machine:
//
//	unfocused (record.None) --Set(id)--> focused(id)
//	focused(id)             --Set(id')--> focused(id')
//	focused(id)             --Set(None)--> unfocused
//
// There are no other states. "Focused but not yet fetched" belongs to the
// binding that renders the record, not here.
//
// NOTIFICATION:
//
// A successful Set enqueues one Change per active subscription, in
// registration order. The outermost Set drains the queue FIFO; a Set issued
// by an observer while the queue drains is applied immediately but its
// notifications wait behind the ones already queued. Every Set in one drain
// shares a gesture ID, and the drain is aborted with CASCADE_EXCEEDED once it
// has applied more mutations than the registry allows.
//
// The registry is not safe for concurrent use. All calls happen on the
// dispatch goroutine.
package focus
