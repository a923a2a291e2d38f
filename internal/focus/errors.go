package focus

import (
	"errors"
	"fmt"

	"github.com/roach88/spotview/internal/record"
)

// ErrorCode categorizes focus errors.
type ErrorCode string

const (
	// ErrCodeStaleSelection indicates a Set whose ID the scope's store cannot
	// resolve. The previous value is kept.
	ErrCodeStaleSelection ErrorCode = "STALE_SELECTION"

	// ErrCodeScopeNotOpen indicates a scope with no live State.
	ErrCodeScopeNotOpen ErrorCode = "SCOPE_NOT_OPEN"

	// ErrCodeScopeAlreadyOpen indicates a second Open of a live scope.
	ErrCodeScopeAlreadyOpen ErrorCode = "SCOPE_ALREADY_OPEN"

	// ErrCodeCascadeExceeded indicates that one gesture caused more focus
	// mutations than the registry allows.
	ErrCodeCascadeExceeded ErrorCode = "CASCADE_EXCEEDED"
)

// Error is a focus error with structured context.
type Error struct {
	Code     ErrorCode
	Message  string
	Scope    Scope
	RecordID record.ID
	Gesture  string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s (scope=%s", e.Code, e.Message, e.Scope)
	if e.Gesture != "" {
		msg += ", gesture=" + e.Gesture
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewStaleSelectionError reports a Set to an ID that could not be resolved.
func NewStaleSelectionError(scope Scope, id record.ID, err error) *Error {
	return &Error{
		Code:     ErrCodeStaleSelection,
		Message:  fmt.Sprintf("record %d cannot be resolved", id),
		Scope:    scope,
		RecordID: id,
		Err:      err,
	}
}

// NewScopeNotOpenError reports an operation on a scope with no live State.
func NewScopeNotOpenError(scope Scope) *Error {
	return notOpen(scope)
}

func notOpen(scope Scope) *Error {
	return &Error{Code: ErrCodeScopeNotOpen, Message: "scope is not open", Scope: scope, RecordID: record.None}
}

func alreadyOpen(scope Scope) *Error {
	return &Error{Code: ErrCodeScopeAlreadyOpen, Message: "scope is already open", Scope: scope, RecordID: record.None}
}

func codeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsStaleSelection returns true for STALE_SELECTION errors.
func IsStaleSelection(err error) bool { return codeOf(err) == ErrCodeStaleSelection }

// IsScopeNotOpen returns true for SCOPE_NOT_OPEN errors.
func IsScopeNotOpen(err error) bool { return codeOf(err) == ErrCodeScopeNotOpen }

// IsScopeAlreadyOpen returns true for SCOPE_ALREADY_OPEN errors.
func IsScopeAlreadyOpen(err error) bool { return codeOf(err) == ErrCodeScopeAlreadyOpen }

// IsCascadeExceeded returns true for CASCADE_EXCEEDED errors.
func IsCascadeExceeded(err error) bool { return codeOf(err) == ErrCodeCascadeExceeded }
