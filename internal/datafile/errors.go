package datafile

import (
	"errors"
	"fmt"

	"github.com/roach88/spotview/internal/record"
)

// ErrorCode categorizes data file errors.
type ErrorCode string

const (
	// ErrCodeFileNotFound indicates the data file does not exist.
	ErrCodeFileNotFound ErrorCode = "FILE_NOT_FOUND"

	// ErrCodeFileLocked indicates another handle holds an incompatible lock.
	ErrCodeFileLocked ErrorCode = "FILE_LOCKED"

	// ErrCodeCorruptIndex indicates the declared and actual record counts
	// differ, or header arithmetic overruns the file.
	ErrCodeCorruptIndex ErrorCode = "CORRUPT_INDEX"

	// ErrCodeUnknownRecord indicates an ID outside the built index.
	ErrCodeUnknownRecord ErrorCode = "UNKNOWN_RECORD_ID"

	// ErrCodeTruncatedRecord indicates fewer bytes than the record header declares.
	ErrCodeTruncatedRecord ErrorCode = "TRUNCATED_RECORD"

	// ErrCodeLengthChanged indicates an in-place rewrite that would change a
	// record's length.
	ErrCodeLengthChanged ErrorCode = "LENGTH_CHANGED"

	// ErrCodeStoreClosed indicates use of a closed handle.
	ErrCodeStoreClosed ErrorCode = "STORE_CLOSED"
)

// Error is a data file error with structured context.
type Error struct {
	Code     ErrorCode
	Message  string
	Path     string    // data file path, if known
	RecordID record.ID // record.None when not about a single record
	Err      error     // underlying error, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, path string, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Path:     path,
		RecordID: record.None,
	}
}

// NewUnknownRecordError reports an ID that is not in the index of path.
func NewUnknownRecordError(path string, id record.ID) *Error {
	e := newError(ErrCodeUnknownRecord, path, "record id %d is not in the index", id)
	e.RecordID = id
	return e
}

// NewClosedError reports use of a closed store or writer.
func NewClosedError(path string) *Error {
	return newError(ErrCodeStoreClosed, path, "data file handle is closed")
}

func corrupt(path string, format string, args ...any) *Error {
	return newError(ErrCodeCorruptIndex, path, format, args...)
}

func truncated(path string, id record.ID, format string, args ...any) *Error {
	e := newError(ErrCodeTruncatedRecord, path, format, args...)
	e.RecordID = id
	return e
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound returns true for FILE_NOT_FOUND errors.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeFileNotFound }

// IsLocked returns true for FILE_LOCKED errors.
func IsLocked(err error) bool { return CodeOf(err) == ErrCodeFileLocked }

// IsCorruptIndex returns true for CORRUPT_INDEX errors.
func IsCorruptIndex(err error) bool { return CodeOf(err) == ErrCodeCorruptIndex }

// IsUnknownRecord returns true for UNKNOWN_RECORD_ID errors.
func IsUnknownRecord(err error) bool { return CodeOf(err) == ErrCodeUnknownRecord }

// IsTruncated returns true for TRUNCATED_RECORD errors.
func IsTruncated(err error) bool { return CodeOf(err) == ErrCodeTruncatedRecord }

// IsClosed returns true for STORE_CLOSED errors.
func IsClosed(err error) bool { return CodeOf(err) == ErrCodeStoreClosed }

// NewLengthChangedError reports an in-place rewrite of id whose encoding
// would not fit the existing record's bytes.
func NewLengthChangedError(path string, id record.ID, have, want int64) *Error {
	e := newError(ErrCodeLengthChanged, path,
		"record %d is %d bytes on disk, replacement encodes to %d", id, have, want)
	e.RecordID = id
	return e
}

// IsLengthChanged returns true for LENGTH_CHANGED errors.
func IsLengthChanged(err error) bool { return CodeOf(err) == ErrCodeLengthChanged }
