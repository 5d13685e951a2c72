// Package errors carries the coded error taxonomy shared by the store, the
// registries, the workbench and the remote verifier client.
package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	MalformedDependency ErrorCode = "malformed-dependency"
	InvalidHash         ErrorCode = "invalid-hash"
	InvalidIndex        ErrorCode = "invalid-index"
	InvalidArgument     ErrorCode = "invalid-argument"
	UnknownReference    ErrorCode = "unknown-reference"
	NotFound            ErrorCode = "not-found"
	CorruptRecord       ErrorCode = "corrupt-record"
	StoreUnavailable    ErrorCode = "store-unavailable"
	RemoteUnavailable   ErrorCode = "remote-unavailable"
	RemoteRejected      ErrorCode = "remote-rejected"
	BudgetExceeded      ErrorCode = "budget-exceeded"
	UnknownError        ErrorCode = "unknown-error"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrMalformedDependency = &Error{Code: MalformedDependency, Message: "malformed dependency"}
	ErrInvalidHash         = &Error{Code: InvalidHash, Message: "invalid hash"}
	ErrInvalidIndex        = &Error{Code: InvalidIndex, Message: "invalid index"}
	ErrInvalidArgument     = &Error{Code: InvalidArgument, Message: "invalid argument"}
	ErrUnknownReference    = &Error{Code: UnknownReference, Message: "unknown reference"}
	ErrNotFound            = &Error{Code: NotFound, Message: "not found"}
	ErrCorruptRecord       = &Error{Code: CorruptRecord, Message: "corrupt record"}
	ErrStoreUnavailable    = &Error{Code: StoreUnavailable, Message: "store unavailable"}
	ErrRemoteUnavailable   = &Error{Code: RemoteUnavailable, Message: "remote unavailable"}
	ErrRemoteRejected      = &Error{Code: RemoteRejected, Message: "remote rejected"}
	ErrBudgetExceeded      = &Error{Code: BudgetExceeded, Message: "budget exceeded"}
)

type Error struct {
	Code    ErrorCode // machine-readable code
	Message string    // human-readable message naming the failing token, name or hash
	Err     error     // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code ErrorCode, err error, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the outermost *Error in err's chain.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return UnknownError
}

func IsNotFound(err error) bool {
	return Is(err, ErrNotFound)
}

// Is and As are re-exported so callers importing this package keep the
// standard helpers.
// A coded target only matches the outermost *Error, so a wrapped cause never
// changes how a failure is classified.
func Is(err, target error) bool {
	if t, ok := target.(*Error); ok {
		return err != nil && CodeOf(err) == t.Code
	}
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
