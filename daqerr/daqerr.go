// Package daqerr defines the closed error taxonomy shared by every layer of
// the openDAQ core runtime. The descriptive message of a failure travels on
// the returned *Error value; there is no per-thread last-error store.
package daqerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is one of the closed set of outcomes the runtime can report. New
// values are never added silently — every caller that switches on Code is
// expected to handle the full set.
type Code int

// The closed error taxonomy (design §7).
const (
	GeneralError Code = iota
	ArgumentNull
	InvalidParameter
	InvalidState
	InvalidOperation
	NotFound
	DuplicateItem
	AlreadyExists
	Frozen
	Ignored
	NotImplemented
	NotSupported
	NoInterface
	OutOfMemory
	ComponentRemoved
	PacketStreaming
	Auth
	AccessDenied
)

var codeNames = map[Code]string{
	GeneralError:     "GeneralError",
	ArgumentNull:     "ArgumentNull",
	InvalidParameter: "InvalidParameter",
	InvalidState:     "InvalidState",
	InvalidOperation: "InvalidOperation",
	NotFound:         "NotFound",
	DuplicateItem:    "DuplicateItem",
	AlreadyExists:    "AlreadyExists",
	Frozen:           "Frozen",
	Ignored:          "Ignored",
	NotImplemented:   "NotImplemented",
	NotSupported:     "NotSupported",
	NoInterface:      "NoInterface",
	OutOfMemory:      "OutOfMemory",
	ComponentRemoved: "ComponentRemoved",
	PacketStreaming:  "PacketStreaming",
	Auth:             "Auth",
	AccessDenied:     "AccessDenied",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error is the concrete error type returned across API boundaries. It
// carries the failing Code, a human message, and an optional Source naming
// the object or operation that failed.
type Error struct {
	Code    Code
	Message string
	Source  string
	cause   error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error with a stack-carrying cause captured at the call
// site, the way common/faults normalizes a heterogeneous failure into one
// reporting shape.
func New(code Code, source, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Code:    code,
		Message: msg,
		Source:  source,
		cause:   errors.New(msg),
	}
}

// Wrap attaches a Code to an existing error, preserving it as the cause.
func Wrap(code Code, source string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: err.Error(),
		Source:  source,
		cause:   errors.WithStack(err),
	}
}

// Is reports whether err is a *Error with the given Code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsIgnored is shorthand for Is(err, Ignored): the mutation was accepted but
// had no effect, and is therefore a success variant rather than a failure.
func IsIgnored(err error) bool {
	return Is(err, Ignored)
}

// FromRecover translates a recovered panic value into a GeneralError,
// mirroring the construction helpers' job of trapping standard-library
// level failures and mapping them into the closed taxonomy instead of
// letting them escape as bare panics.
func FromRecover(source string, r interface{}) *Error {
	switch v := r.(type) {
	case *Error:
		return v
	case error:
		return Wrap(GeneralError, source, v)
	default:
		return New(GeneralError, source, "recovered panic: %v", v)
	}
}
