// Package apierr defines the error taxonomy shared by the control
// dispatcher and its wire encoding (§7).
package apierr

import "fmt"

// Code is a tagged error kind. The source's two admin-error
// inheritance hierarchies (CannotAdmin, FileGuardAdmin) collapse into
// this single enum, per SPEC_FULL.md §9.
type Code int

const (
	// OK is not an error; present for symmetry with the wire
	// protocol's zero resultCode.
	OK Code = iota
	// InvalidArgument is a malformed request, unknown enum value, or
	// impossible size.
	InvalidArgument
	// NotFound is a missing rule on remove, or no matching rule when
	// one was required.
	NotFound
	// Busy is a store in Draining mode, or an admin port already
	// connected.
	Busy
	// OutOfMemory is an allocation failure during admin insert or
	// record creation.
	OutOfMemory
	// Disconnected is a monitor consumer not attached when draining.
	Disconnected
	// Host is an opaque status from the underlying file-system layer,
	// passed through verbatim.
	Host
)

// String renders the code for logs and CLI error output.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case InvalidArgument:
		return "invalid-argument"
	case NotFound:
		return "not-found"
	case Busy:
		return "busy"
	case OutOfMemory:
		return "out-of-memory"
	case Disconnected:
		return "disconnected"
	case Host:
		return "host"
	default:
		return "unknown"
	}
}

// StatusCode returns the value carried in wire replies' resultCode
// field (§6): the Code's own ordinal, so OK is 0.
func (c Code) StatusCode() uint32 {
	return uint32(c)
}

// Error wraps a Code with a human-readable message. It is the single
// error type the control dispatcher returns or round-trips as a wire
// resultCode (§7).
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New creates an *Error with code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an *Error that preserves err for errors.Is/As.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
