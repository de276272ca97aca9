// Package pxc implements the sequence execution engine and instrument abstraction
// for an experiment controller: a user composes a sequence of set/wait/measure/loop
// steps against a bank of bus-attached instruments, and the engine runs that
// sequence, streaming rows to a file writer and status to an observer.
package pxc

import (
	"errors"
	"fmt"
)

// ErrorCode is a high-level error category from spec §7's taxonomy.
type ErrorCode string

const (
	// CodeTransportTimeout indicates the bus did not answer within the transport's
	// configured timeout. Retryable.
	CodeTransportTimeout ErrorCode = "transport timeout"
	// CodeTransportIO indicates a lower-level I/O failure on the bus handle.
	// Retryable.
	CodeTransportIO ErrorCode = "transport io error"
	// CodeBadParameter indicates an unknown parameter name was requested.
	CodeBadParameter ErrorCode = "bad parameter"
	// CodeBadValue indicates a value failed coercion (non-float continuous input,
	// or a discrete value outside the declared value/label set).
	CodeBadValue ErrorCode = "bad value"
	// CodeReadOnly indicates a write was attempted on a read-only parameter.
	CodeReadOnly ErrorCode = "read only"
	// CodeWriteOnly indicates a read was attempted on a write-only parameter.
	CodeWriteOnly ErrorCode = "write only"
	// CodeInstrumentMissing indicates a step referenced an instrument name that
	// isn't bound in the current Apparatus snapshot.
	CodeInstrumentMissing ErrorCode = "instrument missing"
	// CodeStructureError indicates an unrepairable sequence structure (a LoopEnd
	// with no matching Loop at all).
	CodeStructureError ErrorCode = "structure error"
	// CodeAbortRequested is not really an error; it's the cooperative exit
	// condition, surfaced through the same plumbing so callers can use one switch.
	CodeAbortRequested ErrorCode = "abort requested"
	// CodeFileIOError indicates the file writer failed to open, write, or close
	// the data file.
	CodeFileIOError ErrorCode = "file io error"
)

// Error is the structured error type surfaced by the transport, instrument, step,
// and runtime layers.
type Error struct {
	Op        string    // operation that failed (e.g. "ReadParameter", "NewFile")
	Code      ErrorCode // high-level category
	Inst      string    // instrument name, if applicable
	Param     string    // parameter name, if applicable
	Msg       string    // human-readable detail
	Retryable bool      // true if retrying the same operation might succeed
	Inner     error     // wrapped cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Inst != "" {
		parts = append(parts, fmt.Sprintf("inst=%s", e.Inst))
	}
	if e.Param != "" {
		parts = append(parts, fmt.Sprintf("param=%s", e.Param))
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("pxc: %s", msg)
	}
	return fmt.Sprintf("pxc: %s (%s: %s)", msg, string(e.Code), joinParts(parts))
}

func joinParts(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by code.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// NewError creates a structured Error with no instrument/parameter context.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewParamError creates a structured Error scoped to one instrument's parameter.
func NewParamError(op, inst, param string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Inst: inst, Param: param, Code: code, Msg: msg}
}

// errTimeout is the sentinel a Transport should wrap (via
// fmt.Errorf("...: %w", pxc.ErrTimeout)) to mark a timed-out query/write so
// WrapTransportError classifies it as CodeTransportTimeout.
var errTimeout = errors.New("timeout")

// ErrTimeout is the timeout sentinel, see errTimeout.
var ErrTimeout = errTimeout

// WrapTransportError classifies an error returned by a Transport handle into a
// structured, retry-annotated Error.
func WrapTransportError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*Error); ok {
		return pe
	}
	code := CodeTransportIO
	if errors.Is(err, errTimeout) {
		code = CodeTransportTimeout
	}
	return &Error{Op: op, Code: code, Msg: err.Error(), Retryable: true, Inner: err}
}

// IsCode reports whether err is (or wraps) a structured Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsRetryable reports whether err is a structured Error marked Retryable.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// ErrAbort is returned (never wrapped) to signal the cooperative abort exit path.
// Callers should treat it as "not an error."
var ErrAbort = &Error{Op: "Abort", Code: CodeAbortRequested, Msg: "run aborted"}
