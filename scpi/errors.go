package scpi

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFaulted is generated when a command is issued on a session that has
	// entered the Error state.  The transport is not contacted; the caller
	// must Reset the session first.
	ErrFaulted = errors.New("scpi: session faulted, reset before issuing commands")

	// ErrClosed is generated when a command is issued on a closed session
	ErrClosed = errors.New("scpi: session closed")
)

// UnknownCode is the description returned for status codes absent from a
// CodeTable
const UnknownCode = "unknown status code"

// CodeTable is a static mapping from instrument status codes to
// human-readable descriptions.  Tables are populated per instrument family
// at package init and are read-only thereafter.
type CodeTable map[int]string

// Describe returns the description for code, or the UnknownCode sentinel
// if the code is not in the table.  The return is never empty.
func (t CodeTable) Describe(code int) string {
	if desc, ok := t[code]; ok {
		return desc
	}
	return UnknownCode
}

// TransportError wraps a byte-level I/O failure.  These are surfaced
// immediately and never retried by the engine.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying I/O error
func (e TransportError) Unwrap() error { return e.Err }

// InstrumentError is generated when the instrument reports a status code
// outside the success range.  It carries the code and its decoded
// description.
type InstrumentError struct {
	Code        int
	Description string
}

func (e InstrumentError) Error() string {
	return fmt.Sprintf("instrument error %d: %s", e.Code, e.Description)
}

// TimeoutError is generated when a polling loop exceeds its configured
// bound.  LastStatus holds the last status reply seen, which may be empty
// if no reply was ever received.
type TimeoutError struct {
	LastStatus string
	Waited     time.Duration
}

func (e TimeoutError) Error() string {
	if e.LastStatus == "" {
		return fmt.Sprintf("timed out after %v with no status received", e.Waited)
	}
	return fmt.Sprintf("timed out after %v, last status %q", e.Waited, e.LastStatus)
}
