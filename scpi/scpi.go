// Package scpi provides a command/response engine for devices that speak
// SCPI or SCPI-like line protocols
package scpi

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/photonbench/golight/comm"
	"github.com/photonbench/golight/monitor"
)

const (
	// DefaultTimeout bounds a single command/response exchange
	DefaultTimeout = 5 * time.Second

	tcpFrameSize = 1500
)

// State is the lifecycle state of an instrument session
type State int

// session lifecycle states
const (
	Idle State = iota
	Busy
	Error
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Busy:
		return "Busy"
	case Error:
		return "Error"
	case Closed:
		return "Closed"
	}
	return "Invalid"
}

// SCPI is a session with an instrument speaking a SCPI-like protocol.
// The zero value is not usable; create sessions with New.
//
// A session exclusively owns its Pool; issuing one command at a time is
// enforced internally, so a SCPI may be shared between goroutines.
type SCPI struct {
	// Pool is the connection pool used for communication.  Size it 1 for
	// instruments that cannot hold concurrent conversations.
	Pool *comm.Pool

	// Handshaking indicates if the communication shall append an error
	// query to every message to ensure the device accepted the input
	Handshaking bool

	// ErrorQuery is the query appended when Handshaking; "SYST:ERR?" if empty
	ErrorQuery string

	// Codes decodes status codes in handshake or error-query responses
	Codes CodeTable

	// Timeout bounds a single exchange; DefaultTimeout if zero
	Timeout time.Duration

	// Limiter, when non-nil, bounds the command rate.  Many instrument
	// mainframes cap accepted commands at a few tens per second.
	Limiter *rate.Limiter

	// Terminators used on the wire; both default to '\n'
	Tx, Rx byte

	mu    sync.Mutex
	state State
}

// New returns a session over the given pool with '\n' terminators
func New(pool *comm.Pool) *SCPI {
	return &SCPI{Pool: pool, Tx: '\n', Rx: '\n'}
}

// State returns the current session state
func (s *SCPI) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset returns a faulted session to Idle.  The caller decides whether to
// clear the instrument itself (e.g. *CLS) before resuming.
func (s *SCPI) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Error {
		s.state = Idle
	}
}

// Close drains the pool and marks the session Closed.  Further commands
// fail with ErrClosed.
func (s *SCPI) Close() error {
	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
	return s.Pool.CloseAll()
}

// begin moves the session to Busy, failing fast without touching the
// transport if the session is faulted or closed
func (s *SCPI) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Error:
		return ErrFaulted
	case Closed:
		return ErrClosed
	}
	s.state = Busy
	return nil
}

// end moves the session out of Busy.  Instrument errors fault the session;
// transport errors do not (the pool discards the junk connection instead).
func (s *SCPI) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	if _, ok := err.(InstrumentError); ok {
		s.state = Error
		return
	}
	s.state = Idle
}

func (s *SCPI) timeout() time.Duration {
	if s.Timeout == 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s *SCPI) errorQuery() string {
	if s.ErrorQuery == "" {
		return "SYST:ERR?"
	}
	return s.ErrorQuery
}

// wrap leases a connection and dresses it with deadline and terminator
// handling.  Serial connections have no deadline support and are used bare.
func (s *SCPI) wrap() (io.ReadWriter, io.ReadWriter, error) {
	conn, err := s.Pool.Get()
	if err != nil {
		return nil, nil, TransportError{Op: "open", Err: err}
	}
	inner := conn
	if to, err := comm.NewTimeout(conn, s.timeout()); err == nil {
		inner = to
	}
	return conn, comm.NewTerminator(inner, s.Tx, s.Rx), nil
}

// decodeHandshake parses an error-query reply like "0,No error" or "-222"
// and converts nonzero codes to InstrumentError
func (s *SCPI) decodeHandshake(resp string) error {
	resp = strings.TrimSpace(resp)
	codeS := resp
	if idx := strings.IndexByte(resp, ','); idx >= 0 {
		codeS = resp[:idx]
	}
	codeS = strings.TrimPrefix(codeS, "+")
	code, err := strconv.Atoi(strings.TrimSpace(codeS))
	if err != nil {
		return TransportError{Op: "handshake decode", Err: err}
	}
	if code == 0 {
		return nil
	}
	return InstrumentError{Code: code, Description: s.Codes.Describe(code)}
}

// Write sends a command to the device.  If s.Handshaking is true, it also
// requests an error response and checks that it is OK.  It is assumed this
// is used for set operations and not get.
func (s *SCPI) Write(cmds ...string) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.write(cmds...)
	s.end(err)
	return err
}

func (s *SCPI) write(cmds ...string) error {
	monitor.CommandsIssued.Inc()
	if s.Limiter != nil {
		s.Limiter.Wait(context.Background())
	}
	conn, wrap, err := s.wrap()
	if err != nil {
		monitor.CommandErrors.Inc()
		return err
	}
	defer func() { s.Pool.ReturnWithError(conn, transportOnly(err)) }()
	msg := strings.Join(cmds, " ")
	if _, werr := io.WriteString(wrap, msg); werr != nil {
		err = TransportError{Op: "write", Err: werr}
		monitor.CommandErrors.Inc()
		return err
	}
	if !s.Handshaking {
		return nil
	}
	if _, werr := io.WriteString(wrap, s.errorQuery()); werr != nil {
		err = TransportError{Op: "write", Err: werr}
		monitor.CommandErrors.Inc()
		return err
	}
	buf := make([]byte, tcpFrameSize)
	n, rerr := wrap.Read(buf)
	if rerr != nil {
		err = TransportError{Op: "read", Err: rerr}
		monitor.CommandErrors.Inc()
		return err
	}
	err = s.decodeHandshake(string(buf[:n]))
	if err != nil {
		monitor.CommandErrors.Inc()
	}
	return err
}

// WriteRead is Write, but with a read call after.  It is assumed that "get"
// calls use this underlying mechanism.
func (s *SCPI) WriteRead(cmds ...string) ([]byte, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	resp, err := s.writeRead(cmds...)
	s.end(err)
	return resp, err
}

func (s *SCPI) writeRead(cmds ...string) ([]byte, error) {
	monitor.CommandsIssued.Inc()
	if s.Limiter != nil {
		s.Limiter.Wait(context.Background())
	}
	var resp []byte
	conn, wrap, err := s.wrap()
	if err != nil {
		monitor.CommandErrors.Inc()
		return resp, err
	}
	defer func() { s.Pool.ReturnWithError(conn, transportOnly(err)) }()
	msg := strings.Join(cmds, " ")
	if _, werr := io.WriteString(wrap, msg); werr != nil {
		err = TransportError{Op: "write", Err: werr}
		monitor.CommandErrors.Inc()
		return resp, err
	}
	buf := make([]byte, tcpFrameSize)
	n, rerr := wrap.Read(buf)
	if rerr != nil {
		err = TransportError{Op: "read", Err: rerr}
		monitor.CommandErrors.Inc()
		return resp, err
	}
	resp = buf[:n]
	return resp, nil
}

// transportOnly filters err down to transport errors, which are the only
// kind that indicate a junk connection
func transportOnly(err error) error {
	if _, ok := err.(TransportError); ok {
		return err
	}
	return nil
}

// ReadString sends a command to the device, then reads the response and
// returns it as a decoded ASCII or UTF-8 string
func (s *SCPI) ReadString(cmds ...string) (string, error) {
	resp, err := s.WriteRead(cmds...)
	return strings.TrimRight(string(resp), "\r\n"), err
}

// ReadFloat sends a command to the device, then reads the response and
// parses it as a floating point value
func (s *SCPI) ReadFloat(cmds ...string) (float64, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(resp), 64)
}

// ReadInt sends a command to the device, then reads the response and
// parses it as an integer
func (s *SCPI) ReadInt(cmds ...string) (int, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(resp))
}

// ReadBool sends a command to the device, then reads the response and
// parses it as a boolean
func (s *SCPI) ReadBool(cmds ...string) (bool, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(strings.TrimSpace(resp))
}

// Raw sends a command to the device and returns a response if it was a
// query, else a blank string
func (s *SCPI) Raw(str string) (string, error) {
	if strings.Contains(str, "?") {
		return s.ReadString(str)
	}
	return "", s.Write(str)
}

// PopError gets a single error from the queue on the device, nil if the
// device reports success
func (s *SCPI) PopError() error {
	str, err := s.ReadString(s.errorQuery())
	if err != nil {
		return err
	}
	return s.decodeHandshake(str)
}

// AllErrors drains the error queue on the device and returns the contents
// as a list
func (s *SCPI) AllErrors() []error {
	var errs []error
	for {
		err := s.PopError()
		if err == nil {
			break
		}
		errs = append(errs, err)
		if _, ok := err.(InstrumentError); !ok {
			break // transport trouble, do not spin forever
		}
		s.Reset() // instrument errors fault the session; keep draining
	}
	return errs
}
