/*Package comm provides connection pooling and line protocol helpers for
communication with lab instruments.

Most usages of this package boil down to:
 1. create a CreationFunc for your transport (TCP, serial, or something
    more exotic from another package)
 2. put it in a Pool, sized 1 for instruments that cannot handle
    concurrent conversations
 3. wrap leased connections with NewTimeout and NewTerminator to get
    deadline-bounded, terminator-delimited exchanges

A minimal example for a sensor that responds to "RD?" with a number:

	maker := comm.BackingOffTCPConnMaker("192.168.1.50:5000", 3*time.Second)
	pool := comm.NewPool(1, 30*time.Second, maker)
	conn, err := pool.Get()
	if err != nil {
		return err
	}
	defer pool.ReturnWithError(conn, err)
	wrap := comm.NewTerminator(conn, '\r', '\r')
	io.WriteString(wrap, "RD?")
	buf := make([]byte, 128)
	n, err := wrap.Read(buf)
*/
package comm

import (
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNotConnected is generated when an operation is attempted on a
	// connection that does not exist
	ErrNotConnected = errors.New("comm: not connected to remote")

	// ErrTimeoutUnsupported is generated when NewTimeout is called with a
	// connection that has no deadline support (e.g. a serial port, which
	// bounds reads in its own configuration)
	ErrTimeoutUnsupported = errors.New("comm: connection does not support deadlines")
)

// CreationFunc is a function which returns a new "connection" to something.
// A closure should be used to encapsulate the variables needed.
type CreationFunc func() (io.ReadWriteCloser, error)

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// BackingOffTCPConnMaker returns a CreationFunc which dials addr with an
// exponential backoff.  Some instrument mainframes drop connections when
// they are thrashed, so refusals are retried for a few seconds instead of
// surfacing immediately.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn net.Conn
		wasTimeout := false
		op := func() error {
			var err error
			conn, err = TCPSetup(addr, timeout)
			if err != nil {
				errS := strings.ToLower(err.Error())
				if strings.Contains(errS, "refused") {
					return err
				}
				wasTimeout = true
				return nil
			}
			return nil
		}
		// backoff ceases on a timeout so we don't wait forever; we need to
		// check wasTimeout separately from err
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err == nil && !wasTimeout {
			return conn, nil
		}
		if wasTimeout {
			return nil, errors.New("comm: connection timeout to " + addr)
		}
		return nil, err
	}
}

// SerialConnMaker returns a CreationFunc which opens the serial port
// described by conf.  The port's own ReadTimeout bounds reads; NewTimeout
// returns ErrTimeoutUnsupported for these connections.
func SerialConnMaker(conf *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(conf)
	}
}

// deadliner is a connection which supports deadlines (net.Conn does)
type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

type timeoutRW struct {
	rw io.ReadWriter
	d  deadliner
	t  time.Duration
}

func (t timeoutRW) Read(p []byte) (int, error) {
	t.d.SetReadDeadline(time.Now().Add(t.t))
	return t.rw.Read(p)
}

func (t timeoutRW) Write(p []byte) (int, error) {
	t.d.SetWriteDeadline(time.Now().Add(t.t))
	return t.rw.Write(p)
}

// NewTimeout wraps a connection such that each Read or Write is bounded by
// timeout.  If the connection has no deadline support, ErrTimeoutUnsupported
// is returned and the caller may elect to use the connection bare.
func NewTimeout(rw io.ReadWriter, timeout time.Duration) (io.ReadWriter, error) {
	if d, ok := rw.(deadliner); ok {
		return timeoutRW{rw: rw, d: d, t: timeout}, nil
	}
	return nil, ErrTimeoutUnsupported
}

type terminator struct {
	rw     io.ReadWriter
	tx, rx byte
}

func (t terminator) Write(p []byte) (int, error) {
	b := make([]byte, 0, len(p)+1)
	b = append(b, p...)
	b = append(b, t.tx)
	n, err := t.rw.Write(b)
	if n > len(p) {
		n = len(p) // do not report the terminator as caller bytes
	}
	return n, err
}

func (t terminator) Read(p []byte) (int, error) {
	n, err := t.rw.Read(p)
	// strip trailing terminators; devices with CRLF endings leave a
	// stray \r behind when rx is \n
	for n > 0 && (p[n-1] == t.rx || p[n-1] == '\r') {
		n--
	}
	return n, err
}

// NewTerminator wraps a connection such that writes have tx appended and
// reads have trailing rx (and any preceding carriage return) stripped
func NewTerminator(rw io.ReadWriter, tx, rx byte) io.ReadWriter {
	return terminator{rw: rw, tx: tx, rx: rx}
}
