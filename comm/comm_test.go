package comm

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"
)

// echoServer accepts one connection and echoes everything it receives
func echoServer(t *testing.T) net.Addr {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go io.Copy(conn, conn)
		}
	}()
	return l.Addr()
}

func TestPoolGetPutReusesConnection(t *testing.T) {
	addr := echoServer(t)
	maker := BackingOffTCPConnMaker(addr.String(), time.Second)
	p := NewPool(1, time.Minute, maker)
	conn, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	if p.Active() != 1 {
		t.Errorf("expected 1 active connection, got %d", p.Active())
	}
	p.Put(conn)
	conn2, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	if conn2 != conn {
		t.Error("expected the same connection back from the pool")
	}
	p.Put(conn2)
}

func TestPoolDestroyAllowsRemint(t *testing.T) {
	addr := echoServer(t)
	p := NewPool(1, time.Minute, BackingOffTCPConnMaker(addr.String(), time.Second))
	conn, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	p.Destroy(conn)
	if p.Size() != 0 {
		t.Errorf("expected empty pool after destroy, got size %d", p.Size())
	}
	conn, err = p.Get()
	if err != nil {
		t.Fatal(err)
	}
	p.ReturnWithError(conn, nil)
	if p.Size() != 1 {
		t.Errorf("expected pool size 1, got %d", p.Size())
	}
}

func TestPoolReturnWithErrorDiscards(t *testing.T) {
	addr := echoServer(t)
	p := NewPool(1, time.Minute, BackingOffTCPConnMaker(addr.String(), time.Second))
	conn, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	p.ReturnWithError(conn, io.ErrUnexpectedEOF)
	if p.Size() != 0 {
		t.Errorf("expected junk connection discarded, pool size %d", p.Size())
	}
}

func TestRoundTripOverTCP(t *testing.T) {
	addr := echoServer(t)
	conn, err := TCPSetup(addr.String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	rw, err := NewTimeout(conn, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	term := NewTerminator(rw, '\n', '\n')
	msg := "*IDN?"
	if _, err := io.WriteString(term, msg); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	n, err := term.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	// the echo returns our own terminator, which Read strips
	if got := string(buf[:n]); got != msg {
		t.Errorf("got %q back, expected %q", got, msg)
	}
}

func TestTerminatorStripsCRLF(t *testing.T) {
	src := bytes.NewBuffer([]byte("1550.0\r\n"))
	term := NewTerminator(struct {
		io.Reader
		io.Writer
	}{src, io.Discard}, '\n', '\n')
	buf := make([]byte, 64)
	n, err := term.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "1550.0" {
		t.Errorf("got %q, expected bare payload", got)
	}
}

func TestNewTimeoutRejectsPlainReadWriter(t *testing.T) {
	_, err := NewTimeout(&bytes.Buffer{}, time.Second)
	if err != ErrTimeoutUnsupported {
		t.Errorf("expected ErrTimeoutUnsupported, got %v", err)
	}
}
