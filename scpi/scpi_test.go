package scpi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/photonbench/golight/comm"
)

// fakeConn is a scripted connection: writes are recorded, reads pop
// canned replies in order
type fakeConn struct {
	writes  []string
	replies [][]byte
	ops     int
	closed  bool
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.ops++
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

func (f *fakeConn) Read(p []byte) (int, error) {
	f.ops++
	if len(f.replies) == 0 {
		return 0, io.EOF
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return copy(p, r), nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func fakePool(f *fakeConn) *comm.Pool {
	return comm.NewPool(1, time.Minute, func() (io.ReadWriteCloser, error) {
		return f, nil
	})
}

func TestReadStringStripsTerminator(t *testing.T) {
	f := &fakeConn{replies: [][]byte{[]byte("SANTEC,TSL-570,0,1\r\n")}}
	s := New(fakePool(f))
	resp, err := s.ReadString("*IDN?")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "SANTEC,TSL-570,0,1" {
		t.Errorf("got %q", resp)
	}
	if f.writes[0] != "*IDN?\n" {
		t.Errorf("wrote %q, expected terminated query", f.writes[0])
	}
	if s.State() != Idle {
		t.Errorf("session in state %v after success, expected Idle", s.State())
	}
}

func TestReadFloat(t *testing.T) {
	f := &fakeConn{replies: [][]byte{[]byte("1550.1234\n")}}
	s := New(fakePool(f))
	v, err := s.ReadFloat(":WAV?")
	if err != nil {
		t.Fatal(err)
	}
	if v != 1550.1234 {
		t.Errorf("got %v", v)
	}
}

func TestHandshakeFaultsSessionOnInstrumentError(t *testing.T) {
	f := &fakeConn{replies: [][]byte{[]byte("-222,Data out of range\n")}}
	s := New(fakePool(f))
	s.Handshaking = true
	s.Codes = CodeTable{-222: "Data out of range"}
	err := s.Write(":WAV 9999")
	var ie InstrumentError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InstrumentError, got %v", err)
	}
	if ie.Code != -222 || ie.Description != "Data out of range" {
		t.Errorf("bad decode: %+v", ie)
	}
	if s.State() != Error {
		t.Errorf("session in state %v, expected Error", s.State())
	}
}

func TestFaultedSessionFailsFastWithoutTransport(t *testing.T) {
	f := &fakeConn{replies: [][]byte{[]byte("-113,Undefined header\n")}}
	s := New(fakePool(f))
	s.Handshaking = true
	if err := s.Write("BOGUS"); err == nil {
		t.Fatal("expected the scripted instrument error")
	}
	opsAfterFault := f.ops
	_, err := s.ReadString("*IDN?")
	if err != ErrFaulted {
		t.Fatalf("expected ErrFaulted, got %v", err)
	}
	if f.ops != opsAfterFault {
		t.Error("faulted session touched the transport")
	}
	s.Reset()
	if s.State() != Idle {
		t.Errorf("state %v after Reset, expected Idle", s.State())
	}
}

func TestClosedSessionRejectsCommands(t *testing.T) {
	f := &fakeConn{}
	s := New(fakePool(f))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("*RST"); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestTransportErrorDoesNotFaultSession(t *testing.T) {
	f := &fakeConn{} // no replies; reads return EOF
	s := New(fakePool(f))
	_, err := s.ReadString("*IDN?")
	var te TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if s.State() != Idle {
		t.Errorf("session in state %v after transport error, expected Idle", s.State())
	}
	if !f.closed {
		t.Error("junk connection was not destroyed")
	}
}

func TestCodeTableDescribeNeverEmpty(t *testing.T) {
	table := CodeTable{0: "No error", -222: "Data out of range"}
	if got := table.Describe(-222); got != "Data out of range" {
		t.Errorf("got %q", got)
	}
	if got := table.Describe(424242); got != UnknownCode {
		t.Errorf("unknown code described as %q, expected sentinel", got)
	}
	if table.Describe(424242) == "" {
		t.Error("description must never be empty")
	}
}

func TestRawRoutesQueriesAndCommands(t *testing.T) {
	f := &fakeConn{replies: [][]byte{[]byte("1\n")}}
	s := New(fakePool(f))
	resp, err := s.Raw(":POW:STAT?")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "1" {
		t.Errorf("got %q", resp)
	}
	if _, err := s.Raw(":POW:STAT 1"); err != nil {
		t.Fatal(err)
	}
	if len(f.writes) != 2 {
		t.Errorf("expected 2 writes, got %d", len(f.writes))
	}
}

func block(values ...float32) []byte {
	payload := make([]byte, 0, len(values)*4)
	for _, v := range values {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		payload = append(payload, b[:]...)
	}
	hdr := []byte{'#', '1', byte('0' + len(payload))}
	if len(payload) >= 10 {
		hdr = append([]byte{'#', '2'}, []byte{byte('0' + len(payload)/10), byte('0' + len(payload)%10)}...)
	}
	return append(hdr, payload...)
}

func TestParseBlock(t *testing.T) {
	raw := block(1.5, -2.25)
	payload, remaining, err := ParseBlock(raw)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Errorf("remaining %d, expected 0", remaining)
	}
	vals, err := DecodeFloat32LE(payload)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1.5, -2.25}
	if diff := cmp.Diff(want, vals); diff != "" {
		t.Errorf("decoded values mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBlockShortPayload(t *testing.T) {
	raw := block(1, 2, 3, 4)
	// deliver only the header plus half the payload
	cut := 2 + 2 + 8
	payload, remaining, err := ParseBlock(raw[:cut])
	if err != nil {
		t.Fatal(err)
	}
	if len(payload) != 8 || remaining != 8 {
		t.Errorf("got %d bytes with %d remaining, expected 8 and 8", len(payload), remaining)
	}
}

func TestParseBlockRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("x"),
		[]byte("1234"),
		[]byte("#a12"),
	}
	for _, c := range cases {
		if _, _, err := ParseBlock(c); err == nil {
			t.Errorf("ParseBlock(%q) accepted garbage", c)
		}
	}
}

func TestDecodeFloat32LERejectsRaggedPayload(t *testing.T) {
	if _, err := DecodeFloat32LE(bytes.Repeat([]byte{0}, 7)); err == nil {
		t.Error("expected error for payload not a multiple of 4")
	}
}

func TestReadBlock(t *testing.T) {
	f := &fakeConn{replies: [][]byte{block(1.0, 2.0, 3.0)}}
	s := New(fakePool(f))
	payload, err := s.ReadBlock("READ:DAT?")
	if err != nil {
		t.Fatal(err)
	}
	vals, err := DecodeFloat32LE(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 3 || vals[2] != 3.0 {
		t.Errorf("got %v", vals)
	}
}
