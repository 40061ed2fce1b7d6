package scpi

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/photonbench/golight/comm"
)

// ParseBlock splits an IEEE 488.2 definite-length block ("#<n><len><data>")
// into its payload.  The input must contain the complete header; the
// payload may be short, in which case the second return indicates how many
// bytes remain to be read.
func ParseBlock(raw []byte) (payload []byte, remaining int, err error) {
	if len(raw) < 2 {
		return nil, 0, fmt.Errorf("block was only %d bytes, expected >2", len(raw))
	}
	if raw[0] != '#' {
		return nil, 0, fmt.Errorf("first byte in block was %q, expected #", raw[0])
	}
	ndigits := int(raw[1]) - '0'
	if ndigits < 1 || ndigits > 9 {
		return nil, 0, fmt.Errorf("block length field %q is not a digit 1-9", raw[1])
	}
	upper := 2 + ndigits
	if len(raw) < upper {
		return nil, 0, fmt.Errorf("block header truncated, have %d bytes need %d", len(raw), upper)
	}
	nbytes, err := strconv.Atoi(string(raw[2:upper]))
	if err != nil {
		return nil, 0, err
	}
	payload = raw[upper:]
	if len(payload) >= nbytes {
		return payload[:nbytes], 0, nil
	}
	return payload, nbytes - len(payload), nil
}

// DecodeFloat32LE converts a payload of little-endian float32 samples, the
// format both the TSL wavelength log and MPM power log use, to float64s
func DecodeFloat32LE(payload []byte) ([]float64, error) {
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("payload of %d bytes is not a whole number of float32s", len(payload))
	}
	out := make([]float64, len(payload)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(payload[i*4:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out, nil
}

// ReadBlock sends a query whose response is an IEEE 488.2 definite-length
// block and returns the payload.  The read loop continues until the
// advertised byte count has arrived, so payloads larger than one frame are
// handled.
func (s *SCPI) ReadBlock(cmds ...string) ([]byte, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	payload, err := s.readBlock(cmds...)
	s.end(err)
	return payload, err
}

func (s *SCPI) readBlock(cmds ...string) ([]byte, error) {
	lease, err := s.Pool.Get()
	if err != nil {
		err = TransportError{Op: "open", Err: err}
		return nil, err
	}
	defer func() { s.Pool.ReturnWithError(lease, transportOnly(err)) }()
	// block reads bypass the terminator wrapper; the payload is binary and
	// may legally contain the terminator byte
	raw := lease
	if to, terr := comm.NewTimeout(lease, s.timeout()); terr == nil {
		raw = to
	}
	msg := strings.Join(cmds, " ")
	if _, werr := io.WriteString(raw, msg+string(s.Tx)); werr != nil {
		err = TransportError{Op: "write", Err: werr}
		return nil, err
	}
	buf := make([]byte, tcpFrameSize)
	n, rerr := raw.Read(buf)
	if rerr != nil {
		err = TransportError{Op: "read", Err: rerr}
		return nil, err
	}
	payload, remaining, perr := ParseBlock(buf[:n])
	if perr != nil {
		err = TransportError{Op: "block decode", Err: perr}
		return nil, err
	}
	for remaining > 0 {
		n, rerr = raw.Read(buf)
		if rerr != nil {
			err = TransportError{Op: "read", Err: rerr}
			return nil, err
		}
		chunk := buf[:n]
		if n > remaining {
			chunk = chunk[:remaining] // drop the trailing terminator
		}
		payload = append(payload, chunk...)
		remaining -= len(chunk)
	}
	return payload, nil
}
