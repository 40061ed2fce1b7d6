/*Package usbtmc implements bulk transfers for USB Test and Measurement
Class devices and presents them as an io.ReadWriteCloser, so a device on
USB plugs into the comm pool and the scpi engine the same way a device on
LAN does.

Multi-transfer messages are not supported; a message must fit in the
remote's buffer.
*/
package usbtmc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/google/gousb"

	"github.com/photonbench/golight/comm"
)

const (
	reserved = 0x00

	msgDevDepOut   = 0x01 // DEV_DEP_MSG_OUT
	msgDevDepInReq = 0x02 // REQUEST_DEV_DEP_MSG_IN

	bufSize = 1500
)

// tagGen produces the incrementing bTag bytes required by the standard.
// Concurrent safe.
type tagGen struct {
	sync.Mutex
	value byte
}

// next returns the next bTag, skipping zero which the standard reserves
func (t *tagGen) next() byte {
	t.Lock()
	defer t.Unlock()
	t.value++
	if t.value == 0 {
		t.value = 1
	}
	return t.value
}

// outHeader builds the DEV_DEP_MSG_OUT header, USBTMC standard table 3
func outHeader(tag byte, datalen int) [12]byte {
	var hdr [12]byte
	hdr[0] = msgDevDepOut
	hdr[1] = tag
	hdr[2] = tag ^ 0xff // bTagInverse
	hdr[3] = reserved
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(datalen))
	hdr[8] = 0x01 // EOM, single-transfer messages only
	return hdr
}

// inHeader builds the REQUEST_DEV_DEP_MSG_IN header, USBTMC standard table 4
func inHeader(tag byte, bufsize int, term byte) [12]byte {
	var hdr [12]byte
	hdr[0] = msgDevDepInReq
	hdr[1] = tag
	hdr[2] = tag ^ 0xff
	hdr[3] = reserved
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(bufsize))
	hdr[8] = 0x02 // TermCharEnabled
	hdr[9] = term
	return hdr
}

// Device is an open USBTMC device.  It satisfies io.ReadWriteCloser;
// Read issues the bulk-in request and strips the reply header, so the
// caller sees only the datagram body.
type Device struct {
	tags   *tagGen
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
	device *gousb.Device
	iface  *gousb.Interface
	closer func()

	// Term is the read termination character requested from the device,
	// '\n' by default
	Term byte
}

// Open connects to the device with the given vendor and product ID and
// claims its default interface
func Open(vid, pid uint16) (*Device, error) {
	d := &Device{tags: &tagGen{}, Term: '\n'}
	ctx := gousb.NewContext()
	var err error
	d.device, err = ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	if err = d.device.SetAutoDetach(true); err != nil {
		return nil, err
	}
	d.iface, d.closer, err = d.device.DefaultInterface()
	if err != nil {
		return nil, err
	}
	d.in, err = d.iface.InEndpoint(2)
	if err != nil {
		d.closer()
		return nil, err
	}
	d.out, err = d.iface.OutEndpoint(2)
	if err != nil {
		d.closer()
		return nil, err
	}
	return d, nil
}

// Write sends p as one device-dependent message.  The transfer is padded
// to the 4 byte alignment the standard requires; the padding is invisible
// to the device.
func (d *Device) Write(p []byte) (int, error) {
	const alignment = 4
	hdr := outHeader(d.tags.next(), len(p))
	msg := append(hdr[:], p...)
	if residual := len(msg) % alignment; residual > 0 {
		msg = append(msg, make([]byte, alignment-residual)...)
	}
	if _, err := d.out.Write(msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read requests a device-dependent message and copies its body into p
func (d *Device) Read(p []byte) (int, error) {
	hdr := inHeader(d.tags.next(), bufSize, d.Term)
	if _, err := d.out.Write(hdr[:]); err != nil {
		return 0, err
	}
	buf := make([]byte, bufSize)
	n, err := d.in.Read(buf)
	if err != nil {
		return 0, err
	}
	if n < 12 {
		return 0, fmt.Errorf("usbtmc: reply of %d bytes is shorter than the 12 byte header", n)
	}
	return copy(p, buf[12:n]), nil
}

// Close releases the interface and closes the device
func (d *Device) Close() error {
	d.closer()
	return d.device.Close()
}

// NewConnMaker returns a maker for comm.NewPool which opens the device
// with the given vendor and product ID
func NewConnMaker(vid, pid uint16) comm.CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return Open(vid, pid)
	}
}
