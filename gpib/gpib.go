/*Package gpib adapts a Prologix-style GPIB-to-LAN or GPIB-to-serial bridge
into the io.ReadWriteCloser shape the comm pool expects.  The bridge is
configured once when a connection is minted; afterwards the connection is
transparent and an scpi session over it cannot tell it is not talking TCP
directly to the instrument.

Commands prefixed with "++" address the bridge itself and are never
forwarded over the bus.
*/
package gpib

import (
	"fmt"
	"io"

	"github.com/photonbench/golight/comm"
)

// DefaultReadTimeoutMs is the bus read timeout programmed into the bridge
const DefaultReadTimeoutMs = 500

// Conn is a connection to one instrument behind a Prologix-style bridge
type Conn struct {
	rwc  io.ReadWriteCloser
	addr int
}

// Wrap configures the bridge on rwc as controller-in-charge for the
// instrument at the given primary address (0-30) and returns the
// transparent connection.  The bridge is put in read-after-write mode so
// query replies arrive without an explicit ++read.
func Wrap(rwc io.ReadWriteCloser, addr int) (*Conn, error) {
	if addr < 0 || addr > 30 {
		return nil, fmt.Errorf("gpib: primary address %d out of range 0-30", addr)
	}
	c := &Conn{rwc: rwc, addr: addr}
	setup := []string{
		"mode 1", // controller-in-charge
		fmt.Sprintf("addr %d", addr),
		"auto 1", // read-after-write; replies come back unprompted
		"eoi 1",  // assert EOI with the last byte
		"eos 3",  // no extra termination; the session supplies its own
		"eot_enable 0",
		fmt.Sprintf("read_tmo_ms %d", DefaultReadTimeoutMs),
	}
	for _, cmd := range setup {
		if err := c.Command(cmd); err != nil {
			rwc.Close()
			return nil, err
		}
	}
	return c, nil
}

// Command sends a configuration command to the bridge itself.  The "++"
// prefix and terminator are added here.
func (c *Conn) Command(cmd string) error {
	_, err := fmt.Fprintf(c.rwc, "++%s\n", cmd)
	return err
}

// Addr returns the primary address the bridge is talking to
func (c *Conn) Addr() int {
	return c.addr
}

func (c *Conn) Read(p []byte) (int, error) {
	return c.rwc.Read(p)
}

func (c *Conn) Write(p []byte) (int, error) {
	return c.rwc.Write(p)
}

// Close closes the underlying link to the bridge
func (c *Conn) Close() error {
	return c.rwc.Close()
}

// NewConnMaker lifts a maker for the raw link to the bridge (TCP or serial)
// into a maker for a configured GPIB connection, suitable for comm.NewPool
func NewConnMaker(inner comm.CreationFunc, addr int) comm.CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		rwc, err := inner()
		if err != nil {
			return nil, err
		}
		return Wrap(rwc, addr)
	}
}
