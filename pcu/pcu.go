/*Package pcu provides a driver for Santec PCU series polarization control
units in Legacy command mode.
*/
package pcu

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/photonbench/golight/comm"
	"github.com/photonbench/golight/scpi"
)

// Polarization is one of the unit's six settable output states
type Polarization int

// polarization states as numbered by the instrument
const (
	VerticalLinear    Polarization = 1
	HorizontalLinear  Polarization = 2
	Plus45Linear      Polarization = 3
	Minus45Linear     Polarization = 4
	RightHandCircular Polarization = 5
	LeftHandCircular  Polarization = 6
)

func (p Polarization) String() string {
	switch p {
	case VerticalLinear:
		return "Vertical Linear Polarization"
	case HorizontalLinear:
		return "Horizontal Linear Polarization"
	case Plus45Linear:
		return "+45° Linear Polarization"
	case Minus45Linear:
		return "-45° Linear Polarization"
	case RightHandCircular:
		return "Right Hand Circular Polarization"
	case LeftHandCircular:
		return "Left Hand Circular Polarization"
	}
	return "Unknown Polarization State"
}

// Valid is true for the six instrument-defined states
func (p Polarization) Valid() bool {
	return p >= VerticalLinear && p <= LeftHandCircular
}

// PCU talks to a polarization control unit
type PCU struct {
	*scpi.SCPI
}

// New creates a PCU driver talking over TCP at the given address
func New(addr string) *PCU {
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, 30*time.Second, maker)
	return NewFromPool(pool)
}

// NewFromPool creates a PCU driver over an existing pool
func NewFromPool(pool *comm.Pool) *PCU {
	engine := scpi.New(pool)
	engine.ErrorQuery = ":SYST:ERR?"
	engine.Codes = errorCodes
	engine.Limiter = rate.NewLimiter(rate.Limit(20), 5)
	return &PCU{SCPI: engine}
}

// Identification returns the *IDN? string
func (p *PCU) Identification() (string, error) {
	return p.ReadString("*IDN?")
}

// Reset issues *RST, aborting standby operation and clearing the queues
func (p *PCU) Reset() error {
	return p.Write("*RST")
}

// ClearStatus issues *CLS
func (p *PCU) ClearStatus() error {
	return p.Write("*CLS")
}

// SetPolarization commands one of the six output states
func (p *PCU) SetPolarization(state Polarization) error {
	if !state.Valid() {
		return fmt.Errorf("pcu: invalid polarization state %d", state)
	}
	return p.Write(fmt.Sprintf(":POL %d", state))
}

// GetPolarization returns the current output state
func (p *PCU) GetPolarization() (Polarization, error) {
	i, err := p.ReadInt(":POL?")
	return Polarization(i), err
}

// SetUnitDBm selects dBm (true) or mW (false) for the power monitor
func (p *PCU) SetUnitDBm(dbm bool) error {
	if dbm {
		return p.Write(":POW:UNIT 0")
	}
	return p.Write(":POW:UNIT 1")
}

// MonitorPower returns the power seen at the unit's monitor port
func (p *PCU) MonitorPower() (float64, error) {
	return p.ReadFloat(":POW:LEVEL?")
}

// Firmware returns the firmware version string
func (p *PCU) Firmware() (string, error) {
	return p.ReadString(":SYST:VERS?")
}

// Reboot restarts the unit
func (p *PCU) Reboot() error {
	return p.Write("SPEC:REB")
}
