/*Package tsl provides a driver for Santec TSL-500/TSL-570 series tunable
lasers, in their Legacy command mode, over any transport the comm pool can
hold (LAN, a GPIB bridge, or USB).

The sweep-related methods are the laser's half of a synchronized
measurement: arm the sweep, wait for the laser to stand by for its trigger,
fire the software trigger, and read the wavelength log back when done.
*/
package tsl

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/photonbench/golight/comm"
	"github.com/photonbench/golight/scpi"
)

// SweepStatus is the laser's answer to :WAV:SWE?
type SweepStatus int

// sweep statuses as reported by the instrument
const (
	SweepStopped    SweepStatus = 0
	SweepRunning    SweepStatus = 1
	SweepStandingBy SweepStatus = 3 // standing by for a trigger
	SweepPreparing  SweepStatus = 4
)

func (s SweepStatus) String() string {
	switch s {
	case SweepStopped:
		return "Stopped"
	case SweepRunning:
		return "Running"
	case SweepStandingBy:
		return "Standing by trigger"
	case SweepPreparing:
		return "Preparation for sweep start"
	}
	return "Unknown status"
}

// SweepConfig holds the knobs for one continuous sweep.  Wavelengths in nm,
// speed in nm/s, power in dBm, trigger step in nm.
type SweepConfig struct {
	Start       float64 `json:"start"`
	Stop        float64 `json:"stop"`
	Speed       float64 `json:"speed"`
	Power       float64 `json:"power"`
	TriggerStep float64 `json:"triggerStep"`
}

// TSL570 talks to a TSL series laser.  Methods follow the instrument's
// grouping: identification, output, wavelength, sweep, logging.
type TSL570 struct {
	*scpi.SCPI
}

// New creates a laser driver talking over TCP at the given address, which
// should include the port
func New(addr string) *TSL570 {
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, 30*time.Second, maker)
	return NewFromPool(pool)
}

// NewFromPool creates a laser driver over an existing pool, e.g. one whose
// maker goes through a GPIB bridge
func NewFromPool(pool *comm.Pool) *TSL570 {
	engine := scpi.New(pool)
	engine.ErrorQuery = ":SYST:ERR?"
	engine.Codes = commandCodes
	// the mainframe chokes above a few tens of commands per second
	engine.Limiter = rate.NewLimiter(rate.Limit(20), 5)
	return &TSL570{SCPI: engine}
}

// Identification returns the *IDN? string,
// e.g. SANTEC,TSL-570,21020001,0001.0000.0001
func (t *TSL570) Identification() (string, error) {
	return t.ReadString("*IDN?")
}

// Reset issues *RST, aborting standby operation and clearing the command
// input and error queues
func (t *TSL570) Reset() error {
	return t.Write("*RST")
}

// ClearStatus issues *CLS, clearing the event registers and the error queue
func (t *TSL570) ClearStatus() error {
	return t.Write("*CLS")
}

// OperationComplete returns true once all queued operations have finished
func (t *TSL570) OperationComplete() (bool, error) {
	return t.ReadBool("*OPC?")
}

// SetOutput turns the laser emission on or off
func (t *TSL570) SetOutput(on bool) error {
	if on {
		return t.Write(":POW:STAT 1")
	}
	return t.Write(":POW:STAT 0")
}

// GetOutput returns true if the laser is emitting
func (t *TSL570) GetOutput() (bool, error) {
	return t.ReadBool(":POW:STAT?")
}

// SetPower sets the output power level in the current power unit
func (t *TSL570) SetPower(p float64) error {
	return t.Write(fmt.Sprintf(":POW %.2f", p))
}

// GetPower returns the output power level setting
func (t *TSL570) GetPower() (float64, error) {
	return t.ReadFloat(":POW?")
}

// MonitorPower returns the power measured by the built-in monitor
func (t *TSL570) MonitorPower() (float64, error) {
	return t.ReadFloat(":POW:ACT?")
}

// SetWavelength moves the laser to a wavelength in nm
func (t *TSL570) SetWavelength(nm float64) error {
	return t.Write(fmt.Sprintf(":WAV %.4f", nm))
}

// GetWavelength returns the current wavelength in nm
func (t *TSL570) GetWavelength() (float64, error) {
	return t.ReadFloat(":WAV?")
}

// SetAttenuator sets the attenuator value in dB, 0 to 30
func (t *TSL570) SetAttenuator(db float64) error {
	return t.Write(fmt.Sprintf(":POW:ATT %.2f", db))
}

// GetAttenuator returns the attenuator value in dB
func (t *TSL570) GetAttenuator() (float64, error) {
	return t.ReadFloat(":POW:ATT?")
}

// SetCoherenceControl turns coherence control on or off
func (t *TSL570) SetCoherenceControl(on bool) error {
	if on {
		return t.Write(":COHC 1")
	}
	return t.Write(":COHC 0")
}

// SetFineTuning offsets the frequency within the fine-tuning range,
// -100 to +100 percent
func (t *TSL570) SetFineTuning(pct float64) error {
	return t.Write(fmt.Sprintf(":WAV:FIN %.2f", pct))
}

// DisableFineTuning ends fine-tuning operation and returns the laser to
// its set wavelength
func (t *TSL570) DisableFineTuning() error {
	return t.Write(":WAV:FIN:DIS")
}

// ConfigureSweep programs one continuous one-way sweep.  Units and control
// modes are forced to the values the synchronized measurement expects:
// dBm, nm, automatic power control, coherence control off, shutter open.
func (t *TSL570) ConfigureSweep(cfg SweepConfig) error {
	cmds := []string{
		":POW:UNIT 0", // dBm
		":WAV:UNIT 0", // nm
		":POW:ATT:AUT 1",
		":COHC 0",
		":POW:SHUT 0",
		fmt.Sprintf(":POW %.2f", cfg.Power),
		":WAV:SWE:MOD 1", // continuous, one way
		fmt.Sprintf(":WAV:SWE:STAR %.4f", cfg.Start),
		fmt.Sprintf(":WAV:SWE:STOP %.4f", cfg.Stop),
		fmt.Sprintf(":WAV:SWE:SPE %g", cfg.Speed),
		fmt.Sprintf(":TRIG:OUTP:STEP %.4f", cfg.TriggerStep),
	}
	for _, cmd := range cmds {
		if err := t.Write(cmd); err != nil {
			return err
		}
	}
	return nil
}

// SweepStatus returns the sweep state machine's position
func (t *TSL570) SweepStatus() (SweepStatus, error) {
	i, err := t.ReadInt(":WAV:SWE?")
	return SweepStatus(i), err
}

// StartSweep arms a single sweep.  With trigger standby engaged the laser
// moves to SweepStandingBy and waits for SoftTrigger.
func (t *TSL570) StartSweep() error {
	return t.Write(":WAV:SWE 1")
}

// StopSweep aborts a sweep in progress
func (t *TSL570) StopSweep() error {
	return t.Write(":WAV:SWE 0")
}

// SoftTrigger fires the software trigger, starting a sweep from trigger
// standby
func (t *TSL570) SoftTrigger() error {
	return t.Write(":WAV:SWE:SOFT")
}

// LoggingCount returns the number of points in the wavelength log
func (t *TSL570) LoggingCount() (int, error) {
	return t.ReadInt(":READ:POIN?")
}

// ReadLoggedWavelengths reads the wavelength log from the last sweep.
// The reply is a binary block of little-endian float32, nm.
func (t *TSL570) ReadLoggedWavelengths() ([]float64, error) {
	raw, err := t.ReadBlock("READ:DAT?")
	if err != nil {
		return nil, err
	}
	return scpi.DecodeFloat32LE(raw)
}

// ReadLoggedPowers reads the power monitor log from the last sweep
func (t *TSL570) ReadLoggedPowers() ([]float64, error) {
	raw, err := t.ReadBlock(":READ:DAT:POW?")
	if err != nil {
		return nil, err
	}
	return scpi.DecodeFloat32LE(raw)
}

// CurrentAlert queries :SYST:ALER? and converts a reported alert to an
// Alert error, nil when the laser is healthy
func (t *TSL570) CurrentAlert() error {
	resp, err := t.ReadString(":SYST:ALER?")
	if err != nil {
		return err
	}
	if resp == "" || resp == "0" {
		return nil
	}
	return Alert{Code: resp}
}

// Firmware returns the firmware version string
func (t *TSL570) Firmware() (string, error) {
	return t.ReadString(":SYST:VERS?")
}
