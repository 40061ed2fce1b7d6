/*Package mpm provides a driver for Santec MPM-210/MPM-210H optical power
meter mainframes and their plug-in modules, in Legacy command mode.

In a synchronized measurement the meter is armed with MEAS before the
laser's sweep fires; STAT? is then polled until the meter reports logging
complete, and LOGG? reads the per-channel power log back as a binary block.
*/
package mpm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/photonbench/golight/comm"
	"github.com/photonbench/golight/scpi"
)

// MeasStatus is the first field of the reply to STAT?
type MeasStatus int

// measurement statuses as reported by the mainframe
const (
	MeasStopped  MeasStatus = -1 // forcibly stopped
	MeasRunning  MeasStatus = 0
	MeasComplete MeasStatus = 1
)

func (s MeasStatus) String() string {
	switch s {
	case MeasStopped:
		return "Forcibly stopped"
	case MeasRunning:
		return "Measuring"
	case MeasComplete:
		return "Completed"
	}
	return "Unknown status"
}

// LoggingStatus is the reply to STAT?, the measurement state plus how many
// points have been logged so far
type LoggingStatus struct {
	Status MeasStatus `json:"status"`
	Count  int        `json:"count"`
}

// Complete is true once logging has finished
func (l LoggingStatus) Complete() bool {
	return l.Status == MeasComplete
}

// SweepConfig holds the meter's half of a synchronized sweep.  Wavelengths
// in nm, speed in nm/s.
type SweepConfig struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
	Step  float64 `json:"step"`
	Speed float64 `json:"speed"`

	// MPM215 selects auto gain (SWEEP2); other modules use manual gain
	// on the first range (SWEEP1)
	MPM215 bool `json:"mpm215"`
}

// Points is the number of samples the sweep will log
func (c SweepConfig) Points() int {
	return int((c.Stop-c.Start)/c.Step) + 1
}

// MPM210 talks to an MPM-210 series mainframe
type MPM210 struct {
	*scpi.SCPI
}

// New creates a power meter driver talking over TCP at the given address
func New(addr string) *MPM210 {
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, 30*time.Second, maker)
	return NewFromPool(pool)
}

// NewFromPool creates a power meter driver over an existing pool
func NewFromPool(pool *comm.Pool) *MPM210 {
	engine := scpi.New(pool)
	engine.ErrorQuery = "ERR?"
	engine.Codes = errorCodes
	engine.Limiter = rate.NewLimiter(rate.Limit(20), 5)
	return &MPM210{SCPI: engine}
}

// Identification returns the *IDN? string,
// e.g. SANTEC,MPM-210H,00000000,Ver.2.0
func (m *MPM210) Identification() (string, error) {
	return m.ReadString("*IDN?")
}

// Modules reports which of the five slots hold a recognized module
func (m *MPM210) Modules() ([]bool, error) {
	resp, err := m.ReadString("IDIS?")
	if err != nil {
		return nil, err
	}
	fields := strings.Split(resp, ",")
	out := make([]bool, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f) == "1"
	}
	return out, nil
}

// ModuleInformation returns vendor, product code, serial, and firmware for
// a slot, e.g. Santec,MPM-211,00000000M211,Ver1.11
func (m *MPM210) ModuleInformation(module int) (string, error) {
	return m.ReadString(fmt.Sprintf("MMVER? %d", module))
}

// Zero deletes the electrical DC offset.  The mainframe takes about three
// seconds; do not command it again until that has passed.
func (m *MPM210) Zero() error {
	return m.Write("ZERO")
}

// SetUnitDBm selects dBm (true) or mW (false) for power readings
func (m *MPM210) SetUnitDBm(dbm bool) error {
	if dbm {
		return m.Write("UNIT 0")
	}
	return m.Write("UNIT 1")
}

// SetAutoGain selects automatic (true) or manual (false) gain ranging
func (m *MPM210) SetAutoGain(auto bool) error {
	if auto {
		return m.Write("AUTO 1")
	}
	return m.Write("AUTO 0")
}

// SetGainRange sets the manual TIA gain range, 1 to 5
func (m *MPM210) SetGainRange(level int) error {
	return m.Write(fmt.Sprintf("LEV %d", level))
}

// SetExternalTrigger enables (true) or disables (false) the hardware
// trigger input
func (m *MPM210) SetExternalTrigger(on bool) error {
	if on {
		return m.Write("TRIG 1")
	}
	return m.Write("TRIG 0")
}

// SetAveragingTime sets the averaging time in ms, 0.01 to 10000
func (m *MPM210) SetAveragingTime(ms float64) error {
	return m.Write(fmt.Sprintf("AVG %.2f", ms))
}

// measurement modes accepted by WMOD
const (
	ModeSweep1  = "SWEEP1"  // external trigger, manual gain
	ModeSweep2  = "SWEEP2"  // external trigger, auto gain (MPM-215)
	ModeConst1  = "CONST1"  // constant wavelength, internal timing
	ModeFreerun = "FREERUN" // untriggered continuous read
)

// MeasurementMode returns the reply to WMOD?
func (m *MPM210) MeasurementMode() (string, error) {
	return m.ReadString("WMOD?")
}

// SetMeasurementMode selects one of the WMOD measurement modes
func (m *MPM210) SetMeasurementMode(mode string) error {
	return m.Write("WMOD " + mode)
}

// ConfigureSweep programs the meter for an externally triggered wavelength
// sweep: dBm units, trigger input on, SWEEP1 or SWEEP2 mode by module
// type, and the logging depth implied by the wavelength range
func (m *MPM210) ConfigureSweep(cfg SweepConfig) error {
	mode := "SWEEP1"
	cmds := []string{"STOP", "UNIT 0", "AUTO 0", "LEV 1"}
	if cfg.MPM215 {
		mode = "SWEEP2"
		cmds = []string{"STOP", "UNIT 0", "AUTO 1"}
	}
	cmds = append(cmds,
		"TRIG 1",
		"WMOD "+mode,
		fmt.Sprintf("WSET %.3f,%.3f,%.3f", cfg.Start, cfg.Stop, cfg.Step),
		fmt.Sprintf("SPE %g", cfg.Speed),
		// the meter wants a representative wavelength for its response
		// correction during the sweep
		fmt.Sprintf("WAV %.3f", (cfg.Start+cfg.Stop)/2),
	)
	if !cfg.MPM215 {
		cmds = append(cmds, fmt.Sprintf("LOGN %d", cfg.Points()))
	}
	for _, cmd := range cmds {
		if err := m.Write(cmd); err != nil {
			return err
		}
	}
	return nil
}

// StartMeasurement arms logging; with the external trigger enabled the
// meter then waits for the laser's trigger train
func (m *MPM210) StartMeasurement() error {
	return m.Write("MEAS")
}

// StopMeasurement forcibly stops logging
func (m *MPM210) StopMeasurement() error {
	return m.Write("STOP")
}

// LoggingStatus polls STAT?, returning the measurement state and the
// number of points logged so far
func (m *MPM210) LoggingStatus() (LoggingStatus, error) {
	var out LoggingStatus
	resp, err := m.ReadString("STAT?")
	if err != nil {
		return out, err
	}
	fields := strings.SplitN(resp, ",", 2)
	if len(fields) != 2 {
		return out, fmt.Errorf("mpm: malformed STAT? reply %q", resp)
	}
	st, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return out, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return out, err
	}
	out.Status = MeasStatus(st)
	out.Count = count
	return out, nil
}

// ReadPower reads the live power on each channel of a module, in the
// current power unit
func (m *MPM210) ReadPower(module int) ([]float64, error) {
	resp, err := m.ReadString(fmt.Sprintf("READ? %d", module))
	if err != nil {
		return nil, err
	}
	fields := strings.Split(resp, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		out[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadLogData reads the logged sweep data for one channel of one module.
// The reply is a binary block of little-endian float32 in the current
// power unit.
func (m *MPM210) ReadLogData(module, channel int) ([]float64, error) {
	raw, err := m.ReadBlock(fmt.Sprintf("LOGG? %d,%d", module, channel))
	if err != nil {
		return nil, err
	}
	return scpi.DecodeFloat32LE(raw)
}
