package tsl

import (
	"errors"
	"sync"
)

// Mock simulates a TSL-570 in memory.  Sweeps follow the real trigger
// choreography: StartSweep arms to standing-by, SoftTrigger runs the sweep
// and synthesizes the wavelength log, after which the status is stopped.
type Mock struct {
	sync.Mutex
	cfg    SweepConfig
	status SweepStatus
	output bool
	power  float64
	wvl    float64
	log    []float64
}

// NewMock returns a mock laser at 1550 nm with the output off
func NewMock() *Mock {
	return &Mock{wvl: 1550}
}

func (m *Mock) Identification() (string, error) {
	return "SANTEC,TSL-570,99999999,0001.0000.0001", nil
}

func (m *Mock) SetOutput(on bool) error {
	m.Lock()
	defer m.Unlock()
	m.output = on
	return nil
}

func (m *Mock) GetOutput() (bool, error) {
	m.Lock()
	defer m.Unlock()
	return m.output, nil
}

func (m *Mock) SetPower(p float64) error {
	m.Lock()
	defer m.Unlock()
	m.power = p
	return nil
}

func (m *Mock) GetPower() (float64, error) {
	m.Lock()
	defer m.Unlock()
	return m.power, nil
}

func (m *Mock) SetWavelength(nm float64) error {
	m.Lock()
	defer m.Unlock()
	m.wvl = nm
	return nil
}

func (m *Mock) GetWavelength() (float64, error) {
	m.Lock()
	defer m.Unlock()
	return m.wvl, nil
}

func (m *Mock) ConfigureSweep(cfg SweepConfig) error {
	m.Lock()
	defer m.Unlock()
	if cfg.Stop <= cfg.Start {
		return errors.New("tsl: sweep stop must exceed start")
	}
	m.cfg = cfg
	return nil
}

func (m *Mock) SweepStatus() (SweepStatus, error) {
	m.Lock()
	defer m.Unlock()
	return m.status, nil
}

func (m *Mock) StartSweep() error {
	m.Lock()
	defer m.Unlock()
	m.status = SweepStandingBy
	return nil
}

func (m *Mock) StopSweep() error {
	m.Lock()
	defer m.Unlock()
	m.status = SweepStopped
	return nil
}

// SoftTrigger completes the armed sweep immediately, filling the
// wavelength log from the configured range and trigger step
func (m *Mock) SoftTrigger() error {
	m.Lock()
	defer m.Unlock()
	if m.status != SweepStandingBy {
		return errors.New("tsl: software trigger with no sweep armed")
	}
	n := int((m.cfg.Stop-m.cfg.Start)/m.cfg.TriggerStep) + 1
	m.log = make([]float64, n)
	for i := 0; i < n; i++ {
		m.log[i] = m.cfg.Start + float64(i)*m.cfg.TriggerStep
	}
	m.status = SweepStopped
	return nil
}

func (m *Mock) LoggingCount() (int, error) {
	m.Lock()
	defer m.Unlock()
	return len(m.log), nil
}

func (m *Mock) ReadLoggedWavelengths() ([]float64, error) {
	m.Lock()
	defer m.Unlock()
	out := make([]float64, len(m.log))
	copy(out, m.log)
	return out, nil
}

func (m *Mock) CurrentAlert() error { return nil }

func (m *Mock) Raw(s string) (string, error) {
	return "", errors.New("tsl: mock does not accept raw commands")
}
