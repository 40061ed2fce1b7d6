package pcu

import (
	"fmt"
	"sync"
)

// Mock simulates a PCU in memory
type Mock struct {
	sync.Mutex
	state Polarization
	dbm   bool
	power float64
}

// NewMock returns a mock PCU in vertical linear polarization with a
// plausible monitor power
func NewMock() *Mock {
	return &Mock{state: VerticalLinear, dbm: true, power: -4.2}
}

func (m *Mock) Identification() (string, error) {
	return "SANTEC,PCU-100,99999999,0001.0000.0001", nil
}

func (m *Mock) SetPolarization(state Polarization) error {
	if !state.Valid() {
		return fmt.Errorf("pcu: invalid polarization state %d", state)
	}
	m.Lock()
	defer m.Unlock()
	m.state = state
	return nil
}

func (m *Mock) GetPolarization() (Polarization, error) {
	m.Lock()
	defer m.Unlock()
	return m.state, nil
}

func (m *Mock) SetUnitDBm(dbm bool) error {
	m.Lock()
	defer m.Unlock()
	m.dbm = dbm
	return nil
}

func (m *Mock) MonitorPower() (float64, error) {
	m.Lock()
	defer m.Unlock()
	return m.power, nil
}

func (m *Mock) Reboot() error { return nil }

func (m *Mock) Raw(s string) (string, error) {
	return "", fmt.Errorf("pcu: mock does not accept raw commands")
}
