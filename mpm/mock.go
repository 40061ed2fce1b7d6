package mpm

import (
	"errors"
	"math"
	"sync"
)

// Mock simulates an MPM-210 mainframe with one module.  Completion is
// deterministic: the logging status reports running until it has been
// polled PollsToComplete times after arming, then reports complete with a
// synthesized power log.  Set PollsToComplete negative for a meter that
// never finishes, which is how timeout handling is exercised.
type Mock struct {
	sync.Mutex

	// PollsToComplete is how many LoggingStatus calls after
	// StartMeasurement report running before completion; negative means
	// never complete
	PollsToComplete int

	cfg    SweepConfig
	armed  bool
	polls  int
	status MeasStatus
	data   []float64
}

// NewMock returns a mock meter which completes on the first status poll
// after arming
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Identification() (string, error) {
	return "SANTEC,MPM-210H,99999999,Ver.2.0", nil
}

func (m *Mock) ConfigureSweep(cfg SweepConfig) error {
	m.Lock()
	defer m.Unlock()
	if cfg.Stop <= cfg.Start {
		return errors.New("mpm: sweep stop must exceed start")
	}
	if cfg.Step <= 0 {
		return errors.New("mpm: sweep step must be positive")
	}
	m.cfg = cfg
	return nil
}

func (m *Mock) StartMeasurement() error {
	m.Lock()
	defer m.Unlock()
	m.armed = true
	m.polls = 0
	m.status = MeasRunning
	m.data = nil
	return nil
}

func (m *Mock) StopMeasurement() error {
	m.Lock()
	defer m.Unlock()
	if m.armed && m.status == MeasRunning {
		m.status = MeasStopped
	}
	m.armed = false
	return nil
}

func (m *Mock) LoggingStatus() (LoggingStatus, error) {
	m.Lock()
	defer m.Unlock()
	if !m.armed {
		return LoggingStatus{Status: m.status, Count: len(m.data)}, nil
	}
	if m.PollsToComplete >= 0 && m.polls >= m.PollsToComplete {
		m.complete()
	}
	m.polls++
	return LoggingStatus{Status: m.status, Count: len(m.data)}, nil
}

// complete synthesizes a smooth insertion-loss style trace over the
// configured range.  Caller holds the lock.
func (m *Mock) complete() {
	n := m.cfg.Points()
	if n < 1 {
		n = 1
	}
	m.data = make([]float64, n)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n)
		m.data[i] = -3 - 2*math.Sin(2*math.Pi*frac)
	}
	m.status = MeasComplete
	m.armed = false
}

func (m *Mock) ReadPower(module int) ([]float64, error) {
	return []float64{-3.0, -3.1, -2.9, -3.05}, nil
}

func (m *Mock) ReadLogData(module, channel int) ([]float64, error) {
	m.Lock()
	defer m.Unlock()
	if m.status != MeasComplete {
		return nil, errors.New("mpm: no completed measurement to read")
	}
	out := make([]float64, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *Mock) Raw(s string) (string, error) {
	return "", errors.New("mpm: mock does not accept raw commands")
}
