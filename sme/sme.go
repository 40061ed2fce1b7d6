/*Package sme runs synchronized single-sweep measurements: a tunable laser
sweeps wavelength while an optical power meter logs samples on the laser's
trigger train.

The choreography, in instrument terms: arm the meter, arm the laser's
sweep, wait for the laser to stand by for its trigger, fire the software
trigger, then poll the meter's logging status until it reports complete and
read both instruments' logs back.

A Sweep moves through Idle, Triggered, Polling, and one of Complete,
TimedOut, or Faulted.  The result is only observable in Complete.
*/
package sme

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/photonbench/golight/monitor"
	"github.com/photonbench/golight/mpm"
	"github.com/photonbench/golight/scpi"
	"github.com/photonbench/golight/tsl"
)

// State is the position of a sweep in its lifecycle
type State int

// sweep lifecycle states
const (
	Idle State = iota
	Triggered
	Polling
	Complete
	TimedOut
	Faulted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Triggered:
		return "Triggered"
	case Polling:
		return "Polling"
	case Complete:
		return "Complete"
	case TimedOut:
		return "TimedOut"
	case Faulted:
		return "Faulted"
	}
	return "Invalid"
}

const (
	// DefaultPollInterval is how often the meter's logging status is
	// polled during a sweep
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultTimeout bounds the whole sweep, arming through completion
	DefaultTimeout = 60 * time.Second
)

// Laser is the half of the sweep the tunable laser provides
type Laser interface {
	SetOutput(bool) error
	GetOutput() (bool, error)
	ConfigureSweep(tsl.SweepConfig) error
	SweepStatus() (tsl.SweepStatus, error)
	StartSweep() error
	StopSweep() error
	SoftTrigger() error
	ReadLoggedWavelengths() ([]float64, error)
}

// PowerMeter is the half of the sweep the power meter provides
type PowerMeter interface {
	ConfigureSweep(mpm.SweepConfig) error
	StartMeasurement() error
	StopMeasurement() error
	LoggingStatus() (mpm.LoggingStatus, error)
	ReadLogData(module, channel int) ([]float64, error)
}

// Config holds the parameters of one synchronized sweep.  Wavelengths in
// nm, power in dBm, speed in nm/s.
type Config struct {
	Start float64 `json:"start" yaml:"start"`
	Stop  float64 `json:"stop" yaml:"stop"`
	Step  float64 `json:"step" yaml:"step"`
	Power float64 `json:"power" yaml:"power"`
	Speed float64 `json:"speed" yaml:"speed"`

	// MPM215 selects the auto-gain measurement mode on the meter
	MPM215 bool `json:"mpm215" yaml:"mpm215"`

	// Module and Channel select which meter port's log becomes the result
	Module  int `json:"module" yaml:"module"`
	Channel int `json:"channel" yaml:"channel"`

	// PollInterval and Timeout default to DefaultPollInterval and
	// DefaultTimeout when zero
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
}

// Validate returns an error describing the first problem with the config
func (c Config) Validate() error {
	if c.Stop <= c.Start {
		return fmt.Errorf("sme: stop wavelength %g must exceed start %g", c.Stop, c.Start)
	}
	if c.Step <= 0 {
		return fmt.Errorf("sme: step %g must be positive", c.Step)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("sme: speed %g must be positive", c.Speed)
	}
	return nil
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval == 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}

func (c Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Sweep drives one laser and one meter through synchronized measurements.
// A Sweep may be reused: Configure and Run again after a terminal state.
type Sweep struct {
	laser Laser
	meter PowerMeter
	log   *logrus.Entry

	mu         sync.Mutex
	cfg        Config
	configured bool
	state      State
	result     *Result
	lastStatus string
}

// New returns an idle Sweep over the given instruments
func New(laser Laser, meter PowerMeter) *Sweep {
	return &Sweep{
		laser: laser,
		meter: meter,
		log:   logrus.WithField("component", "sme"),
	}
}

// SetLogger replaces the logger, e.g. to route through a configured root
func (s *Sweep) SetLogger(l *logrus.Logger) {
	s.log = l.WithField("component", "sme")
}

// State returns the sweep's current lifecycle state
func (s *Sweep) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the measurement if the sweep is Complete, and an error in
// every other state
func (s *Sweep) Result() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Complete {
		return nil, fmt.Errorf("sme: no result in state %v", s.state)
	}
	return s.result, nil
}

// Configure validates the config and programs both instruments.  The sweep
// returns to Idle, dropping any previous result.
func (s *Sweep) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Triggered || s.state == Polling {
		return errors.New("sme: cannot reconfigure a running sweep")
	}
	s.log.WithFields(logrus.Fields{
		"start": cfg.Start,
		"stop":  cfg.Stop,
		"step":  cfg.Step,
		"speed": cfg.Speed,
	}).Info("configuring instruments")
	err := s.laser.ConfigureSweep(tsl.SweepConfig{
		Start:       cfg.Start,
		Stop:        cfg.Stop,
		Speed:       cfg.Speed,
		Power:       cfg.Power,
		TriggerStep: cfg.Step,
	})
	if err != nil {
		return err
	}
	err = s.meter.ConfigureSweep(mpm.SweepConfig{
		Start:  cfg.Start,
		Stop:   cfg.Stop,
		Step:   cfg.Step,
		Speed:  cfg.Speed,
		MPM215: cfg.MPM215,
	})
	if err != nil {
		return err
	}
	on, err := s.laser.GetOutput()
	if err != nil {
		return err
	}
	if !on {
		if err := s.laser.SetOutput(true); err != nil {
			return err
		}
	}
	s.cfg = cfg
	s.configured = true
	s.state = Idle
	s.result = nil
	s.lastStatus = ""
	return nil
}

// Run executes one synchronized sweep.  It blocks until the measurement
// completes, times out, faults, or ctx is cancelled.  On success the
// result becomes available from Result.
func (s *Sweep) Run(ctx context.Context) error {
	s.mu.Lock()
	if !s.configured {
		s.mu.Unlock()
		return errors.New("sme: Configure before Run")
	}
	if s.state == Triggered || s.state == Polling {
		s.mu.Unlock()
		return errors.New("sme: sweep already running")
	}
	s.state = Idle
	s.result = nil
	s.mu.Unlock()

	start := time.Now()
	err := s.run(ctx, start)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		s.setState(Complete)
		monitor.SweepsTotal.WithLabelValues("complete").Inc()
		monitor.SweepDuration.Observe(elapsed.Seconds())
		s.log.WithField("elapsed", elapsed).Info("sweep complete")
	case isTimeout(err):
		s.abort()
		s.setState(TimedOut)
		monitor.SweepsTotal.WithLabelValues("timeout").Inc()
		s.log.WithField("elapsed", elapsed).Warn("sweep timed out")
	default:
		s.abort()
		s.setState(Faulted)
		monitor.SweepsTotal.WithLabelValues("fault").Inc()
		s.log.WithError(err).Error("sweep faulted")
	}
	return err
}

func (s *Sweep) run(ctx context.Context, start time.Time) error {
	cfg := s.snapshot()
	deadline := start.Add(cfg.timeout())

	// meter first; it must be waiting on its trigger input before the
	// laser produces the trigger train
	if err := s.meter.StartMeasurement(); err != nil {
		return err
	}
	if err := s.laser.StartSweep(); err != nil {
		return err
	}
	s.setState(Triggered)

	if err := s.waitStandby(ctx, deadline, cfg); err != nil {
		return err
	}
	if err := s.laser.SoftTrigger(); err != nil {
		return err
	}
	s.setState(Polling)

	if err := s.pollCompletion(ctx, deadline, cfg); err != nil {
		return err
	}
	return s.collect(cfg, time.Since(start))
}

// waitStandby waits for the laser to report it is standing by for its
// trigger, nudging the sweep start again if the laser fell back to stopped
func (s *Sweep) waitStandby(ctx context.Context, deadline time.Time, cfg Config) error {
	for {
		st, err := s.laser.SweepStatus()
		if err != nil {
			return err
		}
		s.setLastStatus(st.String())
		if st == tsl.SweepStandingBy {
			return nil
		}
		if st == tsl.SweepStopped {
			if err := s.laser.StartSweep(); err != nil {
				return err
			}
		}
		if time.Now().After(deadline) {
			return scpi.TimeoutError{LastStatus: st.String(), Waited: cfg.timeout()}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.pollInterval()):
		}
	}
}

// pollCompletion polls the meter until logging completes or the deadline
// passes
func (s *Sweep) pollCompletion(ctx context.Context, deadline time.Time, cfg Config) error {
	tick := time.NewTicker(cfg.pollInterval())
	defer tick.Stop()
	for {
		st, err := s.meter.LoggingStatus()
		if err != nil {
			return err
		}
		s.setLastStatus(fmt.Sprintf("%d,%d", st.Status, st.Count))
		s.log.WithFields(logrus.Fields{
			"status": st.Status,
			"count":  st.Count,
		}).Debug("logging status")
		if st.Complete() {
			return nil
		}
		if st.Status == mpm.MeasStopped {
			return fmt.Errorf("sme: meter reported measurement forcibly stopped at %d points", st.Count)
		}
		if time.Now().After(deadline) {
			return scpi.TimeoutError{LastStatus: s.LastStatus(), Waited: cfg.timeout()}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// collect reads both logs back and zips them into the result.  If the
// laser's wavelength log is unavailable or disagrees in length, the
// wavelength axis is synthesized from the configured range.
func (s *Sweep) collect(cfg Config, elapsed time.Duration) error {
	powers, err := s.meter.ReadLogData(cfg.Module, cfg.Channel)
	if err != nil {
		return err
	}
	wavelengths, err := s.laser.ReadLoggedWavelengths()
	if err != nil || len(wavelengths) != len(powers) {
		if err != nil {
			s.log.WithError(err).Warn("wavelength log unavailable, synthesizing axis")
		}
		wavelengths = make([]float64, len(powers))
		for i := range wavelengths {
			wavelengths[i] = cfg.Start + float64(i)*cfg.Step
		}
	}
	samples := make([]Sample, len(powers))
	for i := range powers {
		samples[i] = Sample{Wavelength: wavelengths[i], Power: powers[i]}
	}
	s.mu.Lock()
	s.result = &Result{samples: samples, elapsed: elapsed}
	s.mu.Unlock()
	return nil
}

// abort stops both instruments after a failed sweep, ignoring secondary
// errors; the primary error is already on its way to the caller
func (s *Sweep) abort() {
	if err := s.laser.StopSweep(); err != nil {
		s.log.WithError(err).Warn("failed to stop laser sweep during abort")
	}
	if err := s.meter.StopMeasurement(); err != nil {
		s.log.WithError(err).Warn("failed to stop meter during abort")
	}
}

// Close releases both instruments if they hold closable transports
func (s *Sweep) Close() error {
	var err error
	if c, ok := s.laser.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	if c, ok := s.meter.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// LastStatus returns the most recent status string seen from either
// instrument during Run
func (s *Sweep) LastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus
}

func (s *Sweep) setLastStatus(str string) {
	s.mu.Lock()
	s.lastStatus = str
	s.mu.Unlock()
}

func (s *Sweep) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Sweep) snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func isTimeout(err error) bool {
	var te scpi.TimeoutError
	return errors.As(err, &te)
}
