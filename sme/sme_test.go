package sme

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/photonbench/golight/mpm"
	"github.com/photonbench/golight/scpi"
	"github.com/photonbench/golight/tsl"
)

func testConfig() Config {
	return Config{
		Start:        1500,
		Stop:         1510,
		Step:         1,
		Speed:        50,
		Channel:      1,
		PollInterval: 10 * time.Millisecond,
		Timeout:      time.Second,
	}
}

// stateSpy records the sweep's state at each meter status poll
type stateSpy struct {
	*mpm.Mock
	sweep *Sweep
	seen  []State
}

func (s *stateSpy) LoggingStatus() (mpm.LoggingStatus, error) {
	s.seen = append(s.seen, s.sweep.State())
	return s.Mock.LoggingStatus()
}

func TestSweepSuccessPath(t *testing.T) {
	laser := tsl.NewMock()
	meter := &stateSpy{Mock: mpm.NewMock()}
	s := New(laser, meter)
	meter.sweep = s

	if _, err := s.Result(); err == nil {
		t.Fatal("result observable on a fresh sweep")
	}
	if err := s.Configure(testConfig()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Result(); err == nil {
		t.Fatal("result observable before Run")
	}
	if on, _ := laser.GetOutput(); !on {
		t.Error("Configure did not enable the laser output")
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.State() != Complete {
		t.Fatalf("state %v after success, expected Complete", s.State())
	}
	for _, st := range meter.seen {
		if st != Polling {
			t.Errorf("meter polled in state %v, expected Polling", st)
		}
	}

	res, err := s.Result()
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 11 {
		t.Fatalf("result has %d samples, expected 11", res.Len())
	}
	samples := res.Samples()
	if samples[0].Wavelength != 1500 || samples[10].Wavelength != 1510 {
		t.Errorf("wavelength axis spans %g..%g, expected 1500..1510",
			samples[0].Wavelength, samples[10].Wavelength)
	}

	var sb strings.Builder
	if err := res.EncodeCSV(&sb); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if lines[0] != "wavelength_nm,power_dbm" {
		t.Errorf("csv header %q", lines[0])
	}
	if len(lines) != 12 {
		t.Errorf("csv has %d lines, expected header plus 11 rows", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1500.0000,") {
		t.Errorf("first row %q", lines[1])
	}
}

func TestSweepTimesOutWithinBound(t *testing.T) {
	laser := tsl.NewMock()
	meter := mpm.NewMock()
	meter.PollsToComplete = -1
	s := New(laser, meter)

	cfg := testConfig()
	cfg.PollInterval = 50 * time.Millisecond
	cfg.Timeout = 300 * time.Millisecond
	if err := s.Configure(cfg); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	err := s.Run(context.Background())
	elapsed := time.Since(start)

	var te scpi.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if te.Waited != cfg.Timeout {
		t.Errorf("Waited = %v, expected %v", te.Waited, cfg.Timeout)
	}
	if s.State() != TimedOut {
		t.Errorf("state %v, expected TimedOut", s.State())
	}
	if elapsed < cfg.Timeout-cfg.PollInterval {
		t.Errorf("returned after %v, before the %v timeout", elapsed, cfg.Timeout)
	}
	if elapsed > cfg.Timeout+3*cfg.PollInterval {
		t.Errorf("returned after %v, well past the %v timeout", elapsed, cfg.Timeout)
	}
	if _, err := s.Result(); err == nil {
		t.Error("result observable after timeout")
	}

	// abort must have forcibly stopped the meter
	st, _ := meter.LoggingStatus()
	if st.Status != mpm.MeasStopped {
		t.Errorf("meter status %v after abort, expected forcibly stopped", st.Status)
	}
}

// brokenMeter faults when armed
type brokenMeter struct {
	*mpm.Mock
}

func (b *brokenMeter) StartMeasurement() error {
	return errors.New("mpm: connection reset")
}

func TestSweepFaultsOnInstrumentError(t *testing.T) {
	s := New(tsl.NewMock(), &brokenMeter{Mock: mpm.NewMock()})
	if err := s.Configure(testConfig()); err != nil {
		t.Fatal(err)
	}
	err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected the meter's error")
	}
	if s.State() != Faulted {
		t.Errorf("state %v, expected Faulted", s.State())
	}
	if _, err := s.Result(); err == nil {
		t.Error("result observable after fault")
	}
}

func TestSweepRequiresConfigure(t *testing.T) {
	s := New(tsl.NewMock(), mpm.NewMock())
	if err := s.Run(context.Background()); err == nil {
		t.Error("Run accepted an unconfigured sweep")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []Config{
		{Start: 1600, Stop: 1500, Step: 1, Speed: 50},
		{Start: 1500, Stop: 1600, Step: 0, Speed: 50},
		{Start: 1500, Stop: 1600, Step: 1, Speed: 0},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d accepted invalid config", i)
		}
	}
	good := testConfig()
	if err := good.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestSweepReusableAfterTerminalState(t *testing.T) {
	laser := tsl.NewMock()
	meter := mpm.NewMock()
	meter.PollsToComplete = -1
	s := New(laser, meter)

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.PollInterval = 10 * time.Millisecond
	if err := s.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected a timeout on the first run")
	}

	meter.PollsToComplete = 0
	cfg.Timeout = time.Second
	if err := s.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.State() != Complete {
		t.Errorf("state %v after reconfigure and rerun, expected Complete", s.State())
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	meter := mpm.NewMock()
	meter.PollsToComplete = -1
	s := New(tsl.NewMock(), meter)
	if err := s.Configure(testConfig()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.State() != Faulted {
		t.Errorf("state %v after cancellation, expected Faulted", s.State())
	}
}
