package mpm

import (
	"testing"

	"github.com/photonbench/golight/scpi"
)

func TestDescribeErrorNeverEmpty(t *testing.T) {
	if got := DescribeError(-222); got != "Data out of range" {
		t.Errorf("got %q", got)
	}
	if got := DescribeError(42424); got != scpi.UnknownCode {
		t.Errorf("unknown code described as %q, expected sentinel", got)
	}
	for code := range errorCodes {
		if DescribeError(code) == "" {
			t.Errorf("code %d has empty description", code)
		}
	}
}

func TestSweepConfigPoints(t *testing.T) {
	cfg := SweepConfig{Start: 1500, Stop: 1600, Step: 0.1}
	if got := cfg.Points(); got != 1001 {
		t.Errorf("got %d points, expected 1001", got)
	}
}

func TestMockCompletesAfterConfiguredPolls(t *testing.T) {
	m := NewMock()
	m.PollsToComplete = 3
	if err := m.ConfigureSweep(SweepConfig{Start: 1500, Stop: 1510, Step: 1, Speed: 50}); err != nil {
		t.Fatal(err)
	}
	if err := m.StartMeasurement(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		st, err := m.LoggingStatus()
		if err != nil {
			t.Fatal(err)
		}
		if st.Complete() {
			t.Fatalf("completed on poll %d, expected to still be running", i)
		}
	}
	st, err := m.LoggingStatus()
	if err != nil {
		t.Fatal(err)
	}
	if !st.Complete() {
		t.Fatal("expected completion on the fourth poll")
	}
	if st.Count != 11 {
		t.Errorf("logged %d points, expected 11", st.Count)
	}
	data, err := m.ReadLogData(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 11 {
		t.Errorf("read %d points, expected 11", len(data))
	}
}

func TestMockNeverCompletes(t *testing.T) {
	m := NewMock()
	m.PollsToComplete = -1
	m.ConfigureSweep(SweepConfig{Start: 1500, Stop: 1510, Step: 1, Speed: 50})
	m.StartMeasurement()
	for i := 0; i < 50; i++ {
		st, _ := m.LoggingStatus()
		if st.Complete() {
			t.Fatal("never-complete mock completed")
		}
	}
	if _, err := m.ReadLogData(0, 1); err == nil {
		t.Error("expected error reading log before completion")
	}
}

func TestMockStopForciblyStops(t *testing.T) {
	m := NewMock()
	m.PollsToComplete = -1
	m.ConfigureSweep(SweepConfig{Start: 1500, Stop: 1510, Step: 1, Speed: 50})
	m.StartMeasurement()
	m.StopMeasurement()
	st, _ := m.LoggingStatus()
	if st.Status != MeasStopped {
		t.Errorf("status %v after stop, expected forcibly stopped", st.Status)
	}
}
