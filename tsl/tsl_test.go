package tsl

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/photonbench/golight/scpi"
)

func TestSweepStatusStrings(t *testing.T) {
	cases := map[SweepStatus]string{
		SweepStopped:    "Stopped",
		SweepRunning:    "Running",
		SweepStandingBy: "Standing by trigger",
		SweepPreparing:  "Preparation for sweep start",
		SweepStatus(9):  "Unknown status",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", st, got, want)
		}
	}
}

func TestDescribeAlertNeverEmpty(t *testing.T) {
	if got := DescribeAlert("No07"); got != "Interlock detection" {
		t.Errorf("got %q", got)
	}
	if got := DescribeAlert("No99"); got != scpi.UnknownCode {
		t.Errorf("unknown alert described as %q, expected sentinel", got)
	}
	for code := range alertDescriptions {
		if DescribeAlert(code) == "" {
			t.Errorf("alert %s has empty description", code)
		}
	}
}

func TestMockSweepChoreography(t *testing.T) {
	m := NewMock()
	cfg := SweepConfig{Start: 1500, Stop: 1510, Speed: 50, TriggerStep: 1}
	if err := m.ConfigureSweep(cfg); err != nil {
		t.Fatal(err)
	}
	// trigger before arming must be rejected
	if err := m.SoftTrigger(); err == nil {
		t.Fatal("soft trigger accepted with no sweep armed")
	}
	if err := m.StartSweep(); err != nil {
		t.Fatal(err)
	}
	st, _ := m.SweepStatus()
	if st != SweepStandingBy {
		t.Fatalf("armed status %v, expected standing by", st)
	}
	if err := m.SoftTrigger(); err != nil {
		t.Fatal(err)
	}
	st, _ = m.SweepStatus()
	if st != SweepStopped {
		t.Fatalf("post-sweep status %v, expected stopped", st)
	}
	n, _ := m.LoggingCount()
	if n != 11 {
		t.Errorf("logged %d points, expected 11", n)
	}
	wvl, err := m.ReadLoggedWavelengths()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1500, 1501, 1502, 1503, 1504, 1505, 1506, 1507, 1508, 1509, 1510}
	if diff := cmp.Diff(want, wvl); diff != "" {
		t.Errorf("wavelength log mismatch (-want +got):\n%s", diff)
	}
}

func TestMockRejectsBackwardSweep(t *testing.T) {
	m := NewMock()
	if err := m.ConfigureSweep(SweepConfig{Start: 1600, Stop: 1500, TriggerStep: 1}); err == nil {
		t.Error("expected error for stop below start")
	}
}
