package pcu

import (
	"testing"

	"github.com/photonbench/golight/scpi"
)

func TestPolarizationStrings(t *testing.T) {
	cases := map[Polarization]string{
		VerticalLinear:    "Vertical Linear Polarization",
		HorizontalLinear:  "Horizontal Linear Polarization",
		Plus45Linear:      "+45° Linear Polarization",
		Minus45Linear:     "-45° Linear Polarization",
		RightHandCircular: "Right Hand Circular Polarization",
		LeftHandCircular:  "Left Hand Circular Polarization",
		Polarization(0):   "Unknown Polarization State",
		Polarization(7):   "Unknown Polarization State",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", p, got, want)
		}
	}
}

func TestPolarizationValid(t *testing.T) {
	for p := VerticalLinear; p <= LeftHandCircular; p++ {
		if !p.Valid() {
			t.Errorf("state %d should be valid", p)
		}
	}
	for _, p := range []Polarization{0, 7, -1} {
		if p.Valid() {
			t.Errorf("state %d should be invalid", p)
		}
	}
}

func TestDescribeErrorNeverEmpty(t *testing.T) {
	if got := DescribeError(-102); got == "" || got == scpi.UnknownCode {
		t.Errorf("got %q for a known code", got)
	}
	if got := DescribeError(12345); got != scpi.UnknownCode {
		t.Errorf("unknown code described as %q, expected sentinel", got)
	}
}

func TestMockRoundTrip(t *testing.T) {
	m := NewMock()
	if err := m.SetPolarization(RightHandCircular); err != nil {
		t.Fatal(err)
	}
	p, err := m.GetPolarization()
	if err != nil {
		t.Fatal(err)
	}
	if p != RightHandCircular {
		t.Errorf("got %v", p)
	}
	if err := m.SetPolarization(Polarization(9)); err == nil {
		t.Error("expected error for invalid state")
	}
}
