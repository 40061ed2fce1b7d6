package sme

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// Sample is one point of a completed sweep: the wavelength the laser was
// at and the power the meter logged there
type Sample struct {
	Wavelength float64 `json:"wavelength"`
	Power      float64 `json:"power"`
}

// Result is the outcome of a completed sweep.  It is immutable; accessors
// return copies.
type Result struct {
	samples []Sample
	elapsed time.Duration
}

// Samples returns a copy of the measured points
func (r *Result) Samples() []Sample {
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Len returns the number of measured points
func (r *Result) Len() int {
	return len(r.samples)
}

// Elapsed returns the wall time the sweep took
func (r *Result) Elapsed() time.Duration {
	return r.elapsed
}

// EncodeCSV writes the result to w with a header row.  Wavelengths in nm,
// powers in dBm.
func (r *Result) EncodeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"wavelength_nm", "power_dbm"}); err != nil {
		return err
	}
	for _, s := range r.samples {
		row := []string{
			strconv.FormatFloat(s.Wavelength, 'f', 4, 64),
			strconv.FormatFloat(s.Power, 'f', 3, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
