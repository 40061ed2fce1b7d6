package tsl

import (
	"encoding/json"
	"go/types"
	"net/http"

	"goji.io/pat"

	"github.com/photonbench/golight/generichttp"
	"github.com/photonbench/golight/server"
)

// Controller is the surface the HTTP wrapper and the sweep loop need from
// a laser; both TSL570 and Mock satisfy it
type Controller interface {
	Identification() (string, error)
	SetOutput(bool) error
	GetOutput() (bool, error)
	SetPower(float64) error
	GetPower() (float64, error)
	SetWavelength(float64) error
	GetWavelength() (float64, error)
	ConfigureSweep(SweepConfig) error
	SweepStatus() (SweepStatus, error)
	StartSweep() error
	StopSweep() error
	SoftTrigger() error
	LoggingCount() (int, error)
	ReadLoggedWavelengths() ([]float64, error)
	CurrentAlert() error
}

// HTTPWrapper exposes a laser over HTTP
type HTTPWrapper struct {
	Laser Controller

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns an HTTP wrapper with its route table
// pre-configured
func NewHTTPWrapper(l Controller) HTTPWrapper {
	w := HTTPWrapper{Laser: l}
	rt := server.RouteTable{
		pat.Get("/id"):           generichttp.GetString(l.Identification),
		pat.Get("/output"):       generichttp.GetBool(l.GetOutput),
		pat.Post("/output"):      generichttp.SetBool(l.SetOutput),
		pat.Get("/power"):        generichttp.GetFloat(l.GetPower),
		pat.Post("/power"):       generichttp.SetFloat(l.SetPower),
		pat.Get("/wavelength"):   generichttp.GetFloat(l.GetWavelength),
		pat.Post("/wavelength"):  generichttp.SetFloat(l.SetWavelength),
		pat.Post("/sweep/setup"): w.HTTPConfigureSweep,
		pat.Get("/sweep/status"): w.HTTPSweepStatus,
		pat.Post("/sweep/start"): generichttp.Call(l.StartSweep),
		pat.Post("/sweep/stop"):  generichttp.Call(l.StopSweep),
		pat.Post("/sweep/soft"):  generichttp.Call(l.SoftTrigger),
		pat.Get("/log/count"):    generichttp.GetInt(l.LoggingCount),
		pat.Get("/log/data"):     w.HTTPLoggedWavelengths,
		pat.Get("/alert"):        w.HTTPAlert,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// HTTPConfigureSweep decodes a SweepConfig from JSON and programs the laser
func (h *HTTPWrapper) HTTPConfigureSweep(w http.ResponseWriter, r *http.Request) {
	var cfg SweepConfig
	err := json.NewDecoder(r.Body).Decode(&cfg)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Laser.ConfigureSweep(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPSweepStatus returns the sweep status as its descriptive string
func (h *HTTPWrapper) HTTPSweepStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Laser.SweepStatus()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.String, String: st.String()}
	hp.EncodeAndRespond(w, r)
}

// HTTPLoggedWavelengths returns the wavelength log as a JSON array of f64
func (h *HTTPWrapper) HTTPLoggedWavelengths(w http.ResponseWriter, r *http.Request) {
	data, err := h.Laser.ReadLoggedWavelengths()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HTTPAlert reports the laser's alert state, an empty string when healthy
func (h *HTTPWrapper) HTTPAlert(w http.ResponseWriter, r *http.Request) {
	var msg string
	if err := h.Laser.CurrentAlert(); err != nil {
		msg = err.Error()
	}
	hp := server.HumanPayload{T: types.String, String: msg}
	hp.EncodeAndRespond(w, r)
}
