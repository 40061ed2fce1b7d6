package mpm

import (
	"encoding/json"
	"net/http"
	"strconv"

	"goji.io/pat"

	"github.com/photonbench/golight/generichttp"
	"github.com/photonbench/golight/server"
)

// Meter is the surface the HTTP wrapper and the sweep loop need from a
// power meter; both MPM210 and Mock satisfy it
type Meter interface {
	Identification() (string, error)
	ConfigureSweep(SweepConfig) error
	StartMeasurement() error
	StopMeasurement() error
	LoggingStatus() (LoggingStatus, error)
	ReadPower(int) ([]float64, error)
	ReadLogData(int, int) ([]float64, error)
}

// HTTPWrapper exposes a power meter over HTTP
type HTTPWrapper struct {
	Meter Meter

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns an HTTP wrapper with its route table
// pre-configured
func NewHTTPWrapper(m Meter) HTTPWrapper {
	w := HTTPWrapper{Meter: m}
	rt := server.RouteTable{
		pat.Get("/id"):                   generichttp.GetString(m.Identification),
		pat.Post("/sweep/setup"):         w.HTTPConfigureSweep,
		pat.Post("/measure/start"):       generichttp.Call(m.StartMeasurement),
		pat.Post("/measure/stop"):        generichttp.Call(m.StopMeasurement),
		pat.Get("/measure/status"):       w.HTTPLoggingStatus,
		pat.Get("/read/:module"):         w.HTTPReadPower,
		pat.Get("/log/:module/:channel"): w.HTTPReadLogData,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// HTTPConfigureSweep decodes a SweepConfig from JSON and programs the meter
func (h *HTTPWrapper) HTTPConfigureSweep(w http.ResponseWriter, r *http.Request) {
	var cfg SweepConfig
	err := json.NewDecoder(r.Body).Decode(&cfg)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Meter.ConfigureSweep(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPLoggingStatus returns the logging status as JSON
// {"status": 0, "count": 99}
func (h *HTTPWrapper) HTTPLoggingStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Meter.LoggingStatus()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HTTPReadPower reads the live power on all channels of the module in the
// URL and returns them as a JSON array of f64
func (h *HTTPWrapper) HTTPReadPower(w http.ResponseWriter, r *http.Request) {
	module, err := strconv.Atoi(pat.Param(r, "module"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := h.Meter.ReadPower(module)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HTTPReadLogData reads the sweep log for the module and channel in the
// URL and returns it as a JSON array of f64
func (h *HTTPWrapper) HTTPReadLogData(w http.ResponseWriter, r *http.Request) {
	module, err := strconv.Atoi(pat.Param(r, "module"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	channel, err := strconv.Atoi(pat.Param(r, "channel"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := h.Meter.ReadLogData(module, channel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
