package pcu

import (
	"go/types"
	"net/http"

	"goji.io/pat"

	"github.com/photonbench/golight/generichttp"
	"github.com/photonbench/golight/server"
)

// Controller is the surface the HTTP wrapper needs from a polarization
// controller; both PCU and Mock satisfy it
type Controller interface {
	Identification() (string, error)
	SetPolarization(Polarization) error
	GetPolarization() (Polarization, error)
	SetUnitDBm(bool) error
	MonitorPower() (float64, error)
	Reboot() error
}

// HTTPWrapper exposes a polarization controller over HTTP
type HTTPWrapper struct {
	Ctl Controller

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns an HTTP wrapper with its route table
// pre-configured
func NewHTTPWrapper(c Controller) HTTPWrapper {
	w := HTTPWrapper{Ctl: c}
	rt := server.RouteTable{
		pat.Get("/id"):                generichttp.GetString(c.Identification),
		pat.Get("/polarization"):      w.HTTPGetPolarization,
		pat.Post("/polarization"):     w.HTTPSetPolarization,
		pat.Get("/polarization/name"): w.HTTPPolarizationName,
		pat.Get("/power"):             generichttp.GetFloat(c.MonitorPower),
		pat.Post("/reboot"):           generichttp.Call(c.Reboot),
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// HTTPGetPolarization returns the state number as json {'int': value}
func (h *HTTPWrapper) HTTPGetPolarization(w http.ResponseWriter, r *http.Request) {
	generichttp.GetInt(func() (int, error) {
		p, err := h.Ctl.GetPolarization()
		return int(p), err
	})(w, r)
}

// HTTPSetPolarization sets the state from json {'int': value}
func (h *HTTPWrapper) HTTPSetPolarization(w http.ResponseWriter, r *http.Request) {
	generichttp.SetInt(func(i int) error {
		return h.Ctl.SetPolarization(Polarization(i))
	})(w, r)
}

// HTTPPolarizationName returns the state's descriptive name
func (h *HTTPWrapper) HTTPPolarizationName(w http.ResponseWriter, r *http.Request) {
	p, err := h.Ctl.GetPolarization()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.String, String: p.String()}
	hp.EncodeAndRespond(w, r)
}
