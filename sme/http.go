package sme

import (
	"context"
	"encoding/json"
	"go/types"
	"net/http"

	"goji.io/pat"

	"github.com/photonbench/golight/server"
)

// HTTPWrapper exposes a Sweep over HTTP.  Run is asynchronous; clients
// poll /state and fetch /result once it reports Complete.
type HTTPWrapper struct {
	Sweep *Sweep

	RouteTable server.RouteTable
}

// NewHTTPWrapper returns an HTTP wrapper with its route table
// pre-configured
func NewHTTPWrapper(s *Sweep) HTTPWrapper {
	w := HTTPWrapper{Sweep: s}
	rt := server.RouteTable{
		pat.Post("/configure"): w.HTTPConfigure,
		pat.Post("/run"):       w.HTTPRun,
		pat.Get("/state"):      w.HTTPState,
		pat.Get("/result"):     w.HTTPResult,
		pat.Get("/result.csv"): w.HTTPResultCSV,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// HTTPConfigure decodes a Config from JSON and programs the instruments
func (h *HTTPWrapper) HTTPConfigure(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	err := json.NewDecoder(r.Body).Decode(&cfg)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Sweep.Configure(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPRun starts a sweep in the background and returns immediately.  A
// sweep already in flight is a conflict.
func (h *HTTPWrapper) HTTPRun(w http.ResponseWriter, r *http.Request) {
	st := h.Sweep.State()
	if st == Triggered || st == Polling {
		http.Error(w, "sweep already running", http.StatusConflict)
		return
	}
	go h.Sweep.Run(context.Background())
	w.WriteHeader(http.StatusAccepted)
}

// HTTPState returns the sweep state as its descriptive string
func (h *HTTPWrapper) HTTPState(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.String, String: h.Sweep.State().String()}
	hp.EncodeAndRespond(w, r)
}

// HTTPResult returns the samples as JSON, or 409 while no result exists
func (h *HTTPWrapper) HTTPResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sweep.Result()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res.Samples()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HTTPResultCSV returns the result as CSV, or 409 while no result exists
func (h *HTTPWrapper) HTTPResultCSV(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sweep.Result()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := res.EncodeCSV(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
