package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/photonbench/golight/server"
)

func mockConfig() Config {
	return Config{
		Addr: ":8000",
		Mock: true,
		Nodes: []ObjSetup{
			{Endpoint: "bench/tsl", Type: "tsl"},
			{Endpoint: "bench/mpm", Type: "mpm"},
			{Endpoint: "bench/pcu", Type: "pcu"},
		},
		Sweeps: []SweepSetup{
			{Endpoint: "bench/sweep", Laser: "bench/tsl", Meter: "bench/mpm"},
		},
	}
}

func TestBuildMuxServesMockedNodes(t *testing.T) {
	mux := BuildMux(mockConfig())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/bench/tsl/wavelength", nil))
	if rec.Code != 200 {
		t.Fatalf("GET /bench/tsl/wavelength returned %d: %s", rec.Code, rec.Body.String())
	}
	var f server.FloatT
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 1550 {
		t.Errorf("mock laser reports %g nm, expected 1550", f.F64)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/bench/sweep/state", nil))
	if rec.Code != 200 {
		t.Fatalf("GET /bench/sweep/state returned %d: %s", rec.Code, rec.Body.String())
	}
	var s server.StrT
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Str != "Idle" {
		t.Errorf("fresh sweep in state %q, expected Idle", s.Str)
	}
}

func TestBuildMuxSupergraph(t *testing.T) {
	mux := BuildMux(mockConfig())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/endpoints", nil))
	if rec.Code != 200 {
		t.Fatalf("GET /endpoints returned %d", rec.Code)
	}
	var graph map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&graph); err != nil {
		t.Fatal(err)
	}
	for _, mountpt := range []string{"/bench/tsl/*", "/bench/mpm/*", "/bench/pcu/*", "/bench/sweep/*"} {
		if _, ok := graph[mountpt]; !ok {
			t.Errorf("supergraph missing %s", mountpt)
		}
	}
}

func TestBuildMuxLocking(t *testing.T) {
	mux := BuildMux(mockConfig())

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"bool": true}`)
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/bench/pcu/lock", body))
	if rec.Code != 200 {
		t.Fatalf("POST lock returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/bench/pcu/reboot", nil))
	if rec.Code != 423 {
		t.Errorf("locked node answered %d, expected 423", rec.Code)
	}
}
