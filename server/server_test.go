package server

import (
	"encoding/json"
	"go/types"
	"net/http/httptest"
	"testing"
)

func TestSubMuxSanitize(t *testing.T) {
	cases := map[string]string{
		"bench/tsl":    "/bench/tsl/*",
		"/bench/tsl":   "/bench/tsl/*",
		"/bench/tsl/":  "/bench/tsl/*",
		"/bench/tsl/*": "/bench/tsl/*",
	}
	for in, want := range cases {
		if got := SubMuxSanitize(in); got != want {
			t.Errorf("SubMuxSanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHumanPayloadEncoding(t *testing.T) {
	hp := HumanPayload{T: types.Float64, Float: 1550.5}
	rec := httptest.NewRecorder()
	hp.EncodeAndRespond(rec, httptest.NewRequest("GET", "/", nil))
	var f FloatT
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 1550.5 {
		t.Errorf("round tripped %v", f.F64)
	}

	hp = HumanPayload{T: types.String, String: "ok"}
	rec = httptest.NewRecorder()
	hp.EncodeAndRespond(rec, httptest.NewRequest("GET", "/", nil))
	var s StrT
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Str != "ok" {
		t.Errorf("round tripped %q", s.Str)
	}
}

func TestHumanPayloadUnknownKind(t *testing.T) {
	hp := HumanPayload{T: types.Complex128}
	rec := httptest.NewRecorder()
	hp.EncodeAndRespond(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != 500 {
		t.Errorf("status %d for unknown payload kind, expected 500", rec.Code)
	}
}
