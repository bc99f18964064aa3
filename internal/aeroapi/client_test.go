package aeroapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer serves canned flight and type lookups and records requests.
func newTestServer(t *testing.T, flights string, typeStatus int, typeBody string) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)

		if r.Header.Get("x-apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.URL.Path == "/aeroapi/flights/DAL123":
			_, _ = w.Write([]byte(flights))
		case r.URL.Path == "/aeroapi/aircraft/types/B738":
			w.WriteHeader(typeStatus)
			_, _ = w.Write([]byte(typeBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server, &paths
}

const commercialFlights = `{"flights": [{
	"ident_icao": "DAL123",
	"inbound_fa_flight_id": "DAL123-1756300000-airline-0123",
	"registration": "N301DN",
	"aircraft_type": "B738",
	"operator_icao": "DAL",
	"flight_number": "123",
	"origin": {"city": "Atlanta", "code_iata": "ATL"},
	"destination": {"city": "Kansas City", "code_iata": "MCI"}
}]}`

func TestResolveFlight(t *testing.T) {
	server, _ := newTestServer(t, commercialFlights, http.StatusOK,
		`{"type": "B738", "manufacturer": "Boeing", "description": "Boeing 737-800"}`)
	defer server.Close()

	client := New(server.URL, "test-key", 5*time.Second)
	detail, err := client.ResolveFlight(context.Background(), "DAL123")
	if err != nil {
		t.Fatalf("ResolveFlight: %v", err)
	}
	if detail == nil {
		t.Fatal("expected detail, got nil")
	}

	if detail.InternalFlightID != "DAL123-1756300000-airline-0123" {
		t.Errorf("flight id = %q", detail.InternalFlightID)
	}
	if detail.OperatorICAO != "DAL" {
		t.Errorf("operator = %q, want DAL", detail.OperatorICAO)
	}
	if detail.OriginIATA != "ATL" || detail.DestIATA != "MCI" {
		t.Errorf("route = %s-%s, want ATL-MCI", detail.OriginIATA, detail.DestIATA)
	}
	if detail.Aircraft.Manufacturer != "Boeing" {
		t.Errorf("manufacturer = %q, want Boeing", detail.Aircraft.Manufacturer)
	}
	if detail.Aircraft.Model != "Boeing 737-800" {
		t.Errorf("model = %q, want Boeing 737-800", detail.Aircraft.Model)
	}
}

func TestResolveFlightQueryWindow(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"ident_type": r.URL.Query().Get("ident_type"),
			"start":      r.URL.Query().Get("start"),
			"end":        r.URL.Query().Get("end"),
		}
		_, _ = w.Write([]byte(`{"flights": []}`))
	}))
	defer server.Close()

	client := New(server.URL, "test-key", 5*time.Second)
	client.now = func() time.Time {
		return time.Date(2026, 8, 28, 23, 30, 0, 0, time.UTC)
	}

	if _, err := client.ResolveFlight(context.Background(), "DAL123"); err != nil {
		t.Fatalf("ResolveFlight: %v", err)
	}

	if gotQuery["ident_type"] != "fa_flight_id" {
		t.Errorf("ident_type = %q", gotQuery["ident_type"])
	}
	if gotQuery["start"] != "2026-08-28" {
		t.Errorf("start = %q, want 2026-08-28", gotQuery["start"])
	}
	// The 24h window crosses midnight into the next calendar day.
	if gotQuery["end"] != "2026-08-29" {
		t.Errorf("end = %q, want 2026-08-29", gotQuery["end"])
	}
}

func TestResolveFlightNoResults(t *testing.T) {
	server, _ := newTestServer(t, `{"flights": []}`, http.StatusOK, `{}`)
	defer server.Close()

	client := New(server.URL, "test-key", 5*time.Second)
	detail, err := client.ResolveFlight(context.Background(), "DAL123")
	if err != nil {
		t.Fatalf("ResolveFlight: %v", err)
	}
	if detail != nil {
		t.Fatalf("expected nil detail for empty result list, got %+v", detail)
	}
}

func TestResolveFlightNonCommercial(t *testing.T) {
	// GA traffic: a result exists but carries no operator identity.
	server, paths := newTestServer(t,
		`{"flights": [{"ident_icao": "", "operator_icao": "", "aircraft_type": "C172"}]}`,
		http.StatusOK, `{}`)
	defer server.Close()

	client := New(server.URL, "test-key", 5*time.Second)
	detail, err := client.ResolveFlight(context.Background(), "DAL123")
	if err != nil {
		t.Fatalf("ResolveFlight: %v", err)
	}
	if detail != nil {
		t.Fatalf("expected nil detail for non-commercial result, got %+v", detail)
	}
	// The type lookup must not run for a discarded result.
	for _, p := range *paths {
		if p == "/aeroapi/aircraft/types/C172" {
			t.Error("aircraft type lookup called for non-commercial result")
		}
	}
}

func TestResolveFlightTypeMissPersists(t *testing.T) {
	// Aircraft-type miss degrades to empty type fields instead of dropping
	// the flight.
	server, _ := newTestServer(t, commercialFlights, http.StatusNotFound, `{}`)
	defer server.Close()

	client := New(server.URL, "test-key", 5*time.Second)
	detail, err := client.ResolveFlight(context.Background(), "DAL123")
	if err != nil {
		t.Fatalf("ResolveFlight: %v", err)
	}
	if detail == nil {
		t.Fatal("expected detail despite type-lookup miss, got nil")
	}
	if detail.Aircraft.Manufacturer != "" || detail.Aircraft.Model != "" {
		t.Errorf("type fields = %+v, want empty", detail.Aircraft)
	}
	if detail.AircraftTypeCode != "B738" {
		t.Errorf("type code = %q, want B738", detail.AircraftTypeCode)
	}
}

func TestResolveFlightServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "test-key", 5*time.Second)
	if _, err := client.ResolveFlight(context.Background(), "DAL123"); err == nil {
		t.Fatal("expected error for 502 response, got nil")
	}
}

func TestResolveAircraftType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/aeroapi/aircraft/types/A21N" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"type":         "A21N",
			"manufacturer": "Airbus",
			"description":  "Airbus A321neo",
		})
	}))
	defer server.Close()

	client := New(server.URL, "test-key", 5*time.Second)

	info, err := client.ResolveAircraftType(context.Background(), "A21N")
	if err != nil {
		t.Fatalf("ResolveAircraftType: %v", err)
	}
	if info == nil || info.Manufacturer != "Airbus" || info.Model != "Airbus A321neo" {
		t.Errorf("info = %+v", info)
	}

	// Unknown type code is a miss, not an error.
	info, err = client.ResolveAircraftType(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("ResolveAircraftType miss: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil info for unknown type, got %+v", info)
	}
}
