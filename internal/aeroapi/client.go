// Package aeroapi resolves flight idents and aircraft type codes against the
// AeroAPI remote service.
package aeroapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// AircraftTypeInfo describes an airframe type resolved from AeroAPI.
type AircraftTypeInfo struct {
	TypeCode     string
	Manufacturer string
	Model        string
}

// FlightDetail is the result of resolving one flight ident. Fields come
// verbatim from the first scheduled flight AeroAPI returns for the ident.
// Aircraft holds the type metadata from the follow-up type lookup; its fields
// are empty when AeroAPI has no data for the type code.
type FlightDetail struct {
	InternalFlightID string
	IdentICAO        string
	Registration     string
	AircraftTypeCode string
	OperatorICAO     string
	FlightNumber     string
	OriginCity       string
	OriginIATA       string
	DestCity         string
	DestIATA         string
	Aircraft         AircraftTypeInfo
}

// Client calls AeroAPI's flight and aircraft-type lookup endpoints.
type Client struct {
	host   string
	apiKey string
	http   *http.Client
	now    func() time.Time
}

// New creates an AeroAPI client. The host is the scheme+authority of the
// service, e.g. "https://aeroapi.flightaware.com".
func New(host, apiKey string, timeout time.Duration) *Client {
	return &Client{
		host:   host,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// flightsResponse mirrors the /aeroapi/flights/{ident} payload.
type flightsResponse struct {
	Flights []flightEntry `json:"flights"`
}

type flightEntry struct {
	IdentICAO        string  `json:"ident_icao"`
	InboundFlightID  string  `json:"inbound_fa_flight_id"`
	Registration     string  `json:"registration"`
	AircraftType     string  `json:"aircraft_type"`
	OperatorICAO     string  `json:"operator_icao"`
	FlightNumber     string  `json:"flight_number"`
	Origin           airport `json:"origin"`
	Destination      airport `json:"destination"`
}

type airport struct {
	City     string `json:"city"`
	CodeIATA string `json:"code_iata"`
}

// typeResponse mirrors the /aeroapi/aircraft/types/{type} payload.
type typeResponse struct {
	Type         string `json:"type"`
	Manufacturer string `json:"manufacturer"`
	Description  string `json:"description"`
}

// ResolveFlight looks up a flight ident within a window from now through 24
// hours later (AeroAPI indexes near-term scheduled flights). It returns
// (nil, nil) when the service has no results for the ident, or when the first
// result lacks a commercial identity (empty ident or operator ICAO code) —
// general-aviation traffic is not trackable here.
//
// A usable result triggers a follow-up aircraft-type lookup. A type-lookup
// miss or failure degrades to empty type fields rather than dropping the
// flight.
func (c *Client) ResolveFlight(ctx context.Context, ident string) (*FlightDetail, error) {
	start := c.now()
	end := start.Add(24 * time.Hour)

	query := url.Values{}
	query.Set("ident_type", "fa_flight_id")
	query.Set("start", start.Format("2006-01-02"))
	query.Set("end", end.Format("2006-01-02"))

	endpoint := fmt.Sprintf("%s/aeroapi/flights/%s?%s", c.host, url.PathEscape(ident), query.Encode())

	var payload flightsResponse
	err := c.get(ctx, endpoint, &payload)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve flight %s: %w", ident, err)
	}

	if len(payload.Flights) == 0 {
		return nil, nil
	}

	first := payload.Flights[0]
	if first.IdentICAO == "" || first.OperatorICAO == "" {
		// No commercial identity; treat the same as no result.
		return nil, nil
	}

	detail := &FlightDetail{
		InternalFlightID: first.InboundFlightID,
		IdentICAO:        first.IdentICAO,
		Registration:     first.Registration,
		AircraftTypeCode: first.AircraftType,
		OperatorICAO:     first.OperatorICAO,
		FlightNumber:     first.FlightNumber,
		OriginCity:       first.Origin.City,
		OriginIATA:       first.Origin.CodeIATA,
		DestCity:         first.Destination.City,
		DestIATA:         first.Destination.CodeIATA,
	}

	if first.AircraftType != "" {
		typeInfo, err := c.ResolveAircraftType(ctx, first.AircraftType)
		switch {
		case err != nil:
			slog.Warn("Aircraft type lookup failed, storing flight without type metadata",
				"ident", ident, "aircraft_type", first.AircraftType, "error", err)
		case typeInfo == nil:
			slog.Info("No aircraft type metadata available",
				"ident", ident, "aircraft_type", first.AircraftType)
		default:
			detail.Aircraft = *typeInfo
		}
	}

	return detail, nil
}

// ResolveAircraftType looks up manufacturer and model metadata for an ICAO
// aircraft type code. Returns (nil, nil) when the service has no data for the
// code.
func (c *Client) ResolveAircraftType(ctx context.Context, typeCode string) (*AircraftTypeInfo, error) {
	endpoint := fmt.Sprintf("%s/aeroapi/aircraft/types/%s", c.host, url.PathEscape(typeCode))

	var payload typeResponse
	err := c.get(ctx, endpoint, &payload)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve aircraft type %s: %w", typeCode, err)
	}

	if payload.Type == "" && payload.Manufacturer == "" {
		return nil, nil
	}

	return &AircraftTypeInfo{
		TypeCode:     payload.Type,
		Manufacturer: payload.Manufacturer,
		Model:        payload.Description,
	}, nil
}

// errNotFound marks a 404 from the service: a normal miss, not a failure.
var errNotFound = fmt.Errorf("not found")

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call aeroapi: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aeroapi returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode aeroapi response: %w", err)
	}

	return nil
}
