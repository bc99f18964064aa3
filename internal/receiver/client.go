// Package receiver fetches aircraft snapshots from a local ADS-B receiver.
//
// The receiver (PiAware / dump1090 style) serves an aircraft.json document
// listing every aircraft currently visible. Entries broadcasting a flight
// ident carry a "flight" field; entries without one are still returned so the
// caller can count them, but they are not trackable flights.
package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ObservedAircraft is one entry from a receiver snapshot. Flight is the raw
// transponder ident and may be empty or carry surrounding whitespace.
type ObservedAircraft struct {
	Hex         string   `json:"hex"`
	Flight      string   `json:"flight"`
	Latitude    *float64 `json:"lat"`
	Longitude   *float64 `json:"lon"`
	GroundSpeed *float64 `json:"gs"`
	Altitude    int
}

// snapshot mirrors the receiver's aircraft.json document.
type snapshot struct {
	Now      float64           `json:"now"`
	Aircraft []snapshotEntry   `json:"aircraft"`
}

// snapshotEntry decodes alt_baro separately because the receiver reports the
// string "ground" instead of a number for aircraft on the ground.
type snapshotEntry struct {
	Hex         string   `json:"hex"`
	Flight      string   `json:"flight"`
	Latitude    *float64 `json:"lat"`
	Longitude   *float64 `json:"lon"`
	GroundSpeed *float64 `json:"gs"`
	AltBaro     any      `json:"alt_baro"`
}

// Client fetches snapshots from the receiver endpoint.
type Client struct {
	url  string
	http *http.Client
}

// New creates a receiver client for the given aircraft.json URL.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// FetchVisibleAircraft retrieves the current snapshot. Any transport, status,
// or decode failure is returned as an error; a snapshot that failed to fetch
// is never partially processed.
func (c *Client) FetchVisibleAircraft(ctx context.Context) ([]ObservedAircraft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build receiver request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch receiver snapshot: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("receiver returned status %d", resp.StatusCode)
	}

	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode receiver snapshot: %w", err)
	}

	observed := make([]ObservedAircraft, 0, len(snap.Aircraft))
	for _, entry := range snap.Aircraft {
		observed = append(observed, ObservedAircraft{
			Hex:         entry.Hex,
			Flight:      entry.Flight,
			Latitude:    entry.Latitude,
			Longitude:   entry.Longitude,
			GroundSpeed: entry.GroundSpeed,
			Altitude:    altitudeFeet(entry.AltBaro),
		})
	}

	return observed, nil
}

// altitudeFeet coerces alt_baro to feet; "ground" and absent both map to 0.
func altitudeFeet(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
