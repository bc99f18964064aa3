// Package events publishes ingestion events to NATS for downstream consumers
// (trackers, notifiers, dashboards).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"skylog/internal/storage"
)

// Publisher publishes newly ingested flight records as JSON messages.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect establishes a NATS connection for publishing to the given subject.
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("skylog"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// flightEvent is the wire form of an ingestion event.
type flightEvent struct {
	FlightID             string    `json:"flight_id"`
	IdentICAO            string    `json:"ident_icao"`
	Registration         string    `json:"registration,omitempty"`
	OperatorICAO         string    `json:"operator_icao"`
	OperatorCallsign     string    `json:"operator_callsign"`
	FlightNumber         string    `json:"flight_number"`
	OriginCity           string    `json:"origin_city,omitempty"`
	OriginIATA           string    `json:"origin_iata,omitempty"`
	DestCity             string    `json:"dest_city,omitempty"`
	DestIATA             string    `json:"dest_iata,omitempty"`
	AircraftType         string    `json:"aircraft_type,omitempty"`
	AircraftManufacturer string    `json:"aircraft_manufacturer,omitempty"`
	AircraftModel        string    `json:"aircraft_model,omitempty"`
	IngestedAt           time.Time `json:"ingested_at"`
}

// PublishIngested publishes one newly persisted flight record.
func (p *Publisher) PublishIngested(ctx context.Context, rec storage.FlightRecord) error {
	event := flightEvent{
		FlightID:             rec.FlightID,
		IdentICAO:            rec.IdentICAO,
		Registration:         rec.Registration,
		OperatorICAO:         rec.OperatorICAO,
		OperatorCallsign:     rec.OperatorCallsign,
		FlightNumber:         rec.FlightNumber,
		OriginCity:           rec.OriginCity,
		OriginIATA:           rec.OriginIATA,
		DestCity:             rec.DestCity,
		DestIATA:             rec.DestIATA,
		AircraftType:         rec.AircraftType,
		AircraftManufacturer: rec.AircraftManufacturer,
		AircraftModel:        rec.AircraftModel,
		IngestedAt:           rec.IngestedAt,
	}
	if event.IngestedAt.IsZero() {
		event.IngestedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal flight event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish flight event: %w", err)
	}
	return nil
}
