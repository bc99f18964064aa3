// Package ingest drives the flight-ingestion pipeline: poll the receiver,
// filter to trackable flights, skip flights already on file, enrich the rest
// through the remote service, and persist one record per flight identity.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skylog/internal/aeroapi"
	"skylog/internal/receiver"
	"skylog/internal/storage"
)

// Source produces the current receiver snapshot.
type Source interface {
	FetchVisibleAircraft(ctx context.Context) ([]receiver.ObservedAircraft, error)
}

// Directory is the persistent flight store.
type Directory interface {
	Exists(ctx context.Context, flightNumber string) (bool, error)
	Insert(ctx context.Context, rec storage.FlightRecord) error
}

// Enricher resolves flight idents against the remote aviation data service.
type Enricher interface {
	ResolveFlight(ctx context.Context, ident string) (*aeroapi.FlightDetail, error)
}

// Resolver maps operator ICAO codes to callsigns.
type Resolver interface {
	ResolveCallsign(ctx context.Context, icao string) string
}

// Archive receives every cycle's raw observations. Optional.
type Archive interface {
	RecordSightings(ctx context.Context, sightings []storage.Sighting) error
}

// Publisher is notified of each newly persisted flight. Optional.
type Publisher interface {
	PublishIngested(ctx context.Context, rec storage.FlightRecord) error
}

// Stats counts the terminal states of one cycle's observations.
type Stats struct {
	Observed     int
	NoIdent      int
	AlreadyKnown int
	NoDetail     int
	Errors       int
	Ingested     int
}

// Pipeline runs one ingestion cycle per call to Run.
type Pipeline struct {
	source    Source
	directory Directory
	enricher  Enricher
	resolver  Resolver
	archive   Archive
	publisher Publisher
}

// New creates a pipeline over the required collaborators.
func New(source Source, directory Directory, enricher Enricher, resolver Resolver) *Pipeline {
	return &Pipeline{
		source:    source,
		directory: directory,
		enricher:  enricher,
		resolver:  resolver,
	}
}

// WithArchive attaches an optional sightings archive.
func (p *Pipeline) WithArchive(a Archive) *Pipeline {
	p.archive = a
	return p
}

// WithPublisher attaches an optional ingestion event publisher.
func (p *Pipeline) WithPublisher(pub Publisher) *Pipeline {
	p.publisher = pub
	return p
}

// Run processes one snapshot. A snapshot that fails to fetch aborts the cycle
// with an error before any writes; after that, every observation is processed
// independently — one aircraft's failure never aborts the batch. Returns the
// context error if cancelled mid-cycle; every completed write is idempotent,
// so an abandoned cycle leaves the directory consistent.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	observed, err := p.source.FetchVisibleAircraft(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch snapshot: %w", err)
	}
	stats.Observed = len(observed)
	slog.Info("Snapshot fetched", "aircraft", len(observed))

	p.archiveSightings(ctx, observed)

	for _, aircraft := range observed {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p.processObservation(ctx, aircraft, &stats)
	}

	slog.Info("Cycle complete",
		"observed", stats.Observed,
		"no_ident", stats.NoIdent,
		"already_known", stats.AlreadyKnown,
		"no_detail", stats.NoDetail,
		"errors", stats.Errors,
		"ingested", stats.Ingested,
	)

	return stats, nil
}

// processObservation walks one aircraft through the per-observation state
// machine. Every terminal state is independent of the rest of the batch.
func (p *Pipeline) processObservation(ctx context.Context, aircraft receiver.ObservedAircraft, stats *Stats) {
	ident := strings.TrimSpace(aircraft.Flight)
	if ident == "" {
		stats.NoIdent++
		return
	}

	known, err := p.directory.Exists(ctx, ident)
	if err != nil {
		// The pre-check is only a cost saver; a store hiccup here skips the
		// observation rather than killing the cycle.
		slog.Error("Directory check failed", "ident", ident, "error", err)
		stats.Errors++
		return
	}
	if known {
		slog.Info("Flight found", "ident", ident)
		stats.AlreadyKnown++
		return
	}

	slog.Info("Flight not found", "ident", ident)
	detail, err := p.enricher.ResolveFlight(ctx, ident)
	if err != nil {
		slog.Warn("Enrichment failed", "ident", ident, "error", err)
		stats.Errors++
		return
	}
	if detail == nil {
		slog.Info("No usable flight detail", "ident", ident)
		stats.NoDetail++
		return
	}

	callsign := p.resolver.ResolveCallsign(ctx, detail.OperatorICAO)

	rec := storage.FlightRecord{
		FlightID:             detail.InternalFlightID,
		IdentICAO:            detail.IdentICAO,
		Registration:         detail.Registration,
		OperatorICAO:         detail.OperatorICAO,
		OperatorCallsign:     callsign,
		FlightNumber:         detail.FlightNumber,
		OriginCity:           detail.OriginCity,
		OriginIATA:           detail.OriginIATA,
		DestCity:             detail.DestCity,
		DestIATA:             detail.DestIATA,
		AircraftType:         detail.Aircraft.TypeCode,
		AircraftManufacturer: detail.Aircraft.Manufacturer,
		AircraftModel:        detail.Aircraft.Model,
	}
	if rec.AircraftType == "" {
		rec.AircraftType = detail.AircraftTypeCode
	}

	if err := p.directory.Insert(ctx, rec); err != nil {
		slog.Error("Insert failed", "ident", ident, "flight_id", rec.FlightID, "error", err)
		stats.Errors++
		return
	}

	stats.Ingested++
	slog.Info("Flight ingested",
		"ident", ident,
		"flight_id", rec.FlightID,
		"operator", rec.OperatorICAO,
		"callsign", rec.OperatorCallsign,
		"route", rec.OriginIATA+"-"+rec.DestIATA,
	)

	if p.publisher != nil {
		if err := p.publisher.PublishIngested(ctx, rec); err != nil {
			slog.Warn("Publish failed", "flight_id", rec.FlightID, "error", err)
		}
	}
}

// archiveSightings logs the raw observations to the sightings archive when
// one is attached. Archive failures never affect the pipeline.
func (p *Pipeline) archiveSightings(ctx context.Context, observed []receiver.ObservedAircraft) {
	if p.archive == nil || len(observed) == 0 {
		return
	}

	seenAt := time.Now().UTC()
	sightings := make([]storage.Sighting, 0, len(observed))
	for _, aircraft := range observed {
		s := storage.Sighting{
			Hex:      aircraft.Hex,
			Ident:    strings.TrimSpace(aircraft.Flight),
			Altitude: int32(aircraft.Altitude),
			SeenAt:   seenAt,
		}
		if aircraft.Latitude != nil {
			s.Latitude = *aircraft.Latitude
		}
		if aircraft.Longitude != nil {
			s.Longitude = *aircraft.Longitude
		}
		if aircraft.GroundSpeed != nil {
			s.GroundSpeed = float32(*aircraft.GroundSpeed)
		}
		sightings = append(sightings, s)
	}

	if err := p.archive.RecordSightings(ctx, sightings); err != nil {
		slog.Warn("Sightings archive write failed", "count", len(sightings), "error", err)
	}
}
