// Package storage provides persistent storage for ingested flight records.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// FlightDirectory is the PostgreSQL store of ingested flight records. The
// process owns a single connection pool; each operation is a self-contained
// unit of work against it.
type FlightDirectory struct {
	pool *pgxpool.Pool
}

// OpenFlightDirectory opens a connection pool to PostgreSQL.
func OpenFlightDirectory(ctx context.Context, cfg PostgresConfig) (*FlightDirectory, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &FlightDirectory{pool: pool}, nil
}

// Close closes the connection pool.
func (d *FlightDirectory) Close() {
	d.pool.Close()
}

// CreateSchema creates the flights table.
func (d *FlightDirectory) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS flights (
		flight_id             TEXT NOT NULL UNIQUE,
		ident_icao            TEXT NOT NULL,
		registration          TEXT,
		operator_icao         TEXT NOT NULL,
		operator_callsign     TEXT NOT NULL,
		flight_number         TEXT NOT NULL,
		origin_city           TEXT,
		origin_iata           TEXT,
		dest_city             TEXT,
		dest_iata             TEXT,
		aircraft_type         TEXT,
		aircraft_manufacturer TEXT,
		aircraft_model        TEXT,
		ingested_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_flights_flight_number ON flights(flight_number);
	CREATE INDEX IF NOT EXISTS idx_flights_ingested_at ON flights(ingested_at);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// FlightRecord is one persisted flight. Identity is FlightID; records are
// written once and never mutated. IngestedAt is server-assigned on insert.
type FlightRecord struct {
	FlightID             string
	IdentICAO            string
	Registration         string
	OperatorICAO         string
	OperatorCallsign     string
	FlightNumber         string
	OriginCity           string
	OriginIATA           string
	DestCity             string
	DestIATA             string
	AircraftType         string
	AircraftManufacturer string
	AircraftModel        string
	IngestedAt           time.Time
}

// Exists reports whether a flight with the given flight number was ingested
// within the last 24 hours. This is the dedup pre-check: a cost-saving skip
// before calling the enrichment service, not a correctness guarantee. Flight
// numbers recur across calendar days, so the check is bounded to a recent
// window; the flight_id uniqueness constraint at insert time is what makes
// ingestion at-most-once.
func (d *FlightDirectory) Exists(ctx context.Context, flightNumber string) (bool, error) {
	var one int
	err := d.pool.QueryRow(ctx, `
		SELECT 1 FROM flights
		WHERE flight_number = $1 AND ingested_at > NOW() - INTERVAL '24 hours'
		LIMIT 1
	`, flightNumber).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check flight %s: %w", flightNumber, err)
	}
	return true, nil
}

// Insert appends a flight record. A conflict on flight_id is a silent no-op:
// the flight was already ingested and the existing row is never overwritten.
func (d *FlightDirectory) Insert(ctx context.Context, rec FlightRecord) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO flights (
			flight_id, ident_icao, registration, operator_icao, operator_callsign,
			flight_number, origin_city, origin_iata, dest_city, dest_iata,
			aircraft_type, aircraft_manufacturer, aircraft_model
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (flight_id) DO NOTHING
	`, rec.FlightID, rec.IdentICAO, rec.Registration, rec.OperatorICAO, rec.OperatorCallsign,
		rec.FlightNumber, rec.OriginCity, rec.OriginIATA, rec.DestCity, rec.DestIATA,
		rec.AircraftType, rec.AircraftManufacturer, rec.AircraftModel)
	if err != nil {
		return fmt.Errorf("insert flight %s: %w", rec.FlightID, err)
	}
	return nil
}

// RecentFlights returns the n most recently ingested flight records, newest
// first. This is the read surface the dashboard consumes.
func (d *FlightDirectory) RecentFlights(ctx context.Context, n int) ([]FlightRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT flight_id, ident_icao, registration, operator_icao, operator_callsign,
		       flight_number, origin_city, origin_iata, dest_city, dest_iata,
		       aircraft_type, aircraft_manufacturer, aircraft_model, ingested_at
		FROM flights
		ORDER BY ingested_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent flights: %w", err)
	}
	defer rows.Close()

	var records []FlightRecord
	for rows.Next() {
		var rec FlightRecord
		err := rows.Scan(
			&rec.FlightID, &rec.IdentICAO, &rec.Registration, &rec.OperatorICAO, &rec.OperatorCallsign,
			&rec.FlightNumber, &rec.OriginCity, &rec.OriginIATA, &rec.DestCity, &rec.DestIATA,
			&rec.AircraftType, &rec.AircraftManufacturer, &rec.AircraftModel, &rec.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan flight row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountFlights returns the total number of flight records.
func (d *FlightDirectory) CountFlights(ctx context.Context) (int, error) {
	var n int
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM flights`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count flights: %w", err)
	}
	return n, nil
}
