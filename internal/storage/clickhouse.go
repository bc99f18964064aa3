package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings for the sightings
// archive.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// SightingsArchive is an append-only ClickHouse log of every aircraft seen in
// every poll cycle. It is optional; failures here never affect the ingestion
// pipeline's flight records.
type SightingsArchive struct {
	conn driver.Conn
}

// OpenSightingsArchive opens a connection to ClickHouse.
func OpenSightingsArchive(ctx context.Context, cfg ClickHouseConfig) (*SightingsArchive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &SightingsArchive{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (a *SightingsArchive) Close() error {
	return a.conn.Close()
}

// CreateSchema creates the sightings table.
func (a *SightingsArchive) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS sightings (
		hex           LowCardinality(String),
		ident         LowCardinality(String),
		latitude      Float64,
		longitude     Float64,
		altitude      Int32,
		ground_speed  Float32,
		seen_at       DateTime64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(seen_at)
	ORDER BY (hex, seen_at)
	SETTINGS index_granularity = 8192`

	if err := a.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create sightings schema: %w", err)
	}
	return nil
}

// Sighting is one observed aircraft from one poll cycle.
type Sighting struct {
	Hex         string
	Ident       string
	Latitude    float64
	Longitude   float64
	Altitude    int32
	GroundSpeed float32
	SeenAt      time.Time
}

// RecordSightings appends a cycle's observations in a single batch.
func (a *SightingsArchive) RecordSightings(ctx context.Context, sightings []Sighting) error {
	if len(sightings) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO sightings (hex, ident, latitude, longitude, altitude, ground_speed, seen_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare sightings batch: %w", err)
	}

	for _, s := range sightings {
		err := batch.Append(s.Hex, s.Ident, s.Latitude, s.Longitude, s.Altitude, s.GroundSpeed, s.SeenAt)
		if err != nil {
			return fmt.Errorf("append sighting: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send sightings batch: %w", err)
	}

	return nil
}
