// Command skylog runs one flight-ingestion cycle.
//
// It polls the local ADS-B receiver's aircraft snapshot, skips aircraft
// without a flight ident and flights already on file, enriches the rest
// through the remote aviation data service, resolves operator callsigns
// from the local airline reference table, and persists one record per
// flight identity in PostgreSQL.
//
// The process exits 0 when the cycle ran to completion and non-zero when
// the snapshot could not be fetched or startup wiring failed. It is meant
// to be driven by cron or a systemd timer.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"skylog/internal/aeroapi"
	"skylog/internal/airlines"
	"skylog/internal/config"
	"skylog/internal/events"
	"skylog/internal/ingest"
	"skylog/internal/receiver"
	"skylog/internal/storage"
)

func initLogger(cfg *config.Config) {
	var logLevel slog.Level
	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("SKYLOG_CONFIG_PATH", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		// Logger isn't configured yet; fall back to a plain stderr handler.
		basic := slog.New(slog.NewTextHandler(os.Stderr, nil))
		basic.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	initLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	directory, err := storage.OpenFlightDirectory(ctx, storage.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
	})
	if err != nil {
		slog.Error("Failed to open flight directory", "error", err)
		os.Exit(1)
	}
	defer directory.Close()

	if err := directory.CreateSchema(ctx); err != nil {
		slog.Error("Failed to create flight directory schema", "error", err)
		os.Exit(1)
	}

	airlineStore, err := airlines.Open(cfg.AirlinesDB)
	if err != nil {
		slog.Error("Failed to open airlines database", "error", err, "path", cfg.AirlinesDB)
		os.Exit(1)
	}
	defer airlineStore.Close()

	if n, err := airlineStore.Count(ctx); err == nil && n == 0 {
		slog.Warn("Airlines table is empty; callsigns will resolve to N/A",
			"path", cfg.AirlinesDB)
	}

	source := receiver.New(cfg.Receiver.URL, cfg.Receiver.Timeout)
	enricher := aeroapi.New(cfg.AeroAPI.Host, cfg.AeroAPI.APIKey, cfg.AeroAPI.Timeout)

	pipeline := ingest.New(source, directory, enricher, airlineStore)

	if cfg.ClickHouse.Enabled {
		archive, err := storage.OpenSightingsArchive(ctx, storage.ClickHouseConfig{
			Host:     cfg.ClickHouse.Host,
			Port:     cfg.ClickHouse.Port,
			Database: cfg.ClickHouse.Database,
			User:     cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
		})
		if err != nil {
			// The archive is best-effort; the cycle still runs without it.
			slog.Warn("Failed to open sightings archive", "error", err)
		} else {
			defer archive.Close()
			if err := archive.CreateSchema(ctx); err != nil {
				slog.Warn("Failed to create sightings schema", "error", err)
			} else {
				pipeline.WithArchive(archive)
			}
		}
	}

	if cfg.NATS.URL != "" {
		publisher, err := events.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			slog.Warn("Failed to connect to NATS", "error", err, "url", cfg.NATS.URL)
		} else {
			defer publisher.Close()
			pipeline.WithPublisher(publisher)
		}
	}

	slog.Info("Starting ingestion cycle", "receiver_url", cfg.Receiver.URL)

	stats, err := pipeline.Run(ctx)
	if err != nil {
		slog.Error("Ingestion cycle failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Ingestion cycle finished",
		"observed", stats.Observed,
		"ingested", stats.Ingested,
		"already_known", stats.AlreadyKnown,
		"errors", stats.Errors,
	)
}
