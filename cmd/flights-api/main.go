// Command flights-api serves the read API over the flight directory.
//
// Endpoints:
//
//	GET /api/v1/health
//	    Health check endpoint.
//
//	GET /api/v1/flights/recent[?limit=N]
//	    Most recently ingested flights, newest first.
//
// Authentication:
//
//	When api.keys is configured, requests must include a key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"skylog/internal/api"
	"skylog/internal/config"
	"skylog/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("SKYLOG_CONFIG_PATH", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		basic := slog.New(slog.NewTextHandler(os.Stderr, nil))
		basic.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	server := api.NewServer(directory, api.Config{
		Port:    cfg.API.Port,
		APIKeys: cfg.API.APIKeys,
	})

	slog.Info("Starting flights API", "port", cfg.API.Port, "auth", len(cfg.API.APIKeys) > 0)

	if err := server.Run(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
