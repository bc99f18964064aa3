// Package config loads skylog configuration from a YAML file and environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the skylog processes need. It is built once at
// startup and passed into each component's constructor.
type Config struct {
	Receiver   ReceiverConfig
	AeroAPI    AeroAPIConfig
	Postgres   PostgresConfig
	AirlinesDB string
	ClickHouse ClickHouseConfig
	NATS       NATSConfig
	API        APIConfig
	Log        LogConfig
}

// ReceiverConfig points at the local ADS-B receiver's JSON snapshot endpoint.
type ReceiverConfig struct {
	URL     string
	Timeout time.Duration
}

// AeroAPIConfig holds the remote enrichment service settings.
type AeroAPIConfig struct {
	Host    string
	APIKey  string
	Timeout time.Duration
}

// PostgresConfig holds connection settings for the flight directory.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseConfig holds settings for the optional sightings archive.
// The archive is disabled unless Enabled is true.
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// NATSConfig holds settings for the optional ingestion event publisher.
// An empty URL disables publishing.
type NATSConfig struct {
	URL     string
	Subject string
}

// APIConfig holds settings for the recent-flights read API.
type APIConfig struct {
	Port    int
	APIKeys []string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from config file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("receiver.url", "http://localhost:8080/data/aircraft.json")
	v.SetDefault("receiver.timeout", "10s")
	v.SetDefault("aeroapi.host", "https://aeroapi.flightaware.com")
	v.SetDefault("aeroapi.api_key", "")
	v.SetDefault("aeroapi.timeout", "15s")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.database", "skylog")
	v.SetDefault("postgres.user", "skylog")
	v.SetDefault("postgres.password", "skylog")
	v.SetDefault("airlines_db", "airlines.db")
	v.SetDefault("clickhouse.enabled", false)
	v.SetDefault("clickhouse.host", "localhost")
	v.SetDefault("clickhouse.port", 9000)
	v.SetDefault("clickhouse.database", "skylog")
	v.SetDefault("clickhouse.user", "default")
	v.SetDefault("clickhouse.password", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "skylog.flights.ingested")
	v.SetDefault("api.port", 8081)
	v.SetDefault("api.keys", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/skylog")
	v.AddConfigPath(".")

	if configPath := os.Getenv("SKYLOG_CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine: defaults plus env vars.
	}

	v.SetEnvPrefix("SKYLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Receiver: ReceiverConfig{
			URL:     v.GetString("receiver.url"),
			Timeout: v.GetDuration("receiver.timeout"),
		},
		AeroAPI: AeroAPIConfig{
			Host:    v.GetString("aeroapi.host"),
			APIKey:  v.GetString("aeroapi.api_key"),
			Timeout: v.GetDuration("aeroapi.timeout"),
		},
		Postgres: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetInt("postgres.port"),
			Database: v.GetString("postgres.database"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
		},
		AirlinesDB: v.GetString("airlines_db"),
		ClickHouse: ClickHouseConfig{
			Enabled:  v.GetBool("clickhouse.enabled"),
			Host:     v.GetString("clickhouse.host"),
			Port:     v.GetInt("clickhouse.port"),
			Database: v.GetString("clickhouse.database"),
			User:     v.GetString("clickhouse.user"),
			Password: v.GetString("clickhouse.password"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("nats.url"),
			Subject: v.GetString("nats.subject"),
		},
		API: APIConfig{
			Port:    v.GetInt("api.port"),
			APIKeys: v.GetStringSlice("api.keys"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Receiver.URL == "" {
		return fmt.Errorf("receiver.url is required")
	}
	if cfg.Receiver.Timeout <= 0 {
		return fmt.Errorf("receiver.timeout must be greater than 0")
	}
	if cfg.AeroAPI.Host == "" {
		return fmt.Errorf("aeroapi.host is required")
	}
	if cfg.AeroAPI.Timeout <= 0 {
		return fmt.Errorf("aeroapi.timeout must be greater than 0")
	}
	if cfg.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if cfg.Postgres.Port <= 0 {
		return fmt.Errorf("postgres.port must be greater than 0")
	}
	if cfg.AirlinesDB == "" {
		return fmt.Errorf("airlines_db is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
