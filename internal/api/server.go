// Package api provides the REST read surface over the flight directory.
// The web dashboard is an external consumer of this API; it only ever needs
// the most recently ingested flights.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"skylog/internal/storage"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

// FlightReader reads persisted flight records.
type FlightReader interface {
	RecentFlights(ctx context.Context, n int) ([]storage.FlightRecord, error)
}

// Server serves recent-flight queries.
type Server struct {
	flights     FlightReader
	port        int
	authEnabled bool
	apiKeys     map[string]bool
}

// Config holds configuration for the API server. Auth is enabled when at
// least one API key is configured.
type Config struct {
	Port    int
	APIKeys []string
}

// NewServer creates a flights API server.
func NewServer(flights FlightReader, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	return &Server{
		flights:     flights,
		port:        cfg.Port,
		authEnabled: len(keys) > 0,
		apiKeys:     keys,
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	return http.ListenAndServe(":"+strconv.Itoa(s.port), s.Router())
}

// Router builds the configured router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.authEnabled {
				r.Use(s.authMiddleware)
			}
			r.Get("/flights/recent", s.handleRecentFlights)
		})
	})

	return r
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")

		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FlightResponse is the JSON form of a persisted flight record.
type FlightResponse struct {
	FlightID             string `json:"flight_id"`
	IdentICAO            string `json:"ident_icao"`
	Registration         string `json:"registration,omitempty"`
	OperatorICAO         string `json:"operator_icao"`
	OperatorCallsign     string `json:"operator_callsign"`
	FlightNumber         string `json:"flight_number"`
	OriginCity           string `json:"origin_city,omitempty"`
	OriginIATA           string `json:"origin_iata,omitempty"`
	DestCity             string `json:"dest_city,omitempty"`
	DestIATA             string `json:"dest_iata,omitempty"`
	AircraftType         string `json:"aircraft_type,omitempty"`
	AircraftManufacturer string `json:"aircraft_manufacturer,omitempty"`
	AircraftModel        string `json:"aircraft_model,omitempty"`
	IngestedAt           string `json:"ingested_at"`
}

func recordToResponse(rec storage.FlightRecord) FlightResponse {
	return FlightResponse{
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
		IngestedAt:           rec.IngestedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRecentFlights(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	records, err := s.flights.RecentFlights(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]FlightResponse, 0, len(records))
	for _, rec := range records {
		results = append(results, recordToResponse(rec))
	}

	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
