package storage

import (
	"context"
	"os"
	"testing"
)

// setupTestDirectory creates a test database connection.
// Returns nil if no PostgreSQL server is available.
func setupTestDirectory(t *testing.T) *FlightDirectory {
	t.Helper()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "skylog"
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "skylog"
	}
	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		database = "skylog"
	}

	ctx := context.Background()
	dir, err := OpenFlightDirectory(ctx, PostgresConfig{
		Host:     host,
		Port:     5432,
		Database: database,
		User:     user,
		Password: password,
	})
	if err != nil {
		return nil
	}

	if err := dir.CreateSchema(ctx); err != nil {
		dir.Close()
		return nil
	}

	return dir
}

func testRecord(flightID, flightNumber string) FlightRecord {
	return FlightRecord{
		FlightID:             flightID,
		IdentICAO:            "DAL123",
		Registration:         "N301DN",
		OperatorICAO:         "DAL",
		OperatorCallsign:     "DELTA",
		FlightNumber:         flightNumber,
		OriginCity:           "Atlanta",
		OriginIATA:           "ATL",
		DestCity:             "Kansas City",
		DestIATA:             "MCI",
		AircraftType:         "B738",
		AircraftManufacturer: "Boeing",
		AircraftModel:        "Boeing 737-800",
	}
}

func TestInsertIdempotent(t *testing.T) {
	dir := setupTestDirectory(t)
	if dir == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer dir.Close()

	ctx := context.Background()
	cleanup := func() {
		_, _ = dir.pool.Exec(ctx, "DELETE FROM flights WHERE flight_id = 'TEST-IDEMPOTENT-1'")
	}
	cleanup()
	defer cleanup()

	rec := testRecord("TEST-IDEMPOTENT-1", "TEST123")

	if err := dir.Insert(ctx, rec); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	before, err := dir.CountFlights(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	// Second insert of the same flight_id is a silent no-op.
	if err := dir.Insert(ctx, rec); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	after, err := dir.CountFlights(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if after != before {
		t.Errorf("count changed from %d to %d after duplicate insert", before, after)
	}
}

func TestExists(t *testing.T) {
	dir := setupTestDirectory(t)
	if dir == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer dir.Close()

	ctx := context.Background()
	cleanup := func() {
		_, _ = dir.pool.Exec(ctx, "DELETE FROM flights WHERE flight_id = 'TEST-EXISTS-1'")
	}
	cleanup()
	defer cleanup()

	found, err := dir.Exists(ctx, "TEST456")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if found {
		t.Error("exists = true before insert")
	}

	if err := dir.Insert(ctx, testRecord("TEST-EXISTS-1", "TEST456")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	found, err = dir.Exists(ctx, "TEST456")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !found {
		t.Error("exists = false after insert")
	}
}

func TestRecentFlights(t *testing.T) {
	dir := setupTestDirectory(t)
	if dir == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer dir.Close()

	ctx := context.Background()
	cleanup := func() {
		_, _ = dir.pool.Exec(ctx, "DELETE FROM flights WHERE flight_id LIKE 'TEST-RECENT-%'")
	}
	cleanup()
	defer cleanup()

	for _, id := range []string{"TEST-RECENT-1", "TEST-RECENT-2"} {
		if err := dir.Insert(ctx, testRecord(id, "TEST789")); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	records, err := dir.RecentFlights(ctx, 100)
	if err != nil {
		t.Fatalf("recent flights: %v", err)
	}
	if len(records) < 2 {
		t.Fatalf("got %d records, want at least 2", len(records))
	}

	// Newest first.
	for i := 1; i < len(records); i++ {
		if records[i].IngestedAt.After(records[i-1].IngestedAt) {
			t.Errorf("records out of order at index %d", i)
		}
	}
}
