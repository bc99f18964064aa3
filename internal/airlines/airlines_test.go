package airlines

import (
	"context"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

const airlinesJSON = `[
	{"icao": "DAL", "name": "Delta Air Lines", "callsign": "DELTA"},
	{"icao": "UAL", "name": "United Airlines", "callsign": "UNITED"},
	{"icao": "D-L", "name": "Broken Row", "callsign": "SKIPPED"},
	{"icao": "DAL", "name": "Delta Duplicate", "callsign": "DUPLICATE"}
]`

func TestImportFromJSON(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	inserted, err := store.ImportFromJSON(ctx, strings.NewReader(airlinesJSON))
	if err != nil {
		t.Fatalf("ImportFromJSON: %v", err)
	}

	// The malformed code and the duplicate are both skipped.
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// First row wins on duplicate codes.
	if got := store.ResolveCallsign(ctx, "DAL"); got != "DELTA" {
		t.Errorf("callsign = %q, want DELTA", got)
	}
}

func TestResolveCallsign(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.ImportFromJSON(ctx, strings.NewReader(airlinesJSON)); err != nil {
		t.Fatalf("ImportFromJSON: %v", err)
	}

	// Lookup keys are normalized to the stored lower case.
	if got := store.ResolveCallsign(ctx, "UAL"); got != "UNITED" {
		t.Errorf("callsign = %q, want UNITED", got)
	}
	if got := store.ResolveCallsign(ctx, "ual"); got != "UNITED" {
		t.Errorf("lower-case lookup = %q, want UNITED", got)
	}
}

func TestResolveCallsignMiss(t *testing.T) {
	store := openTestStore(t)

	got := store.ResolveCallsign(context.Background(), "ZZZ")
	if got != NotFoundCallsign {
		t.Errorf("callsign = %q, want %q", got, NotFoundCallsign)
	}
	if got == "" {
		t.Error("miss must never yield an empty string")
	}
}

func TestImportFromJSONMalformed(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.ImportFromJSON(context.Background(), strings.NewReader(`{"not": "an array"`)); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}
