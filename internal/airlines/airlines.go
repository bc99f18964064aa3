// Package airlines provides the local airline reference table mapping
// operator ICAO codes to display callsigns.
package airlines

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

// NotFoundCallsign is returned when no airline matches an operator code.
// A miss is a normal outcome, not a failure.
const NotFoundCallsign = "N/A"

// Entry is one airline reference row. Codes are stored lower-cased.
type Entry struct {
	ICAO     string `json:"icao"`
	Name     string `json:"name"`
	Callsign string `json:"callsign"`
}

// Store is a read-mostly SQLite store of airline reference data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the airline reference database at the given path.
// Use ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open airlines database: %w", err)
	}

	// SQLite in-memory stores exist per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create airlines schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS airlines (
		icao     TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		callsign TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ResolveCallsign maps an operator ICAO code to its callsign. Lookups are
// lower-cased to match storage normalization. A miss yields NotFoundCallsign.
func (s *Store) ResolveCallsign(ctx context.Context, icao string) string {
	var callsign string
	err := s.db.QueryRowContext(ctx,
		`SELECT callsign FROM airlines WHERE icao = ?`,
		strings.ToLower(icao),
	).Scan(&callsign)
	if err != nil {
		return NotFoundCallsign
	}
	return callsign
}

// Count returns the number of airline reference rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM airlines`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count airlines: %w", err)
	}
	return n, nil
}

// icaoPattern accepts the alphanumeric operator codes the reference dataset
// carries; rows with anything else (punctuation, unicode noise) are skipped.
var icaoPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ImportFromJSON bulk-loads airline reference data from a JSON array of
// {icao, name, callsign} objects. Codes are lower-cased on write; duplicate
// codes keep the first row seen. Returns the number of rows inserted.
func (s *Store) ImportFromJSON(ctx context.Context, r io.Reader) (int, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return 0, fmt.Errorf("decode airlines JSON: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO airlines (icao, name, callsign) VALUES (?, ?, ?)
		 ON CONFLICT (icao) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, e := range entries {
		if !icaoPattern.MatchString(e.ICAO) {
			continue
		}
		res, err := stmt.ExecContext(ctx, strings.ToLower(e.ICAO), e.Name, e.Callsign)
		if err != nil {
			return inserted, fmt.Errorf("insert airline %s: %w", e.ICAO, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit import: %w", err)
	}

	return inserted, nil
}
