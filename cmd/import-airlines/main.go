// Command import-airlines bulk-loads the airline reference table.
//
// It reads a JSON array of airline entries and inserts them into the local
// SQLite database used for operator callsign resolution. Entries are keyed
// by lower-cased ICAO code; existing rows are kept, so re-running the
// import is safe.
//
// Usage:
//
//	import-airlines -input airlines.json [-db airlines.db]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"skylog/internal/airlines"
)

func main() {
	inPath := flag.String("input", "", "JSON file with airline entries (default: stdin)")
	dbPath := flag.String("db", "airlines.db", "Path to the airlines SQLite database")
	flag.Parse()

	var in *os.File = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	store, err := airlines.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open airlines database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	inserted, err := store.ImportFromJSON(ctx, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	total, err := store.Count(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to count airlines: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d airlines (%d total in %s)\n", inserted, total, *dbPath)
}
