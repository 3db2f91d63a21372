package main

// Helper: go run ./cmd/server -normalize-sources [-apply]
// Rewrites item and lot purchase sources to their canonical names.
// Dry-run by default; pass -apply to persist.

import (
	"flag"
	"log"

	"github.com/cobrien/resale-tracker/internal/db"
	"github.com/cobrien/resale-tracker/internal/services"
)

var normalizeSourcesFlag = flag.Bool("normalize-sources", false, "Normalize stored purchase sources and exit")
var applyFlag = flag.Bool("apply", false, "Persist normalization changes (default is dry-run)")

func runNormalizeSources() {
	conn, err := db.ConnectAndMigrate()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	svc := services.NewSourceService(conn)
	changes, err := svc.NormalizeAll(*applyFlag)
	if err != nil {
		log.Fatalf("normalize sources: %v", err)
	}
	shown := changes
	if len(shown) > 20 {
		shown = shown[:20]
	}
	for _, c := range shown {
		log.Printf("item %d: %q -> %q", c.ItemID, c.From, c.To)
	}
	if len(changes) > len(shown) {
		log.Printf("... and %d more", len(changes)-len(shown))
	}
	if *applyFlag {
		log.Printf("Normalization applied: %d items updated", len(changes))
	} else {
		log.Printf("Dry run: %d items would change (re-run with -apply)", len(changes))
	}
}
