package db

import (
	"log"
	"os"
)

// RunMigrations is a lightweight entry point for the -migrate-only flag and
// for tests. It respects the MIGRATIONS env var just like ConnectAndMigrate.
func RunMigrations() error {
	dsn := GetNormalizedDSN()
	if v := os.Getenv("MIGRATIONS"); v == "" || !IsPostgresDSN(dsn) {
		log.Println("MIGRATIONS not set or non-postgres DSN; AutoMigrate path used at app start.")
		return nil
	}
	log.Println("Running explicit SQL migrations...")
	return runSQLMigrations(dsn)
}
