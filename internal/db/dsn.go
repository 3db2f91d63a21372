package db

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultSQLitePath is used when no DATABASE_DSN is configured.
const DefaultSQLitePath = "data/resale.db"

// IsPostgresDSN reports whether the DSN selects the postgres driver; anything
// else is treated as a sqlite file path or sqlite URI.
func IsPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// NormalizeDSN trims quotes and whitespace and falls back to the default
// sqlite file when empty.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return DefaultSQLitePath
	}
	return s
}

// GetNormalizedDSN fetches DATABASE_DSN from the environment and normalizes it.
func GetNormalizedDSN() string { return NormalizeDSN(os.Getenv("DATABASE_DSN")) }

// ensureParentDir creates the directory a sqlite database file lives in.
// No-op for URI-style and in-memory DSNs.
func ensureParentDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
