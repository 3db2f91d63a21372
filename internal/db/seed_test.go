package db

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/models"
)

func TestSeedIdempotent(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file:seed_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AutoMigrate(&models.PurchaseSource{}); err != nil {
		t.Fatal(err)
	}
	seed(d)
	seed(d)
	var total int64
	d.Model(&models.PurchaseSource{}).Count(&total)
	if total != int64(len(models.SeedSources())) {
		t.Fatalf("expected %d sources got %d", len(models.SeedSources()), total)
	}
	var others int64
	d.Model(&models.PurchaseSource{}).Where("name = ?", models.FallbackSourceName).Count(&others)
	if others != 1 {
		t.Fatalf("fallback source duplicated or missing: %d", others)
	}
}

func TestRunMigrationsNoopForSqlite(t *testing.T) {
	t.Setenv("DATABASE_DSN", "file:migrate_test?mode=memory&cache=shared")
	t.Setenv("MIGRATIONS", "")
	if err := RunMigrations(); err != nil {
		t.Fatalf("expected noop for sqlite dsn: %v", err)
	}
}

func TestEnsureFallbackSource(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file:fallback_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AutoMigrate(&models.PurchaseSource{}); err != nil {
		t.Fatal(err)
	}
	if err := ensureFallbackSource(d); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := ensureFallbackSource(d); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	var count int64
	d.Model(&models.PurchaseSource{}).Where("name = ?", models.FallbackSourceName).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one fallback source got %d", count)
	}
}
