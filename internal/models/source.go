package models

import "time"

// FallbackSourceName is the designated catch-all source. It cannot be
// deleted; deleting any other source reassigns its items here.
const FallbackSourceName = "Other"

// SeedSources returns the baseline canonical source vocabulary created on
// first run. The list is fixed; new sources are added implicitly when a new
// normalized name is first used.
func SeedSources() []string {
	return []string{
		"Facebook Marketplace",
		"Adverts",
		"Vinted",
		"TK Maxx",
		"Temu",
		"Charity Shop",
		"Free",
		"Home",
		"Dump",
		FallbackSourceName,
	}
}

// PurchaseSource is a canonical label for where items are acquired. Names are
// unique case-insensitively; items reference sources by name rather than by a
// hard foreign key, so renames and merges rewrite item rows in the same
// transaction.
type PurchaseSource struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;uniqueIndex"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
