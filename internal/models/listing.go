package models

import "time"

// Listing is a marketplace posting attached to one item. Listings are only
// removed through the owning item's cascade delete.
type Listing struct {
	ID          uint   `gorm:"primaryKey"`
	ItemID      uint   `gorm:"not null;index"`
	Marketplace string `gorm:"not null;index"`
	ListingURL  string `gorm:"not null"`
	ListingDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
