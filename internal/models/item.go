package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item statuses. An item starts Unlisted, becomes Listed when its first
// listing is recorded, and Sold when a sale is recorded.
const (
	StatusUnlisted = "Unlisted"
	StatusListed   = "Listed"
	StatusSold     = "Sold"
)

// Marketplaces an item can be listed or sold on.
const (
	MarketplaceEbay    = "eBay"
	MarketplaceVinted  = "Vinted"
	MarketplaceAdverts = "Adverts.ie"
)

// Statuses returns the fixed status vocabulary in lifecycle order.
func Statuses() []string {
	return []string{StatusUnlisted, StatusListed, StatusSold}
}

// ValidStatus reports whether s is a known item status.
func ValidStatus(s string) bool {
	return s == StatusUnlisted || s == StatusListed || s == StatusSold
}

// Marketplaces returns the fixed marketplace vocabulary.
func Marketplaces() []string {
	return []string{MarketplaceEbay, MarketplaceVinted, MarketplaceAdverts}
}

// ValidMarketplace reports whether s is a known marketplace.
func ValidMarketplace(s string) bool {
	return s == MarketplaceEbay || s == MarketplaceVinted || s == MarketplaceAdverts
}

// Item is a single resale unit tracked from purchase through optional
// listing to optional sale.
type Item struct {
	ID              uint   `gorm:"primaryKey"`
	Name            string `gorm:"not null"`
	SKU             string `gorm:"index"`
	Description     string
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PurchaseDate    time.Time       `gorm:"not null"`
	PurchaseSource  string          `gorm:"not null;index"` // canonical PurchaseSource name
	Status          string          `gorm:"not null;index"`
	ListedDate      *time.Time
	SalePrice       *decimal.Decimal `gorm:"type:decimal(10,2)"`
	SaleDate        *time.Time
	SoldMarketplace string
	Notes           string
	LotID           *uint     `gorm:"index"` // nullable; set while the item belongs to a lot
	Listings        []Listing `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Profit returns sale price minus purchase price, or zero when unsold.
// Value receiver so templates can call it on list elements.
func (i Item) Profit() decimal.Decimal {
	if i.SalePrice == nil {
		return decimal.Zero
	}
	return i.SalePrice.Sub(i.PurchasePrice)
}

// Sold reports whether a sale has been recorded for the item.
func (i Item) Sold() bool { return i.Status == StatusSold }
