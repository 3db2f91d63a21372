package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot states. A lot is open until finalized; finalizing allocates the total
// cost across member items and locks membership and metadata. Reopening
// unlocks it without reverting already-written prices.
const (
	LotStateOpen      = "open"
	LotStateFinalized = "finalized"
)

// Lot is a bulk purchase ("box") whose single total cost is distributed
// across its member items on finalization.
type Lot struct {
	ID             uint      `gorm:"primaryKey"`
	Reference      string    `gorm:"not null"`
	PurchaseDate   time.Time `gorm:"not null"`
	PurchaseSource string    `gorm:"not null"`
	TotalCost      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Notes          string
	State          string `gorm:"not null;default:'open'"`
	Items          []Item `gorm:"foreignKey:LotID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Finalized reports whether the lot is locked.
func (l Lot) Finalized() bool { return l.State == LotStateFinalized }
