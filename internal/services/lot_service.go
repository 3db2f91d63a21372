package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/models"
)

var (
	// ErrLotFinalized guards every mutation while a lot is locked.
	ErrLotFinalized = errors.New("lot_finalized")
	// ErrLotEmpty rejects finalizing a lot with no member items.
	ErrLotEmpty = errors.New("no_items_to_allocate")
	// ErrItemAssigned rejects attaching an item that already belongs to a lot.
	ErrItemAssigned = errors.New("item_already_assigned")
	// ErrItemNotInLot rejects detaching an item the lot does not own.
	ErrItemNotInLot = errors.New("item_not_in_lot")
)

// AllocateCost splits total evenly across n items in whole cents. The total
// is converted to minor units with banker's rounding on the decimal
// representation, then the remainder cents go to the first items in order.
// The produced values always sum to the rounded total exactly and differ by
// at most one cent.
func AllocateCost(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, ErrLotEmpty
	}
	if total.IsNegative() {
		return nil, errors.New("negative_total")
	}
	cents := total.Shift(2).RoundBank(0).IntPart()
	base := cents / int64(n)
	remainder := cents % int64(n)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		c := base
		if int64(i) < remainder {
			c++
		}
		shares[i] = decimal.New(c, -2)
	}
	return shares, nil
}

// LotInput carries lot metadata from forms and imports.
type LotInput struct {
	Reference      string
	PurchaseDate   time.Time
	PurchaseSource string
	TotalCost      decimal.Decimal
	Notes          string
}

// LotService owns the lot lifecycle: membership while open, the
// finalize/reopen gate, and the cost allocation that finalize applies.
type LotService struct{ DB *gorm.DB }

func NewLotService(db *gorm.DB) *LotService { return &LotService{DB: db} }

func (s *LotService) Get(id uint) (*models.Lot, error) {
	var lot models.Lot
	if err := s.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("items.id asc")
	}).First(&lot, id).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

func (s *LotService) List() ([]models.Lot, error) {
	var lots []models.Lot
	if err := s.DB.Preload("Items").Order("id desc").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// Create opens a new empty lot. A blank reference gets a generated label.
func (s *LotService) Create(in LotInput) (*models.Lot, error) {
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		ref = "LOT-" + strings.ToUpper(uuid.NewString()[:8])
	}
	lot := models.Lot{
		Reference:      ref,
		PurchaseDate:   in.PurchaseDate,
		PurchaseSource: in.PurchaseSource,
		TotalCost:      in.TotalCost,
		Notes:          in.Notes,
		State:          models.LotStateOpen,
	}
	if err := s.DB.Create(&lot).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

// Update edits lot metadata. Rejected while finalized.
func (s *LotService) Update(id uint, in LotInput) (*models.Lot, error) {
	var lot models.Lot
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lot, id).Error; err != nil {
			return err
		}
		if lot.Finalized() {
			return ErrLotFinalized
		}
		lot.Reference = strings.TrimSpace(in.Reference)
		lot.PurchaseDate = in.PurchaseDate
		lot.PurchaseSource = in.PurchaseSource
		lot.TotalCost = in.TotalCost
		lot.Notes = in.Notes
		return tx.Save(&lot).Error
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// AddItems bulk-creates quantity member items under an open lot. Each item
// starts at price zero; finalize writes the real share later.
func (s *LotService) AddItems(lotID uint, name string, quantity int) ([]models.Item, error) {
	if quantity <= 0 {
		return nil, errors.New("invalid_quantity")
	}
	var created []models.Item
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var lot models.Lot
		if err := tx.First(&lot, lotID).Error; err != nil {
			return err
		}
		if lot.Finalized() {
			return ErrLotFinalized
		}
		for i := 0; i < quantity; i++ {
			item := models.Item{
				Name:           name,
				PurchasePrice:  decimal.Zero,
				PurchaseDate:   lot.PurchaseDate,
				PurchaseSource: lot.PurchaseSource,
				Status:         models.StatusUnlisted,
				LotID:          &lot.ID,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			created = append(created, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Attach moves an unassigned item into an open lot.
func (s *LotService) Attach(lotID, itemID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var lot models.Lot
		if err := tx.First(&lot, lotID).Error; err != nil {
			return err
		}
		if lot.Finalized() {
			return ErrLotFinalized
		}
		var item models.Item
		if err := tx.First(&item, itemID).Error; err != nil {
			return err
		}
		if item.LotID != nil {
			return ErrItemAssigned
		}
		return tx.Model(&item).Update("lot_id", lot.ID).Error
	})
}

// Detach removes a member item from an open lot. The item keeps whatever
// purchase price it currently has.
func (s *LotService) Detach(lotID, itemID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var lot models.Lot
		if err := tx.First(&lot, lotID).Error; err != nil {
			return err
		}
		if lot.Finalized() {
			return ErrLotFinalized
		}
		var item models.Item
		if err := tx.First(&item, itemID).Error; err != nil {
			return err
		}
		if item.LotID == nil || *item.LotID != lot.ID {
			return ErrItemNotInLot
		}
		return tx.Model(&item).Update("lot_id", nil).Error
	})
}

// Finalize allocates the lot's total cost across its members in ascending
// item-id order, writes each share as the member's purchase price, and locks
// the lot. Allocation and lock happen in one transaction so an interrupted
// finalize never leaves partial price writes.
func (s *LotService) Finalize(id uint) (*models.Lot, error) {
	var lot models.Lot
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lot, id).Error; err != nil {
			return err
		}
		if lot.Finalized() {
			return ErrLotFinalized
		}
		var items []models.Item
		if err := tx.Where("lot_id = ?", lot.ID).Order("id asc").Find(&items).Error; err != nil {
			return err
		}
		shares, err := AllocateCost(lot.TotalCost, len(items))
		if err != nil {
			return err
		}
		for i := range items {
			if err := tx.Model(&models.Item{}).Where("id = ?", items[i].ID).
				Update("purchase_price", shares[i]).Error; err != nil {
				return err
			}
		}
		lot.State = models.LotStateFinalized
		return tx.Save(&lot).Error
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// Reopen unlocks a finalized lot. Prices written by the last finalize stay
// as they are.
func (s *LotService) Reopen(id uint) (*models.Lot, error) {
	var lot models.Lot
	if err := s.DB.First(&lot, id).Error; err != nil {
		return nil, err
	}
	if !lot.Finalized() {
		return &lot, nil
	}
	lot.State = models.LotStateOpen
	if err := s.DB.Save(&lot).Error; err != nil {
		return nil, err
	}
	return &lot, nil
}

// Delete removes an open lot, detaching its members first. Finalized lots
// are locked and must be reopened before deletion.
func (s *LotService) Delete(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var lot models.Lot
		if err := tx.First(&lot, id).Error; err != nil {
			return err
		}
		if lot.Finalized() {
			return ErrLotFinalized
		}
		if err := tx.Model(&models.Item{}).Where("lot_id = ?", lot.ID).
			Update("lot_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&lot).Error
	})
}

// LotStats aggregates a lot's membership for list and detail views.
type LotStats struct {
	ItemCount     int64
	AllocatedCost decimal.Decimal
}

func (s *LotService) Stats(id uint) (LotStats, error) {
	var st LotStats
	if err := s.DB.Model(&models.Item{}).Where("lot_id = ?", id).Count(&st.ItemCount).Error; err != nil {
		return st, err
	}
	var row struct{ Total decimal.Decimal }
	if err := s.DB.Model(&models.Item{}).Where("lot_id = ?", id).
		Select("COALESCE(SUM(purchase_price), 0) AS total").Scan(&row).Error; err != nil {
		return st, err
	}
	st.AllocatedCost = row.Total
	return st, nil
}
