package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/models"
)

// ItemFilter narrows item list, count and summary queries. Zero values mean
// "no filter". Marketplace and ListingURL match through the item's listings;
// Search matches the item name or any listing URL.
type ItemFilter struct {
	Status      string
	Marketplace string
	ListingURL  string
	Search      string
}

// Summary aggregates purchase/sale totals over a filter scope. Profit and
// totals are exact decimals; ROI is a display percentage.
type Summary struct {
	TotalPurchase decimal.Decimal
	TotalSale     decimal.Decimal
	Profit        decimal.Decimal
	ROI           float64
}

// ItemService holds the filtered queries shared by the item list page, the
// summary bar and the CSV export.
type ItemService struct{ DB *gorm.DB }

func NewItemService(db *gorm.DB) *ItemService { return &ItemService{DB: db} }

func (s *ItemService) scope(f ItemFilter) *gorm.DB {
	dbq := s.DB.Model(&models.Item{})
	if f.Status != "" {
		dbq = dbq.Where("status = ?", f.Status)
	}
	if f.Marketplace != "" {
		sub := s.DB.Model(&models.Listing{}).Select("item_id").Where("marketplace = ?", f.Marketplace)
		dbq = dbq.Where("id IN (?)", sub)
	}
	if f.ListingURL != "" {
		sub := s.DB.Model(&models.Listing{}).Select("item_id").Where("listing_url LIKE ?", "%"+f.ListingURL+"%")
		dbq = dbq.Where("id IN (?)", sub)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		sub := s.DB.Model(&models.Listing{}).Select("item_id").Where("listing_url LIKE ?", like)
		dbq = dbq.Where("name LIKE ? OR id IN (?)", like, sub)
	}
	return dbq
}

// List returns a page of items, newest first, with listings preloaded.
func (s *ItemService) List(f ItemFilter, limit, offset int) ([]models.Item, error) {
	var items []models.Item
	dbq := s.scope(f).Preload("Listings").Order("id desc")
	if limit > 0 {
		dbq = dbq.Limit(limit).Offset(offset)
	}
	if err := dbq.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ItemService) Count(f ItemFilter) (int64, error) {
	var total int64
	if err := s.scope(f).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Summary sums purchase and sale prices over the filter scope and derives
// profit and ROI.
func (s *ItemService) Summary(f ItemFilter) (Summary, error) {
	var row struct {
		TotalPurchase decimal.Decimal
		TotalSale     decimal.Decimal
	}
	err := s.scope(f).
		Select("COALESCE(SUM(purchase_price), 0) AS total_purchase, COALESCE(SUM(COALESCE(sale_price, 0)), 0) AS total_sale").
		Scan(&row).Error
	if err != nil {
		return Summary{}, err
	}
	out := Summary{
		TotalPurchase: row.TotalPurchase,
		TotalSale:     row.TotalSale,
		Profit:        row.TotalSale.Sub(row.TotalPurchase),
	}
	if !out.TotalPurchase.IsZero() {
		out.ROI = out.Profit.Div(out.TotalPurchase).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return out, nil
}

// Unassigned lists items with no lot, for the attach form on lot pages.
func (s *ItemService) Unassigned() ([]models.Item, error) {
	var items []models.Item
	if err := s.DB.Where("lot_id IS NULL").Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
