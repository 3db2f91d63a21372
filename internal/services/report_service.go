package services

import (
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/models"
)

// MonthlyRow is one month of sales: volume, revenue, cost of goods and
// profit. Month is "YYYY-MM".
type MonthlyRow struct {
	Month      string
	Count      int
	TotalSales decimal.Decimal
	TotalCost  decimal.Decimal
	Profit     decimal.Decimal
}

// MarketplaceRow aggregates sale outcomes per marketplace. Items never sold
// group under "Unlisted", matching the list-view vocabulary.
type MarketplaceRow struct {
	Marketplace string
	Count       int64
	TotalSales  decimal.Decimal
}

// MonthlyReport carries the filtered monthly rows plus the option lists the
// filter selects are built from (always computed over all sold items).
type MonthlyReport struct {
	Rows         []MonthlyRow
	Months       []string
	Marketplaces []string
}

// ReportService aggregates sold items for the reports page. Grouping happens
// in Go with exact decimals; only the flat sold-item rows come from SQL.
type ReportService struct{ DB *gorm.DB }

func NewReportService(db *gorm.DB) *ReportService { return &ReportService{DB: db} }

// ByMarketplace returns sale counts and revenue grouped by sold marketplace,
// highest revenue first.
func (s *ReportService) ByMarketplace() ([]MarketplaceRow, error) {
	var rows []MarketplaceRow
	err := s.DB.Model(&models.Item{}).
		Select("COALESCE(NULLIF(sold_marketplace, ''), 'Unlisted') AS marketplace, COUNT(*) AS count, COALESCE(SUM(COALESCE(sale_price, 0)), 0) AS total_sales").
		Group("marketplace").
		Order("total_sales DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Monthly builds the month-by-month sales report. monthFilter and
// marketplaceFilter take "all" (or empty) to disable; the option lists are
// unaffected by the filters so selects stay fully populated.
func (s *ReportService) Monthly(monthFilter, marketplaceFilter string) (MonthlyReport, error) {
	var sold []models.Item
	err := s.DB.
		Where("sale_price IS NOT NULL AND sale_date IS NOT NULL").
		Order("id asc").
		Find(&sold).Error
	if err != nil {
		return MonthlyReport{}, err
	}

	byMonth := map[string]*MonthlyRow{}
	monthSet := map[string]bool{}
	marketSet := map[string]bool{}
	for _, it := range sold {
		month := it.SaleDate.Format("2006-01")
		marketplace := it.SoldMarketplace
		if marketplace == "" {
			marketplace = "Unlisted"
		}
		monthSet[month] = true
		marketSet[marketplace] = true
		if monthFilter != "" && monthFilter != "all" && month != monthFilter {
			continue
		}
		if marketplaceFilter != "" && marketplaceFilter != "all" && marketplace != marketplaceFilter {
			continue
		}
		row := byMonth[month]
		if row == nil {
			row = &MonthlyRow{Month: month}
			byMonth[month] = row
		}
		row.Count++
		row.TotalSales = row.TotalSales.Add(*it.SalePrice)
		row.TotalCost = row.TotalCost.Add(it.PurchasePrice)
		row.Profit = row.Profit.Add(it.SalePrice.Sub(it.PurchasePrice))
	}

	report := MonthlyReport{}
	for _, row := range byMonth {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Month > report.Rows[j].Month })
	for m := range monthSet {
		report.Months = append(report.Months, m)
	}
	sort.Strings(report.Months)
	for m := range marketSet {
		report.Marketplaces = append(report.Marketplaces, m)
	}
	sort.Strings(report.Marketplaces)
	return report, nil
}
