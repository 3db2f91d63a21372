package handlers

import (
	"bytes"
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/middleware"
	"github.com/cobrien/resale-tracker/internal/models"
	"github.com/cobrien/resale-tracker/internal/services"
	"github.com/cobrien/resale-tracker/internal/validation"
	"github.com/cobrien/resale-tracker/internal/view"
)

var exportHeader = []string{
	"name", "sku", "description", "purchase_price", "purchase_date",
	"purchase_source", "status", "listed_date", "sale_price", "sale_date",
	"sold_marketplace", "notes",
}

// importRequired are the columns an import file must carry; the listing URL
// columns (ebay_url, vinted_url, adverts_url) are optional extras.
var importRequired = []string{"name", "purchase_price", "purchase_date", "purchase_source"}

type CSVHandler struct {
	DB      *gorm.DB
	Items   *services.ItemService
	Sources *services.SourceService
}

func NewCSVHandler(db *gorm.DB) *CSVHandler {
	return &CSVHandler{DB: db, Items: services.NewItemService(db), Sources: services.NewSourceService(db)}
}

// Export: GET /export.csv — every item, newest first, in the interchange
// column order.
func (h *CSVHandler) Export(w http.ResponseWriter, r *http.Request) {
	items, err := h.Items.List(services.ItemFilter{}, 0, 0)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("export failed")); werr != nil {
			_ = werr
		}
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="items.csv"`)
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return
	}
	for _, it := range items {
		row := []string{
			it.Name,
			it.SKU,
			it.Description,
			it.PurchasePrice.StringFixed(2),
			validation.FormatDate(it.PurchaseDate),
			it.PurchaseSource,
			it.Status,
			formatOptionalDate(it.ListedDate),
			formatOptionalMoney(it.SalePrice),
			formatOptionalDate(it.SaleDate),
			it.SoldMarketplace,
			it.Notes,
		}
		if err := cw.Write(row); err != nil {
			return
		}
	}
	cw.Flush()
}

// ImportForm: GET /import — upload form.
func (h *CSVHandler) ImportForm(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"DateFormat": "dd/mm/yyyy"}
	if msg := middleware.PopFlash(w, r); msg != "" {
		data["Flash"] = msg
	}
	if err := view.Render(w, r, "import.html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template render error: " + err.Error())); werr != nil {
			_ = werr
		}
	}
}

// Import: POST /import — reads the uploaded CSV and inserts one item (plus
// fanned-out listings) per valid row. Each row commits in its own
// transaction; invalid rows are skipped and the batch continues.
func (h *CSVHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		middleware.Flash(w, "Please choose a CSV file.")
		http.Redirect(w, r, "/import", http.StatusSeeOther)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		middleware.Flash(w, "Please choose a CSV file.")
		http.Redirect(w, r, "/import", http.StatusSeeOther)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		middleware.Flash(w, "Could not read the uploaded file.")
		http.Redirect(w, r, "/import", http.StatusSeeOther)
		return
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")) // UTF-8 BOM

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	headerRow, err := reader.Read()
	if err != nil {
		middleware.Flash(w, "CSV file is empty.")
		http.Redirect(w, r, "/import", http.StatusSeeOther)
		return
	}
	cols := map[string]int{}
	for i, name := range headerRow {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range importRequired {
		if _, ok := cols[required]; !ok {
			middleware.Flash(w, "CSV missing required columns.")
			http.Redirect(w, r, "/import", http.StatusSeeOther)
			return
		}
	}

	imported, skipped := 0, 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if h.importRow(record, cols) {
			imported++
		} else {
			skipped++
		}
	}

	msg := "Imported " + strconv.Itoa(imported) + " items."
	if skipped > 0 {
		msg = "Imported " + strconv.Itoa(imported) + " items (" + strconv.Itoa(skipped) + " rows skipped)."
	}
	middleware.Flash(w, msg)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// importRow validates one CSV record and inserts the item plus its fanned-out
// listings in a single transaction. Returns false when the row is skipped.
func (h *CSVHandler) importRow(record []string, cols map[string]int) bool {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name := field("name")
	if name == "" {
		return false
	}
	price, ok := validation.ParseMoney(field("purchase_price"))
	if !ok {
		return false
	}
	purchaseDate, ok := validation.ParseDate(field("purchase_date"))
	if !ok {
		return false
	}
	rawSource := field("purchase_source")
	if rawSource == "" {
		return false
	}

	status := field("status")
	if status == "" || !models.ValidStatus(status) {
		status = models.StatusUnlisted
	}
	var listedDate *time.Time
	if t, ok := validation.ParseDate(field("listed_date")); ok {
		listedDate = &t
	}
	var salePrice *decimal.Decimal
	if d, ok := validation.ParseMoney(field("sale_price")); ok {
		salePrice = &d
	}
	var saleDate *time.Time
	if t, ok := validation.ParseDate(field("sale_date")); ok {
		saleDate = &t
	}

	type fanout struct {
		marketplace string
		url         string
	}
	listingURLs := []fanout{
		{models.MarketplaceEbay, field("ebay_url")},
		{models.MarketplaceVinted, field("vinted_url")},
		{models.MarketplaceAdverts, field("adverts_url")},
	}
	hasListing := false
	for _, l := range listingURLs {
		if l.url != "" {
			hasListing = true
			break
		}
	}
	if hasListing {
		status = models.StatusListed
		if listedDate == nil {
			listedDate = &purchaseDate
		}
	}

	source, err := h.Sources.Ensure(rawSource)
	if err != nil {
		return false
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		item := models.Item{
			Name:            name,
			SKU:             field("sku"),
			Description:     field("description"),
			PurchasePrice:   price,
			PurchaseDate:    purchaseDate,
			PurchaseSource:  source,
			Status:          status,
			ListedDate:      listedDate,
			SalePrice:       salePrice,
			SaleDate:        saleDate,
			SoldMarketplace: field("sold_marketplace"),
			Notes:           field("notes"),
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		for _, l := range listingURLs {
			if l.url == "" {
				continue
			}
			listing := models.Listing{
				ItemID:      item.ID,
				Marketplace: l.marketplace,
				ListingURL:  l.url,
				ListingDate: listedDate,
			}
			if err := tx.Create(&listing).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return err == nil
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return validation.FormatDate(*t)
}

func formatOptionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
