package handlers

import (
	"bytes"
	"encoding/csv"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/cobrien/resale-tracker/internal/models"
)

func uploadCSV(t *testing.T, h *CSVHandler, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "items.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write: %v", err)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.Import(w, req)
	return w
}

func TestCSVImport(t *testing.T) {
	db := setupTestDB(t)
	h := NewCSVHandler(db)

	content := "name,purchase_price,purchase_date,purchase_source,status,ebay_url,vinted_url\n" +
		"Jacket,5.00,10/01/2025,svp bray,,https://ebay.ie/itm/1,\n" +
		"Boots,8.50,2025-01-12,fb,Listed,,https://vinted.ie/items/2\n" +
		"Broken,notanumber,10/01/2025,Home,,,\n" +
		",1.00,10/01/2025,Home,,,\n" +
		"Plain,2.00,15/01/2025,Home,Bogus,,\n"
	w := uploadCSV(t, h, content)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	if msg := flashValue(t, w); msg != "Imported 3 items (2 rows skipped)." {
		t.Fatalf("flash = %q", msg)
	}

	var items []models.Item
	if err := db.Order("id asc").Find(&items).Error; err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items got %d", len(items))
	}

	jacket := items[0]
	if jacket.PurchaseSource != "SVP - Bray" {
		t.Fatalf("jacket source = %q", jacket.PurchaseSource)
	}
	// Listing URL columns fan out into listings and force Listed.
	if jacket.Status != models.StatusListed {
		t.Fatalf("jacket status = %q, want Listed", jacket.Status)
	}
	if jacket.ListedDate == nil || !jacket.ListedDate.Equal(jacket.PurchaseDate) {
		t.Fatalf("jacket listed date should default to purchase date")
	}
	var jacketListings []models.Listing
	db.Where("item_id = ?", jacket.ID).Find(&jacketListings)
	if len(jacketListings) != 1 || jacketListings[0].Marketplace != models.MarketplaceEbay {
		t.Fatalf("jacket listings = %+v", jacketListings)
	}

	// ISO dates are accepted as a secondary format.
	boots := items[1]
	if boots.PurchaseDate.Format("02/01/2006") != "12/01/2025" {
		t.Fatalf("boots date = %v", boots.PurchaseDate)
	}
	if boots.PurchaseSource != "Facebook Marketplace" {
		t.Fatalf("boots source = %q", boots.PurchaseSource)
	}

	// Unknown status collapses to Unlisted.
	plain := items[2]
	if plain.Status != models.StatusUnlisted {
		t.Fatalf("plain status = %q, want Unlisted", plain.Status)
	}

	// Each canonical source got a record.
	var srcCount int64
	db.Model(&models.PurchaseSource{}).Count(&srcCount)
	if srcCount != 3 {
		t.Fatalf("expected 3 sources got %d", srcCount)
	}
}

func TestCSVImportStripsBOM(t *testing.T) {
	db := setupTestDB(t)
	h := NewCSVHandler(db)
	content := "\xef\xbb\xbfname,purchase_price,purchase_date,purchase_source\nHat,1.00,10/01/2025,Home\n"
	w := uploadCSV(t, h, content)
	if msg := flashValue(t, w); msg != "Imported 1 items." {
		t.Fatalf("flash = %q", msg)
	}
}

func TestCSVImportMissingColumns(t *testing.T) {
	db := setupTestDB(t)
	h := NewCSVHandler(db)
	w := uploadCSV(t, h, "name,purchase_price\nHat,1.00\n")
	if msg := flashValue(t, w); msg != "CSV missing required columns." {
		t.Fatalf("flash = %q", msg)
	}
	var count int64
	db.Model(&models.Item{}).Count(&count)
	if count != 0 {
		t.Fatal("nothing should import without required columns")
	}
}

func TestCSVExportRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ih := NewItemHandler(db)
	h := NewCSVHandler(db)

	postForm(t, ih.Create, "/items/new", url.Values{
		"name":            {"Vase"},
		"sku":             {"VA-1"},
		"purchase_price":  {"3.25"},
		"purchase_date":   {"07/04/2025"},
		"purchase_source": {"Charity Shop"},
	})
	var item models.Item
	if err := db.First(&item).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	postForm(t, ih.Sell, "/items/sell", url.Values{
		"id":               {strconv.Itoa(int(item.ID))},
		"sale_price":       {"9.99"},
		"sale_date":        {"01/05/2025"},
		"sold_marketplace": {models.MarketplaceAdverts},
	})

	req := httptest.NewRequest(http.MethodGet, "/export.csv", nil)
	w := httptest.NewRecorder()
	h.Export(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}
	header := records[0]
	if header[0] != "name" || header[3] != "purchase_price" || header[10] != "sold_marketplace" {
		t.Fatalf("unexpected header %v", header)
	}
	row := records[1]
	if row[0] != "Vase" || row[1] != "VA-1" {
		t.Fatalf("row = %v", row)
	}
	if row[3] != "3.25" || row[4] != "07/04/2025" {
		t.Fatalf("purchase fields = %v", row)
	}
	if row[8] != "9.99" || row[9] != "01/05/2025" || row[10] != models.MarketplaceAdverts {
		t.Fatalf("sale fields = %v", row)
	}
}
