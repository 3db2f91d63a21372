package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.PurchaseSource{}, &models.Lot{}, &models.Item{}, &models.Listing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func postForm(t *testing.T, h http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func flashValue(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "flash" && c.MaxAge >= 0 && c.Value != "" {
			dec, err := url.QueryUnescape(c.Value)
			if err != nil {
				return c.Value
			}
			return dec
		}
	}
	return ""
}

func TestItemCreateAndListJSON(t *testing.T) {
	db := setupTestDB(t)
	h := NewItemHandler(db)

	w := postForm(t, h.Create, "/items/new", url.Values{
		"name":            {"Wool jumper"},
		"purchase_price":  {"4.50"},
		"purchase_date":   {"10/01/2025"},
		"purchase_source": {"svp bray"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	if msg := flashValue(t, w); msg != "Item added." {
		t.Fatalf("unexpected flash %q", msg)
	}

	// The raw source text must have been normalized on the way in.
	var item models.Item
	if err := db.First(&item).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.PurchaseSource != "SVP - Bray" {
		t.Fatalf("source = %q, want SVP - Bray", item.PurchaseSource)
	}
	if item.Status != models.StatusUnlisted {
		t.Fatalf("status = %q, want Unlisted", item.Status)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	w2 := httptest.NewRecorder()
	h.List(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w2.Code)
	}
	var payload struct {
		Items []models.Item `json:"items"`
		Total int64         `json:"total"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Total != 1 || len(payload.Items) != 1 {
		t.Fatalf("expected 1 item got total=%d len=%d", payload.Total, len(payload.Items))
	}
	if payload.Items[0].Name != "Wool jumper" {
		t.Fatalf("unexpected item name %q", payload.Items[0].Name)
	}
}

func TestItemCreateValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewItemHandler(db)

	cases := []struct {
		form  url.Values
		flash string
	}{
		{url.Values{"purchase_price": {"1"}, "purchase_date": {"10/01/2025"}, "purchase_source": {"Home"}}, "Item name is required."},
		{url.Values{"name": {"X"}, "purchase_price": {"-2"}, "purchase_date": {"10/01/2025"}, "purchase_source": {"Home"}}, "Purchase price must be a number."},
		{url.Values{"name": {"X"}, "purchase_price": {"1"}, "purchase_date": {"2025/01/10"}, "purchase_source": {"Home"}}, "Purchase date must be in dd/mm/yyyy format."},
		{url.Values{"name": {"X"}, "purchase_price": {"1"}, "purchase_date": {"10/01/2025"}}, "Purchase source is required."},
	}
	for _, tc := range cases {
		w := postForm(t, h.Create, "/items/new", tc.form)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("expected 303 got %d", w.Code)
		}
		if msg := flashValue(t, w); msg != tc.flash {
			t.Fatalf("flash = %q, want %q", msg, tc.flash)
		}
	}
	var count int64
	db.Model(&models.Item{}).Count(&count)
	if count != 0 {
		t.Fatalf("invalid forms must not create items, got %d", count)
	}
}

func TestItemSellFlow(t *testing.T) {
	db := setupTestDB(t)
	h := NewItemHandler(db)

	w := postForm(t, h.Create, "/items/new", url.Values{
		"name":            {"Lego set"},
		"purchase_price":  {"20.00"},
		"purchase_date":   {"05/02/2025"},
		"purchase_source": {"fb"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("create: expected 303 got %d", w.Code)
	}
	var item models.Item
	if err := db.First(&item).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}

	// A sale needs a valid marketplace.
	w2 := postForm(t, h.Sell, "/items/sell", url.Values{
		"id":               {strconv.Itoa(int(item.ID))},
		"sale_price":       {"35.00"},
		"sale_date":        {"20/02/2025"},
		"sold_marketplace": {"Etsy"},
	})
	if msg := flashValue(t, w2); msg != "Sold marketplace is required." {
		t.Fatalf("flash = %q", msg)
	}

	w3 := postForm(t, h.Sell, "/items/sell", url.Values{
		"id":               {strconv.Itoa(int(item.ID))},
		"sale_price":       {"35.00"},
		"sale_date":        {"20/02/2025"},
		"sold_marketplace": {models.MarketplaceEbay},
	})
	if msg := flashValue(t, w3); msg != "Item marked as sold." {
		t.Fatalf("flash = %q", msg)
	}

	var sold models.Item
	if err := db.First(&sold, item.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if sold.Status != models.StatusSold {
		t.Fatalf("status = %q, want Sold", sold.Status)
	}
	if sold.SalePrice == nil || sold.SalePrice.StringFixed(2) != "35.00" {
		t.Fatalf("sale price = %v", sold.SalePrice)
	}
	if sold.Profit().StringFixed(2) != "15.00" {
		t.Fatalf("profit = %s, want 15.00", sold.Profit())
	}
}

func TestItemUpdateBlockedInFinalizedLot(t *testing.T) {
	db := setupTestDB(t)
	h := NewItemHandler(db)
	lotH := NewLotHandler(db)

	// Build a finalized lot with one member through the handlers.
	w := postForm(t, lotH.Create, "/lots", url.Values{
		"reference":       {"BOX1"},
		"purchase_date":   {"01/03/2025"},
		"purchase_source": {"auction lockes"},
		"total_cost":      {"10.00"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("lot create: %d", w.Code)
	}
	var lot models.Lot
	if err := db.First(&lot).Error; err != nil {
		t.Fatalf("load lot: %v", err)
	}
	lotID := strconv.Itoa(int(lot.ID))
	postForm(t, lotH.AddItems, "/lots/items/add", url.Values{"id": {lotID}, "name": {"Box item"}, "quantity": {"2"}})
	postForm(t, lotH.Finalize, "/lots/finalize", url.Values{"id": {lotID}})

	var member models.Item
	if err := db.Where("lot_id = ?", lot.ID).Order("id asc").First(&member).Error; err != nil {
		t.Fatalf("load member: %v", err)
	}
	if member.PurchasePrice.StringFixed(2) != "5.00" {
		t.Fatalf("allocated price = %s, want 5.00", member.PurchasePrice)
	}

	w2 := postForm(t, h.Update, "/items/update", url.Values{
		"id":             {strconv.Itoa(int(member.ID))},
		"purchase_price": {"7.00"},
	})
	if msg := flashValue(t, w2); msg != "Item belongs to a finalized lot; reopen the lot to change its price." {
		t.Fatalf("flash = %q", msg)
	}
	var reloaded models.Item
	db.First(&reloaded, member.ID)
	if reloaded.PurchasePrice.StringFixed(2) != "5.00" {
		t.Fatalf("price changed despite lock: %s", reloaded.PurchasePrice)
	}

	// Other fields stay editable.
	w3 := postForm(t, h.Update, "/items/update", url.Values{
		"id":    {strconv.Itoa(int(member.ID))},
		"name":  {"Renamed box item"},
		"notes": {"scuffed corner"},
	})
	if msg := flashValue(t, w3); msg != "Item updated." {
		t.Fatalf("flash = %q", msg)
	}
	db.First(&reloaded, member.ID)
	if reloaded.Name != "Renamed box item" || reloaded.Notes != "scuffed corner" {
		t.Fatalf("update lost fields: %+v", reloaded)
	}
}

func TestItemDeleteCascadesListings(t *testing.T) {
	db := setupTestDB(t)
	h := NewItemHandler(db)
	lh := NewListingHandler(db)

	postForm(t, h.Create, "/items/new", url.Values{
		"name":            {"Camera"},
		"purchase_price":  {"15.00"},
		"purchase_date":   {"01/01/2025"},
		"purchase_source": {"Home"},
	})
	var item models.Item
	if err := db.First(&item).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	w := postForm(t, lh.Add, "/items/listings/add", url.Values{
		"item_id":      {strconv.Itoa(int(item.ID))},
		"marketplace":  {models.MarketplaceVinted},
		"listing_url":  {"https://vinted.ie/items/123"},
		"listing_date": {"02/01/2025"},
	})
	if msg := flashValue(t, w); msg != "Listing added." {
		t.Fatalf("flash = %q", msg)
	}
	var listed models.Item
	db.First(&listed, item.ID)
	if listed.Status != models.StatusListed || listed.ListedDate == nil {
		t.Fatalf("listing add must advance status, got %q", listed.Status)
	}

	postForm(t, h.Delete, "/items/delete", url.Values{"id": {strconv.Itoa(int(item.ID))}})
	var items, listings int64
	db.Model(&models.Item{}).Count(&items)
	db.Model(&models.Listing{}).Count(&listings)
	if items != 0 || listings != 0 {
		t.Fatalf("expected cascade delete, items=%d listings=%d", items, listings)
	}
}
