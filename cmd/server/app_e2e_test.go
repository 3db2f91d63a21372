package main

import (
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

func setupE2EDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbi, err := gorm.Open(sqlite.Open("file:e2e_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbi.AutoMigrate(&models.PurchaseSource{}, &models.Lot{}, &models.Item{}, &models.Listing{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbi
}

func postFormE2E(t *testing.T, app http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	app.ServeHTTP(rr, req)
	return rr
}

// Walks one item through the whole lifecycle over HTTP: create, list it on a
// marketplace, record the sale, then check the reports page shows the profit.
func TestItemLifecycleE2E(t *testing.T) {
	dbi := setupE2EDB(t)
	app := NewApp(dbi)

	rr := postFormE2E(t, app, "/items/new", url.Values{
		"name":            {"Retro console"},
		"purchase_price":  {"20.00"},
		"purchase_date":   {"03/03/2025"},
		"purchase_source": {"car boot athy"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("create: expected 303 got %d body=%s", rr.Code, rr.Body.String())
	}

	var item models.Item
	if err := dbi.First(&item).Error; err != nil {
		t.Fatalf("item: %v", err)
	}
	if item.PurchaseSource != "Car Boot - Athy" {
		t.Fatalf("source = %q", item.PurchaseSource)
	}
	id := strconv.Itoa(int(item.ID))

	rr = postFormE2E(t, app, "/items/listings/add", url.Values{
		"item_id":      {id},
		"marketplace":  {models.MarketplaceEbay},
		"listing_url":  {"https://ebay.ie/itm/42"},
		"listing_date": {"05/03/2025"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("listing: expected 303 got %d", rr.Code)
	}
	dbi.First(&item, item.ID)
	if item.Status != models.StatusListed {
		t.Fatalf("status = %q, want Listed", item.Status)
	}

	rr = postFormE2E(t, app, "/items/sell", url.Values{
		"id":               {id},
		"sale_price":       {"35.00"},
		"sale_date":        {"20/03/2025"},
		"sold_marketplace": {models.MarketplaceEbay},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("sell: expected 303 got %d", rr.Code)
	}
	dbi.First(&item, item.ID)
	if item.Status != models.StatusSold {
		t.Fatalf("status = %q, want Sold", item.Status)
	}
	if item.Profit().StringFixed(2) != "15.00" {
		t.Fatalf("profit = %s, want 15.00", item.Profit())
	}

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	req.Header.Set("Accept", "text/html")
	rep := httptest.NewRecorder()
	app.ServeHTTP(rep, req)
	if rep.Code != http.StatusOK {
		t.Fatalf("reports: expected 200 got %d body=%s", rep.Code, rep.Body.String())
	}
	body := rep.Body.String()
	if !strings.Contains(body, "2025-03") {
		t.Fatalf("month row missing: %s", body)
	}
	if !strings.Contains(body, "€15.00") {
		t.Fatalf("profit missing from report: %s", body)
	}
}

func TestLotLifecycleE2E(t *testing.T) {
	dbi := setupE2EDB(t)
	app := NewApp(dbi)

	rr := postFormE2E(t, app, "/lots", url.Values{
		"reference":       {"BOX-7"},
		"purchase_date":   {"01/04/2025"},
		"purchase_source": {"auction matthews"},
		"total_cost":      {"10.00"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("lot create: expected 303 got %d", rr.Code)
	}
	var lot models.Lot
	if err := dbi.First(&lot).Error; err != nil {
		t.Fatalf("lot: %v", err)
	}
	id := strconv.Itoa(int(lot.ID))

	rr = postFormE2E(t, app, "/lots/items/add", url.Values{"id": {id}, "name": {"Mixed media"}, "quantity": {"3"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("add items: expected 303 got %d", rr.Code)
	}
	rr = postFormE2E(t, app, "/lots/finalize", url.Values{"id": {id}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("finalize: expected 303 got %d", rr.Code)
	}

	var members []models.Item
	if err := dbi.Where("lot_id = ?", lot.ID).Order("id asc").Find(&members).Error; err != nil {
		t.Fatalf("members: %v", err)
	}
	want := []string{"3.34", "3.33", "3.33"}
	for i, m := range members {
		if m.PurchasePrice.StringFixed(2) != want[i] {
			t.Fatalf("member %d price = %s, want %s", i, m.PurchasePrice, want[i])
		}
	}
	dbi.First(&lot, lot.ID)
	if !lot.Finalized() {
		t.Fatal("lot should be finalized")
	}
}
