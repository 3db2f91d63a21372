package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cobrien/resale-tracker/internal/models"
)

func TestSourceSettingsActions(t *testing.T) {
	db := setupTestDB(t)
	h := NewSourceHandler(db)

	w := postForm(t, h.Create, "/settings/sources", url.Values{"name": {"car boot naas"}})
	if msg := flashValue(t, w); msg != "Source added." {
		t.Fatalf("flash = %q", msg)
	}
	var src models.PurchaseSource
	if err := db.First(&src).Error; err != nil {
		t.Fatalf("load source: %v", err)
	}
	if src.Name != "Car Boot - Naas" {
		t.Fatalf("created source = %q, want normalized name", src.Name)
	}

	w2 := postForm(t, h.Create, "/settings/sources", url.Values{"name": {"CAR BOOT NAAS"}})
	if msg := flashValue(t, w2); msg != "A source with that name already exists." {
		t.Fatalf("flash = %q", msg)
	}

	w3 := postForm(t, h.Toggle, "/settings/sources/toggle", url.Values{
		"id": {strconv.Itoa(int(src.ID))}, "active": {"0"},
	})
	if msg := flashValue(t, w3); msg != "Source updated." {
		t.Fatalf("flash = %q", msg)
	}
	var reloaded models.PurchaseSource
	db.First(&reloaded, src.ID)
	if reloaded.Active {
		t.Fatal("source should be inactive after toggle")
	}
}

func TestSourceNormalizeAction(t *testing.T) {
	db := setupTestDB(t)
	h := NewSourceHandler(db)

	items := []models.Item{
		{Name: "A", PurchasePrice: decimal.New(100, -2), PurchaseDate: time.Now(), PurchaseSource: "fb", Status: models.StatusUnlisted},
		{Name: "B", PurchasePrice: decimal.New(100, -2), PurchaseDate: time.Now(), PurchaseSource: "Home", Status: models.StatusUnlisted},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w := postForm(t, h.Normalize, "/settings/sources/normalize", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", w.Code)
	}
	if msg := flashValue(t, w); msg != "Normalized 1 items." {
		t.Fatalf("flash = %q", msg)
	}
	var fixed models.Item
	db.First(&fixed, items[0].ID)
	if fixed.PurchaseSource != "Facebook Marketplace" {
		t.Fatalf("source = %q", fixed.PurchaseSource)
	}
}
