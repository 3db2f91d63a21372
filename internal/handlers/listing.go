package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/middleware"
	"github.com/cobrien/resale-tracker/internal/models"
	"github.com/cobrien/resale-tracker/internal/validation"
	"github.com/cobrien/resale-tracker/internal/view"
)

type ListingHandler struct {
	DB *gorm.DB
}

func NewListingHandler(db *gorm.DB) *ListingHandler { return &ListingHandler{DB: db} }

// Add: POST /items/listings/add — attaches a marketplace listing to an item
// and advances the item to Listed with the listing's date. An optional SKU in
// the form backfills the item. Listing insert and status advance share one
// transaction.
func (h *ListingHandler) Add(w http.ResponseWriter, r *http.Request) {
	itemID, _ := strconv.Atoi(r.FormValue("item_id"))
	if itemID <= 0 {
		middleware.Flash(w, "Item not found.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	back := "/items/view?id=" + strconv.Itoa(itemID)

	marketplace := r.FormValue("marketplace")
	if !models.ValidMarketplace(marketplace) {
		middleware.Flash(w, "Invalid marketplace.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	listingURL := strings.TrimSpace(r.FormValue("listing_url"))
	if listingURL == "" {
		middleware.Flash(w, "Listing URL is required.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	listingDate, ok := validation.ParseDate(r.FormValue("listing_date"))
	if !ok {
		middleware.Flash(w, "Listing date must be in dd/mm/yyyy format.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	sku := strings.TrimSpace(r.FormValue("sku"))

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := tx.First(&item, itemID).Error; err != nil {
			return err
		}
		listing := models.Listing{
			ItemID:      item.ID,
			Marketplace: marketplace,
			ListingURL:  listingURL,
			ListingDate: &listingDate,
		}
		if err := tx.Create(&listing).Error; err != nil {
			return err
		}
		updates := map[string]any{"status": models.StatusListed, "listed_date": listingDate}
		if sku != "" {
			updates["sku"] = sku
		}
		return tx.Model(&item).Updates(updates).Error
	})
	if err != nil {
		middleware.Flash(w, "Could not add listing.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Listing added.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Edit: GET shows the edit form, POST updates the listing in place.
func (h *ListingHandler) Edit(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	var listing models.Listing
	if id <= 0 || h.DB.First(&listing, id).Error != nil {
		middleware.Flash(w, "Listing not found.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		data := map[string]any{
			"Listing":      listing,
			"Marketplaces": models.Marketplaces(),
		}
		if msg := middleware.PopFlash(w, r); msg != "" {
			data["Flash"] = msg
		}
		if err := view.Render(w, r, "listing_edit.html", data); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			if _, werr := w.Write([]byte("template render error: " + err.Error())); werr != nil {
				_ = werr
			}
		}
		return
	}

	back := "/listings/edit?id=" + strconv.Itoa(id)
	marketplace := r.FormValue("marketplace")
	if !models.ValidMarketplace(marketplace) {
		middleware.Flash(w, "Invalid marketplace.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	listingURL := strings.TrimSpace(r.FormValue("listing_url"))
	if listingURL == "" {
		middleware.Flash(w, "Listing URL is required.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	listingDate, ok := validation.ParseDate(r.FormValue("listing_date"))
	if !ok {
		middleware.Flash(w, "Listing date must be in dd/mm/yyyy format.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	updates := map[string]any{
		"marketplace":  marketplace,
		"listing_url":  listingURL,
		"listing_date": listingDate,
	}
	if err := h.DB.Model(&listing).Updates(updates).Error; err != nil {
		middleware.Flash(w, "Could not update listing.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Listing updated.")
	http.Redirect(w, r, "/items/view?id="+strconv.Itoa(int(listing.ItemID)), http.StatusSeeOther)
}
