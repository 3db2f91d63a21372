package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/httpx"
	"github.com/cobrien/resale-tracker/internal/middleware"
	"github.com/cobrien/resale-tracker/internal/models"
	"github.com/cobrien/resale-tracker/internal/services"
	"github.com/cobrien/resale-tracker/internal/validation"
	"github.com/cobrien/resale-tracker/internal/view"
)

const itemsPerPage = 25

type ItemHandler struct {
	DB      *gorm.DB
	Items   *services.ItemService
	Sources *services.SourceService
}

func NewItemHandler(db *gorm.DB) *ItemHandler {
	return &ItemHandler{DB: db, Items: services.NewItemService(db), Sources: services.NewSourceService(db)}
}

func filterFromQuery(r *http.Request) services.ItemFilter {
	f := services.ItemFilter{
		Status:      r.URL.Query().Get("status"),
		Marketplace: r.URL.Query().Get("marketplace"),
		ListingURL:  strings.TrimSpace(r.URL.Query().Get("listing_url")),
		Search:      strings.TrimSpace(r.URL.Query().Get("search")),
	}
	if !models.ValidStatus(f.Status) {
		f.Status = ""
	}
	if !models.ValidMarketplace(f.Marketplace) {
		f.Marketplace = ""
	}
	return f
}

// List: GET / — filtered, paginated item list with the summary bar.
// HTML by default, JSON on Accept.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			page = n
		}
	}
	offset := (page - 1) * itemsPerPage

	items, err := h.Items.List(f, itemsPerPage, offset)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_items", nil)
		return
	}
	total, err := h.Items.Count(f)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_count_items", nil)
		return
	}
	summary, err := h.Items.Summary(f)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_summarize_items", nil)
		return
	}
	totalPages := (int(total) + itemsPerPage - 1) / itemsPerPage
	if totalPages < 1 {
		totalPages = 1
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"items": items, "total": total, "page": page, "per_page": itemsPerPage,
			"summary": map[string]any{
				"total_purchase": summary.TotalPurchase,
				"total_sale":     summary.TotalSale,
				"profit":         summary.Profit,
				"roi":            summary.ROI,
			},
		})
		return
	}

	sources, _ := h.Sources.Active()
	data := map[string]any{
		"Items":        items,
		"Summary":      summary,
		"Status":       f.Status,
		"Marketplace":  f.Marketplace,
		"ListingURL":   f.ListingURL,
		"Search":       f.Search,
		"Page":         page,
		"TotalPages":   totalPages,
		"TotalItems":   total,
		"Marketplaces": models.Marketplaces(),
		"Statuses":     models.Statuses(),
		"Sources":      sources,
	}
	if msg := middleware.PopFlash(w, r); msg != "" {
		data["Flash"] = msg
	}
	if err := view.Render(w, r, "index.html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template render error: " + err.Error())); werr != nil {
			_ = werr
		}
	}
}

// Create: POST /items/new — manual item entry form.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if _, werr := w.Write([]byte("invalid form")); werr != nil {
			_ = werr
		}
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		middleware.Flash(w, "Item name is required.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	price, ok := validation.ParseMoney(r.FormValue("purchase_price"))
	if !ok {
		middleware.Flash(w, "Purchase price must be a number.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	purchaseDate, ok := validation.ParseDate(r.FormValue("purchase_date"))
	if !ok {
		middleware.Flash(w, "Purchase date must be in dd/mm/yyyy format.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	rawSource := strings.TrimSpace(r.FormValue("purchase_source"))
	if rawSource == "" {
		middleware.Flash(w, "Purchase source is required.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	status := r.FormValue("status")
	if status == "" {
		status = models.StatusUnlisted
	}
	if !models.ValidStatus(status) {
		middleware.Flash(w, "Invalid status.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	var listedDate *time.Time
	if raw := strings.TrimSpace(r.FormValue("listed_date")); raw != "" {
		t, ok := validation.ParseDate(raw)
		if !ok {
			middleware.Flash(w, "Listed date must be in dd/mm/yyyy format.")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		listedDate = &t
	}

	source, err := h.Sources.Ensure(rawSource)
	if err != nil {
		middleware.Flash(w, "Could not record purchase source.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	item := models.Item{
		Name:           name,
		SKU:            strings.TrimSpace(r.FormValue("sku")),
		Description:    strings.TrimSpace(r.FormValue("description")),
		PurchasePrice:  price,
		PurchaseDate:   purchaseDate,
		PurchaseSource: source,
		Status:         status,
		ListedDate:     listedDate,
		Notes:          strings.TrimSpace(r.FormValue("notes")),
	}
	if err := h.DB.Create(&item).Error; err != nil {
		middleware.Flash(w, "Could not add item.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Item added.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Detail: GET /items/view?id= — item page with listings and the sell form.
func (h *ItemHandler) Detail(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	var listings []models.Listing
	if err := h.DB.Where("item_id = ?", item.ID).Order("id desc").Find(&listings).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_listings", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"item": item, "listings": listings})
		return
	}
	var lot *models.Lot
	if item.LotID != nil {
		var l models.Lot
		if err := h.DB.First(&l, *item.LotID).Error; err == nil {
			lot = &l
		}
	}
	data := map[string]any{
		"Item":         item,
		"Listings":     listings,
		"Lot":          lot,
		"Marketplaces": models.Marketplaces(),
		"Statuses":     models.Statuses(),
	}
	if msg := middleware.PopFlash(w, r); msg != "" {
		data["Flash"] = msg
	}
	if err := view.Render(w, r, "item_detail.html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template render error: " + err.Error())); werr != nil {
			_ = werr
		}
	}
}

// Sell: POST /items/sell — records the sale outcome and advances the status.
func (h *ItemHandler) Sell(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	back := "/items/view?id=" + strconv.Itoa(int(item.ID))
	salePrice, okPrice := validation.ParseMoney(r.FormValue("sale_price"))
	if !okPrice {
		middleware.Flash(w, "Sale price must be a number.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	saleDate, okDate := validation.ParseDate(r.FormValue("sale_date"))
	if !okDate {
		middleware.Flash(w, "Sale date must be in dd/mm/yyyy format.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	soldMarketplace := r.FormValue("sold_marketplace")
	if !models.ValidMarketplace(soldMarketplace) {
		middleware.Flash(w, "Sold marketplace is required.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	updates := map[string]any{
		"status":           models.StatusSold,
		"sale_price":       salePrice,
		"sale_date":        saleDate,
		"sold_marketplace": soldMarketplace,
	}
	if err := h.DB.Model(&models.Item{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
		middleware.Flash(w, "Could not record sale.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Item marked as sold.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Update: POST /items/update — edits the plain fields. Purchase price edits
// are rejected while the item sits in a finalized lot; that price belongs to
// the allocator until the lot reopens.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	back := "/items/view?id=" + strconv.Itoa(int(item.ID))
	if v := strings.TrimSpace(r.FormValue("name")); v != "" {
		item.Name = v
	}
	item.SKU = strings.TrimSpace(r.FormValue("sku"))
	item.Description = strings.TrimSpace(r.FormValue("description"))
	item.Notes = strings.TrimSpace(r.FormValue("notes"))
	if raw := strings.TrimSpace(r.FormValue("purchase_price")); raw != "" {
		price, okPrice := validation.ParseMoney(raw)
		if !okPrice {
			middleware.Flash(w, "Purchase price must be a number.")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		if !price.Equal(item.PurchasePrice) && h.inFinalizedLot(item) {
			middleware.Flash(w, "Item belongs to a finalized lot; reopen the lot to change its price.")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		item.PurchasePrice = price
	}
	if raw := strings.TrimSpace(r.FormValue("purchase_date")); raw != "" {
		t, okDate := validation.ParseDate(raw)
		if !okDate {
			middleware.Flash(w, "Purchase date must be in dd/mm/yyyy format.")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		item.PurchaseDate = t
	}
	if raw := strings.TrimSpace(r.FormValue("purchase_source")); raw != "" {
		source, err := h.Sources.Ensure(raw)
		if err != nil {
			middleware.Flash(w, "Could not record purchase source.")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		item.PurchaseSource = source
	}
	if err := h.DB.Save(item).Error; err != nil {
		middleware.Flash(w, "Could not update item.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Item updated.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Delete: POST /items/delete — removes the item and cascades its listings.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", item.ID).Delete(&models.Listing{}).Error; err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		middleware.Flash(w, "Could not delete item.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Item deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ItemHandler) inFinalizedLot(item *models.Item) bool {
	if item.LotID == nil {
		return false
	}
	var lot models.Lot
	if err := h.DB.First(&lot, *item.LotID).Error; err != nil {
		return false
	}
	return lot.Finalized()
}

// loadItem resolves the id query/form param to an item; on failure it
// redirects with a flash (HTML) or writes a JSON error and returns ok=false.
func (h *ItemHandler) loadItem(w http.ResponseWriter, r *http.Request) (*models.Item, bool) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		idStr = r.FormValue("id")
	}
	id, _ := strconv.Atoi(idStr)
	if id <= 0 {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
			return nil, false
		}
		middleware.Flash(w, "Item not found.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	var item models.Item
	if err := h.DB.First(&item, id).Error; err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return nil, false
		}
		middleware.Flash(w, "Item not found.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return &item, true
}
