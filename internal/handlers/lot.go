package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/httpx"
	"github.com/cobrien/resale-tracker/internal/middleware"
	"github.com/cobrien/resale-tracker/internal/models"
	"github.com/cobrien/resale-tracker/internal/services"
	"github.com/cobrien/resale-tracker/internal/validation"
	"github.com/cobrien/resale-tracker/internal/view"
)

type LotHandler struct {
	DB      *gorm.DB
	Lots    *services.LotService
	Items   *services.ItemService
	Sources *services.SourceService
}

func NewLotHandler(db *gorm.DB) *LotHandler {
	return &LotHandler{
		DB:      db,
		Lots:    services.NewLotService(db),
		Items:   services.NewItemService(db),
		Sources: services.NewSourceService(db),
	}
}

// List: GET /lots — all lots with member counts and allocated sums.
func (h *LotHandler) List(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Lots.List()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_lots", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"lots": lots, "total": len(lots)})
		return
	}
	sources, _ := h.Sources.Active()
	data := map[string]any{"Lots": lots, "Sources": sources}
	if msg := middleware.PopFlash(w, r); msg != "" {
		data["Flash"] = msg
	}
	if err := view.Render(w, r, "lots.html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template render error: " + err.Error())); werr != nil {
			_ = werr
		}
	}
}

func (h *LotHandler) parseInput(w http.ResponseWriter, r *http.Request, back string) (services.LotInput, bool) {
	var in services.LotInput
	purchaseDate, ok := validation.ParseDate(r.FormValue("purchase_date"))
	if !ok {
		middleware.Flash(w, "Purchase date must be in dd/mm/yyyy format.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return in, false
	}
	totalCost, ok := validation.ParseMoney(r.FormValue("total_cost"))
	if !ok {
		middleware.Flash(w, "Total cost must be a number.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return in, false
	}
	rawSource := strings.TrimSpace(r.FormValue("purchase_source"))
	if rawSource == "" {
		middleware.Flash(w, "Purchase source is required.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return in, false
	}
	source, err := h.Sources.Ensure(rawSource)
	if err != nil {
		middleware.Flash(w, "Could not record purchase source.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return in, false
	}
	in = services.LotInput{
		Reference:      strings.TrimSpace(r.FormValue("reference")),
		PurchaseDate:   purchaseDate,
		PurchaseSource: source,
		TotalCost:      totalCost,
		Notes:          strings.TrimSpace(r.FormValue("notes")),
	}
	return in, true
}

// Create: POST /lots/new — opens a new empty lot.
func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseInput(w, r, "/lots")
	if !ok {
		return
	}
	lot, err := h.Lots.Create(in)
	if err != nil {
		middleware.Flash(w, "Could not create lot.")
		http.Redirect(w, r, "/lots", http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Lot "+lot.Reference+" created.")
	http.Redirect(w, r, "/lots/view?id="+strconv.Itoa(int(lot.ID)), http.StatusSeeOther)
}

// Detail: GET /lots/view?id= — lot page with members, aggregation and the
// allocation preview.
func (h *LotHandler) Detail(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.loadLot(w, r)
	if !ok {
		return
	}
	stats, err := h.Lots.Stats(lot.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_lot_stats", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"lot": lot, "item_count": stats.ItemCount, "allocated_cost": stats.AllocatedCost,
		})
		return
	}
	unassigned, _ := h.Items.Unassigned()
	sources, _ := h.Sources.Active()
	data := map[string]any{
		"Lot":        lot,
		"Stats":      stats,
		"Unassigned": unassigned,
		"Sources":    sources,
	}
	if msg := middleware.PopFlash(w, r); msg != "" {
		data["Flash"] = msg
	}
	if err := view.Render(w, r, "lot_detail.html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template render error: " + err.Error())); werr != nil {
			_ = werr
		}
	}
}

// Update: POST /lots/update — edits metadata while the lot is open.
func (h *LotHandler) Update(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.loadLot(w, r)
	if !ok {
		return
	}
	back := "/lots/view?id=" + strconv.Itoa(int(lot.ID))
	in, ok := h.parseInput(w, r, back)
	if !ok {
		return
	}
	if _, err := h.Lots.Update(lot.ID, in); err != nil {
		h.flashLotError(w, err, "Could not update lot.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Lot updated.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// AddItems: POST /lots/items/add — bulk-creates name x quantity members.
func (h *LotHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.loadLot(w, r)
	if !ok {
		return
	}
	back := "/lots/view?id=" + strconv.Itoa(int(lot.ID))
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		middleware.Flash(w, "Item name is required.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))
	if quantity <= 0 {
		middleware.Flash(w, "Quantity must be a positive number.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	created, err := h.Lots.AddItems(lot.ID, name, quantity)
	if err != nil {
		h.flashLotError(w, err, "Could not add items to lot.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Added "+strconv.Itoa(len(created))+" items to lot.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Attach: POST /lots/items/attach — moves an unassigned item into the lot.
func (h *LotHandler) Attach(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.loadLot(w, r)
	if !ok {
		return
	}
	back := "/lots/view?id=" + strconv.Itoa(int(lot.ID))
	itemID, _ := strconv.Atoi(r.FormValue("item_id"))
	if err := h.Lots.Attach(lot.ID, uint(itemID)); err != nil {
		switch {
		case errors.Is(err, services.ErrItemAssigned):
			middleware.Flash(w, "Item already belongs to a lot.")
		default:
			h.flashLotError(w, err, "Could not attach item.")
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Item attached.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Detach: POST /lots/items/detach — removes a member while the lot is open.
func (h *LotHandler) Detach(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.loadLot(w, r)
	if !ok {
		return
	}
	back := "/lots/view?id=" + strconv.Itoa(int(lot.ID))
	itemID, _ := strconv.Atoi(r.FormValue("item_id"))
	if err := h.Lots.Detach(lot.ID, uint(itemID)); err != nil {
		switch {
		case errors.Is(err, services.ErrItemNotInLot):
			middleware.Flash(w, "Item is not in this lot.")
		default:
			h.flashLotError(w, err, "Could not detach item.")
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Item detached.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Finalize: POST /lots/finalize — allocates the total cost and locks the lot.
func (h *LotHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.loadLot(w, r)
	if !ok {
		return
	}
	back := "/lots/view?id=" + strconv.Itoa(int(lot.ID))
	if _, err := h.Lots.Finalize(lot.ID); err != nil {
		switch {
		case errors.Is(err, services.ErrLotEmpty):
			middleware.Flash(w, "Cannot finalize an empty lot.")
		case errors.Is(err, services.ErrLotFinalized):
			middleware.Flash(w, "Lot is already finalized.")
		default:
			middleware.Flash(w, "Could not finalize lot.")
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Lot finalized; cost allocated across items.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Reopen: POST /lots/reopen — unlocks the lot without touching prices.
func (h *LotHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.loadLot(w, r)
	if !ok {
		return
	}
	back := "/lots/view?id=" + strconv.Itoa(int(lot.ID))
	if _, err := h.Lots.Reopen(lot.ID); err != nil {
		middleware.Flash(w, "Could not reopen lot.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Lot reopened.")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// Delete: POST /lots/delete — removes an open lot, detaching members first.
func (h *LotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	lot, ok := h.loadLot(w, r)
	if !ok {
		return
	}
	if err := h.Lots.Delete(lot.ID); err != nil {
		h.flashLotError(w, err, "Could not delete lot.")
		http.Redirect(w, r, "/lots/view?id="+strconv.Itoa(int(lot.ID)), http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Lot deleted.")
	http.Redirect(w, r, "/lots", http.StatusSeeOther)
}

func (h *LotHandler) flashLotError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, services.ErrLotFinalized) {
		middleware.Flash(w, "Lot is finalized; reopen it first.")
		return
	}
	middleware.Flash(w, fallback)
}

func (h *LotHandler) loadLot(w http.ResponseWriter, r *http.Request) (*models.Lot, bool) {
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
		middleware.Flash(w, "Lot not found.")
		http.Redirect(w, r, "/lots", http.StatusSeeOther)
		return nil, false
	}
	lot, err := h.Lots.Get(uint(id))
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return nil, false
		}
		middleware.Flash(w, "Lot not found.")
		http.Redirect(w, r, "/lots", http.StatusSeeOther)
		return nil, false
	}
	return lot, true
}
