package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/httpx"
	"github.com/cobrien/resale-tracker/internal/middleware"
	"github.com/cobrien/resale-tracker/internal/services"
	"github.com/cobrien/resale-tracker/internal/view"
)

type SourceHandler struct {
	Svc *services.SourceService
}

func NewSourceHandler(db *gorm.DB) *SourceHandler {
	return &SourceHandler{Svc: services.NewSourceService(db)}
}

// List: GET /settings/sources — sources with usage counts.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Svc.List()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_sources", nil)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"sources": usage, "total": len(usage)})
		return
	}
	data := map[string]any{"Sources": usage}
	if msg := middleware.PopFlash(w, r); msg != "" {
		data["Flash"] = msg
	}
	if err := view.Render(w, r, "settings.html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template render error: " + err.Error())); werr != nil {
			_ = werr
		}
	}
}

// Create: POST /settings/sources/new — explicit source creation; the name
// still goes through the normalizer.
func (h *SourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if _, err := h.Svc.Create(name); err != nil {
		if errors.Is(err, services.ErrSourceExists) {
			middleware.Flash(w, "A source with that name already exists.")
		} else {
			middleware.Flash(w, "Source name is required.")
		}
		http.Redirect(w, r, "/settings/sources", http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Source added.")
	http.Redirect(w, r, "/settings/sources", http.StatusSeeOther)
}

// Rename: POST /settings/sources/rename — renames and rewrites references.
func (h *SourceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.FormValue("id"))
	err := h.Svc.Rename(uint(id), r.FormValue("name"))
	switch {
	case err == nil:
		middleware.Flash(w, "Source renamed.")
	case errors.Is(err, services.ErrSourceExists):
		middleware.Flash(w, "A source with that name already exists; merge instead.")
	case errors.Is(err, services.ErrFallbackSource):
		middleware.Flash(w, "The fallback source cannot be renamed.")
	default:
		middleware.Flash(w, "Could not rename source.")
	}
	http.Redirect(w, r, "/settings/sources", http.StatusSeeOther)
}

// Merge: POST /settings/sources/merge — folds one source into another.
func (h *SourceHandler) Merge(w http.ResponseWriter, r *http.Request) {
	fromID, _ := strconv.Atoi(r.FormValue("from_id"))
	intoID, _ := strconv.Atoi(r.FormValue("into_id"))
	err := h.Svc.Merge(uint(fromID), uint(intoID))
	switch {
	case err == nil:
		middleware.Flash(w, "Sources merged.")
	case errors.Is(err, services.ErrSameSource):
		middleware.Flash(w, "Pick two different sources to merge.")
	case errors.Is(err, services.ErrFallbackSource):
		middleware.Flash(w, "The fallback source cannot be merged away.")
	default:
		middleware.Flash(w, "Could not merge sources.")
	}
	http.Redirect(w, r, "/settings/sources", http.StatusSeeOther)
}

// Delete: POST /settings/sources/delete — deletes a source, reassigning its
// items to the fallback.
func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.FormValue("id"))
	err := h.Svc.Delete(uint(id))
	switch {
	case err == nil:
		middleware.Flash(w, "Source deleted; items moved to the fallback.")
	case errors.Is(err, services.ErrFallbackSource):
		middleware.Flash(w, "The fallback source cannot be deleted.")
	default:
		middleware.Flash(w, "Could not delete source.")
	}
	http.Redirect(w, r, "/settings/sources", http.StatusSeeOther)
}

// Toggle: POST /settings/sources/toggle — flips the active flag.
func (h *SourceHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.FormValue("id"))
	active := r.FormValue("active") == "1"
	if err := h.Svc.SetActive(uint(id), active); err != nil {
		middleware.Flash(w, "Could not update source.")
	} else {
		middleware.Flash(w, "Source updated.")
	}
	http.Redirect(w, r, "/settings/sources", http.StatusSeeOther)
}

// Normalize: POST /settings/sources/normalize — runs the canonicalizer over
// every stored item, the same pass the CLI flag performs.
func (h *SourceHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	changes, err := h.Svc.NormalizeAll(true)
	if err != nil {
		middleware.Flash(w, "Normalization failed.")
		http.Redirect(w, r, "/settings/sources", http.StatusSeeOther)
		return
	}
	middleware.Flash(w, "Normalized "+strconv.Itoa(len(changes))+" items.")
	http.Redirect(w, r, "/settings/sources", http.StatusSeeOther)
}
