package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/httpx"
	"github.com/cobrien/resale-tracker/internal/services"
	"github.com/cobrien/resale-tracker/internal/view"
)

type ReportHandler struct {
	Items   *services.ItemService
	Reports *services.ReportService
}

func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{Items: services.NewItemService(db), Reports: services.NewReportService(db)}
}

// Show: GET /reports — overall summary, per-marketplace breakdown and
// monthly rows filtered by the month / marketplace query params.
func (h *ReportHandler) Show(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	marketplace := r.URL.Query().Get("marketplace")

	summary, err := h.Items.Summary(services.ItemFilter{})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_report", nil)
		return
	}
	byMarketplace, err := h.Reports.ByMarketplace()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_report", nil)
		return
	}
	monthly, err := h.Reports.Monthly(month, marketplace)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_report", nil)
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"summary":        summary,
			"by_marketplace": byMarketplace,
			"monthly":        monthly.Rows,
		})
		return
	}

	data := map[string]any{
		"Summary":           summary,
		"ByMarketplace":     byMarketplace,
		"Monthly":           monthly.Rows,
		"Months":            monthly.Months,
		"Marketplaces":      monthly.Marketplaces,
		"MonthFilter":       month,
		"MarketplaceFilter": marketplace,
	}
	if err := view.Render(w, r, "reports.html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte("template render error: " + err.Error())); werr != nil {
			_ = werr
		}
	}
}
