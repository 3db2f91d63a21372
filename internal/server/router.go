package server

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/cobrien/resale-tracker/internal/handlers"
	"github.com/cobrien/resale-tracker/internal/httpx"
	"github.com/cobrien/resale-tracker/internal/middleware"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// Lightweight DB check (SELECT 1) – no detailed errors in the body
		if err := db.Exec("SELECT 1").Error; err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, werr := w.Write([]byte(`{"status":"degraded"}`)); werr != nil {
				_ = werr
			}
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	//revive:enable:unused-parameter

	// Item endpoints. List/Create via /. Everything else addresses the item
	// by an id query/form parameter.
	itemH := handlers.NewItemHandler(db)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			itemH.List(w, r)
		case http.MethodPost:
			itemH.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("/items/new", post(itemH.Create))
	mux.HandleFunc("/items/view", get(itemH.Detail))
	mux.HandleFunc("/items/sell", post(itemH.Sell))
	mux.HandleFunc("/items/update", post(itemH.Update))
	mux.HandleFunc("/items/delete", post(itemH.Delete))

	listingH := handlers.NewListingHandler(db)
	mux.HandleFunc("/items/listings/add", post(listingH.Add))
	mux.HandleFunc("/listings/edit", listingH.Edit) // GET form, POST save

	// Lot endpoints
	lotH := handlers.NewLotHandler(db)
	mux.HandleFunc("/lots", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			lotH.List(w, r)
		case http.MethodPost:
			lotH.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("/lots/view", get(lotH.Detail))
	mux.HandleFunc("/lots/update", post(lotH.Update))
	mux.HandleFunc("/lots/items/add", post(lotH.AddItems))
	mux.HandleFunc("/lots/items/attach", post(lotH.Attach))
	mux.HandleFunc("/lots/items/detach", post(lotH.Detach))
	mux.HandleFunc("/lots/finalize", post(lotH.Finalize))
	mux.HandleFunc("/lots/reopen", post(lotH.Reopen))
	mux.HandleFunc("/lots/delete", post(lotH.Delete))

	// Purchase source settings
	sourceH := handlers.NewSourceHandler(db)
	mux.HandleFunc("/settings/sources", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sourceH.List(w, r)
		case http.MethodPost:
			sourceH.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("/settings/sources/rename", post(sourceH.Rename))
	mux.HandleFunc("/settings/sources/merge", post(sourceH.Merge))
	mux.HandleFunc("/settings/sources/delete", post(sourceH.Delete))
	mux.HandleFunc("/settings/sources/toggle", post(sourceH.Toggle))
	mux.HandleFunc("/settings/sources/normalize", post(sourceH.Normalize))

	// CSV interchange
	csvH := handlers.NewCSVHandler(db)
	mux.HandleFunc("/export.csv", get(csvH.Export))
	mux.HandleFunc("/import", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			csvH.ImportForm(w, r)
		case http.MethodPost:
			csvH.Import(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})

	reportH := handlers.NewReportHandler(db)
	mux.HandleFunc("/reports", get(reportH.Show))

	return middleware.Prefs(withRecover(withLogging(mux)))
}

func get(h http.HandlerFunc) http.HandlerFunc {
	return allow(http.MethodGet, h)
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return allow(http.MethodPost, h)
}

func allow(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		h(w, r)
	}
}

// Simple middleware logging & recovery kept private to this package to avoid duplication.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		// Basic stdout log – replace by structured logger if needed
		_ = start // placeholder if switched to structured logging later
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
