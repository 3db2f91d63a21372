package view

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cobrien/resale-tracker/internal/middleware"
	"github.com/cobrien/resale-tracker/internal/validation"
)

var (
	baseDir  string
	once     sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
)

func detectBase() {
	candidates := []string{"templates", "../templates", "../../templates", "../../../templates"}
	for _, c := range candidates {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

// Funcs returns the shared template func map: currency/date formatting plus
// small helpers the list pages need.
func Funcs(r *http.Request) template.FuncMap {
	theme := middleware.ThemeFrom(r)
	return template.FuncMap{
		"theme": func() string { return theme },
		"year":  func() int { return time.Now().Year() },
		"currency": func(d decimal.Decimal) string {
			return "€" + d.StringFixed(2)
		},
		"currencyPtr": func(d *decimal.Decimal) string {
			if d == nil {
				return "–"
			}
			return "€" + d.StringFixed(2)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return validation.FormatDate(t)
		},
		"datePtr": func(t *time.Time) string {
			if t == nil {
				return "–"
			}
			return validation.FormatDate(*t)
		},
		// inputDate feeds <input type="date"> which wants ISO.
		"inputDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"pct": func(v float64) string {
			return decimal.NewFromFloat(v).StringFixed(1) + "%"
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

// Render parses and executes a template file with the shared funcs, wrapping
// it in layout.html plus partials unless the file is a full document.
// Parsed templates are cached outside DEV mode.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	once.Do(detectBase)
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	key := name
	devMode := os.Getenv("DEV") == "1"
	if !devMode {
		tplCache.RLock()
		t, ok := tplCache.m[key]
		tplCache.RUnlock()
		if ok && t != nil {
			return t.Execute(w, data)
		}
	}

	mainPath := filepath.Join(baseDir, name)
	if _, err := os.Stat(mainPath); err != nil {
		// Working directory varies between the binary and package tests;
		// retry across parent levels.
		candidates := []string{
			filepath.Join("templates", name),
			filepath.Join("../templates", name),
			filepath.Join("../../templates", name),
			filepath.Join("../../../templates", name),
		}
		for _, c := range candidates {
			if fi, e2 := os.Stat(c); e2 == nil && !fi.IsDir() {
				baseDir = filepath.Dir(c)
				mainPath = c
				break
			}
		}
		if _, err2 := os.Stat(mainPath); err2 != nil {
			return err
		}
	}

	funcMap := Funcs(r)
	contentBytes, _ := os.ReadFile(mainPath)
	useLayout := !bytes.Contains(bytes.ToLower(contentBytes), []byte("<!doctype"))

	var t *template.Template
	if useLayout {
		layoutPath := filepath.Join(baseDir, "layout.html")
		if fi, err := os.Stat(layoutPath); err == nil && !fi.IsDir() {
			files := []string{layoutPath, mainPath}
			header := filepath.Join(baseDir, "partials", "header.html")
			if pf, err2 := os.Stat(header); err2 == nil && !pf.IsDir() {
				files = append(files, header)
			}
			parsed, err := template.New("layout.html").Funcs(funcMap).ParseFiles(files...)
			if err != nil {
				return err
			}
			t = parsed
		} else {
			useLayout = false
		}
	}
	if !useLayout {
		parsed, err := template.New(name).Funcs(funcMap).ParseFiles(mainPath)
		if err != nil {
			return err
		}
		t = parsed
	}
	if !devMode {
		tplCache.Lock()
		tplCache.m[key] = t
		tplCache.Unlock()
	}
	if t == nil {
		return errors.New("template not cached")
	}
	return t.Execute(w, data)
}
