package handler

import (
	"embed"
	"net/http"

	"github.com/wadjakorntonsri/go-visit-counter/pkg/config"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/metrics"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/ports"
)

//go:embed web/index.html
var webFS embed.FS

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.VisitService) http.Handler {
	h := NewHTTPHandler(service)
	mw := NewMiddleware(cfg)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Visit counter API
	mux.HandleFunc("POST /visit", h.RecordVisit)
	mux.HandleFunc("GET /visit", h.Stats)

	// Widget page
	mux.HandleFunc("GET /{$}", servePage)

	return mw.Chain(mux)
}

func servePage(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
