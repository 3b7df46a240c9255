package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/hypnos/internal/analysis"
	"github.com/starford/hypnos/internal/importer"
	"github.com/starford/hypnos/internal/report"
	"github.com/starford/hypnos/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// reportDir is where generated report files are served from.
func NewRouter(db store.RecordingStore, imp *importer.Service, an *analysis.Service, comp *report.Composer,
	authEnabled bool, token string, sseHandler http.Handler, reportDir string) chi.Router {
	h := NewHandler(db, imp, an, comp)
	rh := NewReportHandler(reportDir)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Data ingress.
	r.Post("/import", h.Import)

	// Analysis.
	r.Post("/analyze", h.Analyze)
	r.Get("/reports/{filename}", rh.ServeFile)
	r.Post("/test-api-key", h.TestAPIKey)

	// Recordings.
	r.Get("/records/latest", h.LatestRecord)
	r.Get("/records/all", h.AllRecords)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
