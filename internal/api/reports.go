package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ReportHandler serves generated report files.
type ReportHandler struct {
	reportDir string
}

// NewReportHandler creates a handler rooted at the report directory.
func NewReportHandler(reportDir string) *ReportHandler {
	return &ReportHandler{reportDir: reportDir}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the report dir.
func (h *ReportHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.reportDir, cleaned)
	if !strings.HasPrefix(abs, h.reportDir+string(os.PathSeparator)) && abs != h.reportDir {
		return "", fmt.Errorf("path escapes report directory")
	}
	return abs, nil
}

// ServeFile handles GET /api/reports/{filename}.
//
//	@Summary		Download a generated report
//	@Tags			analysis
//	@Produce		html
//	@Param			filename	path	string	true	"Report filename"
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports/{filename} [get]
func (h *ReportHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.safeName(filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		writeJSON(w, http.StatusNotFound, errorBody("report not found"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, abs)
}
