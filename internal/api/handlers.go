package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/hypnos/internal/analysis"
	"github.com/starford/hypnos/internal/apperr"
	"github.com/starford/hypnos/internal/importer"
	"github.com/starford/hypnos/internal/report"
	"github.com/starford/hypnos/internal/store"
)

const maxImportBytes = 50 << 20 // 50 MB

// Handler holds API route handlers.
type Handler struct {
	db       store.RecordingStore
	importer *importer.Service
	analyzer *analysis.Service
	composer *report.Composer
}

// NewHandler creates a new Handler.
func NewHandler(db store.RecordingStore, imp *importer.Service, an *analysis.Service, comp *report.Composer) *Handler {
	return &Handler{db: db, importer: imp, analyzer: an, composer: comp}
}

// Import handles POST /api/import.
//
// Accepts either a multipart upload (field "file") of a supported data file
// (.csv, .txt, .log, .xls, .xlsx) or an application/json body holding an
// array of sample objects. Either way the payload becomes one new recording.
//
//	@Summary		Import a data file or JSON payload as a recording
//	@Tags			import
//	@Accept			mpfd
//	@Produce		json
//	@Success		201	{object}	ImportResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.importJSON(w, r)
		return
	}

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	id, n, err := h.importer.ImportUpload(r.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnsupportedFormat):
			writeJSON(w, http.StatusBadRequest, errorBody("unsupported file format"))
		case errors.Is(err, apperr.ErrEmptyDataset):
			writeJSON(w, http.StatusBadRequest, errorBody("no usable data rows in file"))
		default:
			slog.Error("import failed", slog.String("file", header.Filename), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{RecordingID: id, Samples: n})
}

func (h *Handler) importJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	id, n, err := h.importer.ImportJSON(r.Context(), body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("no decodable samples in JSON payload"))
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{RecordingID: id, Samples: n})
}

// Analyze handles POST /api/analyze.
//
// Generates a sleep report for a stored recording. Report generation never
// fails because of the AI provider: when the narrative call degrades, the
// report still renders with a fallback narrative.
//
//	@Summary		Generate a sleep report for a recording
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AnalyzeRequest	true	"Recording to analyze"
//	@Success		200		{object}	AnalyzeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.RecordingID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("recording_id is required"))
		return
	}

	doc, err := h.analyzer.AnalyzeRecording(r.Context(), req.RecordingID, req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("recording not found"))
		case errors.Is(err, apperr.ErrNoData):
			writeJSON(w, http.StatusBadRequest, errorBody("recording has no samples"))
		default:
			slog.Error("analyze failed", slog.Int64("recording_id", req.RecordingID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Success:   true,
		Content:   doc.Content,
		ReportURL: "/api/reports/" + doc.Filename,
	})
}

// LatestRecord handles GET /api/records/latest.
//
//	@Summary		Get the most recently started recording
//	@Tags			records
//	@Produce		json
//	@Success		200	{object}	RecordingItem
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/latest [get]
func (h *Handler) LatestRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.db.LatestRecording()
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("no recordings"))
		} else {
			slog.Error("latest recording failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, recordingItem(rec))
}

// AllRecords handles GET /api/records/all.
//
//	@Summary		List all recordings, newest first
//	@Tags			records
//	@Produce		json
//	@Success		200	{object}	RecordingListResponse
//	@Security		BearerAuth
//	@Router			/records/all [get]
func (h *Handler) AllRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.db.ListRecordings()
	if err != nil {
		slog.Error("list recordings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]RecordingItem, 0, len(recs))
	for i := range recs {
		items = append(items, recordingItem(&recs[i]))
	}
	writeJSON(w, http.StatusOK, RecordingListResponse{Recordings: items, Total: len(items)})
}

// TestAPIKey handles POST /api/test-api-key.
//
// Probes the configured AI provider with the supplied key. A failed probe is
// still a 200 response with valid=false so clients can show the reason.
//
//	@Summary		Probe an AI API key against the provider
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TestKeyRequest	true	"Key to probe"
//	@Success		200		{object}	TestKeyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/test-api-key [post]
func (h *Handler) TestAPIKey(w http.ResponseWriter, r *http.Request) {
	var req TestKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.APIKey == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("api_key is required"))
		return
	}
	if err := h.composer.TestKey(r.Context(), req.APIKey); err != nil {
		writeJSON(w, http.StatusOK, TestKeyResponse{Valid: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, TestKeyResponse{Valid: true, Message: "API key verified"})
}

func recordingItem(rec *store.Recording) RecordingItem {
	return RecordingItem{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		DataCount:   rec.DataCount,
	}
}
