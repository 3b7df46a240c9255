// Package importer persists external data files as recordings.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/hypnos/internal/band"
	"github.com/starford/hypnos/internal/loader"
	"github.com/starford/hypnos/internal/session"
	"github.com/starford/hypnos/internal/store"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// Service loads supported files and JSON payloads into the recording store.
type Service struct {
	db     store.RecordingStore
	logger *slog.Logger
}

// NewService creates an importer.
func NewService(db store.RecordingStore, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// ImportFile loads the file at path and persists it as one new recording.
// Returns the recording identity and the number of saved samples.
func (s *Service) ImportFile(_ context.Context, path string) (int64, int, error) {
	t, err := loader.Load(path)
	if err != nil {
		return 0, 0, err
	}

	first, okFirst := parseRowTime(t.Rows[0].Time)
	last, okLast := parseRowTime(t.Rows[len(t.Rows)-1].Time)
	now := time.Now()
	if !okFirst {
		first = now
	}
	if !okLast {
		last = now
	}

	rec := &store.Recording{
		Name:        t.Source,
		Description: fmt.Sprintf("Imported from file: %s", t.Source),
		StartTime:   first,
		EndTime:     last,
		DataCount:   int64(len(t.Rows)),
	}
	if err := s.db.CreateRecording(rec); err != nil {
		return 0, 0, fmt.Errorf("importer: create recording: %w", err)
	}

	samples := make([]store.Sample, 0, len(t.Rows))
	for _, row := range t.Rows {
		ts, ok := parseRowTime(row.Time)
		if !ok {
			ts = now
		}
		samples = append(samples, session.SampleFromVector(rec.ID, band.Vector(row.Values), ts))
	}
	if err := s.db.CreateSamples(samples); err != nil {
		return 0, 0, fmt.Errorf("importer: save samples: %w", err)
	}

	s.logger.Info("file imported",
		slog.String("file", t.Source),
		slog.Int64("recording_id", rec.ID),
		slog.Int("samples", len(samples)))
	return rec.ID, len(samples), nil
}

// ImportUpload spools an uploaded file to a temp path (keeping the original
// extension for format dispatch) and imports it.
func (s *Service) ImportUpload(ctx context.Context, filename string, r io.Reader) (int64, int, error) {
	ext := filepath.Ext(filename)
	tmp, err := os.CreateTemp("", "hypnos-upload-*"+ext)
	if err != nil {
		return 0, 0, fmt.Errorf("importer: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return 0, 0, fmt.Errorf("importer: spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, 0, fmt.Errorf("importer: close temp: %w", err)
	}
	return s.ImportFile(ctx, tmpName)
}

// jsonSample mirrors the JSON import payload: one sample per element, band
// values keyed by the storage column names, everything defaulting to zero.
type jsonSample struct {
	Time          string  `json:"time"`
	Delta         float64 `json:"delta"`
	Theta         float64 `json:"theta"`
	LowAlpha      float64 `json:"low_alpha"`
	HighAlpha     float64 `json:"high_alpha"`
	LowBeta       float64 `json:"low_beta"`
	HighBeta      float64 `json:"high_beta"`
	LowGamma      float64 `json:"low_gamma"`
	HighGamma     float64 `json:"high_gamma"`
	Attention     float64 `json:"attention"`
	Meditation    float64 `json:"meditation"`
	SignalQuality float64 `json:"signal_quality"`
}

// ImportJSON persists a JSON object or array of sample objects as a new
// recording. Elements that fail to decode are skipped.
func (s *Service) ImportJSON(_ context.Context, data []byte) (int64, int, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		// Single object payload.
		elements = []json.RawMessage{data}
	}

	var parsed []jsonSample
	for _, raw := range elements {
		var js jsonSample
		if err := json.Unmarshal(raw, &js); err != nil {
			s.logger.Warn("skipping malformed JSON sample", slog.String("error", err.Error()))
			continue
		}
		parsed = append(parsed, js)
	}
	if len(parsed) == 0 {
		return 0, 0, fmt.Errorf("importer: no decodable samples in JSON payload")
	}

	now := time.Now()
	rec := &store.Recording{
		Name:        "JSON import " + now.Format("20060102_150405"),
		Description: "Recording imported from JSON data",
		StartTime:   now,
		EndTime:     now,
		DataCount:   int64(len(parsed)),
	}
	if err := s.db.CreateRecording(rec); err != nil {
		return 0, 0, fmt.Errorf("importer: create recording: %w", err)
	}

	samples := make([]store.Sample, 0, len(parsed))
	for _, js := range parsed {
		ts, ok := parseRowTime(js.Time)
		if !ok {
			ts = now
		}
		samples = append(samples, store.Sample{
			RecordingID:   rec.ID,
			Time:          ts,
			Delta:         js.Delta,
			Theta:         js.Theta,
			LowAlpha:      js.LowAlpha,
			HighAlpha:     js.HighAlpha,
			LowBeta:       js.LowBeta,
			HighBeta:      js.HighBeta,
			LowGamma:      js.LowGamma,
			HighGamma:     js.HighGamma,
			Attention:     js.Attention,
			Meditation:    js.Meditation,
			SignalQuality: js.SignalQuality,
		})
	}
	if err := s.db.CreateSamples(samples); err != nil {
		return 0, 0, fmt.Errorf("importer: save samples: %w", err)
	}
	return rec.ID, len(samples), nil
}

func parseRowTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
