// Package analysis runs the load → summarize → compose pipeline.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/hypnos/internal/apperr"
	"github.com/starford/hypnos/internal/loader"
	"github.com/starford/hypnos/internal/report"
	"github.com/starford/hypnos/internal/stats"
	"github.com/starford/hypnos/internal/storage"
	"github.com/starford/hypnos/internal/store"
)

// Service coordinates the loader, statistics engine, and report composer.
type Service struct {
	db       store.RecordingStore
	composer *report.Composer
	scratch  storage.Provider // holds transient export artifacts
	logger   *slog.Logger
}

// NewService creates an analysis service. scratch is the artifact store
// used for transient recording exports.
func NewService(db store.RecordingStore, composer *report.Composer, scratch storage.Provider, logger *slog.Logger) *Service {
	return &Service{db: db, composer: composer, scratch: scratch, logger: logger}
}

// AnalyzeFile loads the file at path, derives statistics, and composes the
// report. The AI call operates on the loaded snapshot only.
func (s *Service) AnalyzeFile(ctx context.Context, path, apiKey string) (*report.Document, error) {
	t, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	bandStats, a := stats.Summarize(t)
	doc, err := s.composer.Compose(ctx, t, bandStats, a, apiKey)
	if err != nil {
		return nil, err
	}
	s.logger.Info("analysis completed",
		slog.String("source", t.Source),
		slog.Int("rows", doc.Rows),
		slog.String("report", doc.Filename))
	return doc, nil
}

// AnalyzeRecording materialises a recording's samples into a transient text
// artifact, analyses it, and removes the artifact afterwards.
func (s *Service) AnalyzeRecording(ctx context.Context, id int64, apiKey string) (*report.Document, error) {
	if _, err := s.db.GetRecording(id); err != nil {
		return nil, err
	}
	samples, err := s.db.ListSamplesByRecording(id)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("analysis: recording %d: %w", id, apperr.ErrNoData)
	}

	name := fmt.Sprintf("recording_%d_export.txt", id)
	if err := s.scratch.Write(name, exportSamples(samples)); err != nil {
		return nil, fmt.Errorf("analysis: export recording %d: %w", id, err)
	}
	defer func() {
		if err := s.scratch.Remove(name); err != nil {
			s.logger.Warn("remove export artifact failed", slog.String("error", err.Error()))
		}
	}()

	abs, err := s.scratch.Abs(name)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeFile(ctx, abs, apiKey)
}

// exportSamples renders samples into the canonical log-line format the text
// loader consumes.
func exportSamples(samples []store.Sample) []byte {
	var b strings.Builder
	for _, s := range samples {
		b.WriteString(s.Time.Format("2006-01-02 15:04:05"))
		b.WriteString(" - ")
		writePair(&b, "Delta", s.Delta, false)
		writePair(&b, "Theta", s.Theta, true)
		writePair(&b, "LowAlpha", s.LowAlpha, true)
		writePair(&b, "HighAlpha", s.HighAlpha, true)
		writePair(&b, "LowBeta", s.LowBeta, true)
		writePair(&b, "HighBeta", s.HighBeta, true)
		writePair(&b, "LowGamma", s.LowGamma, true)
		writePair(&b, "HighGamma", s.HighGamma, true)
		writePair(&b, "Attention", s.Attention, true)
		writePair(&b, "Meditation", s.Meditation, true)
		writePair(&b, "SignalQuality", s.SignalQuality, true)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func writePair(b *strings.Builder, name string, val float64, space bool) {
	if space {
		b.WriteByte(' ')
	}
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
}
