package analysis

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/hypnos/internal/apperr"
	"github.com/starford/hypnos/internal/report"
	"github.com/starford/hypnos/internal/store"
	"github.com/starford/hypnos/internal/testutil"
)

func testService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	_, scratch := testutil.TestStore(t)
	_, reports := testutil.TestStore(t)
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	composer := report.NewComposer(report.Config{Provider: report.ProviderCanned, Timeout: time.Second}, reports, logger)
	return NewService(db, composer, scratch, logger), db
}

func TestAnalyzeFile(t *testing.T) {
	svc, _ := testService(t)
	path := filepath.Join(t.TempDir(), "night.txt")
	content := "2025-01-01 22:00:00 - Delta 40 Theta 30 Alpha 20 Beta 8 Gamma 2\n" +
		"2025-01-01 22:00:02 - Delta 42 Theta 28 Alpha 19 Beta 9 Gamma 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.AnalyzeFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	if doc.Rows != 2 {
		t.Errorf("rows = %d, want 2", doc.Rows)
	}
	if doc.SourceFile != "night.txt" {
		t.Errorf("source = %q", doc.SourceFile)
	}
	if !strings.Contains(doc.Content, "night.txt") {
		t.Error("report should name its source file")
	}
}

func TestAnalyzeFile_UnsupportedFormat(t *testing.T) {
	svc, _ := testService(t)
	path := filepath.Join(t.TempDir(), "data.zip")
	if err := os.WriteFile(path, []byte("zipzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := svc.AnalyzeFile(context.Background(), path, "")
	if !errors.Is(err, apperr.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestAnalyzeRecording(t *testing.T) {
	svc, db := testService(t)
	now := time.Now().UTC().Truncate(time.Second)
	rec := &store.Recording{Name: "night", StartTime: now, EndTime: now}
	if err := db.CreateRecording(rec); err != nil {
		t.Fatal(err)
	}
	samples := []store.Sample{
		{RecordingID: rec.ID, Time: now, Delta: 40, Theta: 30, LowAlpha: 18, HighAlpha: 22, LowBeta: 8, HighBeta: 8, LowGamma: 2, HighGamma: 2},
		{RecordingID: rec.ID, Time: now.Add(2 * time.Second), Delta: 42, Theta: 28, LowAlpha: 17, HighAlpha: 21, LowBeta: 9, HighBeta: 9, LowGamma: 2, HighGamma: 2},
	}
	if err := db.CreateSamples(samples); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.AnalyzeRecording(context.Background(), rec.ID, "")
	if err != nil {
		t.Fatalf("AnalyzeRecording: %v", err)
	}
	if doc.Rows != 2 {
		t.Errorf("rows = %d, want 2", doc.Rows)
	}
}

func TestAnalyzeRecording_RemovesExport(t *testing.T) {
	db := testutil.TestDB(t)
	scratchDir, scratch := testutil.TestStore(t)
	_, reports := testutil.TestStore(t)
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	composer := report.NewComposer(report.Config{Provider: report.ProviderCanned, Timeout: time.Second}, reports, logger)
	svc := NewService(db, composer, scratch, logger)

	now := time.Now().UTC().Truncate(time.Second)
	rec := &store.Recording{Name: "cleanup", StartTime: now, EndTime: now}
	if err := db.CreateRecording(rec); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateSamples([]store.Sample{{RecordingID: rec.ID, Time: now, Delta: 10}}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AnalyzeRecording(context.Background(), rec.ID, ""); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("export artifact not cleaned up: %v", entries)
	}
}

func TestAnalyzeRecording_NotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.AnalyzeRecording(context.Background(), 99, "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalyzeRecording_NoSamples(t *testing.T) {
	svc, db := testService(t)
	now := time.Now()
	rec := &store.Recording{Name: "empty", StartTime: now, EndTime: now}
	if err := db.CreateRecording(rec); err != nil {
		t.Fatal(err)
	}
	_, err := svc.AnalyzeRecording(context.Background(), rec.ID, "")
	if !errors.Is(err, apperr.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestExportSamples_LoaderRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 22, 0, 0, 0, time.UTC)
	samples := []store.Sample{
		{Time: now, Delta: 25.5, Theta: 30, LowAlpha: 18, HighAlpha: 22, Attention: 60},
	}
	out := string(exportSamples(samples))
	if !strings.HasPrefix(out, "2025-01-01 22:00:00 - Delta 25.5 Theta 30") {
		t.Errorf("export line = %q", out)
	}
	if !strings.Contains(out, "Attention 60") {
		t.Errorf("scalars missing: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("lines must be newline-terminated")
	}
}
