package report

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/hypnos/internal/band"
	"github.com/starford/hypnos/internal/loader"
	"github.com/starford/hypnos/internal/stats"
	"github.com/starford/hypnos/internal/testutil"
)

func testTable() (*loader.Table, []stats.BandStat, stats.Analysis) {
	t := &loader.Table{
		Source: "night.txt",
		Bands:  band.Canonical,
		Rows: []loader.Row{
			{Time: "2025-01-01 22:00:00", Values: map[string]float64{
				"Delta": 40, "Theta": 30, "Alpha": 20, "Beta": 8, "Gamma": 2,
			}},
			{Time: "2025-01-01 22:00:02", Values: map[string]float64{
				"Delta": 42, "Theta": 28, "Alpha": 19, "Beta": 9, "Gamma": 2,
			}},
		},
	}
	bandStats, analysis := stats.Summarize(t)
	return t, bandStats, analysis
}

func testComposer(t *testing.T, cfg Config) *Composer {
	t.Helper()
	_, reports := testutil.TestStore(t)
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewComposer(cfg, reports, logger)
}

func TestCompose_CannedProvider(t *testing.T) {
	c := testComposer(t, Config{Provider: ProviderCanned, Timeout: time.Second})
	tbl, bandStats, analysis := testTable()

	doc, err := c.Compose(context.Background(), tbl, bandStats, analysis, "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if doc.Rows != 2 {
		t.Errorf("rows = %d, want 2", doc.Rows)
	}
	if !strings.HasPrefix(doc.Filename, "report_") || !strings.HasSuffix(doc.Filename, ".html") {
		t.Errorf("filename = %q", doc.Filename)
	}
	if !strings.Contains(doc.Content, "Sleep EEG Analysis Report") {
		t.Error("report header missing")
	}
	if !strings.Contains(doc.Content, "night.txt") {
		t.Error("source file missing from report")
	}
}

func TestCompose_MissingKeyDegrades(t *testing.T) {
	c := testComposer(t, Config{Provider: ProviderArk, BaseURL: "http://unused", Model: "m", Timeout: time.Second})
	tbl, bandStats, analysis := testTable()

	doc, err := c.Compose(context.Background(), tbl, bandStats, analysis, "")
	if err != nil {
		t.Fatalf("Compose must not fail on missing key: %v", err)
	}
	if !strings.Contains(doc.Content, FallbackMarker) {
		t.Error("degraded report should carry the fallback narrative")
	}
	if !strings.Contains(doc.Content, "AI narrative unavailable") {
		t.Error("degraded report should carry the error banner")
	}
}

func TestCompose_PlaceholderKeyDegrades(t *testing.T) {
	c := testComposer(t, Config{Provider: ProviderArk, BaseURL: "http://unused", Model: "m",
		APIKey: placeholderKey, Timeout: time.Second})
	tbl, bandStats, analysis := testTable()

	doc, err := c.Compose(context.Background(), tbl, bandStats, analysis, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Content, FallbackMarker) {
		t.Error("placeholder key should degrade to the fallback narrative")
	}
}

func TestCompose_ProviderErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
	}))
	defer srv.Close()

	c := testComposer(t, Config{Provider: ProviderArk, BaseURL: srv.URL, Model: "m", Timeout: time.Second})
	tbl, bandStats, analysis := testTable()

	doc, err := c.Compose(context.Background(), tbl, bandStats, analysis, "some-key")
	if err != nil {
		t.Fatalf("Compose must not fail on provider error: %v", err)
	}
	if !strings.Contains(doc.Content, FallbackMarker) {
		t.Error("provider failure should degrade to the fallback narrative")
	}
	if !strings.Contains(doc.Content, "upstream exploded") {
		t.Error("error banner should carry the provider reason")
	}
}

func TestCompose_ProviderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer some-key" {
			t.Errorf("auth header = %q", got)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<p>Deep sleep dominates.</p>"}}]}`))
	}))
	defer srv.Close()

	c := testComposer(t, Config{Provider: ProviderArk, BaseURL: srv.URL, Model: "m", Timeout: time.Second})
	tbl, bandStats, analysis := testTable()

	doc, err := c.Compose(context.Background(), tbl, bandStats, analysis, "some-key")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(doc.Content, "Deep sleep dominates.") {
		t.Error("model narrative missing from report")
	}
	if strings.Contains(doc.Content, FallbackMarker) {
		t.Error("successful narrative should not carry the fallback marker")
	}
}

func TestCompose_WritesArtifact(t *testing.T) {
	_, reports := testutil.TestStore(t)
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	c := NewComposer(Config{Provider: ProviderCanned, Timeout: time.Second}, reports, logger)
	tbl, bandStats, analysis := testTable()

	doc, err := c.Compose(context.Background(), tbl, bandStats, analysis, "")
	if err != nil {
		t.Fatal(err)
	}
	data, err := reports.Read(doc.Filename)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if string(data) != doc.Content {
		t.Error("artifact content differs from document content")
	}
}

func TestSanitizeNarrative(t *testing.T) {
	in := "```html\n<!DOCTYPE html><html><body><p>hi</p></body></html>\n```"
	got := sanitizeNarrative(in)
	if got != "<p>hi</p>" {
		t.Errorf("sanitizeNarrative = %q", got)
	}
}

func TestTestKey_EmptyKey(t *testing.T) {
	c := testComposer(t, Config{Provider: ProviderArk, BaseURL: "http://unused", Model: "m", Timeout: time.Second})
	if err := c.TestKey(context.Background(), ""); err == nil {
		t.Error("empty key should fail the probe")
	}
	if err := c.TestKey(context.Background(), placeholderKey); err == nil {
		t.Error("placeholder key should fail the probe")
	}
}

func TestTestKey_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"OK"}}]}`))
	}))
	defer srv.Close()

	c := testComposer(t, Config{Provider: ProviderArk, BaseURL: srv.URL, Model: "m", Timeout: time.Second})
	if err := c.TestKey(context.Background(), "valid-key"); err != nil {
		t.Errorf("TestKey: %v", err)
	}
}

func TestReportFilename_ContentDigest(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	a := reportFilename(ts, "content-a")
	b := reportFilename(ts, "content-b")
	if a == b {
		t.Error("different content should yield different filenames")
	}
	if !strings.HasPrefix(a, "report_20250101_120000_") {
		t.Errorf("filename = %q", a)
	}
}
