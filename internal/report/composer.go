package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/hypnos/internal/band"
	"github.com/starford/hypnos/internal/loader"
	"github.com/starford/hypnos/internal/stats"
	"github.com/starford/hypnos/internal/storage"
)

// FallbackMarker appears in every report whose narrative was substituted
// after an AI failure.
const FallbackMarker = "automated fallback"

// Config selects and parameterises the narrative provider.
type Config struct {
	Provider    string // ProviderArk or ProviderCanned
	BaseURL     string
	Model       string
	APIKey      string // default key; per-request keys override it
	Temperature float64
	Timeout     time.Duration
}

// Document is the finished report artifact.
type Document struct {
	Content     string
	Filename    string
	SourceFile  string
	Rows        int
	GeneratedAt time.Time
}

// Composer builds report documents and writes them to the report store.
type Composer struct {
	cfg     Config
	reports storage.Provider
	logger  *slog.Logger
	now     func() time.Time
}

// NewComposer creates a composer writing into the given report store.
func NewComposer(cfg Config, reports storage.Provider, logger *slog.Logger) *Composer {
	return &Composer{cfg: cfg, reports: reports, logger: logger, now: time.Now}
}

// Compose builds the AI prompt from the computed statistics, invokes the
// narrative provider with a bounded timeout, and assembles the final HTML
// report. Any provider failure is masked by the canned narrative plus an
// inline error banner; Compose never fails because of the AI collaborator.
func (c *Composer) Compose(ctx context.Context, t *loader.Table, bandStats []stats.BandStat, analysis stats.Analysis, apiKey string) (*Document, error) {
	narrative := c.narrative(ctx, t, bandStats, analysis, apiKey)

	generated := c.now()
	content, err := renderReport(reportData{
		Title:       "Sleep EEG Analysis Report",
		GeneratedAt: generated.Format("2006-01-02 15:04:05"),
		SourceFile:  t.Source,
		Stats:       bandStats,
		Analysis:    analysis,
		Shares:      orderedShares(analysis),
		ScoreColor:  scoreColor(analysis),
		Narrative:   template.HTML(narrative), //nolint:gosec // sanitized above
	})
	if err != nil {
		return nil, fmt.Errorf("report: render: %w", err)
	}

	name := reportFilename(generated, content)
	if err := c.reports.Write(name, []byte(content)); err != nil {
		return nil, fmt.Errorf("report: write artifact: %w", err)
	}

	return &Document{
		Content:     content,
		Filename:    name,
		SourceFile:  t.Source,
		Rows:        len(t.Rows),
		GeneratedAt: generated,
	}, nil
}

// narrative obtains the AI narrative, degrading to the canned text plus an
// error banner on any failure. The provider call holds no locks and runs
// against a private snapshot of the derived statistics.
func (c *Composer) narrative(ctx context.Context, t *loader.Table, bandStats []stats.BandStat, analysis stats.Analysis, apiKey string) string {
	provider, reason := c.providerFor(apiKey)
	if provider == nil {
		return cannedNarrative + errorBanner(reason)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	text, err := provider.Complete(callCtx, buildPrompt(t, bandStats, analysis))
	if err != nil {
		c.logger.Warn("narrative provider failed", slog.String("error", err.Error()))
		return cannedNarrative + errorBanner(err.Error())
	}
	return sanitizeNarrative(text)
}

// providerFor selects the narrative provider for one compose call. A nil
// provider means "degrade immediately" with the returned reason.
func (c *Composer) providerFor(apiKey string) (NarrativeProvider, string) {
	if c.cfg.Provider == ProviderCanned {
		return CannedProvider{}, ""
	}
	key := apiKey
	if key == "" {
		key = c.cfg.APIKey
	}
	if key == "" || key == placeholderKey {
		return nil, "API key not configured"
	}
	return NewArkClient(c.cfg.BaseURL, c.cfg.Model, key, c.cfg.Temperature, c.cfg.Timeout), ""
}

// TestKey probes the AI collaborator with a trivial prompt to validate an
// API key.
func (c *Composer) TestKey(ctx context.Context, apiKey string) error {
	if apiKey == "" || apiKey == placeholderKey {
		return fmt.Errorf("report: api key is empty")
	}
	client := NewArkClient(c.cfg.BaseURL, c.cfg.Model, apiKey, c.cfg.Temperature, c.cfg.Timeout)
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if _, err := client.Complete(callCtx, "Reply with the single word OK."); err != nil {
		return err
	}
	return nil
}

func buildPrompt(t *loader.Table, bandStats []stats.BandStat, analysis stats.Analysis) string {
	var b strings.Builder
	b.WriteString("As a sleep specialist, analyse the following EEG data.\n")
	b.WriteString("1. Band statistics (mean/std/min/max):\n")
	for _, s := range bandStats {
		fmt.Fprintf(&b, "   %s: mean=%.2f std=%.2f min=%.2f max=%.2f\n", s.Band, s.Mean, s.Std, s.Min, s.Max)
	}
	b.WriteString("2. Sleep-stage shares of total power:\n")
	if analysis.Valid {
		for _, name := range band.Canonical {
			fmt.Fprintf(&b, "   %s: %.1f%%\n", name, analysis.Shares[name])
		}
		fmt.Fprintf(&b, "   Sleep score: %d/100 (%s)\n", analysis.Score, analysis.Quality)
	} else {
		b.WriteString("   no valid data\n")
	}
	fmt.Fprintf(&b, "The dataset holds %d samples from %s.\n", len(t.Rows), t.Source)
	b.WriteString("Write an HTML fragment with a sleep-quality assessment, stage analysis, " +
		"and health advice. Mark key findings with <strong>bold</strong> and risk flags " +
		`with <span style="color:red">red</span>. Do not wrap the fragment in <html> or <body> tags.`)
	return b.String()
}

// sanitizeNarrative strips document-level wrappers the model may echo
// around the requested fragment.
func sanitizeNarrative(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```html")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	for _, tag := range []string{"<!DOCTYPE html>", "<html>", "</html>", "<head>", "</head>", "<body>", "</body>"} {
		s = strings.ReplaceAll(s, tag, "")
	}
	return strings.TrimSpace(s)
}

func errorBanner(reason string) string {
	return fmt.Sprintf(`<div class="error"><h3>AI narrative unavailable</h3><p>%s</p></div>`,
		template.HTMLEscapeString(reason))
}

// reportFilename generates a collision-resistant artifact name from the
// generation timestamp and a content digest.
func reportFilename(generated time.Time, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("report_%s_%s.html", generated.Format("20060102_150405"), hex.EncodeToString(sum[:4]))
}

func scoreColor(a stats.Analysis) string {
	if a.Score >= 60 {
		return "#52c41a"
	}
	return "#f5222d"
}

type shareRow struct {
	Band  string
	Stage string
	Pct   string
}

var stageNames = map[string]string{
	band.Delta: "Deep sleep",
	band.Theta: "Light sleep",
	band.Alpha: "REM",
	band.Beta:  "Awake",
	band.Gamma: "Active",
}

func orderedShares(a stats.Analysis) []shareRow {
	if !a.Valid {
		return nil
	}
	out := make([]shareRow, 0, len(band.Canonical))
	for _, name := range band.Canonical {
		out = append(out, shareRow{
			Band:  name,
			Stage: stageNames[name],
			Pct:   fmt.Sprintf("%.1f", a.Shares[name]),
		})
	}
	return out
}
