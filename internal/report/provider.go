// Package report composes the final HTML sleep report, blending the
// deterministic statistics with an AI-generated narrative.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider modes.
const (
	ProviderArk    = "ark"
	ProviderCanned = "canned"
)

// placeholderKey is the unconfigured-key sentinel that forces the canned
// narrative.
const placeholderKey = "your_api_key_here"

// NarrativeProvider produces the free-text sleep-health assessment embedded
// in the report.
type NarrativeProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ArkClient calls an Ark-compatible chat-completions endpoint.
type ArkClient struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	client      *http.Client
}

type arkRequest struct {
	Model       string       `json:"model"`
	Messages    []arkMessage `json:"messages"`
	Temperature float64      `json:"temperature,omitempty"`
}

type arkMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type arkResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewArkClient creates a chat-completions client with a bounded timeout.
func NewArkClient(baseURL, model, apiKey string, temperature float64, timeout time.Duration) *ArkClient {
	return &ArkClient{
		baseURL:     baseURL,
		model:       model,
		apiKey:      apiKey,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

// Complete sends the prompt and returns the model's text completion.
func (c *ArkClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(arkRequest{
		Model:       c.model,
		Messages:    []arkMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("report: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("report: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("report: completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("report: read response: %w", err)
	}

	var parsed arkResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("report: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("report: completion failed: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("report: completion failed: status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("report: completion returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// CannedProvider returns a fixed narrative; used when no AI collaborator is
// configured and as the degradation target in tests.
type CannedProvider struct{}

// Complete returns the canned assessment.
func (CannedProvider) Complete(_ context.Context, _ string) (string, error) {
	return cannedNarrative, nil
}

const cannedNarrative = `<p><strong>Sleep quality assessment (automated fallback)</strong><br>` +
	`This assessment was generated without the AI collaborator. Deep-sleep and ` +
	`light-sleep proportions are reported in the tables above; review the Delta ` +
	`and Theta shares for depth of sleep and the Beta and Gamma shares for ` +
	`wakeful activity.<br><strong>Advice</strong>: keep a regular schedule, avoid ` +
	`screens before bed, and re-run the analysis with a configured API key for a ` +
	`personalised narrative.</p>`
