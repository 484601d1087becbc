package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGeminiURL is the generateContent endpoint used when none is configured.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-pro:generateContent"

const geminiTimeout = 30 * time.Second

// geminiPrompt is the fixed instruction prompt. The exact wording is part of
// the observable contract; the query is interpolated with no delimiting, a
// known prompt-injection surface.
const geminiPrompt = `You are a medical query firewall AI. Analyze the following query for:
1. Medical relevance and appropriateness
2. Potential security risks or malicious intent
3. Privacy concerns
4. Compliance with medical information guidelines

Provide a structured response with:
- decision: "allowed" or "blocked"
- confidence: 0.0 to 1.0
- reasoning: brief explanation
- response: if allowed, provide a helpful medical information response; if blocked, explain why

Query: "%s"`

// GeminiProvider calls the Gemini generateContent API over raw HTTP.
type GeminiProvider struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewGeminiProvider creates a Gemini provider. apiURL may be empty to use
// the default endpoint.
func NewGeminiProvider(apiURL, apiKey string) *GeminiProvider {
	if apiURL == "" {
		apiURL = DefaultGeminiURL
	}
	return &GeminiProvider{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: geminiTimeout},
	}
}

// Name identifies the provider in logs and health output.
func (g *GeminiProvider) Name() string { return "gemini" }

// Classify sends the sanitized query to Gemini and parses the free-text
// reply. It makes exactly one call, with no retry; every failure is mapped
// onto the typed error taxonomy for the arbiter to route to fallback.
func (g *GeminiProvider) Classify(ctx context.Context, sanitized string) (*Result, error) {
	if g.apiKey == "" {
		return nil, ErrConfiguration
	}

	body, _ := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{
				{"text": fmt.Sprintf(geminiPrompt, sanitized)},
			}},
		},
		"generationConfig": map[string]any{
			"temperature":     0.7,
			"maxOutputTokens": 4096,
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"?key="+g.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// 400/403 means the key itself was rejected, an operator problem
	// logged distinctly from transient outages.
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidCredential, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var envelope struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", ErrUnavailable, err)
	}
	if len(envelope.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrUnavailable)
	}

	candidate := envelope.Candidates[0]
	if len(candidate.Content.Parts) == 0 || strings.TrimSpace(candidate.Content.Parts[0].Text) == "" {
		// The model answered but refused or was truncated (finishReason tells why).
		return nil, fmt.Errorf("%w: finishReason=%s", ErrIncompleteResponse, candidate.FinishReason)
	}

	return parseModelText(candidate.Content.Parts[0].Text), nil
}
