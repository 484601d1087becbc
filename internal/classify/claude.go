package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-sonnet-4-5"

// ClaudeProvider is the alternate AI path via the Anthropic Messages API.
// The firewall prompt and output contract are identical to the Gemini
// provider; only the transport differs.
type ClaudeProvider struct {
	client anthropic.Client
	apiKey string
	model  string
}

// NewClaudeProvider creates a Claude provider using the given API key.
func NewClaudeProvider(apiKey, model string) *ClaudeProvider {
	if model == "" {
		model = defaultClaudeModel
	}
	return &ClaudeProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		apiKey: apiKey,
		model:  model,
	}
}

// Name identifies the provider in logs and health output.
func (c *ClaudeProvider) Name() string { return "claude" }

// Classify sends the sanitized query to Claude and parses the free-text reply.
func (c *ClaudeProvider) Classify(ctx context.Context, sanitized string) (*Result, error) {
	if c.apiKey == "" {
		return nil, ErrConfiguration
	}

	// The Messages API is role-based, so the instruction rides in the system
	// slot and only the query text is user content.
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: fmt.Sprintf(geminiPrompt, sanitized)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(sanitized)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			switch apierr.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
				return nil, fmt.Errorf("%w: status %d", ErrInvalidCredential, apierr.StatusCode)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(message.Content) == 0 || strings.TrimSpace(message.Content[0].Text) == "" {
		return nil, fmt.Errorf("%w: stop_reason=%s", ErrIncompleteResponse, message.StopReason)
	}

	return parseModelText(message.Content[0].Text), nil
}
