package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider is the alternate AI path via the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	apiKey string
	model  string
}

// NewOpenAIProvider creates an OpenAI provider using the given API key.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		apiKey: apiKey,
		model:  model,
	}
}

// Name identifies the provider in logs and health output.
func (o *OpenAIProvider) Name() string { return "openai" }

// Classify sends the sanitized query to OpenAI and parses the free-text reply.
func (o *OpenAIProvider) Classify(ctx context.Context, sanitized string) (*Result, error) {
	if o.apiKey == "" {
		return nil, ErrConfiguration
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.7,
		MaxTokens:   1024,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(geminiPrompt, sanitized)},
			{Role: openai.ChatMessageRoleUser, Content: sanitized},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.HTTPStatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
				return nil, fmt.Errorf("%w: status %d", ErrInvalidCredential, apiErr.HTTPStatusCode)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty choice", ErrIncompleteResponse)
	}

	return parseModelText(resp.Choices[0].Message.Content), nil
}
