package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "github.com/lueurxax/channel-curator/internal/core/errors"
)

const contentTypeText = "text"

// AnthropicConfig configures the Anthropic messages provider.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
}

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicFactory returns a factory for the Anthropic provider.
func NewAnthropicFactory(cfg AnthropicConfig) ProviderFactory {
	return func(httpClient *http.Client) (Provider, error) {
		opts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(cfg.MaxRetries),
		}

		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}

		return &anthropicProvider{
			client: anthropic.NewClient(opts...),
			model:  cfg.Model,
		}, nil
	}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	text := strings.TrimSpace(extractTextFromResponse(resp))
	if text == "" && req.Operation != OpProbe {
		return "", fmt.Errorf("anthropic messages: %w", apperrors.ErrEmptyResponse)
	}

	return text, nil
}

func (p *anthropicProvider) IsRateLimit(err error) bool {
	var apiErr *anthropic.Error

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

func extractTextFromResponse(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return result.String()
}
