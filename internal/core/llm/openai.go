package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/lueurxax/channel-curator/internal/core/errors"
)

const codeInsufficientQuota = "insufficient_quota"

// OpenAIConfig configures the OpenAI chat provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type openaiProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIFactory returns a factory for the OpenAI provider.
func NewOpenAIFactory(cfg OpenAIConfig) ProviderFactory {
	return func(httpClient *http.Client) (Provider, error) {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		clientCfg.HTTPClient = httpClient

		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}

		return &openaiProvider{
			client: openai.NewClientWithConfig(clientCfg),
			model:  cfg.Model,
		}, nil
	}
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Model() string { return p.model }

func (p *openaiProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: %w", apperrors.ErrEmptyResponse)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *openaiProvider) IsRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return true
		}

		if code, ok := apiErr.Code.(string); ok && code == codeInsufficientQuota {
			return true
		}
	}

	var reqErr *openai.RequestError

	return errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests
}
