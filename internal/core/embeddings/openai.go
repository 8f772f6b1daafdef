package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAI model constants.
const (
	ModelTextEmbedding3Large = "text-embedding-3-large"
	ModelTextEmbedding3Small = "text-embedding-3-small"

	openaiRateLimiterBurst = 5
)

// ErrOpenAIEmptyResponse is returned when the API answers without vectors.
var ErrOpenAIEmptyResponse = errors.New("empty embedding response from OpenAI")

// OpenAIProvider implements the embedding Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	dimensions  int
	rateLimiter *rate.Limiter
	available   bool
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // Requested output dimensions for text-embedding-3 models
	RateLimit  int // Requests per second
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = ModelTextEmbedding3Small
	}

	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), openaiRateLimiterBurst),
		available:   cfg.APIKey != "" && cfg.APIKey != mockAPIKey,
	}
}

func (p *OpenAIProvider) Name() ProviderName { return ProviderOpenAI }

func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Priority() int { return PriorityPrimary }

func (p *OpenAIProvider) IsAvailable() bool { return p.available }

// GetEmbedding generates an embedding for the given text using OpenAI API.
func (p *OpenAIProvider) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return EmbeddingResult{}, fmt.Errorf(errRateLimiterFmt, err)
	}

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	}

	// text-embedding-3 models accept a reduced output size
	if p.model == ModelTextEmbedding3Large || p.model == ModelTextEmbedding3Small {
		req.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return EmbeddingResult{}, ErrOpenAIEmptyResponse
	}

	return EmbeddingResult{
		Vector:     resp.Data[0].Embedding,
		Dimensions: len(resp.Data[0].Embedding),
		Provider:   ProviderOpenAI,
	}, nil
}
