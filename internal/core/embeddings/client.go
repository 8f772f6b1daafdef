// Package embeddings turns text into vectors and compares them.
//
// Providers are tried in priority order with a circuit breaker each:
//   - OpenAI text-embedding-3
//   - Google text-embedding-004
//   - a deterministic mock, only when named in the provider order
//
// Engine wraps the provider registry with the "no result instead of error"
// policy used by the curation pipeline.
package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Client defines the interface for embedding generation.
type Client interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

var _ Client = (*Registry)(nil)

// Config holds configuration for creating an embedding client.
type Config struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIRateLimit int

	GoogleAPIKey    string
	GoogleModel     string
	GoogleRateLimit int

	// Provider order (comma-separated: "openai,google")
	ProviderOrder string

	CircuitBreakerConfig CircuitBreakerConfig

	// TargetDimensions is the length of every returned vector.
	TargetDimensions int
}

// NewClient creates a registry with the configured providers. It fails
// when no provider could be registered.
func NewClient(ctx context.Context, cfg Config, logger *zerolog.Logger) (*Registry, error) {
	if cfg.TargetDimensions == 0 {
		cfg.TargetDimensions = DefaultDimensions
	}

	registry := NewRegistry(cfg.TargetDimensions, logger)

	for _, provider := range parseProviderOrder(cfg.ProviderOrder) {
		switch ProviderName(provider) {
		case ProviderOpenAI:
			registerOpenAI(registry, cfg)
		case ProviderGoogle:
			registerGoogle(ctx, registry, cfg, logger)
		case ProviderMock:
			registry.Register(NewMockProvider(cfg.TargetDimensions), cfg.CircuitBreakerConfig)
		default:
			logger.Warn().Str(logKeyProvider, provider).Msg("unknown embedding provider, ignoring")
		}
	}

	if len(registry.ProviderNames()) == 0 {
		return nil, fmt.Errorf("%w: order %q", ErrNoProvidersAvailable, cfg.ProviderOrder)
	}

	return registry, nil
}

func parseProviderOrder(order string) []string {
	if order == "" {
		return []string{string(ProviderOpenAI), string(ProviderGoogle)}
	}

	var providers []string

	for _, p := range strings.Split(order, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			providers = append(providers, strings.ToLower(p))
		}
	}

	return providers
}

func registerOpenAI(registry *Registry, cfg Config) {
	if cfg.OpenAIAPIKey == "" || cfg.OpenAIAPIKey == mockAPIKey {
		return
	}

	registry.Register(NewOpenAIProvider(OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		Dimensions: cfg.TargetDimensions,
		RateLimit:  cfg.OpenAIRateLimit,
	}), cfg.CircuitBreakerConfig)
}

func registerGoogle(ctx context.Context, registry *Registry, cfg Config, logger *zerolog.Logger) {
	if cfg.GoogleAPIKey == "" {
		return
	}

	googleProvider, err := NewGoogleProvider(ctx, GoogleConfig{
		APIKey:    cfg.GoogleAPIKey,
		Model:     cfg.GoogleModel,
		RateLimit: cfg.GoogleRateLimit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create Google embedding provider")

		return
	}

	registry.Register(googleProvider, cfg.CircuitBreakerConfig)
}
