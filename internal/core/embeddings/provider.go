package embeddings

import (
	"context"
	"time"
)

// ProviderName identifies an embedding provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI ProviderName = "openai"
	ProviderGoogle ProviderName = "google"
	ProviderMock   ProviderName = "mock"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary  = 100 // Primary provider (OpenAI)
	PriorityFallback = 50  // Fallback provider (Google)
	PriorityMock     = 0   // Mock provider for local runs
)

// DefaultDimensions is the vector size stored for every item.
const DefaultDimensions = 1536

const defaultCircuitThreshold = 5

// Shared error format strings.
const errRateLimiterFmt = "rate limiter: %w"

const mockAPIKey = "mock"

// EmbeddingResult contains the embedding vector and metadata.
type EmbeddingResult struct {
	Vector     []float32
	Dimensions int
	Provider   ProviderName
}

// Provider defines the interface for embedding providers.
type Provider interface {
	Name() ProviderName

	// Model is the model name reported in metrics.
	Model() string

	GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error)

	// IsAvailable returns true if the provider is configured.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int
}

// CircuitBreakerConfig defines circuit breaker settings.
type CircuitBreakerConfig struct {
	Threshold  int           // Number of failures before opening circuit
	ResetAfter time.Duration // Time before attempting recovery
}

// DefaultCircuitBreakerConfig returns sensible defaults for circuit breaker.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  defaultCircuitThreshold,
		ResetAfter: time.Minute,
	}
}
