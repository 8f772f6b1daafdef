package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

// LCG constants for deterministic pseudo-random generation.
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407

	seedShift  = 33
	floatScale = 0x40000000
)

// MockProvider generates deterministic unit vectors from a text hash.
// It is registered when no real provider is configured.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a mock provider producing vectors of dims length.
func NewMockProvider(dims int) *MockProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}

	return &MockProvider{dimensions: dims}
}

func (p *MockProvider) Name() ProviderName { return ProviderMock }

func (p *MockProvider) Model() string { return "fnv-lcg" }

func (p *MockProvider) Priority() int { return PriorityMock }

func (p *MockProvider) IsAvailable() bool { return true }

// GetEmbedding returns the same vector for the same text.
func (p *MockProvider) GetEmbedding(_ context.Context, text string) (EmbeddingResult, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text)) // fnv.Write never returns an error
	seed := h.Sum64()

	vec := make([]float32, p.dimensions)
	for i := range vec {
		seed = seed*lcgMultiplier + lcgIncrement
		//nolint:gosec // intentional uint64->int64 conversion for pseudo-random generation
		vec[i] = float32(int64(seed>>seedShift)-floatScale) / float32(floatScale)
	}

	return EmbeddingResult{
		Vector:     normalizeVector(vec),
		Dimensions: p.dimensions,
		Provider:   ProviderMock,
	}, nil
}

func normalizeVector(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		return vec
	}

	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}

	return vec
}
