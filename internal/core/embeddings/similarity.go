package embeddings

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-curator/internal/core/domain"
)

// Engine embeds text and scores vectors against reference items.
type Engine struct {
	client Client
	logger *zerolog.Logger
}

// NewEngine wraps an embedding client.
func NewEngine(client Client, logger *zerolog.Logger) *Engine {
	return &Engine{client: client, logger: logger}
}

// Embed returns the vector for text. Empty text and provider failures
// are logged and reported as no result.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, bool) {
	if strings.TrimSpace(text) == "" {
		e.logger.Warn().Msg("embed called with empty text")

		return nil, false
	}

	vec, err := e.client.GetEmbedding(ctx, text)
	if err != nil {
		e.logger.Error().Err(err).Msg("embedding failed")

		return nil, false
	}

	if len(vec) == 0 {
		e.logger.Warn().Msg("embedding provider returned an empty vector")

		return nil, false
	}

	return vec, true
}

// MaxSimilarity returns the highest similarity in [0,1] between vec and
// the candidates' embeddings. Candidates without an embedding are skipped.
func (e *Engine) MaxSimilarity(vec []float32, candidates []domain.Item) float64 {
	return MaxSimilarity(vec, candidates)
}

// MaxSimilarity is the stateless form of Engine.MaxSimilarity.
func MaxSimilarity(vec []float32, candidates []domain.Item) float64 {
	maxSim := 0.0

	for i := range candidates {
		if !candidates[i].HasEmbedding() {
			continue
		}

		if sim := CosineSimilarity(vec, candidates[i].Embedding); sim > maxSim {
			maxSim = sim
		}
	}

	return math.Min(maxSim, 1)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
