package embeddings

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/channel-curator/internal/core/domain"
)

type stubClient struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubClient) GetEmbedding(_ context.Context, _ string) ([]float32, error) {
	s.calls++

	return s.vec, s.err
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0, 0}, b: []float32{1, 0, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestMaxSimilarity_EmptyCandidates(t *testing.T) {
	assert.Equal(t, 0.0, MaxSimilarity([]float32{0.1, 0.2}, nil))
	assert.Equal(t, 0.0, MaxSimilarity([]float32{0.1, 0.2}, []domain.Item{}))
}

func TestMaxSimilarity_SkipsItemsWithoutEmbedding(t *testing.T) {
	candidates := []domain.Item{{ID: 1}, {ID: 2, Embedding: []float32{}}}

	assert.Equal(t, 0.0, MaxSimilarity([]float32{0.1, 0.2}, candidates))
}

func TestMaxSimilarity_PicksHighest(t *testing.T) {
	vec := []float32{0.4, 0.5, 0.6}
	candidates := []domain.Item{
		{ID: 1, Embedding: []float32{-0.4, -0.5, -0.6}},
		{ID: 2},
		{ID: 3, Embedding: []float32{0.1, 0.2, 0.3}},
		{ID: 4, Embedding: []float32{0, 0, 1}},
	}

	want := CosineSimilarity(vec, candidates[2].Embedding)
	got := MaxSimilarity(vec, candidates)

	assert.InDelta(t, want, got, 1e-9)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestMaxSimilarity_NegativeOnlyIsZero(t *testing.T) {
	got := MaxSimilarity([]float32{1, 0}, []domain.Item{{Embedding: []float32{-1, 0}}})
	assert.Equal(t, 0.0, got)
}

func TestEngine_Embed(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("empty text makes no call", func(t *testing.T) {
		client := &stubClient{vec: []float32{1}}
		vec, ok := NewEngine(client, &logger).Embed(context.Background(), "  ")

		assert.False(t, ok)
		assert.Nil(t, vec)
		assert.Zero(t, client.calls)
	})

	t.Run("provider error is no result", func(t *testing.T) {
		client := &stubClient{err: errors.New("model failure")}
		_, ok := NewEngine(client, &logger).Embed(context.Background(), "text")

		assert.False(t, ok)
		assert.Equal(t, 1, client.calls)
	})

	t.Run("success", func(t *testing.T) {
		client := &stubClient{vec: []float32{0.1, 0.2}}
		vec, ok := NewEngine(client, &logger).Embed(context.Background(), "text")

		assert.True(t, ok)
		assert.Equal(t, []float32{0.1, 0.2}, vec)
	})
}

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider(32)

	a, err := p.GetEmbedding(context.Background(), "same text")
	assert.NoError(t, err)

	b, err := p.GetEmbedding(context.Background(), "same text")
	assert.NoError(t, err)

	c, err := p.GetEmbedding(context.Background(), "other text")
	assert.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.NotEqual(t, a.Vector, c.Vector)
	assert.Len(t, a.Vector, 32)

	var norm float64
	for _, v := range a.Vector {
		norm += float64(v) * float64(v)
	}

	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}

func TestPadToTargetDimensions(t *testing.T) {
	assert.Equal(t, []float32{1, 2, 0, 0}, PadToTargetDimensions([]float32{1, 2}, 4))
	assert.Equal(t, []float32{1, 2}, PadToTargetDimensions([]float32{1, 2, 3}, 2))
	assert.Equal(t, []float32{1, 2}, PadToTargetDimensions([]float32{1, 2}, 2))
}
