package llm

import (
	"context"
	"net/http"
	"strconv"
)

const mockScore = 90

// mockProvider answers without network calls. Scores are constant and
// rewrites echo the input, which is enough for local pipeline runs.
type mockProvider struct {
	score float64
}

// NewMockFactory returns a factory for the mock provider.
func NewMockFactory() ProviderFactory {
	return func(_ *http.Client) (Provider, error) {
		return &mockProvider{score: mockScore}, nil
	}
}

func (p *mockProvider) Name() string { return "mock" }

func (p *mockProvider) Model() string { return "mock" }

func (p *mockProvider) Complete(_ context.Context, req Request) (string, error) {
	switch req.Operation {
	case OpEvaluate:
		return strconv.FormatFloat(p.score, 'f', -1, 64), nil
	case OpProbe:
		return "1", nil
	default:
		return req.Input, nil
	}
}

func (p *mockProvider) IsRateLimit(error) bool { return false }
