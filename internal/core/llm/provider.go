package llm

import (
	"context"
	"net/http"
)

// Operation names a kind of evaluator call. Used for metrics and by the
// mock provider.
type Operation string

const (
	OpEvaluate Operation = "evaluate"
	OpRewrite  Operation = "rewrite"
	OpImprove  Operation = "improve"
	OpProbe    Operation = "probe"
)

// Request is one completion call.
type Request struct {
	Operation Operation
	Prompt    string
	// Input is the raw text substituted into Prompt.
	Input     string
	MaxTokens int
}

// Provider is a text completion backend.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (string, error)
	// IsRateLimit reports whether err means the account is out of capacity.
	IsRateLimit(err error) bool
}

// ProviderFactory builds a provider over the evaluator's HTTP session.
type ProviderFactory func(httpClient *http.Client) (Provider, error)
