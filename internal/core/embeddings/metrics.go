package embeddings

import (
	"time"

	"github.com/lueurxax/channel-curator/internal/platform/observability"
)

// Metric status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func recordRequest(provider, model string, success bool, duration time.Duration) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.EmbeddingRequests.WithLabelValues(provider, model, status).Inc()
	observability.EmbeddingLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
}

func recordFallback(fromProvider, toProvider string) {
	observability.EmbeddingFallbacks.WithLabelValues(fromProvider, toProvider).Inc()
}

func setProviderAvailable(provider string, available bool) {
	value := 0.0
	if available {
		value = 1.0
	}

	observability.EmbeddingProviderAvailable.WithLabelValues(provider).Set(value)
}
