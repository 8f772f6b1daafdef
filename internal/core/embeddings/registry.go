package embeddings

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry errors.
var (
	ErrNoProvidersAvailable = errors.New("no embedding providers available")
	ErrAllProvidersFailed   = errors.New("all embedding providers failed")
)

// Log key constants.
const logKeyProvider = "provider"

// Registry manages embedding providers with fallback support.
type Registry struct {
	mu              sync.RWMutex
	providers       map[ProviderName]Provider
	order           []ProviderName // Priority order (highest first)
	circuitBreakers map[ProviderName]*CircuitBreaker
	targetDimension int
	logger          *zerolog.Logger
}

// NewRegistry creates a new provider registry.
func NewRegistry(targetDimension int, logger *zerolog.Logger) *Registry {
	return &Registry{
		providers:       make(map[ProviderName]Provider),
		circuitBreakers: make(map[ProviderName]*CircuitBreaker),
		targetDimension: targetDimension,
		logger:          logger,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider, cfg CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}

	r.providers[name] = p
	r.circuitBreakers[name] = NewCircuitBreaker(cfg, r.logger)

	sort.SliceStable(r.order, func(i, j int) bool {
		return r.providers[r.order[i]].Priority() > r.providers[r.order[j]].Priority()
	})

	setProviderAvailable(string(name), p.IsAvailable())

	r.logger.Info().
		Str(logKeyProvider, string(name)).
		Int("priority", p.Priority()).
		Msg("registered embedding provider")
}

// GetEmbedding tries providers in priority order and returns a vector
// padded or truncated to the target dimension.
func (r *Registry) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	r.mu.RLock()
	providers := r.activeProviders()
	r.mu.RUnlock()

	if len(providers) == 0 {
		return nil, ErrNoProvidersAvailable
	}

	primary := string(providers[0].Name())

	var lastErr error

	for _, p := range providers {
		name := string(p.Name())
		cb := r.circuitBreaker(p.Name())

		if err := cb.CheckCircuit(); err != nil {
			r.logger.Debug().Str(logKeyProvider, name).Msg("skipping provider - circuit breaker open")
			setProviderAvailable(name, false)

			lastErr = err

			continue
		}

		start := time.Now()
		result, err := p.GetEmbedding(ctx, text)
		recordRequest(name, p.Model(), err == nil, time.Since(start))

		if err != nil {
			cb.RecordFailure(p.Name())

			lastErr = err

			r.logger.Warn().Err(err).Str(logKeyProvider, name).Msg("embedding provider failed, trying fallback")

			continue
		}

		cb.RecordSuccess()
		setProviderAvailable(name, true)

		if name != primary {
			recordFallback(primary, name)
		}

		return PadToTargetDimensions(result.Vector, r.targetDimension), nil
	}

	return nil, errors.Join(ErrAllProvidersFailed, lastErr)
}

// ProviderNames returns the names of all registered providers in priority order.
func (r *Registry) ProviderNames() []ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]ProviderName, len(r.order))
	copy(names, r.order)

	return names
}

// Close releases provider clients that hold connections.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error

	for _, p := range r.providers {
		if c, ok := p.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (r *Registry) activeProviders() []Provider {
	active := make([]Provider, 0, len(r.order))

	for _, name := range r.order {
		if p := r.providers[name]; p.IsAvailable() {
			active = append(active, p)
		}
	}

	return active
}

func (r *Registry) circuitBreaker(name ProviderName) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.circuitBreakers[name]
}
