package llm

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/channel-curator/internal/core/embeddings"
	apperrors "github.com/lueurxax/channel-curator/internal/core/errors"
	"github.com/lueurxax/channel-curator/internal/platform/observability"
)

const (
	textPlaceholder = "{text}"
	probeMaxTokens  = 1
	probeInput      = "ping"

	statusSuccess   = "success"
	statusError     = "error"
	statusRateLimit = "rate_limited"
	statusSkipped   = "skipped"

	logKeyProvider  = "provider"
	logKeyOperation = "operation"

	defaultCircuitThreshold = 5
	defaultCircuitReset     = time.Minute
	defaultRequestTimeout   = 60 * time.Second
	defaultMaxTokens        = 2048
)

// Prompts are the evaluator templates. Improve is optional.
type Prompts struct {
	Evaluate string
	Process  string
	Improve  string
}

// EvaluatorConfig configures an Evaluator.
type EvaluatorConfig struct {
	MaxTokens      int
	RateLimitRPS   float64
	RequestTimeout time.Duration
	Circuit        embeddings.CircuitBreakerConfig
}

// Evaluator scores and rewrites message text through a completion provider.
// It owns the HTTP session the provider talks over; Open and Close bound
// its lifetime.
type Evaluator struct {
	cfg        EvaluatorConfig
	prompts    Prompts
	factory    ProviderFactory
	httpClient *http.Client
	provider   Provider
	limiter    *rate.Limiter
	breaker    *embeddings.CircuitBreaker
	logger     *zerolog.Logger
}

// NewEvaluator creates an evaluator. No connection is made until Open.
func NewEvaluator(cfg EvaluatorConfig, prompts Prompts, factory ProviderFactory, logger *zerolog.Logger) *Evaluator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	if cfg.Circuit.Threshold <= 0 {
		cfg.Circuit.Threshold = defaultCircuitThreshold
	}

	if cfg.Circuit.ResetAfter <= 0 {
		cfg.Circuit.ResetAfter = defaultCircuitReset
	}

	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}

	return &Evaluator{
		cfg:     cfg,
		prompts: prompts,
		factory: factory,
		limiter: rate.NewLimiter(limit, 1),
		breaker: embeddings.NewCircuitBreaker(cfg.Circuit, logger),
		logger:  logger,
	}
}

// Name identifies the evaluator as a pipeline resource.
func (e *Evaluator) Name() string { return "evaluator" }

// Open creates the HTTP session and the provider bound to it.
func (e *Evaluator) Open(_ context.Context) error {
	if e.prompts.Evaluate == "" || e.prompts.Process == "" {
		return fmt.Errorf("open evaluator: %w", apperrors.ErrPromptMissing)
	}

	httpClient := &http.Client{
		Timeout:   e.cfg.RequestTimeout,
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}

	provider, err := e.factory(httpClient)
	if err != nil {
		httpClient.CloseIdleConnections()

		return fmt.Errorf("create evaluator provider: %w", err)
	}

	e.httpClient = httpClient
	e.provider = provider

	e.logger.Info().
		Str(logKeyProvider, provider.Name()).
		Str("model", provider.Model()).
		Msg("evaluator session opened")

	return nil
}

// Close releases the HTTP session.
func (e *Evaluator) Close() error {
	if e.httpClient != nil {
		e.httpClient.CloseIdleConnections()
		e.httpClient = nil
	}

	e.provider = nil

	return nil
}

// HasQuota sends a minimal completion and reports whether the provider
// accepted it. Any failure reports false.
func (e *Evaluator) HasQuota(ctx context.Context) bool {
	if e.provider == nil {
		return false
	}

	_, err := e.call(ctx, Request{
		Operation: OpProbe,
		Prompt:    probeInput,
		Input:     probeInput,
		MaxTokens: probeMaxTokens,
	})
	if err != nil {
		if e.provider.IsRateLimit(err) {
			e.logger.Warn().Err(err).Msg("evaluator quota exhausted")
		} else {
			e.logger.Error().Err(err).Msg("evaluator quota probe failed")
		}

		observability.EvaluatorQuotaAvailable.Set(0)

		return false
	}

	observability.EvaluatorQuotaAvailable.Set(1)

	return true
}

// Evaluate scores text with the evaluate prompt.
func (e *Evaluator) Evaluate(ctx context.Context, text string) (float64, bool) {
	reply, ok := e.complete(ctx, OpEvaluate, e.prompts.Evaluate, text)
	if !ok {
		return 0, false
	}

	score, err := parseScore(reply)
	if err != nil {
		e.logger.Warn().Err(err).Str("reply", reply).Msg("evaluator returned a non-numeric score")

		return 0, false
	}

	return score, true
}

// Rewrite produces the alternative text with the process prompt.
func (e *Evaluator) Rewrite(ctx context.Context, text string) (string, bool) {
	return e.complete(ctx, OpRewrite, e.prompts.Process, text)
}

// Improve refines a rewrite. It reports false when no improve prompt is set.
func (e *Evaluator) Improve(ctx context.Context, text string) (string, bool) {
	if e.prompts.Improve == "" {
		return "", false
	}

	return e.complete(ctx, OpImprove, e.prompts.Improve, text)
}

func (e *Evaluator) complete(ctx context.Context, op Operation, template, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		e.logger.Warn().Str(logKeyOperation, string(op)).Msg("empty text passed to evaluator")

		return "", false
	}

	if e.provider == nil {
		e.logger.Error().Str(logKeyOperation, string(op)).Msg("evaluator is not open")

		return "", false
	}

	reply, err := e.call(ctx, Request{
		Operation: op,
		Prompt:    renderPrompt(template, text),
		Input:     text,
		MaxTokens: e.cfg.MaxTokens,
	})
	if err != nil {
		e.logger.Error().Err(err).Str(logKeyOperation, string(op)).Msg("evaluator request failed")

		return "", false
	}

	if reply == "" {
		return "", false
	}

	return reply, true
}

func (e *Evaluator) call(ctx context.Context, req Request) (string, error) {
	name := e.provider.Name()

	if err := e.breaker.CheckCircuit(); err != nil {
		observability.EvaluatorRequests.WithLabelValues(name, string(req.Operation), statusSkipped).Inc()

		return "", err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("evaluator rate limiter: %w", err)
	}

	start := time.Now()
	reply, err := e.provider.Complete(ctx, req)

	observability.EvaluatorRequestDuration.WithLabelValues(name, e.provider.Model()).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		e.breaker.RecordSuccess()
		observability.EvaluatorRequests.WithLabelValues(name, string(req.Operation), statusSuccess).Inc()

		return reply, nil
	case e.provider.IsRateLimit(err):
		// quota errors say nothing about provider health
		observability.EvaluatorRequests.WithLabelValues(name, string(req.Operation), statusRateLimit).Inc()

		return "", fmt.Errorf("%w: %w", apperrors.ErrRateLimited, err)
	default:
		e.breaker.RecordFailure(embeddings.ProviderName(name))
		observability.EvaluatorRequests.WithLabelValues(name, string(req.Operation), statusError).Inc()

		return "", err
	}
}

func renderPrompt(template, text string) string {
	return strings.ReplaceAll(template, textPlaceholder, text)
}

// parseScore accepts replies like `87`, ` "87.5" ` or `'90'`.
func parseScore(reply string) (float64, error) {
	cleaned := strings.Trim(strings.TrimSpace(reply), "\"'` \n\t")

	score, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidScore, reply)
	}

	return score, nil
}
