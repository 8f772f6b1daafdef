package app

import (
	"context"
	"fmt"

	"github.com/lueurxax/channel-curator/internal/core/embeddings"
	"github.com/lueurxax/channel-curator/internal/core/llm"
	"github.com/lueurxax/channel-curator/internal/ingest/reader"
	"github.com/lueurxax/channel-curator/internal/platform/config"
	"github.com/lueurxax/channel-curator/internal/process/filters"
	"github.com/lueurxax/channel-curator/internal/process/pipeline"
	db "github.com/lueurxax/channel-curator/internal/storage"
)

const logFieldProvider = "provider"

func (a *App) poolOptions() db.PoolOptions {
	opts := db.DefaultPoolOptions()
	opts.MaxConns = a.cfg.DBMaxConns
	opts.MinConns = a.cfg.DBMinConns
	opts.MaxConnIdleTime = a.cfg.DBMaxConnIdle
	opts.MaxConnLifetime = a.cfg.DBMaxConnLife
	opts.ConnectRetries = a.cfg.DBConnectRetries

	return opts
}

func (a *App) readerConfig() reader.Config {
	return reader.Config{
		APIID:        a.cfg.TGAPIID,
		APIHash:      a.cfg.TGAPIHash,
		Phone:        a.cfg.TGPhone,
		Password:     a.cfg.TG2FAPassword,
		SessionPath:  a.cfg.TGSessionPath,
		FetchLimit:   a.cfg.ReaderFetchLimit,
		PageSize:     a.cfg.ReaderPageSize,
		RateLimitRPS: a.cfg.RateLimitRPS,
	}
}

func (a *App) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Channels: a.cfg.TGChannels,
		Filters: filters.Config{
			MinLen:    a.cfg.MinLen,
			MinViews:  a.cfg.MinViews,
			MinER:     a.cfg.MinER,
			StopWords: a.cfg.StopWords,
		},
		MinScore:          a.cfg.MinScore,
		MinScoreAlt:       a.cfg.MinScoreAlt,
		MinScoreImprove:   a.cfg.MinScoreImprove,
		MetricsScanLimit:  a.cfg.MetricsScanLimit,
		PublishedLookback: a.cfg.PublishedLookback,
	}
}

func (a *App) newEvaluator() (*llm.Evaluator, error) {
	prompts, err := a.cfg.LoadPrompts()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	factory, err := a.evaluatorFactory()
	if err != nil {
		return nil, err
	}

	a.logger.Debug().Str(logFieldProvider, a.cfg.LLMProvider).Msg("evaluator configured")

	return llm.NewEvaluator(llm.EvaluatorConfig{
		MaxTokens:      a.cfg.LLMMaxTokens,
		RateLimitRPS:   a.cfg.LLMRateLimitRPS,
		RequestTimeout: a.cfg.LLMRequestTimeout,
		Circuit:        a.circuitConfig(),
	}, llm.Prompts{
		Evaluate: prompts.Evaluate,
		Process:  prompts.Process,
		Improve:  prompts.Improve,
	}, factory, a.logger), nil
}

func (a *App) evaluatorFactory() (llm.ProviderFactory, error) {
	switch a.cfg.LLMProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIFactory(llm.OpenAIConfig{
			APIKey:  a.cfg.LLMAPIKey,
			BaseURL: a.cfg.LLMBaseURL,
			Model:   a.cfg.LLMModel,
		}), nil
	case config.ProviderAnthropic:
		return llm.NewAnthropicFactory(llm.AnthropicConfig{
			APIKey:  a.cfg.AnthropicAPIKey,
			BaseURL: a.cfg.LLMBaseURL,
			Model:   a.cfg.AnthropicModel,
		}), nil
	case config.ProviderMock:
		return llm.NewMockFactory(), nil
	default:
		return nil, fmt.Errorf("evaluator provider %q: %w", a.cfg.LLMProvider, config.ErrInvalidProvider)
	}
}

func (a *App) circuitConfig() embeddings.CircuitBreakerConfig {
	return embeddings.CircuitBreakerConfig{
		Threshold:  a.cfg.EmbeddingCircuitFailures,
		ResetAfter: a.cfg.EmbeddingCircuitReset,
	}
}

func (a *App) newEmbeddingClient(ctx context.Context) (*embeddings.Registry, error) {
	// LLM_BASE_URL only points at an OpenAI-compatible API for the openai provider.
	var baseURL string
	if a.cfg.LLMProvider == config.ProviderOpenAI {
		baseURL = a.cfg.LLMBaseURL
	}

	client, err := embeddings.NewClient(ctx, embeddings.Config{
		OpenAIAPIKey:         a.cfg.LLMAPIKey,
		OpenAIBaseURL:        baseURL,
		OpenAIModel:          a.cfg.OpenAIEmbeddingModel,
		OpenAIRateLimit:      a.cfg.EmbeddingRateLimit,
		GoogleAPIKey:         a.cfg.GoogleAPIKey,
		GoogleModel:          a.cfg.GoogleEmbeddingModel,
		GoogleRateLimit:      a.cfg.EmbeddingRateLimit,
		ProviderOrder:        a.cfg.EmbeddingProviderOrder,
		CircuitBreakerConfig: a.circuitConfig(),
		TargetDimensions:     a.cfg.EmbeddingDimensions,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	return client, nil
}

func (a *App) newSimilarity(client embeddings.Client) *embeddings.Engine {
	return embeddings.NewEngine(client, a.logger)
}
