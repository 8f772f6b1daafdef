package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported evaluator providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Validation errors.
var (
	ErrNoChannels        = errors.New("no channels configured")
	ErrInvalidProvider   = errors.New("invalid LLM provider")
	ErrInvalidThreshold  = errors.New("invalid threshold")
	ErrMissingLLMAPIKey  = errors.New("LLM API key is required for provider")
	ErrInvalidFetchLimit = errors.New("reader fetch limit must be positive")
	ErrNoEmbeddings      = errors.New("no usable embedding provider")
)

// Embedding provider names accepted in EMBEDDING_PROVIDER_ORDER.
const (
	embeddingOpenAI = "openai"
	embeddingGoogle = "google"
	embeddingMock   = "mock"

	defaultEmbeddingOrder = embeddingOpenAI + "," + embeddingGoogle
	mockAPIKey            = "mock"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"local"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080"`
	SentryDSN  string `env:"SENTRY_DSN"`

	PostgresDSN      string        `env:"POSTGRES_DSN,required"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"5"`
	DBMinConns       int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnIdle    time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLife    time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	DBConnectRetries int           `env:"DB_CONNECT_RETRIES" envDefault:"10"`

	TGAPIID          int      `env:"TG_API_ID,required"`
	TGAPIHash        string   `env:"TG_API_HASH,required"`
	TGPhone          string   `env:"TG_PHONE"`
	TG2FAPassword    string   `env:"TG_2FA_PASSWORD"`
	TGSessionPath    string   `env:"TG_SESSION_PATH" envDefault:"./tg.session"`
	TGChannels       []string `env:"TG_CHANNELS,required" envSeparator:","`
	ReaderFetchLimit int      `env:"READER_FETCH_LIMIT" envDefault:"10"`
	ReaderPageSize   int      `env:"READER_PAGE_SIZE" envDefault:"100"`
	RateLimitRPS     int      `env:"RATE_LIMIT_RPS" envDefault:"1"`

	LLMProvider        string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMAPIKey          string        `env:"LLM_API_KEY"`
	LLMBaseURL         string        `env:"LLM_BASE_URL"`
	LLMModel           string        `env:"LLM_MODEL" envDefault:"gpt-4o-2024-05-13"`
	LLMMaxTokens       int           `env:"LLM_MAX_TOKENS" envDefault:"2048"`
	LLMRateLimitRPS    float64       `env:"LLM_RATE_LIMIT_RPS" envDefault:"1"`
	LLMRequestTimeout  time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"60s"`
	AnthropicAPIKey    string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel     string        `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-haiku-latest"`
	PromptEvaluatePath string        `env:"PROMPT_EVALUATE_PATH" envDefault:"prompts/evaluate.txt"`
	PromptProcessPath  string        `env:"PROMPT_PROCESS_PATH" envDefault:"prompts/process.txt"`
	PromptImprovePath  string        `env:"PROMPT_IMPROVE_PATH" envDefault:"prompts/improve.txt"`

	EmbeddingProviderOrder   string        `env:"EMBEDDING_PROVIDER_ORDER" envDefault:"openai,google"`
	OpenAIEmbeddingModel     string        `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions      int           `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	EmbeddingRateLimit       int           `env:"EMBEDDING_RATE_LIMIT" envDefault:"5"`
	GoogleAPIKey             string        `env:"GOOGLE_API_KEY"`
	GoogleEmbeddingModel     string        `env:"GOOGLE_EMBEDDING_MODEL" envDefault:"text-embedding-004"`
	EmbeddingCircuitFailures int           `env:"EMBEDDING_CIRCUIT_THRESHOLD" envDefault:"5"`
	EmbeddingCircuitReset    time.Duration `env:"EMBEDDING_CIRCUIT_RESET" envDefault:"1m"`

	MinViews          int64         `env:"MIN_VIEWS" envDefault:"50"`
	MinLen            int           `env:"MIN_LEN" envDefault:"200"`
	MinER             float64       `env:"MIN_ER" envDefault:"0.025"`
	MinScore          float64       `env:"MIN_SCORE" envDefault:"80"`
	MinScoreAlt       float64       `env:"MIN_SCORE_ALT" envDefault:"85"`
	MinScoreImprove   float64       `env:"MIN_SCORE_IMPROVE" envDefault:"85"`
	MetricsScanLimit  int           `env:"METRICS_SCAN_LIMIT" envDefault:"1000"`
	StopWords         []string      `env:"STOP_WORDS" envSeparator:"," envDefault:"эфир,запись,астролог,зодиак,таро,эзотери"`
	PublishedLookback time.Duration `env:"PUBLISHED_LOOKBACK" envDefault:"720h"`

	RunSchedule string `env:"RUN_SCHEDULE" envDefault:"*/30 * * * *"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	cfg.TGChannels = normalizeList(cfg.TGChannels)
	cfg.StopWords = normalizeList(cfg.StopWords)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	if len(c.TGChannels) == 0 {
		return ErrNoChannels
	}

	if c.ReaderFetchLimit <= 0 {
		return ErrInvalidFetchLimit
	}

	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.LLMAPIKey == "" {
			return fmt.Errorf("%w %s", ErrMissingLLMAPIKey, c.LLMProvider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w %s", ErrMissingLLMAPIKey, c.LLMProvider)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.LLMProvider)
	}

	if err := c.validateEmbeddings(); err != nil {
		return err
	}

	if c.MinLen < 0 || c.MinER < 0 || c.MinViews < 0 {
		return fmt.Errorf("%w: filter thresholds must not be negative", ErrInvalidThreshold)
	}

	if c.MetricsScanLimit <= 0 {
		return fmt.Errorf("%w: METRICS_SCAN_LIMIT must be positive", ErrInvalidThreshold)
	}

	return nil
}

// validateEmbeddings requires a provider in the order that has credentials.
// The mock provider only counts when named explicitly.
func (c *Config) validateEmbeddings() error {
	order := c.EmbeddingProviderOrder
	if strings.TrimSpace(order) == "" {
		order = defaultEmbeddingOrder
	}

	for _, name := range normalizeList(strings.Split(strings.ToLower(order), ",")) {
		switch name {
		case embeddingOpenAI:
			if c.LLMAPIKey != "" && c.LLMAPIKey != mockAPIKey {
				return nil
			}
		case embeddingGoogle:
			if c.GoogleAPIKey != "" {
				return nil
			}
		case embeddingMock:
			return nil
		}
	}

	return fmt.Errorf("%w: EMBEDDING_PROVIDER_ORDER=%q needs LLM_API_KEY for openai or GOOGLE_API_KEY for google", ErrNoEmbeddings, order)
}

// IsLocal reports whether the app runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}

// normalizeList trims entries and drops empty ones, keeping order.
func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}
