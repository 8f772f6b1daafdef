// Package reader is the Telegram feed adapter. It fetches channel history
// over MTProto and hands it to the curation pipeline in ascending id order.
package reader

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultFetchLimit = 10
	defaultPageSize   = 100
	maxPageSize       = 100
	rateLimiterBurst  = 1
)

// Log field names.
const (
	logFieldChannel = "channel"
	logFieldMinID   = "min_id"
	logFieldMaxID   = "max_id"
	logFieldCount   = "count"
)

// Config configures the Telegram client and fetch sizes.
type Config struct {
	APIID       int
	APIHash     string
	Phone       string
	Password    string
	SessionPath string

	// FetchLimit is the batch size when no lower bound is given.
	FetchLimit int
	// PageSize is the history page size used for bounded fetches.
	PageSize     int
	RateLimitRPS int
}

// historyAPI is the subset of the Telegram API the reader calls.
type historyAPI interface {
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
}

// Reader fetches channel messages from Telegram.
type Reader struct {
	cfg     Config
	api     historyAPI
	limiter *rate.Limiter
	logger  *zerolog.Logger

	mu    sync.Mutex
	peers map[string]tg.InputPeerClass
}

// New creates a reader. Call Run to connect before fetching.
func New(cfg Config, logger *zerolog.Logger) *Reader {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = defaultFetchLimit
	}

	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = defaultPageSize
	}

	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 1
	}

	return &Reader{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), rateLimiterBurst),
		logger:  logger,
		peers:   make(map[string]tg.InputPeerClass),
	}
}

// Run connects and authenticates, then calls fn while the connection is
// held open. Fetch is only usable inside fn.
func (r *Reader) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	client := telegram.NewClient(r.cfg.APIID, r.cfg.APIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: r.cfg.SessionPath,
		},
	})

	err := client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, r.authFlow()); err != nil {
			return fmt.Errorf("telegram auth: %w", err)
		}

		r.logger.Info().Msg("Successfully authenticated as user")

		r.api = client.API()
		defer func() { r.api = nil }()

		return fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("telegram client: %w", err)
	}

	return nil
}
