package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-curator/internal/core/domain"
	"github.com/lueurxax/channel-curator/internal/core/ports"
	"github.com/lueurxax/channel-curator/internal/ingest/reader"
	"github.com/lueurxax/channel-curator/internal/platform/observability"
	"github.com/lueurxax/channel-curator/internal/platform/telemetry"
	"github.com/lueurxax/channel-curator/internal/process/filters"
)

// Verdict is the outcome of the ingestion chain for one message.
type Verdict string

// Pass names one of the curation passes.
type Pass string

// AllPasses lists the passes in run order.
var AllPasses = []Pass{PassIngest, PassSimilarity, PassMetrics}

// ErrUnknownPass is returned by ParsePass.
var ErrUnknownPass = errors.New("unknown pass")

// ParsePass maps a CLI value to the passes it selects.
func ParsePass(s string) ([]Pass, error) {
	switch s {
	case "", "all":
		return AllPasses, nil
	case string(PassIngest), string(PassSimilarity), string(PassMetrics):
		return []Pass{Pass(s)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPass, s)
	}
}

// Feed fetches channel messages in ascending id order.
type Feed interface {
	Fetch(ctx context.Context, channel string, b reader.Bounds) ([]domain.RawItem, error)
}

// Evaluator scores and rewrites text.
type Evaluator interface {
	HasQuota(ctx context.Context) bool
	Evaluate(ctx context.Context, text string) (float64, bool)
	Rewrite(ctx context.Context, text string) (string, bool)
	Improve(ctx context.Context, text string) (string, bool)
}

// Similarity embeds text and compares vectors with stored items.
type Similarity interface {
	Embed(ctx context.Context, text string) ([]float32, bool)
	MaxSimilarity(vec []float32, candidates []domain.Item) float64
}

// Config holds the pipeline thresholds.
type Config struct {
	Channels          []string
	Filters           filters.Config
	MinScore          float64
	MinScoreAlt       float64
	MinScoreImprove   float64
	MetricsScanLimit  int
	PublishedLookback time.Duration
}

// RunContext is the state shared by the passes of one run. The snapshot
// and quota flag are captured once by Ingest; low-water-marks are written
// by Ingest and read by BackfillMetrics.
type RunContext struct {
	ID            uuid.UUID
	StartedAt     time.Time
	Published     []domain.Item
	HasQuota      bool
	LowWaterMarks map[string]int64
}

// NewRunContext starts a run with a fresh id.
func NewRunContext() *RunContext {
	return &RunContext{
		ID:            uuid.New(),
		StartedAt:     time.Now(),
		LowWaterMarks: make(map[string]int64),
	}
}

// LowWaterMark returns the highest id stored for channel before this run
// fetched it.
func (rc *RunContext) LowWaterMark(channel string) (int64, bool) {
	id, ok := rc.LowWaterMarks[channel]

	return id, ok
}

type Pipeline struct {
	cfg        Config
	store      ports.SessionFactory
	feed       Feed
	evaluator  Evaluator
	similarity Similarity
	filterer   *filters.Filterer
	logger     *zerolog.Logger
	now        func() time.Time
}

func New(cfg Config, store ports.SessionFactory, feed Feed, evaluator Evaluator, similarity Similarity, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		feed:       feed,
		evaluator:  evaluator,
		similarity: similarity,
		filterer:   filters.New(cfg.Filters),
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the given passes in order. A failed pass is logged and
// the next one still runs; the failures are returned joined.
func (p *Pipeline) Run(ctx context.Context, rc *RunContext, passes []Pass) error {
	logger := p.logger.With().Str(LogFieldRunID, rc.ID.String()).Logger()

	var errs []error

	for _, pass := range passes {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		start := time.Now()

		logger.Info().Str(LogFieldPass, string(pass)).Msg("starting pass")

		err := p.runPass(ctx, rc, pass)

		status := statusSuccess
		if err != nil {
			status = statusError
		}

		observability.PassDuration.WithLabelValues(string(pass), status).Observe(time.Since(start).Seconds())

		if err != nil {
			logger.Error().Err(err).Str(LogFieldPass, string(pass)).Msg("pass failed")
			telemetry.CaptureError(ctx, string(pass), err)

			errs = append(errs, fmt.Errorf("%s pass: %w", pass, err))

			continue
		}

		logger.Info().
			Str(LogFieldPass, string(pass)).
			Dur("duration", time.Since(start)).
			Msg("pass finished")
	}

	return errors.Join(errs...)
}

func (p *Pipeline) runPass(ctx context.Context, rc *RunContext, pass Pass) error {
	switch pass {
	case PassIngest:
		return p.Ingest(ctx, rc)
	case PassSimilarity:
		return p.ReconcileSimilarity(ctx)
	case PassMetrics:
		return p.BackfillMetrics(ctx, rc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPass, pass)
	}
}

func (p *Pipeline) withSession(ctx context.Context, fn func(sess ports.ItemSession) error) error {
	sess, err := p.store.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	return fn(sess)
}
