package app

import (
	"context"
	"fmt"
	"time"

	"github.com/lueurxax/channel-curator/internal/ingest/reader"
	"github.com/lueurxax/channel-curator/internal/platform/observability"
	"github.com/lueurxax/channel-curator/internal/platform/telemetry"
	"github.com/lueurxax/channel-curator/internal/process/pipeline"
	db "github.com/lueurxax/channel-curator/internal/storage"
)

const (
	runStatusSuccess = "success"
	runStatusError   = "error"
)

// run performs one curation run. The store pool and the evaluator session
// are opened together before the first pass and released after the last.
func (a *App) run(ctx context.Context, passes []pipeline.Pass) (err error) {
	rc := pipeline.NewRunContext()
	logger := a.logger.With().Str(pipeline.LogFieldRunID, rc.ID.String()).Logger()

	ctx, span := telemetry.StartRun(ctx, rc.ID.String())

	defer func() {
		status := runStatusSuccess
		if err != nil {
			status = runStatusError
		} else {
			observability.LastSuccessfulRun.Set(float64(time.Now().Unix()))
		}

		observability.RunsTotal.WithLabelValues(status).Inc()
		span.Finish(err)
	}()

	evaluator, err := a.newEvaluator()
	if err != nil {
		return err
	}

	store := db.New(a.cfg.PostgresDSN, a.poolOptions(), &logger)

	release, err := pipeline.Acquire(ctx, store, evaluator)
	if err != nil {
		return fmt.Errorf("acquire run resources: %w", err)
	}

	defer func() {
		if closeErr := release(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("failed to release run resources")
		}
	}()

	embeddingClient, err := a.newEmbeddingClient(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := embeddingClient.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("failed to close embedding providers")
		}
	}()

	feed := reader.New(a.readerConfig(), &logger)
	p := pipeline.New(a.pipelineConfig(), store, feed, evaluator, a.newSimilarity(embeddingClient), &logger)

	logger.Info().Strs("passes", passNames(passes)).Msg("curation run started")

	start := time.Now()

	if needsFeed(passes) {
		err = feed.Run(ctx, func(ctx context.Context) error {
			return p.Run(ctx, rc, passes)
		})
	} else {
		err = p.Run(ctx, rc, passes)
	}

	if err != nil {
		return fmt.Errorf("curation run %s: %w", rc.ID, err)
	}

	logger.Info().Dur("duration", time.Since(start)).Msg("curation run finished")

	return nil
}

func passNames(passes []pipeline.Pass) []string {
	names := make([]string, len(passes))
	for i, p := range passes {
		names[i] = string(p)
	}

	return names
}
