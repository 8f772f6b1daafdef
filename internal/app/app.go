// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Run mode: one curation run of the selected passes, then exit
//   - Schedule mode: curation runs on a cron schedule with health endpoints
//   - Migrate mode: apply database migrations and exit
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-curator/internal/platform/config"
	"github.com/lueurxax/channel-curator/internal/platform/observability"
	"github.com/lueurxax/channel-curator/internal/platform/telemetry"
	"github.com/lueurxax/channel-curator/internal/platform/worker"
	"github.com/lueurxax/channel-curator/internal/process/pipeline"
	db "github.com/lueurxax/channel-curator/internal/storage"
)

const (
	controlPoolConns = 2
	scheduleName     = "curation"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Migrate applies pending migrations.
func (a *App) Migrate(ctx context.Context) error {
	control, err := a.openControl(ctx)
	if err != nil {
		return err
	}
	defer a.closeControl(control)

	a.logger.Info().Msg("migrations applied")

	return nil
}

// RunOnce performs a single curation run. It returns without running when
// another instance holds the run lock.
func (a *App) RunOnce(ctx context.Context, passes []pipeline.Pass) error {
	control, err := a.openControl(ctx)
	if err != nil {
		return err
	}
	defer a.closeControl(control)

	return a.runLocked(ctx, control, passes)
}

// RunSchedule performs curation runs on the configured schedule until ctx
// is canceled. The first run starts immediately.
func (a *App) RunSchedule(ctx context.Context, passes []pipeline.Pass) error {
	control, err := a.openControl(ctx)
	if err != nil {
		return err
	}
	defer a.closeControl(control)

	go func() {
		srv := observability.NewServer(control, a.cfg.HealthPort, a.logger)
		if err := srv.Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("health check server error")
		}
	}()

	return worker.ScheduleLoop(ctx, worker.ScheduleConfig{
		Name:       scheduleName,
		Spec:       a.cfg.RunSchedule,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			return a.runLocked(ctx, control, passes)
		},
		Logger: a.logger,
	})
}

// openControl opens the long-lived handle used for migrations, the run
// lock and readiness checks, and applies migrations.
func (a *App) openControl(ctx context.Context) (*db.DB, error) {
	opts := a.poolOptions()
	opts.MaxConns = controlPoolConns
	opts.MinConns = 0

	control := db.New(a.cfg.PostgresDSN, opts, a.logger)
	if err := control.Open(ctx); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := control.Migrate(ctx); err != nil {
		_ = control.Close()

		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return control, nil
}

func (a *App) closeControl(control *db.DB) {
	if err := control.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close database")
	}
}

func (a *App) runLocked(ctx context.Context, control *db.DB, passes []pipeline.Pass) error {
	release, acquired, err := control.TryAcquireRunLock(ctx)
	if err != nil {
		telemetry.CaptureError(ctx, "", err)

		return fmt.Errorf("acquire run lock: %w", err)
	}

	if !acquired {
		observability.RunsSkipped.Inc()
		a.logger.Warn().Msg("another instance is running, skipping this run")

		return nil
	}
	defer release()

	return a.run(ctx, passes)
}

// needsFeed reports whether any of the passes talks to Telegram.
func needsFeed(passes []pipeline.Pass) bool {
	for _, p := range passes {
		if p == pipeline.PassIngest || p == pipeline.PassMetrics {
			return true
		}
	}

	return false
}

// IsShutdown reports whether err only reflects the context being canceled.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
