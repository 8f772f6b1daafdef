package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 30m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	return schedule, nil
}

// ScheduleConfig configures a cron-driven loop.
type ScheduleConfig struct {
	// Name identifies the loop for logging.
	Name string

	// Spec is the cron expression.
	Spec string

	// RunOnStart runs once immediately before waiting for the first tick.
	RunOnStart bool

	// Run is one scheduled execution. Errors are logged and the loop goes on.
	Run func(ctx context.Context) error

	// Logger for the loop.
	Logger *zerolog.Logger
}

// ScheduleLoop runs cfg.Run at every tick of the schedule until ctx is
// canceled. Runs never overlap; ticks missed while a run was in progress
// are skipped.
func ScheduleLoop(ctx context.Context, cfg ScheduleConfig) error {
	logger := getLogger(cfg.Logger)

	schedule, err := ParseSchedule(cfg.Spec)
	if err != nil {
		return err
	}

	logger.Info().Str(logFieldWorker, cfg.Name).Str("schedule", cfg.Spec).Msg("starting schedule loop")
	defer func() {
		logger.Info().Str(logFieldWorker, cfg.Name).Msg("schedule loop stopped")
	}()

	if cfg.RunOnStart {
		runScheduled(ctx, cfg, logger)
	}

	for {
		next := schedule.Next(time.Now())

		logger.Debug().Str(logFieldWorker, cfg.Name).Time(logFieldNext, next).Msg("waiting for next run")

		if err := WaitUntil(ctx, next); err != nil {
			return fmt.Errorf("schedule loop %s: %w", cfg.Name, ctx.Err())
		}

		runScheduled(ctx, cfg, logger)
	}
}

func runScheduled(ctx context.Context, cfg ScheduleConfig, logger *zerolog.Logger) {
	if cfg.Run == nil || ctx.Err() != nil {
		return
	}

	defer RecoverPanic(logger, cfg.Name)

	if err := cfg.Run(ctx); err != nil {
		logger.Error().Err(err).Str(logFieldWorker, cfg.Name).Msg("scheduled run failed")
	}
}
