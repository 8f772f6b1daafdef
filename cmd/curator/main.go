package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-curator/internal/app"
	"github.com/lueurxax/channel-curator/internal/platform/config"
	"github.com/lueurxax/channel-curator/internal/platform/telemetry"
	"github.com/lueurxax/channel-curator/internal/process/pipeline"
)

func main() {
	mode := flag.String("mode", "run", "Service mode (run, schedule, migrate)")
	pass := flag.String("pass", "all", "Passes to run (all, ingest, similarity, metrics)")

	flag.Parse()

	passes, err := pipeline.ParsePass(*pass)
	if err != nil {
		log.Fatalf("invalid -pass: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.IsLocal(), cfg.LogLevel)

	flush := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.AppEnv,
	}, &logger)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, &logger)

	if err := runMode(ctx, application, *mode, passes); err != nil {
		if app.IsShutdown(err) {
			logger.Info().Msg("application stopped")

			return
		}

		logger.Error().Err(err).Str("mode", *mode).Msg("application error")
		flush()
		stop()
		os.Exit(1)
	}
}

func newLogger(local bool, level string) zerolog.Logger {
	var logger zerolog.Logger

	if local {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return logger.Level(lvl)
}

func runMode(ctx context.Context, application *app.App, mode string, passes []pipeline.Pass) error {
	switch mode {
	case "run":
		return application.RunOnce(ctx, passes)
	case "schedule":
		return application.RunSchedule(ctx, passes)
	case "migrate":
		return application.Migrate(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[run|schedule|migrate] [--pass=all|ingest|similarity|metrics]", os.Args[0])

		return nil
	}
}
