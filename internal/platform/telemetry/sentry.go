// Package telemetry reports run failures to Sentry.
package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

const (
	serviceName  = "channel-curator"
	flushTimeout = 5 * time.Second
	tagRunID     = "run_id"
	tagPass      = "pass"
)

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
}

// Init initializes Sentry and returns a function that flushes pending
// events. With an empty DSN, or when Sentry cannot start, it returns a
// no-op flush.
func Init(cfg Config, logger *zerolog.Logger) func() {
	if cfg.DSN == "" {
		return func() {}
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		ServerName:       serviceName,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("sentry: failed to initialize, continuing without error reporting")

		return func() {}
	}

	logger.Info().Str("environment", cfg.Environment).Msg("sentry initialized")

	return func() {
		sentry.Flush(flushTimeout)
	}
}

// Run is a Sentry transaction covering one curation run.
type Run struct {
	hub  *sentry.Hub
	span *sentry.Span
}

// StartRun opens a transaction for a run on a dedicated hub tagged with
// runID. The returned context carries the hub.
func StartRun(ctx context.Context, runID string) (context.Context, *Run) {
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag(tagRunID, runID)

	ctx = sentry.SetHubOnContext(ctx, hub)
	span := sentry.StartSpan(ctx, "curation.run", sentry.WithTransactionName("curation run"))

	return span.Context(), &Run{hub: hub, span: span}
}

// Finish closes the transaction, marking it failed when err is set.
func (r *Run) Finish(err error) {
	if err != nil {
		r.span.Status = sentry.SpanStatusInternalError
		r.hub.CaptureException(err)
	} else {
		r.span.Status = sentry.SpanStatusOK
	}

	r.span.Finish()
}

// CaptureError reports err with the hub carried by ctx, tagging the pass
// when given.
func CaptureError(ctx context.Context, pass string, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if pass != "" {
			scope.SetTag(tagPass, pass)
		}

		hub.CaptureException(err)
	})
}
