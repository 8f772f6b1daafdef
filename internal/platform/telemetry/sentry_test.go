package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutDSN(t *testing.T) {
	logger := zerolog.Nop()

	flush := Init(Config{}, &logger)
	require.NotNil(t, flush)
	flush()
}

func TestInitWithInvalidDSN(t *testing.T) {
	logger := zerolog.Nop()

	flush := Init(Config{DSN: "not a dsn"}, &logger)
	require.NotNil(t, flush)
	flush()
}

func TestStartRunTagsHub(t *testing.T) {
	ctx, run := StartRun(context.Background(), "run-1")

	hub := sentry.GetHubFromContext(ctx)
	require.NotNil(t, hub)
	assert.NotSame(t, sentry.CurrentHub(), hub)

	CaptureError(ctx, "ingest", errors.New("boom"))
	run.Finish(errors.New("boom"))
	assert.Equal(t, sentry.SpanStatusInternalError, run.span.Status)
}

func TestCaptureErrorWithoutHub(t *testing.T) {
	assert.NotPanics(t, func() {
		CaptureError(context.Background(), "", errors.New("boom"))
	})
}
