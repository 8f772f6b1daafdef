package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestServer_Handler(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name   string
		pinger Pinger
		path   string
		want   int
	}{
		{name: "healthz", path: "/healthz", want: http.StatusOK},
		{name: "ready", pinger: pingerFunc(func(context.Context) error { return nil }), path: "/readyz", want: http.StatusOK},
		{name: "not ready", pinger: pingerFunc(func(context.Context) error { return errors.New("down") }), path: "/readyz", want: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(tt.pinger, 0, &logger)
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
