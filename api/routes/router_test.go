package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	syncsvc "github.com/kbwebsolutions/datasender/internal/sync"
	"github.com/kbwebsolutions/datasender/pkg/config"
	"github.com/kbwebsolutions/datasender/pkg/logger"
	"github.com/kbwebsolutions/datasender/pkg/metrics"
)

type stubSyncService struct{}

func (stubSyncService) HandleEvent(ctx context.Context, ev syncsvc.Event) (*syncsvc.Result, error) {
	return &syncsvc.Result{Outcome: metrics.OutcomeAccepted}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Env: config.AppEnvTest},
		Auth: config.AuthConfig{WebhookSecret: "secret", Issuer: "lms"},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg, nil, nil, stubSyncService{}, nil, prometheus.NewRegistry())
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestHealthReadySkipsNilPingers(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestEventsEndpointRequiresAuth(t *testing.T) {
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{}`))
	newTestRouter(t).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
