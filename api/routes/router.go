package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kbwebsolutions/datasender/api/controllers"
	"github.com/kbwebsolutions/datasender/api/middleware"
	syncsvc "github.com/kbwebsolutions/datasender/internal/sync"
	"github.com/kbwebsolutions/datasender/pkg/config"
	"github.com/kbwebsolutions/datasender/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisPinger controllers.Pinger,
	syncService syncsvc.Service,
	dedupeGuard controllers.DedupeGuard,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbPinger,
			"redis":    redisPinger,
		}))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.WebhookAuth(cfg.Auth, logg)).
			Post("/events", controllers.ReceiveEvent(syncService, dedupeGuard, logg))
	})

	return r
}
