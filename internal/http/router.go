// http — служебный HTTP-сервер коллектора: liveness, readiness и метрики.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger *slog.Logger
	// Ready сообщает готовность для /healthz; nil — всегда готов.
	Ready func() bool
	// Metrics обслуживает /metrics; nil — promhttp.Handler().
	Metrics http.Handler
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(opts Options) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	r.Use(
		Recover(),
		RequestID(),
		Logging(opts.Logger),
	)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if opts.Ready == nil || opts.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "last pass failed", http.StatusServiceUnavailable)
	})
	r.Method(http.MethodGet, "/metrics", opts.Metrics)

	return r
}
