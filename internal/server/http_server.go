package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/oggyb/muzz-match/internal/config"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// NewHTTPServer builds the HTTP side: the live channel, Prometheus metrics
// and a health endpoint running the given checks.
//
// Routes:
//   - GET /ws       live channel (WebSocket upgrade)
//   - GET /metrics  Prometheus exposition of reg
//   - GET /health   200 when every check passes, 503 otherwise
func NewHTTPServer(
	cfg *config.Config,
	logger *slog.Logger,
	live http.Handler,
	reg *prometheus.Registry,
	checks map[string]HealthCheck,
) *http.Server {
	r := mux.NewRouter()

	r.Handle("/ws", live).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler(logger, checks)).Methods(http.MethodGet)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		// credentials only for an explicit origin list, never for a wildcard
		AllowCredentials: explicitOrigins(cfg.HTTP.AllowedOrigins),
	}).Handler(r)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func explicitOrigins(origins []string) bool {
	return len(origins) > 0 && !slices.Contains(origins, "*")
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		code := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", "check", name, "err", err)
				results[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		status := "healthy"
		if code != http.StatusOK {
			status = "unhealthy"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": results})
	}
}
