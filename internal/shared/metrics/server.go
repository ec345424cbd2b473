package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthFunc func(ctx context.Context) error

// Check é uma dependência verificada pelo /healthz (ex.: "postgres", "redis")
type Check struct {
	Name string
	Fn   HealthFunc
}

// Handler monta /metrics e /healthz
func Handler(checks ...Check) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthz(checks))
	return mux
}

// healthz responde 200 só se todas as checagens passarem; o corpo traz o estado de cada uma
func healthz(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				report[c.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[c.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}

// StartMetricsServer sobe /metrics e /healthz numa porta separada da API.
// O chamador faz Shutdown no encerramento.
func StartMetricsServer(port string, checks ...Check) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(checks...),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
