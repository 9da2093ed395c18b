package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthFunc func(ctx context.Context) error

// Handler monta /metrics e /healthz. Cada check é executado com timeout de 500ms;
// o primeiro que falhar devolve 503 com o nome da dependência.
func Handler(gatherer prometheus.Gatherer, checks map[string]HealthFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("%s unhealthy: %v", name, err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// NewMetricsServer cria o servidor de /metrics e /healthz; quem chama controla
// ListenAndServe e Shutdown.
func NewMetricsServer(port string, gatherer prometheus.Gatherer, checks map[string]HealthFunc) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(gatherer, checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
