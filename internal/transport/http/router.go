package httptransport

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"anchorgate/pkg/platform/httputil"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ServiceInfo is reported by GET /api/info. Features names the backends
// and capabilities enabled at startup.
type ServiceInfo struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Features map[string]bool `json:"features,omitempty"`
}

// Deps holds what the router serves. Nil Gatherer disables /metrics.
type Deps struct {
	Handlers []Registrar
	Checks   map[string]HealthCheck
	Gatherer prometheus.Gatherer
	Info     ServiceInfo
}

// NewRouter mounts every feature handler plus /health, /api/info and /metrics.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", healthHandler(d.Checks))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	for _, h := range d.Handlers {
		h.Register(r)
	}

	resp := infoResponse{ServiceInfo: d.Info}
	r.Get("/api/info", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, resp)
	})
	resp.Endpoints = routeList(r)
	return r
}

type infoResponse struct {
	ServiceInfo
	Endpoints []string `json:"endpoints"`
}

// routeList returns "METHOD /pattern" for every mounted route, sorted.
func routeList(r chi.Routes) []string {
	var out []string
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, method+" "+route)
		return nil
	})
	sort.Strings(out)
	return out
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
