// Package metrics exposes prometheus counters for the bot and the remote
// client, plus the /metrics and /healthz endpoints.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
)

const namespace = "cityteam"

type Metrics struct {
	registry  *prometheus.Registry
	mutations *prometheus.CounterVec
	requests  *prometheus.HistogramVec
	updates   *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkin_mutations_total",
			Help:      "Successful check-in mutations by operation.",
		}, []string{"op"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of requests to the guests server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_updates_total",
			Help:      "Telegram updates handled by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_failures_total",
			Help:      "Actions that ended with an error shown to the user, by error kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.mutations, m.requests, m.updates, m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// CheckinEvent counts a successful mutation.
func (m *Metrics) CheckinEvent(_ context.Context, ev checkin.Event) {
	m.mutations.WithLabelValues(ev.Op).Inc()
}

// ObserveRequest records one request to the guests server. A status of zero
// means no response arrived.
func (m *Metrics) ObserveRequest(op string, status int, elapsed time.Duration) {
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(op, label).Observe(elapsed.Seconds())
}

func (m *Metrics) Update(kind string) {
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) Failure(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Router serves /metrics and /healthz. Each named check runs on every
// health request; any failure answers 503.
func (m *Metrics) Router(checks map[string]Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}
		if resp.Status != "ok" {
			render.Status(req, http.StatusServiceUnavailable)
		}
		render.JSON(w, req, resp)
	})
	return r
}
