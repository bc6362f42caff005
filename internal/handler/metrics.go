package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artarona/Administrador/internal/model"
)

// Metrics holds the Prometheus collectors for the HTTP layer.
type Metrics struct {
	gatherer        prometheus.Gatherer
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	contactsCreated *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() to stay isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		contactsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contacts_created_total",
				Help: "Contacts created, by origin",
			},
			[]string{"origin"},
		),
	}
}

// poolStater is satisfied by *pgxpool.Pool.
type poolStater interface {
	Stat() *pgxpool.Stat
}

// RegisterPool exposes connection pool gauges read at scrape time.
func (m *Metrics) RegisterPool(reg prometheus.Registerer, pool poolStater) {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "db_connections_active",
		Help: "Number of acquired database connections",
	}, func() float64 { return float64(pool.Stat().AcquiredConns()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "db_connections_idle",
		Help: "Number of idle database connections",
	}, func() float64 { return float64(pool.Stat().IdleConns()) })
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ContactCreated counts a stored contact. Safe on a nil *Metrics.
func (m *Metrics) ContactCreated(origin model.Origin) {
	if m == nil {
		return
	}
	m.contactsCreated.WithLabelValues(string(origin)).Inc()
}

// Middleware records request count and latency per route pattern. It must
// wrap the ServeMux directly so r.Pattern is populated after routing; raw
// paths are never used as labels since legacy routes carry the token.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sr, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sr.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
