package relay

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the relay's Prometheus instrumentation. Each server owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
	reports         *prometheus.CounterVec
	forwards        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapped_relay_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wrapped_relay_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapped_relay_uploads_total",
				Help: "Archive uploads by outcome",
			},
			[]string{"outcome"}, // stored, invalid, too_large, store_error
		),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wrapped_relay_upload_bytes",
			Help:    "Size of stored archives",
			Buckets: prometheus.ExponentialBuckets(1<<10, 4, 10),
		}),
		reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapped_relay_reports_total",
				Help: "Report requests by outcome",
			},
			[]string{"outcome"}, // ok, malformed, empty_corpus, empty_range, bad_query
		),
		forwards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapped_relay_admin_forwards_total",
				Help: "Admin mail forwards by outcome",
			},
			[]string{"outcome"}, // sent, disabled, failed
		),
	}
	reg.MustRegister(
		m.requests, m.requestDuration, m.uploads, m.uploadBytes, m.reports, m.forwards,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency keyed by the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
