// Package metrics exposes Prometheus collectors for the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	// TogglesTotal counts watchlist/favorite changes by relation and direction.
	TogglesTotal *prometheus.CounterVec
	// AuthEventsTotal counts register/login/logout outcomes.
	AuthEventsTotal *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviebox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moviebox_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TogglesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviebox_relation_toggles_total",
				Help: "Total number of watchlist and favorite toggles",
			},
			[]string{"relation", "op"},
		),
		AuthEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviebox_auth_events_total",
				Help: "Total number of authentication events",
			},
			[]string{"event", "outcome"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Toggle records one watchlist/favorite change.
func (m *Metrics) Toggle(relation, op string) {
	m.TogglesTotal.WithLabelValues(relation, op).Inc()
}

// AuthEvent records one register/login/logout outcome.
func (m *Metrics) AuthEvent(event string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// Filter measures every request by its route template, not its raw path.
func (m *Metrics) Filter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)

	route := req.SelectedRoutePath()
	if route == "" {
		route = "unmatched"
	}
	status := resp.StatusCode()
	if status == 0 {
		status = http.StatusOK
	}
	m.RequestsTotal.WithLabelValues(req.Request.Method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(req.Request.Method, route).Observe(time.Since(start).Seconds())
}
