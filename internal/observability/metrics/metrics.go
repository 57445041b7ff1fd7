package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obserrors "github.com/target/ticketflow/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Collector records client and backend activity. A nil *Collector is a no-op,
// so components can be built without metrics in tests.
type Collector struct {
	authAttempts  *prometheus.CounterVec
	dataCalls     *prometheus.CounterVec
	dataLatency   *prometheus.HistogramVec
	toasts        *prometheus.CounterVec
	gateRedirects prometheus.Counter
	activeClients prometheus.Gauge
	httpRequests  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_auth_attempts_total",
			Help: "Sign-in, sign-up and sign-out calls by outcome.",
		}, []string{"op", "result", "error_class"}),
		dataCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_data_calls_total",
			Help: "Data service calls by operation and outcome.",
		}, []string{"op", "result", "error_class"}),
		dataLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticketflow_data_call_seconds",
			Help:    "Data service call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		toasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_toasts_total",
			Help: "Notifications shown by kind.",
		}, []string{"kind"}),
		gateRedirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticketflow_gate_redirects_total",
			Help: "Protected pages redirected to login.",
		}),
		activeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ticketflow_active_clients",
			Help: "Client instances currently held by the web front end.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketflow_http_requests_total",
			Help: "HTTP requests by route pattern and status class.",
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.dataCalls,
		c.dataLatency,
		c.toasts,
		c.gateRedirects,
		c.activeClients,
		c.httpRequests,
	)
	return c
}

func resultOf(err error) (string, string) {
	if err == nil {
		return ResultSuccess, ""
	}
	return ResultError, obserrors.Classify(err)
}

// RecordAuth counts an auth provider call.
func (c *Collector) RecordAuth(op string, err error) {
	if c == nil {
		return
	}
	result, class := resultOf(err)
	c.authAttempts.WithLabelValues(op, result, class).Inc()
}

// RecordDataCall counts a data service call and observes its latency.
func (c *Collector) RecordDataCall(op string, d time.Duration, err error) {
	if c == nil {
		return
	}
	result, class := resultOf(err)
	c.dataCalls.WithLabelValues(op, result, class).Inc()
	c.dataLatency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordToast counts a shown notification.
func (c *Collector) RecordToast(kind string) {
	if c == nil {
		return
	}
	c.toasts.WithLabelValues(kind).Inc()
}

// RecordGateRedirect counts an access gate redirect.
func (c *Collector) RecordGateRedirect() {
	if c == nil {
		return
	}
	c.gateRedirects.Inc()
}

// ClientOpened increments the active client gauge.
func (c *Collector) ClientOpened() {
	if c == nil {
		return
	}
	c.activeClients.Inc()
}

// ClientClosed decrements the active client gauge.
func (c *Collector) ClientClosed() {
	if c == nil {
		return
	}
	c.activeClients.Dec()
}

// RecordHTTPRequest counts a served request.
func (c *Collector) RecordHTTPRequest(route string, status int) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
