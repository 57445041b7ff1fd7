package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/target/ticketflow/config"
	"github.com/target/ticketflow/internal/observability/metrics"
)

// Metrics is the collector and its scrape handler. Both are nil when
// metrics are disabled; a nil collector records nothing.
type Metrics struct {
	Collector *metrics.Collector
	Handler   http.Handler
}

// NewMetrics builds a private registry with the runtime collectors and ours.
func NewMetrics(cfg config.ObservabilityConfig) Metrics {
	if !cfg.MetricsEnabled {
		return Metrics{}
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return Metrics{
		Collector: metrics.NewCollector(reg),
		Handler:   metrics.Handler(reg),
	}
}
