package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the inbox instrumentation
type Metrics struct {
	FetchCycles      *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	EmailsNormalized prometheus.Counter
	InboxEmails      prometheus.Gauge
	InboxUnread      prometheus.Gauge
	EmailsRead       prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the metrics on reg. A nil reg uses a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		FetchCycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_inbox_fetch_cycles_total",
				Help: "Fetch cycles by source and result",
			},
			[]string{"source", "result"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "assistant_inbox_fetch_duration_seconds",
				Help:    "Duration of a fetch cycle including normalization",
				Buckets: prometheus.DefBuckets,
			},
		),
		EmailsNormalized: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "assistant_inbox_emails_normalized_total",
				Help: "Raw emails turned into normalized records",
			},
		),
		InboxEmails: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "assistant_inbox_emails",
				Help: "Emails in the inbox after the last fetch cycle",
			},
		),
		InboxUnread: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "assistant_inbox_unread_emails",
				Help: "Unread emails in the inbox",
			},
		),
		EmailsRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "assistant_inbox_emails_read_total",
				Help: "Emails marked as read on selection",
			},
		),
		gatherer: reg,
	}
}

// ObserveFetch records the outcome of one fetch cycle
func (m *Metrics) ObserveFetch(source string, started time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.FetchCycles.WithLabelValues(source, result).Inc()
	m.FetchDuration.Observe(time.Since(started).Seconds())
}

// Handler serves the registered metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
