package httpapi

import (
	"net/http"
	"time"

	"txfeed/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records page classification statistics on a private registry. It
// satisfies application.PageObserver.
type Metrics struct {
	registry       *prometheus.Registry
	pages          *prometheus.CounterVec
	classified     *prometheus.CounterVec
	backfills      *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	pageLatency    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txfeed_pages_total",
			Help: "Classified pages served.",
		}, []string{"chain"}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txfeed_transactions_classified_total",
			Help: "Classified transactions by kind.",
		}, []string{"chain", "kind"}),
		backfills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txfeed_transfer_backfills_total",
			Help: "Transfer window backfills by stream.",
		}, []string{"stream"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txfeed_upstream_errors_total",
			Help: "Failed upstream calls by operation.",
		}, []string{"op"}),
		pageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "txfeed_page_duration_seconds",
			Help:    "Time to fetch and classify one page.",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.pages,
		m.classified,
		m.backfills,
		m.upstreamErrors,
		m.pageLatency,
	)
	return m
}

func (m *Metrics) OnPageClassified(chain domain.Chain, page domain.Page, elapsed time.Duration) {
	m.pages.WithLabelValues(string(chain)).Inc()
	m.pageLatency.WithLabelValues(string(chain)).Observe(elapsed.Seconds())
	for _, txn := range page.Transactions {
		m.classified.WithLabelValues(string(chain), string(txn.Kind)).Inc()
	}
}

func (m *Metrics) OnBackfill(stream string) {
	m.backfills.WithLabelValues(stream).Inc()
}

func (m *Metrics) OnUpstreamError(op string) {
	m.upstreamErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
