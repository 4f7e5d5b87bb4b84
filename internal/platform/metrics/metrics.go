package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SyncRuns         *prometheus.CounterVec
	SyncDuration     *prometheus.HistogramVec
	DomainsImported  prometheus.Counter
	DomainsRemoved   prometheus.Counter
	Verifications    *prometheus.CounterVec
	AdapterRequests  *prometheus.CounterVec
	AdapterLatency   *prometheus.HistogramVec
	BulkSyncRejected prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SyncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainhub_sync_runs_total",
			Help: "Sync runs by registrar and outcome status",
		}, []string{"registrar", "status"}),
		SyncDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domainhub_sync_duration_seconds",
			Help:    "Wall time of a single account sync",
			Buckets: prometheus.DefBuckets,
		}, []string{"registrar"}),
		DomainsImported: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainhub_domains_imported_total",
			Help: "Domains imported by full sync",
		}),
		DomainsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainhub_domains_removed_total",
			Help: "Domains removed or revoked because the registrar stopped reporting them",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainhub_verifications_total",
			Help: "Verification attempts by method and outcome",
		}, []string{"method", "outcome"}),
		AdapterRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainhub_adapter_requests_total",
			Help: "Registrar adapter calls by registrar and error category",
		}, []string{"registrar", "category"}),
		AdapterLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domainhub_adapter_latency_seconds",
			Help:    "Registrar adapter call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"registrar"}),
		BulkSyncRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainhub_bulk_sync_rejected_total",
			Help: "Bulk sync triggers skipped because a run was already in flight",
		}),
	}
}

// ObserveSync records the outcome of one account sync.
func (m *Metrics) ObserveSync(registrar, status string, elapsed time.Duration) {
	m.SyncRuns.WithLabelValues(registrar, status).Inc()
	m.SyncDuration.WithLabelValues(registrar).Observe(elapsed.Seconds())
}

// ObserveAdapter records one registrar API call. Category is empty on success.
func (m *Metrics) ObserveAdapter(registrar, category string, elapsed time.Duration) {
	if category == "" {
		category = "ok"
	}
	m.AdapterRequests.WithLabelValues(registrar, category).Inc()
	m.AdapterLatency.WithLabelValues(registrar).Observe(elapsed.Seconds())
}

// ObserveVerification records one verification attempt outcome.
func (m *Metrics) ObserveVerification(method, outcome string) {
	m.Verifications.WithLabelValues(method, outcome).Inc()
}
