package listcache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	lookupFresh = "fresh"
	lookupStale = "stale"
	lookupMiss  = "miss"
)

// Metrics instruments cache behavior. All methods are nil-safe so the
// cache can run uninstrumented in tests.
type Metrics struct {
	lookups       *prometheus.CounterVec
	revalidations prometheus.Counter
	invalidations prometheus.Counter
	fetchErrors   prometheus.Counter
	fetchSeconds  prometheus.Histogram
}

// NewMetrics creates and registers the cache metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearthview",
			Subsystem: "listcache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result (fresh, stale, miss).",
		}, []string{"result"}),
		revalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearthview",
			Subsystem: "listcache",
			Name:      "revalidations_total",
			Help:      "Background revalidations scheduled for stale entries.",
		}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearthview",
			Subsystem: "listcache",
			Name:      "evictions_total",
			Help:      "Entries evicted by invalidation or clear.",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearthview",
			Subsystem: "listcache",
			Name:      "fetch_errors_total",
			Help:      "Fetches that returned an error.",
		}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hearthview",
			Subsystem: "listcache",
			Name:      "fetch_duration_seconds",
			Help:      "Network fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.lookups, m.revalidations, m.invalidations, m.fetchErrors, m.fetchSeconds)
	return m
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) revalidated() {
	if m == nil {
		return
	}
	m.revalidations.Inc()
}

func (m *Metrics) invalidated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidations.Add(float64(n))
}

func (m *Metrics) fetched(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchSeconds.Observe(d.Seconds())
	if err != nil {
		m.fetchErrors.Inc()
	}
}
