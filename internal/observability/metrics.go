package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the event map.
type Metrics struct {
	// Snapshot metrics.
	SnapshotRecords   prometheus.Gauge
	DisplayableEvents prometheus.Gauge
	RejectedRecords   *prometheus.CounterVec // labels: reason={missing,not a number,NaN,infinite}
	SnapshotRefreshes *prometheus.CounterVec // labels: outcome={success,error}

	// View session metrics.
	ActiveSessions    prometheus.Gauge
	SessionsMounted   prometheus.Counter
	SessionsUnmounted *prometheus.CounterVec // labels: reason={explicit,expired}
	Selections        *prometheus.CounterVec // labels: origin={sidebar,marker}
	ViewportUpdates   *prometheus.CounterVec // labels: layout={split,full-width}

	// Highlight cache metrics.
	HighlightCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.SnapshotRecords,
		m.DisplayableEvents,
		m.RejectedRecords,
		m.SnapshotRefreshes,
		m.ActiveSessions,
		m.SessionsMounted,
		m.SessionsUnmounted,
		m.Selections,
		m.ViewportUpdates,
		m.HighlightCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "event_map",
			Name:      "snapshot_records",
			Help:      "Records in the current event snapshot, displayable or not.",
		}),
		DisplayableEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "event_map",
			Name:      "displayable_events",
			Help:      "Records in the current snapshot with valid coordinates.",
		}),
		RejectedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_map",
			Name:      "rejected_records_total",
			Help:      "Records dropped at load because of unusable coordinates.",
		}, []string{"reason"}),
		SnapshotRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_map",
			Name:      "snapshot_refreshes_total",
			Help:      "Snapshot loads by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "event_map",
			Name:      "active_sessions",
			Help:      "Mounted view sessions.",
		}),
		SessionsMounted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "event_map",
			Name:      "sessions_mounted_total",
			Help:      "View sessions mounted.",
		}),
		SessionsUnmounted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_map",
			Name:      "sessions_unmounted_total",
			Help:      "View sessions torn down by reason.",
		}, []string{"reason"}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_map",
			Name:      "selections_total",
			Help:      "Event selections by the view they came from.",
		}, []string{"origin"}),
		ViewportUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_map",
			Name:      "viewport_updates_total",
			Help:      "Viewport signals processed by resulting layout.",
		}, []string{"layout"}),
		HighlightCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_map",
			Name:      "highlight_cache_total",
			Help:      "Keyword highlight cache lookups by result.",
		}, []string{"result"}),
	}
}
