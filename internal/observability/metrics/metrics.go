package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics exposes counters/histograms for the fetch-reconcile pipeline.
type SyncMetrics struct {
	cyclesTotal   *prometheus.CounterVec
	leadsTotal    *prometheus.CounterVec
	cycleDuration prometheus.Histogram
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadcenter",
			Subsystem: "sync",
			Name:      "cycles_total",
			Help:      "Total fetch-reconcile cycles by outcome",
		}, []string{"outcome"}),
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadcenter",
			Subsystem: "sync",
			Name:      "leads_total",
			Help:      "Total leads written by reconciliation",
		}, []string{"op"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadcenter",
			Subsystem: "sync",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one fetch-reconcile cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.cyclesTotal, m.leadsTotal, m.cycleDuration)
	return m
}

// ObserveCycle records one finished cycle.
func (m *SyncMetrics) ObserveCycle(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(seconds)
}

// ObserveLeads records how many leads a batch inserted and updated.
func (m *SyncMetrics) ObserveLeads(inserted, updated int) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues("inserted").Add(float64(inserted))
	m.leadsTotal.WithLabelValues("updated").Add(float64(updated))
}
