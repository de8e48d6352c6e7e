package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seerbot"

// Metrics holds the engine's collectors. A nil *Metrics records nothing.
type Metrics struct {
	cacheRequests *prometheus.CounterVec
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	evictions     *prometheus.CounterVec
	entries       prometheus.Gauge
	matches       *prometheus.CounterVec
	stateEntries  *prometheus.CounterVec
	transactions  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "botconfig",
			Name:      "cache_requests_total",
			Help:      "Bot configuration lookups by result (hit, miss).",
		}, []string{"result"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "botconfig",
			Name:      "builds_total",
			Help:      "Bot configuration builds by outcome (ok, or the failure cause).",
		}, []string{"outcome"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "botconfig",
			Name:      "build_duration_seconds",
			Help:      "Duration of bot configuration builds.",
			Buckets:   prometheus.DefBuckets,
		}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "botconfig",
			Name:      "evictions_total",
			Help:      "Cache evictions by reason (idle, capacity, invalidate).",
		}, []string{"reason"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "botconfig",
			Name:      "cache_entries",
			Help:      "Bot configurations currently cached.",
		}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_matches_total",
			Help:      "Intent matches by tier.",
		}, []string{"tier"}),
		stateEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_state_entries_total",
			Help:      "Conversation state entries.",
		}, []string{"conversation", "state"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Recorded transactions by success.",
		}, []string{"success"}),
	}
	reg.MustRegister(
		m.cacheRequests, m.builds, m.buildDuration, m.evictions,
		m.entries, m.matches, m.stateEntries, m.transactions,
	)
	return m
}

// CacheHit records a cache lookup served from memory.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheRequests.WithLabelValues("hit").Inc()
	}
}

// CacheMiss records a cache lookup that needed a build.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheRequests.WithLabelValues("miss").Inc()
	}
}

// Build records a finished build. outcome is "ok" or the failure cause.
func (m *Metrics) Build(outcome string, took time.Duration) {
	if m != nil {
		m.builds.WithLabelValues(outcome).Inc()
		m.buildDuration.Observe(took.Seconds())
	}
}

// Evicted records entries removed from the cache.
func (m *Metrics) Evicted(reason string, n int) {
	if m != nil && n > 0 {
		m.evictions.WithLabelValues(reason).Add(float64(n))
	}
}

// Entries sets the current cache size.
func (m *Metrics) Entries(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}

// Match records a match tier.
func (m *Metrics) Match(tier string) {
	if m != nil {
		m.matches.WithLabelValues(tier).Inc()
	}
}

// StateEntered records a conversation state entry.
func (m *Metrics) StateEntered(conversation, state string) {
	if m != nil {
		m.stateEntries.WithLabelValues(conversation, state).Inc()
	}
}

// Transaction records a saved transaction.
func (m *Metrics) Transaction(success bool) {
	if m == nil {
		return
	}
	label := "false"
	if success {
		label = "true"
	}
	m.transactions.WithLabelValues(label).Inc()
}
