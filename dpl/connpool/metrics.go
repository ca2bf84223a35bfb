package connpool

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the pool/dispatcher counters wired into a caller-supplied
// prometheus.Registerer. A nil *Metrics (the zero value returned by
// NewMetrics with a nil registerer) is safe to use: every method is a
// no-op guard around a possibly-nil counter.
type Metrics struct {
	hits       prometheus.Counter
	misses     prometheus.Counter
	created    prometheus.Counter
	destroyed  prometheus.Counter
	blacklists prometheus.Counter
	poolFull   prometheus.Counter
}

// NewMetrics registers the pool's counters under reg. Pass nil to disable
// metrics entirely (NewPool works fine with a nil *Metrics).
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connpool", Name: "hits_total",
			Help: "Idle connections reused from the pool.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connpool", Name: "misses_total",
			Help: "Check-outs that required dialing a new connection.",
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connpool", Name: "created_total",
			Help: "Connections dialed.",
		}),
		destroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connpool", Name: "destroyed_total",
			Help: "Connections torn down (error, idle expiry, hit-count expiry, explicit terminate).",
		}),
		blacklists: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connpool", Name: "blacklists_total",
			Help: "Endpoints blacklisted after a connect or I/O failure.",
		}),
		poolFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "connpool", Name: "pool_full_total",
			Help: "Check-outs rejected because n_conn_max was reached with no reusable entry.",
		}),
	}
	reg.MustRegister(m.hits, m.misses, m.created, m.destroyed, m.blacklists, m.poolFull)
	return m
}

func (m *Metrics) incHit() {
	if m != nil {
		m.hits.Inc()
	}
}
func (m *Metrics) incMiss() {
	if m != nil {
		m.misses.Inc()
	}
}
func (m *Metrics) incCreated() {
	if m != nil {
		m.created.Inc()
	}
}
func (m *Metrics) incDestroyed() {
	if m != nil {
		m.destroyed.Inc()
	}
}
func (m *Metrics) incBlacklist() {
	if m != nil {
		m.blacklists.Inc()
	}
}
func (m *Metrics) incPoolFull() {
	if m != nil {
		m.poolFull.Inc()
	}
}
