package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// CartSyncMetrics records background cart writes and store loads.
// A nil *CartSyncMetrics is valid and records nothing.
type CartSyncMetrics struct {
	writes     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	superseded *prometheus.CounterVec
	loads      *prometheus.CounterVec
}

// NewCartSyncMetrics registers the cart sync metrics on the provided registerer.
func NewCartSyncMetrics(reg prometheus.Registerer) *CartSyncMetrics {
	if reg == nil {
		return &CartSyncMetrics{}
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_writes_total",
		Help: "Background cart writes by backing store, operation and result.",
	}, []string{"store", "op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_sync_write_duration_seconds",
		Help:    "Duration of background cart writes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"store", "op"})
	superseded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_superseded_total",
		Help: "Queued cart writes dropped because a later write replaced them.",
	}, []string{"store"})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_loads_total",
		Help: "Cart loads from a backing store by result.",
	}, []string{"store", "result"})
	reg.MustRegister(writes, duration, superseded, loads)
	return &CartSyncMetrics{
		writes:     writes,
		duration:   duration,
		superseded: superseded,
		loads:      loads,
	}
}

// ObserveWrite records one finished write.
func (m *CartSyncMetrics) ObserveWrite(store, op string, elapsed time.Duration, err error) {
	if m == nil || m.writes == nil {
		return
	}
	m.writes.WithLabelValues(normalizeLabel(store), normalizeLabel(op), resultLabel(err)).Inc()
	m.duration.WithLabelValues(normalizeLabel(store), normalizeLabel(op)).Observe(elapsed.Seconds())
}

// AddSuperseded counts queued writes that were replaced before being sent.
func (m *CartSyncMetrics) AddSuperseded(store string, n int) {
	if m == nil || m.superseded == nil || n <= 0 {
		return
	}
	m.superseded.WithLabelValues(normalizeLabel(store)).Add(float64(n))
}

// ObserveLoad records one cart load.
func (m *CartSyncMetrics) ObserveLoad(store string, err error) {
	if m == nil || m.loads == nil {
		return
	}
	m.loads.WithLabelValues(normalizeLabel(store), resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
