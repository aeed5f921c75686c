package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the cart engine. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	CacheLookups    *prometheus.CounterVec
	CacheErrors     *prometheus.CounterVec
	Enrichment      *prometheus.CounterVec
	Operations      *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec
	CartValue       prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	DependencyState *prometheus.GaugeVec
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "cart"
	}
	f := promauto.With(reg)

	return &Metrics{
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cart cache lookups by result",
			},
			[]string{"result"}, // hit, miss, error
		),
		CacheErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Swallowed cart cache errors by operation",
			},
			[]string{"op"},
		),
		Enrichment: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "enrichment_total",
				Help:      "Product enrichment attempts by outcome",
			},
			[]string{"outcome"}, // ok, degraded
		),
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Cart operations by name and result",
			},
			[]string{"op", "result"},
		),
		StoreLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "duration_seconds",
				Help:      "Durable store call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		CartValue: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "cart_value",
				Help:      "Cart total after a mutating operation",
				Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 5000},
			},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		DependencyState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "dependency_up",
				Help:      "1 when the dependency answered the last probe",
			},
			[]string{"dependency"},
		),
	}
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) EnrichmentOutcome(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "degraded"
	}
	m.Enrichment.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Operation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

// ObserveStore records the elapsed time since start for a store call.
func (m *Metrics) ObserveStore(op string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveCartValue(v float64) {
	if m == nil {
		return
	}
	m.CartValue.Observe(v)
}

func (m *Metrics) ObserveHTTP(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) SetDependency(name string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.DependencyState.WithLabelValues(name).Set(v)
}
