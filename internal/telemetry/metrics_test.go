package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.CacheLookup("hit")
	m.CacheLookup("hit")
	m.CacheLookup("miss")
	m.EnrichmentOutcome(false)
	m.Operation("add_item", errors.New("boom"))
	m.SetDependency("redis", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Enrichment.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("add_item", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DependencyState.WithLabelValues("redis")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup("hit")
		m.CacheError("put")
		m.EnrichmentOutcome(true)
		m.Operation("get_cart", nil)
		m.ObserveStore("get", time.Now())
		m.ObserveCartValue(1)
		m.ObserveHTTP("/", "200", time.Millisecond)
		m.SetDependency("mysql", false)
	})
}
