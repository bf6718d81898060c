package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("collector_test.arrow")
	assert.Equal(t, "collector_test.arrow", c.Dataset())

	c.EventProcessed()
	c.EventProcessed()
	c.LazyBind()
	c.LookupFailure(ReasonWrongType)
	c.CoercionHit("f")
	c.ObserveUpdate(5 * time.Microsecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(EventsProcessed.WithLabelValues("collector_test.arrow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(LazyBinds.WithLabelValues("collector_test.arrow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(LookupFailures.WithLabelValues("collector_test.arrow", ReasonWrongType)))
	assert.Equal(t, 0.0, testutil.ToFloat64(LookupFailures.WithLabelValues("collector_test.arrow", ReasonNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(CoercionHits.WithLabelValues("collector_test.arrow", "f")))
}

func TestThroughputTracker(t *testing.T) {
	tracker := NewThroughputTracker("throughput_test.arrow")
	tracker.Increment(100)
	time.Sleep(10 * time.Millisecond)

	rate := tracker.GetAndReset()
	assert.Greater(t, rate, 0.0)
	assert.Equal(t, rate, testutil.ToFloat64(Throughput.WithLabelValues("throughput_test.arrow")))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("update")
	time.Sleep(time.Millisecond)
	assert.Equal(t, "update", timer.Name())
	assert.GreaterOrEqual(t, timer.Stop(), time.Millisecond)
}

func TestResourceMonitor(t *testing.T) {
	rm := NewResourceMonitor()
	usage := rm.Usage()
	assert.Positive(t, usage.GoroutineCount)
	assert.GreaterOrEqual(t, usage.CPUPercent, 0.0)
}
