// Package metrics provides Prometheus instrumentation for ntuple readers.
//
// # Overview
//
// Every reader owns a Collector labelled with its dataset name. The
// collector updates package-level vectors registered with the default
// Prometheus registry:
//   - events advanced by the cursor
//   - columns bound lazily on first access
//   - failed lookups, by reason
//   - lookups served from converted columns, by suffix
//   - time spent running registered per-event functions
//
// # Basic Usage
//
//	collector := metrics.NewCollector("events.arrow")
//	collector.EventProcessed()
//	timer := metrics.NewTimer("update")
//	runFunctions()
//	collector.ObserveUpdate(timer.Stop())
//
// # Throughput
//
//	tracker := metrics.NewThroughputTracker("events.arrow")
//	for reader.NextEvent() {
//	    tracker.Increment(1)
//	}
//	eventsPerSecond := tracker.GetAndReset()
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup failure reasons
const (
	ReasonNotFound  = "not_found"
	ReasonWrongType = "wrong_type"
)

var (
	// EventsProcessed counts successful cursor advances.
	// Labels: dataset
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ntuple_events_processed_total",
			Help: "Total number of events loaded by ntuple readers",
		},
		[]string{"dataset"},
	)

	// LazyBinds counts columns materialized on first access.
	// Labels: dataset
	LazyBinds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ntuple_lazy_binds_total",
			Help: "Total number of columns bound on first access",
		},
		[]string{"dataset"},
	)

	// LookupFailures counts getter calls that could not be resolved.
	// Labels: dataset, reason (not_found/wrong_type)
	LookupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ntuple_lookup_failures_total",
			Help: "Total number of failed column lookups",
		},
		[]string{"dataset", "reason"},
	)

	// CoercionHits counts lookups served from a converted column.
	// Labels: dataset, suffix
	CoercionHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ntuple_coercion_hits_total",
			Help: "Total number of lookups served by converted columns",
		},
		[]string{"dataset", "suffix"},
	)

	// UpdateLatency tracks the time spent running per-event functions in
	// nanoseconds.
	// Labels: dataset
	UpdateLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ntuple_update_latency_nanoseconds",
			Help: "Time spent running registered per-event functions in nanoseconds",
			Buckets: []float64{
				1000,   // 1μs - trivial derived values
				10000,  // 10μs
				100000, // 100μs
				1e6,    // 1ms - object building
				1e7,    // 10ms
				1e8,    // 100ms
			},
		},
		[]string{"dataset"},
	)

	// Throughput tracks events per second of a scan.
	// Labels: dataset
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ntuple_throughput_events_per_second",
			Help: "Current throughput in events per second",
		},
		[]string{"dataset"},
	)
)

// Collector records the metrics of one reader. Counters are resolved once
// for the collector's dataset label.
type Collector struct {
	dataset         string
	eventsProcessed prometheus.Counter
	lazyBinds       prometheus.Counter
	updateLatency   prometheus.Observer
	startTime       time.Time
}

// NewCollector creates a collector for a dataset
func NewCollector(dataset string) *Collector {
	return &Collector{
		dataset:         dataset,
		eventsProcessed: EventsProcessed.WithLabelValues(dataset),
		lazyBinds:       LazyBinds.WithLabelValues(dataset),
		updateLatency:   UpdateLatency.WithLabelValues(dataset),
		startTime:       time.Now(),
	}
}

// Dataset returns the collector's dataset label
func (c *Collector) Dataset() string { return c.dataset }

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time { return c.startTime }

// EventProcessed records one cursor advance
func (c *Collector) EventProcessed() { c.eventsProcessed.Inc() }

// LazyBind records one column bound on first access
func (c *Collector) LazyBind() { c.lazyBinds.Inc() }

// LookupFailure records a failed lookup
func (c *Collector) LookupFailure(reason string) {
	LookupFailures.WithLabelValues(c.dataset, reason).Inc()
}

// CoercionHit records a lookup served by the converted column with suffix
func (c *Collector) CoercionHit(suffix string) {
	CoercionHits.WithLabelValues(c.dataset, suffix).Inc()
}

// ObserveUpdate records the duration of one round of per-event functions
func (c *Collector) ObserveUpdate(d time.Duration) {
	c.updateLatency.Observe(float64(d.Nanoseconds()))
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks events per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Events processed since last reset
	lastReset time.Time // Time of last reset
	dataset   string
}

// NewThroughputTracker creates a new throughput tracker for a dataset
func NewThroughputTracker(dataset string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		dataset:   dataset,
	}
}

// Increment adds n to the event count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (events/second),
// updates the Prometheus gauge, resets the counter, and returns
// the calculated throughput. Safe for concurrent use.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	// Reset for next period
	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.dataset).Set(throughput)

	return throughput
}
