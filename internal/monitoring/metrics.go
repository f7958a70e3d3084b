package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Dictionary metrics
	DictFinds   *prometheus.CounterVec
	DictEntries *prometheus.GaugeVec
	DictSyncs   *prometheus.CounterVec

	// Span metrics
	SpansStarted       *prometheus.CounterVec
	SpansFinished      prometheus.Counter
	SegmentsSealed     prometheus.Counter
	SegmentSpans       prometheus.Histogram
	OrderingViolations prometheus.Counter

	// Carrier metrics
	ItemsProduced *prometheus.CounterVec
	ItemsDropped  *prometheus.CounterVec
	ItemsConsumed prometheus.Counter
	LaneDepth     *prometheus.GaugeVec
	BatchSize     prometheus.Histogram

	// Reporter metrics
	Reports        *prometheus.CounterVec
	ReportDuration prometheus.Histogram
	PayloadBytes   prometheus.Histogram

	// Generic component operation metrics
	OpCalls    *prometheus.CounterVec
	OpDuration *prometheus.HistogramVec

	startTime time.Time

	// Snapshot for quick introspection without scraping
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current counter values for the stats API
type MetricsSnapshot struct {
	SpansStarted   int64
	SpansFinished  int64
	SegmentsSealed int64
	ItemsProduced  int64
	ItemsConsumed  int64
	ItemsDropped   int64
	Reports        int64
	ReportErrors   int64
}

// NewMetrics creates a new metrics collector registered with reg. A nil reg
// falls back to the default registerer. Tests pass a fresh registry so
// repeated construction never trips duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// Dictionary metrics
		DictFinds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swagent_dictionary_finds_total",
				Help: "Total dictionary lookups by registry and outcome",
			},
			[]string{"registry", "outcome"},
		),
		DictEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swagent_dictionary_entries",
				Help: "Current number of interned entries per registry",
			},
			[]string{"registry"},
		),
		DictSyncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swagent_dictionary_syncs_total",
				Help: "Total dictionary sync rounds by status",
			},
			[]string{"status"},
		),

		// Span metrics
		SpansStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swagent_spans_started_total",
				Help: "Total spans started by kind",
			},
			[]string{"kind"},
		),
		SpansFinished: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swagent_spans_finished_total",
				Help: "Total spans fully finished",
			},
		),
		SegmentsSealed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swagent_segments_sealed_total",
				Help: "Total segments sealed for shipping",
			},
		),
		SegmentSpans: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swagent_segment_spans",
				Help:    "Spans per sealed segment",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		OrderingViolations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swagent_spans_out_of_order_total",
				Help: "Total rejected attempts to stop a span that was not the stack top",
			},
		),

		// Carrier metrics
		ItemsProduced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swagent_carrier_produced_total",
				Help: "Total items accepted into lanes",
			},
			[]string{"lane"},
		),
		ItemsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swagent_carrier_dropped_total",
				Help: "Total items dropped by reason",
			},
			[]string{"reason"},
		),
		ItemsConsumed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swagent_carrier_consumed_total",
				Help: "Total items drained by consumers",
			},
		),
		LaneDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swagent_carrier_lane_depth",
				Help: "Current buffered items per lane",
			},
			[]string{"lane"},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swagent_carrier_batch_size",
				Help:    "Items per consumed batch",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
			},
		),

		// Reporter metrics
		Reports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swagent_reporter_reports_total",
				Help: "Total report attempts by status",
			},
			[]string{"status"},
		),
		ReportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swagent_reporter_duration_seconds",
				Help:    "Report round trip duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		PayloadBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swagent_reporter_payload_bytes",
				Help:    "Encoded payload size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
		),

		// Generic component operation metrics
		OpCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swagent_ops_total",
				Help: "Total component operations by status",
			},
			[]string{"component", "op", "status"},
		),
		OpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swagent_ops_duration_seconds",
				Help:    "Component operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"component", "op"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "swagent_uptime_seconds",
			Help: "Agent uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordFind records a dictionary lookup
func (m *Metrics) RecordFind(registry, outcome string) {
	m.DictFinds.WithLabelValues(registry, outcome).Inc()
}

// SetDictEntries sets the interned entry count for a registry
func (m *Metrics) SetDictEntries(registry string, count int) {
	m.DictEntries.WithLabelValues(registry).Set(float64(count))
}

// RecordSync records a dictionary sync round
func (m *Metrics) RecordSync(status string) {
	m.DictSyncs.WithLabelValues(status).Inc()
}

// RecordSpanStart records a started span
func (m *Metrics) RecordSpanStart(kind string) {
	m.SpansStarted.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.SpansStarted++
	m.mu.Unlock()
}

// RecordSpanFinish records a fully finished span
func (m *Metrics) RecordSpanFinish() {
	m.SpansFinished.Inc()

	m.mu.Lock()
	m.snapshot.SpansFinished++
	m.mu.Unlock()
}

// RecordOrderingViolation records a rejected out-of-order span stop
func (m *Metrics) RecordOrderingViolation() {
	m.OrderingViolations.Inc()
}

// RecordSegmentSealed records a sealed segment and its span count
func (m *Metrics) RecordSegmentSealed(spanCount int) {
	m.SegmentsSealed.Inc()
	m.SegmentSpans.Observe(float64(spanCount))

	m.mu.Lock()
	m.snapshot.SegmentsSealed++
	m.mu.Unlock()
}

// RecordProduce records an item accepted into a lane
func (m *Metrics) RecordProduce(lane int) {
	m.ItemsProduced.WithLabelValues(strconv.Itoa(lane)).Inc()

	m.mu.Lock()
	m.snapshot.ItemsProduced++
	m.mu.Unlock()
}

// RecordDrop records a dropped item
func (m *Metrics) RecordDrop(reason string) {
	m.ItemsDropped.WithLabelValues(reason).Inc()

	m.mu.Lock()
	m.snapshot.ItemsDropped++
	m.mu.Unlock()
}

// RecordConsume records a drained batch
func (m *Metrics) RecordConsume(batch int) {
	if batch <= 0 {
		return
	}
	m.ItemsConsumed.Add(float64(batch))
	m.BatchSize.Observe(float64(batch))

	m.mu.Lock()
	m.snapshot.ItemsConsumed += int64(batch)
	m.mu.Unlock()
}

// SetLaneDepth sets the current depth of a lane
func (m *Metrics) SetLaneDepth(lane, depth int) {
	m.LaneDepth.WithLabelValues(strconv.Itoa(lane)).Set(float64(depth))
}

// RecordReport records a report attempt
func (m *Metrics) RecordReport(status string, duration time.Duration, payloadBytes int) {
	m.Reports.WithLabelValues(status).Inc()
	m.ReportDuration.Observe(duration.Seconds())
	if payloadBytes > 0 {
		m.PayloadBytes.Observe(float64(payloadBytes))
	}

	m.mu.Lock()
	m.snapshot.Reports++
	if status != "success" {
		m.snapshot.ReportErrors++
	}
	m.mu.Unlock()
}

// RecordOperation records a generic component operation
func (m *Metrics) RecordOperation(component, op, status string, duration time.Duration) {
	m.OpCalls.WithLabelValues(component, op, status).Inc()
	m.OpDuration.WithLabelValues(component, op).Observe(duration.Seconds())
}

// Snapshot returns current counter values
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Uptime returns time since the collector was created
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
