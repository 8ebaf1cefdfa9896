package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics counts records and bins flowing through one run.
// All methods are safe on a nil receiver, which records nothing.
type PipelineMetrics struct {
	recordsRead     prometheus.Counter
	recordsAdmitted prometheus.Counter
	recordsRejected *prometheus.CounterVec
	bins            *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	cellCache       *prometheus.CounterVec
	operations      *prometheus.CounterVec
	errors          *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewPipelineMetrics creates the pipeline collectors and registers them.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.recordsRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batatlas_records_read_total",
		Help: "Occurrence records read from the store",
	})
	m.recordsAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batatlas_records_admitted_total",
		Help: "Records that passed the admission filter",
	})
	m.recordsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batatlas_records_rejected_total",
		Help: "Records rejected by the admission filter, by reason",
	}, []string{"reason"})
	m.bins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batatlas_bins_total",
		Help: "Cell/block bins by outcome (emitted or suppressed below the record threshold)",
	}, []string{"outcome"})
	m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batatlas_stage_duration_seconds",
		Help:    "Wall time of pipeline stages",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
	}, []string{"stage"})
	m.cellCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batatlas_cell_cache_operations_total",
		Help: "Cell id cache lookups by result",
	}, []string{"result"})
	m.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batatlas_operations_total",
		Help: "Pipeline operations by status",
	}, []string{"operation", "status"})
	m.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batatlas_errors_total",
		Help: "Pipeline errors by operation and category",
	}, []string{"operation", "error_type"})

	m.collectors = []prometheus.Collector{
		m.recordsRead,
		m.recordsAdmitted,
		m.recordsRejected,
		m.bins,
		m.stageDuration,
		m.cellCache,
		m.operations,
		m.errors,
	}
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// AddRecordsRead adds n to the read counter.
func (m *PipelineMetrics) AddRecordsRead(n int64) {
	if m == nil {
		return
	}
	m.recordsRead.Add(float64(n))
}

// AddRecordsAdmitted adds n to the admitted counter.
func (m *PipelineMetrics) AddRecordsAdmitted(n int64) {
	if m == nil {
		return
	}
	m.recordsAdmitted.Add(float64(n))
}

// AddRejections adds n rejections for reason.
func (m *PipelineMetrics) AddRejections(reason string, n int64) {
	if m == nil {
		return
	}
	m.recordsRejected.WithLabelValues(reason).Add(float64(n))
}

// AddBins counts bins by outcome.
func (m *PipelineMetrics) AddBins(emitted, suppressed int) {
	if m == nil {
		return
	}
	m.bins.WithLabelValues(OutcomeEmitted).Add(float64(emitted))
	m.bins.WithLabelValues(OutcomeSuppressed).Add(float64(suppressed))
}

// AddCellCache records cache hit and miss counts.
func (m *PipelineMetrics) AddCellCache(hits, misses int64) {
	if m == nil {
		return
	}
	m.cellCache.WithLabelValues(CacheHit).Add(float64(hits))
	m.cellCache.WithLabelValues(CacheMiss).Add(float64(misses))
}

// RecordOperation implements Recorder.
func (m *PipelineMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder; operation is the stage name.
func (m *PipelineMetrics) RecordDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *PipelineMetrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(operation, errorType).Inc()
}
