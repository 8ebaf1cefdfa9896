package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for occurrence store access.
// Recording methods are no-ops on a nil receiver.
type DatastoreMetrics struct {
	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	rowsStreamedTotal      prometheus.Counter
	rowsImportedTotal      prometheus.Counter
	importBatchSize        prometheus.Histogram

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry prometheus.Registerer) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batatlas_datastore_operations_total",
			Help: "Total number of datastore operations",
		},
		[]string{"operation", "status"},
	)
	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batatlas_datastore_operation_duration_seconds",
			Help:    "Time taken for datastore operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)
	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batatlas_datastore_operation_errors_total",
			Help: "Total number of datastore operation errors",
		},
		[]string{"operation", "error_type"},
	)
	m.rowsStreamedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batatlas_datastore_rows_streamed_total",
		Help: "Occurrence rows read through the streaming cursor",
	})
	m.rowsImportedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batatlas_datastore_rows_imported_total",
		Help: "Occurrence rows offered to the store during ingest",
	})
	m.importBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batatlas_datastore_import_batch_rows",
		Help:    "Rows per import batch",
		Buckets: prometheus.ExponentialBuckets(BucketStart100B, BucketFactor2, BucketCount20),
	})

	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.rowsStreamedTotal,
		m.rowsImportedTotal,
		m.importBatchSize,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder.
func (m *DatastoreMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *DatastoreMetrics) RecordDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.dbOperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *DatastoreMetrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.dbOperationErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// AddRowsStreamed adds n streamed rows.
func (m *DatastoreMetrics) AddRowsStreamed(n int64) {
	if m == nil {
		return
	}
	m.rowsStreamedTotal.Add(float64(n))
}

// RecordImportBatch counts one import batch of n rows.
func (m *DatastoreMetrics) RecordImportBatch(n int) {
	if m == nil {
		return
	}
	m.rowsImportedTotal.Add(float64(n))
	m.importBatchSize.Observe(float64(n))
}
