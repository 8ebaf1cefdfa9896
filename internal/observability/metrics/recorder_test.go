package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Recorder = (*PipelineMetrics)(nil)
	_ Recorder = (*DatastoreMetrics)(nil)
	_ Recorder = NoOpRecorder{}
)

func TestPipelineMetricsCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	m.AddRecordsRead(120)
	m.AddRecordsAdmitted(100)
	m.AddRejections("unidentified", 15)
	m.AddRejections("missing_coordinates", 5)
	m.AddBins(7, 3)
	m.AddCellCache(90, 10)

	assert.InDelta(t, 120, testutil.ToFloat64(m.recordsRead), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(m.recordsAdmitted), 0)
	assert.InDelta(t, 15, testutil.ToFloat64(m.recordsRejected.WithLabelValues("unidentified")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.bins.WithLabelValues(OutcomeEmitted)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.bins.WithLabelValues(OutcomeSuppressed)), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(m.cellCache.WithLabelValues(CacheMiss)), 0)
}

func TestPipelineMetricsRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	var r Recorder = m
	r.RecordOperation(OpAggregate, StatusSuccess)
	r.RecordOperation(OpAggregate, StatusSuccess)
	r.RecordError(OpReport, "invariant")
	r.RecordDuration(OpAggregate, 0.25)

	assert.InDelta(t, 2, testutil.ToFloat64(m.operations.WithLabelValues(OpAggregate, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errors.WithLabelValues(OpReport, "invariant")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration, "batatlas_stage_duration_seconds"))
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.AddRecordsRead(1)
		m.AddRecordsAdmitted(1)
		m.AddRejections("x", 1)
		m.AddBins(1, 1)
		m.AddCellCache(1, 1)
		m.RecordOperation("x", StatusSuccess)
		m.RecordDuration("x", 1)
		m.RecordError("x", "y")
	})
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(reg)
	require.NoError(t, err)
	_, err = NewPipelineMetrics(reg)
	require.Error(t, err)
}

func TestDatastoreMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewDatastoreMetrics(reg)
	require.NoError(t, err)

	m.RecordOperation(OpStream, StatusSuccess)
	m.RecordError(OpImport, "database")
	m.AddRowsStreamed(42)
	m.RecordImportBatch(500)
	m.RecordImportBatch(20)

	expected := `
# HELP batatlas_datastore_rows_imported_total Occurrence rows offered to the store during ingest
# TYPE batatlas_datastore_rows_imported_total counter
batatlas_datastore_rows_imported_total 520
`
	require.NoError(t, testutil.CollectAndCompare(m.rowsImportedTotal, strings.NewReader(expected)))
	assert.InDelta(t, 42, testutil.ToFloat64(m.rowsStreamedTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues(OpStream, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationErrorsTotal.WithLabelValues(OpImport, "database")), 0)
}
