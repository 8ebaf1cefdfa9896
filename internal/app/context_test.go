package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batatlas/batatlas/internal/buildinfo"
	"github.com/batatlas/batatlas/internal/conf"
	"github.com/batatlas/batatlas/internal/datastore"
	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/occurrence"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()

	dir := t.TempDir()
	return &conf.Settings{
		Pipeline: conf.PipelineSettings{
			CoarseLevel: 10, FineLevel: 12, MinYear: 1960, MaxYear: 2026,
			BlockWidth: 5, MinRecords: 10, Workers: 2, CellCache: true,
		},
		Datastore: conf.DatastoreSettings{
			Type:      datastore.TypeSQLite,
			BatchSize: 100,
			SQLite:    conf.SQLiteSettings{Path: filepath.Join(dir, "occ.db")},
		},
		Logging: logger.LoggingConfig{
			DefaultLevel: "info",
			Console:      &logger.ConsoleOutput{Enabled: false},
			FileOutput: &logger.FileOutput{
				Enabled: true,
				Path:    filepath.Join(dir, "logs", "batatlas.log"),
				Level:   "debug",
			},
		},
		Metrics: conf.MetricsSettings{TextFile: filepath.Join(dir, "batatlas.prom")},
	}
}

func TestContextEndToEnd(t *testing.T) {
	settings := testSettings(t)
	c, err := New(settings, &buildinfo.Context{Version: "test"})
	require.NoError(t, err)

	store, err := c.OpenStore()
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var rows []datastore.Occurrence
	for i := range 10 {
		rows = append(rows, datastore.Occurrence{
			GBIFID:           int64(i + 1),
			Species:          occurrence.Str("Myotis daubentonii"),
			EventDate:        occurrence.Str("2001-06-01"),
			DecimalLatitude:  occurrence.F64(51.5),
			DecimalLongitude: occurrence.F64(-0.12),
		})
	}
	_, err = store.ImportBatch(context.Background(), rows)
	require.NoError(t, err)

	p, err := c.NewPipeline(store)
	require.NoError(t, err)
	res, err := p.Bins(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "2000-2004", res.Rows[0].TimePeriod)
	assert.Equal(t, 1, res.Rows[0].SpeciesRichness)
	assert.InDelta(t, 0.0, res.Rows[0].ShannonH, 0)

	require.NoError(t, c.Close())

	prom, err := os.ReadFile(settings.Metrics.TextFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "batatlas_records_read_total 10")

	logData, err := os.ReadFile(settings.Logging.FileOutput.Path)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "bins run finished")
	assert.Contains(t, string(logData), res.RunID)
}

func TestContextDebugRaisesLevel(t *testing.T) {
	settings := testSettings(t)
	settings.Debug = true
	settings.Logging.Console = nil

	c, err := New(settings, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, "debug", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.Equal(t, "debug", settings.Logging.Console.Level)
}

func TestCreateOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "bins.csv")
	w, err := CreateOutput(path, io.Discard)
	require.NoError(t, err)
	_, err = w.Write([]byte("x\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))

	stdout, err := CreateOutput("-", io.Discard)
	require.NoError(t, err)
	require.NoError(t, stdout.Close())
}

func TestCloseWithoutInit(t *testing.T) {
	var c *Context
	require.NoError(t, c.Close())
	require.NoError(t, (&Context{}).Close())
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := &sentry.Event{
		Message:    "[database] connect postgres://atlas:hunter2@db/atlas: refused",
		ServerName: "field-laptop",
		User:       sentry.User{ID: "42"},
		Tags:       map[string]string{"hostname": "field-laptop", "component": "datastore"},
		Contexts:   map[string]sentry.Context{"os": {"name": "linux"}},
		Exception:  []sentry.Exception{{Type: "Datastore Database Error", Value: "atlas:hunter2@tcp(db:3306)/atlas"}},
	}

	got := applyPrivacyFilters(event, nil)
	require.NotNil(t, got)
	assert.Empty(t, got.ServerName)
	assert.True(t, got.User.IsEmpty())
	assert.NotContains(t, got.Tags, "hostname")
	assert.Equal(t, "datastore", got.Tags["component"])
	assert.NotContains(t, got.Contexts, "os")
	assert.NotContains(t, got.Message, "hunter2")
	assert.NotContains(t, got.Exception[0].Value, "hunter2")
}
