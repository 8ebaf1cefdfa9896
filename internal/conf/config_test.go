package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batatlas/batatlas/internal/errors"
)

// writeConfig writes content to a config.yaml in a temp dir and resets
// viper so each test starts from defaults.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "debug: false\n")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, settings.Pipeline.CoarseLevel)
	assert.Equal(t, 12, settings.Pipeline.FineLevel)
	assert.Equal(t, 1960, settings.Pipeline.MinYear)
	assert.Equal(t, 2026, settings.Pipeline.MaxYear)
	assert.Equal(t, 5, settings.Pipeline.BlockWidth)
	assert.Equal(t, 10, settings.Pipeline.MinRecords)
	assert.Equal(t, 0, settings.Pipeline.Workers)
	assert.True(t, settings.Pipeline.CellCache)

	assert.Equal(t, "sqlite", settings.Datastore.Type)
	assert.Equal(t, "occurrences.db", settings.Datastore.SQLite.Path)
	assert.Equal(t, 1000, settings.Datastore.BatchSize)

	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)

	assert.Same(t, settings, GetSettings())
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  minrecords: 20
  coarselevel: 8
datastore:
  type: mysql
  mysql:
    host: db.internal
    username: atlas
    password: hunter2
logging:
  module_levels:
    datastore: trace
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, settings.Pipeline.MinRecords)
	assert.Equal(t, 8, settings.Pipeline.CoarseLevel)
	assert.Equal(t, 12, settings.Pipeline.FineLevel, "unset keys keep defaults")
	assert.Equal(t, "mysql", settings.Datastore.Type)
	assert.Equal(t, "db.internal", settings.Datastore.MySQL.Host)
	assert.Equal(t, "3306", settings.Datastore.MySQL.Port)
	assert.Equal(t, "trace", settings.Logging.ModuleLevels["datastore"])
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  minrecords: 20\n")
	t.Setenv("BATATLAS_PIPELINE_MINRECORDS", "25")
	t.Setenv("BATATLAS_METRICS_TEXTFILE", "/tmp/batatlas.prom")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, settings.Pipeline.MinRecords)
	assert.Equal(t, "/tmp/batatlas.prom", settings.Metrics.TextFile)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("BATATLAS_PIPELINE_COARSELEVEL", "31")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATATLAS_PIPELINE_COARSELEVEL")
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  finelevel: 6\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors, "pipeline.finelevel must be >= coarselevel")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	s := &Settings{}
	s.Datastore.MySQL.Password = "hunter2"
	s.Telemetry.Sentry.DSN = "https://key@sentry.example/1"

	r := s.Redacted()
	assert.Equal(t, "[REDACTED]", r.Datastore.MySQL.Password)
	assert.Equal(t, "[REDACTED]", r.Telemetry.Sentry.DSN)
	assert.Empty(t, r.Datastore.Postgres.Password)
	assert.Equal(t, "hunter2", s.Datastore.MySQL.Password, "original must be untouched")
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	path := writeConfig(t, "")
	settings, err := Load(path)
	require.NoError(t, err)

	settings.Pipeline.MinRecords = 15
	out := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveYAMLConfig(out, settings))

	viper.Reset()
	reloaded, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, 15, reloaded.Pipeline.MinRecords)
	assert.Equal(t, settings.Datastore, reloaded.Datastore)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := &Settings{}
	s.Pipeline.CoarseLevel = 10
	require.NoError(t, WriteYAML(&buf, s))
	assert.Contains(t, buf.String(), "coarselevel: 10")
}

func TestLoadResolvesSecrets(t *testing.T) {
	pwFile := filepath.Join(t.TempDir(), "pg_password")
	require.NoError(t, os.WriteFile(pwFile, []byte("from-file\n"), 0o600))

	path := writeConfig(t, "datastore:\n  mysql:\n    password: \"${BATATLAS_TEST_MYSQL_PW}\"\n")
	t.Setenv("BATATLAS_TEST_MYSQL_PW", "from-env")
	t.Setenv("BATATLAS_DATASTORE_POSTGRES_PASSWORDFILE", pwFile)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", settings.Datastore.MySQL.Password)
	assert.Equal(t, "from-file", settings.Datastore.Postgres.Password)
}

func TestLoadMissingPasswordFile(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("BATATLAS_DATASTORE_MYSQL_PASSWORDFILE", filepath.Join(t.TempDir(), "absent"))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSaveYAMLConfigKeepsSecretReferences(t *testing.T) {
	pwFile := filepath.Join(t.TempDir(), "pg_password")
	require.NoError(t, os.WriteFile(pwFile, []byte("pg-secret\n"), 0o600))

	path := writeConfig(t, "datastore:\n  mysql:\n    password: \"${BATATLAS_TEST_MYSQL_PW}\"\n")
	t.Setenv("BATATLAS_TEST_MYSQL_PW", "from-env")
	t.Setenv("BATATLAS_DATASTORE_POSTGRES_PASSWORDFILE", pwFile)

	settings, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", settings.Datastore.MySQL.Password)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, SaveYAMLConfig(out, settings.Unresolved()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "${BATATLAS_TEST_MYSQL_PW}")
	assert.Contains(t, string(data), pwFile)
	assert.NotContains(t, string(data), "from-env")
	assert.NotContains(t, string(data), "pg-secret")

	assert.Equal(t, "from-env", settings.Datastore.MySQL.Password, "original must keep resolved values")
}

func TestUnresolvedWithoutLoad(t *testing.T) {
	s := &Settings{}
	s.Datastore.MySQL.Password = "plain"
	assert.Equal(t, "plain", s.Unresolved().Datastore.MySQL.Password)
}

func TestSaveYAMLConfigRenameFailure(t *testing.T) {
	target := t.TempDir()
	// Renaming a file onto a non-empty directory fails.
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep"), nil, 0o600))

	err := SaveYAMLConfig(target, &Settings{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
