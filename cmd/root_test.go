package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batatlas/batatlas/internal/app"
	"github.com/batatlas/batatlas/internal/buildinfo"
	"github.com/batatlas/batatlas/internal/report"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	appCtx := &app.Context{Build: &buildinfo.Context{Version: "test"}}
	root := RootCommand(appCtx)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	require.NoError(t, appCtx.Close())
	return out.String(), err
}

func writeDownload(t *testing.T, dir string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("gbifID\tspecies\tspeciesKey\teventDate\tdecimalLatitude\tdecimalLongitude\toccurrenceRemarks\n")
	for i := range 6 {
		fmt.Fprintf(&b, "%d\tPipistrellus pipistrellus\t5218786\t1987-06-01\t51.5\t-0.12\t\n", i+1)
	}
	for i := range 4 {
		fmt.Fprintf(&b, "%d\tMyotis daubentonii\t2432439\t1988\t51.5\t-0.12\tBCT roost\n", i+11)
	}
	fmt.Fprintf(&b, "99\t\t\t1990\t51.5\t-0.12\tunder bridge\n")

	path := filepath.Join(dir, "occurrence.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestIngestThenBins(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "occ.db")
	download := writeDownload(t, dir)

	_, err := runCLI(t, "--datastore-path", db, "ingest", download)
	require.NoError(t, err)

	binsPath := filepath.Join(dir, "out", "bins.csv")
	_, err = runCLI(t, "--datastore-path", db, "bins", "--out", binsPath)
	require.NoError(t, err)

	f, err := os.Open(binsPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, report.Header, records[0])
	assert.Equal(t, "1985-1989", records[1][0])
	assert.Equal(t, "10", records[1][5])
	assert.Equal(t, "2", records[1][6])
	assert.Equal(t, "0.673", records[1][7])
	assert.Equal(t, "20.0", records[1][8])

	stdout, err := runCLI(t, "--datastore-path", db, "--min-records", "11", "bins", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", stdout)
}

func TestPointsAndRemarks(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "occ.db")
	_, err := runCLI(t, "--datastore-path", db, "ingest", writeDownload(t, dir))
	require.NoError(t, err)

	stdout, err := runCLI(t, "--datastore-path", db, "points")
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(stdout)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 12)
	last := rows[len(rows)-1]
	assert.Equal(t, "99", last[0])
	assert.Equal(t, "Unidentified Bat", last[1])
	assert.Equal(t, "under bridge", last[2])

	stdout, err = runCLI(t, "--datastore-path", db, "remarks", "--top", "2")
	require.NoError(t, err)
	assert.Equal(t, "count,remarks\n6,\n4,BCT roost\n", stdout)
}

func TestConfigCommandRedacts(t *testing.T) {
	t.Setenv("BATATLAS_DATASTORE_MYSQL_PASSWORD", "hunter2")

	stdout, err := runCLI(t, "--workers", "3", "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workers: 3")
	assert.Contains(t, stdout, "[REDACTED]")
	assert.NotContains(t, stdout, "hunter2")
}

func TestInvalidFlagValueFailsValidation(t *testing.T) {
	_, err := runCLI(t, "--datastore-type", "oracle", "config")
	require.Error(t, err)
}

func TestConfigWriteKeepsEnvReference(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath,
		[]byte("datastore:\n  mysql:\n    password: \"${BATATLAS_TEST_DB_PW}\"\n"), 0o600))
	t.Setenv("BATATLAS_TEST_DB_PW", "hunter2")

	out := filepath.Join(dir, "saved.yaml")
	_, err := runCLI(t, "--config", cfgPath, "config", "--write", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "${BATATLAS_TEST_DB_PW}")
	assert.NotContains(t, string(data), "hunter2")
}
