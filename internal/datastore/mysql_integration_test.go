//go:build integration

package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/batatlas/batatlas/internal/conf"
	"github.com/batatlas/batatlas/internal/occurrence"
	"github.com/batatlas/batatlas/internal/testutil"
)

func TestMySQLStoreIntegration(t *testing.T) {
	ctx := testutil.Context(t, testutil.LongTestTimeout)

	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("batatlas"),
		tcmysql.WithUsername("bat"),
		tcmysql.WithPassword("bat-secret"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	store, err := Open(&conf.DatastoreSettings{
		Type:      TypeMySQL,
		BatchSize: 2,
		MySQL: conf.MySQLSettings{
			Host:     host,
			Port:     port.Port(),
			Username: "bat",
			Password: "bat-secret",
			Database: "batatlas",
		},
	}, WithLogger(testutil.QuietLogger()))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.ImportBatch(ctx, sampleRows())
	require.NoError(t, err)
	_, err = store.ImportBatch(ctx, sampleRows())
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	var species []string
	err = store.Stream(ctx, func(r occurrence.Record) error {
		if r.Species != nil {
			species = append(species, *r.Species)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Myotis daubentonii", "Pipistrellus pipistrellus"}, species)
}
