package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batatlas/batatlas/internal/logger"
)

func validSettings() *Settings {
	s := &Settings{
		Pipeline: PipelineSettings{
			CoarseLevel: 10,
			FineLevel:   12,
			MinYear:     1960,
			MaxYear:     2026,
			BlockWidth:  5,
			MinRecords:  10,
		},
		Datastore: DatastoreSettings{
			Type:      "sqlite",
			BatchSize: 1000,
			SQLite:    SQLiteSettings{Path: "occurrences.db"},
		},
		Logging: logger.LoggingConfig{DefaultLevel: "info"},
	}
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(*Settings) {}},
		{
			name:    "coarse level above 30",
			mutate:  func(s *Settings) { s.Pipeline.CoarseLevel = 31; s.Pipeline.FineLevel = 31 },
			wantErr: "pipeline.coarselevel must be at most 30",
		},
		{
			name:    "max year before min year",
			mutate:  func(s *Settings) { s.Pipeline.MaxYear = 1950 },
			wantErr: "pipeline.maxyear must be >= minyear",
		},
		{
			name:    "zero threshold",
			mutate:  func(s *Settings) { s.Pipeline.MinRecords = 0 },
			wantErr: "pipeline.minrecords must be at least 1",
		},
		{
			name:    "unknown datastore",
			mutate:  func(s *Settings) { s.Datastore.Type = "oracle" },
			wantErr: "datastore.type must be one of [sqlite mysql postgres]",
		},
		{
			name:    "mysql without host",
			mutate:  func(s *Settings) { s.Datastore.Type = "mysql" },
			wantErr: "datastore.mysql requires host, username and database",
		},
		{
			name: "postgres complete",
			mutate: func(s *Settings) {
				s.Datastore.Type = "postgres"
				s.Datastore.Postgres = PostgresSettings{Host: "pg", Username: "u", Database: "d", SSLMode: "disable"}
			},
		},
		{
			name:    "bad module level",
			mutate:  func(s *Settings) { s.Logging.ModuleLevels = map[string]string{"report": "loud"} },
			wantErr: `logging.module_levels.report="loud"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvCellLevel("12"))
	assert.Error(t, validateEnvCellLevel("31"))
	assert.Error(t, validateEnvCellLevel("ten"))
	assert.NoError(t, validateEnvDatastoreType("postgres"))
	assert.Error(t, validateEnvDatastoreType("oracle"))
	assert.NoError(t, validateEnvBool("true"))
	assert.Error(t, validateEnvBool("maybe"))
}
