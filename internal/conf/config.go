package conf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/batatlas/batatlas/internal/errors"
	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/secrets"
)

// PipelineSettings controls cell levels, year window, block width and the
// low-sample threshold of the metrics pipeline.
type PipelineSettings struct {
	CoarseLevel int  `yaml:"coarselevel" validate:"min=0,max=30"`                   // S2 level used for aggregation (10 ≈ 80 km²)
	FineLevel   int  `yaml:"finelevel" validate:"min=0,max=30,gtefield=CoarseLevel"` // S2 level used for point export (12 ≈ 5 km²)
	MinYear     int  `yaml:"minyear"`                                               // inclusive
	MaxYear     int  `yaml:"maxyear" validate:"gtefield=MinYear"`                   // inclusive
	BlockWidth  int  `yaml:"blockwidth" validate:"min=1"`                           // years per temporal block
	MinRecords  int  `yaml:"minrecords" validate:"min=1"`                           // bins below this total are suppressed
	Workers     int  `yaml:"workers" validate:"min=0"`                              // 0 uses GOMAXPROCS
	CellCache   bool `yaml:"cellcache"`                                             // memoize cell ids per coordinate
}

// SQLiteSettings configures the SQLite occurrence store.
type SQLiteSettings struct {
	Path string `yaml:"path"`
}

// MySQLSettings configures the MySQL occurrence store.
type MySQLSettings struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`     // may reference ${ENV_VAR}
	PasswordFile string `yaml:"passwordfile"` // read the password from this file instead
	Database     string `yaml:"database"`
}

// PostgresSettings configures the PostgreSQL occurrence store.
type PostgresSettings struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"passwordfile"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
}

// DatastoreSettings selects and configures the occurrence store.
type DatastoreSettings struct {
	Type      string           `yaml:"type" validate:"oneof=sqlite mysql postgres"`
	BatchSize int              `yaml:"batchsize" validate:"min=1"` // rows per INSERT during ingest
	SQLite    SQLiteSettings   `yaml:"sqlite"`
	MySQL     MySQLSettings    `yaml:"mysql"`
	Postgres  PostgresSettings `yaml:"postgres"`
}

// MetricsSettings configures the Prometheus textfile output.
type MetricsSettings struct {
	TextFile string `yaml:"textfile"` // empty disables
}

// TelemetrySettings configures optional error reporting.
type TelemetrySettings struct {
	Sentry struct {
		DSN string `yaml:"dsn"`
	} `yaml:"sentry"`
}

// Settings contains all configuration options.
type Settings struct {
	Debug     bool                 `yaml:"debug"`
	Pipeline  PipelineSettings     `yaml:"pipeline"`
	Datastore DatastoreSettings    `yaml:"datastore"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	Metrics   MetricsSettings      `yaml:"metrics"`
	Telemetry TelemetrySettings    `yaml:"telemetry"`

	// unresolved holds credential fields as configured, before password
	// files are read and ${ENV} references expanded.
	unresolved *credentials
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration from configFile, or from the default search
// paths when configFile is empty, applies environment overrides and
// validates the result. A missing config file is not an error; defaults
// apply.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryValidation).
			Context("operation", "validate-config").
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-environment").
			Build()
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Context("config_file", configFile).
			Build()
	}

	GetLogger().Debug("config file loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// GetSettings returns the settings from the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the directories searched for config.yaml:
// the working directory, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", "batatlas"),
	}, nil
}

// Redacted returns a copy of s with database passwords and the telemetry
// DSN masked, suitable for printing.
func (s *Settings) Redacted() *Settings {
	const mask = "[REDACTED]"
	c := *s
	if c.Datastore.MySQL.Password != "" {
		c.Datastore.MySQL.Password = mask
	}
	if c.Datastore.Postgres.Password != "" {
		c.Datastore.Postgres.Password = mask
	}
	if c.Telemetry.Sentry.DSN != "" {
		c.Telemetry.Sentry.DSN = mask
	}
	return &c
}

// WriteYAML encodes settings as YAML to w.
func WriteYAML(w io.Writer, settings *Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("error encoding settings to YAML: %w", err)
	}
	return enc.Close()
}

// SaveYAMLConfig writes settings to configPath. The file is written to a
// temporary sibling first and renamed into place.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	dir := filepath.Dir(configPath)
	const dirPermissions = 0o755
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-config-dir").
			Build()
	}

	tempFile, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "rename-config").
			Context("path", configPath).
			Context("bytes", len(yamlData)).
			Build()
	}

	return nil
}

// resolveSecrets replaces credential fields with their resolved values:
// the password file when set, otherwise the value with ${ENV} references
// expanded.
func resolveSecrets(s *Settings) error {
	s.unresolved = &credentials{
		mysqlPassword:    s.Datastore.MySQL.Password,
		postgresPassword: s.Datastore.Postgres.Password,
		sentryDSN:        s.Telemetry.Sentry.DSN,
	}

	fields := []struct {
		name  string
		file  string
		value *string
	}{
		{"datastore.mysql.password", s.Datastore.MySQL.PasswordFile, &s.Datastore.MySQL.Password},
		{"datastore.postgres.password", s.Datastore.Postgres.PasswordFile, &s.Datastore.Postgres.Password},
		{"telemetry.sentry.dsn", "", &s.Telemetry.Sentry.DSN},
	}
	for _, f := range fields {
		resolved, err := secrets.Resolve(f.file, *f.value)
		if err != nil {
			return errors.New(err).
				Category(errors.CategoryConfiguration).
				Context("setting", f.name).
				Build()
		}
		*f.value = resolved
	}
	return nil
}

type credentials struct {
	mysqlPassword    string
	postgresPassword string
	sentryDSN        string
}

// Unresolved returns a copy of s with credential fields restored to their
// configured form: ${ENV} references unexpanded and passwords backed by a
// password file left as configured. Use it when persisting settings.
func (s *Settings) Unresolved() *Settings {
	c := *s
	if s.unresolved == nil {
		return &c
	}
	c.Datastore.MySQL.Password = s.unresolved.mysqlPassword
	c.Datastore.Postgres.Password = s.unresolved.postgresPassword
	c.Telemetry.Sentry.DSN = s.unresolved.sentryDSN
	return &c
}
