// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment variable, e.g.
// BATATLAS_PIPELINE_MINRECORDS.
const envPrefix = "BATATLAS"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly validated environment bindings.
// Other keys are still reachable through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "BATATLAS_DEBUG", validateEnvBool},

		{"pipeline.coarselevel", "BATATLAS_PIPELINE_COARSELEVEL", validateEnvCellLevel},
		{"pipeline.finelevel", "BATATLAS_PIPELINE_FINELEVEL", validateEnvCellLevel},
		{"pipeline.minyear", "BATATLAS_PIPELINE_MINYEAR", validateEnvYear},
		{"pipeline.maxyear", "BATATLAS_PIPELINE_MAXYEAR", validateEnvYear},
		{"pipeline.minrecords", "BATATLAS_PIPELINE_MINRECORDS", validateEnvPositiveInt},
		{"pipeline.workers", "BATATLAS_PIPELINE_WORKERS", validateEnvNonNegativeInt},

		{"datastore.type", "BATATLAS_DATASTORE_TYPE", validateEnvDatastoreType},
		{"datastore.sqlite.path", "BATATLAS_DATASTORE_SQLITE_PATH", nil},
		{"datastore.mysql.password", "BATATLAS_DATASTORE_MYSQL_PASSWORD", nil},
		{"datastore.postgres.password", "BATATLAS_DATASTORE_POSTGRES_PASSWORD", nil},
		{"datastore.mysql.passwordfile", "BATATLAS_DATASTORE_MYSQL_PASSWORDFILE", nil},
		{"datastore.postgres.passwordfile", "BATATLAS_DATASTORE_POSTGRES_PASSWORDFILE", nil},

		{"telemetry.sentry.dsn", "BATATLAS_TELEMETRY_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvIntRange(value string, lo, hi int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < lo || n > hi {
		return fmt.Errorf("must be between %d and %d", lo, hi)
	}
	return nil
}

func validateEnvCellLevel(value string) error {
	return validateEnvIntRange(value, 0, 30)
}

func validateEnvYear(value string) error {
	return validateEnvIntRange(value, 1, 9999)
}

func validateEnvPositiveInt(value string) error {
	return validateEnvIntRange(value, 1, 1<<31-1)
}

func validateEnvNonNegativeInt(value string) error {
	return validateEnvIntRange(value, 0, 1<<31-1)
}

func validateEnvDatastoreType(value string) error {
	if !slices.Contains(supportedDatastores, value) {
		return fmt.Errorf("must be one of %s", strings.Join(supportedDatastores, ", "))
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return bindEnvVars()
}
