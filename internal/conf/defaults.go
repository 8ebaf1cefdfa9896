// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/batatlas/batatlas/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("pipeline.coarselevel", 10)
	viper.SetDefault("pipeline.finelevel", 12)
	viper.SetDefault("pipeline.minyear", 1960)
	viper.SetDefault("pipeline.maxyear", 2026)
	viper.SetDefault("pipeline.blockwidth", 5)
	viper.SetDefault("pipeline.minrecords", 10)
	viper.SetDefault("pipeline.workers", 0)
	viper.SetDefault("pipeline.cellcache", true)

	viper.SetDefault("datastore.type", "sqlite")
	viper.SetDefault("datastore.batchsize", 1000)
	viper.SetDefault("datastore.sqlite.path", "occurrences.db")
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", "3306")
	viper.SetDefault("datastore.mysql.database", "batatlas")
	viper.SetDefault("datastore.mysql.passwordfile", "")
	viper.SetDefault("datastore.postgres.host", "localhost")
	viper.SetDefault("datastore.postgres.port", "5432")
	viper.SetDefault("datastore.postgres.database", "batatlas")
	viper.SetDefault("datastore.postgres.sslmode", "disable")
	viper.SetDefault("datastore.postgres.passwordfile", "")

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("telemetry.sentry.dsn", "")
}
