// Package conf loads, validates and persists batatlas configuration.
package conf

import "github.com/batatlas/batatlas/internal/logger"

// GetLogger returns the config package logger. It is fetched from the global
// logger on every call because configuration loads before the central
// logger exists.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
