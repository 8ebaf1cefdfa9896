package datastore

import (
	"github.com/batatlas/batatlas/internal/logger"
)

// GetLogger returns the datastore module logger from the global logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
