package observability

import "github.com/batatlas/batatlas/internal/logger"

var log = logger.Global().Module("metrics")
