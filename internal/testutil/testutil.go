// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/batatlas/batatlas/internal/logger"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout bounds a single pipeline or datastore run.
	DefaultTestTimeout = 10 * time.Second

	// ShortTestTimeout is for operations expected to complete quickly.
	ShortTestTimeout = 1 * time.Second

	// LongTestTimeout is for container-backed integration tests.
	LongTestTimeout = 2 * time.Minute
)

// QuietLogger returns a logger that only emits errors, to io.Discard.
func QuietLogger() logger.Logger {
	return logger.NewSlogLogger(nil, logger.LogLevelError, nil)
}

// Context returns a context cancelled after timeout or at test cleanup.
func Context(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// WaitForChannel waits for a signal on the channel or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}
