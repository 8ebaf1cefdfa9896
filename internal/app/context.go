// Package app holds the per-invocation state shared by CLI commands:
// settings, logging, metrics and optional error telemetry.
package app

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/batatlas/batatlas/internal/buildinfo"
	"github.com/batatlas/batatlas/internal/conf"
	"github.com/batatlas/batatlas/internal/datastore"
	"github.com/batatlas/batatlas/internal/errors"
	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/observability"
	"github.com/batatlas/batatlas/internal/pipeline"
	"github.com/batatlas/batatlas/internal/privacy"
)

// sentryFlushTimeout bounds how long Close waits for queued events.
const sentryFlushTimeout = 2 * time.Second

// Context is created once settings are loaded and closed when the command
// returns.
type Context struct {
	Settings  *conf.Settings
	Build     *buildinfo.Context
	Metrics   *observability.Metrics
	Log       *logger.CentralLogger
	telemetry bool
}

// New initializes logging, metrics and telemetry for settings.
func New(settings *conf.Settings, build *buildinfo.Context) (*Context, error) {
	c := &Context{Build: build}
	if err := c.Init(settings); err != nil {
		return nil, err
	}
	return c, nil
}

// Init initializes an empty Context. Commands construct the Context before
// flags are parsed and call Init once settings are loaded.
func (c *Context) Init(settings *conf.Settings) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return err
	}
	logger.SetGlobal(central)

	m, err := observability.NewMetrics()
	if err != nil {
		_ = central.Close()
		return err
	}

	c.Settings = settings
	c.Metrics = m
	c.Log = central

	if dsn := settings.Telemetry.Sentry.DSN; dsn != "" {
		if err := c.initTelemetry(dsn); err != nil {
			central.Module("telemetry").Warn("error reporting disabled", logger.Error(err))
		}
	}
	return nil
}

func (c *Context) initTelemetry(dsn string) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          c.Build.Release(),
		BeforeSend:       applyPrivacyFilters,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	c.telemetry = true
	return nil
}

// OpenStore opens the configured occurrence store with metrics attached.
func (c *Context) OpenStore() (*datastore.Store, error) {
	return datastore.Open(&c.Settings.Datastore,
		datastore.WithLogger(c.Log.Module("datastore")),
		datastore.WithMetrics(c.Metrics.Datastore))
}

// NewPipeline builds a pipeline over src from the pipeline settings.
func (c *Context) NewPipeline(src pipeline.Source) (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.ConfigFromSettings(&c.Settings.Pipeline), src,
		pipeline.WithLogger(c.Log.Module("pipeline")),
		pipeline.WithMetrics(c.Metrics.Pipeline))
}

// Close writes the metrics textfile, flushes telemetry and closes the log
// file.
func (c *Context) Close() error {
	if c == nil || c.Settings == nil {
		return nil
	}
	var errs []error
	if err := c.Metrics.WriteTextfile(c.Settings.Metrics.TextFile); err != nil {
		errs = append(errs, err)
	}
	if c.telemetry {
		sentry.Flush(sentryFlushTimeout)
		errors.SetTelemetryReporter(nil)
	}
	if err := c.Log.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// applyPrivacyFilters strips host identity from Sentry events and scrubs
// credentials from the message and exception values.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	return event
}
