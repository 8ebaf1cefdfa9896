// Package pipeline wires the occurrence source, admission filter, spatial
// and temporal keying, aggregation and reporting into batch runs.
//
// A run streams every record once. Filtering, keying and per-worker
// aggregation happen on a bounded worker pool; metrics are computed after
// the source is exhausted.
package pipeline

import (
	"context"
	"runtime"

	"github.com/batatlas/batatlas/internal/conf"
	"github.com/batatlas/batatlas/internal/errors"
	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/observability/metrics"
	"github.com/batatlas/batatlas/internal/occurrence"
	"github.com/batatlas/batatlas/internal/report"
	"github.com/batatlas/batatlas/internal/spatial"
	"github.com/batatlas/batatlas/internal/temporal"
)

// Source streams occurrence records. datastore.Store implements it.
type Source interface {
	Stream(ctx context.Context, fn func(occurrence.Record) error) error
}

// Config holds the run parameters.
type Config struct {
	CoarseLevel int
	FineLevel   int
	Years       occurrence.YearWindow
	BlockWidth  int
	MinRecords  int
	Workers     int  // <= 0 uses GOMAXPROCS
	CellCache   bool // memoize cell ids per coordinate
}

// ConfigFromSettings maps pipeline settings to a Config.
func ConfigFromSettings(s *conf.PipelineSettings) Config {
	return Config{
		CoarseLevel: s.CoarseLevel,
		FineLevel:   s.FineLevel,
		Years:       occurrence.YearWindow{Min: s.MinYear, Max: s.MaxYear},
		BlockWidth:  s.BlockWidth,
		MinRecords:  s.MinRecords,
		Workers:     s.Workers,
		CellCache:   s.CellCache,
	}
}

// DefaultConfig returns the standard levels, window, width and threshold.
func DefaultConfig() Config {
	return Config{
		CoarseLevel: spatial.DefaultCoarseLevel,
		FineLevel:   spatial.DefaultFineLevel,
		Years:       occurrence.DefaultYearWindow,
		BlockWidth:  temporal.DefaultWidth,
		MinRecords:  report.DefaultMinRecords,
		CellCache:   true,
	}
}

// Pipeline runs batch jobs over a Source.
type Pipeline struct {
	cfg     Config
	src     Source
	indexer spatial.Indexer
	cache   *spatial.CachedIndexer
	binner  temporal.Binner
	log     logger.Logger
	metrics *metrics.PipelineMetrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is the global pipeline logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithIndexer replaces the S2 indexer.
func WithIndexer(ix spatial.Indexer) Option {
	return func(p *Pipeline) {
		if ix != nil {
			p.indexer = ix
		}
	}
}

// New validates cfg and returns a Pipeline reading from src.
func New(cfg Config, src Source, opts ...Option) (*Pipeline, error) {
	binner, err := temporal.NewBinner(cfg.BlockWidth)
	if err != nil {
		return nil, err
	}
	if cfg.CoarseLevel < 0 || cfg.CoarseLevel > spatial.MaxLevel ||
		cfg.FineLevel < 0 || cfg.FineLevel > spatial.MaxLevel {
		return nil, errors.Newf("cell levels must be within 0..%d", spatial.MaxLevel).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Context("coarse_level", cfg.CoarseLevel).
			Context("fine_level", cfg.FineLevel).
			Build()
	}
	if cfg.Years.Min > cfg.Years.Max {
		return nil, errors.Newf("year window %d..%d is empty", cfg.Years.Min, cfg.Years.Max).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	p := &Pipeline{
		cfg:     cfg,
		src:     src,
		indexer: spatial.NewS2Indexer(),
		binner:  binner,
		log:     logger.Global().Module("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.CellCache {
		p.cache = spatial.NewCachedIndexer(p.indexer)
		p.indexer = p.cache
	}
	return p, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// recordCache flushes cell cache counters to metrics and clears the cache
// so the next run starts cold.
func (p *Pipeline) recordCache() {
	if p.cache == nil {
		return
	}
	hits, misses := p.cache.Stats()
	p.metrics.AddCellCache(hits, misses)
	p.log.Debug("cell cache",
		logger.Int64("hits", hits),
		logger.Int64("misses", misses),
		logger.Int("entries", p.cache.Len()))
	p.cache.Purge()
}

// fail records err against op and returns it.
func (p *Pipeline) fail(log logger.Logger, op string, err error) error {
	category := string(errors.CategoryGeneric)
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		category = ee.GetCategory()
	}
	p.metrics.RecordOperation(op, metrics.StatusError)
	p.metrics.RecordError(op, category)
	log.Error("run failed", logger.String("operation", op), logger.Error(err))
	return err
}
