// Package datastore reads and writes GBIF occurrence rows through GORM.
// SQLite, MySQL and PostgreSQL are supported.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/batatlas/batatlas/internal/conf"
	"github.com/batatlas/batatlas/internal/errors"
	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/observability/metrics"
	"github.com/batatlas/batatlas/internal/occurrence"
	"github.com/batatlas/batatlas/internal/privacy"
)

const (
	// DefaultSlowQueryThreshold is the duration after which GORM logs a
	// statement as slow.
	DefaultSlowQueryThreshold = 1 * time.Second

	// DefaultBatchSize is used when settings carry no batch size.
	DefaultBatchSize = 1000
)

// Store is an occurrence store backed by a GORM connection.
type Store struct {
	db        *gorm.DB
	dbType    string
	batchSize int
	log       logger.Logger
	metrics   *metrics.DatastoreMetrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is the global datastore logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches datastore metrics.
func WithMetrics(m *metrics.DatastoreMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Open connects to the configured store and migrates the occurrences table.
func Open(settings *conf.DatastoreSettings, opts ...Option) (*Store, error) {
	s := &Store{
		dbType:    settings.Type,
		batchSize: settings.BatchSize,
		log:       GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dbType == "" {
		s.dbType = TypeSQLite
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}

	dial, target, err := dialector(settings)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(s.log.Module("gorm"), DefaultSlowQueryThreshold),
	})
	if err != nil {
		err = privacy.WrapError(err)
		s.log.Error("failed to open database",
			logger.String("db_type", s.dbType),
			logger.String("target", target),
			logger.Error(err))
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", s.dbType).
			Context("target", target).
			Build()
	}
	s.db = db

	if err := s.migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.log.Info("datastore opened",
		logger.String("db_type", s.dbType),
		logger.String("target", target),
		logger.Duration("elapsed", time.Since(start)))
	return s, nil
}

func (s *Store) migrate() error {
	start := time.Now()
	err := s.db.AutoMigrate(&Occurrence{})
	s.observe(metrics.OpMigrate, start, err)
	if err != nil {
		return s.dbError(context.Background(), metrics.OpMigrate, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Type returns the datastore type (sqlite, mysql or postgres).
func (s *Store) Type() string {
	return s.dbType
}

// Stream reads every occurrence ordered by gbif_id and passes it to fn.
// Rows are scanned one at a time through a cursor. An error returned by fn
// stops the stream and is returned unchanged. Read failures are fatal and
// not retried.
func (s *Store) Stream(ctx context.Context, fn func(occurrence.Record) error) error {
	start := time.Now()
	var streamed int64
	defer func() { s.metrics.AddRowsStreamed(streamed) }()

	rows, err := s.db.WithContext(ctx).Model(&Occurrence{}).Order("gbif_id").Rows()
	if err != nil {
		s.observe(metrics.OpStream, start, err)
		return s.dbError(ctx, metrics.OpStream, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var row Occurrence
		if err := s.db.ScanRows(rows, &row); err != nil {
			s.observe(metrics.OpStream, start, err)
			return s.dbError(ctx, metrics.OpStream, err)
		}
		streamed++
		if err := fn(row.Record()); err != nil {
			return err
		}
	}
	err = rows.Err()
	s.observe(metrics.OpStream, start, err)
	if err != nil {
		return s.dbError(ctx, metrics.OpStream, err)
	}

	s.log.Debug("stream finished",
		logger.Int64("rows", streamed),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// ImportBatch inserts rows in chunks of the configured batch size. Rows whose
// gbif_id already exists are skipped, so re-importing a download is
// harmless. It returns the number of rows the database reports as inserted.
func (s *Store) ImportBatch(ctx context.Context, rows []Occurrence) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	start := time.Now()
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gbif_id"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, s.batchSize)
	s.observe(metrics.OpImport, start, res.Error)
	if res.Error != nil {
		return 0, s.dbError(ctx, metrics.OpImport, res.Error)
	}
	s.metrics.RecordImportBatch(len(rows))
	return res.RowsAffected, nil
}

// Count returns the number of stored occurrences.
func (s *Store) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var n int64
	err := s.db.WithContext(ctx).Model(&Occurrence{}).Count(&n).Error
	s.observe(metrics.OpCount, start, err)
	if err != nil {
		return 0, s.dbError(ctx, metrics.OpCount, err)
	}
	return n, nil
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.metrics.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordOperation(op, metrics.StatusError)
		return
	}
	s.metrics.RecordOperation(op, metrics.StatusSuccess)
}

// dbError wraps err as a database error, or as a cancellation when ctx is
// done.
func (s *Store) dbError(ctx context.Context, op string, err error) error {
	category := errors.CategoryDatabase
	if ctx.Err() != nil {
		category = errors.CategoryCancellation
	}
	s.metrics.RecordError(op, string(category))
	return errors.New(privacy.WrapError(err)).
		Component("datastore").
		Category(category).
		Context("operation", op).
		Context("db_type", s.dbType).
		Build()
}
