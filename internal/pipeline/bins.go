package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/batatlas/batatlas/internal/aggregate"
	"github.com/batatlas/batatlas/internal/errors"
	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/observability/metrics"
	"github.com/batatlas/batatlas/internal/occurrence"
	"github.com/batatlas/batatlas/internal/report"
)

// batchSize is the number of records handed to a worker at once.
const batchSize = 512

// BinsResult is the outcome of a metrics run.
type BinsResult struct {
	RunID      string
	Rows       []report.Row
	Summary    report.Summary
	Read       int64
	Admitted   int64
	Rejections map[occurrence.Reason]int64
	Elapsed    time.Duration
}

// Bins streams every record, aggregates the admitted ones per cell and
// time block, and returns the emitted rows in output order.
func (p *Pipeline) Bins(ctx context.Context) (*BinsResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithTraceID(ctx, runID)
	log := p.log.WithContext(ctx)
	defer p.recordCache()

	log.Info("bins run started",
		logger.Int("coarse_level", p.cfg.CoarseLevel),
		logger.Int("block_width", p.cfg.BlockWidth),
		logger.Int("min_year", p.cfg.Years.Min),
		logger.Int("max_year", p.cfg.Years.Max),
		logger.Int("min_records", p.cfg.MinRecords),
		logger.Int("workers", p.cfg.Workers))

	stageStart := time.Now()
	partial, read, stats, err := p.aggregate(ctx)
	if err != nil {
		return nil, p.fail(log, metrics.OpAggregate, err)
	}
	p.metrics.RecordDuration(metrics.OpAggregate, time.Since(stageStart).Seconds())
	p.metrics.RecordOperation(metrics.OpAggregate, metrics.StatusSuccess)

	admitted := read - stats.Total()
	p.metrics.AddRecordsRead(read)
	p.metrics.AddRecordsAdmitted(admitted)
	rejections := stats.Snapshot()
	for reason, n := range rejections {
		p.metrics.AddRejections(string(reason), n)
	}

	stageStart = time.Now()
	rows, summary, err := report.Build(partial.Result(), report.Options{
		MinRecords: p.cfg.MinRecords,
		Binner:     p.binner,
	})
	if err != nil {
		return nil, p.fail(log, metrics.OpReport, err)
	}
	p.metrics.RecordDuration(metrics.OpReport, time.Since(stageStart).Seconds())
	p.metrics.RecordOperation(metrics.OpReport, metrics.StatusSuccess)
	p.metrics.AddBins(summary.Emitted, summary.Suppressed)

	res := &BinsResult{
		RunID:      runID,
		Rows:       rows,
		Summary:    summary,
		Read:       read,
		Admitted:   admitted,
		Rejections: rejections,
		Elapsed:    time.Since(start),
	}

	log.Info("bins run finished",
		logger.Int64("read", read),
		logger.Int64("admitted", admitted),
		logger.Int64("rejected", stats.Total()),
		logger.Int("bins", summary.Bins),
		logger.Int("emitted", summary.Emitted),
		logger.Int("suppressed", summary.Suppressed),
		logger.Duration("elapsed", res.Elapsed))
	for _, reason := range occurrence.Reasons {
		if n := rejections[reason]; n > 0 {
			log.Debug("rejections", logger.String("reason", string(reason)), logger.Int64("count", n))
		}
	}
	return res, nil
}

// aggregate reads the source on one goroutine and fans batches out to the
// worker pool. Each worker filters, keys and aggregates into its own
// Partial; the partials are merged once all workers finish.
func (p *Pipeline) aggregate(ctx context.Context) (*aggregate.Partial, int64, *occurrence.RejectionStats, error) {
	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan []occurrence.Record, p.cfg.Workers)
	stats := occurrence.NewRejectionStats()
	var read int64

	g.Go(func() error {
		defer close(batches)
		batch := make([]occurrence.Record, 0, batchSize)
		send := func() error {
			select {
			case batches <- batch:
				batch = make([]occurrence.Record, 0, batchSize)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := p.src.Stream(ctx, func(r occurrence.Record) error {
			read++
			batch = append(batch, r)
			if len(batch) == batchSize {
				return send()
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			return send()
		}
		return nil
	})

	partials := make([]*aggregate.Partial, p.cfg.Workers)
	for w := range p.cfg.Workers {
		partials[w] = aggregate.NewPartial()
		g.Go(func() error {
			return p.work(ctx, batches, partials[w], stats)
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, nil, errors.New(err).
				Component("pipeline").
				Category(errors.CategoryCancellation).
				Build()
		}
		return nil, 0, nil, err
	}

	merged := aggregate.NewPartial()
	for _, part := range partials {
		merged.Merge(part)
	}
	return merged, read, stats, nil
}

func (p *Pipeline) work(ctx context.Context, batches <-chan []occurrence.Record, part *aggregate.Partial, stats *occurrence.RejectionStats) error {
	filter := occurrence.MetricsFilter{Years: p.cfg.Years}
	local := occurrence.NewRejectionStats()
	defer stats.Merge(local)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			for _, r := range batch {
				f, reason := filter.Admit(r)
				if reason != occurrence.Admitted {
					local.Record(reason)
					continue
				}
				cell, err := p.indexer.CellID(f.Latitude, f.Longitude, p.cfg.CoarseLevel)
				if err != nil {
					return errors.New(err).
						Component("pipeline").
						Category(errors.CategoryProcessing).
						Context("gbif_id", r.GBIFID).
						Build()
				}
				part.Add(aggregate.KeyedRecord{
					Key:       aggregate.Key{CellID: cell, BlockStart: p.binner.BlockStart(f.Year)},
					Species:   f.Species,
					Latitude:  f.Latitude,
					Longitude: f.Longitude,
				})
			}
		}
	}
}
