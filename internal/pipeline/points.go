package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/observability/metrics"
	"github.com/batatlas/batatlas/internal/occurrence"
	"github.com/batatlas/batatlas/internal/pointexport"
)

// PointSink receives exported points in source order.
type PointSink interface {
	Write(row pointexport.Row) error
}

// PointsResult summarizes a point export.
type PointsResult struct {
	RunID      string
	Read       int64
	Exported   int64
	Rejections map[occurrence.Reason]int64
	Elapsed    time.Duration
}

// Points streams every record admitted by the point filter to sink, keyed
// at the fine cell level. Points are written in source order, so this runs
// on the reading goroutine.
func (p *Pipeline) Points(ctx context.Context, sink PointSink) (*PointsResult, error) {
	start := time.Now()
	res := &PointsResult{RunID: uuid.NewString()}
	ctx = logger.WithTraceID(ctx, res.RunID)
	log := p.log.WithContext(ctx)
	defer p.recordCache()

	exporter := pointexport.NewExporter(p.cfg.Years, p.indexer, p.cfg.FineLevel)
	stats := occurrence.NewRejectionStats()

	err := p.src.Stream(ctx, func(r occurrence.Record) error {
		res.Read++
		row, reason, err := exporter.Convert(r)
		if err != nil {
			return err
		}
		if reason != occurrence.Admitted {
			stats.Record(reason)
			return nil
		}
		if err := sink.Write(row); err != nil {
			return err
		}
		res.Exported++
		return nil
	})
	if err != nil {
		return nil, p.fail(log, metrics.OpPoints, err)
	}

	res.Rejections = stats.Snapshot()
	res.Elapsed = time.Since(start)
	p.metrics.AddRecordsRead(res.Read)
	p.metrics.AddRecordsAdmitted(res.Exported)
	for reason, n := range res.Rejections {
		p.metrics.AddRejections(string(reason), n)
	}
	p.metrics.RecordDuration(metrics.OpPoints, res.Elapsed.Seconds())
	p.metrics.RecordOperation(metrics.OpPoints, metrics.StatusSuccess)

	log.Info("points export finished",
		logger.Int64("read", res.Read),
		logger.Int64("exported", res.Exported),
		logger.Int("fine_level", p.cfg.FineLevel),
		logger.Duration("elapsed", res.Elapsed))
	return res, nil
}
