package pipeline

import (
	"context"
	"time"

	"github.com/batatlas/batatlas/internal/logger"
	"github.com/batatlas/batatlas/internal/observability/metrics"
	"github.com/batatlas/batatlas/internal/occurrence"
	"github.com/batatlas/batatlas/internal/remarks"
)

// Remarks tallies occurrenceRemarks over every record, unfiltered, and
// returns the top most frequent values. top <= 0 returns all.
func (p *Pipeline) Remarks(ctx context.Context, top int) ([]remarks.Entry, error) {
	start := time.Now()
	log := p.log.WithContext(ctx)
	counter := remarks.NewCounter()

	var read int64
	err := p.src.Stream(ctx, func(r occurrence.Record) error {
		read++
		counter.Add(r)
		return nil
	})
	if err != nil {
		return nil, p.fail(log, metrics.OpRemarks, err)
	}

	p.metrics.AddRecordsRead(read)
	p.metrics.RecordDuration(metrics.OpRemarks, time.Since(start).Seconds())
	p.metrics.RecordOperation(metrics.OpRemarks, metrics.StatusSuccess)

	log.Info("remarks tally finished",
		logger.Int64("read", read),
		logger.Int("distinct", counter.Distinct()))
	return counter.Top(top), nil
}
