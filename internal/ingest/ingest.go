// Package ingest loads GBIF occurrence downloads into the occurrence store.
//
// A download is a tab-separated file with a header row, optionally gzip or
// zstd compressed. Only the columns the metrics need are kept; the rest are
// ignored.
package ingest

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/batatlas/batatlas/internal/datastore"
	"github.com/batatlas/batatlas/internal/errors"
	"github.com/batatlas/batatlas/internal/logger"
)

// Importer persists a batch of rows.
type Importer interface {
	ImportBatch(ctx context.Context, rows []datastore.Occurrence) (int64, error)
}

// Options tunes an ingest run.
type Options struct {
	BatchSize int           // rows per ImportBatch call
	Log       logger.Logger // nil uses the global ingest logger
}

// Stats summarizes an ingest run.
type Stats struct {
	Lines    int64 // data lines read, header excluded
	Imported int64 // rows the store reported as inserted
	Skipped  int64 // lines without a parseable gbifID
	Batches  int
}

// File ingests the download at path.
func File(ctx context.Context, path string, dst Importer, opts Options) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	return Reader(ctx, f, dst, opts)
}

// Reader ingests a download from r.
func Reader(ctx context.Context, r io.Reader, dst Importer, opts Options) (Stats, error) {
	log := opts.Log
	if log == nil {
		log = logger.Global().Module("ingest")
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = datastore.DefaultBatchSize
	}

	var stats Stats
	start := time.Now()

	src, err := decompress(r)
	if err != nil {
		return stats, parseError(err, "decompress")
	}
	defer func() { _ = src.Close() }()

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return stats, parseError(err, "header")
		}
		return stats, errors.Newf("empty download").
			Component("ingest").
			Category(errors.CategoryFileParsing).
			Build()
	}
	cols, err := parseHeader(scanner.Text())
	if err != nil {
		return stats, err
	}

	batch := make([]datastore.Occurrence, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := dst.ImportBatch(ctx, batch)
		if err != nil {
			return err
		}
		stats.Imported += n
		stats.Batches++
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, errors.New(err).
				Component("ingest").
				Category(errors.CategoryCancellation).
				Build()
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		stats.Lines++

		row, ok := cols.parseRow(strings.Split(line, "\t"))
		if !ok {
			stats.Skipped++
			log.Trace("skipping line without gbifID", logger.Int64("line", stats.Lines+1))
			continue
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, parseError(err, "read")
	}
	if err := flush(); err != nil {
		return stats, err
	}

	log.Info("ingest finished",
		logger.Int64("lines", stats.Lines),
		logger.Int64("imported", stats.Imported),
		logger.Int64("skipped", stats.Skipped),
		logger.Int("batches", stats.Batches),
		logger.Duration("elapsed", time.Since(start)))
	return stats, nil
}

func parseError(err error, stage string) error {
	return errors.New(err).
		Component("ingest").
		Category(errors.CategoryFileParsing).
		Context("stage", stage).
		Build()
}
