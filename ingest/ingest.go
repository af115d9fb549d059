/*
Package ingest feeds newline separated keys from a stream into a cuckoo filter
and keeps the counts an evaluation run reports: failed inserts, false positives
and the time spent per batch of insertions.
*/
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// DefaultReportEvery is the number of lines between two progress logs
const DefaultReportEvery = 1000000

// maxLineSize bounds a single key
const maxLineSize = 1 << 20

// Filter is the part of a cuckoo filter driven by Run and Verify
type Filter interface {
	Insert(data []byte) bool
	Lookup(data []byte) bool
	LoadFactor() float64
}

// Options tunes a Run
// _ReportEvery_ is the number of lines between two progress logs, 0 means DefaultReportEvery
// _Logger_ receives progress and failed inserts, nil means no logging
type Options struct {
	ReportEvery uint64
	Logger      *zap.Logger
}

// Batch is the progress of a Run after a multiple of ReportEvery lines
type Batch struct {
	Lines          uint64
	LoadFactor     float64
	FalsePositives uint64
	Elapsed        time.Duration
}

// Report sums up a Run
type Report struct {
	Lines          uint64
	FailedInserts  uint64
	FalsePositives uint64
	LoadFactor     float64
	Elapsed        time.Duration
	Batches        []Batch
}

// Run reads one key per line from _r_. Each key is first looked up, a hit
// before the insert counts as a false positive, then inserted.
// It stops at the end of _r_, on a read error, or when _ctx_ is done.
func Run(ctx context.Context, r io.Reader, filter Filter, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	every := opts.ReportEvery
	if every == 0 {
		every = DefaultReportEvery
	}

	var report Report
	start := time.Now()
	lastMeasured := start
	scanner := newScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		line := scanner.Bytes()
		if filter.Lookup(line) {
			report.FalsePositives++
		}
		if !filter.Insert(line) {
			report.FailedInserts++
			logger.Warn("failed to insert key",
				zap.String("key", string(line)),
				zap.Float64("load_factor", filter.LoadFactor()),
			)
		}
		report.Lines++
		if report.Lines%every == 0 {
			batch := Batch{
				Lines:          report.Lines,
				LoadFactor:     filter.LoadFactor(),
				FalsePositives: report.FalsePositives,
				Elapsed:        time.Since(lastMeasured),
			}
			report.Batches = append(report.Batches, batch)
			logger.Info("inserted batch",
				zap.Uint64("n", batch.Lines),
				zap.Float64("load_factor", batch.LoadFactor),
				zap.Uint64("false_positives", batch.FalsePositives),
				zap.Duration("elapsed", batch.Elapsed),
			)
			lastMeasured = time.Now()
		}
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("ingest: error while reading keys: %w", err)
	}
	report.LoadFactor = filter.LoadFactor()
	report.Elapsed = time.Since(start)
	return report, nil
}

// Verify reads one key per line from _r_ and returns the keys the filter
// doesn't report as present
func Verify(ctx context.Context, r io.Reader, filter Filter, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var missing []string
	scanner := newScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return missing, err
		}
		if !filter.Lookup(scanner.Bytes()) {
			missing = append(missing, scanner.Text())
			logger.Warn("failed to find key", zap.String("key", scanner.Text()))
		}
	}
	if err := scanner.Err(); err != nil {
		return missing, fmt.Errorf("ingest: error while reading keys: %w", err)
	}
	return missing, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}
