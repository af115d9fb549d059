// Command cuckoo-eval inserts every line of a file into a cuckoo filter,
// counting false positives and failed inserts, then checks that every line
// is still reported as present.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/kwertop/cuckoo"
	"github.com/kwertop/cuckoo/ingest"
)

type EvalArgs struct {
	Input       string `arg:"positional,required" help:"file with one key per line"`
	BucketSize  uint64 `arg:"--bucket_size,env:CUCKOO_BUCKET_SIZE" default:"4" help:"fingerprints per bucket"`
	Exponent    uint8  `arg:"--exponent,env:CUCKOO_EXPONENT" default:"25" help:"log2 of the number of buckets"`
	Retries     uint64 `arg:"--retries,env:CUCKOO_RETRIES" default:"500" help:"evictions per insert before giving up"`
	ReportEvery uint64 `arg:"--report_every" default:"1000000" help:"lines between two progress logs"`
	Seed        int64  `arg:"--seed" help:"seed of the eviction victim choice, 0 for a random one"`
	NoVerify    bool   `arg:"--no_verify" help:"skip the second pass looking for false negatives"`
	Dev         bool   `arg:"--dev" help:"human readable logs"`
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newFilter(args EvalArgs) (*cuckoo.CuckooFilter, error) {
	config := cuckoo.Config{
		BucketSize:          args.BucketSize,
		BucketCountExponent: args.Exponent,
		Retries:             args.Retries,
	}
	if args.Seed != 0 {
		config.Source = rand.NewSource(args.Seed)
	}
	return cuckoo.NewCuckooFilterWithConfig(config)
}

func renderReport(filter *cuckoo.CuckooFilter, report ingest.Report, missing []string) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"N", "LF", "FP", "elapsed"})
	for _, batch := range report.Batches {
		tbl.AppendRow(table.Row{
			humanize.Comma(int64(batch.Lines)),
			fmt.Sprintf("%.4f", batch.LoadFactor),
			humanize.Comma(int64(batch.FalsePositives)),
			batch.Elapsed.Round(time.Millisecond),
		})
	}
	tbl.AppendFooter(table.Row{
		humanize.Comma(int64(report.Lines)),
		fmt.Sprintf("%.4f", report.LoadFactor),
		humanize.Comma(int64(report.FalsePositives)),
		report.Elapsed.Round(time.Millisecond),
	})
	return fmt.Sprintf("%s\n%s\nfailed inserts: %s, missing keys: %s, slots: %s\n",
		filter, tbl.Render(),
		humanize.Comma(int64(report.FailedInserts)),
		humanize.Comma(int64(len(missing))),
		humanize.Comma(int64(filter.CellSize())),
	)
}

func run(ctx context.Context, args EvalArgs, logger *zap.Logger) error {
	filter, err := newFilter(args)
	if err != nil {
		return err
	}
	logger.Info("created filter",
		zap.Uint64("bucket_size", filter.BucketSize()),
		zap.Uint64("buckets", filter.BucketCount()),
		zap.String("memory", humanize.IBytes(filter.CellSize()*8)),
	)

	f, err := os.Open(args.Input)
	if err != nil {
		return err
	}
	report, err := ingest.Run(ctx, f, filter, ingest.Options{ReportEvery: args.ReportEvery, Logger: logger})
	f.Close()
	if err != nil {
		return err
	}

	var missing []string
	if !args.NoVerify {
		f, err := os.Open(args.Input)
		if err != nil {
			return err
		}
		missing, err = ingest.Verify(ctx, f, filter, logger)
		f.Close()
		if err != nil {
			return err
		}
	}
	fmt.Print(renderReport(filter, report, missing))
	return nil
}

// realMain returns the exit code of the command once its deferred calls ran
func realMain(args EvalArgs) int {
	logger, err := newLogger(args.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, args, logger); err != nil {
		logger.Error("evaluation failed", zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	var args EvalArgs
	arg.MustParse(&args)
	os.Exit(realMain(args))
}
