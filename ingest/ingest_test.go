package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kwertop/cuckoo"
)

func keys(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "key-%d\n", i)
	}
	return sb.String()
}

func newFilter(t *testing.T, exponent uint8) *cuckoo.CuckooFilter {
	t.Helper()
	filter, err := cuckoo.NewCuckooFilterWithConfig(cuckoo.Config{
		BucketSize:          4,
		BucketCountExponent: exponent,
		Source:              rand.NewSource(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	return filter
}

func TestRun(t *testing.T) {
	filter := newFilter(t, 8)
	core, logs := observer.New(zapcore.InfoLevel)
	report, err := Run(context.Background(), strings.NewReader(keys(500)), filter, Options{
		ReportEvery: 100,
		Logger:      zap.New(core),
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Lines != 500 {
		t.Errorf("lines should be 500, instead found %v", report.Lines)
	}
	if report.FailedInserts != 0 {
		t.Errorf("failed inserts should be 0, instead found %v", report.FailedInserts)
	}
	if report.FalsePositives != 0 {
		t.Errorf("false positives should be 0, instead found %v", report.FalsePositives)
	}
	if len(report.Batches) != 5 {
		t.Errorf("batches should be 5, instead found %v", len(report.Batches))
	}
	if lf := float64(500) / float64(filter.CellSize()); report.LoadFactor != lf {
		t.Errorf("load factor should be %v, instead found %v", lf, report.LoadFactor)
	}
	if n := logs.FilterMessage("inserted batch").Len(); n != 5 {
		t.Errorf("5 batches should be logged, instead found %v", n)
	}
	first := logs.FilterMessage("inserted batch").All()[0].ContextMap()
	if first["n"] != uint64(100) {
		t.Errorf("first batch should be logged at n=100, instead found %v", first["n"])
	}
}

func TestRunCountsDuplicatesAsPositives(t *testing.T) {
	filter := newFilter(t, 4)
	report, err := Run(context.Background(), strings.NewReader("a\nb\na\n"), filter, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if report.FalsePositives != 1 {
		t.Errorf("the repeated key should be counted once, instead found %v", report.FalsePositives)
	}
}

func TestRunLogsFailedInserts(t *testing.T) {
	filter := newFilter(t, 0)
	core, logs := observer.New(zapcore.WarnLevel)
	report, err := Run(context.Background(), strings.NewReader(strings.Repeat("same\n", 6)), filter, Options{Logger: zap.New(core)})
	if err != nil {
		t.Fatal(err)
	}
	// a single bucket of 4 slots
	if report.FailedInserts != 2 {
		t.Errorf("failed inserts should be 2, instead found %v", report.FailedInserts)
	}
	if n := logs.FilterMessage("failed to insert key").Len(); n != 2 {
		t.Errorf("2 failures should be logged, instead found %v", n)
	}
	if report.LoadFactor != 1 {
		t.Errorf("load factor should be 1, instead found %v", report.LoadFactor)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, strings.NewReader(keys(10)), newFilter(t, 4), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should be context.Canceled, instead found %v", err)
	}
}

func TestVerify(t *testing.T) {
	filter := newFilter(t, 6)
	if _, err := Run(context.Background(), strings.NewReader(keys(100)), filter, Options{}); err != nil {
		t.Fatal(err)
	}
	missing, err := Verify(context.Background(), strings.NewReader(keys(100)), filter, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 {
		t.Errorf("no key should be missing, instead found %v", missing)
	}
	filter.Remove([]byte("key-7"))
	missing, _ = Verify(context.Background(), strings.NewReader(keys(100)), filter, zap.NewNop())
	if len(missing) != 1 || missing[0] != "key-7" {
		t.Errorf("key-7 should be missing, instead found %v", missing)
	}
}
