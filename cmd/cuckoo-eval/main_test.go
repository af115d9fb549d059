package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kwertop/cuckoo/ingest"
)

func TestNewFilterRejectsInvalidArgs(t *testing.T) {
	if _, err := newFilter(EvalArgs{BucketSize: 0, Exponent: 4}); err == nil {
		t.Error("zero bucket size should be rejected")
	}
}

func TestRenderReport(t *testing.T) {
	filter, err := newFilter(EvalArgs{BucketSize: 4, Exponent: 10, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	report := ingest.Report{
		Lines:          2000,
		FailedInserts:  3,
		FalsePositives: 1,
		LoadFactor:     0.5,
		Elapsed:        1500 * time.Millisecond,
		Batches:        []ingest.Batch{{Lines: 1000, LoadFactor: 0.25, Elapsed: time.Second}},
	}
	out := renderReport(filter, report, []string{"a"})
	for _, want := range []string{"2,000", "1,000", "0.2500", "failed inserts: 3", "missing keys: 1", "slots: 4,096"} {
		if !strings.Contains(out, want) {
			t.Errorf("report should contain %q, instead found\n%s", want, out)
		}
	}
}

func TestRun(t *testing.T) {
	input := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(input, []byte("alice\nbob\ncarol\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	args := EvalArgs{Input: input, BucketSize: 4, Exponent: 4, Retries: 500, ReportEvery: 2, Seed: 1}
	if err := run(context.Background(), args, zap.NewNop()); err != nil {
		t.Errorf("run should succeed, instead found %v", err)
	}
	args.Input = filepath.Join(t.TempDir(), "missing.txt")
	if err := run(context.Background(), args, zap.NewNop()); err == nil {
		t.Error("run should fail on a missing input")
	}
}

func TestRealMainExitCode(t *testing.T) {
	input := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(input, []byte("alice\nbob\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	args := EvalArgs{Input: input, BucketSize: 4, Exponent: 4, ReportEvery: 1, Seed: 1, NoVerify: true, Dev: true}
	if code := realMain(args); code != 0 {
		t.Errorf("exit code should be 0, instead found %v", code)
	}
	args.Input = filepath.Join(t.TempDir(), "missing.txt")
	if code := realMain(args); code != 1 {
		t.Errorf("exit code should be 1, instead found %v", code)
	}
}
