// Package bench orchestrates benchmark scenarios: per scenario it mounts a
// fresh filesystem instance, optionally lets the backing client warm up,
// then times workload iterations under the testing framework. Teardown runs
// on every path out, including b.Fatal, since the benchmark goroutine still
// unwinds its defers.
package bench

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/objectfs/fsbench/internal/config"
	"github.com/objectfs/fsbench/internal/metrics"
	"github.com/objectfs/fsbench/internal/mount"
	"github.com/objectfs/fsbench/internal/workload"
)

// WarmupDelay is the idle period for the delayed-start scenario, long
// enough for the S3 client's connection state to settle after mounting.
const WarmupDelay = 60 * time.Second

// randomReadVolume is the data volume each random-read iteration drives,
// independent of target file size.
const randomReadVolume int64 = 10 << 20

// Scenario describes one registered benchmark. Immutable once built.
type Scenario struct {
	Name    string
	File    string // mount-relative path of the target file
	Pattern workload.Pattern

	// TargetBytes is the volume read per iteration; 0 means one full pass
	// over the file, whatever its size.
	TargetBytes int64

	// Warmup idles between mounting and measuring.
	Warmup time.Duration
}

// Scenarios returns the benchmark suite for the given configuration.
func Scenarios(cfg *config.Config) []Scenario {
	return []Scenario{
		{Name: "sequential_read", File: cfg.BenchFile, Pattern: workload.Sequential},
		{Name: "sequential_read_delayed_start", File: cfg.BenchFile, Pattern: workload.Sequential, Warmup: WarmupDelay},
		{Name: "sequential_read_direct_io", File: cfg.BenchFile, Pattern: workload.Direct},
		{Name: "random_read_small_file", File: cfg.SmallBenchFile, Pattern: workload.Random, TargetBytes: randomReadVolume},
		{Name: "random_read_big_file", File: cfg.BenchFile, Pattern: workload.Random, TargetBytes: randomReadVolume},
	}
}

// Run mounts a fresh filesystem for the scenario, measures b.N workload
// iterations against it, and returns the filesystem's operation counters
// for the run. A mount or open failure is fatal to this scenario only; the
// suite's remaining scenarios are unaffected.
func (s Scenario) Run(b *testing.B, cfg *config.Config, logger *slog.Logger) metrics.Stats {
	b.Helper()

	if logger == nil {
		logger = slog.Default()
	}
	// The nonce-suffixed namespace identifies this run; concurrent runs
	// against the same bucket stay distinguishable in logs and in any
	// scratch keys they might write.
	logger.Info("starting scenario", "scenario", s.Name, "run_namespace", cfg.RunPrefix(s.Name))

	h, err := mount.Mount(context.Background(), cfg, logger)
	if err != nil {
		b.Fatalf("%s: %v", s.Name, err)
	}
	defer h.Close()

	if s.Warmup > 0 {
		time.Sleep(s.Warmup)
	}

	s.measure(b, h.Path(s.File), cfg.BufferBytes())
	return h.Stats()
}

// measure times the workload against a resolved file path. Split from Run
// so the measuring loop is testable without a FUSE mount.
func (s Scenario) measure(b *testing.B, path string, bufCap int) {
	b.Helper()

	target := s.TargetBytes
	if target == 0 {
		info, err := os.Stat(path)
		if err != nil {
			b.Fatalf("%s: stat target file: %v", s.Name, err)
		}
		target = info.Size()
	}

	b.SetBytes(target)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Each iteration opens its own handle inside Run, so no cursor
		// or cache state carries over between samples.
		if _, err := workload.Run(s.Pattern, path, target, bufCap, nil); err != nil {
			b.Fatalf("%s: %v", s.Name, err)
		}
	}
	b.StopTimer()
}
