// fsbench runs the filesystem read benchmarks outside `go test` and prints
// a throughput report. Configuration comes from the environment (see
// internal/config); a scenario that fails to mount or read is reported and
// the runner moves on to the next one.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"

	"github.com/objectfs/fsbench/internal/bench"
	"github.com/objectfs/fsbench/internal/config"
	"github.com/objectfs/fsbench/internal/metrics"
)

func main() {
	var (
		filter  = flag.String("scenario", "", "only run scenarios whose name contains this substring")
		verbose = flag.Bool("v", false, "log mount lifecycle events")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	var scenarios []bench.Scenario
	for _, s := range bench.Scenarios(cfg) {
		if *filter == "" || strings.Contains(s.Name, *filter) {
			scenarios = append(scenarios, s)
		}
	}
	if len(scenarios) == 0 {
		logger.Error("no scenario matches filter", "filter", *filter)
		os.Exit(1)
	}

	fmt.Printf("fsbench: bucket=%s region=%s buffer=%dKiB\n\n", cfg.Bucket, cfg.Region, cfg.BufferKiB)

	bar := pb.StartNew(len(scenarios))
	type report struct {
		scenario bench.Scenario
		result   testing.BenchmarkResult
		stats    metrics.Stats
		ok       bool
	}
	var reports []report

	for _, s := range scenarios {
		s := s
		var stats metrics.Stats
		res := testing.Benchmark(func(b *testing.B) {
			stats = s.Run(b, cfg, logger)
		})
		// A failed scenario never completes an iteration.
		reports = append(reports, report{scenario: s, result: res, stats: stats, ok: res.N > 0})
		bar.Increment()
	}
	bar.Finish()

	fmt.Println()
	failed := 0
	for _, r := range reports {
		if !r.ok {
			color.Red("FAIL  %-32s (see log above)", r.scenario.Name)
			failed++
			continue
		}
		perOp := time.Duration(int64(r.result.T) / int64(r.result.N))
		mibPerSec := float64(r.result.Bytes) * float64(r.result.N) / r.result.T.Seconds() / (1 << 20)
		color.Green("ok    %-32s", r.scenario.Name)
		fmt.Printf("      %d iterations, %v/op, %.1f MiB/op, %.2f MiB/s\n",
			r.result.N, perOp.Round(time.Millisecond), float64(r.result.Bytes)/(1<<20), mibPerSec)
		fmt.Printf("      fs: %d opens, %d reads, %.1f MiB served, %d errors\n",
			r.stats.Opens, r.stats.Reads, float64(r.stats.BytesRead)/(1<<20), r.stats.Errors)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
