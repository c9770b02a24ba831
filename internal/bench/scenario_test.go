package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/fsbench/internal/config"
	"github.com/objectfs/fsbench/internal/workload"
)

func testConfig() *config.Config {
	return &config.Config{
		Bucket:         "bench-bucket",
		Prefix:         "fsbench/",
		Region:         "us-east-1",
		BenchFile:      "data/big.bin",
		SmallBenchFile: "data/small.bin",
		BufferKiB:      256,
	}
}

func TestScenarios(t *testing.T) {
	cfg := testConfig()
	scenarios := Scenarios(cfg)
	require.Len(t, scenarios, 5)

	byName := make(map[string]Scenario, len(scenarios))
	for _, s := range scenarios {
		byName[s.Name] = s
	}

	seq := byName["sequential_read"]
	assert.Equal(t, cfg.BenchFile, seq.File)
	assert.Equal(t, workload.Sequential, seq.Pattern)
	assert.Zero(t, seq.TargetBytes, "sequential scenarios read one full pass")
	assert.Zero(t, seq.Warmup)

	delayed := byName["sequential_read_delayed_start"]
	assert.Equal(t, WarmupDelay, delayed.Warmup)

	direct := byName["sequential_read_direct_io"]
	assert.Equal(t, workload.Direct, direct.Pattern)

	small := byName["random_read_small_file"]
	assert.Equal(t, cfg.SmallBenchFile, small.File)
	assert.Equal(t, workload.Random, small.Pattern)
	assert.Equal(t, int64(10<<20), small.TargetBytes)

	big := byName["random_read_big_file"]
	assert.Equal(t, cfg.BenchFile, big.File)
	assert.Equal(t, workload.Random, big.Pattern)
}

func TestMeasureAgainstLocalFile(t *testing.T) {
	// The measuring loop itself needs no mount; a local file stands in.
	path := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 512<<10), 0o600))

	s := Scenario{Name: "sequential_read", Pattern: workload.Sequential}
	res := testing.Benchmark(func(b *testing.B) {
		s.measure(b, path, 64<<10)
	})

	assert.Greater(t, res.N, 0)
	assert.Equal(t, int64(512<<10), res.Bytes, "SetBytes should reflect one full pass")
}

func TestMeasureRandomVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 128<<10), 0o600))

	s := Scenario{Name: "random_read_small_file", Pattern: workload.Random, TargetBytes: 1 << 20}
	res := testing.Benchmark(func(b *testing.B) {
		s.measure(b, path, 32<<10)
	})

	assert.Greater(t, res.N, 0)
	assert.Equal(t, int64(1<<20), res.Bytes)
}
