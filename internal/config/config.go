// Package config resolves the benchmark harness configuration from the
// process environment, with optional YAML overrides. All identity and
// location parameters (bucket, region, prefix, target files) are required
// and validated before any resource is acquired; only the read buffer
// capacity carries a default.
package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Environment keys understood by FromEnv.
const (
	EnvBucket    = "S3_BUCKET_NAME"
	EnvPrefix    = "S3_BUCKET_TEST_PREFIX"
	EnvRegion    = "S3_REGION"
	EnvBenchFile = "S3_BUCKET_BENCH_FILE"
	EnvSmallFile = "S3_BUCKET_SMALL_BENCH_FILE"
	EnvBufferCap = "FS_BENCH_BUF_CAP"
	EnvOverrides = "FS_BENCH_CONFIG"
)

// DefaultBufferKiB is the read buffer capacity used when FS_BENCH_BUF_CAP
// is not set.
const DefaultBufferKiB = 256

// Config carries everything a benchmark scenario needs. It is built once at
// startup and passed down; no other component reads the process environment.
type Config struct {
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	Region         string `yaml:"region"`
	BenchFile      string `yaml:"bench_file"`
	SmallBenchFile string `yaml:"small_bench_file"`
	BufferKiB      int    `yaml:"buffer_kib"`

	// Endpoint overrides the S3 endpoint, for running against LocalStack
	// or another S3-compatible store. Empty means the real service.
	Endpoint string `yaml:"endpoint"`
}

// Error reports a missing or malformed configuration value. It always names
// the offending key so a failed run is diagnosable from the message alone.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// FromEnv builds a Config from the process environment. If FS_BENCH_CONFIG
// points at a YAML file its values are applied first and individual
// environment variables override them, mirroring the usual file-then-env
// precedence. The returned Config is fully validated.
func FromEnv() (*Config, error) {
	cfg := &Config{BufferKiB: DefaultBufferKiB}

	if path := os.Getenv(EnvOverrides); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	for _, s := range []struct {
		key string
		dst *string
	}{
		{EnvBucket, &cfg.Bucket},
		{EnvPrefix, &cfg.Prefix},
		{EnvRegion, &cfg.Region},
		{EnvBenchFile, &cfg.BenchFile},
		{EnvSmallFile, &cfg.SmallBenchFile},
	} {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv(EnvBufferCap); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &Error{EnvBufferCap, fmt.Sprintf("not an integer: %q", v)}
		}
		cfg.BufferKiB = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{EnvOverrides, fmt.Sprintf("cannot read %s: %v", path, err)}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &Error{EnvOverrides, fmt.Sprintf("cannot parse %s: %v", path, err)}
	}
	return nil
}

// Validate checks the resolved configuration. It is called by FromEnv but
// exported so hand-built Configs in tests get the same treatment.
func (c *Config) Validate() error {
	for _, s := range []struct {
		key string
		val string
	}{
		{EnvBucket, c.Bucket},
		{EnvPrefix, c.Prefix},
		{EnvRegion, c.Region},
		{EnvBenchFile, c.BenchFile},
		{EnvSmallFile, c.SmallBenchFile},
	} {
		if s.val == "" {
			return &Error{s.key, "not set"}
		}
	}

	// The prefix keeps a trailing "/" so its meaning stays in sync with the
	// S3 API's notion of a key prefix.
	if !strings.HasSuffix(c.Prefix, "/") {
		return &Error{EnvPrefix, fmt.Sprintf("must end with '/', got %q", c.Prefix)}
	}

	if c.BufferKiB <= 0 {
		return &Error{EnvBufferCap, fmt.Sprintf("must be a positive number of KiB, got %d", c.BufferKiB)}
	}
	return nil
}

// BufferBytes returns the read buffer capacity in bytes.
func (c *Config) BufferBytes() int {
	return c.BufferKiB * 1024
}

// RunPrefix derives a per-run object namespace for a scenario. A random
// 64-bit nonce is appended so concurrent runs against the same bucket never
// collide. The result keeps the trailing "/".
func (c *Config) RunPrefix(scenario string) string {
	return fmt.Sprintf("%s%s/%d/", c.Prefix, scenario, nonce())
}

func nonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the platform's entropy source is
		// broken; nothing sensible to fall back to.
		panic(fmt.Sprintf("config: reading random nonce: %v", err))
	}
	return binary.BigEndian.Uint64(b[:])
}
