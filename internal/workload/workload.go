// Package workload implements the read patterns driven against the mounted
// filesystem: sequential with wrap-around, uniformly random offsets, and
// sequential with the page cache bypassed. Each driver reads in buffer-sized
// chunks until the cumulative bytes read reach the requested volume, so a
// run's total I/O is deterministic even when the offsets are not.
package workload

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"
)

// Pattern selects a read driver.
type Pattern int

const (
	// Sequential reads forward through the file, wrapping to offset 0 at
	// end-of-file until the target volume is reached.
	Sequential Pattern = iota
	// Random seeks to a uniformly random offset before every chunk.
	Random
	// Direct is Sequential over a file opened with the page cache
	// bypassed where the platform supports it.
	Direct
)

func (p Pattern) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Random:
		return "random"
	case Direct:
		return "direct"
	default:
		return fmt.Sprintf("pattern(%d)", int(p))
	}
}

// File is the subset of *os.File the drivers need. Tests substitute fakes
// to force seek and read failures.
type File interface {
	io.ReadSeeker
	Stat() (os.FileInfo, error)
}

// OffsetSource yields random offsets for the Random driver. *rand.Rand
// satisfies it; tests inject fixed sequences.
type OffsetSource interface {
	Int63n(n int64) int64
}

// Result reports what a driver actually did.
type Result struct {
	BytesRead int64
	Reads     int
	Wraps     int
}

// maxEmptyReads bounds consecutive zero-byte, nil-error reads before a
// driver gives up. The io.Reader contract permits (0, nil), but a reader
// returning it indefinitely would spin the drivers forever.
const maxEmptyReads = 100

// ReadSequential reads forward in chunks of len(buf) until at least target
// bytes have been read, seeking back to the start whenever end-of-file is
// reached first. The final count satisfies target <= BytesRead <
// target+len(buf).
func ReadSequential(f File, target int64, bufCap int) (Result, error) {
	if err := checkArgs(target, bufCap); err != nil {
		return Result{}, err
	}
	if _, err := fileSize(f); err != nil {
		return Result{}, err
	}

	buf := make([]byte, bufCap)
	var res Result
	emptyReads := 0
	for res.BytesRead < target {
		n, err := f.Read(buf)
		if n > 0 {
			emptyReads = 0
			res.BytesRead += int64(n)
			res.Reads++
			continue
		}
		if err == io.EOF {
			if _, serr := f.Seek(0, io.SeekStart); serr != nil {
				return res, fmt.Errorf("rewinding after %d bytes: %w", res.BytesRead, serr)
			}
			res.Wraps++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("read at %d bytes: %w", res.BytesRead, err)
		}
		emptyReads++
		if emptyReads >= maxEmptyReads {
			return res, fmt.Errorf("read at %d bytes: %w", res.BytesRead, io.ErrNoProgress)
		}
	}
	return res, nil
}

// ReadRandom seeks to a uniformly random offset in [0, size) before every
// chunk until at least target bytes have been read. A failed seek is
// returned, never skipped. src may be nil, in which case a time-seeded
// source is used.
func ReadRandom(f File, target int64, bufCap int, src OffsetSource) (Result, error) {
	if err := checkArgs(target, bufCap); err != nil {
		return Result{}, err
	}
	size, err := fileSize(f)
	if err != nil {
		return Result{}, err
	}
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	buf := make([]byte, bufCap)
	var res Result
	emptyReads := 0
	for res.BytesRead < target {
		offset := src.Int63n(size)
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return res, fmt.Errorf("seek to %d: %w", offset, err)
		}

		n, err := f.Read(buf)
		if n > 0 {
			emptyReads = 0
			res.BytesRead += int64(n)
			res.Reads++
		} else {
			emptyReads++
			if emptyReads >= maxEmptyReads {
				return res, fmt.Errorf("read at %d: %w", offset, io.ErrNoProgress)
			}
		}
		if err != nil && err != io.EOF {
			return res, fmt.Errorf("read at %d: %w", offset, err)
		}
	}
	return res, nil
}

// Run opens path, applies the pattern's driver, and closes the file. Direct
// asks the OS to skip the page cache; the other patterns use a normal open.
// Every call opens a fresh handle so no cursor state leaks between runs.
func Run(p Pattern, path string, target int64, bufCap int, src OffsetSource) (Result, error) {
	var (
		f   *os.File
		err error
	)
	if p == Direct {
		f, err = OpenDirect(path)
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	switch p {
	case Random:
		return ReadRandom(f, target, bufCap, src)
	default:
		return ReadSequential(f, target, bufCap)
	}
}

func checkArgs(target int64, bufCap int) error {
	if target <= 0 {
		return fmt.Errorf("target volume must be positive, got %d", target)
	}
	if bufCap <= 0 {
		return fmt.Errorf("buffer capacity must be positive, got %d", bufCap)
	}
	return nil
}

// fileSize rejects empty files up front; both drivers would otherwise loop
// forever reading zero bytes.
func fileSize(f File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	if info.Size() <= 0 {
		return 0, fmt.Errorf("file %s is empty", info.Name())
	}
	return info.Size(), nil
}

var fallbackOnce sync.Once

// recordFallback logs the buffered-read fallback a single time per process;
// the condition is static for a given platform and filesystem.
func recordFallback(reason string) {
	fallbackOnce.Do(func() {
		slog.Warn("direct I/O unavailable, falling back to buffered reads", "reason", reason)
	})
}
