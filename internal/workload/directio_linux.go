//go:build linux

package workload

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// OpenDirect opens path for reading with O_DIRECT. Filesystems that reject
// the flag (FUSE without direct_io support among them) get a standard
// buffered open instead, recorded once rather than failed.
func OpenDirect(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|unix.O_DIRECT, 0)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOTSUP) {
		recordFallback("filesystem rejected O_DIRECT")
		return os.Open(path)
	}
	return nil, err
}
