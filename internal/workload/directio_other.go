//go:build !linux

package workload

import "os"

// OpenDirect falls back to a buffered open; O_DIRECT is Linux-only.
func OpenDirect(path string) (*os.File, error) {
	recordFallback("O_DIRECT not supported on this platform")
	return os.Open(path)
}
