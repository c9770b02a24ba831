//go:build !linux

package mount

import "golang.org/x/sys/unix"

// detach forces the unmount; there is no lazy detach outside Linux.
func detach(dir string) error {
	return unix.Unmount(dir, unix.MNT_FORCE)
}
