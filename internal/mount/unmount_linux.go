//go:build linux

package mount

import "golang.org/x/sys/unix"

// detach performs a lazy unmount, for when a straggling open handle keeps
// the normal unmount from succeeding.
func detach(dir string) error {
	return unix.Unmount(dir, unix.MNT_DETACH)
}
