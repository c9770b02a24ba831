//go:build linux

package fuse

import "golang.org/x/sys/unix"

// O_DIRECT as it arrives in FUSE open flags.
const oDirectFlag = unix.O_DIRECT
