//go:build !linux

package fuse

// No O_DIRECT outside Linux; opens are always cached.
const oDirectFlag = 0
