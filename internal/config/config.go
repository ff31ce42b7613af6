// Package config reads the handful of environment-variable tunables this
// module exposes, using github.com/xyproto/env/v2 rather than hand-rolling
// os.Getenv + strconv parsing.
package config

import "github.com/xyproto/env/v2"

const (
	envVerbose  = "INPROC_VERBOSE"
	envSliceSz  = "INPROC_SLICE_SIZE"
	envForceWX  = "INPROC_FORCE_WX"
	defaultSize = 64
)

// Verbose reports whether diagnostic logging was requested.
func Verbose() bool {
	return env.Bool(envVerbose)
}

// SliceSize returns the fixed per-slice size the code allocator should
// carve pages into. Must be a power of two dividing the page size; config
// only supplies the raw override, and neither it nor codealloc.New checks it.
func SliceSize() int {
	return env.Int(envSliceSz, defaultSize)
}

// ForceWX reports whether the W^X allocation path should be used even on a
// platform that would otherwise permit persistent RWX mappings — useful for
// exercising the commit/flush path during development.
func ForceWX() bool {
	return env.Bool(envForceWX)
}
