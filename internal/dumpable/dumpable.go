// Package dumpable implements a scoped dumpability-flag toggle needed
// around every ptrace attach and every auxv read: on hardened Android
// builds PR_GET_DUMPABLE defaults to 0, which blocks same-UID ptrace and
// occasionally blocks /proc/self/auxv reads.
//
// Uses unix.Syscall(unix.SYS_PRCTL, ...) directly for the kernel primitive
// rather than a libc wrapper, since this must not allocate.
package dumpable

import (
	"sync"

	"golang.org/x/sys/unix"
)

const (
	prSetDumpable = 4
	prGetDumpable = 3
)

var (
	mu       sync.Mutex
	refcount int
	saved    int
)

// Acquire forces PR_SET_DUMPABLE=1 if this is the outermost acquire and the
// flag wasn't already 1, and returns a release func that restores it when
// the refcount drops back to zero. Acquire and its release nest correctly:
// concurrent or nested acquires only touch the kernel flag on the
// outermost in and the matching outermost out.
func Acquire() (release func()) {
	mu.Lock()
	defer mu.Unlock()

	refcount++
	if refcount == 1 {
		cur, _, errno := unix.Syscall(unix.SYS_PRCTL, prGetDumpable, 0, 0)
		if errno == 0 {
			saved = int(cur)
		} else {
			saved = 1
		}
		if saved != 1 {
			unix.Syscall(unix.SYS_PRCTL, prSetDumpable, 1, 0)
		}
	}

	return func() {
		mu.Lock()
		defer mu.Unlock()
		refcount--
		if refcount == 0 && saved != 1 {
			unix.Syscall(unix.SYS_PRCTL, prSetDumpable, uintptr(saved), 0)
		}
	}
}

// Get reads PR_GET_DUMPABLE directly, bypassing the refcount; used by
// tests validating the re-entrancy invariant.
func Get() int {
	cur, _, errno := unix.Syscall(unix.SYS_PRCTL, prGetDumpable, 0, 0)
	if errno != 0 {
		return -1
	}
	return int(cur)
}
