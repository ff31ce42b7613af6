//go:build !amd64 && !arm64

package codealloc

// flushICache has no implementation on architectures this module does not
// target (non-goals: portability beyond Linux/Android's primary
// ISAs). Self-modifying code on such a build would require a new
// arch-specific flush sequence before this allocator could be trusted there.
func flushICache(addr uintptr, size int) {}
