//go:build amd64

package codealloc

// flushICache is a no-op on x86-64: the architecture keeps instruction and
// data caches coherent for self-modifying code without software
// intervention (beyond the serializing effect of the mprotect/mmap call
// itself).
func flushICache(addr uintptr, size int) {}
