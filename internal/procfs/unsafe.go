package procfs

import "unsafe"

// unsafeOffset returns a pointer base+off, for reading the in-memory ELF
// headers the kernel already mapped at process-start addresses (AT_PHDR,
// AT_BASE, AT_SYSINFO_EHDR). Never used on attacker-controlled input —
// only on kernel-supplied addresses from our own auxv.
func unsafeOffset(base uintptr, off uintptr) unsafe.Pointer {
	return unsafe.Pointer(base + off) //nolint:govet
}
