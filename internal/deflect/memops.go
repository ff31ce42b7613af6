package deflect

import (
	"os"
	"unsafe"

	"github.com/xyproto/inproc/internal/codealloc"
	"golang.org/x/sys/unix"
)

// readMem reads n bytes directly from this process's own address space via
// /proc/self/mem, the same technique internal/modules uses to probe ELF
// magic without requiring the target range to already be backed by a Go
// slice.
func readMem(addr uintptr, n int) ([]byte, error) {
	f, err := os.OpenFile("/proc/self/mem", os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, int64(addr)); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeAt(data []byte, offset int, b []byte) {
	copy(data[offset:], b)
}

// mapThunkPage allocates one writable page to hold a thunk's emitted code.
func mapThunkPage() (uintptr, []byte, error) {
	size := unix.Getpagesize()
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return 0, nil, err
	}
	return uintptr(unsafe.Pointer(&data[0])), data, nil
}

func unmapThunkPage(data []byte) error { return unix.Munmap(data) }

// protectRX flips a page from writable to executable, non-writable.
func protectRX(data []byte) error {
	return unix.Mprotect(data, unix.PROT_READ|unix.PROT_EXEC)
}

// patchCave overwrites the bytes at addr within its own page: flip the
// page to RWX, write the new bytes, flip back to RX, flush the icache.
// The page containing addr is located by its own page-aligned address,
// so this works regardless of how the cave's mapping was originally
// created.
func patchCave(addr uintptr, code []byte) error {
	pageSize := uintptr(unix.Getpagesize())
	pageStart := addr &^ (pageSize - 1)
	pageBytes := pageBytesAt(pageStart, int(pageSize))

	if err := unix.Mprotect(pageBytes, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(code))
	copy(dst, code)
	if err := unix.Mprotect(pageBytes, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return err
	}
	codealloc.FlushICache(addr, len(code))
	return nil
}

// pageBytesAt reinterprets an already-mapped page as a []byte so
// unix.Mprotect (which takes a slice to anchor the call to the right
// address range) can be used on memory this process didn't itself mmap.
func pageBytesAt(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}
