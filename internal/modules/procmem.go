package modules

import "os"

// readProcessMemory reads n bytes at addr from this process's own address
// space via /proc/self/mem, used for the module ELF-magic probe instead of dereferencing a raw unsafe.Pointer —
// reading through /proc/self/mem survives probing addresses that turn out
// to be unmapped or permission-denied, returning an error instead of a
// SIGSEGV.
func readProcessMemory(addr uint64, n int) ([]byte, error) {
	f, err := os.OpenFile("/proc/self/mem", os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, int64(addr))
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}
