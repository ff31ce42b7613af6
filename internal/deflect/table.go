package deflect

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// callerTable is the mmap'd, non-Go-GC-heap backing store for a
// dispatcher's caller list. It is read by raw machine code from the thunk
// at call time (lookup_amd64.s / lookup_arm64.s), which must be reentrant
// and must not allocate or block — the same "keep shared state outside
// Go's GC" rationale as internal/threads/helper_linux.go's helperShared,
// since here too an address taken by machine code must never move.
//
// Layout: [count uint64][capacity uint64][entries...], each entry a
// (returnAddr uint64, target uint64) pair.
type callerTable struct {
	mem []byte
}

const tableEntrySize = 16
const tableHeaderSize = 16

func newCallerTable(capacity int) (*callerTable, error) {
	size := tableHeaderSize + capacity*tableEntrySize
	pageSize := unix.Getpagesize()
	mapSize := ((size + pageSize - 1) / pageSize) * pageSize
	mem, err := unix.Mmap(-1, 0, mapSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	t := &callerTable{mem: mem}
	t.setCapacity(uint64(capacity))
	return t, nil
}

func (t *callerTable) close() error { return unix.Munmap(t.mem) }

func (t *callerTable) ptr() unsafe.Pointer { return unsafe.Pointer(&t.mem[0]) }

func (t *callerTable) word(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&t.mem[off]))
}

func (t *callerTable) count() uint64        { return *t.word(0) }
func (t *callerTable) setCount(v uint64)    { *t.word(0) = v }
func (t *callerTable) capacity() uint64     { return *t.word(8) }
func (t *callerTable) setCapacity(v uint64) { *t.word(8) = v }

func (t *callerTable) entryOffset(i uint64) int {
	return tableHeaderSize + int(i)*tableEntrySize
}

// add appends a (returnAddr -> target) entry. Returns false if the table is
// at capacity.
func (t *callerTable) add(returnAddr, target uint64) bool {
	n := t.count()
	if n >= t.capacity() {
		return false
	}
	off := t.entryOffset(n)
	*t.word(off) = returnAddr
	*t.word(off + 8) = target
	t.setCount(n + 1)
	return true
}

// lookup is the Go-side equivalent of the raw assembly scan, used by the
// public API and tests; the thunk itself calls the assembly version so
// that the scan never re-enters the Go runtime from arbitrary threads.
func (t *callerTable) lookup(returnAddr uint64) (uint64, bool) {
	n := t.count()
	for i := uint64(0); i < n; i++ {
		off := t.entryOffset(i)
		if *t.word(off) == returnAddr {
			return *t.word(off + 8), true
		}
	}
	return 0, false
}
