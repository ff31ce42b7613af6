//go:build linux

package codealloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func pageSize() int { return unix.Getpagesize() }

// newPage maps one page: RWX directly when the allocator runs in RWX mode
// (teacher's hotreload_unix.go AllocateExecutablePage), or RW-only as a
// "shadow" mapping under W^X, realized to RX later in commit (wazero's
// MmapCodeSegment/MprotectRX split).
func (a *Allocator) newPage() (*codePage, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	if a.rwxOK {
		prot |= unix.PROT_EXEC
	}
	size := pageSize()
	data, err := unix.Mmap(-1, 0, size, prot, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	page := &codePage{shadowAddr: addr, finalAddr: addr, pages: 1, sliceSize: a.sliceSize}
	pageData[addr] = data
	return page, nil
}

// pageData keeps the []byte returned by unix.Mmap alive and addressable by
// base address for Munmap, since codePage only carries the uintptr.
var pageData = make(map[uintptr][]byte)

func sliceBytes(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// realizeAndMap flips a W^X shadow page to executable, non-writable, in
// place: "segment.realize() and segment.map()").
// Since this allocator maps the shadow and final address as the same
// region (no separate double-mapped alias), realize collapses to an
// mprotect from RW to RX.
func realizeAndMap(page *codePage) error {
	data, ok := pageData[page.shadowAddr]
	if !ok {
		return unix.EINVAL
	}
	return unix.Mprotect(data, unix.PROT_READ|unix.PROT_EXEC)
}

func releasePage(page *codePage) error {
	data, ok := pageData[page.shadowAddr]
	if !ok {
		return nil
	}
	delete(pageData, page.shadowAddr)
	return unix.Munmap(data)
}
