// Package codealloc is the Code Slice Allocator: a slab
// allocator that carves page-sized executable mappings into fixed-size
// slices, with near-reach selection for branch-limited callers.
//
// Two modes: "RWX available" mmaps PROT_READ|PROT_WRITE|PROT_EXEC directly
// and returns freed slices to the free list; the W^X mode maps a page RW, writes it, then flips
// it to RX via mprotect rather than ever being RWX simultaneously.
package codealloc

import (
	stdErrors "errors"
	"sync"

	"github.com/xyproto/inproc/internal/config"
	"github.com/xyproto/inproc/internal/errs"
)

// Slice is a fixed-size chunk of executable memory carved from a page-sized
// slab.
type Slice struct {
	addr uintptr
	size int
	page *codePage
}

func (s *Slice) Addr() uintptr { return s.addr }
func (s *Slice) Size() int     { return s.size }

// Bytes exposes the slice's backing memory for writing trampoline code.
// Valid to write before commit; writing after commit under W^X will fault.
func (s *Slice) Bytes() []byte { return sliceBytes(s.addr, s.size) }

// codePage is one slab: a run of pages sliced into fixed-size elements.
type codePage struct {
	shadowAddr uintptr // writable address (== finalAddr when RWX is available)
	finalAddr  uintptr // address the slice is ultimately executed from
	pages      int
	sliceSize  int
	refCount   int
	committed  bool
	dirty      bool
}

// AddressSpec constrains allocation to addresses reachable by a short or
// medium branch from a caller site.
type AddressSpec struct {
	Near        uintptr
	MaxDistance uintptr
}

func (a AddressSpec) contains(start, end uintptr) bool {
	lo := a.Near - a.MaxDistance
	hi := a.Near + a.MaxDistance
	if a.MaxDistance > a.Near {
		lo = 0
	}
	return start >= lo && end <= hi
}

// Allocator is the Code Slice Allocator. It guards its own free-list and
// dirty-page bookkeeping with mu, but a caller that writes into a slice's
// bytes after TryAllocSliceNear and before Commit must still serialize that
// write against any other goroutine touching the same page.
type Allocator struct {
	mu        sync.Mutex
	sliceSize int
	rwxOK     bool // true: persistent RWX pages, false: W^X enforced
	freeList  []*Slice
	dirty     map[*codePage]bool
}

// New builds an Allocator. sliceSize defaults to config.SliceSize() when 0.
// rwxAvailable should reflect whether the host permits simultaneous
// write+execute mappings (false on W^X-enforcing hosts).
func New(sliceSize int, rwxAvailable bool) *Allocator {
	if sliceSize <= 0 {
		sliceSize = config.SliceSize()
	}
	return &Allocator{
		sliceSize: sliceSize,
		rwxOK:     rwxAvailable && !config.ForceWX(),
		dirty:     make(map[*codePage]bool),
	}
}

func (a *Allocator) slicesPerPage() int {
	return pageSize() / a.sliceSize
}

// TryAllocSliceNear scans the free list for a slice within
// [spec.Near-spec.MaxDistance, spec.Near+spec.MaxDistance] on both
// endpoints and aligned to alignment; on miss, allocates a fresh page.
func (a *Allocator) TryAllocSliceNear(spec AddressSpec, alignment uintptr) (*Slice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, s := range a.freeList {
		end := s.addr + uintptr(s.size)
		if spec.contains(s.addr, end) && s.addr%alignment == 0 {
			a.freeList = append(a.freeList[:i], a.freeList[i+1:]...)
			a.dirty[s.page] = true
			s.page.dirty = true
			return s, nil
		}
	}

	page, err := a.newPage()
	if err != nil {
		return nil, err
	}
	n := a.slicesPerPage()
	for i := 0; i < n-1; i++ {
		off := uintptr(i * a.sliceSize)
		a.freeList = append(a.freeList, &Slice{addr: page.shadowAddr + off, size: a.sliceSize, page: page})
	}
	last := &Slice{addr: page.shadowAddr + uintptr((n-1)*a.sliceSize), size: a.sliceSize, page: page}
	page.refCount = n
	a.dirty[page] = true
	page.dirty = true
	if last.addr%alignment != 0 {
		return nil, errs.New(errs.NotSupported, "codealloc.TryAllocSliceNear", errAlignmentUnsatisfiable)
	}
	return last, nil
}

var errAlignmentUnsatisfiable = stdErrors.New("last slice of a fresh page does not satisfy requested alignment")

// FlushICache exposes the architecture-appropriate instruction-cache flush
// (icache_amd64.go / icache_arm64.go) for other packages that patch
// executable memory in place outside this allocator, such as
// internal/deflect's cave and thunk writes.
func FlushICache(addr uintptr, size int) { flushICache(addr, size) }

// Commit flips every uncommitted, dirty page to its final executable
// mapping. Under RWX-available mode this is a no-op beyond the icache
// flush, since pages are already executable.
func (a *Allocator) Commit() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for page := range a.dirty {
		if page.committed {
			continue
		}
		if !a.rwxOK {
			if err := realizeAndMap(page); err != nil {
				return errs.New(errs.Failed, "codealloc.Commit", err)
			}
		}
		flushICache(page.finalAddr, page.pages*pageSize())
		page.committed = true
	}
	a.dirty = make(map[*codePage]bool)

	if !a.rwxOK {
		// Under W^X, slices on the free list cannot be reused across a
		// commit boundary: the shadow region they point
		// into is no longer writable.
		a.freeList = nil
	}
	return nil
}

// FreeSlice returns s to the free list (RWX mode) or drops one reference
// from its owning page, releasing the page once its ref count reaches
// zero.
func (a *Allocator) FreeSlice(s *Slice) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rwxOK {
		a.freeList = append(a.freeList, s)
		return nil
	}
	s.page.refCount--
	if s.page.refCount <= 0 {
		return releasePage(s.page)
	}
	return nil
}
