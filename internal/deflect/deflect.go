// Package deflect is the Code Deflector Engine: it finds
// ELF "code caves" within branch reach of a caller, patches them to an
// indirect trampoline that dispatches on return address, and restores the
// original bytes on teardown.
//
// Cave discovery reuses the process-ranges / proc-maps groundwork in
// internal/procfs. The dispatcher/thunk split mirrors a PLT stub: a small
// thunk that loads a target from a table and branches to it, which is
// exactly the shape a deflector dispatcher needs.
package deflect

import (
	"bytes"
	"runtime"
	"sync"

	"github.com/xyproto/inproc/internal/asmwriter"
	"github.com/xyproto/inproc/internal/errs"
	"github.com/xyproto/inproc/internal/procfs"
)

// caveProbeSize is the fixed 8-byte all-zero probe required immediately
// after the ELF magic header. Not relaxed: a larger probe risks false
// negatives against small real caves, a smaller one risks false positives
// against non-zero code, so this stays fixed rather than configurable.
const caveProbeSize = 8

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Supported reports whether this build's architecture has a trampoline
// encoder.
func Supported() bool {
	return runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
}

// Cave is a discovered code-cave candidate.
type Cave struct {
	Address uintptr
	mapping procfs.Mapping
}

// FindCave scans readable+executable proc-maps ranges, and for each whose
// first four bytes are the ELF magic, tests whether the caveProbeSize
// bytes immediately following the header are all zero and within
// maxDistance of near. Returns the first match.
func FindCave(near uintptr, maxDistance uintptr) (Cave, error) {
	it, err := procfs.OpenMaps(0)
	if err != nil {
		return Cave{}, errs.New(errs.Failed, "deflect.FindCave", err)
	}
	defer it.Close()

	for {
		line, ok := it.Next()
		if !ok {
			break
		}
		m, ok := procfs.ParseMapping(line)
		if !ok || !m.Readable() || !m.Executable() {
			continue
		}
		probeAddr := uintptr(m.Start) + 4
		if !withinDistance(probeAddr, near, maxDistance) {
			continue
		}
		header, err := readMem(uintptr(m.Start), 4)
		if err != nil || !bytes.Equal(header, elfMagic) {
			continue
		}
		probe, err := readMem(probeAddr, caveProbeSize)
		if err != nil || !allZero(probe) {
			continue
		}
		return Cave{Address: uintptr(probeAddr), mapping: m}, nil
	}
	if it.Err() != nil {
		return Cave{}, errs.New(errs.Failed, "deflect.FindCave", it.Err())
	}
	return Cave{}, errs.New(errs.NotFound, "deflect.FindCave", nil)
}

func withinDistance(addr, near, maxDistance uintptr) bool {
	var lo, hi uintptr
	if maxDistance > near {
		lo = 0
	} else {
		lo = near - maxDistance
	}
	if near+maxDistance < near { // overflow guard
		hi = ^uintptr(0)
	} else {
		hi = near + maxDistance
	}
	return addr >= lo && addr <= hi
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// defaultTableCapacity bounds how many (return_address -> target) rewrites
// one dispatcher can hold; the table lives in a single mmap'd page so this
// is sized to fit comfortably within it alongside the header.
const defaultTableCapacity = 200

// Dispatcher is one installed deflector: one cave, one thunk page, and
// the list of callers multiplexed through it.
type Dispatcher struct {
	mu            sync.Mutex
	caveAddr      uintptr
	caveOriginal  []byte
	caveMapping   procfs.Mapping
	thunkAddr     uintptr
	thunkPageData []byte
	table         *callerTable
}

// Install builds a dispatcher at cave: allocates a caller table and a
// thunk page, emits the lookup-calling thunk into it, flips it RX, then
// patches the cave itself to branch to the thunk.
func Install(cave Cave) (*Dispatcher, error) {
	if !Supported() {
		return nil, errs.New(errs.NotSupported, "deflect.Install", nil)
	}

	original, err := readMem(cave.Address, caveProbeSize)
	if err != nil {
		return nil, errs.New(errs.Failed, "deflect.Install", err)
	}

	table, err := newCallerTable(defaultTableCapacity)
	if err != nil {
		return nil, errs.New(errs.Failed, "deflect.Install", err)
	}

	d := &Dispatcher{
		caveAddr:     cave.Address,
		caveOriginal: original,
		caveMapping:  cave.mapping,
		table:        table,
	}

	thunkAddr, thunkData, err := mapThunkPage()
	if err != nil {
		table.close()
		return nil, errs.New(errs.Failed, "deflect.Install", err)
	}
	d.thunkAddr = thunkAddr
	d.thunkPageData = thunkData

	// Thunk body:
	// load the table pointer and the original return address, call the
	// reentrant raw scan, then branch to whatever it returns.
	buf := &asmwriter.Buffer{}
	asmwriter.EmitLoadImmediate64(buf, uint64(uintptr(table.ptr())))
	asmwriter.EmitLoadReturnAddress(buf)
	asmwriter.EmitAbsoluteCall(buf, lookupScanEntryAddr())
	asmwriter.EmitJumpResult(buf)
	writeAt(thunkData, 0, buf.Bytes())
	if err := protectRX(thunkData); err != nil {
		return nil, errs.New(errs.Failed, "deflect.Install", err)
	}

	// Cave body: load the thunk address into scratch, branch.
	caveBuf := &asmwriter.Buffer{}
	asmwriter.EmitAbsoluteJump(caveBuf, uint64(thunkAddr))
	// Save every byte the jump overwrites, which is more than caveProbeSize.
	original, err = readMem(d.caveAddr, caveBuf.Len())
	if err != nil {
		return nil, errs.New(errs.Failed, "deflect.Install", err)
	}
	d.caveOriginal = original
	if err := patchCave(d.caveAddr, caveBuf.Bytes()); err != nil {
		return nil, errs.New(errs.Failed, "deflect.Install", err)
	}

	return d, nil
}

// AddDeflector registers a (returnAddr -> target) rewrite with the
// dispatcher. Returns false once the dispatcher's fixed-capacity table is
// full.
func (d *Dispatcher) AddDeflector(returnAddr, target uintptr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.add(uint64(returnAddr), uint64(target))
}

// Lookup is the Go-callable equivalent of the thunk's raw scan, useful
// for tests and introspection without crossing into machine code.
func (d *Dispatcher) Lookup(returnAddr uintptr) (uintptr, bool) {
	v, ok := d.table.lookup(uint64(returnAddr))
	return uintptr(v), ok
}

// Destroy restores the cave's original bytes and frees the thunk page and
// caller table.
func (d *Dispatcher) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := patchCave(d.caveAddr, d.caveOriginal); err != nil {
		return errs.New(errs.Failed, "deflect.Destroy", err)
	}
	if err := unmapThunkPage(d.thunkPageData); err != nil {
		return errs.New(errs.Failed, "deflect.Destroy", err)
	}
	return d.table.close()
}
