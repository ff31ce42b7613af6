// ranges.go computes program/interpreter/vDSO ranges from the auxiliary
// vector, and exposes the memoized ProgramModules singleton.
package procfs

import (
	"debug/elf"
	"fmt"
	"os"
	"sync"

	"github.com/xyproto/inproc/internal/errs"
)

// RTLDKind records whether a runtime linker is present.
type RTLDKind int

const (
	RTLDNone RTLDKind = iota
	RTLDShared
)

// Range is a half-open [Base, Base+Size) memory span.
type Range struct {
	Base uint64
	Size uint64
}

func (r Range) Contains(addr uint64) bool {
	return addr >= r.Base && addr < r.Base+r.Size
}

func (r Range) End() uint64 { return r.Base + r.Size }

// ModuleRanges is program/interpreter/vDSO, each possibly zero-valued if
// not applicable (e.g. no vDSO on this kernel build).
type ModuleRanges struct {
	Program     Range
	ProgramPath string
	Interpreter Range
	InterpPath  string
	VDSO        Range
	RTLDKind    RTLDKind
}

var (
	once       sync.Once
	cached     ModuleRanges
	cachedErr  error
)

// QueryProgramModules computes program/interpreter/vDSO ranges, memoized
// for the process lifetime.
func QueryProgramModules() (ModuleRanges, error) {
	once.Do(func() {
		cached, cachedErr = queryProgramModules()
	})
	return cached, cachedErr
}

func queryProgramModules() (ModuleRanges, error) {
	kernelAuxv, kernelErr := ReadAuxvKernel()
	stackAuxv, stackErr := ReadAuxvStack()

	var kProg, kInterp, kVdso Range
	var kRTLD RTLDKind
	if kernelErr == nil {
		kProg, kInterp, kVdso, kRTLD = rangesFromAuxv(kernelAuxv)
	}
	var sProg, sInterp, sVdso Range
	var sRTLD RTLDKind
	if stackErr == nil {
		sProg, sInterp, sVdso, sRTLD = rangesFromAuxv(stackAuxv)
	}

	var out ModuleRanges
	switch {
	case kernelErr == nil && stackErr == nil:
		// If the program bases differ, the kernel's
		// "program" is actually the interpreter (ld.so loaded itself as
		// AT_BASE's companion); prefer the stack view's program and
		// demote the kernel view's program to interpreter.
		if kProg.Base != 0 && sProg.Base != 0 && kProg.Base != sProg.Base {
			out.Program = sProg
			out.Interpreter = kProg
			out.RTLDKind = RTLDShared
		} else {
			out.Program = sProg
			out.Interpreter = sInterp
			if out.Interpreter.Base == 0 {
				out.Interpreter = kInterp
			}
			out.RTLDKind = sRTLD
			if out.RTLDKind == RTLDNone {
				out.RTLDKind = kRTLD
			}
		}
		out.VDSO = sVdso
		if out.VDSO.Base == 0 {
			out.VDSO = kVdso
		}
	case kernelErr == nil:
		out.Program, out.Interpreter, out.VDSO, out.RTLDKind = kProg, kInterp, kVdso, kRTLD
	case stackErr == nil:
		out.Program, out.Interpreter, out.VDSO, out.RTLDKind = sProg, sInterp, sVdso, sRTLD
	default:
		return ModuleRanges{}, errs.New(errs.Failed, "procfs.QueryProgramModules",
			fmt.Errorf("both auxv reads failed: kernel=%v stack=%v", kernelErr, stackErr))
	}

	resolvePaths(&out)
	return out, nil
}

// rangesFromAuxv derives program/interpreter/vDSO ranges from one auxv
// reading.
func rangesFromAuxv(av Auxv) (program, interp, vdso Range, kind RTLDKind) {
	phdr, hasPhdr := av.Lookup(AT_PHDR)
	phnum, hasPhnum := av.Lookup(AT_PHNUM)
	base, hasBase := av.Lookup(AT_BASE)
	sysinfoEhdr, hasVdso := av.Lookup(AT_SYSINFO_EHDR)

	if hasPhdr && hasPhnum {
		program = rangeFromProgramHeaders(uintptr(phdr), int(phnum))
	}
	if hasBase && base != 0 {
		kind = RTLDShared
		interp = rangeFromElfAtBase(uintptr(base))
	}
	if hasVdso && sysinfoEhdr != 0 {
		vdso = rangeFromElfAtBase(uintptr(sysinfoEhdr))
	}
	return program, interp, vdso, kind
}

// rangeFromProgramHeaders computes: lowest = min(page_start(p_vaddr)) over
// PT_LOAD, highest = max(p_vaddr+p_memsz).
// phdrAddr/phnum describe the already-mapped program headers in this
// process's own address space, so they're read directly through unsafe
// pointer arithmetic rather than a file-backed ELF parser (the on-disk ELF
// parser is explicitly out of scope; this reads the in-memory phdr array
// the kernel already mapped for us).
func rangeFromProgramHeaders(phdrAddr uintptr, phnum int) Range {
	type elf64Phdr struct {
		Type   uint32
		Flags  uint32
		Offset uint64
		Vaddr  uint64
		Paddr  uint64
		Filesz uint64
		Memsz  uint64
		Align  uint64
	}
	const ptLoad = 1
	const phentsize = 56

	pageSize := uint64(os.Getpagesize())
	var lowest, highest uint64
	found := false
	var baseFromPhdr uint64

	for i := 0; i < phnum; i++ {
		ph := (*elf64Phdr)(unsafeOffset(phdrAddr, uintptr(i*phentsize)))
		if ph.Type == 3 /* PT_PHDR */ {
			baseFromPhdr = phdr2base(phdrAddr, ph.Offset)
		}
		if ph.Type != ptLoad {
			continue
		}
		lo := ph.Vaddr &^ (pageSize - 1)
		hi := ph.Vaddr + ph.Memsz
		if !found || lo < lowest {
			lowest = lo
		}
		if !found || hi > highest {
			highest = hi
		}
		found = true
	}
	if !found {
		return Range{}
	}

	base := baseFromPhdr
	if base == 0 {
		base = lowest
	}
	return Range{Base: base, Size: highest - lowest}
}

func phdr2base(phdrAddr uintptr, phdrOffset uint64) uint64 {
	return uint64(phdrAddr) - phdrOffset
}

// rangeFromElfAtBase reads just enough of an in-memory ELF image (its
// ehdr + phdrs) at base to compute its loaded range, the same
// rule as rangeFromProgramHeaders but starting from a raw base address
// (AT_BASE, AT_SYSINFO_EHDR) instead of AT_PHDR.
func rangeFromElfAtBase(base uintptr) Range {
	ehdrMagic := (*[4]byte)(unsafeOffset(base, 0))
	if ehdrMagic[0] != 0x7f || ehdrMagic[1] != 'E' || ehdrMagic[2] != 'L' || ehdrMagic[3] != 'F' {
		return Range{Base: uint64(base)}
	}
	type elf64Ehdr struct {
		Ident     [16]byte
		Type      uint16
		Machine   uint16
		Version   uint32
		Entry     uint64
		Phoff     uint64
		Shoff     uint64
		Flags     uint32
		Ehsize    uint16
		Phentsize uint16
		Phnum     uint16
		_         [3]uint16
	}
	ehdr := (*elf64Ehdr)(unsafeOffset(base, 0))
	r := rangeFromProgramHeaders(base+uintptr(ehdr.Phoff), int(ehdr.Phnum))
	if r.Size != 0 && r.Base < uint64(base) {
		// No PT_PHDR: Base holds the unrelocated lowest p_vaddr, while the
		// image itself is mapped at its ELF header address.
		r.Base = uint64(base)
	}
	return r
}

// resolvePaths reads /proc/self/maps once and matches mapping start
// addresses to the resolved bases.
func resolvePaths(out *ModuleRanges) {
	it, err := OpenMaps(0)
	if err != nil {
		return
	}
	defer it.Close()

	for {
		line, ok := it.Next()
		if !ok {
			break
		}
		m, ok := ParseMapping(line)
		if !ok {
			continue
		}
		if out.Program.Base != 0 && m.Start == out.Program.Base {
			out.ProgramPath = m.Path
		}
		if out.Interpreter.Base != 0 && m.Start == out.Interpreter.Base {
			out.InterpPath = m.Path
		}
		if out.VDSO.Base != 0 && m.Start == out.VDSO.Base {
			// The vDSO has no backing path — synthetic module name only.
			_ = m.Path
		}
	}
}

// VDSOSyntheticName is the synthesized module name for the vDSO.
const VDSOSyntheticName = "linux-vdso.so.1"

var _ = elf.ELFMAG // acknowledge debug/elf as the ELF-magic authority
