// Package procfs holds the /proc readers the rest of the module consumes
// through narrow interfaces: an auxv reader, and a line iterator over
// /proc/*/maps. All reads go through the os package (os.ReadFile,
// os.Open/File.Read/File.ReadAt).
package procfs

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xyproto/inproc/internal/dumpable"
	"github.com/xyproto/inproc/internal/errs"
)

// Auxv type constants (Linux uapi/linux/auxvec.h), only the ones this
// module reads.
const (
	AT_NULL          = 0
	AT_PHDR          = 3
	AT_PHENT         = 4
	AT_PHNUM         = 5
	AT_BASE          = 7
	AT_ENTRY         = 9
	AT_SYSINFO_EHDR  = 33
)

// AuxvEntry is one (type, value) pair from the auxiliary vector.
type AuxvEntry struct {
	Type  uint64
	Value uint64
}

// Auxv is a parsed vector, exposed as the raw ordered slice
// (order matters for the stack-scan heuristic's validity window).
type Auxv struct {
	Entries []AuxvEntry
}

// Lookup returns the value for typ and whether it was present.
func (a Auxv) Lookup(typ uint64) (uint64, bool) {
	for _, e := range a.Entries {
		if e.Type == typ {
			return e.Value, true
		}
	}
	return 0, false
}

// ReadAuxvKernel reads /proc/self/auxv: a native-word array of (type, value)
// pairs terminated by a zero-type entry. Acquires the dumpability guard
// first, since EACCES here is common when the process is non-dumpable on
// hardened systems.
func ReadAuxvKernel() (Auxv, error) {
	release := dumpable.Acquire()
	defer release()

	data, err := os.ReadFile("/proc/self/auxv")
	if err != nil {
		return Auxv{}, errs.New(errs.PermissionDenied, "procfs.ReadAuxvKernel", err)
	}
	return parseAuxvWords(data), nil
}

func parseAuxvWords(data []byte) Auxv {
	var out Auxv
	const wordsz = 8 // native word size; this module only targets 64-bit Linux/Android
	for i := 0; i+2*wordsz <= len(data); i += 2 * wordsz {
		typ := binary.LittleEndian.Uint64(data[i : i+wordsz])
		val := binary.LittleEndian.Uint64(data[i+wordsz : i+2*wordsz])
		if typ == AT_NULL {
			break
		}
		out.Entries = append(out.Entries, AuxvEntry{Type: typ, Value: val})
	}
	return out
}

// ReadAuxvStack cross-checks the kernel auxv against a second, independent
// read path: /proc/self/stat's start_stack address read back through
// /proc/self/mem, scanned upward for an AT_PHENT entry whose value equals
// the native ELF program-header size. This is a "scan the main-thread
// stack" heuristic: Go relocates goroutine stacks, so the kernel-supplied
// initial stack is only reachable through /proc, not through a local
// variable's address.
func ReadAuxvStack() (Auxv, error) {
	release := dumpable.Acquire()
	defer release()

	startStack, err := readStartStack()
	if err != nil {
		return Auxv{}, errs.New(errs.Failed, "procfs.ReadAuxvStack", err)
	}

	mem, err := os.OpenFile("/proc/self/mem", os.O_RDONLY, 0)
	if err != nil {
		return Auxv{}, errs.New(errs.PermissionDenied, "procfs.ReadAuxvStack", err)
	}
	defer mem.Close()

	const scanWindow = 64 * 1024
	buf := make([]byte, scanWindow)
	n, err := mem.ReadAt(buf, int64(startStack))
	if err != nil && n == 0 {
		return Auxv{}, errs.New(errs.Failed, "procfs.ReadAuxvStack", err)
	}
	buf = buf[:n]

	entries, ok := scanForAuxv(buf, phdrEntrySize())
	if !ok {
		return Auxv{}, errs.New(errs.NotFound, "procfs.ReadAuxvStack", fmt.Errorf("no AT_PHENT candidate found"))
	}
	return Auxv{Entries: entries}, nil
}

// phdrEntrySize is sizeof(Elf64_Phdr) on every architecture this module
// targets (56 bytes; identical across amd64/arm64 ELF64).
func phdrEntrySize() uint64 { return 56 }

// scanForAuxv walks buf as an array of uint64 words looking for a
// (AT_PHENT, phentsize) pair, then widens outward: backward while the
// preceding pair looks like a valid (small) auxv type, forward until
// AT_NULL. Probabilistic: a false match is possible if the scan window
// happens to contain a look-alike pair before the real vector.
func scanForAuxv(buf []byte, phentsize uint64) ([]AuxvEntry, bool) {
	const wordsz = 8
	words := len(buf) / wordsz
	get := func(i int) uint64 {
		return binary.LittleEndian.Uint64(buf[i*wordsz : i*wordsz+wordsz])
	}

	anchor := -1
	for i := 0; i+1 < words; i++ {
		if get(i) == AT_PHENT && get(i+1) == phentsize {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		return nil, false
	}

	start := anchor
	for start-2 >= 0 {
		typCandidate := get(start - 2)
		// a preceding entry with a type value that looks like a page
		// offset rather than a small auxv type tag is rejected as the
		// start of the vector.
		if typCandidate >= uint64(os.Getpagesize()) {
			break
		}
		start -= 2
	}

	var entries []AuxvEntry
	for i := start; i+1 < words; i += 2 {
		typ, val := get(i), get(i+1)
		if typ == AT_NULL {
			break
		}
		entries = append(entries, AuxvEntry{Type: typ, Value: val})
	}
	return entries, len(entries) > 0
}

// readStartStack parses field 28 (start_stack) out of /proc/self/stat. The
// process-name field is parenthesized and may itself contain spaces or
// parens, so fields are counted from the *last* ')' rather than by naive
// whitespace splitting (mirrors the /proc/<tid>/stat parsing this module
// does for thread state; see internal/threads).
func readStartStack() (uint64, error) {
	data, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return 0, err
	}
	s := string(data)
	close := strings.LastIndexByte(s, ')')
	if close < 0 || close+2 > len(s) {
		return 0, fmt.Errorf("malformed /proc/self/stat")
	}
	rest := strings.Fields(s[close+2:])
	// Fields after the state char (rest[0]) are numbered 3.. in proc(5);
	// start_stack is field 28, i.e. rest[28-3] = rest[25].
	const startStackRestIndex = 28 - 3
	if len(rest) <= startStackRestIndex {
		return 0, fmt.Errorf("short /proc/self/stat: %d fields", len(rest))
	}
	v, err := strconv.ParseUint(rest[startStackRestIndex], 10, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
