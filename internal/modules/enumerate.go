package modules

import (
	"bytes"

	"github.com/xyproto/inproc/internal/applog"
	"github.com/xyproto/inproc/internal/procfs"
)

// Action is the boolean "continue" signal: callbacks return Stop to
// cancel iteration without using errors/exceptions.
type Action int

const (
	Continue Action = iota
	Stop
)

// Callback is invoked once per discovered module, main program first when
// the static (no-rtld) path is taken.
type Callback func(*Module) Action

// linkerStrategy abstracts three possible enumeration paths, tried in
// order: native Android linker delegate, libc dl_iterate_phdr, proc-maps
// fallback. Only the proc-maps fallback is wired without cgo; the first
// two are represented as an interface point with no implementation in
// this module.
type linkerStrategy interface {
	enumerate(cb Callback) (tried bool)
}

var strategies []linkerStrategy // populated by platform-specific init() when available (none in this build)

// EnumerateModules walks every loaded shared object, calling cb for each.
// Iteration halts as soon as cb returns Stop.
func EnumerateModules(cb Callback) error {
	pm, err := procfs.QueryProgramModules()
	if err != nil {
		return err
	}

	if pm.RTLDKind == procfs.RTLDNone {
		// static binary: emit only program and vDSO.
		if pm.Program.Base != 0 {
			if cb(intern(baseName(pm.ProgramPath), pm.ProgramPath, pm.Program)) == Stop {
				return nil
			}
		}
		if pm.VDSO.Base != 0 {
			cb(vdsoModule(pm.VDSO))
		}
		return nil
	}

	for _, s := range strategies {
		if s.enumerate(cb) {
			return nil
		}
	}

	return enumerateViaProcMaps(cb)
}

// enumerateViaProcMaps is the fallback strategy:
// accept only mappings that are readable, private, ELF-magic, and whose
// path is a module path; merge consecutive ranges sharing a path into one
// module.
func enumerateViaProcMaps(cb Callback) error {
	it, err := procfs.OpenMaps(0)
	if err != nil {
		return err
	}
	defer it.Close()

	type pending struct {
		path       string
		start, end uint64
		checkedELF bool
		isELF      bool
	}
	var cur *pending
	flush := func() Action {
		if cur == nil {
			return Continue
		}
		name := baseName(cur.path)
		path := cur.path
		if cur.path == "[vdso]" {
			name = procfs.VDSOSyntheticName
		}
		rng := procfs.Range{Base: cur.start, Size: cur.end - cur.start}
		act := cb(intern(name, path, rng))
		cur = nil
		return act
	}

	for {
		line, ok := it.Next()
		if !ok {
			break
		}
		m, ok := procfs.ParseMapping(line)
		if !ok {
			continue
		}
		if !m.Readable() || !m.Private() || !looksLikeModulePath(m.Path) {
			if flush() == Stop {
				return nil
			}
			continue
		}

		if cur != nil && cur.path == m.Path && cur.end == m.Start {
			cur.end = m.End
			continue
		}
		if flush() == Stop {
			return nil
		}

		if !hasELFMagic(m) {
			continue
		}
		cur = &pending{path: m.Path, start: m.Start, end: m.End}
	}
	if flush() == Stop {
		return nil
	}
	return nil
}

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// hasELFMagic probes the first four bytes of a mapping for the ELF magic
// header. The vDSO's translated pseudo-path is accepted without a magic
// probe since it is never backed by a regular file read.
func hasELFMagic(m procfs.Mapping) bool {
	if m.Path == "[vdso]" {
		return true
	}
	data, err := readProcessMemory(m.Start, 4)
	if err != nil {
		applog.Printf("inproc/modules: magic probe failed for %s: %v\n", m.Path, err)
		return false
	}
	return bytes.Equal(data, elfMagic)
}
