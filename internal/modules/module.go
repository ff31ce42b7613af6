// Package modules is the Module Enumerator and Symbol & Module Resolver.
// Modules are interned at first enumeration and exposed as borrowed
// views: callers that want to keep one past the current callback must
// copy it.
package modules

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/xyproto/inproc/internal/procfs"
)

// Module is the interned descriptor: name, path, range.
type Module struct {
	Name  string
	Path  string
	Range procfs.Range
}

// baseName returns the basename of path; the vDSO is synthesized rather
// than derived from a path.
func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

var (
	internMu sync.Mutex
	interned = map[string]*Module{} // keyed by path
)

// intern returns the canonical *Module for path (or name when path is
// empty), creating it on first sight; a later call with a different range
// returns the first descriptor unchanged. Descriptors are valid for the
// process lifetime.
func intern(name, path string, rng procfs.Range) *Module {
	internMu.Lock()
	defer internMu.Unlock()

	key := path
	if key == "" {
		key = name
	}
	if m, ok := interned[key]; ok {
		return m
	}
	m := &Module{Name: name, Path: path, Range: rng}
	interned[key] = m
	return m
}

// vdsoModule builds the synthesized vDSO descriptor.
func vdsoModule(rng procfs.Range) *Module {
	return intern(procfs.VDSOSyntheticName, "[vdso]", rng)
}

// looksLikeModulePath applies the proc-maps fallback filter: path starts
// with "/", or is the vDSO pseudo-path, and is not under /dev/.
func looksLikeModulePath(path string) bool {
	if path == "" {
		return false
	}
	if path == "[vdso]" {
		return true
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	if strings.HasPrefix(path, "/dev/") {
		return false
	}
	return true
}
