// Package inproc re-exports the public surface of the process-introspection
// and code-injection core: module/range enumeration, symbol resolution,
// thread enumeration and cross-thread register modification, and the
// executable-memory allocator and deflector engine. Each operation is a
// thin forwarding call into the package that actually implements it — this
// file exists so callers depend on one import instead of the whole
// internal/ tree.
package inproc

import (
	"github.com/xyproto/inproc/internal/codealloc"
	"github.com/xyproto/inproc/internal/deflect"
	"github.com/xyproto/inproc/internal/modules"
	"github.com/xyproto/inproc/internal/procfs"
	"github.com/xyproto/inproc/internal/threads"
)

// Range, ProgramModules, RTLD kinds.
type (
	Range          = procfs.Range
	ProgramModules = procfs.ModuleRanges
	RTLDKind       = procfs.RTLDKind
)

const (
	RTLDNone   = procfs.RTLDNone
	RTLDShared = procfs.RTLDShared
)

// QueryProgramModules returns the memoized program/interpreter/vDSO record.
func QueryProgramModules() (ProgramModules, error) { return procfs.QueryProgramModules() }

// Module, enumeration.
type (
	Module         = modules.Module
	ModuleAction   = modules.Action
	ModuleCallback = modules.Callback
)

const (
	ModuleContinue = modules.Continue
	ModuleStop     = modules.Stop
)

// EnumerateModules walks loaded modules.
func EnumerateModules(cb ModuleCallback) error { return modules.EnumerateModules(cb) }

// ModuleFindExport resolves a (module, symbol) pair to an address.
func ModuleFindExport(moduleName, symbolName string) (uint64, error) {
	return modules.ModuleFindExport(moduleName, symbolName)
}

// ModuleEnsureInitialized forces constructor execution for a module.
func ModuleEnsureInitialized(moduleName string) error {
	return modules.ModuleEnsureInitialized(moduleName)
}

// Thread enumeration and modification.
type (
	ThreadDescriptor = threads.Descriptor
	ThreadState      = threads.ThreadState
	CPUContext       = threads.CPUContext
	ThreadAction     = threads.Action
	ThreadCallback   = threads.ThreadCallback
)

const (
	ThreadContinue = threads.Continue
	ThreadStop     = threads.Stop
)

// EnumerateThreads lists this process's threads.
func EnumerateThreads(cb ThreadCallback) error { return threads.EnumerateThreads(cb) }

// ModifyThread runs cb with mutable access to tid's CPU context, with the
// target thread suspended for the duration.
func ModifyThread(tid int32, cb func(CPUContext)) bool { return threads.ModifyThread(tid, cb) }

// ThreadSuspend/ThreadResume send SIGSTOP/SIGCONT directly to one thread.
func ThreadSuspend(tid int32) error { return threads.ThreadSuspend(tid) }
func ThreadResume(tid int32) error  { return threads.ThreadResume(tid) }

// IsTraced reports whether a debugger is attached to this process.
func IsTraced() bool { return threads.IsTraced() }

// Code Slice Allocator.
type (
	CodeAllocator = codealloc.Allocator
	CodeSlice     = codealloc.Slice
	AddressSpec   = codealloc.AddressSpec
)

// NewCodeAllocator builds a Code Slice Allocator. Pass
// rwxAvailable=false on W^X-enforcing hosts.
func NewCodeAllocator(sliceSize int, rwxAvailable bool) *CodeAllocator {
	return codealloc.New(sliceSize, rwxAvailable)
}

// Code Deflector Engine.
type (
	Cave       = deflect.Cave
	Dispatcher = deflect.Dispatcher
)

// FindCave locates a code cave within maxDistance of near.
func FindCave(near uintptr, maxDistance uintptr) (Cave, error) {
	return deflect.FindCave(near, maxDistance)
}

// InstallDeflector builds a dispatcher at cave.
func InstallDeflector(cave Cave) (*Dispatcher, error) { return deflect.Install(cave) }

// DeflectSupported reports whether this build's architecture has a
// trampoline encoder.
func DeflectSupported() bool { return deflect.Supported() }
