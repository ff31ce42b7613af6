// modify.go is the Thread Modifier's public entry point.
package threads

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ptraceRegsHolder is implemented by every ISA's CPUContext (see
// context_amd64.go / context_arm64.go) to expose the underlying
// unix.PtraceRegs for the raw get/set copy in helper_linux.go.
type ptraceRegsHolder interface {
	ptraceRegsPtr() unsafe.Pointer
	ptraceRegsSize() int
}

func copyWordsToContext(ctx CPUContext, words []uint64) {
	h := ctx.(ptraceRegsHolder)
	n := h.ptraceRegsSize() / 8
	dst := unsafe.Slice((*uint64)(h.ptraceRegsPtr()), n)
	copy(dst, words[:n])
}

func copyContextToWords(ctx CPUContext, words []uint64) {
	h := ctx.(ptraceRegsHolder)
	n := h.ptraceRegsSize() / 8
	src := unsafe.Slice((*uint64)(h.ptraceRegsPtr()), n)
	copy(words[:n], src)
}

// ModifyThread runs cb with mutable access to tid's CPU context, with the
// target thread suspended for the duration, returning false if any step of
// the ptrace protocol failed. The caller does not learn which ack step
// failed — the condition is transient and usually worth a retry.
//
// tid equal to the calling OS thread's own tid is rejected up front rather
// than attempted: ptrace-attaching to your own thread stops the very
// thread that would otherwise drive the handshake in runParentProtocol,
// so the cloned helper's readAck never gets its reply and both sides hang
// forever. Self-modification would need a signal-trampoline register
// capture instead of ptrace, which this module does not implement.
func ModifyThread(tid int32, cb func(CPUContext)) bool {
	if tid == int32(unix.Gettid()) {
		return false
	}
	return crossThreadModify(tid, cb)
}
