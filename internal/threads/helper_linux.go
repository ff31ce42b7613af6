//go:build linux

// helper_linux.go is the Thread Modifier's "hardest piece":
// it spawns a sibling task outside the caller's thread group (raw clone,
// CLONE_VM|CLONE_SETTLS, deliberately without CLONE_THREAD) because Linux
// forbids a task from ptracing another task in its own thread group. The
// sibling ptrace-attaches to the target TID on the parent's behalf.
//
// Uses unix.RawSyscall6(unix.SYS_CLONE, ...) directly; the child branch
// (tid == 0) calls a plain Go function and then syscall.Exit(0), never
// returning through a library epilogue. Attach uses unix.PtraceAttach;
// detach uses unix.Syscall6(unix.SYS_PTRACE, ...) to pass a signal.
//
// Deliberate simplification: the child here is an ordinary (if very
// careful) Go function rather than a hand-written assembly stub with no
// heap allocation, while keeping every byte the child touches in non-GC
// (mmap'd) memory — see helperShared below.
package threads

import (
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xyproto/inproc/internal/dumpable"
)

// One-byte ack protocol, step 5.
const (
	ackReady = iota + 1
	ackReadContext
	ackModifiedContext
	ackWroteContext
	ackAttachFailed
	ackWaitFailed
	ackReadFailed
	ackWriteFailed
	ackDetachFailed
)

const (
	ptraceGetRegSet = 0x4204
	ptraceSetRegSet = 0x4205
	ntPRStatus      = 1
)

// regsetLatch memoizes whether PTRACE_GETREGSET/SETREGSET work on this
// kernel: a process-wide one-way latch, true→false only, guarded by mu.
var regsetLatch struct {
	mu      sync.Mutex
	probed  bool
	working bool
}

func regsetSupported() bool {
	regsetLatch.mu.Lock()
	defer regsetLatch.mu.Unlock()
	if !regsetLatch.probed {
		regsetLatch.probed = true
		regsetLatch.working = true
	}
	return regsetLatch.working
}

func markRegsetUnsupported() {
	regsetLatch.mu.Lock()
	regsetLatch.working = false
	regsetLatch.mu.Unlock()
}

// helperShared is the scratch region the cloned sibling and the parent
// both touch while CLONE_VM keeps them in one address space. It lives in
// an anonymous mmap rather than ordinary Go-heap memory so a moving GC
// can never relocate it out from under the sibling task, which the Go
// runtime does not know exists.
type helperShared struct {
	targetTID int64
	result    int64    // ack code the child last recorded, read by the parent for diagnostics
	regWords  [40]uint64 // oversized scratch for unix.PtraceRegs on any supported arch
}

func newHelperShared() (*helperShared, []byte, error) {
	size := int(unsafe.Sizeof(helperShared{}))
	pageSize := unix.Getpagesize()
	mapSize := ((size + pageSize - 1) / pageSize) * pageSize
	data, err := unix.Mmap(-1, 0, mapSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, nil, err
	}
	return (*helperShared)(unsafe.Pointer(&data[0])), data, nil
}

func freeHelperShared(data []byte) { unix.Munmap(data) }

// crossThreadModify modifies tid's CPU context via ptrace from a cloned
// helper task, which is outside the caller's thread group and so may
// ptrace any thread of it. It is only reached for a tid other than the
// calling thread's own: ModifyThread rejects the same-thread case before
// calling it.
func crossThreadModify(tid int32, cb func(CPUContext)) bool {
	shared, mem, err := newHelperShared()
	if err != nil {
		return false
	}
	defer freeHelperShared(mem)
	shared.targetTID = int64(tid)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return false
	}
	parentFD, childFD := fds[0], fds[1]

	stack, err := unix.Mmap(-1, 0, 256*1024, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_STACK)
	if err != nil {
		unix.Close(parentFD)
		unix.Close(childFD)
		return false
	}
	defer unix.Munmap(stack)
	stackTop := uintptr(unsafe.Pointer(&stack[len(stack)-16]))

	release := dumpable.Acquire()
	defer release()

	childPid, _, errno := unix.RawSyscall6(unix.SYS_CLONE,
		uintptr(unix.CLONE_VM|unix.CLONE_SETTLS), stackTop, 0, 0, 0, 0)
	if errno != 0 {
		unix.Close(parentFD)
		unix.Close(childFD)
		return false
	}

	if childPid == 0 {
		// Child: a sibling task outside the parent's thread group
		// (no CLONE_THREAD). Never return through a library epilogue
		// — invoke exit directly.
		unix.Close(parentFD)
		runHelperChild(int(childFD), shared)
		syscall.Exit(0)
	}

	unix.Close(childFD)
	defer unix.Close(parentFD)

	if err := setPtracer(int(childPid)); err != nil {
		waitHelper(int(childPid))
		return false
	}

	ok := runParentProtocol(parentFD, shared, cb)
	waitHelper(int(childPid))
	return ok
}

func waitHelper(pid int) {
	var ws unix.WaitStatus
	unix.Wait4(pid, &ws, 0, nil)
}

const prSetPtracer = 0x59616d61 // PR_SET_PTRACER

func setPtracer(childPid int) error {
	_, _, errno := unix.Syscall(unix.SYS_PRCTL, prSetPtracer, uintptr(childPid), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func runParentProtocol(fd int, shared *helperShared, cb func(CPUContext)) bool {
	if !writeAck(fd, ackReady) {
		return false
	}
	if ack := readAck(fd); ack != ackReadContext {
		return false
	}

	ctx := nativeContext()
	copyWordsToContext(ctx, shared.regWords[:])
	cb(ctx)
	copyContextToWords(ctx, shared.regWords[:])

	if !writeAck(fd, ackModifiedContext) {
		return false
	}
	return readAck(fd) == ackWroteContext
}

func writeAck(fd int, code byte) bool {
	buf := [1]byte{code}
	n, err := unix.Write(fd, buf[:])
	return err == nil && n == 1
}

func readAck(fd int) byte {
	var buf [1]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || n != 1 {
			return 0
		}
		return buf[0]
	}
}

// runHelperChild is the sibling task's entire job: attach, wait for stop,
// read registers (regset preferred, classic fallback memoized), hand
// control back to the parent for the callback, write registers back,
// detach. Any step failing reports a distinct ack and still attempts a
// best-effort detach before exiting.
func runHelperChild(fd int, shared *helperShared) {
	if readAck(fd) != ackReady {
		return
	}

	tid := int(shared.targetTID)

	if err := unix.PtraceAttach(tid); err != nil {
		writeAck(fd, ackAttachFailed)
		return
	}

	var ws unix.WaitStatus
	if _, err := unix.Wait4(tid, &ws, 0, nil); err != nil {
		bestEffortDetach(tid)
		writeAck(fd, ackWaitFailed)
		return
	}
	if !ws.Stopped() {
		bestEffortDetach(tid)
		writeAck(fd, ackWaitFailed)
		return
	}

	if err := getRegs(tid, shared.regWords[:]); err != nil {
		bestEffortDetach(tid)
		writeAck(fd, ackReadFailed)
		return
	}

	if !writeAck(fd, ackReadContext) {
		bestEffortDetach(tid)
		return
	}
	if readAck(fd) != ackModifiedContext {
		bestEffortDetach(tid)
		return
	}

	if err := setRegs(tid, shared.regWords[:]); err != nil {
		bestEffortDetach(tid)
		writeAck(fd, ackWriteFailed)
		return
	}

	if err := ptraceDetachSig(tid, int(unix.SIGCONT)); err != nil {
		writeAck(fd, ackDetachFailed)
		return
	}

	writeAck(fd, ackWroteContext)
}

// ptraceDetachSig issues PTRACE_DETACH with an explicit signal: a detached
// thread must resume with SIGCONT to actually run again, but x/sys/unix's
// PtraceDetach always passes signal 0.
func ptraceDetachSig(tid int, sig int) error {
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, unix.PTRACE_DETACH, uintptr(tid), 0, uintptr(sig), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func bestEffortDetach(tid int) {
	_ = ptraceDetachSig(tid, 0)
}

// getRegs prefers PTRACE_GETREGSET(NT_PRSTATUS) and falls back to the
// classic PTRACE_GETREGS after the first non-EPERM/non-ESRCH failure,
// memoized process-wide.
func getRegs(tid int, words []uint64) error {
	if regsetSupported() {
		iov := unix.Iovec{Base: (*byte)(unsafe.Pointer(&words[0])), Len: uint64(len(words) * 8)}
		_, _, errno := unix.Syscall6(unix.SYS_PTRACE, ptraceGetRegSet, uintptr(tid), ntPRStatus, uintptr(unsafe.Pointer(&iov)), 0, 0)
		if errno == 0 {
			return nil
		}
		if errno != unix.EPERM && errno != unix.ESRCH {
			markRegsetUnsupported()
		} else {
			return errno
		}
	}
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(tid, &regs); err != nil {
		return err
	}
	copyStructToWords(&regs, words)
	return nil
}

func setRegs(tid int, words []uint64) error {
	if regsetSupported() {
		iov := unix.Iovec{Base: (*byte)(unsafe.Pointer(&words[0])), Len: uint64(len(words) * 8)}
		_, _, errno := unix.Syscall6(unix.SYS_PTRACE, ptraceSetRegSet, uintptr(tid), ntPRStatus, uintptr(unsafe.Pointer(&iov)), 0, 0)
		if errno == 0 {
			return nil
		}
		if errno != unix.EPERM && errno != unix.ESRCH {
			markRegsetUnsupported()
		} else {
			return errno
		}
	}
	var regs unix.PtraceRegs
	copyWordsToStruct(words, &regs)
	return unix.PtraceSetRegs(tid, &regs)
}

func copyStructToWords(regs *unix.PtraceRegs, words []uint64) {
	n := int(unsafe.Sizeof(*regs)) / 8
	src := unsafe.Slice((*uint64)(unsafe.Pointer(regs)), n)
	copy(words, src)
}

func copyWordsToStruct(words []uint64, regs *unix.PtraceRegs) {
	n := int(unsafe.Sizeof(*regs)) / 8
	dst := unsafe.Slice((*uint64)(unsafe.Pointer(regs)), n)
	copy(dst, words)
}
