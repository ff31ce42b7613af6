// enumerate.go is the Thread Enumerator: list /proc/self/task, read each
// thread's name/state.
package threads

import (
	"os"
	"strconv"
	"strings"

	"github.com/xyproto/inproc/internal/errs"
	"golang.org/x/sys/unix"
)

// Action mirrors modules.Action: the boolean "continue" callback
// convention used throughout this module.
type Action int

const (
	Continue Action = iota
	Stop
)

type ThreadCallback func(*Descriptor) Action

// EnumerateThreads lists every task under /proc/self/task. This is a
// snapshot: threads created during enumeration may or may
// not appear, matching the guarantee /proc/self/task listing gives.
func EnumerateThreads(cb ThreadCallback) error {
	entries, err := os.ReadDir("/proc/self/task")
	if err != nil {
		return errs.New(errs.Failed, "threads.EnumerateThreads", err)
	}
	for _, e := range entries {
		tid64, err := strconv.ParseInt(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		tid := int32(tid64)
		d := &Descriptor{ID: tid, Name: readCommName(tid), State: readState(tid)}
		if cb(d) == Stop {
			return nil
		}
	}
	return nil
}

// readCommName reads /proc/self/task/<tid>/comm, trailing
// newline stripped.
func readCommName(tid int32) string {
	data, err := os.ReadFile("/proc/self/task/" + strconv.Itoa(int(tid)) + "/comm")
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(data), "\n")
}

// readState reads the single state character out of /proc/<tid>/stat: the
// first character past the last ')'.
func readState(tid int32) ThreadState {
	data, err := os.ReadFile("/proc/self/task/" + strconv.Itoa(int(tid)) + "/stat")
	if err != nil {
		return StateUnknown
	}
	s := string(data)
	idx := strings.LastIndexByte(s, ')')
	if idx < 0 || idx+2 >= len(s) {
		return StateUnknown
	}
	return stateFromStatChar(s[idx+2])
}

// ThreadSuspend/ThreadResume send SIGSTOP/SIGCONT directly to one thread
// via tgkill, independent of the ptrace-based Thread Modifier path.
func ThreadSuspend(tid int32) error {
	if err := unix.Tgkill(os.Getpid(), int(tid), unix.SIGSTOP); err != nil {
		return errs.New(errs.Failed, "threads.ThreadSuspend", err)
	}
	return nil
}

func ThreadResume(tid int32) error {
	if err := unix.Tgkill(os.Getpid(), int(tid), unix.SIGCONT); err != nil {
		return errs.New(errs.Failed, "threads.ThreadResume", err)
	}
	return nil
}

// IsTraced reports whether a debugger is already attached, by scanning
// /proc/self/status for "TracerPid:".
func IsTraced() bool {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "TracerPid:") {
			fields := strings.Fields(line)
			if len(fields) == 2 && fields[1] != "0" {
				return true
			}
		}
	}
	return false
}
