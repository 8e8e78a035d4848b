package target

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

var leaderPollInterval = 200 * time.Millisecond

// ThreadStatus is one (thread, wait status) pair collected while bringing a
// process to a stop.
type ThreadStatus struct {
	Tid    int
	Status unix.WaitStatus
}

func (s ThreadStatus) String() string {
	return fmt.Sprintf("thread %d %s", s.Tid, Describe(s.Status))
}

// WaitError is returned by WaitAllAndResync when the wait for the first
// stop event fails, e.g. because the process group is gone.
type WaitError struct {
	Pid int
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("wait for process group of %d: %v", e.Pid, e.Err)
}

func (e *WaitError) Unwrap() error {
	return e.Err
}

// Describe 返回wait status的可读描述
func Describe(status unix.WaitStatus) string {
	switch {
	case status.Continued():
		return "continued"
	case status.Exited():
		return "exited: " + strconv.Itoa(status.ExitStatus())
	case status.Signaled():
		if status.CoreDump() {
			return "signaled: " + status.Signal().String() + " (core dumped)"
		}
		return "signaled: " + status.Signal().String()
	case isSyscallStop(status):
		return "stopped: syscall"
	case status.Stopped():
		if ev := status.TrapCause(); ev > 0 {
			return "stopped: " + status.StopSignal().String() + " (" + eventName(ev) + ")"
		}
		return "stopped: " + status.StopSignal().String()
	default:
		return strconv.Itoa(int(status))
	}
}

func eventName(ev int) string {
	switch ev {
	case unix.PTRACE_EVENT_FORK:
		return "fork"
	case unix.PTRACE_EVENT_VFORK:
		return "vfork"
	case unix.PTRACE_EVENT_CLONE:
		return "clone"
	case unix.PTRACE_EVENT_EXEC:
		return "exec"
	case unix.PTRACE_EVENT_VFORK_DONE:
		return "vfork done"
	case unix.PTRACE_EVENT_EXIT:
		return "exit"
	default:
		return "event " + strconv.Itoa(ev)
	}
}

// isStepRace reports the stop a thread may report instead of the trap of a
// single step when other threads of the process are being stopped
// concurrently.
func isStepRace(status unix.WaitStatus) bool {
	return status.Stopped() && status.StopSignal() == unix.SIGSTOP
}

// isSyscallStop reports a syscall entry or exit stop, tagged with
// SIGTRAP|0x80 once PTRACE_O_TRACESYSGOOD is set.
func isSyscallStop(status unix.WaitStatus) bool {
	return status.Stopped() && status.StopSignal() == unix.SIGTRAP|0x80
}

func isGone(status unix.WaitStatus) bool {
	return status.Exited() || status.Signaled()
}

// waitThread blocks until tid of process pid reports a status.
//
// A blocking wait on a thread group leader that exited while other threads
// live on never returns, so the leader is polled instead and given up on
// once it became a zombie.
// References:
// https://sourceware.org/bugzilla/show_bug.cgi?id=12702
// https://sourceware.org/bugzilla/show_bug.cgi?id=10095
func (e *Engine) waitThread(pid, tid int) (unix.WaitStatus, error) {
	if tid != pid {
		_, status, err := e.tr.Wait(tid, 0)
		return status, err
	}
	for {
		wpid, status, err := e.tr.Wait(tid, unix.WNOHANG)
		if err != nil {
			return 0, err
		}
		if wpid != 0 {
			return status, nil
		}
		if !ProcAlive(tid) {
			return 0, ErrThreadExited
		}
		time.Sleep(leaderPollInterval)
	}
}
