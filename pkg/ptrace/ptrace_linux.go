package ptrace

import (
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/unix"

	"github.com/hitzhangjie/tracectl/pkg/logflags"
)

// Regs is the general purpose register file of the host architecture.
type Regs = sys.PtraceRegs

// TraceOptions is the option set installed by SetTraceOptions: fork, vfork,
// clone, exec and exit become trace events and syscall stops are reported
// with SIGTRAP|0x80.
const TraceOptions = sys.PTRACE_O_TRACEFORK | sys.PTRACE_O_TRACEVFORK | sys.PTRACE_O_TRACESYSGOOD |
	sys.PTRACE_O_TRACECLONE | sys.PTRACE_O_TRACEEXEC | sys.PTRACE_O_TRACEEXIT

func errno(e syscall.Errno) error {
	if e != 0 {
		return e
	}
	return nil
}

func (t *Tracer) do(fn func() error) error {
	var err error
	if xerr := t.exec(func() { err = fn() }); xerr != nil {
		return xerr
	}
	return err
}

// TraceMe marks the tracer thread as traceable by its parent.
func (t *Tracer) TraceMe() error {
	return t.do(func() error {
		_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_TRACEME, 0, 0, 0, 0, 0)
		return errno(e)
	})
}

// Attach executes ptrace(PTRACE_ATTACH).
func (t *Tracer) Attach(tid int) error {
	return t.do(func() error { return sys.PtraceAttach(tid) })
}

// Detach calls ptrace(PTRACE_DETACH) delivering sig to the thread.
func (t *Tracer) Detach(tid, sig int) error {
	return t.do(func() error {
		_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_DETACH, uintptr(tid), 1, uintptr(sig), 0, 0)
		return errno(e)
	})
}

// SetOptions executes ptrace(PTRACE_SETOPTIONS).
func (t *Tracer) SetOptions(pid, options int) error {
	return t.do(func() error { return sys.PtraceSetOptions(pid, options) })
}

// PeekData reads one word of the tracee memory at addr.
func (t *Tracer) PeekData(pid int, addr uintptr) (uint64, error) {
	var word uint64
	err := t.do(func() error {
		_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_PEEKDATA, uintptr(pid), addr, uintptr(unsafe.Pointer(&word)), 0, 0)
		return errno(e)
	})
	return word, err
}

// PokeData writes one word into the tracee memory at addr.
func (t *Tracer) PokeData(pid int, addr uintptr, word uint64) error {
	return t.do(func() error {
		_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_POKEDATA, uintptr(pid), addr, uintptr(word), 0, 0)
		return errno(e)
	})
}

// GetEventMsg executes ptrace(PTRACE_GETEVENTMSG), e.g. the id of a freshly
// cloned thread after PTRACE_EVENT_CLONE.
func (t *Tracer) GetEventMsg(pid int) (uint, error) {
	var msg uint
	err := t.do(func() (err error) {
		msg, err = sys.PtraceGetEventMsg(pid)
		return err
	})
	return msg, err
}

// SingleStep executes ptrace(PTRACE_SINGLESTEP).
func (t *Tracer) SingleStep(tid int) error {
	return t.do(func() error { return sys.PtraceSingleStep(tid) })
}

// Cont executes ptrace(PTRACE_CONT).
func (t *Tracer) Cont(tid, sig int) error {
	return t.do(func() error { return sys.PtraceCont(tid, sig) })
}

// Syscall executes ptrace(PTRACE_SYSCALL): the thread is resumed and stops
// again at the next syscall entry or exit.
func (t *Tracer) Syscall(tid, sig int) error {
	return t.do(func() error { return sys.PtraceSyscall(tid, sig) })
}

// Wait waits for a state change of pid. pid follows waitpid(2) semantics,
// a negative value waits for any thread in process group -pid. __WALL is
// always added to options.
//
// Waits are not issued on the tracer thread: a blocking wait must not hold
// up unrelated requests.
func (t *Tracer) Wait(pid, options int) (int, sys.WaitStatus, error) {
	var ws sys.WaitStatus
	wpid, err := sys.Wait4(pid, &ws, sys.WALL|options, nil)
	if logflags.Ptrace() {
		t.log.Debugf("wait4(%d, %#x) = %d, status %#x, err %v", pid, options, wpid, uint32(ws), err)
	}
	return wpid, ws, err
}

// Tgkill sends sig to thread tid of thread group pid.
func (t *Tracer) Tgkill(pid, tid int, sig syscall.Signal) error {
	return sys.Tgkill(pid, tid, sig)
}

// Getpgid returns the process group of pid.
func (t *Tracer) Getpgid(pid int) (int, error) {
	return sys.Getpgid(pid)
}

// getRegset executes ptrace(PTRACE_GETREGSET) for note type nt into buf.
// It must be called on the tracer thread.
func getRegset(tid int, nt uintptr, buf unsafe.Pointer, size int) error {
	iov := sys.Iovec{Base: (*byte)(buf)}
	iov.SetLen(size)
	_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_GETREGSET, uintptr(tid), nt, uintptr(unsafe.Pointer(&iov)), 0, 0)
	return errno(e)
}

// setRegset executes ptrace(PTRACE_SETREGSET), see getRegset.
func setRegset(tid int, nt uintptr, buf unsafe.Pointer, size int) error {
	iov := sys.Iovec{Base: (*byte)(buf)}
	iov.SetLen(size)
	_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_SETREGSET, uintptr(tid), nt, uintptr(unsafe.Pointer(&iov)), 0, 0)
	return errno(e)
}
