package target

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

// Tracer is the kernel boundary used by the Engine. *ptrace.Tracer is the
// production implementation.
type Tracer interface {
	TraceMe() error
	Attach(tid int) error
	Detach(tid, sig int) error
	SetOptions(pid, options int) error

	GetRegs(tid int, regs *ptrace.Regs) error
	SetRegs(tid int, regs *ptrace.Regs) error
	GetExtendedRegs(tid int, regs *ptrace.ExtendedRegs) error
	SetExtendedRegs(tid int, regs *ptrace.ExtendedRegs) error

	PeekData(pid int, addr uintptr) (uint64, error)
	PokeData(pid int, addr uintptr, word uint64) error
	PeekUser(pid int, slot uintptr) (uint64, error)
	PokeUser(pid int, slot uintptr, val uint64) error
	GetEventMsg(pid int) (uint, error)

	SingleStep(tid int) error
	Cont(tid, sig int) error
	Syscall(tid, sig int) error

	Wait(pid, options int) (int, unix.WaitStatus, error)
	Tgkill(pid, tid int, sig syscall.Signal) error
	Getpgid(pid int) (int, error)
}

var _ Tracer = (*ptrace.Tracer)(nil)
