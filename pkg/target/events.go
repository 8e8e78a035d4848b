package target

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

// HandleEvents 处理WaitAllAndResync返回的线程事件
//
//   - exited or killed threads are unregistered
//   - threads created by clone are waited for and registered
//   - children created by fork or vfork are cleaned of breakpoints,
//     detached and left running
//   - threads that hit a software breakpoint get their instruction pointer
//     moved back onto the breakpoint address, a thread stopped by its own
//     single step is left alone
func (e *Engine) HandleEvents(pid int, events []ThreadStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer clear(e.stepped)

	var errs []error
	for _, ev := range events {
		status := ev.Status
		switch {
		case isGone(status):
			e.threads.remove(ev.Tid)
		case status.Stopped() && status.StopSignal() == unix.SIGTRAP:
			if err := e.handleTrap(pid, ev, events); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) handleTrap(pid int, ev ThreadStatus, events []ThreadStatus) error {
	switch cause := ev.Status.TrapCause(); cause {
	case unix.PTRACE_EVENT_CLONE, unix.PTRACE_EVENT_FORK, unix.PTRACE_EVENT_VFORK:
		msg, err := e.tr.GetEventMsg(ev.Tid)
		if err != nil {
			if errors.Is(err, unix.ESRCH) {
				// thread died while we were adding it
				return nil
			}
			return fmt.Errorf("could not get event message: %w", err)
		}
		child := int(msg)

		// The new task starts with a SIGSTOP, unless it was already
		// collected while resyncing.
		if !slices.ContainsFunc(events, func(s ThreadStatus) bool { return s.Tid == child }) {
			if _, _, err := e.tr.Wait(child, 0); err != nil {
				return fmt.Errorf("wait new task %d: %w", child, err)
			}
		}

		if cause == unix.PTRACE_EVENT_CLONE {
			e.register(child)
			e.log.WithField("tid", child).Debugf("new thread of %d", ev.Tid)
			return nil
		}
		// The child got a copy of the address space with our traps in it.
		for _, bp := range e.breakpoints.enabled() {
			if err := e.tr.PokeData(child, bp.Addr, bp.Orig); err != nil {
				e.log.WithField("pid", child).Warnf("restore original word at %#x: %v", bp.Addr, err)
			}
		}
		e.log.WithField("pid", child).Debugf("detaching forked child of %d", ev.Tid)
		if err := e.tr.Detach(child, 0); err != nil {
			return fmt.Errorf("detach forked child %d: %w", child, err)
		}
	case 0:
		th, ok := e.threads.get(ev.Tid)
		if !ok || ptrace.TrapPCOffset == 0 || e.stepped[ev.Tid] {
			return nil
		}
		if pc := th.PC() - ptrace.TrapPCOffset; e.isEnabled(uintptr(pc)) {
			th.Regs.SetPC(pc)
		}
	}
	return nil
}
