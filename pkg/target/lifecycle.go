package target

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

// TraceMe 标记当前进程可被其父进程跟踪
func (e *Engine) TraceMe() error {
	return e.tr.TraceMe()
}

// Attach 开始跟踪一个正在运行的进程（准确地说是线程）
func (e *Engine) Attach(pid int) error {
	return e.tr.Attach(pid)
}

// SetTraceOptions reports fork, vfork, clone, exec and exit of pid as trace
// events and tags syscall stops.
func (e *Engine) SetTraceOptions(pid int) error {
	return e.tr.SetOptions(pid, ptrace.TraceOptions)
}

// AttachProcess attaches to every thread listed under /proc/pid/task,
// waits for each to stop and registers it.
func (e *Engine) AttachProcess(pid int) error {
	tids, err := ProcThreads(pid)
	if err != nil {
		return fmt.Errorf("load threads: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, tid := range tids {
		if _, ok := e.threads.get(tid); ok {
			continue
		}
		if err := e.tr.Attach(tid); err != nil {
			if tid == pid {
				return fmt.Errorf("process %d attached error: %w", pid, err)
			}
			// Threads created meanwhile are traced through
			// PTRACE_O_TRACECLONE already, attaching again fails.
			e.log.WithField("tid", tid).Debugf("attach: %v", err)
			continue
		}
		status, err := e.waitThread(pid, tid)
		if err != nil {
			e.log.WithField("tid", tid).Warnf("wait after attach: %v", err)
			continue
		}
		if isGone(status) {
			e.log.WithField("tid", tid).Debugf("thread already exited")
			continue
		}
		if err := e.tr.SetOptions(tid, ptrace.TraceOptions); err != nil {
			e.log.WithField("tid", tid).Warnf("set trace options: %v", err)
		}
		e.register(tid).Status = status
	}
	return nil
}

// ensureStopped makes sure th is in a trace stop. It reports whether the
// thread was stopped already.
func (e *Engine) ensureStopped(pid int, th *Thread) (bool, error) {
	var regs ptrace.Regs
	if err := e.tr.GetRegs(th.Tid, &regs); err == nil {
		return true, nil
	}
	status, err := e.forceStop(pid, th.Tid)
	if err != nil {
		return false, err
	}
	th.Status = status
	return false, nil
}

// DetachAll 停止、detach并杀死进程pid的所有线程，线程组leader最后处理
//
// The registry and the breakpoint table are empty afterwards.
func (e *Engine) DetachAll(pid int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, th := range e.threads.detachOrder(pid) {
		log := e.log.WithField("tid", th.Tid)
		if _, err := e.ensureStopped(pid, th); err != nil {
			log.Warnf("stop thread: %v", err)
		}
		if err := e.tr.Detach(th.Tid, 0); err != nil {
			log.Warnf("detach: %v", err)
			errs = append(errs, fmt.Errorf("detach thread %d: %w", th.Tid, err))
		}
		if err := e.tr.Tgkill(pid, th.Tid, unix.SIGKILL); err != nil {
			log.Debugf("kill: %v", err)
		}
	}
	if _, _, err := e.tr.Wait(pid, 0); err != nil {
		e.log.WithField("pid", pid).Debugf("wait after detach: %v", err)
	}

	e.release()
	return errors.Join(errs...)
}

// DetachForMigration 停止并detach所有线程，进程继续运行，便于交给外部工具
//
// Cached registers of threads that were already stopped are written back
// first, the others get their cache refreshed. Enabled breakpoints have
// their original words restored so the detached process does not trap.
// The registry is kept for ReattachFromExternal.
func (e *Engine) DetachForMigration(pid int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	threads := e.threads.detachOrder(pid)
	for _, th := range threads {
		log := e.log.WithField("tid", th.Tid)
		stopped, err := e.ensureStopped(pid, th)
		switch {
		case err != nil:
			log.Warnf("stop thread: %v", err)
		case stopped:
			if err := e.tr.SetRegs(th.Tid, &th.Regs); err != nil {
				log.Warnf("flush registers: %v", err)
			}
		default:
			if err := e.tr.GetRegs(th.Tid, &th.Regs); err != nil {
				log.Warnf("refresh registers: %v", err)
			}
		}
	}

	for _, bp := range e.breakpoints.enabled() {
		if err := e.tr.PokeData(pid, bp.Addr, bp.Orig); err != nil {
			e.log.WithField("addr", fmt.Sprintf("%#x", bp.Addr)).Warnf("restore original word: %v", err)
		}
	}

	var errs []error
	for _, th := range threads {
		if err := e.tr.Detach(th.Tid, 0); err != nil {
			e.log.WithField("tid", th.Tid).Warnf("detach: %v", err)
			errs = append(errs, fmt.Errorf("detach thread %d: %w", th.Tid, err))
		}
	}
	return errors.Join(errs...)
}

// ReattachFromExternal 重新跟踪所有已注册线程并刷新寄存器缓存
//
// Failures are collected per thread and do not stop the others. Threads
// that no longer exist are unregistered.
func (e *Engine) ReattachFromExternal(pid int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, th := range e.threads.list() {
		log := e.log.WithField("tid", th.Tid)
		if err := e.tr.Attach(th.Tid); err != nil {
			if errors.Is(err, unix.ESRCH) {
				e.threads.remove(th.Tid)
			}
			errs = append(errs, fmt.Errorf("attach thread %d: %w", th.Tid, err))
			continue
		}
		status, err := e.waitThread(pid, th.Tid)
		if err != nil {
			errs = append(errs, fmt.Errorf("wait thread %d: %w", th.Tid, err))
			continue
		}
		th.Status = status
		if err := e.tr.SetOptions(th.Tid, ptrace.TraceOptions); err != nil {
			log.Warnf("set trace options: %v", err)
		}
		if err := e.tr.GetRegs(th.Tid, &th.Regs); err != nil {
			errs = append(errs, fmt.Errorf("read registers of thread %d: %w", th.Tid, err))
		}
	}
	return errors.Join(errs...)
}
