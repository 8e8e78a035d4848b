package target

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Unbounded disables the step cap of StepUntil.
const Unbounded = -1

// flushRegs writes every cached register snapshot back to the kernel. A
// failure on one thread is logged and the others are still written.
func (e *Engine) flushRegs() {
	for _, th := range e.threads.list() {
		if err := e.tr.SetRegs(th.Tid, &th.Regs); err != nil {
			e.log.WithField("tid", th.Tid).Warnf("flush registers: %v", err)
		}
	}
}

// refreshRegs reads every registered thread's registers into its cache.
func (e *Engine) refreshRegs() {
	for _, th := range e.threads.list() {
		if err := e.tr.GetRegs(th.Tid, &th.Regs); err != nil {
			e.log.WithField("tid", th.Tid).Warnf("refresh registers: %v", err)
		}
	}
}

// SingleStep 单步执行线程tid的一条指令，不等待其停止
func (e *Engine) SingleStep(tid int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushRegs()
	if err := e.tr.SingleStep(tid); err != nil {
		return err
	}
	e.stepped[tid] = true
	return nil
}

// StepUntil 单步执行线程tid直到pc等于addr，或者完成maxSteps次有效单步
//
// Steps that leave the instruction pointer unchanged are not counted.
// maxSteps < 0 removes the cap.
func (e *Engine) StepUntil(tid int, addr uint64, maxSteps int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	th, ok := e.threads.get(tid)
	if !ok {
		return ErrThreadNotFound
	}
	e.flushRegs()

	for count := 0; maxSteps < 0 || count < maxSteps; {
		if err := e.tr.SingleStep(tid); err != nil {
			return fmt.Errorf("single step thread %d: %w", tid, err)
		}
		_, status, err := e.tr.Wait(tid, 0)
		if err != nil {
			return fmt.Errorf("wait thread %d: %w", tid, err)
		}
		th.Status = status
		if isGone(status) {
			e.threads.remove(tid)
			return ErrThreadExited
		}

		prev := th.PC()
		if err := e.tr.GetRegs(tid, &th.Regs); err != nil {
			return fmt.Errorf("read registers of thread %d: %w", tid, err)
		}
		if th.PC() == addr {
			break
		}
		if th.PC() == prev {
			continue
		}
		count++
	}
	return nil
}

// ContinueAll 恢复所有线程执行，返回最后一次单步越过断点时观察到的wait status
//
// Threads sitting on an enabled breakpoint are first stepped past it, then
// the traps of all enabled breakpoints are written and every thread is
// resumed.
func (e *Engine) ContinueAll(pid int) (unix.WaitStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushRegs()
	clear(e.stepped)

	var last unix.WaitStatus
	for _, th := range e.threads.list() {
		if !e.isEnabled(uintptr(th.PC())) {
			continue
		}
		status, err := e.stepOver(th)
		if err != nil {
			return last, err
		}
		last = status
	}

	for _, bp := range e.breakpoints.enabled() {
		if err := e.tr.PokeData(pid, bp.Addr, bp.Patched); err != nil {
			e.log.WithField("addr", fmt.Sprintf("%#x", bp.Addr)).Warnf("install trap: %v", err)
		}
	}

	for _, th := range e.threads.list() {
		var err error
		if e.syscallHooks {
			err = e.tr.Syscall(th.Tid, 0)
		} else {
			err = e.tr.Cont(th.Tid, 0)
		}
		if err != nil {
			e.log.WithField("tid", th.Tid).Warnf("resume: %v", err)
		}
	}
	return last, nil
}

func (e *Engine) isEnabled(addr uintptr) bool {
	bp, ok := e.breakpoints.Find(addr)
	return ok && bp.Enabled
}

// stepOver single steps th and waits for it. A SIGSTOP reported in place
// of the step trap is absorbed by stepping once more.
func (e *Engine) stepOver(th *Thread) (unix.WaitStatus, error) {
	status, err := e.stepAndWait(th.Tid)
	if err != nil {
		return status, err
	}
	if isStepRace(status) {
		status, err = e.stepAndWait(th.Tid)
		if err != nil {
			return status, err
		}
	}
	th.Status = status
	return status, nil
}

func (e *Engine) stepAndWait(tid int) (unix.WaitStatus, error) {
	if err := e.tr.SingleStep(tid); err != nil {
		return 0, fmt.Errorf("step thread %d over breakpoint: %w", tid, err)
	}
	_, status, err := e.tr.Wait(tid, 0)
	if err != nil {
		return 0, fmt.Errorf("wait thread %d: %w", tid, err)
	}
	return status, nil
}

// WaitAllAndResync 等待进程中任意线程停止，然后停止其余所有线程
//
// The statuses collected are returned most recent first. Afterwards every
// registered thread has fresh registers and the original words of all
// enabled breakpoints are back in memory.
func (e *Engine) WaitAllAndResync(pid int) ([]ThreadStatus, error) {
	pgid, err := e.tr.Getpgid(pid)
	if err != nil {
		return nil, &WaitError{Pid: pid, Err: err}
	}

	// The first wait blocks until the target stops, it is issued without
	// holding the lock so Release stays callable meanwhile.
	wpid, status, err := e.tr.Wait(-pgid, 0)
	if err != nil {
		return nil, &WaitError{Pid: pid, Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	results := []ThreadStatus{{Tid: wpid, Status: status}}
	e.record(wpid, status)

	var scratch Thread
	for _, th := range e.threads.list() {
		if th.Tid == wpid {
			continue
		}
		if err := e.tr.GetRegs(th.Tid, &scratch.Regs); err == nil {
			continue
		}
		status, err := e.forceStop(pid, th.Tid)
		if err != nil {
			e.log.WithField("tid", th.Tid).Warnf("stop thread: %v", err)
			continue
		}
		results = prepend(results, ThreadStatus{Tid: th.Tid, Status: status})
		e.record(th.Tid, status)
	}

	for {
		wpid, status, err := e.tr.Wait(-pgid, unix.WNOHANG)
		if err != nil || wpid <= 0 {
			break
		}
		results = prepend(results, ThreadStatus{Tid: wpid, Status: status})
		e.record(wpid, status)
	}

	e.refreshRegs()

	for _, bp := range e.breakpoints.enabled() {
		if err := e.tr.PokeData(pid, bp.Addr, bp.Orig); err != nil {
			e.log.WithField("addr", fmt.Sprintf("%#x", bp.Addr)).Warnf("restore original word: %v", err)
		}
	}
	return results, nil
}

// forceStop sends SIGSTOP to a running thread and waits for it.
func (e *Engine) forceStop(pid, tid int) (unix.WaitStatus, error) {
	if err := e.tr.Tgkill(pid, tid, unix.SIGSTOP); err != nil {
		return 0, err
	}
	return e.waitThread(pid, tid)
}

// record stores status on the thread it belongs to, if registered.
func (e *Engine) record(tid int, status unix.WaitStatus) {
	if th, ok := e.threads.get(tid); ok {
		th.Status = status
	}
}

func prepend(s []ThreadStatus, ts ThreadStatus) []ThreadStatus {
	return append([]ThreadStatus{ts}, s...)
}
