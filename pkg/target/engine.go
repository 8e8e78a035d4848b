// Package target implements execution control over a traced process: the
// thread registry, the software breakpoint table, stepping, continuing and
// the stop protocol that brings every thread of a process to a halt.
//
// All register writes are deferred: callers modify the cached snapshot of
// a Thread and the Engine flushes every snapshot right before it resumes
// any thread.
package target

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hitzhangjie/tracectl/pkg/logflags"
	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

var (
	ErrThreadNotFound = errors.New("thread not registered")
	ErrThreadExited   = errors.New("thread exited")
)

// Engine 被调试进程的执行控制状态
type Engine struct {
	mu sync.Mutex

	tr  Tracer
	geo ptrace.XstateGeometry

	threads      *threadRegistry
	breakpoints  Breakpoints
	syscallHooks bool

	// threads single stepped since the last resume, their SIGTRAP is a
	// step trap and never a breakpoint hit
	stepped map[int]bool

	log *logrus.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithSyscallHooks makes ContinueAll resume threads with PTRACE_SYSCALL.
func WithSyscallHooks(on bool) Option {
	return func(e *Engine) { e.syscallHooks = on }
}

// WithLogger replaces the target layer logger.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine 创建执行控制引擎，geo为启动时探测到的扩展寄存器布局
func NewEngine(tr Tracer, geo ptrace.XstateGeometry, opts ...Option) *Engine {
	e := &Engine{
		tr:      tr,
		geo:     geo,
		threads: newThreadRegistry(),
		stepped: map[int]bool{},
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = logflags.TargetLogger()
	}
	return e
}

// SetSyscallHooks 设置恢复执行时是否在系统调用处停止
func (e *Engine) SetSyscallHooks(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syscallHooks = on
}

// SyscallHooks reports whether syscall stops are enabled.
func (e *Engine) SyscallHooks() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syscallHooks
}

// ----------------------------------------------------------------------------

// RegisterThread 返回线程tid的信息，首次注册时读取一次寄存器
//
// A failed initial read is logged, the thread stays registered and its
// snapshot is refreshed at the next stop.
func (e *Engine) RegisterThread(tid int) (*Thread, error) {
	if tid <= 0 {
		return nil, fmt.Errorf("invalid thread id %d", tid)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.register(tid), nil
}

func (e *Engine) register(tid int) *Thread {
	if th, ok := e.threads.get(tid); ok {
		return th
	}
	th := &Thread{Tid: tid}
	e.geo.Init(&th.Ext)
	if err := e.tr.GetRegs(tid, &th.Regs); err != nil {
		e.log.WithField("tid", tid).Warnf("initial register read: %v", err)
	}
	th, _ = e.threads.add(th)
	return th
}

// Thread 查找已注册的线程
func (e *Engine) Thread(tid int) (*Thread, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	th, ok := e.threads.get(tid)
	if !ok {
		return nil, ErrThreadNotFound
	}
	return th, nil
}

// UnregisterThread 移除线程tid，不存在时忽略
func (e *Engine) UnregisterThread(tid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threads.remove(tid)
}

// ClearThreads drops every registered thread.
func (e *Engine) ClearThreads() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threads.clear()
}

// Threads lists the registered threads in registration order.
func (e *Engine) Threads() []*Thread {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threads.list()
}

// ----------------------------------------------------------------------------

// ReadExtendedRegs refreshes and returns the extended register snapshot of tid.
func (e *Engine) ReadExtendedRegs(tid int) (*ptrace.ExtendedRegs, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	th, ok := e.threads.get(tid)
	if !ok {
		return nil, ErrThreadNotFound
	}
	if err := e.tr.GetExtendedRegs(tid, &th.Ext); err != nil {
		return nil, err
	}
	return &th.Ext, nil
}

// WriteExtendedRegs writes the cached extended register snapshot of tid back.
func (e *Engine) WriteExtendedRegs(tid int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	th, ok := e.threads.get(tid)
	if !ok {
		return ErrThreadNotFound
	}
	return e.tr.SetExtendedRegs(tid, &th.Ext)
}

// ReadDebugReg reads hardware debug register slot of pid.
func (e *Engine) ReadDebugReg(pid int, slot uintptr) (uint64, error) {
	return e.tr.PeekUser(pid, slot)
}

// WriteDebugReg writes val into hardware debug register slot of pid.
func (e *Engine) WriteDebugReg(pid int, slot uintptr, val uint64) error {
	return e.tr.PokeUser(pid, slot, val)
}

// PeekWord 读取内存地址addr处的一个字
func (e *Engine) PeekWord(pid int, addr uintptr) (uint64, error) {
	return e.tr.PeekData(pid, addr)
}

// PokeWord 写入内存地址addr处的一个字
func (e *Engine) PokeWord(pid int, addr uintptr, word uint64) error {
	return e.tr.PokeData(pid, addr, word)
}

// ----------------------------------------------------------------------------

// InstallBreakpoint 在地址addr处添加断点并立即写入陷阱指令
//
// Installing an existing breakpoint only enables it again, the original
// word recorded at first install is kept. Bytes of the word that lie under
// the traps of neighbouring breakpoints are recorded with the original
// bytes those traps replaced.
func (e *Engine) InstallBreakpoint(pid int, addr uintptr) (*Breakpoint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if bp, ok := e.breakpoints.Find(addr); ok {
		bp.Enabled = true
		return bp, nil
	}

	live, err := e.tr.PeekData(pid, addr)
	if err != nil {
		return nil, fmt.Errorf("peek data at %#x: %w", addr, err)
	}
	// neighbouring traps stay in memory
	if err := e.tr.PokeData(pid, addr, ptrace.PatchWord(live)); err != nil {
		return nil, fmt.Errorf("poke data at %#x: %w", addr, err)
	}

	orig := e.breakpoints.original(addr, live)
	bp := newBreakpoint(addr, orig, ptrace.PatchWord(orig))
	e.breakpoints.insert(bp)
	return bp, nil
}

// UninstallBreakpoint 删除addr处的断点，不恢复内存
func (e *Engine) UninstallBreakpoint(addr uintptr) (*Breakpoint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bp, ok := e.breakpoints.remove(addr)
	if !ok {
		return nil, ErrBreakpointNotExisted
	}
	return bp, nil
}

// EnableBreakpoint marks the breakpoint at addr enabled, the trap is
// written at the next ContinueAll. Unknown addresses are ignored.
func (e *Engine) EnableBreakpoint(addr uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if bp, ok := e.breakpoints.Find(addr); ok {
		bp.Enabled = true
	}
}

// DisableBreakpoint marks the breakpoint at addr disabled and restores the
// original bytes under its trap, the rest of the word is left as it is in
// memory. Unknown addresses are ignored.
func (e *Engine) DisableBreakpoint(pid int, addr uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	bp, ok := e.breakpoints.Find(addr)
	if !ok || !bp.Enabled {
		return nil
	}
	bp.Enabled = false
	live, err := e.tr.PeekData(pid, addr)
	if err != nil {
		return fmt.Errorf("peek data at %#x: %w", addr, err)
	}
	if err := e.tr.PokeData(pid, addr, restoreTrap(live, bp.Orig)); err != nil {
		return fmt.Errorf("restore data at %#x: %w", addr, err)
	}
	return nil
}

// ClearBreakpoints 删除所有断点，不恢复内存
func (e *Engine) ClearBreakpoints() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.breakpoints = nil
}

// Breakpoints returns a copy of the breakpoint table in address order.
func (e *Engine) Breakpoints() Breakpoints {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(Breakpoints, 0, len(e.breakpoints))
	for _, bp := range e.breakpoints {
		cp := *bp
		out = append(out, &cp)
	}
	return out
}

// Release drops every thread and breakpoint of the traced process.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release()
}

func (e *Engine) release() {
	e.threads.clear()
	e.breakpoints = nil
}
