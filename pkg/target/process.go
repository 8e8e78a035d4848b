package target

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

// Kind 发起调试的类型
type Kind int

const (
	EXEC   Kind = iota // 由调试器启动
	ATTACH             // attach到运行中的进程
)

func (k Kind) String() string {
	if k == ATTACH {
		return "attach"
	}
	return "exec"
}

var DBPProcess *Process

// ErrMigrated is returned for requests against a process handed over by
// Migrate.
var ErrMigrated = errors.New("process is migrated, reattach first")

// Process 被调试进程信息
type Process struct {
	*Engine

	Pid     int      // 进程ID，同时也是线程组leader的线程ID
	Command string   // 进程启动命令，方便重启调试
	Args    []string // 进程启动参数，方便重启调试
	Kind    Kind     // 发起调试的类型

	tracer   *ptrace.Tracer
	migrated bool // detached by Migrate, waiting for Reattach
}

// NewProcess 启动并跟踪可执行程序cmd，进程停在第一条指令处
func NewProcess(cmd string, args []string, opts ...Option) (*Process, error) {
	geo := ptrace.ProbeXstate()
	tr := ptrace.NewTracer(geo)

	proc, err := Launch(tr, cmd, args...)
	if err != nil {
		tr.Close()
		return nil, err
	}

	p := &Process{
		Engine:  NewEngine(tr, geo, opts...),
		Pid:     proc.Pid,
		Command: cmd,
		Args:    args,
		Kind:    EXEC,
		tracer:  tr,
	}
	// trace newly created threads and children
	if err := p.SetTraceOptions(p.Pid); err != nil {
		p.kill()
		return nil, fmt.Errorf("set trace options: %w", err)
	}
	if _, err := p.RegisterThread(p.Pid); err != nil {
		p.kill()
		return nil, err
	}
	return p, nil
}

// AttachTargetProcess trace一个运行中的进程的所有线程
func AttachTargetProcess(pid int, opts ...Option) (*Process, error) {
	if !ProcAlive(pid) {
		return nil, fmt.Errorf("process %d not existed", pid)
	}

	geo := ptrace.ProbeXstate()
	tr := ptrace.NewTracer(geo)
	p := &Process{
		Engine: NewEngine(tr, geo, opts...),
		Pid:    pid,
		Kind:   ATTACH,
		tracer: tr,
	}
	if err := p.AttachProcess(pid); err != nil {
		tr.Close()
		return nil, err
	}

	// initialize the command and arguments,
	// after then, we could support restart command.
	var err error
	if p.Command, err = ProcComm(pid); err != nil {
		p.Engine.log.Warnf("read command of %d: %v", pid, err)
	}
	if p.Args, err = ProcArgs(pid); err != nil {
		p.Engine.log.Warnf("read arguments of %d: %v", pid, err)
	}
	return p, nil
}

// Continue 恢复所有线程执行，等待进程再次停止
func (p *Process) Continue() ([]ThreadStatus, error) {
	if _, err := p.ContinueAll(p.Pid); err != nil {
		return nil, err
	}
	return p.resync()
}

// Step 单步执行线程tid，等待进程再次停止
func (p *Process) Step(tid int) ([]ThreadStatus, error) {
	if err := p.SingleStep(tid); err != nil {
		return nil, err
	}
	return p.resync()
}

func (p *Process) resync() ([]ThreadStatus, error) {
	events, err := p.WaitAllAndResync(p.Pid)
	if err != nil {
		return nil, err
	}
	if err := p.HandleEvents(p.Pid, events); err != nil {
		p.Engine.log.Warnf("handle events: %v", err)
	}
	return events, nil
}

// Exited reports whether the thread group leader is gone.
func (p *Process) Exited() bool {
	_, err := p.Thread(p.Pid)
	return errors.Is(err, ErrThreadNotFound)
}

// ReadMemory 读取内存地址addr处的数据，并存储到buf中，函数返回实际读取的字节数
func (p *Process) ReadMemory(addr uintptr, buf []byte) (int, error) {
	var word [8]byte
	n := 0
	for n < len(buf) {
		w, err := p.PeekWord(p.Pid, addr+uintptr(n))
		if err != nil {
			return n, err
		}
		binary.LittleEndian.PutUint64(word[:], w)
		n += copy(buf[n:], word[:])
	}
	return n, nil
}

// Migrate detaches from the process and leaves it running, Reattach takes
// over again.
//
// The process counts as migrated even if some threads failed to detach,
// only Reattach and Cleanup are meaningful afterwards.
func (p *Process) Migrate() error {
	if p.migrated {
		return ErrMigrated
	}
	p.migrated = true
	return p.DetachForMigration(p.Pid)
}

// Reattach 重新跟踪Migrate之后的进程
func (p *Process) Reattach() error {
	if !p.migrated {
		return errors.New("process is not migrated")
	}
	if err := p.ReattachFromExternal(p.Pid); err != nil {
		return err
	}
	p.migrated = false
	return nil
}

// Migrated reports whether the process was handed over by Migrate and not
// taken back yet.
func (p *Process) Migrated() bool {
	return p.migrated
}

// Cleanup 结束调试：由调试器启动的进程被杀死，attach的进程则被detach后继续运行
func (p *Process) Cleanup() error {
	defer p.closeTracer()

	// the threads are not traced any more, only the process is left to kill
	if p.migrated {
		var err error
		if p.Kind == EXEC {
			err = p.tr.Tgkill(p.Pid, p.Pid, unix.SIGKILL)
		}
		p.Release()
		return err
	}

	if p.Kind == EXEC {
		return p.DetachAll(p.Pid)
	}
	err := p.DetachForMigration(p.Pid)
	p.Release()
	return err
}

func (p *Process) kill() {
	if proc, err := os.FindProcess(p.Pid); err == nil {
		proc.Kill()
		proc.Wait()
	}
	p.closeTracer()
}

func (p *Process) closeTracer() {
	if p.tracer != nil {
		p.tracer.Close()
	}
}
