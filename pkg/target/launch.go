package target

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

// Launch starts execName with args, traced by tr and stopped before its
// first instruction.
//
// The child gets its own process group, WaitAllAndResync waits on it.
// PTRACE_TRACEME is issued by the child itself between fork and exec, see
// SysProcAttr.Ptrace.
func Launch(tr *ptrace.Tracer, execName string, args ...string) (*os.Process, error) {
	progCmd := exec.Command(execName, args...)
	progCmd.Stdin = os.Stdin
	progCmd.Stdout = os.Stdout
	progCmd.Stderr = os.Stderr
	progCmd.SysProcAttr = &syscall.SysProcAttr{
		Ptrace:     true, // implies PTRACE_TRACEME
		Setpgid:    true,
		Foreground: false,
	}
	progCmd.Env = os.Environ()

	// the tracer of the child is the thread that forked it
	var err error
	if rerr := tr.Run(func() { err = progCmd.Start() }); rerr != nil {
		return nil, rerr
	}
	if err != nil {
		return nil, err
	}

	pid := progCmd.Process.Pid
	_, status, err := tr.Wait(pid, 0)
	if err != nil {
		return nil, fmt.Errorf("wait process %d: %w", pid, err)
	}
	if !status.Stopped() {
		return nil, fmt.Errorf("process %d not stopped after exec: %s", pid, Describe(status))
	}
	return progCmd.Process, nil
}
