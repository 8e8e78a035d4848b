package ptrace

import (
	"os"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sys "golang.org/x/sys/unix"
)

func TestExecRunsOnOneThread(t *testing.T) {
	tr := NewTracer(ProbeXstate())
	defer tr.Close()

	var first, second int
	require.NoError(t, tr.exec(func() { first = sys.Gettid() }))
	require.NoError(t, tr.exec(func() { second = sys.Gettid() }))
	assert.Equal(t, first, second)
}

func TestTracerKeepsPtraceLogger(t *testing.T) {
	tr := NewTracer(ProbeXstate())
	defer tr.Close()

	require.NotNil(t, tr.log)
	assert.Equal(t, "ptrace", tr.log.Data["layer"])

	log := tr.log
	_, _, err := tr.Wait(-1, sys.WNOHANG)
	assert.Error(t, err)
	assert.Same(t, log, tr.log)
}

func TestClosedTracer(t *testing.T) {
	tr := NewTracer(ProbeXstate())
	tr.Close()
	tr.Close()

	assert.Equal(t, ErrTracerClosed, tr.Attach(os.Getpid()))
	_, err := tr.PeekData(os.Getpid(), 0)
	assert.Equal(t, ErrTracerClosed, err)
}

func TestRequestsOnUntracedProcessFail(t *testing.T) {
	tr := NewTracer(ProbeXstate())
	defer tr.Close()

	var regs Regs
	err := tr.GetRegs(os.Getpid(), &regs)
	assert.Error(t, err)
	assert.Error(t, tr.SingleStep(os.Getpid()))
}

// TestTraceChild runs a stopped child under the tracer, peeks and pokes
// one word of its memory and resumes it.
func TestTraceChild(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available")
	}

	tr := NewTracer(ProbeXstate())
	defer tr.Close()

	var cmd *exec.Cmd
	var startErr error
	require.NoError(t, tr.exec(func() {
		cmd = exec.Command("true")
		cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
		startErr = cmd.Start()
	}))
	if startErr != nil {
		t.Skipf("cannot start traced child: %v", startErr)
	}
	pid := cmd.Process.Pid

	wpid, ws, err := tr.Wait(pid, 0)
	require.NoError(t, err)
	require.Equal(t, pid, wpid)
	require.True(t, ws.Stopped())
	require.Equal(t, sys.SIGTRAP, ws.StopSignal())

	require.NoError(t, tr.SetOptions(pid, TraceOptions))

	var regs Regs
	require.NoError(t, tr.GetRegs(pid, &regs))
	pc := uintptr(regs.PC())

	word, err := tr.PeekData(pid, pc)
	require.NoError(t, err)
	require.NoError(t, tr.PokeData(pid, pc, PatchWord(word)))
	patched, err := tr.PeekData(pid, pc)
	require.NoError(t, err)
	assert.Equal(t, PatchWord(word), patched)
	require.NoError(t, tr.PokeData(pid, pc, word))

	require.NoError(t, tr.SetRegs(pid, &regs))
	require.NoError(t, tr.Cont(pid, 0))

	for {
		_, ws, err = tr.Wait(pid, 0)
		require.NoError(t, err)
		if ws.Exited() {
			break
		}
		require.NoError(t, tr.Cont(pid, 0))
	}
	assert.Equal(t, 0, ws.ExitStatus())
}
