package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

func callsWithPrefix(f *fakeTracer, prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func TestLifecyclePassThrough(t *testing.T) {
	f := newFakeTracer(testPid)
	e := newStoppedProcess(t, f, 100)

	require.NoError(t, e.TraceMe())
	require.NoError(t, e.SetTraceOptions(100))
	assert.Equal(t, ptrace.TraceOptions, f.options[100])
	assert.Equal(t, unix.ESRCH, e.Attach(999))
}

func TestDetachAll(t *testing.T) {
	f := newFakeTracer(testPid)
	f.mem[0x1000] = 0x90
	e := newStoppedProcess(t, f, 100, 101, 102)
	_, err := e.InstallBreakpoint(testPid, 0x1000)
	require.NoError(t, err)
	f.threads[101].stopped = false
	f.calls = nil

	require.NoError(t, e.DetachAll(testPid))

	assert.Equal(t, []string{"detach 101", "detach 102", "detach 100"}, callsWithPrefix(f, "detach"))
	assert.Equal(t, []string{
		fmt.Sprintf("tgkill 101 %d", int(unix.SIGSTOP)),
		fmt.Sprintf("tgkill 101 %d", int(unix.SIGKILL)),
		fmt.Sprintf("tgkill 102 %d", int(unix.SIGKILL)),
		fmt.Sprintf("tgkill 100 %d", int(unix.SIGKILL)),
	}, callsWithPrefix(f, "tgkill"))
	assert.Empty(t, e.Threads())
	assert.Empty(t, e.Breakpoints())
}

func TestDetachAllReportsFailures(t *testing.T) {
	f := newFakeTracer(testPid)
	e := newStoppedProcess(t, f, 100, 101)
	delete(f.threads, 101)

	err := e.DetachAll(testPid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, unix.ESRCH))
	assert.Equal(t, []string{"detach 100"}, callsWithPrefix(f, "detach"))
	assert.Empty(t, e.Threads())
}

func TestDetachForMigration(t *testing.T) {
	f := newFakeTracer(testPid)
	f.mem[0x1000] = 0x90
	e := newStoppedProcess(t, f, 100, 101)
	_, err := e.InstallBreakpoint(testPid, 0x1000)
	require.NoError(t, err)

	leader, _ := e.Thread(100)
	leader.Regs.SetPC(0x5555)
	f.threads[101].stopped = false
	f.threads[101].regs.SetPC(0xbeef)
	f.calls = nil

	require.NoError(t, e.DetachForMigration(testPid))

	assert.Equal(t, uint64(0x5555), f.threads[100].regs.PC())
	th, _ := e.Thread(101)
	assert.Equal(t, uint64(0xbeef), th.PC())
	assert.Equal(t, uint64(0x90), f.mem[0x1000])
	assert.Equal(t, []string{"detach 101", "detach 100"}, callsWithPrefix(f, "detach"))
	assert.Equal(t, -1, f.indexOf(fmt.Sprintf("tgkill 100 %d", int(unix.SIGKILL))))
	assert.Len(t, e.Threads(), 2)
	assert.Len(t, e.Breakpoints(), 1)
}

func TestReattachFromExternal(t *testing.T) {
	f := newFakeTracer(testPid)
	e := newStoppedProcess(t, f, 100, 101, 102)
	require.NoError(t, e.DetachForMigration(testPid))

	// 101 exited while detached, 102 moved on
	delete(f.threads, 101)
	f.threads[102].regs.SetPC(0x4242)
	f.calls = nil

	err := e.ReattachFromExternal(testPid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, unix.ESRCH))

	assert.Equal(t, []string{"attach 100", "attach 102"}, callsWithPrefix(f, "attach"))
	assert.Equal(t, []int{100, 102}, tids(e.Threads()))
	th, _ := e.Thread(102)
	assert.Equal(t, uint64(0x4242), th.PC())
	assert.Equal(t, stopStatus(unix.SIGSTOP), th.Status)
	assert.Equal(t, ptrace.TraceOptions, f.options[102])
}

func TestReattachKeepsGoingOnAttachFailure(t *testing.T) {
	f := newFakeTracer(testPid)
	e := newStoppedProcess(t, f, 100, 101)
	require.NoError(t, e.DetachForMigration(testPid))
	f.failAttach[100] = unix.EPERM

	err := e.ReattachFromExternal(testPid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, unix.EPERM))
	assert.Equal(t, []int{100, 101}, tids(e.Threads()))
	assert.True(t, f.threads[101].stopped)
}

func makeTasks(t *testing.T, pid int, tids ...int) {
	t.Helper()
	for _, tid := range tids {
		require.NoError(t, os.MkdirAll(filepath.Join(procRoot, strconv.Itoa(pid), "task", strconv.Itoa(tid)), 0755))
	}
	t.Cleanup(func() { os.RemoveAll(filepath.Join(procRoot, strconv.Itoa(pid))) })
}

func TestAttachProcess(t *testing.T) {
	const pid = 300
	makeTasks(t, pid, 300, 301, 302)

	f := newFakeTracer(pid)
	for _, tid := range []int{300, 301, 302} {
		f.addThread(tid, uint64(tid), false)
	}
	f.failAttach[302] = unix.EPERM
	e := newTestEngine(f)

	require.NoError(t, e.AttachProcess(pid))
	assert.Equal(t, []int{300, 301}, tids(e.Threads()))
	for _, th := range e.Threads() {
		assert.Equal(t, uint64(th.Tid), th.PC())
		assert.Equal(t, stopStatus(unix.SIGSTOP), th.Status)
		assert.Equal(t, ptrace.TraceOptions, f.options[th.Tid])
	}
}

func TestAttachProcessLeaderFails(t *testing.T) {
	const pid = 310
	makeTasks(t, pid, 310)

	f := newFakeTracer(pid)
	f.addThread(310, 0, false)
	f.failAttach[310] = unix.EPERM
	e := newTestEngine(f)

	err := e.AttachProcess(pid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, unix.EPERM))
	assert.Empty(t, e.Threads())
}

func TestAttachProcessMissing(t *testing.T) {
	e := newTestEngine(newFakeTracer(320))
	assert.Error(t, e.AttachProcess(320))
}

func TestReleaseDropsEverything(t *testing.T) {
	f := newFakeTracer(testPid)
	f.mem[0x1000] = 1
	e := newStoppedProcess(t, f, 100, 101)
	_, err := e.InstallBreakpoint(testPid, 0x1000)
	require.NoError(t, err)

	e.Release()
	assert.Empty(t, e.Threads())
	assert.Empty(t, e.Breakpoints())
}
