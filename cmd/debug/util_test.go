package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
	"github.com/hitzhangjie/tracectl/pkg/target"
)

func TestCurrentProcessNone(t *testing.T) {
	saved := target.DBPProcess
	defer func() { target.DBPProcess = saved }()

	target.DBPProcess = nil
	_, err := currentProcess()
	assert.ErrorIs(t, err, errNoProcess)
}

// stoppedTracer answers register and detach requests of an always stopped
// thread, any other request panics on the nil Tracer.
type stoppedTracer struct {
	target.Tracer
	detached []int
}

func (s *stoppedTracer) GetRegs(tid int, regs *ptrace.Regs) error { return nil }
func (s *stoppedTracer) SetRegs(tid int, regs *ptrace.Regs) error { return nil }
func (s *stoppedTracer) Detach(tid, sig int) error {
	s.detached = append(s.detached, tid)
	return nil
}

func TestCurrentProcessMigrated(t *testing.T) {
	saved := target.DBPProcess
	defer func() { target.DBPProcess = saved }()

	tr := &stoppedTracer{}
	dbp := &target.Process{
		Engine: target.NewEngine(tr, ptrace.XstateGeometry{}),
		Pid:    100,
		Kind:   target.ATTACH,
	}
	_, err := dbp.RegisterThread(100)
	require.NoError(t, err)
	target.DBPProcess = dbp

	got, err := currentProcess()
	require.NoError(t, err)
	assert.Same(t, dbp, got)

	require.NoError(t, dbp.Migrate())
	assert.Equal(t, []int{100}, tr.detached)

	_, err = currentProcess()
	assert.ErrorIs(t, err, target.ErrMigrated)
	for name, args := range map[string][]string{
		"break":    {"0x1000"},
		"continue": nil,
		"step":     nil,
		"regs":     nil,
		"peek":     {"0x1000"},
		"clearall": nil,
	} {
		cmd, _, err := debugRootCmd.Find([]string{name})
		require.NoError(t, err, name)
		require.NotNil(t, cmd.RunE, name)
		assert.ErrorIs(t, cmd.RunE(cmd, args), target.ErrMigrated, name)
	}

	got, err = lookupProcess()
	require.NoError(t, err)
	assert.Same(t, dbp, got)
}

func TestParseTid(t *testing.T) {
	dbp := &target.Process{Pid: 100}

	tid, err := parseTid(dbp, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, tid)

	tid, err = parseTid(dbp, []string{"102"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 102, tid)

	_, err = parseTid(dbp, []string{"0"}, 0)
	assert.Error(t, err)
	_, err = parseTid(dbp, []string{"abc"}, 0)
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	for in, want := range map[string]uint64{"0x401000": 0x401000, "4096": 4096, "010": 8} {
		got, err := parseAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseAddress("main.main")
	assert.Error(t, err)
}

func TestStepLimit(t *testing.T) {
	saved := Config.StepLimit
	defer func() { Config.StepLimit = saved }()
	Config.StepLimit = 42

	max, err := stepLimit([]string{"100", "0x1000"})
	require.NoError(t, err)
	assert.Equal(t, 42, max)

	max, err = stepLimit([]string{"100", "0x1000", "-1"})
	require.NoError(t, err)
	assert.Equal(t, target.Unbounded, max)

	_, err = stepLimit([]string{"100", "0x1000", "-2"})
	assert.Error(t, err)
}

func TestPrintEvents(t *testing.T) {
	var buf bytes.Buffer
	printEvents(&buf, nil)
	assert.Equal(t, "no thread changed state\n", buf.String())

	buf.Reset()
	printEvents(&buf, []target.ThreadStatus{{Tid: 101, Status: unix.WaitStatus(0x7f | int(unix.SIGTRAP)<<8)}})
	assert.Contains(t, buf.String(), "thread 101 stopped")
}

func TestPrintBreakpoints(t *testing.T) {
	var buf bytes.Buffer
	printBreakpoints(&buf, nil)
	assert.Equal(t, "no breakpoints\n", buf.String())

	buf.Reset()
	printBreakpoints(&buf, target.Breakpoints{
		{ID: 1, Addr: 0x1000, Orig: 0x90, Enabled: true},
		{ID: 2, Addr: 0x1008, Orig: 0x90},
	})
	out := buf.String()
	assert.Contains(t, out, "0x1000")
	assert.Contains(t, out, "enabled")
	assert.Contains(t, out, "disabled")
}

func TestSetRegister(t *testing.T) {
	var regs ptrace.Regs
	require.NoError(t, setRegister(&regs, pcRegName, 0x401000))
	assert.Equal(t, uint64(0x401000), regs.PC())

	require.NoError(t, setRegister(&regs, strings.ToUpper(pcRegName), 0x401001))
	assert.Equal(t, uint64(0x401001), regs.PC())

	assert.Error(t, setRegister(&regs, "nosuch", 1))

	var buf bytes.Buffer
	printRegs(&buf, &regs)
	assert.Contains(t, buf.String(), pcRegName)
	assert.Contains(t, buf.String(), "0x401001")
}
