package target

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		status unix.WaitStatus
		want   string
	}{
		{exitStatus(0), "exited: 0"},
		{exitStatus(7), "exited: 7"},
		{unix.WaitStatus(unix.SIGKILL), "signaled: killed"},
		{stopStatus(unix.SIGSTOP), "stopped: stopped (signal)"},
		{stopStatus(unix.SIGTRAP), "stopped: trace/breakpoint trap"},
		{eventStatus(unix.PTRACE_EVENT_CLONE), "stopped: trace/breakpoint trap (clone)"},
		{eventStatus(unix.PTRACE_EVENT_EXIT), "stopped: trace/breakpoint trap (exit)"},
		{stopStatus(unix.SIGTRAP | 0x80), "stopped: syscall"},
		{unix.WaitStatus(0xffff), "continued"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.status), "status %#x", uint32(tt.status))
	}
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, isStepRace(stopStatus(unix.SIGSTOP)))
	assert.False(t, isStepRace(stopStatus(unix.SIGTRAP)))
	assert.False(t, isStepRace(exitStatus(0)))
	// the raw value observed for the race on x86-64 Linux
	assert.True(t, isStepRace(unix.WaitStatus(4991)))

	assert.True(t, isSyscallStop(stopStatus(unix.SIGTRAP|0x80)))
	assert.False(t, isSyscallStop(stopStatus(unix.SIGTRAP)))

	assert.True(t, isGone(exitStatus(1)))
	assert.True(t, isGone(unix.WaitStatus(unix.SIGSEGV)))
	assert.False(t, isGone(stopStatus(unix.SIGSEGV)))
}

func TestWaitError(t *testing.T) {
	err := error(&WaitError{Pid: 12, Err: unix.ECHILD})
	assert.Equal(t, "wait for process group of 12: no child processes", err.Error())
	assert.True(t, errors.Is(err, unix.ECHILD))
}

func TestThreadStatusString(t *testing.T) {
	s := ThreadStatus{Tid: 9, Status: exitStatus(2)}
	assert.Equal(t, "thread 9 exited: 2", s.String())
}

func TestWaitThreadGivesUpOnDeadLeader(t *testing.T) {
	f := newFakeTracer(testPid)
	e := newTestEngine(f)

	_, err := e.waitThread(testPid, testPid)
	assert.Equal(t, ErrThreadExited, err)
}
