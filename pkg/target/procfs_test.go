package target

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProcFile(t *testing.T, pid int, name, content string) {
	t.Helper()
	dir := filepath.Join(procRoot, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	t.Cleanup(func() { os.RemoveAll(dir) })
}

func TestProcComm(t *testing.T) {
	writeProcFile(t, 400, "comm", "server\n")
	comm, err := ProcComm(400)
	require.NoError(t, err)
	assert.Equal(t, "server", comm)
}

func TestProcCommFromStat(t *testing.T) {
	writeProcFile(t, 401, "stat", "401 (my (odd) name) S 1 401 401 0")
	comm, err := ProcComm(401)
	require.NoError(t, err)
	assert.Equal(t, "my (odd) name", comm)
}

func TestProcCommMissing(t *testing.T) {
	_, err := ProcComm(402)
	assert.Error(t, err)
}

func TestProcArgs(t *testing.T) {
	writeProcFile(t, 403, "cmdline", "/bin/server\x00-port\x008080\x00")
	args, err := ProcArgs(403)
	require.NoError(t, err)
	assert.Equal(t, []string{"-port", "8080"}, args)

	writeProcFile(t, 404, "cmdline", "")
	args, err = ProcArgs(404)
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestProcThreadsSorted(t *testing.T) {
	makeTasks(t, 405, 1000, 405, 411)
	tids, err := ProcThreads(405)
	require.NoError(t, err)
	assert.Equal(t, []int{405, 411, 1000}, tids)
}

func TestProcState(t *testing.T) {
	writeProcFile(t, 406, "stat", "406 (a) b) t 1 406")
	assert.Equal(t, rune(statusTraceStop), procState(406))
	assert.True(t, ProcAlive(406))

	writeProcFile(t, 407, "stat", "407 (zombie) Z 1 407\n")
	assert.Equal(t, rune(statusZombie), procState(407))
	assert.False(t, ProcAlive(407))

	assert.Equal(t, '\000', procState(408))
	assert.False(t, ProcAlive(408))

	assert.Equal(t, "t", ProcState(406))
	assert.Equal(t, "?", ProcState(408))
}
