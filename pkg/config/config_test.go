package config

import (
	"os"
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	home := withHome(t)

	c, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = os.Stat(filepath.Join(home, configDir, configFile))
	assert.NoError(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
log: true
log-output: target,ptrace
syscall-hooks: true
step-limit: -1
disasm-syntax: intel
aliases:
  continue: ["go"]
`), 0600))

	c, err := LoadFile(viper.New(), path)
	require.NoError(t, err)
	assert.True(t, c.Log)
	assert.Equal(t, "target,ptrace", c.LogOutput)
	assert.True(t, c.SyscallHooks)
	assert.Equal(t, -1, c.StepLimit)
	assert.Equal(t, "intel", c.DisasmSyntax)
	assert.Equal(t, []string{"go"}, c.Aliases["continue"])
}

func TestLoadFileFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("disasm-syntax: intel\n"), 0600))

	v := viper.New()
	v.Set("disasm-syntax", "go")
	c, err := LoadFile(v, path)
	require.NoError(t, err)
	assert.Equal(t, "go", c.DisasmSyntax)
	assert.Equal(t, 10000, c.StepLimit)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("aliases: [unterminated\n"), 0600))

	_, err := LoadFile(viper.New(), path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	c := Default()
	c.StepLimit = 42
	c.Aliases["stepuntil"] = []string{"su"}
	require.NoError(t, Save(path, c))

	got, err := LoadFile(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
