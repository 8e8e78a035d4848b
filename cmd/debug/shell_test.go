package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitzhangjie/tracectl/pkg/config"
)

func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "help [command]", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		&cobra.Command{
			Use:         "continue",
			Short:       "continue",
			Aliases:     []string{"c"},
			Annotations: map[string]string{cmdGroupAnnotation: cmdGroupCtrlFlow},
			Run:         func(cmd *cobra.Command, args []string) {},
		},
		&cobra.Command{
			Use:         "clear",
			Short:       "clear",
			Annotations: map[string]string{cmdGroupAnnotation: cmdGroupBreakpoints},
			Run:         func(cmd *cobra.Command, args []string) {},
		},
		&cobra.Command{
			Use:         "break <addr>",
			Short:       "break",
			Annotations: map[string]string{cmdGroupAnnotation: cmdGroupBreakpoints},
			Run:         func(cmd *cobra.Command, args []string) {},
		},
		&cobra.Command{
			Use:   "version",
			Short: "version",
			Run:   func(cmd *cobra.Command, args []string) {},
		},
	)
	return root
}

func TestHelpMessageByGroups(t *testing.T) {
	msg := helpMessageByGroups(newTestRoot())

	breaks := strings.Index(msg, "- [breaks]")
	execute := strings.Index(msg, "- [execute]")
	other := strings.Index(msg, "- [other]")
	require.True(t, breaks >= 0 && execute >= 0 && other >= 0, msg)
	assert.Less(t, breaks, execute)
	assert.Less(t, execute, other)

	// commands are sorted inside a group
	assert.Less(t, strings.Index(msg, "  break "), strings.Index(msg, "  clear "))
	// commands without a group land in other
	assert.Greater(t, strings.Index(msg, "  version "), other)
}

func TestCompleter(t *testing.T) {
	root := newTestRoot()
	applyAliases(root, map[string][]string{"continue": {"cont"}, "break": {"b"}})
	words := commandWords(root)

	assert.Equal(t, []string{"c", "clear", "cont", "continue"}, completer(words, "c"))
	assert.Equal(t, []string{"cont", "continue"}, completer(words, "con"))
	assert.Empty(t, completer(words, "x"))
	assert.Empty(t, completer(words, "break 0x"))
}

func TestApplyAliases(t *testing.T) {
	root := newTestRoot()
	applyAliases(root, map[string][]string{"continue": {"c", "go"}, "nosuch": {"n"}})

	cmd, _, err := root.Find([]string{"go"})
	require.NoError(t, err)
	assert.Equal(t, "continue", cmd.Name())
	assert.Equal(t, []string{"c", "go"}, cmd.Aliases)
}

func TestSplitLine(t *testing.T) {
	args, err := splitLine(`poke 0x1000   0x90`)
	require.NoError(t, err)
	assert.Equal(t, []string{"poke", "0x1000", "0x90"}, args)

	args, err = splitLine(`break "0x10 00"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"break", "0x10 00"}, args)

	_, err = splitLine("regs | grep rip")
	assert.Error(t, err)

	_, err = splitLine("regs `id`")
	assert.Error(t, err)
}

func TestResetFlags(t *testing.T) {
	root := newTestRoot()
	sub := &cobra.Command{Use: "disass", Run: func(cmd *cobra.Command, args []string) {}}
	sub.Flags().IntP("max", "n", 10, "")
	root.AddCommand(sub)

	args := []string{"disass", "-n", "3"}
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	max, _ := sub.Flags().GetInt("max")
	assert.Equal(t, 3, max)

	resetFlags(root, args)
	max, _ = sub.Flags().GetInt("max")
	assert.Equal(t, 10, max)
	assert.False(t, sub.Flags().Lookup("max").Changed)
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{
		"break", "breaks", "enable", "disable", "clear", "clearall",
		"step", "stepuntil", "continue", "syscalls",
		"threads", "regs", "setreg", "fpregs",
		"peek", "poke", "dr", "disass",
		"migrate", "reattach", "exit",
	} {
		cmd, _, err := debugRootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		assert.NotEmpty(t, cmd.Annotations[cmdGroupAnnotation], name)
	}
}

func TestAddAlias(t *testing.T) {
	root := newTestRoot()
	conf := config.Default()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("step-limit: 7\naliases:\n  break: [\"b\"]\n"), 0600))

	require.NoError(t, addAlias(root, conf, path, "c", "go"))
	cmd, _, err := root.Find([]string{"go"})
	require.NoError(t, err)
	assert.Equal(t, "continue", cmd.Name())
	assert.Equal(t, []string{"go"}, conf.Aliases["continue"])

	saved, err := config.LoadFile(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, saved.Aliases["continue"])
	assert.Equal(t, []string{"b"}, saved.Aliases["break"])
	assert.Equal(t, 7, saved.StepLimit)

	assert.Error(t, addAlias(root, conf, path, "nosuch", "n"))
	assert.Error(t, addAlias(root, conf, path, "break", "clear"))
	assert.Error(t, addAlias(root, conf, path, "break", "go"))
}

func TestAddAliasCreatesConfigFile(t *testing.T) {
	root := newTestRoot()
	conf := config.Default()
	path := filepath.Join(t.TempDir(), "config.yml")

	require.NoError(t, addAlias(root, conf, path, "break", "b"))
	saved, err := config.LoadFile(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, saved.Aliases["break"])
}

func TestPrintAliases(t *testing.T) {
	var buf bytes.Buffer
	printAliases(&buf, nil)
	assert.Equal(t, "no aliases\n", buf.String())

	buf.Reset()
	printAliases(&buf, map[string][]string{"continue": {"c", "go"}, "break": {"b"}})
	out := buf.String()
	assert.Less(t, strings.Index(out, "break"), strings.Index(out, "continue"))
	assert.Contains(t, out, "c, go")
}
