package debug

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cosiner/argv"
	"github.com/derekparker/trie"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hitzhangjie/tracectl/pkg/config"
	"github.com/hitzhangjie/tracectl/pkg/logflags"
)

const (
	cmdGroupAnnotation = "cmd_group_annotation"

	cmdGroupBreakpoints = "1-breaks"
	cmdGroupCtrlFlow    = "2-execute"
	cmdGroupInfo        = "3-info"
	cmdGroupMemory      = "4-memory"
	cmdGroupOthers      = "5-other"
	cmdGroupCobra       = "other"

	cmdGroupDelimiter = "-"

	prefix    = "tracectl> "
	descShort = "tracectl interactive debugging commands"
)

var debugRootCmd = &cobra.Command{
	Use:           "help [command]",
	Short:         descShort,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	CurrentSession *DebugSession

	// Config 调试会话使用的配置，未加载时使用默认配置
	Config = config.Default()

	// ConfigPath 配置文件路径，alias命令将新增的别名保存到这里
	ConfigPath string
)

// DebugSession 调试会话
type DebugSession struct {
	done   chan bool
	prefix string
	root   *cobra.Command
	liner  *liner.State
	last   string
	words  *trie.Trie

	defers []func()
}

// NewDebugSession 创建一个debug专用的交互管理器
func NewDebugSession() *DebugSession {

	fn := func(cmd *cobra.Command, args []string) {
		// 描述信息
		fmt.Println(cmd.Short)
		fmt.Println()

		// 使用信息
		fmt.Println(cmd.Use)
		fmt.Println(cmd.Flags().FlagUsages())

		// 命令分组
		if cmd == debugRootCmd {
			fmt.Println(helpMessageByGroups(cmd))
		}
	}
	debugRootCmd.SetHelpFunc(fn)
	applyAliases(debugRootCmd, Config.Aliases)

	return &DebugSession{
		done:   make(chan bool),
		prefix: prefix,
		root:   debugRootCmd,
		liner:  liner.NewLiner(),
		words:  commandWords(debugRootCmd),
	}
}

func (s *DebugSession) Start() {
	s.liner.SetCompleter(s.complete)
	s.liner.SetTabCompletionStyle(liner.TabPrints)
	s.liner.SetCtrlCAborts(true)

	defer func() {
		for idx := len(s.defers) - 1; idx >= 0; idx-- {
			s.defers[idx]()
		}
	}()
	defer s.liner.Close()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		txt, err := s.liner.Prompt(s.prefix)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read command: %v\n", err)
			return
		}

		txt = strings.TrimSpace(txt)
		if len(txt) != 0 {
			s.last = txt
			s.liner.AppendHistory(txt)
		} else {
			txt = s.last
		}
		if len(txt) == 0 {
			continue
		}

		args, err := splitLine(txt)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		logflags.ShellLogger().Debugf("run command: %q", args)

		s.root.SetArgs(args)
		if err := s.root.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		resetFlags(s.root, args)
	}
}

func (s *DebugSession) AtExit(fn func()) *DebugSession {
	s.defers = append(s.defers, fn)
	return s
}

func (s *DebugSession) Stop() {
	close(s.done)
}

func (s *DebugSession) complete(line string) []string {
	return completer(s.words, line)
}

// splitLine 按照shell规则拆分命令行，支持引号
func splitLine(line string) ([]string, error) {
	v, err := argv.Argv(line,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal command line '%s'", line)
	}
	return v[0], nil
}

// resetFlags restores the flags of the executed command to their defaults,
// values set by one command line must not leak into the next.
func resetFlags(root *cobra.Command, args []string) {
	cmd, _, err := root.Find(args)
	if err != nil || cmd == nil {
		return
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
}

// applyAliases 将配置文件中的命令别名追加到对应命令
func applyAliases(root *cobra.Command, aliases map[string][]string) {
	for _, c := range root.Commands() {
		for _, alias := range aliases[c.Name()] {
			if c.HasAlias(alias) {
				continue
			}
			c.Aliases = append(c.Aliases, alias)
		}
	}
}

// commandWords 收集所有命令名及别名，用于自动补全
func commandWords(root *cobra.Command) *trie.Trie {
	t := trie.New()
	for _, c := range root.Commands() {
		t.Add(c.Name(), nil)
		for _, alias := range c.Aliases {
			t.Add(alias, nil)
		}
	}
	return t
}

func completer(words *trie.Trie, line string) []string {
	// only the command word is completed
	if strings.ContainsAny(line, " \t") {
		return nil
	}
	cmds := words.PrefixSearch(line)
	sort.Strings(cmds)
	return cmds
}

// helpMessageByGroups 将各个命令按照分组归类，再展示帮助信息
func helpMessageByGroups(cmd *cobra.Command) string {

	// key:group, val:sorted commands in same group
	groups := map[string][]string{}
	for _, c := range cmd.Commands() {
		// 如果没有指定命令分组，放入other组
		groupName, ok := c.Annotations[cmdGroupAnnotation]
		if !ok {
			groupName = cmdGroupCobra
		}
		groups[groupName] = append(groups[groupName], fmt.Sprintf("  %-16s:%s", c.Name(), c.Short))
	}

	if len(groups[cmdGroupCobra]) != 0 {
		groups[cmdGroupOthers] = append(groups[cmdGroupOthers], groups[cmdGroupCobra]...)
	}
	delete(groups, cmdGroupCobra)

	// 按照分组名进行排序
	groupNames := make([]string, 0, len(groups))
	for k := range groups {
		groupNames = append(groupNames, k)
	}
	sort.Strings(groupNames)

	// 按照group分组，并对组内命令进行排序
	buf := bytes.Buffer{}
	for _, groupName := range groupNames {
		commands := groups[groupName]
		sort.Strings(commands)

		group := strings.SplitN(groupName, cmdGroupDelimiter, 2)[1]
		buf.WriteString(fmt.Sprintf("- [%s]\n", group))

		for _, cmd := range commands {
			buf.WriteString(fmt.Sprintf("%s\n", cmd))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
