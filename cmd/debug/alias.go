package debug

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hitzhangjie/tracectl/pkg/config"
)

var aliasCmd = &cobra.Command{
	Use:   "alias [<cmd> <alias>]",
	Short: "查看或添加命令别名",
	Long: `查看或添加命令别名。

不带参数时列出配置中的别名，添加的别名立即生效并保存到配置文件。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupOthers,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 0:
			printAliases(os.Stdout, Config.Aliases)
			return nil
		case 2:
		default:
			return errors.New("usage: alias <cmd> <alias>")
		}

		if err := addAlias(debugRootCmd, Config, ConfigPath, args[0], args[1]); err != nil {
			return err
		}
		if CurrentSession != nil {
			CurrentSession.words.Add(args[1], nil)
		}
		fmt.Printf("alias %s added to %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(aliasCmd)
}

// addAlias 为命令name添加别名alias，并写入配置文件path
//
// Only the aliases of the file at path are merged, values given on the
// command line are not written back.
func addAlias(root *cobra.Command, conf *config.Config, path, name, alias string) error {
	sub, _, err := root.Find([]string{name})
	if err != nil || sub == root {
		return fmt.Errorf("unknown command %q", name)
	}
	if c, _, err := root.Find([]string{alias}); err == nil && c != root {
		return fmt.Errorf("%q is already used by %s", alias, c.Name())
	}
	name = sub.Name()

	conf.Aliases[name] = append(conf.Aliases[name], alias)
	applyAliases(root, map[string][]string{name: {alias}})

	if path == "" {
		return nil
	}
	saved, err := config.LoadFile(viper.New(), path)
	if err != nil {
		if _, serr := os.Stat(path); !os.IsNotExist(serr) {
			return err
		}
		saved = config.Default()
	}
	saved.Aliases[name] = append(saved.Aliases[name], alias)
	if err := config.Save(path, saved); err != nil {
		return fmt.Errorf("save aliases: %v", err)
	}
	return nil
}

func printAliases(w io.Writer, aliases map[string][]string) {
	if len(aliases) == 0 {
		fmt.Fprintln(w, "no aliases")
		return
	}
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := newTabWriter(w)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", name, strings.Join(aliases[name], ", "))
	}
	tw.Flush()
}
