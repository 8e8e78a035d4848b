package debug

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var syscallsCmd = &cobra.Command{
	Use:   "syscalls [on|off]",
	Short: "设置continue时是否在系统调用出入口停止",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		switch {
		case len(args) == 0:
		case args[0] == "on":
			dbp.SetSyscallHooks(true)
		case args[0] == "off":
			dbp.SetSyscallHooks(false)
		default:
			return errors.New("usage: syscalls [on|off]")
		}
		fmt.Printf("syscall hooks: %v\n", dbp.SyscallHooks())
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(syscallsCmd)
}
