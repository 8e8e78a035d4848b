package debug

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/target"
)

var exitCmd = &cobra.Command{
	Use:     "exit",
	Short:   "结束调试会话",
	Aliases: []string{"quit", "q"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupOthers,
	},
	Run: func(cmd *cobra.Command, args []string) {
		CurrentSession.Stop()
	},
}

func init() {
	debugRootCmd.AddCommand(exitCmd)
}

// Cleanup 清理调试会话
//
// 根据被调试进程创建的方式来决定如何做善后处理
// - exec: kill traced process
// - attach: detach traced process, leave it running
func Cleanup() {
	dbp := target.DBPProcess
	if dbp == nil {
		return
	}
	switch dbp.Kind {
	case target.EXEC:
		fmt.Fprintf(os.Stdout, "tracee is run by tracer, kill it: %d\n", dbp.Pid)
	default:
		fmt.Fprintf(os.Stdout, "tracee is an attached process, leave it running: %d\n", dbp.Pid)
	}
	if err := dbp.Cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "cleanup tracee: %d, err: %v\n", dbp.Pid, err)
	}
	target.DBPProcess = nil
}
