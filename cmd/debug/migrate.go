package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "暂时detach进程，交给其他调试工具",
	Long: `暂时detach进程的所有线程，交给其他调试工具。

detach前所有线程先被停止，缓存的寄存器写回，断点处的原始指令被恢复。
线程列表保留，稍后通过reattach重新跟踪。
reattach之前，除reattach和exit外的命令都会被拒绝。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupOthers,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		if err := dbp.Migrate(); err != nil {
			return err
		}
		fmt.Printf("process %d detached, %d threads kept for reattach\n", dbp.Pid, len(dbp.Threads()))
		return nil
	},
}

var reattachCmd = &cobra.Command{
	Use:   "reattach",
	Short: "重新跟踪migrate之后的进程",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupOthers,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := lookupProcess()
		if err != nil {
			return err
		}
		if err := dbp.Reattach(); err != nil {
			return err
		}
		fmt.Printf("process %d reattached, %d threads\n", dbp.Pid, len(dbp.Threads()))
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(migrateCmd)
	debugRootCmd.AddCommand(reattachCmd)
}
