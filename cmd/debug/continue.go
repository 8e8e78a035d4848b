package debug

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "恢复所有线程执行，直到进程再次停止",
	Long: `恢复所有线程执行，直到进程再次停止。

停在已启用断点上的线程会先单步越过断点，再写入所有已启用断点的陷阱指令。
进程停止后，所有线程都会被停止，断点处的原始指令会被恢复。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	Aliases: []string{"c"},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := currentProcess()
		if err != nil {
			return err
		}

		events, err := dbp.Continue()
		if err != nil {
			return fmt.Errorf("continue error: %v", err)
		}
		printEvents(os.Stdout, events)

		if dbp.Exited() {
			fmt.Printf("process %d exited\n", dbp.Pid)
			return nil
		}
		printPC(dbp.Pid)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(continueCmd)
}
