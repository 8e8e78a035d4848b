package debug

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var stepCmd = &cobra.Command{
	Use:     "step [tid]",
	Short:   "执行一条指令",
	Long:    "单步执行线程tid的一条指令，未指定线程时单步线程组leader",
	Aliases: []string{"s", "si"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		tid, err := parseTid(dbp, args, 0)
		if err != nil {
			return err
		}

		events, err := dbp.Step(tid)
		if err != nil {
			return fmt.Errorf("single step err: %v", err)
		}
		printEvents(os.Stdout, events)
		printPC(tid)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(stepCmd)
}

// printPC 显示线程tid当前的PC值
func printPC(tid int) {
	dbp, err := currentProcess()
	if err != nil {
		fmt.Println(err)
		return
	}
	th, err := dbp.Thread(tid)
	if err != nil {
		fmt.Printf("thread %d: %v\n", tid, err)
		return
	}
	fmt.Printf("thread %d current PC: %#x\n", tid, th.PC())
}
