package debug

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearallCmd = &cobra.Command{
	Use:   "clearall",
	Short: "清除所有的断点",
	Long:  `清除所有的断点`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		for _, brk := range dbp.Breakpoints() {
			if err := clearBreakpoint(dbp, brk.Addr); err != nil {
				return fmt.Errorf("清除断点%d失败: %v", brk.ID, err)
			}
		}
		fmt.Println("清空断点成功")
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(clearallCmd)
}
