package debug

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/target"
)

var clearCmd = &cobra.Command{
	Use:   "clear [addr]",
	Short: "清除指定地址或编号的断点",
	Long: `清除指定地址或编号的断点，断点处的原始指令会被恢复。

	clear 0x401000
	clear -n 2`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := currentProcess()
		if err != nil {
			return err
		}

		id, _ := cmd.Flags().GetUint64("n")

		// 查找断点
		var brk *target.Breakpoint
		switch {
		case len(args) == 1:
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			brk, _ = dbp.Breakpoints().Find(uintptr(addr))
		case id != 0:
			for _, b := range dbp.Breakpoints() {
				if b.ID == id {
					brk = b
					break
				}
			}
		default:
			return errors.New("参数错误")
		}
		if brk == nil {
			return target.ErrBreakpointNotExisted
		}

		if err := clearBreakpoint(dbp, brk.Addr); err != nil {
			return err
		}
		fmt.Printf("breakpoint %d at %#x cleared\n", brk.ID, brk.Addr)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(clearCmd)

	clearCmd.Flags().Uint64P("n", "n", 0, "断点编号")
}

// clearBreakpoint 恢复原始指令后删除断点
func clearBreakpoint(dbp *target.Process, addr uintptr) error {
	if err := dbp.DisableBreakpoint(dbp.Pid, addr); err != nil {
		return err
	}
	_, err := dbp.UninstallBreakpoint(addr)
	return err
}
