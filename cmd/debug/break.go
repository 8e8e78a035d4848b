package debug

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var breakCmd = &cobra.Command{
	Use:   "break <addr>",
	Short: "在指令地址处添加断点",
	Long: `在指令地址处添加断点，陷阱指令立即写入内存。

地址支持十进制、0x开头的十六进制及0开头的八进制。
对已存在的断点重复添加，只会重新启用该断点。`,
	Aliases: []string{"b", "breakpoint"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("参数错误")
		}
		dbp, err := currentProcess()
		if err != nil {
			return err
		}

		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		bp, err := dbp.InstallBreakpoint(dbp.Pid, uintptr(addr))
		if err != nil {
			return fmt.Errorf("add breakpoint at %#x: %v", addr, err)
		}
		fmt.Printf("breakpoint %d added at %#x\n", bp.ID, bp.Addr)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(breakCmd)
}
