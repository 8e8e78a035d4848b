package debug

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var disassCmd = &cobra.Command{
	Use:   "disass [address]",
	Short: "反汇编机器指令",
	Long: `反汇编机器指令，未指定地址时从线程组leader的PC处开始。

进程停止时断点处的原始指令已被恢复，显示的是原始指令。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupMemory,
	},
	Aliases: []string{"dis", "disassemble"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			max, _    = cmd.Flags().GetInt("max")
			syntax, _ = cmd.Flags().GetString("syntax")
		)
		if len(args) > 1 {
			return errors.New("参数错误")
		}
		if syntax == "" {
			syntax = Config.DisasmSyntax
		}
		if max <= 0 {
			return fmt.Errorf("invalid instruction count: %d", max)
		}

		dbp, err := currentProcess()
		if err != nil {
			return err
		}

		var addr uint64
		if len(args) == 1 {
			if addr, err = parseAddress(args[0]); err != nil {
				return err
			}
		} else {
			th, err := dbp.Thread(dbp.Pid)
			if err != nil {
				return err
			}
			addr = th.PC()
		}

		// 指令数据，读取失败时反汇编已读到的部分
		dat := make([]byte, max*maxInstLen)
		n, err := dbp.ReadMemory(uintptr(addr), dat)
		if n == 0 {
			return fmt.Errorf("peek text error: %v", err)
		}
		return disassemble(os.Stdout, dat[:n], addr, max, syntax)
	},
}

func init() {
	debugRootCmd.AddCommand(disassCmd)

	disassCmd.Flags().IntP("max", "n", 10, "反汇编指令数量")
	disassCmd.Flags().StringP("syntax", "s", "", "反汇编指令语法，支持：go, gnu, intel，默认取配置文件中的disasm-syntax")
}
