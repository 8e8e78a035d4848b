package debug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

var setRegCmd = &cobra.Command{
	Use:   "setreg <tid> <reg> <value>",
	Short: "设置寄存器值",
	Long: `设置线程寄存器快照中的寄存器值。

修改只作用于调试器缓存的寄存器快照，线程恢复执行前写回内核。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 检查参数数量
		if len(args) != 3 {
			return errors.New("usage: setreg <tid> <reg> <value>")
		}
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		tid, err := parseTid(dbp, args, 0)
		if err != nil {
			return err
		}

		// 解析值参数
		value, err := parseValue(args[2])
		if err != nil {
			return err
		}

		th, err := dbp.Thread(tid)
		if err != nil {
			return fmt.Errorf("thread %d: %v", tid, err)
		}
		return setRegister(&th.Regs, args[1], value)
	},
}

func init() {
	debugRootCmd.AddCommand(setRegCmd)
}

// setRegister 使用反射设置寄存器值
func setRegister(regs *ptrace.Regs, name string, value uint64) error {
	name = strings.ToLower(name)
	for _, f := range regFields(regs) {
		if f.name == name {
			f.val.SetUint(value)
			return nil
		}
	}
	return fmt.Errorf("invalid register name: %s", name)
}
