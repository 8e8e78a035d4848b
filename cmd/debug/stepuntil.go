package debug

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/target"
)

var stepUntilCmd = &cobra.Command{
	Use:   "stepuntil <tid> <addr> [max]",
	Short: "单步执行直到到达指定地址",
	Long: `单步执行线程tid直到其PC等于addr，或者完成max次有效单步。

没有推进PC的单步不计入次数。max默认取配置文件中的step-limit，-1表示不限制。
其他线程保持停止状态。`,
	Aliases: []string{"su"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupCtrlFlow,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 || len(args) > 3 {
			return errors.New("参数错误")
		}
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		tid, err := parseTid(dbp, args, 0)
		if err != nil {
			return err
		}
		addr, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		max, err := stepLimit(args)
		if err != nil {
			return err
		}

		err = dbp.StepUntil(tid, addr, max)
		if errors.Is(err, target.ErrThreadExited) {
			fmt.Printf("thread %d exited\n", tid)
			return nil
		}
		if err != nil {
			return err
		}

		th, err := dbp.Thread(tid)
		if err != nil {
			return err
		}
		if th.PC() == addr {
			fmt.Printf("thread %d reached %#x\n", tid, addr)
		} else {
			fmt.Printf("thread %d stopped at %#x after %d steps\n", tid, th.PC(), max)
		}
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(stepUntilCmd)
}

func stepLimit(args []string) (int, error) {
	if len(args) < 3 {
		return Config.StepLimit, nil
	}
	max, err := strconv.Atoi(args[2])
	if err != nil || max < target.Unbounded {
		return 0, fmt.Errorf("invalid step limit: %s", args[2])
	}
	return max, nil
}
