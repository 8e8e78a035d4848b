package debug

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var drCmd = &cobra.Command{
	Use:   "dr <slot> [value]",
	Short: "读写硬件调试寄存器",
	Long:  debugRegHelp,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupMemory,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: dr <slot> [value]")
		}
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		n, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid slot: %s", args[0])
		}
		slot := debugSlot(uintptr(n))

		if len(args) == 2 {
			value, err := parseValue(args[1])
			if err != nil {
				return err
			}
			return dbp.WriteDebugReg(dbp.Pid, slot, value)
		}

		value, err := dbp.ReadDebugReg(dbp.Pid, slot)
		if err != nil {
			return err
		}
		fmt.Printf("dr[%s] = %#x\n", args[0], value)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(drCmd)
}
