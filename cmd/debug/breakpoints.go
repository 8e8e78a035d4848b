package debug

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/target"
)

var breaksCmd = &cobra.Command{
	Use:     "breaks",
	Short:   "列出所有断点",
	Long:    "列出所有断点，按地址递增排列",
	Aliases: []string{"bs", "breakpoints"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		printBreakpoints(os.Stdout, dbp.Breakpoints())
		return nil
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable <addr>",
	Short: "启用断点",
	Long:  "启用断点，陷阱指令在下次continue时写入",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, addr, err := breakpointAddr(args)
		if err != nil {
			return err
		}
		dbp.EnableBreakpoint(addr)
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <addr>",
	Short: "禁用断点",
	Long:  "禁用断点，断点处的原始指令立即恢复",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupBreakpoints,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, addr, err := breakpointAddr(args)
		if err != nil {
			return err
		}
		return dbp.DisableBreakpoint(dbp.Pid, addr)
	},
}

func init() {
	debugRootCmd.AddCommand(breaksCmd)
	debugRootCmd.AddCommand(enableCmd)
	debugRootCmd.AddCommand(disableCmd)
}

func breakpointAddr(args []string) (*target.Process, uintptr, error) {
	if len(args) != 1 {
		return nil, 0, errors.New("参数错误")
	}
	dbp, err := currentProcess()
	if err != nil {
		return nil, 0, err
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return nil, 0, err
	}
	if _, ok := dbp.Breakpoints().Find(uintptr(addr)); !ok {
		return nil, 0, target.ErrBreakpointNotExisted
	}
	return dbp, uintptr(addr), nil
}

func printBreakpoints(w io.Writer, bps target.Breakpoints) {
	if len(bps) == 0 {
		fmt.Fprintln(w, "no breakpoints")
		return
	}
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tADDR\tSTATE\tORIG")
	for _, bp := range bps {
		state := "enabled"
		if !bp.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(tw, "%d\t%#x\t%s\t%#016x\n", bp.ID, bp.Addr, state, bp.Orig)
	}
	tw.Flush()
}
