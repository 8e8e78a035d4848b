package debug

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
	"github.com/hitzhangjie/tracectl/pkg/target"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "列出所有被跟踪的线程",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		tw := newTabWriter(os.Stdout)
		fmt.Fprintln(tw, "TID\tSTATE\tPC\tLAST STATUS")
		for _, th := range dbp.Threads() {
			leader := ""
			if th.Tid == dbp.Pid {
				leader = "*"
			}
			fmt.Fprintf(tw, "%s%d\t%s\t%#x\t%s\n", leader, th.Tid, target.ProcState(th.Tid), th.PC(), target.Describe(th.Status))
		}
		return tw.Flush()
	},
}

var regsCmd = &cobra.Command{
	Use:   "regs [tid]",
	Short: "打印线程的通用寄存器",
	Long: `打印线程的通用寄存器，显示的是停止时读取的寄存器快照。

未指定线程时打印线程组leader的寄存器。`,
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupInfo,
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
		th, err := dbp.Thread(tid)
		if err != nil {
			return fmt.Errorf("thread %d: %v", tid, err)
		}
		printRegs(os.Stdout, &th.Regs)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(threadsCmd)
	debugRootCmd.AddCommand(regsCmd)
}

type regField struct {
	name string
	val  reflect.Value
}

// regFields 通过反射列出寄存器快照中的所有寄存器，返回的值可以直接修改
func regFields(regs *ptrace.Regs) []regField {
	rv := reflect.ValueOf(regs).Elem()
	rt := rv.Type()

	var fields []regField
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		switch f.Kind() {
		case reflect.Uint64:
			fields = append(fields, regField{strings.ToLower(rt.Field(i).Name), f})
		case reflect.Array:
			// general purpose register bank, x0..x30 on arm64
			for j := 0; j < f.Len(); j++ {
				if f.Index(j).Kind() == reflect.Uint64 {
					fields = append(fields, regField{fmt.Sprintf("x%d", j), f.Index(j)})
				}
			}
		}
	}
	return fields
}

func printRegs(w io.Writer, regs *ptrace.Regs) {
	tw := newTabWriter(w)
	for _, f := range regFields(regs) {
		fmt.Fprintf(tw, "%s\t%#x\t%d\n", f.name, f.val.Uint(), f.val.Uint())
	}
	tw.Flush()
}
