package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

var fpregsCmd = &cobra.Command{
	Use:   "fpregs [tid]",
	Short: "打印线程的向量寄存器",
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
		ext, err := dbp.ReadExtendedRegs(tid)
		if err != nil {
			return fmt.Errorf("read extended registers of thread %d: %v", tid, err)
		}
		printVectors(os.Stdout, ext)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(fpregsCmd)
}

func printVectors(w io.Writer, ext *ptrace.ExtendedRegs) {
	tw := newTabWriter(w)
	for i, v := range ext.Vectors() {
		fmt.Fprintf(tw, "%s%d\t% x\n", vectorRegPrefix, i, v)
	}
	tw.Flush()
}
