package debug

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var peekCmd = &cobra.Command{
	Use:     "peek <addr> [n]",
	Short:   "读取指定内存位置的n个字",
	Aliases: []string{"x"},
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupMemory,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: peek <addr> [n]")
		}
		dbp, err := currentProcess()
		if err != nil {
			return err
		}
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		n := 1
		if len(args) == 2 {
			if n, err = strconv.Atoi(args[1]); err != nil || n <= 0 {
				return fmt.Errorf("invalid word count: %s", args[1])
			}
		}

		tw := newTabWriter(os.Stdout)
		defer tw.Flush()
		for i := 0; i < n; i++ {
			at := uintptr(addr) + uintptr(i*8)
			word, err := dbp.PeekWord(dbp.Pid, at)
			if err != nil {
				return fmt.Errorf("failed to read memory at address %#x: %v", at, err)
			}
			fmt.Fprintf(tw, "%#x:\t%#016x\n", at, word)
		}
		return nil
	},
}

var pokeCmd = &cobra.Command{
	Use:   "poke <addr> <word>",
	Short: "设置指定内存位置的一个字",
	Annotations: map[string]string{
		cmdGroupAnnotation: cmdGroupMemory,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 检查参数数量
		if len(args) != 2 {
			return errors.New("usage: poke <addr> <word>")
		}
		dbp, err := currentProcess()
		if err != nil {
			return err
		}

		// 解析地址参数
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		// 解析值参数
		value, err := parseValue(args[1])
		if err != nil {
			return err
		}

		// 读取当前内存值用于显示
		old, err := dbp.PeekWord(dbp.Pid, uintptr(addr))
		if err != nil {
			return fmt.Errorf("failed to read memory at address %#x: %v", addr, err)
		}
		if err = dbp.PokeWord(dbp.Pid, uintptr(addr), value); err != nil {
			return fmt.Errorf("failed to write memory at address %#x: %v", addr, err)
		}
		fmt.Printf("%#x: %#016x -> %#016x\n", addr, old, value)
		return nil
	},
}

func init() {
	debugRootCmd.AddCommand(peekCmd)
	debugRootCmd.AddCommand(pokeCmd)
}
