package debug

import (
	"fmt"
	"io"

	"golang.org/x/arch/x86/x86asm"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

const (
	vectorRegPrefix = "xmm"
	pcRegName       = "rip"

	// longest x86 instruction
	maxInstLen = 15

	debugRegHelp = `读写硬件调试寄存器DR0~DR7。

	dr 7           读取DR7
	dr 0 0x401000  设置DR0`
)

// debugSlot 返回调试寄存器n在struct user中的偏移
func debugSlot(n uintptr) uintptr {
	return ptrace.DebugRegOffset + 8*n
}

func disassemble(w io.Writer, dat []byte, addr uint64, max int, syntax string) error {
	tw := newTabWriter(w)
	defer tw.Flush()

	offset := 0
	for count := 0; count < max && offset < len(dat); count++ {
		inst, err := x86asm.Decode(dat[offset:], 64)
		if err != nil {
			return fmt.Errorf("x86asm decode error: %v", err)
		}

		pc := addr + uint64(offset)
		asm, err := instSyntax(inst, pc, syntax)
		if err != nil {
			return err
		}

		end := offset + inst.Len
		fmt.Fprintf(tw, "%#x:\t% x\t%s\n", pc, dat[offset:end], asm)
		offset = end
	}
	return nil
}

func instSyntax(inst x86asm.Inst, pc uint64, syntax string) (string, error) {
	switch syntax {
	case "go":
		return x86asm.GoSyntax(inst, pc, nil), nil
	case "gnu":
		return x86asm.GNUSyntax(inst, pc, nil), nil
	case "intel":
		return x86asm.IntelSyntax(inst, pc, nil), nil
	default:
		return "", fmt.Errorf("invalid asm syntax: %s", syntax)
	}
}
