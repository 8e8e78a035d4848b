package debug

import (
	"fmt"
	"io"

	"golang.org/x/arch/arm64/arm64asm"
)

const (
	vectorRegPrefix = "v"
	pcRegName       = "pc"

	// fixed width instructions
	maxInstLen = 4

	debugRegHelp = `读写硬件断点寄存器窗口中的一个字。

slot是字节偏移，按8字节对齐，加上0x1000选择观察点寄存器。

	dr 0x8           读取第一个断点的地址寄存器
	dr 0x1008 0x0    清除第一个观察点的地址寄存器`
)

// debugSlot 返回slot本身，窗口内偏移由ptrace层解析
func debugSlot(n uintptr) uintptr {
	return n
}

func disassemble(w io.Writer, dat []byte, addr uint64, max int, syntax string) error {
	tw := newTabWriter(w)
	defer tw.Flush()

	for count, offset := 0, 0; count < max && offset+4 <= len(dat); count, offset = count+1, offset+4 {
		inst, err := arm64asm.Decode(dat[offset : offset+4])
		if err != nil {
			return fmt.Errorf("arm64asm decode error: %v", err)
		}

		pc := addr + uint64(offset)
		var asm string
		switch syntax {
		case "go":
			asm = arm64asm.GoSyntax(inst, pc, nil, nil)
		case "gnu", "intel":
			asm = arm64asm.GNUSyntax(inst)
		default:
			return fmt.Errorf("invalid asm syntax: %s", syntax)
		}
		fmt.Fprintf(tw, "%#x:\t% x\t%s\n", pc, dat[offset:offset+4], asm)
	}
	return nil
}
