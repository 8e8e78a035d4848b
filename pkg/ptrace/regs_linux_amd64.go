package ptrace

import (
	"unsafe"

	sys "golang.org/x/sys/unix"
)

const (
	// BreakpointSize is the length of the trap instruction (int3).
	BreakpointSize = 1

	// TrapPCOffset is how far past a software breakpoint the instruction
	// pointer is reported once the trap fired.
	TrapPCOffset = 1

	breakpointMask   = 0xFFFFFFFFFFFFFF00
	breakpointOpcode = 0xCC

	_NT_X86_XSTATE = 0x202

	// DebugRegOffset is the offset of u_debugreg in struct user, see
	// arch/x86/kernel/ptrace.c. Slot n lives at DebugRegOffset+8*n.
	DebugRegOffset = 848
)

// PatchWord substitutes the trap instruction into the first byte of word.
func PatchWord(word uint64) uint64 {
	return (word & breakpointMask) | breakpointOpcode
}

// ExtendedRegs holds the XSAVE area of one thread together with the
// geometry of the AVX component inside it.
type ExtendedRegs struct {
	ComponentSize uint32
	AvxOffset     uint32
	Xsave         [4096]byte
}

// AVX returns the upper halves of the YMM registers, or nil if the AVX
// component does not fit the area.
func (r *ExtendedRegs) AVX() []byte {
	off, size := int(r.AvxOffset), 256
	if off == 0 || off+size > len(r.Xsave) {
		return nil
	}
	return r.Xsave[off : off+size]
}

// XMM returns the legacy SSE register area of the XSAVE image.
func (r *ExtendedRegs) XMM() []byte {
	return r.Xsave[160 : 160+256]
}

// GetRegs reads the general purpose registers of tid.
func (t *Tracer) GetRegs(tid int, regs *Regs) error {
	return t.do(func() error { return sys.PtraceGetRegs(tid, regs) })
}

// SetRegs writes the general purpose registers of tid.
func (t *Tracer) SetRegs(tid int, regs *Regs) error {
	return t.do(func() error { return sys.PtraceSetRegs(tid, regs) })
}

// GetExtendedRegs reads the XSAVE area of tid.
func (t *Tracer) GetExtendedRegs(tid int, regs *ExtendedRegs) error {
	if !t.geo.Supported {
		return ErrExtendedUnsupported
	}
	t.geo.Init(regs)
	return t.do(func() error {
		return getRegset(tid, _NT_X86_XSTATE, unsafe.Pointer(&regs.Xsave[0]), len(regs.Xsave))
	})
}

// SetExtendedRegs writes the XSAVE area of tid.
func (t *Tracer) SetExtendedRegs(tid int, regs *ExtendedRegs) error {
	if !t.geo.Supported {
		return ErrExtendedUnsupported
	}
	return t.do(func() error {
		return setRegset(tid, _NT_X86_XSTATE, unsafe.Pointer(&regs.Xsave[0]), len(regs.Xsave))
	})
}

// debugSlotOK reports whether slot addresses one of the 8 debug registers.
func debugSlotOK(slot uintptr) bool {
	return slot >= DebugRegOffset && slot < DebugRegOffset+8*8 && slot%8 == 0
}

// PeekUser reads hardware debug register at offset slot of the struct user
// of pid; slots outside DebugRegOffset..DebugRegOffset+8*7 are rejected.
func (t *Tracer) PeekUser(pid int, slot uintptr) (uint64, error) {
	if !debugSlotOK(slot) {
		return 0, ErrBadDebugSlot
	}
	var val uint64
	err := t.do(func() error {
		_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_PEEKUSR, uintptr(pid), slot, uintptr(unsafe.Pointer(&val)), 0, 0)
		return errno(e)
	})
	return val, err
}

// PokeUser writes val at offset slot of the struct user of pid.
func (t *Tracer) PokeUser(pid int, slot uintptr, val uint64) error {
	if !debugSlotOK(slot) {
		return ErrBadDebugSlot
	}
	return t.do(func() error {
		_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_POKEUSR, uintptr(pid), slot, uintptr(val), 0, 0)
		return errno(e)
	})
}

// Vectors returns the 16 XMM registers.
func (r *ExtendedRegs) Vectors() [][]byte {
	xmm := r.XMM()
	out := make([][]byte, 0, 16)
	for i := 0; i < 16; i++ {
		out = append(out, xmm[i*16:(i+1)*16])
	}
	return out
}
