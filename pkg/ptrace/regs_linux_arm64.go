package ptrace

import (
	"debug/elf"
	"unsafe"
)

const (
	// BreakpointSize is the length of the trap instruction (brk #0).
	BreakpointSize = 4

	// TrapPCOffset is zero, brk reports the address of the trap itself.
	TrapPCOffset = 0

	breakpointMask   = 0xFFFFFFFF00000000
	breakpointOpcode = 0xD4200000

	_NT_ARM_HW_BREAK = 0x402
	_NT_ARM_HW_WATCH = 0x403

	// WatchBank selects the watchpoint bank when set in a debug slot
	// address, otherwise the breakpoint bank is used.
	WatchBank = 0x1000

	// hwDebugStateSize is sizeof(struct user_hwdebug_state): one header word
	// (count, debug architecture, padding) followed by 16 address/control
	// pairs.
	hwDebugStateSize = 8 + 16*16
)

// PatchWord substitutes the trap instruction into the first four bytes of
// word.
func PatchWord(word uint64) uint64 {
	return (word & breakpointMask) | breakpointOpcode
}

// ExtendedRegs tracks struct user_fpsimd_state.
type ExtendedRegs struct {
	Vregs [32][16]byte
	Fpsr  uint32
	Fpcr  uint32
	_     [2]uint32
}

// Vectors returns the 32 SIMD registers V0-V31.
func (r *ExtendedRegs) Vectors() [][]byte {
	out := make([][]byte, 0, len(r.Vregs))
	for i := range r.Vregs {
		out = append(out, r.Vregs[i][:])
	}
	return out
}

// GetRegs reads the general purpose registers of tid.
func (t *Tracer) GetRegs(tid int, regs *Regs) error {
	return t.do(func() error {
		return getRegset(tid, uintptr(elf.NT_PRSTATUS), unsafe.Pointer(regs), int(unsafe.Sizeof(*regs)))
	})
}

// SetRegs writes the general purpose registers of tid.
func (t *Tracer) SetRegs(tid int, regs *Regs) error {
	return t.do(func() error {
		return setRegset(tid, uintptr(elf.NT_PRSTATUS), unsafe.Pointer(regs), int(unsafe.Sizeof(*regs)))
	})
}

// GetExtendedRegs reads the FP/SIMD registers of tid.
func (t *Tracer) GetExtendedRegs(tid int, regs *ExtendedRegs) error {
	if !t.geo.Supported {
		return ErrExtendedUnsupported
	}
	return t.do(func() error {
		return getRegset(tid, uintptr(elf.NT_FPREGSET), unsafe.Pointer(regs), int(unsafe.Sizeof(*regs)))
	})
}

// SetExtendedRegs writes the FP/SIMD registers of tid.
func (t *Tracer) SetExtendedRegs(tid int, regs *ExtendedRegs) error {
	if !t.geo.Supported {
		return ErrExtendedUnsupported
	}
	return t.do(func() error {
		return setRegset(tid, uintptr(elf.NT_FPREGSET), unsafe.Pointer(regs), int(unsafe.Sizeof(*regs)))
	})
}

// debugWindow maps a debug slot address to the register set holding it
// and the byte offset of the slot inside that set.
func debugWindow(slot uintptr) (nt uintptr, off uintptr, err error) {
	nt = _NT_ARM_HW_BREAK
	if slot&WatchBank != 0 {
		nt = _NT_ARM_HW_WATCH
	}
	off = slot &^ WatchBank
	if off%8 != 0 || off+8 > hwDebugStateSize {
		return 0, 0, ErrBadDebugSlot
	}
	return nt, off, nil
}

// PeekUser reads one word of the hardware breakpoint (or, with WatchBank
// set, watchpoint) register window of pid. The whole window is transferred
// and the word at the slot offset is returned.
func (t *Tracer) PeekUser(pid int, slot uintptr) (uint64, error) {
	nt, off, err := debugWindow(slot)
	if err != nil {
		return 0, err
	}
	var window [hwDebugStateSize]byte
	err = t.do(func() error {
		return getRegset(pid, nt, unsafe.Pointer(&window[0]), len(window))
	})
	if err != nil {
		return 0, err
	}
	return *(*uint64)(unsafe.Pointer(&window[off])), nil
}

// PokeUser writes one word of the hardware debug register window of pid,
// see PeekUser.
func (t *Tracer) PokeUser(pid int, slot uintptr, val uint64) error {
	nt, off, err := debugWindow(slot)
	if err != nil {
		return err
	}
	var window [hwDebugStateSize]byte
	return t.do(func() error {
		if err := getRegset(pid, nt, unsafe.Pointer(&window[0]), len(window)); err != nil {
			return err
		}
		*(*uint64)(unsafe.Pointer(&window[off])) = val
		return setRegset(pid, nt, unsafe.Pointer(&window[0]), len(window))
	})
}
