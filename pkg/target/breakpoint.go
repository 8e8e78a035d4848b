package target

import (
	"errors"

	"go.uber.org/atomic"
	"golang.org/x/exp/slices"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

// wordSize is the width of one PEEKDATA/POKEDATA transfer.
const wordSize = 8

var (
	bpSeqNo = atomic.NewUint64(0)
)

var (
	ErrBreakpointNotExisted = errors.New("breakpoint not existed")
)

// Breakpoint 断点信息
type Breakpoint struct {
	ID      uint64  // 断点编号
	Addr    uintptr // 断点地址
	Orig    uint64  // 断点处原始指令字
	Patched uint64  // 写入陷阱指令后的指令字
	Enabled bool    // 断点是否启用
}

// 在指令地址addr处创建一个断点，该地址处原始的指令字为orig
func newBreakpoint(addr uintptr, orig, patched uint64) *Breakpoint {
	return &Breakpoint{
		ID:      bpSeqNo.Add(1),
		Addr:    addr,
		Orig:    orig,
		Patched: patched,
		Enabled: true,
	}
}

// Breakpoints 所有的断点信息，按地址严格递增排列
//
// Adjacent breakpoints share bytes of the same instruction word, so they
// are always patched in address order.
type Breakpoints []*Breakpoint

func (b Breakpoints) search(addr uintptr) (int, bool) {
	return slices.BinarySearchFunc(b, addr, func(bp *Breakpoint, addr uintptr) int {
		switch {
		case bp.Addr < addr:
			return -1
		case bp.Addr > addr:
			return 1
		}
		return 0
	})
}

// Find 返回地址addr处的断点
func (b Breakpoints) Find(addr uintptr) (*Breakpoint, bool) {
	i, ok := b.search(addr)
	if !ok {
		return nil, false
	}
	return b[i], true
}

func (b *Breakpoints) insert(bp *Breakpoint) {
	i, ok := b.search(bp.Addr)
	if ok {
		return
	}
	*b = slices.Insert(*b, i, bp)
}

func (b *Breakpoints) remove(addr uintptr) (*Breakpoint, bool) {
	i, ok := b.search(addr)
	if !ok {
		return nil, false
	}
	bp := (*b)[i]
	*b = slices.Delete(*b, i, i+1)
	return bp, true
}

func (b Breakpoints) enabled() Breakpoints {
	var out Breakpoints
	for _, bp := range b {
		if bp.Enabled {
			out = append(out, bp)
		}
	}
	return out
}

// original returns word, read at addr, with the bytes under the traps of
// other breakpoints replaced by the bytes those traps overwrote.
func (b Breakpoints) original(addr uintptr, word uint64) uint64 {
	for _, bp := range b {
		if bp.Addr == addr || bp.Addr+ptrace.BreakpointSize <= addr || bp.Addr >= addr+wordSize {
			continue
		}
		for i := uintptr(0); i < ptrace.BreakpointSize; i++ {
			at := bp.Addr + i
			if at < addr || at >= addr+wordSize {
				continue
			}
			shift := 8 * (at - addr)
			orig := (bp.Orig >> (8 * i)) & 0xff
			word = word&^(0xff<<shift) | orig<<shift
		}
	}
	return word
}

// restoreTrap puts the trap bytes of orig back into the live word.
func restoreTrap(live, orig uint64) uint64 {
	const mask = uint64(1)<<(8*ptrace.BreakpointSize) - 1
	return live&^mask | orig&mask
}
