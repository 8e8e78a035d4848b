package ptrace

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestDebugWindow(t *testing.T) {
	tests := []struct {
		slot uintptr
		nt   uintptr
		off  uintptr
		err  error
	}{
		{0, _NT_ARM_HW_BREAK, 0, nil},
		{8, _NT_ARM_HW_BREAK, 8, nil},
		{hwDebugStateSize - 8, _NT_ARM_HW_BREAK, hwDebugStateSize - 8, nil},
		{WatchBank | 16, _NT_ARM_HW_WATCH, 16, nil},
		{hwDebugStateSize, 0, 0, ErrBadDebugSlot},
		{WatchBank | 3, 0, 0, ErrBadDebugSlot},
	}
	for _, tt := range tests {
		nt, off, err := debugWindow(tt.slot)
		assert.Equal(t, tt.err, err, "slot %#x", tt.slot)
		assert.Equal(t, tt.nt, nt, "slot %#x", tt.slot)
		assert.Equal(t, tt.off, off, "slot %#x", tt.slot)
	}
}

func TestPatchWord(t *testing.T) {
	assert.Equal(t, uint64(0x11223344d4200000), PatchWord(0x1122334455667788))
	assert.Equal(t, PatchWord(1), PatchWord(PatchWord(1)))
}

func TestExtendedRegsLayout(t *testing.T) {
	assert.Equal(t, uintptr(528), unsafe.Sizeof(ExtendedRegs{}))
	assert.True(t, ProbeXstate().Supported)
}

func TestVectors(t *testing.T) {
	var r ExtendedRegs
	r.Vregs[31][15] = 0xbb
	v := r.Vectors()
	assert.Len(t, v, 32)
	assert.Equal(t, byte(0xbb), v[31][15])
}
