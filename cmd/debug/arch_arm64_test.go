package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassemble(t *testing.T) {
	// nop; ret
	code := []byte{0x1f, 0x20, 0x03, 0xd5, 0xc0, 0x03, 0x5f, 0xd6, 0x00}

	var buf bytes.Buffer
	require.NoError(t, disassemble(&buf, code, 0x400000, 10, "gnu"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "0x400000:")
	assert.Contains(t, lines[0], "nop")
	assert.Contains(t, lines[1], "0x400004:")
	assert.Contains(t, lines[1], "ret")

	assert.Error(t, disassemble(&buf, code, 0x400000, 1, "att"))
}

func TestDebugSlot(t *testing.T) {
	assert.Equal(t, uintptr(0x1008), debugSlot(0x1008))
}
