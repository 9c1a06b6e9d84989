package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"peachkernel/internal/task"
)

func TestScancodeToASCIITranslatesKnownCodes(t *testing.T) {
	require.EqualValues(t, '1', ScancodeToASCII(0x02))
	require.EqualValues(t, 'Q', ScancodeToASCII(0x10))
	require.EqualValues(t, 0x08, ScancodeToASCII(backspaceScancode))
}

func TestScancodeToASCIIUnknownCodeReturnsZero(t *testing.T) {
	require.EqualValues(t, 0, ScancodeToASCII(0xFF))
}

func TestClassicInitEnablesFirstPort(t *testing.T) {
	var port uint16
	var value uint8
	prevOutB := OutB
	t.Cleanup(func() { OutB = prevOutB })
	OutB = func(p uint16, v uint8) { port, value = p, v }

	require.NoError(t, ClassicDriver{}.Init())
	require.EqualValues(t, i8042CommandPort, port)
	require.EqualValues(t, i8042EnableFirstPort, value)
}

func TestHandleInterruptPushesTranslatedChar(t *testing.T) {
	process := &task.Process{}
	withCurrentProcess(t, process)

	prevInB := InB
	t.Cleanup(func() { InB = prevInB })
	InB = func(port uint16) uint8 { return 0x1E } // 'A' key-down

	ClassicDriver{}.HandleInterrupt()
	require.EqualValues(t, 'A', Pop())
}

func TestHandleInterruptIgnoresKeyRelease(t *testing.T) {
	process := &task.Process{}
	withCurrentProcess(t, process)

	prevInB := InB
	t.Cleanup(func() { InB = prevInB })
	InB = func(port uint16) uint8 { return 0x1E | scancodeReleaseMask }

	ClassicDriver{}.HandleInterrupt()
	require.EqualValues(t, 0, Pop())
}

func TestHandleInterruptBackspaceScancodeCallsBackspace(t *testing.T) {
	process := &task.Process{}
	withCurrentProcess(t, process)

	Push('x')

	prevInB := InB
	t.Cleanup(func() { InB = prevInB })
	InB = func(port uint16) uint8 { return backspaceScancode }

	ClassicDriver{}.HandleInterrupt()
	require.EqualValues(t, 0, Pop())
}
