package task

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"peachkernel/internal/config"
	"peachkernel/internal/idt"
	"peachkernel/internal/paging"
)

// fakeAllocator backs both the paging chunks under test and the kernel
// temp-buffer allocator with real Go memory, so pointer arithmetic over
// the addresses it hands out is safe on the host.
type fakeAllocator struct {
	regions [][]byte
}

// AllocZeroed pads the real allocation and rounds up to a page boundary so
// addresses it hands out satisfy the same page-alignment the physical heap
// guarantees on real hardware (CopyStringFromTask maps this address
// directly as a virtual address, which requires it).
func (a *fakeAllocator) AllocZeroed(size uint32) (uintptr, error) {
	buf := make([]byte, size+config.PageSize)
	a.regions = append(a.regions, buf)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (addr + config.PageSize - 1) &^ (uintptr(config.PageSize) - 1)
	return aligned, nil
}

func (a *fakeAllocator) Free(addr uintptr, size uint32) {}

func resetGlobals() {
	listHead, listTail, current = nil, nil, nil
}

func TestNewAppendsToTaskList(t *testing.T) {
	resetGlobals()
	alloc := &fakeAllocator{}

	t1, err := New(alloc, nil)
	require.NoError(t, err)
	require.Same(t, t1, listHead)
	require.Same(t, t1, listTail)
	require.Same(t, t1, Current())

	t2, err := New(alloc, nil)
	require.NoError(t, err)
	require.Same(t, t1, listHead)
	require.Same(t, t2, listTail)
	require.Same(t, t1, t2.prev)
	require.Same(t, t2, t1.next)
}

func TestNewSeedsEntryPointRegisters(t *testing.T) {
	resetGlobals()
	alloc := &fakeAllocator{}

	tk, err := New(alloc, nil)
	require.NoError(t, err)
	require.EqualValues(t, config.ProgramVirtualAddress, tk.Registers.EIP)
	require.EqualValues(t, config.ProgramVirtualStackTopAddress, tk.Registers.UserESP)
	require.EqualValues(t, config.UserCodeSelector|config.RPLUser, tk.Registers.CS)
	require.EqualValues(t, config.UserDataSelector|config.RPLUser, tk.Registers.SS)
}

func TestFreeRemovesMiddleTaskFromList(t *testing.T) {
	resetGlobals()
	alloc := &fakeAllocator{}

	t1, _ := New(alloc, nil)
	t2, _ := New(alloc, nil)
	t3, _ := New(alloc, nil)

	require.NoError(t, Free(t2))
	require.Same(t, t3, t1.next)
	require.Same(t, t1, t3.prev)
	require.Same(t, t1, listHead)
	require.Same(t, t3, listTail)
}

func TestSwitchLoadsDirectoryAndSetsCurrent(t *testing.T) {
	resetGlobals()
	alloc := &fakeAllocator{}

	var loaded uintptr
	prevLoad := paging.LoadDirectory
	defer func() { paging.LoadDirectory = prevLoad }()
	paging.LoadDirectory = func(addr uintptr) { loaded = addr }

	t1, err := New(alloc, nil)
	require.NoError(t, err)

	require.NoError(t, Switch(t1))
	require.Equal(t, t1.Chunk.DirectoryAddress(), loaded)
	require.Same(t, t1, Current())
}

func TestRunFirstEverTaskPanicsWhenEmpty(t *testing.T) {
	resetGlobals()

	var panicked bool
	prevPanic := idt.Panic
	idt.Panic = func(msg string) { panicked = true }
	defer func() { idt.Panic = prevPanic }()

	RunFirstEverTask()
	require.True(t, panicked)
}

func TestSaveCurrentStateCopiesFrame(t *testing.T) {
	resetGlobals()
	alloc := &fakeAllocator{}
	t1, err := New(alloc, nil)
	require.NoError(t, err)
	require.NoError(t, Switch(t1))

	frame := &idt.Frame{
		EDI: 1, ESI: 2, EBP: 3, EBX: 4, EDX: 5, ECX: 6, EAX: 7,
		EIP: 8, CS: 9, EFLAGS: 10, UserESP: 11, SS: 12,
	}
	SaveCurrentState(frame)

	require.EqualValues(t, 1, t1.Registers.EDI)
	require.EqualValues(t, 8, t1.Registers.EIP)
	require.EqualValues(t, 12, t1.Registers.SS)
}

func TestCopyStringFromTaskCopiesThroughTempBuffer(t *testing.T) {
	resetGlobals()
	alloc := &fakeAllocator{}
	SetKernelAllocator(alloc)

	prevLoad := paging.LoadDirectory
	defer func() { paging.LoadDirectory = prevLoad }()
	paging.LoadDirectory = func(addr uintptr) {}

	kernelChunk, err := paging.NewChunk(alloc, paging.FlagPresent|paging.FlagWritable)
	require.NoError(t, err)
	paging.SetKernelChunk(kernelChunk)

	tk, err := New(alloc, nil)
	require.NoError(t, err)

	src := make([]byte, 64)
	copy(src, []byte("hello\x00garbage"))
	srcAddr := uintptr(unsafe.Pointer(&src[0]))

	dest := make([]byte, 64)
	require.NoError(t, CopyStringFromTask(tk, uint32(srcAddr), dest, 32))
	require.Equal(t, "hello", string(dest[:5]))
	require.EqualValues(t, 0, dest[5])
}

func TestGetStackItemReadsUserStackWord(t *testing.T) {
	resetGlobals()
	alloc := &fakeAllocator{}

	prevLoad := paging.LoadDirectory
	defer func() { paging.LoadDirectory = prevLoad }()
	paging.LoadDirectory = func(addr uintptr) {}

	kernelChunk, err := paging.NewChunk(alloc, paging.FlagPresent|paging.FlagWritable)
	require.NoError(t, err)
	paging.SetKernelChunk(kernelChunk)

	tk, err := New(alloc, nil)
	require.NoError(t, err)

	stack := make([]uint32, 4)
	stack[2] = 0xCAFEBABE
	tk.Registers.UserESP = uint32(uintptr(unsafe.Pointer(&stack[0])))

	value, err := GetStackItem(tk, 2)
	require.NoError(t, err)
	require.EqualValues(t, 0xCAFEBABE, value)
}
