package keyboard

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"peachkernel/internal/config"
	"peachkernel/internal/paging"
	"peachkernel/internal/task"
)

// fakeAllocator backs paging chunks with real, page-aligned Go memory.
type fakeAllocator struct{}

func (fakeAllocator) AllocZeroed(size uint32) (uintptr, error) {
	buf := make([]byte, size+config.PageSize)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	return (addr + config.PageSize - 1) &^ (uintptr(config.PageSize) - 1), nil
}

func (fakeAllocator) Free(addr uintptr, size uint32) {}

// withCurrentProcess schedules a fresh task owning process as the current
// task, so task.GetCurrent returns it for the duration of the test.
func withCurrentProcess(t *testing.T, process *task.Process) {
	t.Helper()
	prevLoad := paging.LoadDirectory
	t.Cleanup(func() { paging.LoadDirectory = prevLoad })
	paging.LoadDirectory = func(addr uintptr) {}

	tk, err := task.New(fakeAllocator{}, process)
	require.NoError(t, err)
	require.NoError(t, task.Switch(tk))
}

func TestPushAndPopRoundTrip(t *testing.T) {
	process := &task.Process{}
	withCurrentProcess(t, process)

	Push('a')
	Push('b')
	require.EqualValues(t, 'a', Pop())
	require.EqualValues(t, 'b', Pop())
	require.EqualValues(t, 0, Pop())
}

func TestPushIgnoresNullByte(t *testing.T) {
	process := &task.Process{}
	withCurrentProcess(t, process)

	Push(0)
	require.EqualValues(t, 0, Pop())
}

func TestPushDropsWhenBufferFull(t *testing.T) {
	process := &task.Process{}
	withCurrentProcess(t, process)

	for i := 0; i < config.KeyboardBufferSize-1; i++ {
		Push('x')
	}
	Push('y') // buffer full, should be dropped silently

	for i := 0; i < config.KeyboardBufferSize-1; i++ {
		require.EqualValues(t, 'x', Pop())
	}
	require.EqualValues(t, 0, Pop())
}

func TestBackspaceRemovesLastUnreadChar(t *testing.T) {
	process := &task.Process{}
	withCurrentProcess(t, process)

	Push('a')
	Push('b')
	Backspace()
	require.EqualValues(t, 'a', Pop())
	require.EqualValues(t, 0, Pop())
}

func TestBackspaceOnEmptyBufferIsNoop(t *testing.T) {
	process := &task.Process{}
	withCurrentProcess(t, process)

	Backspace()
	require.EqualValues(t, 0, Pop())
}

func TestPushPopWithNoCurrentProcessIsNoop(t *testing.T) {
	// Earlier tests leave a task current; make the current task one that
	// owns no process.
	withCurrentProcess(t, nil)

	require.NotPanics(t, func() { Push('a') })
	require.EqualValues(t, 0, Pop())
}

type stubDriver struct {
	initCalled bool
	initErr    error
}

func (d *stubDriver) Name() string { return "stub" }
func (d *stubDriver) Init() error {
	d.initCalled = true
	return d.initErr
}

func TestRegisterRunsInitAndAppendsToList(t *testing.T) {
	prevHead, prevTail := driverListHead, driverListTail
	driverListHead, driverListTail = nil, nil
	t.Cleanup(func() { driverListHead, driverListTail = prevHead, prevTail })

	d1 := &stubDriver{}
	d2 := &stubDriver{}
	require.NoError(t, Register(d1))
	require.NoError(t, Register(d2))
	require.True(t, d1.initCalled)
	require.True(t, d2.initCalled)
	require.Same(t, d1, driverListHead.driver)
	require.Same(t, d2, driverListTail.driver)
	require.Same(t, d2, driverListHead.next.driver)
}

func TestRegisterRejectsNilDriver(t *testing.T) {
	require.Error(t, Register(nil))
}
