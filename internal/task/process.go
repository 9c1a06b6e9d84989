package task

import (
	"unsafe"

	"peachkernel/internal/config"
	"peachkernel/internal/fs"
	"peachkernel/internal/kerr"
	"peachkernel/internal/paging"
)

// Process is one loaded program: its executable image and stack (both
// backed by physical memory so they can be mapped into the task's virtual
// address space), its main task, and its own keyboard input buffer.
// Grounded on the original kernel's task/process.c and task/process.h.
type Process struct {
	PID      uint16
	Filename string

	MainTask *Task

	FileBuffer []byte
	FileSize   uint32

	Stack []byte

	Keyboard ProcessKeyboardBuffer
}

// ProcessKeyboardBuffer is the per-process ring buffer the keyboard driver
// feeds, matching process_t's embedded keyboard_buffer struct.
type ProcessKeyboardBuffer struct {
	Buffer     [config.KeyboardBufferSize]byte
	Head, Tail uint32
}

var processTable [config.ProgramMaxProcesses]*Process

// BySlot returns the process occupying slot, or nil, matching
// process_get_process_by_slot.
func BySlot(slot uint16) *Process {
	if int(slot) >= len(processTable) {
		return nil
	}
	return processTable[slot]
}

// GetFreeSlot finds the first unoccupied process table slot, matching
// process_get_free_slot.
func GetFreeSlot() (uint16, error) {
	for i := range processTable {
		if processTable[i] == nil {
			return uint16(i), nil
		}
	}
	return 0, kerr.New("task.GetFreeSlot", kerr.Busy)
}

// loadBinary reads filename in full into process's physical file buffer,
// matching process_load_binary.
func loadBinary(alloc paging.FrameAllocator, filename string, process *Process) error {
	fd, err := fs.Open(filename, "r")
	if err != nil {
		return kerr.Wrap("task.loadBinary", kerr.IO, err)
	}
	defer fs.Close(fd)

	state, err := fs.Stat(fd)
	if err != nil {
		return kerr.Wrap("task.loadBinary", kerr.IO, err)
	}

	addr, err := alloc.AllocZeroed(state.FileSize)
	if err != nil {
		return kerr.Wrap("task.loadBinary", kerr.OutOfMemory, err)
	}
	buf := bytesAt(addr, int(state.FileSize))

	n, err := fs.Read(fd, buf)
	if err != nil {
		return kerr.Wrap("task.loadBinary", kerr.IO, err)
	}
	if uint32(n) != state.FileSize {
		return kerr.New("task.loadBinary", kerr.IO)
	}

	process.FileBuffer = buf
	process.FileSize = state.FileSize
	return nil
}

// mapMemory maps process's binary and stack into its main task's address
// space, matching process_map_memory.
func mapMemory(process *Process) error {
	chunk := process.MainTask.Chunk

	if err := chunk.MapVirtualAddresses(
		config.ProgramVirtualAddress,
		uint32(addrOfBytes(process.FileBuffer)),
		process.FileSize,
		userChunkFlags,
	); err != nil {
		return kerr.Wrap("task.mapMemory", kerr.Fault, err)
	}

	if err := chunk.MapVirtualAddresses(
		config.ProgramVirtualStackBottomAddress,
		uint32(addrOfBytes(process.Stack)),
		config.ProgramVirtualStackSizeBytes,
		userChunkFlags,
	); err != nil {
		return kerr.Wrap("task.mapMemory", kerr.Fault, err)
	}

	return nil
}

// LoadIntoSlot loads filename into the process table at slot, matching
// process_load_into_slot: allocates the process, reads its binary, creates
// its main task, allocates and maps its stack.
func LoadIntoSlot(alloc paging.FrameAllocator, filename string, slot uint16) (*Process, error) {
	if int(slot) >= len(processTable) {
		return nil, kerr.New("task.LoadIntoSlot", kerr.InvalidArgument)
	}
	if processTable[slot] != nil {
		return nil, kerr.New("task.LoadIntoSlot", kerr.Busy)
	}

	process := &Process{PID: slot, Filename: filename}

	if err := loadBinary(alloc, filename, process); err != nil {
		return nil, err
	}

	mainTask, err := New(alloc, process)
	if err != nil {
		return nil, err
	}
	process.MainTask = mainTask

	stackAddr, err := alloc.AllocZeroed(config.ProgramVirtualStackSizeBytes)
	if err != nil {
		_ = Free(mainTask)
		return nil, kerr.Wrap("task.LoadIntoSlot", kerr.OutOfMemory, err)
	}
	process.Stack = bytesAt(stackAddr, config.ProgramVirtualStackSizeBytes)

	if err := mapMemory(process); err != nil {
		_ = Free(mainTask)
		return nil, err
	}

	processTable[slot] = process
	return process, nil
}

// Load loads filename into the first free process table slot, matching
// process_load.
func Load(alloc paging.FrameAllocator, filename string) (*Process, error) {
	slot, err := GetFreeSlot()
	if err != nil {
		return nil, err
	}
	return LoadIntoSlot(alloc, filename, slot)
}

// GetCurrent returns the process owning the current task, matching
// process_get_current.
func GetCurrent() *Process {
	if current == nil {
		return nil
	}
	return current.Process
}

// ByPID returns the process loaded into slot pid, matching
// process_get_by_pid (slots double as PIDs in this kernel).
func ByPID(pid uint16) *Process {
	return BySlot(pid)
}

func addrOfBytes(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
