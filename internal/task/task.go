// Package task implements the task control block, the task list, and
// context switching between per-task 4GiB paging chunks. Grounded on the
// original kernel's task/task.c; Task and Process live in the same package
// here because the original's mutual task_t*/process_t* forward
// declarations are two concrete struct definitions that reference each
// other, which in Go is naturally one package rather than two that would
// otherwise import each other.
//
// There is exactly one CPU and no preemption in this kernel (scheduling is
// explicitly out of scope), so the task list, current task pointer, and
// process table below are ordinary package-level state rather than
// anything requiring synchronization.
package task

import (
	"unsafe"

	"peachkernel/internal/config"
	"peachkernel/internal/idt"
	"peachkernel/internal/kerr"
	"peachkernel/internal/paging"
)

// kernelAlloc supplies the temporary kernel buffers CopyStringFromTask
// needs; cmd/kernel wires this to the real physical heap at boot.
var kernelAlloc paging.FrameAllocator

// SetKernelAllocator installs the physical allocator used for temporary
// cross-address-space buffers.
func SetKernelAllocator(alloc paging.FrameAllocator) { kernelAlloc = alloc }

func bytesAt(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

func wordsAt(addr uintptr, n int) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(addr)), n)
}

// userChunkFlags are the flags every task's address space is built with:
// present, writable, and accessible from ring 3.
const userChunkFlags = paging.FlagPresent | paging.FlagWritable | paging.FlagUser

// Registers holds the CPU state saved on a context switch, matching
// task_registers_t exactly (pusha order followed by the hardware-pushed
// interrupt frame).
type Registers struct {
	EDI, ESI, EBP, EBX, EDX, ECX, EAX uint32
	EIP, CS, EFLAGS                   uint32
	UserESP, SS                       uint32
}

// Task is one schedulable unit: a paging chunk (its 4GiB address space)
// plus the saved register state, linked into the global task list.
type Task struct {
	PID       uint32
	Chunk     *paging.Chunk
	Registers Registers
	Process   *Process

	next, prev *Task
}

var (
	listHead *Task
	listTail *Task
	current  *Task
)

// listRemove unlinks t from the global task list, matching task_list_remove.
func listRemove(t *Task) {
	if t == nil {
		return
	}

	if t.prev != nil {
		t.prev.next = t.next
	} else if listHead == t {
		listHead = t.next
	} else {
		return
	}

	if t.next != nil {
		t.next.prev = t.prev
	} else if listTail == t {
		listTail = t.prev
	} else {
		return
	}

	t.next, t.prev = nil, nil
}

func listAppend(t *Task) {
	if listHead == nil {
		listHead = t
		listTail = t
		current = t
		return
	}
	listTail.next = t
	t.prev = listTail
	listTail = t
}

// New builds a task for process, allocating its 4GiB paging chunk through
// alloc and appending it to the task list, matching task_new/task_init.
func New(alloc paging.FrameAllocator, process *Process) (*Task, error) {
	chunk, err := paging.NewChunk(alloc, userChunkFlags)
	if err != nil {
		return nil, kerr.Wrap("task.New", kerr.OutOfMemory, err)
	}

	t := &Task{
		Chunk:   chunk,
		Process: process,
		Registers: Registers{
			EIP:     config.ProgramVirtualAddress,
			SS:      config.UserDataSelector | config.RPLUser,
			CS:      config.UserCodeSelector | config.RPLUser,
			UserESP: config.ProgramVirtualStackTopAddress,
		},
	}
	listAppend(t)
	return t, nil
}

// Free unlinks t from the task list and releases its paging chunk,
// matching task_free. Nothing in the steady-state boot path calls this
// (neither does the original), but a task that can be created should be
// able to be torn down.
func Free(t *Task) error {
	if t == nil {
		return kerr.New("task.Free", kerr.InvalidArgument)
	}
	listRemove(t)
	if t.Chunk != nil {
		t.Chunk.Free()
	}
	return nil
}

// Current returns the running task, or nil if none has been scheduled yet.
func Current() *Task { return current }

// Next returns the task after current in the list, or the list head if no
// task is current yet, matching task_get_next. Since scheduling is out of
// scope, nothing in this kernel calls this today; it exists for parity
// with the original's API surface.
func Next() *Task {
	if current == nil {
		return listHead
	}
	return current.next
}

// Switch activates next's paging chunk and makes it current, matching
// task_switch.
func Switch(next *Task) error {
	if next == nil {
		return kerr.New("task.Switch", kerr.InvalidArgument)
	}
	if err := paging.Switch(next.Chunk); err != nil {
		return kerr.Wrap("task.Switch", kerr.Fault, err)
	}
	current = next
	return nil
}

// restoreUserDataSegment reloads DS/ES/FS/GS with the user data selector
// before switching page tables out from under them. Implemented in
// internal/arch/x86 and wired in at boot; left a no-op so this package
// links and tests on its own.
var restoreUserDataSegment = func() {}

// PageCurrent re-activates the current task's paging chunk, matching
// task_page_current.
func PageCurrent() error {
	if current == nil || current.Chunk == nil {
		return kerr.New("task.PageCurrent", kerr.InvalidArgument)
	}
	restoreUserDataSegment()
	return Switch(current)
}

// PageTask activates t's paging chunk, matching task_page_task.
func PageTask(t *Task) error {
	if t == nil || t.Chunk == nil {
		return kerr.New("task.PageTask", kerr.InvalidArgument)
	}
	restoreUserDataSegment()
	return Switch(t)
}

// returnToUserMode restores general-purpose registers from regs and irets
// into ring 3. Implemented in internal/arch/x86; a no-op here so
// RunFirstEverTask stays callable (and testable up to this point) on the
// host.
var returnToUserMode = func(regs *Registers) {}

// SetReturnToUserMode installs the real ring-3 entry trampoline;
// internal/arch/x86 calls this during boot wiring.
func SetReturnToUserMode(fn func(regs *Registers)) { returnToUserMode = fn }

// SetRestoreUserDataSegment installs the real DS/ES/FS/GS reload used
// before every CR3 switch; internal/arch/x86 calls this during boot
// wiring.
func SetRestoreUserDataSegment(fn func()) { restoreUserDataSegment = fn }

// RunFirstEverTask switches to the first task in the list and drops into
// user mode, matching task_run_first_ever_task. Panics via idt.Panic if no
// task has ever been created, matching the original's unconditional panic.
func RunFirstEverTask() {
	if listHead == nil {
		idt.Panic("No tasks available to run.")
		return
	}
	current = listHead
	if err := Switch(current); err != nil {
		idt.Panic("No tasks available to run.")
		return
	}
	restoreUserDataSegment()
	returnToUserMode(&current.Registers)
}

// saveState copies the interrupt frame's CPU state into t's saved
// registers, matching task_save_state.
func saveState(t *Task, frame *idt.Frame) {
	if t == nil || frame == nil {
		return
	}
	t.Registers.EDI = frame.EDI
	t.Registers.ESI = frame.ESI
	t.Registers.EBP = frame.EBP
	t.Registers.EBX = frame.EBX
	t.Registers.EDX = frame.EDX
	t.Registers.ECX = frame.ECX
	t.Registers.EAX = frame.EAX
	t.Registers.EIP = frame.EIP
	t.Registers.CS = frame.CS
	t.Registers.EFLAGS = frame.EFLAGS
	t.Registers.UserESP = frame.UserESP
	t.Registers.SS = frame.SS
}

// SaveCurrentState saves the current task's CPU state from frame, matching
// task_save_current_state. Called by internal/isr80h at the top of a
// syscall trap.
func SaveCurrentState(frame *idt.Frame) {
	if current == nil || frame == nil {
		return
	}
	saveState(current, frame)
}

// CopyStringFromTask copies up to maxLength bytes from a virtual address in
// task's address space into destPhys, a kernel-space buffer. Matches
// task_copy_string_from_task: a temporary kernel buffer is identity-mapped
// into the task's own address space at the buffer's own (physical) address
// so that after switching into the task's paging, writes to that virtual
// address land in the buffer the kernel can already see; the original page
// table entry is restored afterward regardless of outcome.
func CopyStringFromTask(t *Task, srcVirtAddr uint32, destPhys []byte, maxLength uint32) error {
	if t == nil || destPhys == nil || maxLength == 0 {
		return kerr.New("task.CopyStringFromTask", kerr.InvalidArgument)
	}
	if maxLength > config.PageSize {
		return kerr.New("task.CopyStringFromTask", kerr.InvalidArgument)
	}

	tempBuffer, err := kernelAlloc.AllocZeroed(maxLength)
	if err != nil {
		return kerr.Wrap("task.CopyStringFromTask", kerr.OutOfMemory, err)
	}
	defer kernelAlloc.Free(tempBuffer, maxLength)

	originalEntry := t.Chunk.GetPageEntry(uint32(tempBuffer))
	if originalEntry == 0 {
		return kerr.New("task.CopyStringFromTask", kerr.NotFound)
	}
	defer func() {
		_ = t.Chunk.MapVirtualAddress(uint32(tempBuffer), originalEntry)
	}()

	if err := t.Chunk.MapVirtualAddress(uint32(tempBuffer), uint32(tempBuffer)|userChunkFlags); err != nil {
		return kerr.Wrap("task.CopyStringFromTask", kerr.Fault, err)
	}

	tempWords := bytesAt(tempBuffer, int(maxLength))

	if err := Switch(t); err != nil {
		return kerr.Wrap("task.CopyStringFromTask", kerr.Fault, err)
	}
	copyCString(tempWords, bytesAt(uintptr(srcVirtAddr), int(maxLength)), maxLength)

	if err := paging.SwitchToKernel(); err != nil {
		return kerr.Wrap("task.CopyStringFromTask", kerr.Fault, err)
	}
	copyCString(destPhys, tempWords, maxLength)

	return nil
}

// copyCString copies up to n bytes from src to dst, stopping at the first
// NUL the way strncpy's source-side truncation does, and leaves any
// remaining destination bytes as they were (this kernel's buffers are
// always freshly zeroed, matching strncpy's NUL-padding in practice).
func copyCString(dst, src []byte, n uint32) {
	for i := uint32(0); i < n && i < uint32(len(dst)) && i < uint32(len(src)); i++ {
		dst[i] = src[i]
		if src[i] == 0 {
			break
		}
	}
}

// GetStackItem reads the index'th uint32 on t's user stack (as saved in
// UserESP), switching into t's paging to do it and back to kernel paging
// afterward, matching task_get_stack_item.
func GetStackItem(t *Task, index uint32) (uint32, error) {
	if t == nil {
		return 0, kerr.New("task.GetStackItem", kerr.InvalidArgument)
	}

	stackBase := t.Registers.UserESP

	if err := PageTask(t); err != nil {
		return 0, err
	}
	words := wordsAt(uintptr(stackBase), int(index)+1)
	value := words[index]

	if err := paging.SwitchToKernel(); err != nil {
		return 0, err
	}
	return value, nil
}
