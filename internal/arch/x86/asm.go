// Package x86 is the only package in this kernel allowed to touch real
// hardware: port I/O, GDT/IDT/CR3 loads, and the ring 3 entry trampoline.
// Every other package exposes an overridable function variable for the
// one or two machine instructions it needs (paging.LoadDirectory,
// idt.OutB, console.OutB, ...); this package supplies the real bodies and
// wires them in, the same split the original kernel's C files keep
// between inline asm() blocks and the rest of idt.c/paging.c/task.c.
package x86

import (
	_ "unsafe"

	"peachkernel/internal/task"
)

// The functions below have no Go body: they are implemented in asm_x86.s
// and reached through //go:linkname, the same bridge the reference
// kernel's ARM exception/UART code uses to call into its own boot.s.

//go:linkname outb outb
//go:nosplit
func outb(port uint16, value uint8)

//go:linkname inb inb
//go:nosplit
func inb(port uint16) uint8

//go:linkname outw outw
//go:nosplit
func outw(port uint16, value uint16)

//go:linkname inw inw
//go:nosplit
func inw(port uint16) uint16

//go:linkname lgdt lgdt
//go:nosplit
func lgdt(base uintptr, limit uint16)

//go:linkname lidt lidt
//go:nosplit
func lidt(base uintptr, limit uint16)

//go:linkname ltr ltr
//go:nosplit
func ltr(selector uint16)

//go:linkname loadCR3 loadCR3
//go:nosplit
func loadCR3(directoryPhysAddr uintptr)

//go:linkname enablePaging enablePaging
//go:nosplit
func enablePaging()

//go:linkname enableInterrupts enableInterrupts
//go:nosplit
func enableInterrupts()

//go:linkname jumpToUserMode jumpToUserMode
//go:nosplit
func jumpToUserMode(regs *task.Registers)

//go:linkname reloadUserDataSegments reloadUserDataSegments
//go:nosplit
func reloadUserDataSegments(selector uint16)

//go:linkname halt halt
//go:nosplit
func halt()

// OutB writes a byte to an I/O port.
func OutB(port uint16, value uint8) { outb(port, value) }

// InB reads a byte from an I/O port.
func InB(port uint16) uint8 { return inb(port) }

// OutW writes a word to an I/O port.
func OutW(port uint16, value uint16) { outw(port, value) }

// InW reads a word from an I/O port.
func InW(port uint16) uint16 { return inw(port) }

// LoadDirectory loads directoryPhysAddr into CR3, matching paging_switch's
// use of the `mov cr3` inline asm.
func LoadDirectory(directoryPhysAddr uintptr) { loadCR3(directoryPhysAddr) }

// EnablePaging sets CR0's paging bit, matching enable_paging.
func EnablePaging() { enablePaging() }

// EnableInterrupts executes sti, matching enable_interrupts.
func EnableInterrupts() { enableInterrupts() }

// ReloadUserDataSegments reloads DS/ES/FS/GS with selector, matching
// task_return's segment reload before the final iret.
func ReloadUserDataSegments(selector uint16) { reloadUserDataSegments(selector) }

// Halt executes hlt in an infinite loop; never returns.
func Halt() {
	for {
		halt()
	}
}

// ReturnToUserMode restores regs into the CPU and irets into ring 3,
// matching task_return's assembly tail. Installed as task.returnToUserMode
// during boot wiring.
func ReturnToUserMode(regs *task.Registers) { jumpToUserMode(regs) }
