// Package idt builds and manages the Interrupt Descriptor Table: 256 gate
// descriptors, the division-by-zero, page-fault and control-protection
// fault stubs, and the generic IRQ handler that sends PIC EOI. Grounded on
// the original kernel's idt/idt.c.
//
// This package has no dependency on task scheduling or system calls; the
// ISR 0x80 gate calls out through a package-level dispatch variable
// (ISR80HDispatch, set by internal/isr80h during boot wiring) and the
// general interrupt handler runs per-vector callbacks installed through
// RegisterHandler, which is what keeps a C-style mutual reference between
// idt.c and task.c from becoming a Go import cycle.
package idt

import (
	"unsafe"

	"peachkernel/internal/config"
	"peachkernel/internal/console"
)

// Gate type/attribute bits, matching idt.h.
const (
	GateTypeInt32 = 0x0E
	DPLRing3      = 0x60
	Present       = 0x80
)

// Frame is the CPU state an interrupt stub pushes onto the kernel stack
// before calling into Go: the general-purpose registers (in pusha order)
// followed by the hardware-pushed EIP/CS/EFLAGS and, when a privilege
// change occurred, the user ESP/SS. The original kernel never gives this
// layout a name beyond an opaque idt_interrupt_stack_frame_t forward
// declaration; the field set here is reconstructed from every site that
// reads out of one (task_save_state in task.c).
type Frame struct {
	EDI, ESI, EBP, ESP, EBX, EDX, ECX, EAX uint32
	EIP, CS, EFLAGS                   uint32
	UserESP, SS                       uint32
}

type entry struct {
	offsetLow  uint16
	selector   uint16
	zero       uint8
	typeAttr   uint8
	offsetHigh uint16
}

var table [config.TotalInterrupts]entry

// SetGate installs a gate descriptor for interruptNumber pointing at
// handlerAddress, matching idt_set_gate.
func SetGate(interruptNumber uint8, handlerAddress uint32, selector uint16, typeAttr uint8) {
	table[interruptNumber] = entry{
		offsetLow:  uint16(handlerAddress & 0xFFFF),
		selector:   selector,
		zero:       0,
		typeAttr:   typeAttr,
		offsetHigh: uint16(handlerAddress >> 16),
	}
}

// Load writes the IDT's base and limit into the CPU via lidt. internal/arch/x86
// installs the real implementation at boot; the default is a no-op, and the
// Init test replaces it with a recorder.
var Load = func(base uintptr, limit uint16) {}

// ISR80HDispatch handles a syscall trap; nil until internal/isr80h wires
// itself in during boot.
var ISR80HDispatch func(syscallNumber int, frame *Frame) uint32

// handlers holds per-vector callbacks installed by device drivers (e.g. the
// PS/2 keyboard driver on the IRQ1 vector), matching
// idt_register_interrupt_callback. GeneralHandler consults this table
// before falling back to the plain report-and-EOI behavior.
var handlers [config.TotalInterrupts]func()

// RegisterHandler installs fn to run whenever vector fires through
// GeneralHandler. A vector outside the table range is silently ignored,
// matching idt_register_interrupt_callback's bounds check.
func RegisterHandler(vector int, fn func()) {
	if vector < 0 || vector >= config.TotalInterrupts {
		return
	}
	handlers[vector] = fn
}

// Init fills every vector with the generic handler stub, then overrides
// the dedicated ones, matching idt_init.
func Init(genericHandlerAddr, divByZeroAddr, pageFaultAddr, cpFaultAddr, isr80hAddr, keyboardAddr uint32) {
	const attr = Present | DPLRing3 | GateTypeInt32
	for i := 0; i < config.TotalInterrupts; i++ {
		SetGate(uint8(i), genericHandlerAddr, config.KernelCodeSelector, attr)
	}
	SetGate(0, divByZeroAddr, config.KernelCodeSelector, attr)
	SetGate(14, pageFaultAddr, config.KernelCodeSelector, attr)
	SetGate(21, cpFaultAddr, config.KernelCodeSelector, attr)
	SetGate(0x80, isr80hAddr, config.KernelCodeSelector, attr)
	SetGate(config.PIC1VectorOffset+1, keyboardAddr, config.KernelCodeSelector, attr)

	base := uintptr(unsafe.Pointer(&table[0]))
	Load(base, uint16(len(table)*8-1))
}

// DivByZeroHandler prints and halts, matching idt_div_by_zero_handler (the
// original has no recovery path for a division fault either).
func DivByZeroHandler() {
	console.Printf("Division by Zero Exception!\n")
	for {
	}
}

// PageFaultHandler matches idt_page_fault_handler: unrecoverable in this
// kernel, so it panics.
func PageFaultHandler(frame *Frame, faultingAddress uint32) {
	Panic("Page Fault Exception!")
}

// ControlProtectionFaultHandler matches idt_control_protection_fault_handler.
func ControlProtectionFaultHandler(frame *Frame) {
	Panic("Control Protection Fault Exception!")
}

// Panic is overridden by cmd/kernel with the real banner-and-halt
// behavior; defaulting to a plain console message keeps this package
// link-complete and testable on its own.
var Panic = func(msg string) { console.Printf("panic: %s\n", msg) }

// GeneralHandler runs for every vector served by the generic stub and for
// the keyboard IRQ1 stub, matching idt_general_interrupt_handler_c: it runs
// the callback registered for the vector (or reports the vector when there
// is none), then EOIs the owning PIC. It does not switch to kernel paging
// or save the current task's registers around the callback.
func GeneralHandler(interruptNumber int, frame *Frame) {
	if interruptNumber >= 0 && interruptNumber < len(handlers) && handlers[interruptNumber] != nil {
		handlers[interruptNumber]()
	} else {
		console.Printf("General Interrupt Received! Interrupt Number: %d\n", interruptNumber)
	}

	switch {
	case interruptNumber >= config.PIC1VectorOffset && interruptNumber < config.PIC1VectorOffset+8:
		OutB(config.PIC1CommandPort, 0x20)
	case interruptNumber >= config.PIC2VectorOffset && interruptNumber < config.PIC2VectorOffset+8:
		OutB(config.PIC2CommandPort, 0x20)
		OutB(config.PIC1CommandPort, 0x20)
	}
}

// OutB writes a byte to an I/O port. internal/arch/x86 overrides it at
// boot with the real `out` instruction.
var OutB = func(port uint16, value uint8) {}

// HandleISR80H is the Go-side entry point the ISR 0x80 assembly stub calls
// into, matching idt_isr80h_handler_c: it delegates to whatever dispatcher
// internal/isr80h registered.
func HandleISR80H(syscallNumber int, frame *Frame) uint32 {
	if ISR80HDispatch == nil {
		return 0
	}
	return ISR80HDispatch(syscallNumber, frame)
}
