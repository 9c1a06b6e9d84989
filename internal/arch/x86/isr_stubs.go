package x86

import (
	"reflect"
	_ "unsafe"
)

// The interrupt entry stubs below have no Go body: they live in
// asm_x86.s, save the CPU state pusha left on the stack into an idt.Frame,
// and call into the matching Go handler before iret. IDT gates must point
// at these stubs, not at the Go handlers directly — the CPU can only
// legally vector into raw code, and only a stub built by hand knows the
// exact pusha/iret dance the trap requires (idt.c's own ISR entries play
// the same role around idt_*_handler_c).
//
//go:linkname isrGenericStub isrGenericStub
//go:nosplit
func isrGenericStub()

//go:linkname isrDivZeroStub isrDivZeroStub
//go:nosplit
func isrDivZeroStub()

//go:linkname isrPageFaultStub isrPageFaultStub
//go:nosplit
func isrPageFaultStub()

//go:linkname isrCPFaultStub isrCPFaultStub
//go:nosplit
func isrCPFaultStub()

//go:linkname isr80hStub isr80hStub
//go:nosplit
func isr80hStub()

// isrKeyboardStub is the dedicated IRQ1 entry point: unlike isrGenericStub
// it always reports the correct vector (PIC1VectorOffset+1) to
// idt.GeneralHandler, since the PS/2 keyboard driver's interrupt callback
// has to actually run for GET_KEYBOARD_CHAR to ever return a real
// keystroke rather than rely on the generic stub's vector-0 simplification.
//
//go:linkname isrKeyboardStub isrKeyboardStub
//go:nosplit
func isrKeyboardStub()

func stubAddr(stub func()) uint32 {
	return uint32(reflect.ValueOf(stub).Pointer())
}

// ISRStubAddresses returns the six gate target addresses idt.Init needs, in
// the order it expects them (generic, div-by-zero, page fault,
// control-protection fault, ISR 0x80, keyboard IRQ1).
func ISRStubAddresses() (generic, divZero, pageFault, cpFault, isr80h, keyboard uint32) {
	return stubAddr(isrGenericStub),
		stubAddr(isrDivZeroStub),
		stubAddr(isrPageFaultStub),
		stubAddr(isrCPFaultStub),
		stubAddr(isr80hStub),
		stubAddr(isrKeyboardStub)
}
