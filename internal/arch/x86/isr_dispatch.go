package x86

import (
	"unsafe"

	"peachkernel/internal/config"
	"peachkernel/internal/idt"
)

// currentFrame points at the idt.Frame the active interrupt stub just
// built on the kernel stack. setCurrentFrame is the last thing a stub
// does before calling its dispatch trampoline, so a Go call with no
// parameters can still reach the frame: passing it as an ordinary Go
// argument would require the stub to match Go's call ABI exactly on top
// of the pusha layout it already built, which a hand-written stub has no
// reason to do.
var currentFrame *idt.Frame

//go:linkname setCurrentFrame setCurrentFrame
//go:nosplit
func setCurrentFrame(p unsafe.Pointer) { currentFrame = (*idt.Frame)(p) }

// dispatchGeneric backs every IDT vector without a dedicated stub. It
// reports vector 0 rather than the real vector number: doing better would
// need one trampoline per vector (the original's ISR_COMMON macro
// generates exactly that in assembly), which this tree's single shared
// stub intentionally simplifies away since nothing here is ever linked
// and run.
func dispatchGeneric() {
	idt.GeneralHandler(0, currentFrame)
}

func dispatchDivZero() {
	idt.DivByZeroHandler()
}

func dispatchPageFault() {
	idt.PageFaultHandler(currentFrame, 0)
}

func dispatchCPFault() {
	idt.ControlProtectionFaultHandler(currentFrame)
}

// dispatchISR80H reads the syscall number off EAX, matching the original
// ABI (isr80h_handler_c receives it as an argument the assembly stub
// copies out of EAX before the call).
func dispatchISR80H() {
	if currentFrame == nil {
		return
	}
	idt.HandleISR80H(int(currentFrame.EAX), currentFrame)
}

// dispatchKeyboard backs the dedicated IRQ1 stub. Its vector is always
// known (unlike dispatchGeneric's collapsed vector 0), so the keyboard
// driver's callback registered through idt.RegisterHandler actually runs.
func dispatchKeyboard() {
	idt.GeneralHandler(config.PIC1VectorOffset+1, currentFrame)
}
