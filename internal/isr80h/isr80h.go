// Package isr80h dispatches ISR 0x80 system calls to registered command
// handlers. Grounded on the original kernel's isr80h/isr80h.c, which this
// package consolidates with idt.c's own (near-identical) dispatch helpers:
// the original kept a second copy of the same switch-to-kernel /
// save-state / handle / page-back-in sequence inline in idt_isr80h_handler_c,
// which here is just Dispatch wired into idt.ISR80HDispatch once, at boot.
package isr80h

import (
	"peachkernel/internal/config"
	"peachkernel/internal/idt"
	"peachkernel/internal/kerr"
	"peachkernel/internal/paging"
	"peachkernel/internal/task"
)

// Command numbers, matching isr80h_command_num_t plus the two command
// numbers isr80h_register_commands references but isr80h.h's captured
// enum doesn't spell out.
const (
	CmdSum = iota
	CmdPrint
	CmdGetKeyboardChar
	CmdPutChar
)

// MaxPrintLength bounds how much of a user string CmdPrint will copy in
// one call, matching MAX_PRINT_LENGTH (io.c clamps to a single page).
const MaxPrintLength = 1024

// Handler services one ISR 0x80 command. It receives the current task's
// saved frame (already copied into the task by Dispatch) and returns the
// syscall's result, matching idt_interrupt_handler_t's void* return
// narrowed to the one word a caller can actually use back in assembly.
type Handler func(frame *idt.Frame) uint32

var handlers [config.ISR80HMaxCommands]Handler

// RegisterHandler installs handler for commandNumber, matching
// isr80h_register_handler.
func RegisterHandler(commandNumber int, handler Handler) error {
	if commandNumber < 0 || commandNumber >= len(handlers) {
		return kerr.New("isr80h.RegisterHandler", kerr.InvalidArgument)
	}
	handlers[commandNumber] = handler
	return nil
}

// RegisterCommands installs the built-in command handlers, matching
// isr80h_register_commands.
func RegisterCommands() error {
	if err := RegisterHandler(CmdSum, commandSum); err != nil {
		return err
	}
	if err := RegisterHandler(CmdPrint, commandPrint); err != nil {
		return err
	}
	if err := RegisterHandler(CmdGetKeyboardChar, commandGetKeyboardChar); err != nil {
		return err
	}
	if err := RegisterHandler(CmdPutChar, commandPutChar); err != nil {
		return err
	}
	return nil
}

// Init registers the built-in commands and wires Dispatch into idt so
// `int 0x80` traps reach it, matching the combined effect of
// isr80h_register_commands and idt_isr80h_handler_c's static wiring.
func Init() error {
	if err := RegisterCommands(); err != nil {
		return err
	}
	idt.ISR80HDispatch = Dispatch
	return nil
}

// Dispatch is the Go-side entry point for an ISR 0x80 trap, matching
// isr80h_handler_c: switch into kernel paging, snapshot the interrupting
// task's registers from frame, run the requested command, then switch
// back into the task's own address space before returning.
func Dispatch(syscallNumber int, frame *idt.Frame) uint32 {
	if err := paging.SwitchToKernel(); err != nil {
		return 0
	}
	task.SaveCurrentState(frame)

	result := handleCommand(syscallNumber, frame)

	_ = task.PageCurrent()
	return result
}

// handleCommand looks up and invokes the handler for syscallNumber,
// matching isr80h_handle_command: an out-of-range or unregistered command
// number simply yields no result.
func handleCommand(syscallNumber int, frame *idt.Frame) uint32 {
	if syscallNumber < 0 || syscallNumber >= len(handlers) {
		return 0
	}
	handler := handlers[syscallNumber]
	if handler == nil {
		return 0
	}
	return handler(frame)
}
