package isr80h

import (
	"bytes"

	"peachkernel/internal/console"
	"peachkernel/internal/idt"
	"peachkernel/internal/keyboard"
	"peachkernel/internal/task"
)

// commandPrint reads a string pointer off the current task's user stack,
// copies the string out of the task's address space, and prints it,
// matching io_isr80h_command_print.
func commandPrint(frame *idt.Frame) uint32 {
	current := task.Current()
	if current == nil {
		return 0
	}

	strPtr, err := task.GetStackItem(current, 0)
	if err != nil {
		return 0
	}

	buf := make([]byte, MaxPrintLength)
	if err := task.CopyStringFromTask(current, strPtr, buf, MaxPrintLength); err != nil {
		return 0
	}

	if end := bytes.IndexByte(buf, 0); end >= 0 {
		buf = buf[:end]
	}
	console.Printf("%s", string(buf))
	return 0
}

// commandGetKeyboardChar pops one character off the current process's
// keyboard buffer, matching io_isr80h_command_get_keyboard_char.
func commandGetKeyboardChar(frame *idt.Frame) uint32 {
	return uint32(keyboard.Pop())
}

// commandPutChar reads a character off the current task's user stack and
// prints it, matching io_isr80h_command_put_char.
func commandPutChar(frame *idt.Frame) uint32 {
	current := task.Current()
	if current == nil {
		return 0
	}

	c, err := task.GetStackItem(current, 0)
	if err != nil {
		return 0
	}
	console.Printf("%c", c)
	return 0
}
