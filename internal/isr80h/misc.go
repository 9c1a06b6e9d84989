package isr80h

import (
	"peachkernel/internal/idt"
	"peachkernel/internal/task"
)

// commandSum reads two ints off the current task's user stack and returns
// their sum, matching misc_isr80h_command_sum.
func commandSum(frame *idt.Frame) uint32 {
	current := task.Current()
	if current == nil {
		return 0
	}

	a, err := task.GetStackItem(current, 0)
	if err != nil {
		return 0
	}
	b, err := task.GetStackItem(current, 1)
	if err != nil {
		return 0
	}
	return a + b
}
