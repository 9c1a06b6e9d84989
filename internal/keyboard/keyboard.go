// Package keyboard implements the per-process keyboard ring buffer and the
// driver registration mechanism every keyboard driver plugs into. Grounded
// on the original kernel's keyboard/keyboard.c and keyboard/keyboard.h.
//
// Each process owns its own buffer (task.ProcessKeyboardBuffer), so input
// handling never has to ask which process is "focused" beyond asking which
// task is current: Push/Pop simply operate on task.GetCurrent()'s buffer.
package keyboard

import (
	"peachkernel/internal/config"
	"peachkernel/internal/kerr"
	"peachkernel/internal/task"
)

// Driver is a keyboard input source: a PS/2 controller, a USB HID stack,
// whatever. Init runs once at registration time, matching
// keyboard_driver_init_func_t.
type Driver interface {
	Name() string
	Init() error
}

type driverNode struct {
	driver Driver
	next   *driverNode
}

var (
	driverListHead *driverNode
	driverListTail *driverNode
)

// Register runs driver's Init and, on success, appends it to the driver
// list, matching keyboard_register_driver.
func Register(driver Driver) error {
	if driver == nil {
		return kerr.New("keyboard.Register", kerr.InvalidArgument)
	}
	if err := driver.Init(); err != nil {
		return err
	}
	node := &driverNode{driver: driver}
	if driverListHead == nil {
		driverListHead = node
		driverListTail = node
	} else {
		driverListTail.next = node
		driverListTail = node
	}
	return nil
}

// Init registers the built-in drivers, matching keyboard_init. Additional
// drivers (if any) are registered separately via Register.
func Init(drivers ...Driver) error {
	for _, d := range drivers {
		if err := Register(d); err != nil {
			return err
		}
	}
	return nil
}

func incrementIndex(i uint32) uint32 {
	return (i + 1) % config.KeyboardBufferSize
}

func decrementIndex(i uint32) uint32 {
	return (i + config.KeyboardBufferSize - 1) % config.KeyboardBufferSize
}

// Backspace removes the most recently pushed, unread character from the
// current process's buffer, matching keyboard_backspace.
func Backspace() {
	proc := task.GetCurrent()
	if proc == nil {
		return
	}
	if proc.Keyboard.Tail != proc.Keyboard.Head {
		proc.Keyboard.Tail = decrementIndex(proc.Keyboard.Tail)
	}
}

// Push appends c to the current process's buffer, matching keyboard_push.
// A null byte is ignored; a full buffer silently drops the new character
// rather than overwrite unread data, exactly as the original does.
func Push(c byte) {
	proc := task.GetCurrent()
	if proc == nil {
		return
	}
	if c == 0 {
		return
	}
	if incrementIndex(proc.Keyboard.Tail) == proc.Keyboard.Head {
		return
	}
	proc.Keyboard.Buffer[proc.Keyboard.Tail] = c
	proc.Keyboard.Tail = incrementIndex(proc.Keyboard.Tail)
}

// Pop removes and returns the oldest unread character from the current
// process's buffer, or 0 if empty or there is no current process,
// matching keyboard_pop.
func Pop() byte {
	proc := task.GetCurrent()
	if proc == nil {
		return 0
	}
	if proc.Keyboard.Head == proc.Keyboard.Tail {
		return 0
	}
	c := proc.Keyboard.Buffer[proc.Keyboard.Head]
	proc.Keyboard.Head = incrementIndex(proc.Keyboard.Head)
	return c
}
