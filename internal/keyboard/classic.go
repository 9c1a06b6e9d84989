package keyboard

import (
	"peachkernel/internal/config"
	"peachkernel/internal/idt"
)

const (
	i8042DataPort        = 0x60
	i8042StatusPort      = 0x64
	i8042CommandPort     = 0x64
	i8042EnableFirstPort = 0xAE
)

// KeyboardIRQ is the IDT vector the classic driver's interrupt handler runs
// on: PIC1's vector offset plus IRQ1, matching KEYBOARD_IDT_INTERRUPT_NUMBER.
const KeyboardIRQ = config.PIC1VectorOffset + 1

// scancodeSet1 maps a subset of PS/2 scan code set 1 to ASCII, transcribed
// from classic.c's scancode_set_1 table.
var scancodeSet1 = [...]byte{
	0x00, 0x1B, '1', '2', '3', '4', '5',
	'6', '7', '8', '9', '0', '-', '=',
	0x08, '\t', 'Q', 'W', 'E', 'R', 'T',
	'Y', 'U', 'I', 'O', 'P', '[', ']',
	0x0d, 0x00, 'A', 'S', 'D', 'F', 'G',
	'H', 'J', 'K', 'L', ';', '\'', '`',
	0x00, '\\', 'Z', 'X', 'C', 'V', 'B',
	'N', 'M', ',', '.', '/', 0x00, '*',
	0x00, 0x20, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, '7', '8', '9', '-', '4', '5',
	'6', '+', '1', '2', '3', '0', '.',
}

// backspaceScancode is the scan code scancodeSet1 maps to 0x08; the
// interrupt handler routes it to Backspace instead of Push.
const backspaceScancode = 0x0E

// scancodeReleaseMask is set in a scancode byte when the key was released
// rather than pressed; classic_keyboard_handle_interrupt ignores releases.
const scancodeReleaseMask = 0x80

// InB reads a byte from an I/O port. internal/arch/x86 overrides it at
// boot with the real `in` instruction.
var InB = func(port uint16) uint8 { return 0 }

// OutB writes a byte to an I/O port. internal/arch/x86 overrides it at
// boot with the real `out` instruction.
var OutB = func(port uint16, value uint8) {}

// ClassicDriver is the PS/2 "classic" keyboard driver, matching
// classic_keyboard_driver.
type ClassicDriver struct{}

// NewClassicDriver returns a ClassicDriver, matching
// classic_keyboard_driver_init.
func NewClassicDriver() *ClassicDriver { return &ClassicDriver{} }

func (ClassicDriver) Name() string { return "Classic Keyboard Driver" }

// Init enables the 8042 controller's first port and registers this
// driver's interrupt handler on the IRQ1 vector, matching
// classic_keyboard_init (which the original pairs with
// idt_register_interrupt_callback at the same call site in kernel.c).
func (d ClassicDriver) Init() error {
	OutB(i8042CommandPort, i8042EnableFirstPort)
	idt.RegisterHandler(KeyboardIRQ, d.HandleInterrupt)
	return nil
}

// ScancodeToASCII converts a scan code set 1 byte to ASCII, matching
// classic_scancode_to_ascii. Scancodes outside the table return 0.
func ScancodeToASCII(scancode uint8) byte {
	if int(scancode) < len(scancodeSet1) {
		return scancodeSet1[scancode]
	}
	return 0
}

// HandleInterrupt reads one scancode off the 8042 data port and pushes its
// translated character onto the current process's buffer, matching (and
// completing) classic_keyboard_handle_interrupt, which the original left
// as an empty stub. Key-release codes and backspace are handled
// separately from an ordinary Push.
func (ClassicDriver) HandleInterrupt() {
	scancode := InB(i8042DataPort)
	if scancode&scancodeReleaseMask != 0 {
		return
	}
	if scancode == backspaceScancode {
		Backspace()
		return
	}
	if c := ScancodeToASCII(scancode); c != 0 {
		Push(c)
	}
}
