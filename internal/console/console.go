// Package console implements the VGA text-mode writer and a small
// printf-style formatter: the kernel's only output device. Grounded on the
// original kernel's utils/stdio.c.
//
// Direct writes to the 0xB8000 video buffer are isolated behind a Device
// interface so this package can be exercised on a host test binary (where
// that address isn't mapped to anything) against an in-memory screen
// instead. The real MMIO device is the default; boot wiring leaves it in place.
package console

import (
	"strconv"
	"strings"
	"unsafe"

	"peachkernel/internal/config"
)

// Device is a flat grid of VGA text-mode cells, each a (background,
// foreground, character) triple packed the way create_char does.
type Device interface {
	WriteCell(index int, value uint16)
}

func createChar(c byte, fg, bg uint8) uint16 {
	return uint16(bg)<<12 | uint16(fg)<<8 | uint16(c)
}

// mmioDevice writes straight to the VGA text buffer's physical address.
// Only ever installed on real hardware (or not at all, in tests).
type mmioDevice struct{}

func (mmioDevice) WriteCell(index int, value uint16) {
	cells := unsafe.Slice((*uint16)(unsafe.Pointer(uintptr(config.VGAMemoryAddr))), config.VGAWidth*config.VGAHeight)
	cells[index] = value
}

var device Device = mmioDevice{}

// SetDevice overrides the backing screen; internal/arch/x86 never needs to
// call this (mmioDevice is already correct on hardware), but tests do.
func SetDevice(d Device) { device = d }

// OutB writes a byte to an I/O port, used only to disable the hardware
// cursor. internal/arch/x86 overrides it at boot with the real `out`
// instruction; left a no-op otherwise so this package is host-testable.
var OutB = func(port uint16, value uint8) {}

const (
	fgWhite = 0x0F
	bgBlack = 0x00
)

var cursorX, cursorY int

func putChar(x, y int, c byte, fg, bg uint8) {
	device.WriteCell(y*config.VGAWidth+x, createChar(c, fg, bg))
}

// PrintChar writes one character at the cursor and advances it, handling
// '\n' and '\r' the way print_char does. Output past the bottom row is
// silently dropped, matching the original's "no more space" early return.
func PrintChar(c byte) {
	if cursorX < 0 || cursorX >= config.VGAWidth || cursorY < 0 || cursorY >= config.VGAHeight {
		return
	}

	switch c {
	case '\n':
		cursorX = 0
		cursorY++
		return
	case '\r':
		cursorX = 0
		return
	}

	putChar(cursorX, cursorY, c, fgWhite, bgBlack)

	cursorX++
	if cursorX >= config.VGAWidth {
		cursorX = 0
		cursorY++
	}
}

func printString(s string) {
	for i := 0; i < len(s); i++ {
		PrintChar(s[i])
	}
}

// Printf is a minimal formatter supporting %s %c %d %u %x %X %p, matching
// the specifiers utils/stdio.c's handle_format_specifier understands.
// Anything else (an unknown verb, or a trailing '%') is printed verbatim.
func Printf(format string, args ...any) {
	argIdx := 0
	next := func() any {
		if argIdx >= len(args) {
			return nil
		}
		v := args[argIdx]
		argIdx++
		return v
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			PrintChar(c)
			continue
		}
		i++
		verb := format[i]
		switch verb {
		case 's':
			if v, ok := next().(string); ok {
				printString(v)
			}
		case 'c':
			switch v := next().(type) {
			case byte:
				PrintChar(v)
			case rune:
				PrintChar(byte(v))
			case int:
				PrintChar(byte(v))
			case uint32:
				PrintChar(byte(v))
			}
		case 'd':
			printString(strconv.FormatInt(toInt64(next()), 10))
		case 'u':
			printString(strconv.FormatUint(toUint64(next()), 10))
		case 'x':
			printString(strconv.FormatInt(toInt64(next()), 16))
		case 'X':
			printString(strings.ToUpper(strconv.FormatUint(toUint64(next()), 16)))
		case 'p':
			printString("0x" + strconv.FormatUint(toUint64(next()), 16))
		default:
			PrintChar('%')
			PrintChar(verb)
		}
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case uintptr:
		return int64(n)
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case int:
		return uint64(n)
	case uint:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	case uintptr:
		return uint64(n)
	default:
		return 0
	}
}

// ClearScreen blanks the display and resets the cursor, matching
// clear_screen.
func ClearScreen() {
	for i := 0; i < config.VGAWidth*config.VGAHeight; i++ {
		device.WriteCell(i, createChar(' ', fgWhite, bgBlack))
	}
	cursorX, cursorY = 0, 0
	disableCursor()
}

// disableCursor matches disable_cursor: programs the CRT controller to
// hide the hardware text cursor.
func disableCursor() {
	OutB(config.VGACtrlPort, 0x0A)
	OutB(config.VGADataPort, 0x20)
}
