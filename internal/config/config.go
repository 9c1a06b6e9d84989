// Package config centralizes the compile-time constants that describe this
// kernel's memory layout, segment selectors, and table sizes. A freestanding
// ring-0 binary has no config file to read at boot, so "configuration" here
// is the same thing it is in the original C kernel's config.h: named
// constants gathered in one place instead of scattered through the tree.
package config

const (
	// Segment selectors, indices into the GDT (each descriptor is 8 bytes).
	KernelCodeSelector = 0x08
	KernelDataSelector = 0x10
	UserCodeSelector   = 0x18
	UserDataSelector   = 0x20
	TSSSelector        = 0x28

	// RPLUser is OR'd into a selector loaded by ring-3 code.
	RPLUser = 0x03

	// IDT.
	TotalInterrupts   = 256
	ISR80HMaxCommands = 1024

	PIC1CommandPort  = 0x20
	PIC1DataPort     = 0x21
	PIC1VectorOffset = 0x20
	PIC2CommandPort  = 0xA0
	PIC2DataPort     = 0xA1
	PIC2VectorOffset = 0x28

	// Kernel heap: 100MiB of 4KiB blocks, addresses chosen per the x86
	// memory map conventions at https://wiki.osdev.org/Memory_Map_(x86).
	KernelHeapBlockSize    = 4096
	KernelHeapSizeBytes    = 100 * 1024 * 1024
	KernelHeapMaxBlocks    = KernelHeapSizeBytes / KernelHeapBlockSize
	KernelHeapAddress      = 0x01000000
	KernelHeapTableAddress = 0x00007E00

	// KernelStackTop is the ESP0 the TSS is programmed with: the stack the
	// CPU switches to on every ring 3 -> ring 0 transition. Sits well below
	// the heap so heap growth can never collide with it.
	KernelStackTop = 0x00200000

	// Paging.
	PageSize            = 4096
	PageEntriesPerTable = 1024
	PageDirectorySize   = PageEntriesPerTable * 4
	PageTableSize       = PageEntriesPerTable * 4

	// Program virtual memory layout for a user task's address space. The
	// stack sits directly below the program image and grows down from
	// ProgramVirtualStackTopAddress; ProgramVirtualStackSizeBytes is kept
	// well under that address so the bottom address stays positive and
	// page-aligned.
	ProgramVirtualAddress            = 0x400000
	ProgramVirtualStackSizeBytes     = 1024 * 1024
	ProgramVirtualStackTopAddress    = 0x3FF000
	ProgramVirtualStackBottomAddress = ProgramVirtualStackTopAddress - ProgramVirtualStackSizeBytes

	ProgramMaxProcesses = 12

	// Disks.
	DiskMaxDisks   = 1
	DiskSectorSize = 512

	// File system.
	FSMaxFileSystems     = 4
	FSMaxFileDescriptors = 512

	// Path parsing.
	PathMaxPartNameLength = 64
	PathMaxParts          = 32

	// Keyboard.
	KeyboardBufferSize = 1024

	// VGA text console.
	VGAWidth      = 80
	VGAHeight     = 25
	VGAMemoryAddr = 0xB8000
	VGACtrlPort   = 0x3D4
	VGADataPort   = 0x3D5
)
