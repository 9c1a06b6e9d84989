package x86

import (
	"unsafe"

	"peachkernel/internal/config"
)

// descriptor is one 8-byte GDT entry: null, kernel code, kernel data,
// user code, user data, and the TSS descriptor.
type descriptor struct {
	limitLow   uint16
	baseLow    uint16
	baseMiddle uint8
	access     uint8
	granularity uint8
	baseHigh   uint8
}

func flatDescriptor(access, granularity uint8) descriptor {
	return descriptor{
		limitLow:    0xFFFF,
		baseLow:     0,
		baseMiddle:  0,
		access:      access,
		granularity: granularity,
		baseHigh:    0,
	}
}

// TSS is the Task State Segment. Only esp0/ss0 are ever touched after
// setup (this kernel never uses hardware task switching), matching the
// original's tss_t but unused fields still present for layout fidelity
// with real hardware, which reads the whole structure on every privilege
// transition.
type TSS struct {
	PrevTSS            uint32
	ESP0               uint32
	SS0                uint32
	ESP1               uint32
	SS1                uint32
	ESP2               uint32
	SS2                uint32
	CR3                uint32
	EIP                uint32
	EFLAGS             uint32
	EAX, ECX, EDX, EBX uint32
	ESP, EBP           uint32
	ESI, EDI           uint32
	ES, CS, SS, DS     uint32
	FS, GS             uint32
	LDT                uint32
	Trap               uint16
	IOMapBase          uint16
}

var (
	gdt [6]descriptor
	tss TSS
)

// tssDescriptor builds the GDT entry describing tss's base/limit.
func tssDescriptor() descriptor {
	base := uint32(uintptr(unsafe.Pointer(&tss)))
	limit := uint32(unsafe.Sizeof(tss)) - 1
	return descriptor{
		limitLow:    uint16(limit & 0xFFFF),
		baseLow:     uint16(base & 0xFFFF),
		baseMiddle:  uint8((base >> 16) & 0xFF),
		access:      0xE9, // present, ring 3, 32-bit available TSS, matching kernel.c's gdt_real entry
		granularity: uint8((limit >> 16) & 0x0F),
		baseHigh:    uint8((base >> 24) & 0xFF),
	}
}

// InitGDT builds the segment descriptor table and the TSS, then loads
// both, matching the original's static gdt_real/tss_load wiring in
// kernel.c. kernelStackTop is the ESP0 the CPU switches to on a ring 3 to
// ring 0 transition (an interrupt or syscall trap).
func InitGDT(kernelStackTop uint32) {
	gdt[0] = descriptor{}                    // null descriptor
	gdt[1] = flatDescriptor(0x9A, 0xCF)       // kernel code: present, ring0, exec/read
	gdt[2] = flatDescriptor(0x92, 0xCF)       // kernel data: present, ring0, read/write
	gdt[3] = flatDescriptor(0xFA, 0xCF)       // user code: present, ring3, exec/read
	gdt[4] = flatDescriptor(0xF2, 0xCF)       // user data: present, ring3, read/write

	tss = TSS{
		SS0:  config.KernelDataSelector,
		ESP0: kernelStackTop,
	}
	gdt[5] = tssDescriptor()

	base := uintptr(unsafe.Pointer(&gdt[0]))
	limit := uint16(unsafe.Sizeof(gdt)) - 1
	lgdt(base, limit)
	ltr(config.TSSSelector)
}

// SetKernelStack updates the TSS's ESP0, matching the per-switch update
// task_switch otherwise would need before every ring 3 entry.
func SetKernelStack(esp0 uint32) { tss.ESP0 = esp0 }
