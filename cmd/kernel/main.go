// Command kernel is the 32-bit protected-mode kernel image's entry point.
// It is never started by `go run`: a bootloader (outside this module's
// scope) loads it at 0x100000 and jumps to KernelMain in real, already
// paging-free protected mode. main exists only so this package builds as
// an ordinary Go command and KernelMain stays linked in, matching the
// teacher's own KernelMain/main() split (kernel.go's main calls KernelMain
// with dummy arguments "to ensure it's compiled" since the real entry is
// from assembly).
package main

import (
	"unsafe"

	"peachkernel/internal/arch/x86"
	"peachkernel/internal/config"
	"peachkernel/internal/console"
	"peachkernel/internal/disk"
	"peachkernel/internal/fs"
	"peachkernel/internal/fs/fat16driver"
	"peachkernel/internal/heap"
	"peachkernel/internal/idt"
	"peachkernel/internal/isr80h"
	"peachkernel/internal/keyboard"
	"peachkernel/internal/paging"
	"peachkernel/internal/task"
)

// kernelHeapTable backs the physical heap's external block table. It is a
// statically sized package-level array (config.KernelHeapTableAddress is not
// used for it) rather than grown from any allocator: this table has to
// exist before anything else can allocate.
var kernelHeapTable [config.KernelHeapMaxBlocks]uint8

// panicBanner matches kernel.c's panic: print a banner and halt forever.
// Installed over idt.Panic during boot so every subsystem's failure path
// reaches it.
func panicBanner(msg string) {
	console.Printf("\nKERNEL PANIC: %s\n", msg)
	x86.Halt()
}

// KernelMain is called once, in ring 0, with paging and interrupts both
// still disabled. It brings up every subsystem in the order their
// dependencies demand: heap before paging (paging needs a FrameAllocator),
// paging before the GDT/TSS and IDT (both need the identity-mapped kernel
// chunk active), IDT before enabling interrupts, disk/FAT16/fs before the
// first process load, matching kernel_main's boot sequence.
func KernelMain() {
	console.ClearScreen()
	console.Printf("PeachKernel booting...\n")

	idt.Panic = panicBanner

	kernelHeap, err := heap.New(config.KernelHeapAddress, config.KernelHeapBlockSize, config.KernelHeapMaxBlocks, kernelHeapTable[:])
	if err != nil {
		panicBanner("failed to initialize kernel heap")
		return
	}
	kernelHeap.Zero = func(addr uintptr, size uint32) {
		clear(unsafe.Slice((*byte)(unsafe.Pointer(addr)), size))
	}
	alloc := heap.NewAllocator(kernelHeap)

	x86.Wire()

	kernelChunk, err := paging.NewChunk(alloc, paging.FlagPresent|paging.FlagWritable)
	if err != nil {
		panicBanner("failed to build kernel paging chunk")
		return
	}
	paging.SetKernelChunk(kernelChunk)
	if err := paging.SwitchToKernel(); err != nil {
		panicBanner("failed to activate kernel paging")
		return
	}
	x86.EnablePaging()

	x86.InitGDT(config.KernelStackTop)

	generic, divZero, pageFault, cpFault, isr80hAddr, keyboardAddr := x86.ISRStubAddresses()
	idt.Init(generic, divZero, pageFault, cpFault, isr80hAddr, keyboardAddr)

	task.SetKernelAllocator(alloc)

	if err := isr80h.Init(); err != nil {
		panicBanner("failed to register system calls")
		return
	}

	if err := keyboard.Init(keyboard.NewClassicDriver()); err != nil {
		panicBanner("failed to initialize keyboard")
		return
	}

	if err := fs.InsertDriver(fat16driver.New()); err != nil {
		panicBanner("failed to register FAT16 driver")
		return
	}

	// primaryDiskSectorLimit is a conservative cap on how many sectors one
	// ReadLBA call will serve; the real capacity would come from an ATA
	// IDENTIFY command, which this kernel never issues (single fixed disk
	// in QEMU, matching the Non-goal against supporting multiple disks).
	const primaryDiskSectorLimit = 1 << 20
	if _, err := disk.Register(0, x86.ATADisk{}, primaryDiskSectorLimit); err != nil {
		panicBanner("failed to register primary disk")
		return
	}

	x86.EnableInterrupts()

	shell, err := task.Load(alloc, "0:/shell.bin")
	if err != nil {
		panicBanner("failed to load initial program")
		return
	}
	_ = shell

	task.RunFirstEverTask()

	// task_run_first_ever_task never returns on real hardware (it irets
	// into ring 3); this is here only so the function has a terminal
	// statement when linked on a host that can't actually fault into user
	// mode, matching the teacher's KernelMain's own trailing infinite loop.
	x86.Halt()
}

func main() {
	KernelMain()
}
