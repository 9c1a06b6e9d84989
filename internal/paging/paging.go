// Package paging builds and manipulates 4GiB, 4KiB-page address spaces: one
// page directory of 1024 entries, each pointing at a page table of 1024
// entries, exactly the two-level layout the x86 MMU expects when paging is
// enabled. Grounded on the original kernel's paging.c.
//
// Directory and table storage is obtained through a FrameAllocator so the
// same index math is exercised both by the real kernel (backed by the
// physical heap) and by tests (backed by ordinary Go-allocated memory whose
// address is taken with unsafe.Pointer). The identity-mapped low memory a
// freestanding x86 kernel runs in makes a physical address and a directly
// dereferenceable pointer the same number, which is what lets this package
// read and write entries as a plain []uint32 view instead of going through
// a port-mapped accessor.
package paging

import (
	"unsafe"

	"peachkernel/internal/config"
	"peachkernel/internal/kerr"
)

// FrameAllocator supplies zeroed, page-aligned physical memory for page
// directories and page tables, and reclaims it on Free.
type FrameAllocator interface {
	AllocZeroed(size uint32) (uintptr, error)
	Free(addr uintptr, size uint32)
}

// Chunk is a complete 4GiB address space: one page directory and the 1024
// page tables it points to.
type Chunk struct {
	alloc        FrameAllocator
	directory    uintptr
	tableAddrs   [config.PageEntriesPerTable]uintptr
}

func wordsAt(addr uintptr, n int) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(addr)), n)
}

// NewChunk allocates a page directory and identity-maps all 4GiB of
// physical memory through 1024 page tables, each entry carrying flags.
// This mirrors paging_4gb_chunk_init: every task starts with a full
// identity map and callers overlay program-specific mappings with
// MapVirtualAddress afterward.
func NewChunk(alloc FrameAllocator, flags uint32) (*Chunk, error) {
	dirAddr, err := alloc.AllocZeroed(config.PageDirectorySize)
	if err != nil {
		return nil, kerr.Wrap("paging.NewChunk", kerr.OutOfMemory, err)
	}
	chunk := &Chunk{alloc: alloc, directory: dirAddr}
	directory := wordsAt(dirAddr, config.PageEntriesPerTable)

	for i := 0; i < config.PageEntriesPerTable; i++ {
		tableAddr, err := alloc.AllocZeroed(config.PageTableSize)
		if err != nil {
			chunk.free()
			return nil, kerr.Wrap("paging.NewChunk", kerr.OutOfMemory, err)
		}
		chunk.tableAddrs[i] = tableAddr

		table := wordsAt(tableAddr, config.PageEntriesPerTable)
		for j := 0; j < config.PageEntriesPerTable; j++ {
			physical := uint32(i*config.PageEntriesPerTable*config.PageSize + j*config.PageSize)
			table[j] = physical | flags
		}
		directory[i] = uint32(tableAddr) | flags
	}

	return chunk, nil
}

func (c *Chunk) free() {
	for _, addr := range c.tableAddrs {
		if addr != 0 {
			c.alloc.Free(addr, config.PageTableSize)
		}
	}
	if c.directory != 0 {
		c.alloc.Free(c.directory, config.PageDirectorySize)
	}
}

// Free releases the chunk's directory and every page table it owns.
// The steady-state boot path never calls this (neither does the original
// kernel); it exists for completeness since a chunk that can be built
// should be able to be torn down.
func (c *Chunk) Free() {
	c.free()
}

// DirectoryAddress returns the physical address of the page directory, the
// value CR3 must be loaded with to activate this chunk.
func (c *Chunk) DirectoryAddress() uintptr { return c.directory }

// LoadDirectory writes a page directory's physical address into CR3. On
// real hardware this is a single mov-to-cr3; internal/arch/x86 overrides it
// at boot. The default body is a no-op, so host tests that call
// Switch/SwitchToKernel never touch CR3.
var LoadDirectory = func(directoryAddr uintptr) {}

var kernelChunk *Chunk

// SetKernelChunk records the identity-mapped chunk the kernel itself runs
// under, so SwitchToKernel can return to it from any task's address space.
// Matches the global kernel_chunk the original's kernel.c holds.
func SetKernelChunk(c *Chunk) { kernelChunk = c }

// SwitchToKernel activates the kernel's own paging chunk, matching
// kernel_page().
func SwitchToKernel() error {
	if kernelChunk == nil {
		return kerr.New("paging.SwitchToKernel", kerr.Fault)
	}
	return Switch(kernelChunk)
}

// Switch activates c's page directory, matching paging_switch_4gb_chunk.
func Switch(c *Chunk) error {
	if c == nil || c.directory == 0 {
		return kerr.New("paging.Switch", kerr.InvalidArgument)
	}
	LoadDirectory(c.directory)
	return nil
}

// IsAlignedToPageSize reports whether address falls on a page boundary.
func IsAlignedToPageSize(address uint32) bool {
	return address%config.PageSize == 0
}

// AlignDownToPageSize rounds address down to the nearest page boundary.
func AlignDownToPageSize(address uint32) uint32 {
	return (address / config.PageSize) * config.PageSize
}

func indexesFromAddress(virtualAddress uint32) (directoryIndex, tableIndex uint32, err error) {
	if !IsAlignedToPageSize(virtualAddress) {
		return 0, 0, kerr.New("paging.indexesFromAddress", kerr.InvalidArgument)
	}
	const bytesPerDirectoryEntry = config.PageSize * config.PageEntriesPerTable
	directoryIndex = virtualAddress / bytesPerDirectoryEntry
	tableIndex = (virtualAddress % bytesPerDirectoryEntry) / config.PageSize
	return directoryIndex, tableIndex, nil
}

// MapVirtualAddress installs a single page-aligned mapping: the page table
// entry selected by virtualAddress is overwritten with value (a physical
// address with flags already OR'd in).
func (c *Chunk) MapVirtualAddress(virtualAddress, value uint32) error {
	if value == 0 {
		return kerr.New("paging.MapVirtualAddress", kerr.InvalidArgument)
	}

	dirIdx, tableIdx, err := indexesFromAddress(virtualAddress)
	if err != nil {
		return kerr.Wrap("paging.MapVirtualAddress", kerr.InvalidArgument, err)
	}

	tableAddr := c.tableAddrs[dirIdx]
	if tableAddr == 0 {
		return kerr.New("paging.MapVirtualAddress", kerr.InvalidArgument)
	}

	table := wordsAt(tableAddr, config.PageEntriesPerTable)
	table[tableIdx] = value
	return nil
}

// MapVirtualAddresses maps a byte range [physicalAddressStart,
// physicalAddressStart+size) at virtualAddressStart, one page at a time.
func (c *Chunk) MapVirtualAddresses(virtualAddressStart, physicalAddressStart, size, flags uint32) error {
	if !IsAlignedToPageSize(virtualAddressStart) || !IsAlignedToPageSize(physicalAddressStart) {
		return kerr.New("paging.MapVirtualAddresses", kerr.InvalidArgument)
	}

	pagesToMap := (size + config.PageSize - 1) / config.PageSize
	for i := uint32(0); i < pagesToMap; i++ {
		virtual := virtualAddressStart + i*config.PageSize
		physical := physicalAddressStart + i*config.PageSize
		if err := c.MapVirtualAddress(virtual, physical|flags); err != nil {
			return err
		}
	}
	return nil
}

// GetPageEntry returns the raw page table entry mapped at virtualAddress,
// or 0 if the address isn't resolvable.
func (c *Chunk) GetPageEntry(virtualAddress uint32) uint32 {
	dirIdx, tableIdx, err := indexesFromAddress(virtualAddress)
	if err != nil {
		return 0
	}
	tableAddr := c.tableAddrs[dirIdx]
	if tableAddr == 0 {
		return 0
	}
	table := wordsAt(tableAddr, config.PageEntriesPerTable)
	return table[tableIdx]
}
