// Package heap implements the kernel's physical memory allocator: a
// first-fit allocator over a fixed-size external block table, one byte per
// 4KiB block, the same layout the original kernel's heap.c uses (a table
// kept separate from the memory region it describes, so the allocator never
// has to read the memory it manages).
//
// Block bookkeeping is plain slice indexing, so this package needs no real
// physical memory to run its tests against — only arithmetic over the
// address range it was told to manage.
package heap

import (
	"peachkernel/internal/kerr"
)

const (
	entryTypeFree uint8 = 0x00
	entryTypeUsed uint8 = 0x01
	entryTypeMask uint8 = 0x0F

	flagHasNext uint8 = 0x40
	flagIsFirst uint8 = 0x80
)

const invalidBlockIndex = ^uint32(0)

// Heap manages a physical address range in fixed-size blocks, tracked by an
// external table with one entry per block.
type Heap struct {
	table       []uint8
	startAddr   uintptr
	blockSize   uint32
	totalBlocks uint32

	// Zero, when non-nil, is invoked over a newly allocated range before it
	// is handed back to the caller (cmd/kernel points this at a clear over
	// the real physical window; tests leave it nil and only check
	// bookkeeping).
	Zero func(addr uintptr, size uint32)
}

// New creates a heap managing [startAddr, startAddr+blockSize*totalBlocks)
// using table as the external block table. table must have exactly
// totalBlocks entries.
func New(startAddr uintptr, blockSize uint32, totalBlocks uint32, table []uint8) (*Heap, error) {
	if blockSize == 0 || totalBlocks == 0 {
		return nil, kerr.New("heap.New", kerr.InvalidArgument)
	}
	if uint32(len(table)) != totalBlocks {
		return nil, kerr.New("heap.New", kerr.InvalidArgument)
	}
	if startAddr%uintptr(blockSize) != 0 {
		return nil, kerr.New("heap.New", kerr.InvalidArgument)
	}

	for i := range table {
		table[i] = entryTypeFree
	}

	return &Heap{
		table:       table,
		startAddr:   startAddr,
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
	}, nil
}

func (h *Heap) alignToUpper(size uint32) uint32 {
	if size%h.blockSize == 0 {
		return size
	}
	return (size/h.blockSize + 1) * h.blockSize
}

func (h *Heap) blockAddress(index uint32) uintptr {
	return h.startAddr + uintptr(index)*uintptr(h.blockSize)
}

func (h *Heap) blockIndex(addr uintptr) uint32 {
	return uint32((addr - h.startAddr) / uintptr(h.blockSize))
}

func (h *Heap) startBlockIndex(numBlocks uint32) uint32 {
	start := invalidBlockIndex
	count := uint32(0)

	for i := uint32(0); i < h.totalBlocks; i++ {
		if h.table[i]&entryTypeMask != entryTypeFree {
			start = invalidBlockIndex
			count = 0
			continue
		}
		if start == invalidBlockIndex {
			start = i
		}
		count++
		if count == numBlocks {
			return start
		}
	}
	return invalidBlockIndex
}

func (h *Heap) markUsed(start, numBlocks uint32) {
	for i := uint32(0); i < numBlocks; i++ {
		entry := entryTypeUsed
		if i == 0 {
			entry |= flagIsFirst
		}
		if i < numBlocks-1 {
			entry |= flagHasNext
		}
		h.table[start+i] = entry
	}
}

func (h *Heap) markFree(start uint32) {
	current := start
	for {
		entry := h.table[current]
		h.table[current] = entryTypeFree
		if entry&flagHasNext == 0 {
			return
		}
		current++
	}
}

// Malloc allocates size bytes, rounded up to a whole number of blocks, and
// returns the physical address of the first block.
func (h *Heap) Malloc(size uint32) (uintptr, error) {
	if size == 0 {
		return 0, kerr.New("heap.Malloc", kerr.InvalidArgument)
	}

	aligned := h.alignToUpper(size)
	numBlocks := aligned / h.blockSize

	start := h.startBlockIndex(numBlocks)
	if start == invalidBlockIndex {
		return 0, kerr.New("heap.Malloc", kerr.OutOfMemory)
	}

	h.markUsed(start, numBlocks)
	addr := h.blockAddress(start)
	if h.Zero != nil {
		h.Zero(addr, aligned)
	}
	return addr, nil
}

// Zmalloc is Malloc with the returned range always zeroed, matching the
// original kernel's kheap_zmalloc; since Malloc already zeroes when a Zero
// hook is installed, Zmalloc is the same call with an explicit name for
// callers that rely on the zeroing contract.
func (h *Heap) Zmalloc(size uint32) (uintptr, error) {
	return h.Malloc(size)
}

// Free releases the blocks starting at ptr, which must be a block-aligned
// address previously returned by Malloc; any other pointer is rejected with
// kerr.InvalidArgument and the block table is left unchanged.
func (h *Heap) Free(ptr uintptr) error {
	if ptr%uintptr(h.blockSize) != 0 || ptr < h.startAddr {
		return kerr.New("heap.Free", kerr.InvalidArgument)
	}

	index := h.blockIndex(ptr)
	if index >= h.totalBlocks || h.table[index]&flagIsFirst == 0 {
		return kerr.New("heap.Free", kerr.InvalidArgument)
	}

	h.markFree(index)
	return nil
}

// TotalBlocks reports the number of blocks this heap manages.
func (h *Heap) TotalBlocks() uint32 { return h.totalBlocks }

// BlockSize reports the size, in bytes, of a single block.
func (h *Heap) BlockSize() uint32 { return h.blockSize }
