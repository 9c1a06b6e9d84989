package heap

// Allocator adapts a Heap to the shape internal/paging and internal/task
// expect from a physical memory supplier (AllocZeroed/Free), so the same
// block-bitmap heap backs both kheap_malloc-style kernel allocations and
// the page directories/tables a paging chunk needs.
type Allocator struct {
	h *Heap
}

// NewAllocator wraps h.
func NewAllocator(h *Heap) *Allocator { return &Allocator{h: h} }

// AllocZeroed allocates size bytes, always zeroed (Heap.Zmalloc's
// contract), matching kheap_zmalloc.
func (a *Allocator) AllocZeroed(size uint32) (uintptr, error) {
	return a.h.Zmalloc(size)
}

// Free releases addr. size is accepted to satisfy the FrameAllocator shape
// but unused: the block table already knows how many blocks an allocation
// spans from the flagHasNext chain written at alloc time.
func (a *Allocator) Free(addr uintptr, size uint32) {
	_ = a.h.Free(addr)
}
