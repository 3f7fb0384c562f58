package alloc

// Stats holds allocator counters. They are maintained on every call and are
// cheap to read.
type Stats struct {
	AllocCalls     int   // Total Alloc() calls, including those made by Calloc and Realloc
	AllocFastPath  int   // Allocations served from the free list
	AllocSlowPath  int   // Allocations that required growth
	FreeCalls      int   // Total non-nil Free() calls
	CallocCalls    int   // Total Calloc() calls
	ReallocCalls   int   // Realloc() calls on a live block
	ReallocInPlace int   // Resizes that kept the pointer
	InvalidFrees   int   // Frees rejected for a bad pointer
	DoubleFrees    int   // Frees rejected because the block was free
	SplitCount     int   // Number of block splits
	GrowCalls      int   // Successful arena extensions
	GrowFailures   int   // Arena extensions refused by the backend
	GrowBytes      int64 // Total bytes added to the arena

	CoalesceForward  int // Merges with the following block
	CoalesceBackward int // Merges into the preceding block

	BytesAllocated int64 // Payload bytes handed out over the heap's life
	BytesFreed     int64 // Payload bytes returned over the heap's life
	BytesInUse     int64 // Payload bytes currently allocated
	LiveBlocks     int   // Blocks currently allocated
}

// Stats returns a snapshot of the counters.
func (h *Heap) Stats() Stats {
	return h.stats
}

// Usage summarizes the arena as it is laid out right now.
type Usage struct {
	ArenaBytes  int // Arena break
	UsedBlocks  int // Allocated blocks
	UsedBytes   int // Payload bytes in allocated blocks
	FreeBlocks  int // Free blocks
	FreeBytes   int // Payload bytes in free blocks
	HeaderBytes int // Bytes spent on headers
	LargestFree int // Largest free payload
}

// Fragmentation returns 1 - LargestFree/FreeBytes: zero when all free space
// is one block, approaching one as it scatters.
func (u Usage) Fragmentation() float64 {
	if u.FreeBytes == 0 {
		return 0
	}
	return 1 - float64(u.LargestFree)/float64(u.FreeBytes)
}

// Usage walks the arena and tallies block usage.
func (h *Heap) Usage() (Usage, error) {
	u := Usage{ArenaBytes: h.End()}
	err := h.Walk(func(b Block) bool {
		u.HeaderBytes += int(b.Ptr) - b.Header
		if b.Free {
			u.FreeBlocks++
			u.FreeBytes += b.Size
			u.LargestFree = max(u.LargestFree, b.Size)
		} else {
			u.UsedBlocks++
			u.UsedBytes += b.Size
		}
		return true
	})
	return u, err
}
