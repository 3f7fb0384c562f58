package alloc

import "github.com/joshuapare/heapkit/internal/format"

// neighbours scans the free list for the free blocks that end exactly at hdr
// and start exactly at end. It only reads: callers run it before touching
// the heap so a corrupt list aborts the operation with nothing changed.
func (h *Heap) neighbours(data []byte, hdr, end int) (prev, next int, err error) {
	prev, next = format.NoBlock, format.NoBlock
	err = h.freeList(data).each(func(cur, size int) bool {
		if format.PayloadFor(cur)+size == hdr {
			prev = cur
		}
		if cur == end {
			next = cur
		}
		return prev == format.NoBlock || next == format.NoBlock
	})
	if err != nil {
		return format.NoBlock, format.NoBlock, err
	}
	return prev, next, nil
}

// coalesce merges the free block at hdr with the neighbours found by
// neighbours and returns the surviving header.
//
// The block must already be on the free list. The following block is
// absorbed first, then the result is absorbed into the preceding block.
func (h *Heap) coalesce(data []byte, hdr, prev, next int) int {
	if next != format.NoBlock {
		h.stats.CoalesceForward++
		h.removeFree(data, next)
		format.SetSize(data, hdr, format.Size(data, hdr)+format.HeaderSize+format.Size(data, next))
	}

	if prev != format.NoBlock {
		h.stats.CoalesceBackward++
		h.removeFree(data, hdr)
		format.SetSize(data, prev, format.Size(data, prev)+format.HeaderSize+format.Size(data, hdr))
		hdr = prev
	}

	return hdr
}
