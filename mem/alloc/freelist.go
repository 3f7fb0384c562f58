package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// insertFree pushes the block at hdr onto the head of the free list and sets
// its free bit.
func (h *Heap) insertFree(data []byte, hdr int) {
	format.PutPrev(data, hdr, format.NoBlock)
	format.PutNext(data, hdr, h.head)
	if h.head != format.NoBlock {
		format.PutPrev(data, h.head, hdr)
	}
	h.head = hdr
	format.SetFree(data, hdr, true)
}

// removeFree unlinks the block at hdr using its own links and clears them.
// The free bit is left to the caller: carved blocks clear it, absorbed
// headers keep it so a stale pointer still reads as already freed.
func (h *Heap) removeFree(data []byte, hdr int) {
	prev := format.Prev(data, hdr)
	next := format.Next(data, hdr)

	if prev != format.NoBlock {
		format.PutNext(data, prev, next)
	} else {
		h.head = next
	}
	if next != format.NoBlock {
		format.PutPrev(data, next, prev)
	}

	format.PutPrev(data, hdr, format.NoBlock)
	format.PutNext(data, hdr, format.NoBlock)
}

func (h *Heap) freeList(data []byte) freeList {
	return freeList{data: data, head: h.head}
}

// freeList is a read-only view of the free list used by the fit strategies
// and the walkers.
type freeList struct {
	data []byte
	head int
}

// each visits every free block in list order until fn returns false. Every
// visited header is validated first: a bad magic, a clear free bit, an
// out-of-range link or a cycle aborts the walk with ErrCorrupted.
func (l freeList) each(fn func(hdr, size int) bool) error {
	limit := len(l.data)/format.HeaderSize + 1
	steps := 0
	for cur := l.head; cur != format.NoBlock; cur = format.Next(l.data, cur) {
		steps++
		if steps > limit {
			return fmt.Errorf("%w: free list does not terminate after %d blocks", ErrCorrupted, limit)
		}
		if err := format.CheckHeader(l.data, cur); err != nil {
			return fmt.Errorf("%w: free list: %w", ErrCorrupted, err)
		}
		if !format.IsFree(l.data, cur) {
			return fmt.Errorf("%w: free list: header %#x is not marked free", ErrCorrupted, cur)
		}
		if !fn(cur, format.Size(l.data, cur)) {
			return nil
		}
	}
	return nil
}
