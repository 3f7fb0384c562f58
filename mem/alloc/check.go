package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Walk visits every block of the arena in address order until fn returns
// false. A header that fails validation stops the walk with ErrCorrupted.
func (h *Heap) Walk(fn func(Block) bool) error {
	if h.closed {
		return ErrClosed
	}
	data := h.be.Bytes()
	off := 0
	for off < len(data) {
		if err := format.CheckHeader(data, off); err != nil {
			return fmt.Errorf("%w: arena walk: %w", ErrCorrupted, err)
		}
		b := Block{
			Ptr:    Ptr(format.PayloadFor(off)),
			Header: off,
			Size:   format.Size(data, off),
			Free:   format.IsFree(data, off),
		}
		if !fn(b) {
			return nil
		}
		off = format.End(data, off)
	}
	return nil
}

// WalkFree visits every block on the free list in list order until fn
// returns false.
func (h *Heap) WalkFree(fn func(Block) bool) error {
	if h.closed {
		return ErrClosed
	}
	data := h.be.Bytes()
	return h.freeList(data).each(func(hdr, size int) bool {
		return fn(Block{Ptr: Ptr(format.PayloadFor(hdr)), Header: hdr, Size: size, Free: true})
	})
}

// HeaderBytes returns a copy of the raw header at hdr, as reported in
// Block.Header.
func (h *Heap) HeaderBytes(hdr int) ([]byte, error) {
	if h.closed {
		return nil, ErrClosed
	}
	data := h.be.Bytes()
	if err := format.CheckHeader(data, hdr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPointer, err)
	}
	raw, ok := buf.View(data, hdr, format.HeaderSize)
	if !ok {
		return nil, fmt.Errorf("%w: header %#x outside arena", ErrInvalidPointer, hdr)
	}
	return append([]byte(nil), raw...), nil
}

// Check verifies the structural invariants of the heap:
//   - block sizes tile the arena exactly and every header carries the magic
//   - payload sizes are aligned and at least the minimum allocation
//   - no two address-adjacent blocks are both free
//   - the free list holds exactly the blocks whose free bit is set, with
//     consistent back links
func (h *Heap) Check() error {
	cfg := h.cfg
	marked := make(map[int]bool)
	used := 0
	prevFree := false
	var walkErr error

	err := h.Walk(func(b Block) bool {
		switch {
		case !format.IsAligned(b.Size, cfg.Alignment):
			walkErr = fmt.Errorf("%w: block %#x size %d not aligned to %d", ErrCorrupted, b.Header, b.Size, cfg.Alignment)
		case b.Size < cfg.MinAlloc:
			walkErr = fmt.Errorf("%w: block %#x size %d below minimum %d", ErrCorrupted, b.Header, b.Size, cfg.MinAlloc)
		case !format.IsAligned(int(b.Ptr), cfg.Alignment):
			walkErr = fmt.Errorf("%w: block %#x payload misaligned", ErrCorrupted, b.Header)
		case b.Free && prevFree:
			walkErr = fmt.Errorf("%w: block %#x is free and follows a free block", ErrCorrupted, b.Header)
		}
		if walkErr != nil {
			return false
		}
		if b.Free {
			marked[b.Header] = true
		} else {
			used++
		}
		prevFree = b.Free
		return true
	})
	if err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}

	data := h.be.Bytes()
	seen := make(map[int]bool, len(marked))
	back := format.NoBlock
	err = h.freeList(data).each(func(hdr, _ int) bool {
		switch {
		case !marked[hdr]:
			walkErr = fmt.Errorf("%w: free list entry %#x is not a block boundary", ErrCorrupted, hdr)
		case seen[hdr]:
			walkErr = fmt.Errorf("%w: free list visits %#x twice", ErrCorrupted, hdr)
		case format.Prev(data, hdr) != back:
			walkErr = fmt.Errorf("%w: free list entry %#x back link %#x, want %#x",
				ErrCorrupted, hdr, format.Prev(data, hdr), back)
		}
		if walkErr != nil {
			return false
		}
		seen[hdr] = true
		back = hdr
		return true
	})
	if err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}
	if len(seen) != len(marked) {
		return fmt.Errorf("%w: %d blocks marked free, %d on the free list", ErrCorrupted, len(marked), len(seen))
	}
	if used != h.stats.LiveBlocks {
		return fmt.Errorf("%w: %d allocated blocks in arena, %d accounted", ErrCorrupted, used, h.stats.LiveBlocks)
	}
	return nil
}
