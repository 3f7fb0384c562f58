package alloc

import (
	"fmt"
	"io"
)

// DumpFreeList writes the free list in list order.
func (h *Heap) DumpFreeList(w io.Writer) error {
	var lines []Block
	if err := h.WalkFree(func(b Block) bool {
		lines = append(lines, b)
		return true
	}); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Free list (%d blocks, policy %v):\n", len(lines), h.policy); err != nil {
		return err
	}
	for i, b := range lines {
		if _, err := fmt.Fprintf(w, "  [%d] header=0x%06x ptr=0x%06x size=%d\n", i, b.Header, uint64(b.Ptr), b.Size); err != nil {
			return err
		}
	}
	return nil
}

// DumpBlocks writes every block of the arena in address order.
func (h *Heap) DumpBlocks(w io.Writer) error {
	var blocks []Block
	if err := h.Walk(func(b Block) bool {
		blocks = append(blocks, b)
		return true
	}); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Arena (%d bytes, %d blocks):\n", h.End(), len(blocks)); err != nil {
		return err
	}
	for _, b := range blocks {
		state := "used"
		if b.Free {
			state = "free"
		}
		if _, err := fmt.Fprintf(w, "  0x%06x..0x%06x  %-4s  size=%d\n", b.Header, b.End(), state, b.Size); err != nil {
			return err
		}
	}
	return nil
}
