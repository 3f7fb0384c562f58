package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Runtime debug flag for allocation logging - controlled by HEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAP_LOG_ALLOC") != ""

// grow extends the arena so that a block of size payload bytes fits, turns
// the new range into one free block and merges it with a free block ending
// at the old break. Returns the header of the resulting free block.
//
// Growth is all-or-nothing: when the backend refuses, nothing changes and
// the error wraps ErrOutOfMemory. A corrupt free list is reported before the
// arena is extended.
func (h *Heap) grow(size int) (int, error) {
	need, ok := buf.AddSize(size, format.HeaderSize)
	if !ok || need > maxRequest(h.cfg.Alignment) {
		return format.NoBlock, fmt.Errorf("%w: block of %d bytes", ErrOutOfMemory, size)
	}
	amount := max(h.cfg.GrowthIncrement, format.AlignUp(need, h.cfg.Alignment))

	if h.onGrow != nil {
		h.onGrow(amount)
	}

	// The block ending at the old break is the only possible neighbour.
	oldEnd := h.be.Len()
	prev, _, err := h.neighbours(h.be.Bytes(), oldEnd, format.NoBlock)
	if err != nil {
		return format.NoBlock, err
	}

	if err := h.be.Extend(amount); err != nil {
		h.stats.GrowFailures++
		return format.NoBlock, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	h.stats.GrowCalls++
	h.stats.GrowBytes += int64(amount)

	if logAlloc {
		fmt.Fprintf(
			os.Stderr,
			"[GROW] #%d: need=%d → extending by %d bytes | arena %d → %d\n",
			h.stats.GrowCalls,
			size,
			amount,
			oldEnd,
			oldEnd+amount,
		)
	}

	data := h.be.Bytes()
	format.Stamp(data, oldEnd, amount-format.HeaderSize, true)
	h.insertFree(data, oldEnd)
	return h.coalesce(data, oldEnd, prev, format.NoBlock), nil
}
