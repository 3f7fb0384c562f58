package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/heapkit/internal/format"
)

// carve takes the free block at hdr off the free list for a request of size
// payload bytes, splitting off the tail when it is large enough.
func (h *Heap) carve(data []byte, hdr, size int) {
	h.removeFree(data, hdr)
	format.SetFree(data, hdr, false)
	h.split(data, hdr, size)

	s := int64(format.Size(data, hdr))
	h.stats.BytesAllocated += s
	h.stats.BytesInUse += s
	h.stats.LiveBlocks++
}

// split truncates the block at hdr to size payload bytes when the remainder
// can hold a header plus a minimum payload. The remainder becomes a free
// block on the list. Returns its header, or format.NoBlock if the block was
// left whole.
func (h *Heap) split(data []byte, hdr, size int) int {
	payload := format.Size(data, hdr)
	if !h.splits(payload, size) {
		return format.NoBlock
	}
	rem := payload - size
	h.stats.SplitCount++

	if logAlloc {
		fmt.Fprintf(
			os.Stderr,
			"[SPLIT] Splitting: block=%#x, payload=%d, need=%d, remainder=%d\n",
			hdr,
			payload,
			size,
			rem-format.HeaderSize,
		)
	}

	format.SetSize(data, hdr, size)
	tail := format.PayloadFor(hdr) + size
	format.Stamp(data, tail, rem-format.HeaderSize, true)
	h.insertFree(data, tail)
	return tail
}

// shrink truncates the allocated block at hdr in place. A split-off tail is
// merged with a free block that follows it.
func (h *Heap) shrink(data []byte, hdr, size int) error {
	before := format.Size(data, hdr)
	if !h.splits(before, size) {
		return nil
	}
	tail := format.PayloadFor(hdr) + size
	_, next, err := h.neighbours(data, tail, format.End(data, hdr))
	if err != nil {
		return err
	}

	h.split(data, hdr, size)
	h.stats.BytesInUse -= int64(before - size)
	h.coalesce(data, tail, format.NoBlock, next)
	return nil
}

// splits reports whether a block of payload bytes leaves a usable free block
// behind after a request of size bytes.
func (h *Heap) splits(payload, size int) bool {
	return payload-size >= h.cfg.MinAlloc+format.HeaderSize
}
