package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/mem/arena"
)

// Heap is an explicit allocator context: one arena, one free list, one fit
// policy. The zero value is not usable; construct with New.
type Heap struct {
	be  arena.Backend
	cfg Config

	// Free-list head header offset, format.NoBlock when empty
	head int

	policy   Policy
	strategy strategy

	// Statistics for testing and instrumentation
	stats Stats

	closed bool

	// Test hook: called before the arena is extended (nil in production)
	onGrow func(amount int)
}

var _ Allocator = (*Heap)(nil)

// New creates a heap over an empty backend.
//
// Parameters:
//   - be: The arena to carve blocks from; its break must be zero
//   - cfg: Heap configuration (use nil for DefaultConfig)
func New(be arena.Backend, cfg *Config) (*Heap, error) {
	if be == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrBadConfig)
	}
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	if be.Len() != 0 {
		return nil, fmt.Errorf("%w: backend already in use (break %d)", ErrBadConfig, be.Len())
	}
	s, err := strategyFor(c.Policy)
	if err != nil {
		return nil, err
	}

	return &Heap{
		be:       be,
		cfg:      c,
		head:     format.NoBlock,
		policy:   c.Policy,
		strategy: s,
	}, nil
}

// Config returns the normalized configuration.
func (h *Heap) Config() Config { return h.cfg }

// End returns the current arena break.
func (h *Heap) End() int { return h.be.Len() }

// Policy returns the active fit policy.
func (h *Heap) Policy() Policy { return h.policy }

// SetPolicy switches the fit policy for subsequent allocations.
func (h *Heap) SetPolicy(p Policy) error {
	s, err := strategyFor(p)
	if err != nil {
		return err
	}
	h.policy = p
	h.strategy = s
	return nil
}

// Alloc allocates at least n bytes. The returned slice has length n and
// capacity equal to the block's payload size.
func (h *Heap) Alloc(n int) (Ptr, []byte, error) {
	if h.closed {
		return Nil, nil, ErrClosed
	}
	h.stats.AllocCalls++

	if n == 0 {
		return Nil, nil, ErrZeroSize
	}
	size, err := h.normalize(n)
	if err != nil {
		return Nil, nil, err
	}

	data := h.be.Bytes()
	hdr, err := h.strategy.find(h.freeList(data), size)
	if err != nil {
		return Nil, nil, err
	}

	if hdr == format.NoBlock {
		hdr, err = h.grow(size)
		if err != nil {
			return Nil, nil, err
		}
		data = h.be.Bytes()
		h.stats.AllocSlowPath++
	} else {
		h.stats.AllocFastPath++
	}

	h.carve(data, hdr, size)
	return h.view(data, hdr, n)
}

// Free returns the block at p to the free list and merges it with free
// neighbours. Both checks run before anything is modified: a pointer without
// a valid header yields ErrInvalidPointer, a block that is already free
// yields ErrDoubleFree.
func (h *Heap) Free(p Ptr) error {
	if p == Nil {
		return nil
	}
	if h.closed {
		return ErrClosed
	}
	h.stats.FreeCalls++

	data := h.be.Bytes()
	hdr, err := h.header(data, p)
	if err != nil {
		h.stats.InvalidFrees++
		return err
	}
	if format.IsFree(data, hdr) {
		h.stats.DoubleFrees++
		return fmt.Errorf("%w: %#x", ErrDoubleFree, uint64(p))
	}

	prev, next, err := h.neighbours(data, hdr, format.End(data, hdr))
	if err != nil {
		return err
	}

	size := int64(format.Size(data, hdr))
	h.stats.BytesFreed += size
	h.stats.BytesInUse -= size
	h.stats.LiveBlocks--
	if h.cfg.Scrub {
		clear(data[format.PayloadFor(hdr):format.End(data, hdr)])
	}

	h.insertFree(data, hdr)
	h.coalesce(data, hdr, prev, next)
	return nil
}

// Calloc allocates count*size bytes and zeroes the whole payload. An
// overflowing product yields ErrOutOfMemory.
func (h *Heap) Calloc(count, size int) (Ptr, []byte, error) {
	if h.closed {
		return Nil, nil, ErrClosed
	}
	h.stats.CallocCalls++

	total, ok := buf.MulSize(count, size)
	if !ok {
		return Nil, nil, fmt.Errorf("%w: %d*%d overflows", ErrOutOfMemory, count, size)
	}
	p, b, err := h.Alloc(total)
	if err != nil {
		return Nil, nil, err
	}
	clear(b[:cap(b)])
	return p, b, nil
}

// Realloc resizes the block at p.
//
//   - p == Nil behaves like Alloc(n)
//   - n == 0 frees p and returns Nil
//   - when the payload already covers n the block is shrunk in place and p
//     is returned unchanged
//   - otherwise a new block is allocated, min(old, n) bytes are copied and p
//     is freed; if the allocation fails p is left untouched
func (h *Heap) Realloc(p Ptr, n int) (Ptr, []byte, error) {
	if p == Nil {
		return h.Alloc(n)
	}
	if h.closed {
		return Nil, nil, ErrClosed
	}
	h.stats.ReallocCalls++
	if n == 0 {
		return Nil, nil, h.Free(p)
	}

	data := h.be.Bytes()
	hdr, err := h.header(data, p)
	if err != nil {
		return Nil, nil, err
	}
	if format.IsFree(data, hdr) {
		return Nil, nil, fmt.Errorf("%w: %#x is free", ErrInvalidPointer, uint64(p))
	}
	size, err := h.normalize(n)
	if err != nil {
		return Nil, nil, err
	}

	oldSize := format.Size(data, hdr)
	if oldSize >= size {
		h.stats.ReallocInPlace++
		if err := h.shrink(data, hdr, size); err != nil {
			return Nil, nil, err
		}
		return h.view(data, hdr, n)
	}

	np, nb, err := h.Alloc(n)
	if err != nil {
		return Nil, nil, err
	}
	data = h.be.Bytes()
	payload := format.PayloadFor(hdr)
	copy(nb, data[payload:payload+min(oldSize, n)])
	if err := h.Free(p); err != nil {
		return Nil, nil, err
	}
	return np, nb, nil
}

// Bytes returns the full payload of the allocated block at p.
func (h *Heap) Bytes(p Ptr) ([]byte, error) {
	hdr, err := h.allocated(p)
	if err != nil {
		return nil, err
	}
	data := h.be.Bytes()
	_, b, err := h.view(data, hdr, format.Size(data, hdr))
	return b, err
}

// UsableSize returns the payload size of the allocated block at p, which
// may exceed the size originally requested.
func (h *Heap) UsableSize(p Ptr) (int, error) {
	hdr, err := h.allocated(p)
	if err != nil {
		return 0, err
	}
	return format.Size(h.be.Bytes(), hdr), nil
}

// Close zeroes the arena and releases the backend. Further calls fail with
// ErrClosed.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	clear(h.be.Bytes())
	h.head = format.NoBlock
	return h.be.Release()
}

// normalize rounds a request up to the alignment and the minimum size.
func (h *Heap) normalize(n int) (int, error) {
	if n < 0 || n > maxRequest(h.cfg.Alignment) {
		return 0, fmt.Errorf("%w: request of %d bytes", ErrOutOfMemory, n)
	}
	return max(format.AlignUp(n, h.cfg.Alignment), h.cfg.MinAlloc), nil
}

// maxRequest is the largest request whose aligned block still fits an int.
func maxRequest(align int) int {
	return int(^uint(0)>>1) - format.HeaderSize - align
}

// header validates p and returns the offset of its header.
func (h *Heap) header(data []byte, p Ptr) (int, error) {
	if p > Ptr(len(data)) || !format.IsAligned(int(p), h.cfg.Alignment) {
		return 0, fmt.Errorf("%w: %#x outside arena or misaligned", ErrInvalidPointer, uint64(p))
	}
	hdr, ok := format.HeaderFor(int(p))
	if !ok {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidPointer, uint64(p))
	}
	if err := format.CheckHeader(data, hdr); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPointer, err)
	}
	return hdr, nil
}

// allocated validates p and requires its block to be in use.
func (h *Heap) allocated(p Ptr) (int, error) {
	if h.closed {
		return 0, ErrClosed
	}
	hdr, err := h.header(h.be.Bytes(), p)
	if err != nil {
		return 0, err
	}
	if format.IsFree(h.be.Bytes(), hdr) {
		return 0, fmt.Errorf("%w: %#x is free", ErrInvalidPointer, uint64(p))
	}
	return hdr, nil
}

// view returns the payload of hdr truncated to n bytes.
func (h *Heap) view(data []byte, hdr, n int) (Ptr, []byte, error) {
	payload := format.PayloadFor(hdr)
	b, ok := buf.ViewCap(data, payload, n, format.Size(data, hdr))
	if !ok {
		return Nil, nil, fmt.Errorf("%w: block %#x overruns arena", ErrCorrupted, hdr)
	}
	return Ptr(payload), b, nil
}
