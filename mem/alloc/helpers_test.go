package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/mem/arena"
)

// testArenaSize is the capacity of the Static backend behind test heaps.
const testArenaSize = 8 << 20

// newTestHeap creates a heap over a fresh Static backend.
// Use nil for DefaultConfig.
func newTestHeap(t testing.TB, cfg *Config) *Heap {
	t.Helper()
	h, _ := newTestHeapWithArena(t, testArenaSize, cfg)
	return h
}

// newTestHeapWithArena is newTestHeap with an explicit arena capacity. The
// backend is returned so tests can inspect raw arena bytes.
func newTestHeapWithArena(t testing.TB, size int, cfg *Config) (*Heap, *arena.Static) {
	t.Helper()
	s := arena.NewStatic(size)
	h, err := New(s, cfg)
	require.NoError(t, err, "failed to create test heap")
	t.Cleanup(func() { h.Close() })
	return h, s
}

// assertInvariants runs the full structural check.
func assertInvariants(t testing.TB, h *Heap) {
	t.Helper()
	require.NoError(t, h.Check(), "heap invariants violated")
}

// setupGrowCounter installs a hook counting arena extensions.
func setupGrowCounter(h *Heap) *int {
	count := 0
	h.onGrow = func(int) { count++ }
	return &count
}

// mustAlloc allocates n bytes or fails the test.
func mustAlloc(t testing.TB, h *Heap, n int) (Ptr, []byte) {
	t.Helper()
	p, b, err := h.Alloc(n)
	require.NoError(t, err, "Alloc(%d)", n)
	require.NotEqual(t, Nil, p)
	require.Len(t, b, n)
	return p, b
}

// freeBlocks returns the free list in list order.
func freeBlocks(t testing.TB, h *Heap) []Block {
	t.Helper()
	var out []Block
	require.NoError(t, h.WalkFree(func(b Block) bool {
		out = append(out, b)
		return true
	}))
	return out
}

// allBlocks returns every arena block in address order.
func allBlocks(t testing.TB, h *Heap) []Block {
	t.Helper()
	var out []Block
	require.NoError(t, h.Walk(func(b Block) bool {
		out = append(out, b)
		return true
	}))
	return out
}

// exhaustFreeList allocates every free block whole, largest first, so later
// requests can only be served by blocks the test frees itself.
func exhaustFreeList(t testing.TB, h *Heap) {
	t.Helper()
	for {
		blocks := freeBlocks(t, h)
		if len(blocks) == 0 {
			return
		}
		largest := 0
		for _, b := range blocks {
			largest = max(largest, b.Size)
		}
		mustAlloc(t, h, largest)
	}
}

// headerOf returns the header offset of p.
func headerOf(p Ptr) int {
	return int(p) - format.HeaderSize
}

// fill writes a recognizable pattern derived from seed.
func fill(b []byte, seed byte) {
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// verify reports the first index where b deviates from fill(b, seed).
func verify(b []byte, seed byte) int {
	for i := range b {
		if b[i] != seed+byte(i) {
			return i
		}
	}
	return -1
}
