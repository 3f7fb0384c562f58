package alloc

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/mem/arena"
)

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New(nil, nil)
	require.ErrorIs(t, err, ErrBadConfig)

	used := arena.NewStatic(4096)
	require.NoError(t, used.Extend(64))
	_, err = New(used, nil)
	require.ErrorIs(t, err, ErrBadConfig)

	_, err = New(arena.NewStatic(4096), &Config{Alignment: 12})
	require.ErrorIs(t, err, ErrBadConfig)

	_, err = New(arena.NewStatic(4096), &Config{Policy: Policy(9)})
	require.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestAlloc_ZeroSize(t *testing.T) {
	h := newTestHeap(t, nil)

	p, b, err := h.Alloc(0)
	require.ErrorIs(t, err, ErrZeroSize)
	assert.Equal(t, Nil, p)
	assert.Nil(t, b)
	assert.Equal(t, 0, h.End(), "zero-size request must not grow the arena")
}

func TestAlloc_NegativeSize(t *testing.T) {
	h := newTestHeap(t, nil)

	_, _, err := h.Alloc(-1)
	require.ErrorIs(t, err, ErrOutOfMemory)
	_, _, err = h.Alloc(math.MaxInt)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 0, h.End())
}

func TestAlloc_FirstRequestGrowsArena(t *testing.T) {
	h := newTestHeap(t, nil)
	growCount := setupGrowCounter(h)

	p, b := mustAlloc(t, h, 100)
	assert.Equal(t, Ptr(format.HeaderSize), p, "first payload follows the first header")
	assert.Equal(t, 104, cap(b), "capacity is the aligned payload")
	assert.Equal(t, 1, *growCount)
	assert.Equal(t, DefaultConfig.GrowthIncrement, h.End())

	size, err := h.UsableSize(p)
	require.NoError(t, err)
	assert.Equal(t, 104, size)

	assertInvariants(t, h)
}

func TestAlloc_MinimumFloor(t *testing.T) {
	h := newTestHeap(t, nil)

	p, b := mustAlloc(t, h, 1)
	assert.Equal(t, 40, cap(b))
	size, err := h.UsableSize(p)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.MinAlloc, size)
}

func TestAlloc_LargeRequestGrowsToFit(t *testing.T) {
	h := newTestHeap(t, &ConfigCompact)

	p, b := mustAlloc(t, h, 3*format.PageSize)
	assert.Len(t, b, 3*format.PageSize)
	assert.Equal(t, format.AlignUp(3*format.PageSize+format.HeaderSize, 8), h.End())

	fill(b, 7)
	again, err := h.Bytes(p)
	require.NoError(t, err)
	assert.Equal(t, -1, verify(again, 7))
	assertInvariants(t, h)
}

func TestAlloc_NoOverlap(t *testing.T) {
	h := newTestHeap(t, nil)

	type span struct{ lo, hi int }
	var spans []span
	for i := range 200 {
		n := 1 + (i*37)%900
		p, b := mustAlloc(t, h, n)
		fill(b, byte(i))
		spans = append(spans, span{int(p), int(p) + cap(b)})
	}

	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			require.False(t, a.lo < b.hi && b.lo < a.hi, "spans %v and %v overlap", a, b)
		}
	}
	assertInvariants(t, h)
}

func TestAlloc_PayloadAlignment(t *testing.T) {
	for _, align := range []int{8, 16, 32} {
		h := newTestHeap(t, &Config{Alignment: align})
		for n := 1; n < 300; n += 13 {
			p, _ := mustAlloc(t, h, n)
			require.Zero(t, int(p)%align, "align=%d n=%d p=%#x", align, n, p)
		}
		assertInvariants(t, h)
	}
}

func TestAlloc_ReusesFreedBlockWithoutGrowth(t *testing.T) {
	h := newTestHeap(t, nil)
	p, _ := mustAlloc(t, h, 512)
	mustAlloc(t, h, 8)
	require.NoError(t, h.Free(p))

	growCount := setupGrowCounter(h)
	q, _ := mustAlloc(t, h, 512)
	assert.Zero(t, *growCount)
	assert.Equal(t, p, q)
}

func TestFree_Nil(t *testing.T) {
	h := newTestHeap(t, nil)
	require.NoError(t, h.Free(Nil))
	assert.Zero(t, h.Stats().FreeCalls)
}

func TestFree_InvalidPointer(t *testing.T) {
	h, s := newTestHeapWithArena(t, testArenaSize, nil)
	p, b := mustAlloc(t, h, 64)
	fill(b, 1)
	before := bytes.Clone(s.Bytes())

	cases := map[string]Ptr{
		"misaligned":   p + 3,
		"inside":       p + 8,
		"before first": Ptr(format.HeaderSize - 8),
		"past end":     Ptr(h.End() + 64),
		"at end":       Ptr(h.End()),
		"huge":         Ptr(math.MaxUint64 - 7),
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, h.Free(bad), ErrInvalidPointer)
		})
	}

	assert.Equal(t, before, s.Bytes(), "rejected frees must not modify the arena")
	assert.Equal(t, len(cases), h.Stats().InvalidFrees)
	assertInvariants(t, h)
}

func TestFree_DoubleFreeLeavesPayload(t *testing.T) {
	h := newTestHeap(t, nil)
	p, b := mustAlloc(t, h, 64)
	mustAlloc(t, h, 64)
	fill(b, 9)

	require.NoError(t, h.Free(p))
	snapshot := bytes.Clone(b)
	listBefore := freeBlocks(t, h)

	err := h.Free(p)
	require.ErrorIs(t, err, ErrDoubleFree)
	assert.Equal(t, snapshot, b, "payload changed by rejected free")
	assert.Equal(t, listBefore, freeBlocks(t, h))
	assert.Equal(t, 1, h.Stats().DoubleFrees)
	assertInvariants(t, h)
}

func TestFree_MergedPointerStillDoubleFree(t *testing.T) {
	h := newTestHeap(t, nil)
	a, _ := mustAlloc(t, h, 64)
	b, _ := mustAlloc(t, h, 64)
	mustAlloc(t, h, 64)

	require.NoError(t, h.Free(a))
	require.NoError(t, h.Free(b))
	require.ErrorIs(t, h.Free(b), ErrDoubleFree, "absorbed header must still read as freed")
	assertInvariants(t, h)
}

func TestFree_AdjacentBlocksMerge(t *testing.T) {
	h := newTestHeap(t, nil)
	a, _ := mustAlloc(t, h, 8)
	b, _ := mustAlloc(t, h, 64)
	c, _ := mustAlloc(t, h, 8)

	require.NoError(t, h.Free(a))
	require.NoError(t, h.Free(b))

	merged := Block{}
	for _, blk := range freeBlocks(t, h) {
		if blk.Header == headerOf(a) {
			merged = blk
		}
	}
	require.Equal(t, headerOf(a), merged.Header, "merged block starts at a's header")
	assert.Equal(t, 40+format.HeaderSize+64, merged.Size, "a + b payloads plus b's reclaimed header")
	assert.Equal(t, headerOf(c), merged.End())
	assert.Equal(t, 1, h.Stats().CoalesceBackward)
	assertInvariants(t, h)

	// With c gone too, the whole arena is a single free block.
	require.NoError(t, h.Free(c))
	blocks := freeBlocks(t, h)
	require.Len(t, blocks, 1)
	assert.Equal(t, 0, blocks[0].Header)
	assert.Equal(t, h.End()-format.HeaderSize, blocks[0].Size)
	assertInvariants(t, h)
}

func TestFree_CoalescedSpanServesLargerRequest(t *testing.T) {
	for _, order := range []string{"a-then-b", "b-then-a"} {
		t.Run(order, func(t *testing.T) {
			h := newTestHeap(t, &ConfigCompact)
			a, _ := mustAlloc(t, h, 1000)
			b, _ := mustAlloc(t, h, 1000)
			mustAlloc(t, h, 8)
			exhaustFreeList(t, h)

			first, second := a, b
			if order == "b-then-a" {
				first, second = b, a
			}
			require.NoError(t, h.Free(first))
			require.NoError(t, h.Free(second))

			growCount := setupGrowCounter(h)
			end := h.End()
			p, _ := mustAlloc(t, h, 1000+format.HeaderSize+1000)

			assert.Zero(t, *growCount, "combined span must satisfy the request")
			assert.Equal(t, end, h.End())
			assert.Equal(t, a, p)
			assertInvariants(t, h)
		})
	}
}

// freeAndBreak frees a 64-byte block between two live ones and zeroes its
// magic, leaving a corrupt header at the head of the free list.
func freeAndBreak(t *testing.T, h *Heap) int {
	t.Helper()
	c, _ := mustAlloc(t, h, 64)
	mustAlloc(t, h, 64)
	require.NoError(t, h.Free(c))
	hdr := headerOf(c)
	require.Equal(t, hdr, h.head)
	format.PutU32(h.be.Bytes(), hdr+format.MagicOffset, 0)
	return hdr
}

func TestFree_CorruptListLeavesHeapUnchanged(t *testing.T) {
	h := newTestHeap(t, nil)
	a, _ := mustAlloc(t, h, 64)
	mustAlloc(t, h, 64)
	bad := freeAndBreak(t, h)
	live := h.Stats().LiveBlocks

	err := h.Free(a)
	require.ErrorIs(t, err, ErrCorrupted)
	require.ErrorIs(t, err, format.ErrBadMagic)
	assert.Equal(t, bad, h.head, "free list head moved")
	assert.False(t, format.IsFree(h.be.Bytes(), headerOf(a)), "block marked free")
	assert.Equal(t, live, h.Stats().LiveBlocks)

	// Once the list is repaired the same pointer frees normally.
	format.PutU32(h.be.Bytes(), bad+format.MagicOffset, format.Magic)
	require.NoError(t, h.Free(a))
	assertInvariants(t, h)
}

func TestGrow_CorruptListLeavesArena(t *testing.T) {
	h := newTestHeap(t, nil)
	mustAlloc(t, h, 64)
	bad := freeAndBreak(t, h)
	end := h.End()

	_, err := h.grow(64)
	require.ErrorIs(t, err, ErrCorrupted)
	assert.Equal(t, end, h.End(), "arena extended")
	assert.Equal(t, bad, h.head)
	assert.Equal(t, 1, h.Stats().GrowCalls, "only the initial growth ran")
}

func TestRealloc_ShrinkCorruptListLeavesBlock(t *testing.T) {
	h := newTestHeap(t, nil)
	p, _ := mustAlloc(t, h, 512)
	bad := freeAndBreak(t, h)

	_, _, err := h.Realloc(p, 64)
	require.ErrorIs(t, err, ErrCorrupted)
	assert.Equal(t, 512, format.Size(h.be.Bytes(), headerOf(p)))
	assert.Equal(t, bad, h.head)
}

func TestSplit_ResidualFollowsAllocation(t *testing.T) {
	h := newTestHeap(t, nil)
	p, _ := mustAlloc(t, h, 100)

	blocks := freeBlocks(t, h)
	require.Len(t, blocks, 1)
	rest := blocks[0]
	assert.Equal(t, int(p)+104, rest.Header, "residual starts right after the payload")
	assert.Equal(t, h.End()-format.HeaderSize-104-format.HeaderSize, rest.Size)
	assert.Equal(t, h.End(), rest.End())

	data := h.be.Bytes()
	assert.True(t, format.IsFree(data, rest.Header))
	assert.Equal(t, format.NoBlock, format.Prev(data, rest.Header))
	assert.Equal(t, format.NoBlock, format.Next(data, rest.Header))
	assert.Equal(t, rest.Header, h.head)
	assert.Equal(t, 1, h.Stats().SplitCount)
}

func TestSplit_SmallRemainderStaysWhole(t *testing.T) {
	h := newTestHeap(t, nil)
	p, _ := mustAlloc(t, h, 200)
	mustAlloc(t, h, 8)
	require.NoError(t, h.Free(p))

	// 200 - 168 = 32 < MinAlloc + header, so the block is taken whole.
	q, b := mustAlloc(t, h, 168)
	assert.Equal(t, p, q)
	assert.Equal(t, 200, cap(b))
	assertInvariants(t, h)
}

func TestCalloc_ZeroesReusedBlock(t *testing.T) {
	h := newTestHeap(t, nil)
	p, b := mustAlloc(t, h, 256)
	mustAlloc(t, h, 8)
	fill(b, 0x5A)
	require.NoError(t, h.Free(p))

	q, z, err := h.Calloc(16, 16)
	require.NoError(t, err)
	assert.Equal(t, p, q)
	require.Len(t, z, 256)
	assert.Equal(t, make([]byte, cap(z)), z[:cap(z)])
}

func TestCalloc_Overflow(t *testing.T) {
	h := newTestHeap(t, nil)

	_, _, err := h.Calloc(math.MaxInt, 2)
	require.ErrorIs(t, err, ErrOutOfMemory)
	_, _, err = h.Calloc(1<<40, 1<<40)
	require.ErrorIs(t, err, ErrOutOfMemory)
	_, _, err = h.Calloc(0, 8)
	require.ErrorIs(t, err, ErrZeroSize)
	assert.Equal(t, 0, h.End())
}

func TestRealloc_ShrinkInPlace(t *testing.T) {
	h := newTestHeap(t, nil)
	p, b := mustAlloc(t, h, 4000)
	fill(b, 3)

	q, nb, err := h.Realloc(p, 100)
	require.NoError(t, err)
	assert.Equal(t, p, q, "shrinking must keep the pointer")
	assert.Len(t, nb, 100)
	assert.Equal(t, -1, verify(nb, 3))

	size, err := h.UsableSize(q)
	require.NoError(t, err)
	assert.Equal(t, 104, size)

	// The split-off tail merges with the free remainder of the arena.
	assert.Len(t, freeBlocks(t, h), 1)
	assert.Equal(t, 1, h.Stats().ReallocInPlace)
	assertInvariants(t, h)
}

func TestRealloc_LargerRequestWithinPayload(t *testing.T) {
	h := newTestHeap(t, nil)
	p, _ := mustAlloc(t, h, 100)
	q, b, err := h.Realloc(p, 104)
	require.NoError(t, err)
	assert.Equal(t, p, q)
	assert.Len(t, b, 104)
}

func TestRealloc_MovesAndCopies(t *testing.T) {
	h := newTestHeap(t, nil)
	p, b := mustAlloc(t, h, 100)
	mustAlloc(t, h, 8)
	fill(b, 11)

	q, nb, err := h.Realloc(p, 5000)
	require.NoError(t, err)
	assert.NotEqual(t, p, q)
	require.Len(t, nb, 5000)
	assert.Equal(t, -1, verify(nb[:100], 11))

	require.ErrorIs(t, h.Free(p), ErrDoubleFree, "old block is released")
	assertInvariants(t, h)
}

func TestRealloc_FailureKeepsOriginal(t *testing.T) {
	h, _ := newTestHeapWithArena(t, 2*format.PageSize, &ConfigCompact)
	p, b := mustAlloc(t, h, 2000)
	fill(b, 21)

	q, nb, err := h.Realloc(p, 1<<20)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.ErrorIs(t, err, arena.ErrExhausted)
	assert.Equal(t, Nil, q)
	assert.Nil(t, nb)

	again, err := h.Bytes(p)
	require.NoError(t, err)
	assert.Equal(t, -1, verify(again[:2000], 21))
	assertInvariants(t, h)
}

func TestRealloc_EdgeCases(t *testing.T) {
	h := newTestHeap(t, nil)

	p, b, err := h.Realloc(Nil, 32)
	require.NoError(t, err)
	require.NotEqual(t, Nil, p)
	assert.Len(t, b, 32)

	q, b, err := h.Realloc(p, 0)
	require.NoError(t, err)
	assert.Equal(t, Nil, q)
	assert.Nil(t, b)

	_, _, err = h.Realloc(p, 64)
	require.ErrorIs(t, err, ErrInvalidPointer, "resizing a freed block")

	_, _, err = h.Realloc(Ptr(12345), 64)
	require.ErrorIs(t, err, ErrInvalidPointer)
	assertInvariants(t, h)
}

func TestBytesAndUsableSize_RejectFreed(t *testing.T) {
	h := newTestHeap(t, nil)
	p, _ := mustAlloc(t, h, 64)
	mustAlloc(t, h, 8)
	require.NoError(t, h.Free(p))

	_, err := h.Bytes(p)
	require.ErrorIs(t, err, ErrInvalidPointer)
	_, err = h.UsableSize(p)
	require.ErrorIs(t, err, ErrInvalidPointer)
}

func TestScrub_ZeroesFreedPayload(t *testing.T) {
	h := newTestHeap(t, &Config{Scrub: true})
	p, b := mustAlloc(t, h, 128)
	mustAlloc(t, h, 8)
	fill(b, 0xEE)

	require.NoError(t, h.Free(p))
	assert.Equal(t, make([]byte, 128), b)
}

func TestStaticExhaustion(t *testing.T) {
	h, _ := newTestHeapWithArena(t, 16*format.PageSize, &ConfigCompact)

	var err error
	for range 1000 {
		if _, _, err = h.Alloc(1000); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.ErrorIs(t, err, arena.ErrExhausted)
	assert.Equal(t, 16*format.PageSize, h.End())
	assert.Positive(t, h.Stats().GrowFailures)
	assertInvariants(t, h)
}

func TestClose(t *testing.T) {
	s := arena.NewStatic(testArenaSize)
	h, err := New(s, nil)
	require.NoError(t, err)

	_, b := mustAlloc(t, h, 256)
	fill(b, 0xAA)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, make([]byte, 256), b, "arena scrubbed on close")
	assert.Equal(t, 0, s.Len())

	_, _, err = h.Alloc(8)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, h.Free(Ptr(format.HeaderSize)), ErrClosed)
	require.ErrorIs(t, h.Check(), ErrClosed)

	// The backend can host a new heap.
	h2, err := New(s, nil)
	require.NoError(t, err)
	mustAlloc(t, h2, 8)
	require.NoError(t, h2.Close())
}

func TestMappedBackend(t *testing.T) {
	m, err := arena.NewMapped(64 << 20)
	require.NoError(t, err)
	h, err := New(m, nil)
	require.NoError(t, err)
	defer h.Close()

	var ptrs []Ptr
	for i := range 64 {
		p, b := mustAlloc(t, h, 16<<10)
		fill(b, byte(i))
		ptrs = append(ptrs, p)
	}
	for i, p := range ptrs {
		b, err := h.Bytes(p)
		require.NoError(t, err)
		require.Equal(t, -1, verify(b[:16<<10], byte(i)))
	}
	// 63 blocks fit the first MiB; the second extension merges with its tail.
	assert.Equal(t, 2, h.Stats().GrowCalls)
	assert.Equal(t, 1, h.Stats().CoalesceBackward)
	assertInvariants(t, h)
}
