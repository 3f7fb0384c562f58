package alloc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
)

// fitLayout holds three free blocks separated by allocated guards, with the
// rest of the arena allocated. Freed in the order a, c, b, the list reads
// b(120) → c(400) → a(200).
type fitLayout struct {
	a, b, c Ptr
}

func newFitLayout(t *testing.T, p Policy) (*Heap, fitLayout) {
	t.Helper()
	cfg := ConfigCompact
	cfg.Policy = p
	h := newTestHeap(t, &cfg)

	var l fitLayout
	l.a, _ = mustAlloc(t, h, 200)
	mustAlloc(t, h, 8)
	l.b, _ = mustAlloc(t, h, 120)
	mustAlloc(t, h, 8)
	l.c, _ = mustAlloc(t, h, 400)
	mustAlloc(t, h, 8)
	exhaustFreeList(t, h)

	require.NoError(t, h.Free(l.a))
	require.NoError(t, h.Free(l.c))
	require.NoError(t, h.Free(l.b))
	require.Len(t, freeBlocks(t, h), 3)
	return h, l
}

func TestFitPolicies(t *testing.T) {
	tests := []struct {
		size               int
		first, best, worst func(fitLayout) Ptr
	}{
		{100, fitB, fitB, fitC},
		{150, fitC, fitA, fitC},
		{200, fitC, fitA, fitC},
		{400, fitC, fitC, fitC},
	}

	for _, tt := range tests {
		for _, p := range Policies {
			t.Run(fmt.Sprintf("%v/%d", p, tt.size), func(t *testing.T) {
				h, l := newFitLayout(t, p)
				growCount := setupGrowCounter(h)

				want := map[Policy]func(fitLayout) Ptr{
					FirstFit: tt.first,
					BestFit:  tt.best,
					WorstFit: tt.worst,
				}[p](l)

				got, _ := mustAlloc(t, h, tt.size)
				assert.Equal(t, want, got, "size=%d", tt.size)
				assert.Zero(t, *growCount)
				assertInvariants(t, h)
			})
		}
	}
}

func fitA(l fitLayout) Ptr { return l.a }
func fitB(l fitLayout) Ptr { return l.b }
func fitC(l fitLayout) Ptr { return l.c }

func TestFitPolicies_NoFitGrows(t *testing.T) {
	for _, p := range Policies {
		t.Run(p.String(), func(t *testing.T) {
			h, l := newFitLayout(t, p)
			growCount := setupGrowCounter(h)
			end := h.End()

			got, _ := mustAlloc(t, h, 401)
			assert.Equal(t, 1, *growCount)
			assert.Equal(t, Ptr(end+format.HeaderSize), got)
			assert.NotContains(t, []Ptr{l.a, l.b, l.c}, got)
			assertInvariants(t, h)
		})
	}
}

func TestSetPolicy(t *testing.T) {
	h := newTestHeap(t, nil)
	assert.Equal(t, FirstFit, h.Policy())

	require.NoError(t, h.SetPolicy(WorstFit))
	assert.Equal(t, WorstFit, h.Policy())

	require.ErrorIs(t, h.SetPolicy(Policy(7)), ErrUnknownPolicy)
	assert.Equal(t, WorstFit, h.Policy(), "rejected policy leaves the old one active")
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
		ok   bool
	}{
		{"first", FirstFit, true},
		{"first-fit", FirstFit, true},
		{"BestFit", BestFit, true},
		{" worst ", WorstFit, true},
		{"next", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if !tt.ok {
			require.ErrorIs(t, err, ErrUnknownPolicy, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, p := range Policies {
		back, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, back)
	}
	assert.Equal(t, "Policy(9)", Policy(9).String())
}

// corruptFreeHead returns a heap whose free list starts with a freed 64-byte
// block, plus that block's header offset.
func corruptFreeHead(t *testing.T) (*Heap, int) {
	t.Helper()
	h := newTestHeap(t, nil)
	p, _ := mustAlloc(t, h, 64)
	mustAlloc(t, h, 8)
	require.NoError(t, h.Free(p))
	require.Equal(t, headerOf(p), h.head)
	return h, headerOf(p)
}

func TestFit_DetectsCorruption(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		h, hdr := corruptFreeHead(t)
		format.PutU32(h.be.Bytes(), hdr+format.MagicOffset, 0)

		_, _, err := h.Alloc(8)
		require.ErrorIs(t, err, ErrCorrupted)
		require.ErrorIs(t, err, format.ErrBadMagic)
	})

	t.Run("allocated block on list", func(t *testing.T) {
		h, hdr := corruptFreeHead(t)
		format.SetFree(h.be.Bytes(), hdr, false)

		_, _, err := h.Alloc(8)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("cycle", func(t *testing.T) {
		h, hdr := corruptFreeHead(t)
		format.PutNext(h.be.Bytes(), hdr, hdr)

		_, _, err := h.Alloc(128)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("wild link", func(t *testing.T) {
		h, hdr := corruptFreeHead(t)
		format.PutNext(h.be.Bytes(), hdr, h.End()+4096)

		_, _, err := h.Alloc(128)
		require.ErrorIs(t, err, ErrCorrupted)
	})
}
