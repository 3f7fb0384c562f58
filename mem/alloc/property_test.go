package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type liveBlock struct {
	n    int
	seed byte
}

// runRandomWorkload drives alloc, calloc, realloc and free at random, checks
// every payload's contents before releasing it and verifies the heap
// invariants after every step.
func runRandomWorkload(t *testing.T, h *Heap, seed int64, steps, maxSize int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	live := make(map[Ptr]liveBlock)
	var order []Ptr

	pick := func() (int, Ptr) {
		i := rng.Intn(len(order))
		return i, order[i]
	}
	drop := func(i int) {
		order[i] = order[len(order)-1]
		order = order[:len(order)-1]
	}

	for step := range steps {
		switch op := rng.Intn(10); {
		case op < 4 || len(order) == 0:
			n := 1 + rng.Intn(maxSize)
			p, b, err := h.Alloc(n)
			require.NoError(t, err, "step %d: Alloc(%d)", step, n)
			s := byte(rng.Intn(256))
			fill(b, s)
			live[p] = liveBlock{n, s}
			order = append(order, p)

		case op < 5:
			n := 1 + rng.Intn(64)
			p, b, err := h.Calloc(n, 8)
			require.NoError(t, err, "step %d: Calloc(%d, 8)", step, n)
			for i, v := range b {
				require.Zero(t, v, "step %d: calloc byte %d", step, i)
			}
			s := byte(rng.Intn(256))
			fill(b, s)
			live[p] = liveBlock{n * 8, s}
			order = append(order, p)

		case op < 7:
			i, p := pick()
			old := live[p]
			n := 1 + rng.Intn(maxSize)
			q, b, err := h.Realloc(p, n)
			require.NoError(t, err, "step %d: Realloc(%#x, %d)", step, p, n)
			keep := min(old.n, n)
			require.Equal(t, -1, verify(b[:keep], old.seed), "step %d: realloc lost data", step)
			s := byte(rng.Intn(256))
			fill(b, s)
			delete(live, p)
			live[q] = liveBlock{n, s}
			order[i] = q

		default:
			i, p := pick()
			blk := live[p]
			b, err := h.Bytes(p)
			require.NoError(t, err)
			require.Equal(t, -1, verify(b[:blk.n], blk.seed), "step %d: block %#x overwritten", step, p)
			require.NoError(t, h.Free(p), "step %d: Free(%#x)", step, p)
			delete(live, p)
			drop(i)
		}

		require.NoError(t, h.Check(), "step %d", step)
	}

	for _, p := range order {
		require.NoError(t, h.Free(p))
	}
	require.NoError(t, h.Check())

	blocks := freeBlocks(t, h)
	require.Len(t, blocks, 1, "everything freed must coalesce into one block")
	require.Equal(t, 0, blocks[0].Header)
	require.Zero(t, h.Stats().LiveBlocks)
	require.Zero(t, h.Stats().BytesInUse)
}

func TestProperty_RandomWorkload(t *testing.T) {
	configs := []Config{ConfigStandard, ConfigCompact, {Name: "Aligned32", Alignment: 32, MinAlloc: 16}}
	for _, base := range configs {
		for _, p := range Policies {
			cfg := base
			cfg.Policy = p
			t.Run(cfg.Name+"/"+p.String(), func(t *testing.T) {
				h := newTestHeap(t, &cfg)
				runRandomWorkload(t, h, 42, 1500, 2000)
			})
		}
	}
}

// TestProperty_LargeBlocks mirrors the classic stress program: sizes up to
// 10500 bytes, values written and checked before every free.
func TestProperty_LargeBlocks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress workload in short mode")
	}
	h, _ := newTestHeapWithArena(t, 64<<20, nil)
	runRandomWorkload(t, h, 7, 3000, 10500)
}
