package main

import (
	"fmt"
	"math/rand"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/mem/alloc"
	"github.com/joshuapare/heapkit/mem/malloc"
)

// workloadConfig describes a randomized alloc/free run: each iteration picks
// a random slot, allocates into it when empty and frees it when full.
type workloadConfig struct {
	Iterations int   // Number of slot visits
	Slots      int   // Number of pointer slots
	MaxSize    int   // Largest request in bytes
	Seed       int64 // RNG seed
}

var defaultWorkload = workloadConfig{
	Iterations: 10000,
	Slots:      10000,
	MaxSize:    10500,
	Seed:       1,
}

// workloadResult summarizes a finished run.
type workloadResult struct {
	Policy      string
	Allocs      int
	Frees       int
	Failed      int
	Corrupted   int
	PeakLive    int
	LastError   string
	Stats       alloc.Stats
	Usage       alloc.Usage
	FinalLayout alloc.Usage
}

// runWorkload drives a against cfg. Every allocation gets a random 8-byte
// value that is checked before the block is freed. Usage is sampled just
// before the final drain, FinalLayout after it.
func runWorkload(a *malloc.Allocator, cfg workloadConfig, onEvent func(string, ...any)) (workloadResult, error) {
	if cfg.Slots <= 0 || cfg.MaxSize <= 0 || cfg.Iterations < 0 {
		return workloadResult{}, fmt.Errorf("invalid workload: %+v", cfg)
	}
	if onEvent == nil {
		onEvent = func(string, ...any) {}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	slots := make([]alloc.Ptr, cfg.Slots)
	values := make([]uint64, cfg.Slots)
	var res workloadResult
	live := 0

	release := func(i int) {
		b := a.Bytes(slots[i])
		if b == nil || format.ReadU64(b, 0) != values[i] {
			res.Corrupted++
			onEvent("corrupted value at %#x (slot %d)\n", uint64(slots[i]), i)
		}
		a.Free(slots[i])
		slots[i] = alloc.Nil
		res.Frees++
		live--
	}

	for iter := range cfg.Iterations {
		i := rng.Intn(cfg.Slots)
		if slots[i] != alloc.Nil {
			release(i)
			continue
		}

		size := rng.Intn(cfg.MaxSize) + 1
		p := a.Malloc(size)
		if p == alloc.Nil {
			res.Failed++
			onEvent("iteration %d: allocation of %d bytes failed: %v\n", iter, size, a.LastError())
			continue
		}
		v := rng.Uint64()
		format.PutU64(a.Bytes(p), 0, v)
		slots[i], values[i] = p, v
		res.Allocs++
		live++
		res.PeakLive = max(res.PeakLive, live)
		onEvent("allocated %d bytes at %#x\n", size, uint64(p))
	}

	if err := a.Do(func(h *alloc.Heap) error {
		u, err := h.Usage()
		res.Usage = u
		res.Policy = h.Policy().String()
		return err
	}); err != nil {
		return res, err
	}

	for i := range slots {
		if slots[i] != alloc.Nil {
			release(i)
		}
	}

	err := a.Do(func(h *alloc.Heap) error {
		if err := h.Check(); err != nil {
			return err
		}
		u, err := h.Usage()
		res.FinalLayout = u
		res.Stats = h.Stats()
		return err
	})
	res.LastError = a.LastError().String()
	return res, err
}
