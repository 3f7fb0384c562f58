// Package alloc implements a general-purpose heap allocator over a growable
// arena.
//
// # Overview
//
// A Heap carves variable-sized blocks out of an arena.Backend. Every block,
// free or allocated, starts with a 32-byte header (see internal/format) that
// records its payload size, a free bit, free-list links and a magic value.
// Free blocks are kept on a single doubly linked list threaded through their
// headers.
//
// # Operations
//
//   - Alloc(n): find a free block with a fit policy, grow the arena when
//     nothing fits, split off the unused tail
//   - Free(p): validate the header, mark it free, merge with address-adjacent
//     free neighbours
//   - Calloc(count, size): overflow-checked, zero-filled Alloc
//   - Realloc(p, n): shrink in place when the block is large enough,
//     otherwise move
//
// # Pointers
//
// A Ptr is the arena offset of a payload. Offset zero always holds the first
// header, so Nil (0) is never a valid payload. Backends never relocate bytes,
// so a payload slice returned by Alloc stays valid until the block is freed.
//
// # Fit Policies
//
//	FirstFit  first block on the list that is large enough (default)
//	BestFit   smallest block that is large enough, stops on an exact fit
//	WorstFit  largest block
//
// # Growth
//
// When no block fits, the arena is extended by
// max(Config.GrowthIncrement, align(n+HeaderSize)) and the new range becomes
// one free block, merged with a free block at the old end if there is one.
//
// # Integrity
//
// Every header read is preceded by a magic check. Pointers that fail it are
// rejected with ErrInvalidPointer, a second free of the same block with
// ErrDoubleFree; both are detected before any state changes. Check walks the
// whole arena and verifies the structural invariants.
//
// # Thread Safety
//
// Heap instances are not thread-safe. Callers must synchronize access
// externally or use the mem/malloc package, which serializes every call.
//
// # Debugging
//
// Setting HEAP_LOG_ALLOC in the environment traces growth and splits to
// stderr.
package alloc
