package alloc

import (
	"fmt"
	"strings"
)

// Ptr is the arena offset of an allocated payload.
type Ptr uint64

// Nil is the null pointer.
const Nil Ptr = 0

// Policy selects which qualifying free block serves a request.
type Policy uint8

const (
	// FirstFit takes the first large-enough block in list order.
	FirstFit Policy = iota
	// BestFit takes the smallest large-enough block.
	BestFit
	// WorstFit takes the largest block.
	WorstFit
)

// Policies lists every supported policy in declaration order.
var Policies = []Policy{FirstFit, BestFit, WorstFit}

func (p Policy) String() string {
	switch p {
	case FirstFit:
		return "first-fit"
	case BestFit:
		return "best-fit"
	case WorstFit:
		return "worst-fit"
	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// Valid reports whether p names a supported policy.
func (p Policy) Valid() bool {
	return p <= WorstFit
}

// ParsePolicy accepts "first", "best", "worst" with or without the "-fit"
// suffix, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "-fit")
	name = strings.TrimSuffix(name, "fit")
	switch name {
	case "first":
		return FirstFit, nil
	case "best":
		return BestFit, nil
	case "worst":
		return WorstFit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Allocator is the dynamic allocation interface a Heap provides.
type Allocator interface {
	// Alloc returns a pointer to at least n usable bytes and a view of the
	// first n of them.
	Alloc(n int) (Ptr, []byte, error)

	// Free returns the block at p to the heap. Freeing Nil is a no-op.
	Free(p Ptr) error

	// Calloc allocates count*size zeroed bytes.
	Calloc(count, size int) (Ptr, []byte, error)

	// Realloc resizes the block at p to n bytes, moving it if needed.
	Realloc(p Ptr, n int) (Ptr, []byte, error)
}

// Block describes one block visited by Walk or WalkFree.
type Block struct {
	Ptr    Ptr  // Payload offset
	Header int  // Header offset
	Size   int  // Payload size
	Free   bool // Free bit
}

// End returns the offset one past the block's payload.
func (b Block) End() int {
	return int(b.Ptr) + b.Size
}
