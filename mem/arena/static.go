package arena

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// DefaultStaticSize is the capacity of a Static backend when none is given.
const DefaultStaticSize = 32 << 20

// Static is a fixed-capacity modeled heap: a Go byte array with a break
// inside it. It is useful for tests and for exercising exhaustion, since
// Extend fails once the capacity is reached.
//
// Unlike Mapped, Release rewinds and zeroes the range, leaving the backend
// ready for reuse.
type Static struct {
	mem []byte
	brk int
}

// NewStatic returns a Static backend able to hold size bytes. A size <= 0
// selects DefaultStaticSize. The first byte is aligned to
// format.MaxAlignment so every supported payload alignment is honored.
func NewStatic(size int) *Static {
	if size <= 0 {
		size = DefaultStaticSize
	}
	raw := make([]byte, size+format.MaxAlignment)
	shift := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) % format.MaxAlignment); rem != 0 {
		shift = format.MaxAlignment - rem
	}
	return &Static{mem: raw[shift : shift+size : shift+size]}
}

// Bytes implements Backend.
func (s *Static) Bytes() []byte {
	return s.mem[:s.brk:s.brk]
}

// Len implements Backend.
func (s *Static) Len() int { return s.brk }

// Cap returns the fixed capacity.
func (s *Static) Cap() int { return len(s.mem) }

// Extend implements Backend.
func (s *Static) Extend(n int) error {
	newBrk, ok := buf.AddSize(s.brk, n)
	if !ok || newBrk > len(s.mem) {
		return fmt.Errorf("extend by %d at break %d (capacity %d): %w", n, s.brk, len(s.mem), ErrExhausted)
	}
	s.brk = newBrk
	return nil
}

// Release zeroes the used range and rewinds the break to zero.
func (s *Static) Release() error {
	clear(s.mem[:s.brk])
	s.brk = 0
	return nil
}
