package arena

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/vmem"
)

// DefaultLimit is the address space a Mapped backend reserves when no limit
// is given.
const DefaultLimit = 1 << 30

// Mapped is a Backend over an anonymous mapping. The full limit is reserved
// up front without access rights; pages are committed as the break passes
// them, so the range grows in place like sbrk.
type Mapped struct {
	mem       []byte
	brk       int
	committed int
	page      int
}

// NewMapped reserves limit bytes of address space. A limit <= 0 selects
// DefaultLimit.
func NewMapped(limit int) (*Mapped, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	page := vmem.PageSize()
	if page <= 0 {
		page = format.PageSize
	}
	limit = format.AlignUp(limit, page)

	mem, err := vmem.Reserve(limit)
	if err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}
	return &Mapped{mem: mem, page: page}, nil
}

// Bytes implements Backend.
func (m *Mapped) Bytes() []byte {
	return m.mem[:m.brk:m.brk]
}

// Len implements Backend.
func (m *Mapped) Len() int { return m.brk }

// Limit returns the size of the reservation.
func (m *Mapped) Limit() int { return len(m.mem) }

// Committed returns the number of bytes currently backed by readable pages.
func (m *Mapped) Committed() int { return m.committed }

// Extend implements Backend.
func (m *Mapped) Extend(n int) error {
	if m.mem == nil {
		return ErrReleased
	}
	newBrk, ok := buf.AddSize(m.brk, n)
	if !ok || newBrk > len(m.mem) {
		return fmt.Errorf("extend by %d at break %d (limit %d): %w", n, m.brk, len(m.mem), ErrExhausted)
	}

	if newBrk > m.committed {
		target := min(format.AlignUp(newBrk, m.page), len(m.mem))
		if err := vmem.Commit(m.mem[m.committed:target]); err != nil {
			return fmt.Errorf("extend by %d: %w: %w", n, ErrExhausted, err)
		}
		m.committed = target
	}

	m.brk = newBrk
	return nil
}

// Release unmaps the reservation.
func (m *Mapped) Release() error {
	if m.mem == nil {
		return nil
	}
	err := vmem.Release(m.mem)
	m.mem = nil
	m.brk = 0
	m.committed = 0
	return err
}
