//go:build !unix

package vmem

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Reserve allocates the full range eagerly when mmap is not available.
// The Go runtime hands out zeroed memory, so Commit has nothing to do.
func Reserve(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("vmem: invalid reservation size %d", n)
	}
	return make([]byte, n), nil
}

// Commit is a no-op without mmap.
func Commit(b []byte) error { return nil }

// Release drops nothing; the garbage collector reclaims the range.
func Release(mem []byte) error { return nil }

// PageSize returns the assumed page size.
func PageSize() int { return format.PageSize }
