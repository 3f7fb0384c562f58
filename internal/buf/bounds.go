// Package buf contains overflow-checked size arithmetic and bounds-checked
// views over arena bytes.
package buf

import (
	"math"
	"math/bits"
)

// AddSize adds two sizes, returning ok = false when either is negative or the
// sum would overflow int.
func AddSize(a, b int) (int, bool) {
	if a < 0 || b < 0 || a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

// MulSize multiplies count by size, returning ok = false when either is
// negative or the product would overflow int. This is the calloc guard:
// count*size must never wrap silently.
func MulSize(count, size int) (int, bool) {
	if count < 0 || size < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	return int(lo), true
}

// View returns b[off:off+n] with its capacity clipped to n, so appends on the
// result can never spill into neighbouring bytes.
func View(b []byte, off, n int) ([]byte, bool) {
	end, ok := AddSize(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// ViewCap returns b[off:off+n] with capacity c (n <= c), clipped the same way.
func ViewCap(b []byte, off, n, c int) ([]byte, bool) {
	if n > c {
		return nil, false
	}
	end, ok := AddSize(off, c)
	if !ok || end > len(b) || n < 0 {
		return nil, false
	}
	return b[off : off+n : end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := View(b, off, n)
	return ok
}
