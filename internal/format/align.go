package format

// Alignment utilities for heap blocks.
// Payload sizes are rounded to the configured alignment, arena growth is
// rounded to pages.

// AlignUp returns n aligned up to a, which must be a power of two.
func AlignUp(n, a int) int {
	return (n + a - 1) & ^(a - 1)
}

// IsAligned reports whether n is a multiple of a, which must be a power of two.
func IsAligned(n, a int) bool {
	return n&(a-1) == 0
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
