package malloc

import "github.com/joshuapare/heapkit/mem/alloc"

var std = New(Options{})

// Default returns the process-wide Allocator used by the package-level
// functions.
func Default() *Allocator { return std }

// Init initializes the default Allocator.
func Init() error { return std.Init() }

// Cleanup releases the default Allocator's arena.
func Cleanup() error { return std.Cleanup() }

// Malloc allocates from the default Allocator.
func Malloc(n int) alloc.Ptr { return std.Malloc(n) }

// Free releases p to the default Allocator.
func Free(p alloc.Ptr) { std.Free(p) }

// Calloc allocates zeroed memory from the default Allocator.
func Calloc(count, size int) alloc.Ptr { return std.Calloc(count, size) }

// Realloc resizes p within the default Allocator.
func Realloc(p alloc.Ptr, n int) alloc.Ptr { return std.Realloc(p, n) }

// Bytes returns the payload of p in the default Allocator.
func Bytes(p alloc.Ptr) []byte { return std.Bytes(p) }

// UsableSize returns the usable size of p in the default Allocator.
func UsableSize(p alloc.Ptr) int { return std.UsableSize(p) }

// LastError returns the default Allocator's sticky error code.
func LastError() ErrorCode { return std.LastError() }

// SetFitPolicy selects the default Allocator's fit policy.
func SetFitPolicy(p alloc.Policy) error { return std.SetFitPolicy(p) }
