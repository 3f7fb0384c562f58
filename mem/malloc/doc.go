// Package malloc exposes a heap through the classic dynamic allocation
// interface: Malloc, Free, Calloc and Realloc return and accept bare
// pointers and report failures through a sticky error code read with
// LastError.
//
// An Allocator creates its heap on first use and serializes every call with
// a mutex. The package-level functions operate on a process-wide default
// Allocator backed by a mapped arena.
//
//	p := malloc.Malloc(64)
//	if p == alloc.Nil {
//	    log.Printf("malloc: %v", malloc.LastError())
//	}
//	copy(malloc.Bytes(p), "hello")
//	malloc.Free(p)
//
// The Go runtime's own allocator is not replaced; these functions manage a
// separate arena.
package malloc
