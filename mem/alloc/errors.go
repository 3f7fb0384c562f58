package alloc

import "errors"

var (
	// ErrZeroSize indicates a request for zero bytes. No state changes.
	ErrZeroSize = errors.New("alloc: zero-size request")

	// ErrOutOfMemory indicates that no block fits and the arena could not grow,
	// or that a size computation overflowed.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrInvalidPointer indicates a pointer that does not reference a block
	// header carrying the magic value, or a resize of a freed block.
	ErrInvalidPointer = errors.New("alloc: invalid pointer")

	// ErrDoubleFree indicates a free of a block that is already free.
	ErrDoubleFree = errors.New("alloc: double free")

	// ErrUnknownPolicy indicates a fit policy value outside the known set.
	ErrUnknownPolicy = errors.New("alloc: unknown fit policy")

	// ErrCorrupted indicates a free-list walk reached a block that failed its
	// integrity checks.
	ErrCorrupted = errors.New("alloc: heap corrupted")

	// ErrClosed indicates use of a heap after Close.
	ErrClosed = errors.New("alloc: heap closed")

	// ErrBadConfig indicates a configuration that cannot describe a heap.
	ErrBadConfig = errors.New("alloc: invalid config")
)
