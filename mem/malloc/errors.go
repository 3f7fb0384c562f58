package malloc

import (
	"errors"
	"fmt"

	"github.com/joshuapare/heapkit/mem/alloc"
)

// ErrorCode is the outcome of the most recent failing call.
type ErrorCode int

const (
	// Success means no call has failed since Init or Cleanup.
	Success ErrorCode = iota
	// OutOfMemory means an allocation could not be satisfied.
	OutOfMemory
	// InvalidPointer means a pointer did not reference a live block header.
	InvalidPointer
	// DoubleFree means a block was freed twice.
	DoubleFree
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "success"
	case OutOfMemory:
		return "out of memory"
	case InvalidPointer:
		return "invalid pointer"
	case DoubleFree:
		return "double free"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// codeFor maps a heap error to its error code. ok is false for errors that
// must leave the sticky code alone.
func codeFor(err error) (code ErrorCode, ok bool) {
	switch {
	case err == nil, errors.Is(err, alloc.ErrZeroSize):
		return Success, false
	case errors.Is(err, alloc.ErrDoubleFree):
		return DoubleFree, true
	case errors.Is(err, alloc.ErrInvalidPointer),
		errors.Is(err, alloc.ErrCorrupted),
		errors.Is(err, alloc.ErrClosed):
		return InvalidPointer, true
	default:
		return OutOfMemory, true
	}
}
