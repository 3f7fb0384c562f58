// Package arena provides the growable byte ranges a heap is carved from.
//
// A Backend behaves like a program break: Extend moves the end of the usable
// range forward and never relocates bytes that were already handed out.
package arena

import "errors"

var (
	// ErrExhausted indicates the backend cannot extend by the requested amount.
	ErrExhausted = errors.New("arena: address space exhausted")
	// ErrReleased indicates the backend was used after Release.
	ErrReleased = errors.New("arena: backend released")
)

// Backend is a contiguous, grow-only byte range.
type Backend interface {
	// Bytes returns the usable range [0, Len()). The returned slice stays
	// valid across Extend calls; only its length is stale.
	Bytes() []byte
	// Len returns the current break.
	Len() int
	// Extend moves the break forward by n bytes. It either succeeds fully or
	// leaves the break untouched.
	Extend(n int) error
	// Release returns the range to its owner. The backend is unusable
	// afterwards unless the implementation documents otherwise.
	Release() error
}
