//go:build unix

// Package vmem provides platform-specific helpers for reserving and
// committing anonymous address space.
//
// A reservation is mapped PROT_NONE, so it consumes address space but no
// memory; Commit flips page ranges to read-write as they are needed. The
// mapping never moves, which is what lets an arena grow contiguously.
package vmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Reserve maps n bytes of inaccessible anonymous address space.
func Reserve(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("vmem: invalid reservation size %d", n)
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("vmem: reserve %d bytes: %w", n, err)
	}
	return mem, nil
}

// Commit makes b readable and writable. b must start on a page boundary of a
// reservation returned by Reserve.
func Commit(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("vmem: commit %d bytes: %w", len(b), err)
	}
	return nil
}

// Release unmaps a reservation returned by Reserve.
func Release(mem []byte) error {
	if mem == nil {
		return nil
	}
	err := unix.Munmap(mem)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

// PageSize returns the OS page size.
func PageSize() int {
	return unix.Getpagesize()
}
