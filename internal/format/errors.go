package format

import "errors"

var (
	// ErrBadMagic indicates a header whose sentinel does not match Magic.
	ErrBadMagic = errors.New("format: bad block magic")
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrMisaligned indicates an offset that is not on the base alignment.
	ErrMisaligned = errors.New("format: misaligned offset")
	// ErrOverrun indicates a block whose declared size runs past the arena end.
	ErrOverrun = errors.New("format: block overruns arena")
)
