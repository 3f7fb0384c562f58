package format

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// Header accessors operate on the arena bytes b and the offset hdr of a block
// header. Callers must have validated hdr with CheckHeader (or created the
// header themselves) before using the unchecked accessors.

// HeaderFor converts a payload offset to the offset of its header.
// Returns false when payload cannot belong to any block.
func HeaderFor(payload int) (int, bool) {
	if payload < HeaderSize || payload&BaseAlignmentMask != 0 {
		return 0, false
	}
	return payload - HeaderSize, true
}

// PayloadFor converts a header offset to the offset of its payload.
func PayloadFor(hdr int) int {
	return hdr + HeaderSize
}

// CheckHeader validates that a complete header for hdr lies inside b, that it
// carries the magic and that the declared payload ends inside b.
func CheckHeader(b []byte, hdr int) error {
	if hdr < 0 || hdr&BaseAlignmentMask != 0 {
		return fmt.Errorf("header %#x: %w", hdr, ErrMisaligned)
	}
	if !buf.Has(b, hdr, HeaderSize) {
		return fmt.Errorf("header %#x: %w", hdr, ErrTruncated)
	}
	if got := ReadU32(b, hdr+MagicOffset); got != Magic {
		return fmt.Errorf("header %#x: magic %#08x: %w", hdr, got, ErrBadMagic)
	}
	size := ReadU64(b, hdr+SizeFlagsOffset) & SizeMask
	if size > uint64(len(b)-hdr-HeaderSize) {
		return fmt.Errorf("header %#x: size %d: %w", hdr, size, ErrOverrun)
	}
	return nil
}

// Stamp initializes a header: size, free flag, cleared links and magic.
func Stamp(b []byte, hdr int, size int, free bool) {
	PutSizeFlags(b, hdr, size, free)
	PutU64(b, hdr+PrevOffset, NilLink)
	PutU64(b, hdr+NextOffset, NilLink)
	PutU32(b, hdr+MagicOffset, Magic)
	PutU32(b, hdr+ReservedOffset, 0)
}

// HasMagic reports whether the header at hdr carries the sentinel.
func HasMagic(b []byte, hdr int) bool {
	return ReadU32(b, hdr+MagicOffset) == Magic
}

// Size returns the payload size of the block at hdr.
func Size(b []byte, hdr int) int {
	return int(ReadU64(b, hdr+SizeFlagsOffset) & SizeMask)
}

// IsFree reports whether the free bit is set on the block at hdr.
func IsFree(b []byte, hdr int) bool {
	return ReadU64(b, hdr+SizeFlagsOffset)&FreeBit != 0
}

// PutSizeFlags packs size and the free flag into the header at hdr.
func PutSizeFlags(b []byte, hdr int, size int, free bool) {
	v := uint64(size) & SizeMask
	if free {
		v |= FreeBit
	}
	PutU64(b, hdr+SizeFlagsOffset, v)
}

// SetSize replaces the payload size, keeping the flag bits.
func SetSize(b []byte, hdr int, size int) {
	flags := ReadU64(b, hdr+SizeFlagsOffset) & FreeBit
	PutU64(b, hdr+SizeFlagsOffset, uint64(size)&SizeMask|flags)
}

// SetFree sets or clears the free bit, keeping the size.
func SetFree(b []byte, hdr int, free bool) {
	PutSizeFlags(b, hdr, Size(b, hdr), free)
}

// End returns the offset one past the last payload byte of the block at hdr,
// which is also the header offset of its address-order successor.
func End(b []byte, hdr int) int {
	return hdr + HeaderSize + Size(b, hdr)
}

// Prev returns the free-list back link of the block at hdr, NoBlock if none.
func Prev(b []byte, hdr int) int {
	return decodeLink(ReadU64(b, hdr+PrevOffset))
}

// Next returns the free-list forward link of the block at hdr, NoBlock if none.
func Next(b []byte, hdr int) int {
	return decodeLink(ReadU64(b, hdr+NextOffset))
}

// PutPrev stores the free-list back link of the block at hdr.
func PutPrev(b []byte, hdr int, prev int) {
	PutU64(b, hdr+PrevOffset, encodeLink(prev))
}

// PutNext stores the free-list forward link of the block at hdr.
func PutNext(b []byte, hdr int, next int) {
	PutU64(b, hdr+NextOffset, encodeLink(next))
}

func encodeLink(off int) uint64 {
	if off < 0 {
		return NilLink
	}
	return uint64(off)
}

func decodeLink(v uint64) int {
	if v == NilLink {
		return NoBlock
	}
	return int(v)
}
