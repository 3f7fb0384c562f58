// Package format defines the in-arena layout of heap blocks. The goal is to
// keep header encoding focused, allocation-free and independent from the
// allocator so the higher-level packages only ever deal in offsets.
//
// Every block, free or allocated, starts with a fixed 32-byte header
// (little-endian):
//
//	Offset  Size  Field
//	0x00    8     Payload size OR'ed with the free bit (bit 0)
//	0x08    8     Previous free-list header offset, NilLink when none
//	0x10    8     Next free-list header offset, NilLink when none
//	0x18    4     Magic (0xDEADBEEF)
//	0x1C    4     Reserved, zero
//	0x20    ...   Payload
package format

const (
	// HeaderSize is the size of the block header preceding every payload.
	HeaderSize = 0x20

	// SizeFlagsOffset is the offset of the packed size/free word.
	SizeFlagsOffset = 0x00

	// PrevOffset is the offset of the free-list back link.
	PrevOffset = 0x08

	// NextOffset is the offset of the free-list forward link.
	NextOffset = 0x10

	// MagicOffset is the offset of the integrity sentinel.
	MagicOffset = 0x18

	// ReservedOffset is the offset of the reserved trailing word.
	ReservedOffset = 0x1C

	// Magic is stamped into every header at initialization time and checked
	// before the header is trusted.
	Magic uint32 = 0xDEADBEEF

	// FreeBit marks a block as a member of the free list.
	FreeBit uint64 = 0x1

	// SizeMask clears the flag bits from the packed size word.
	SizeMask = ^FreeBit

	// NilLink is the on-arena encoding of an absent free-list link.
	NilLink uint64 = ^uint64(0)

	// NoBlock is the decoded form of NilLink.
	NoBlock = -1

	// BaseAlignment is the platform alignment every payload honors.
	BaseAlignment = 8

	// BaseAlignmentMask is the bitmask used for aligning to 8-byte boundaries (BaseAlignment - 1).
	BaseAlignmentMask = BaseAlignment - 1

	// MaxAlignment is the largest alignment a heap may be configured with.
	// Payloads sit HeaderSize bytes past their header, so any alignment
	// larger than the header would leave payloads misaligned.
	MaxAlignment = HeaderSize

	// PageSize is the assumed OS page size used for sizing defaults.
	PageSize = 0x1000
)

// Layout assertions. Each constant expression is negative, and therefore
// fails to compile as a uint, when the header layout is inconsistent.
const (
	_ uint = HeaderSize - (ReservedOffset + 4)    // fields fit inside the header
	_ uint = (ReservedOffset + 4) - HeaderSize    // and fill it exactly
	_ uint = -(HeaderSize % BaseAlignment)        // header keeps payloads aligned
	_ uint = -(SizeFlagsOffset % 8)               // 64-bit fields are 8-byte aligned
	_ uint = -(PrevOffset % 8)
	_ uint = -(NextOffset % 8)
	_ uint = -(MagicOffset % 4)                   // 32-bit fields are 4-byte aligned
	_ uint = MagicOffset - (NextOffset + 8)       // no overlap between links and magic
	_ uint = -(MaxAlignment & (MaxAlignment - 1)) // MaxAlignment is a power of two
)
