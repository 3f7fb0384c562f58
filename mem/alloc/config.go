package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Config defines the tunables of a heap.
// Zero-valued fields take the value from DefaultConfig.
type Config struct {
	// Name for this configuration (for reports and benchmarks)
	Name string

	// GrowthIncrement is the minimum number of bytes added to the arena when
	// no free block fits (typically 1 MiB).
	GrowthIncrement int

	// Alignment of every payload offset and size. Power of two, 8 to 32.
	Alignment int

	// MinAlloc is the smallest payload ever handed out or left behind by a
	// split (typically 40). Rounded up to Alignment.
	MinAlloc int

	// Policy is the initial fit policy.
	Policy Policy

	// Scrub zeroes payloads as they are freed.
	Scrub bool
}

// Predefined configurations.
var (
	// ConfigStandard: 1 MiB growth steps and a 40-byte floor.
	ConfigStandard = Config{
		Name:            "Standard",
		GrowthIncrement: 1 << 20,
		Alignment:       format.BaseAlignment,
		MinAlloc:        40,
		Policy:          FirstFit,
	}

	// ConfigCompact: page-sized growth and an 8-byte floor, for small heaps
	// where arena size matters more than growth frequency.
	ConfigCompact = Config{
		Name:            "Compact",
		GrowthIncrement: format.PageSize,
		Alignment:       format.BaseAlignment,
		MinAlloc:        8,
		Policy:          FirstFit,
	}

	// ConfigBulk: 8 MiB growth steps for allocation-heavy workloads.
	ConfigBulk = Config{
		Name:            "Bulk",
		GrowthIncrement: 8 << 20,
		Alignment:       format.BaseAlignment,
		MinAlloc:        40,
		Policy:          FirstFit,
	}

	// Default configuration (used if none specified).
	DefaultConfig = ConfigStandard
)

// Validate reports whether the configuration, after defaults are applied,
// can describe a heap.
func (c Config) Validate() error {
	_, err := c.normalize()
	return err
}

// normalize fills zero fields from DefaultConfig, rounds sizes to the
// alignment and validates the result.
func (c Config) normalize() (Config, error) {
	if c.Name == "" {
		c.Name = DefaultConfig.Name
	}
	if c.GrowthIncrement == 0 {
		c.GrowthIncrement = DefaultConfig.GrowthIncrement
	}
	if c.Alignment == 0 {
		c.Alignment = DefaultConfig.Alignment
	}
	if c.MinAlloc == 0 {
		c.MinAlloc = DefaultConfig.MinAlloc
	}

	if !format.IsPowerOfTwo(c.Alignment) ||
		c.Alignment < format.BaseAlignment || c.Alignment > format.MaxAlignment {
		return c, fmt.Errorf("%w: alignment %d must be a power of two in [%d, %d]",
			ErrBadConfig, c.Alignment, format.BaseAlignment, format.MaxAlignment)
	}
	if c.MinAlloc < 0 {
		return c, fmt.Errorf("%w: negative minimum allocation %d", ErrBadConfig, c.MinAlloc)
	}
	if c.GrowthIncrement < 0 {
		return c, fmt.Errorf("%w: negative growth increment %d", ErrBadConfig, c.GrowthIncrement)
	}
	if c.MinAlloc > c.GrowthIncrement {
		return c, fmt.Errorf("%w: minimum allocation %d exceeds growth increment %d",
			ErrBadConfig, c.MinAlloc, c.GrowthIncrement)
	}
	if !c.Policy.Valid() {
		return c, fmt.Errorf("%w: %w: %v", ErrBadConfig, ErrUnknownPolicy, c.Policy)
	}

	c.MinAlloc = format.AlignUp(c.MinAlloc, c.Alignment)
	c.GrowthIncrement = format.AlignUp(c.GrowthIncrement, c.Alignment)
	if c.GrowthIncrement < format.HeaderSize+c.MinAlloc {
		return c, fmt.Errorf("%w: growth increment %d cannot hold one minimum block (%d)",
			ErrBadConfig, c.GrowthIncrement, format.HeaderSize+c.MinAlloc)
	}
	return c, nil
}
