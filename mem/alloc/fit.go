package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// strategy chooses a free block for a normalized request. It returns
// format.NoBlock when nothing on the list qualifies.
type strategy interface {
	find(l freeList, size int) (int, error)
}

func strategyFor(p Policy) (strategy, error) {
	switch p {
	case FirstFit:
		return firstFit{}, nil
	case BestFit:
		return bestFit{}, nil
	case WorstFit:
		return worstFit{}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownPolicy, p)
}

type firstFit struct{}

func (firstFit) find(l freeList, size int) (int, error) {
	found := format.NoBlock
	err := l.each(func(hdr, s int) bool {
		if s >= size {
			found = hdr
			return false
		}
		return true
	})
	return found, err
}

type bestFit struct{}

func (bestFit) find(l freeList, size int) (int, error) {
	found, best := format.NoBlock, 0
	err := l.each(func(hdr, s int) bool {
		if s < size {
			return true
		}
		if found == format.NoBlock || s < best {
			found, best = hdr, s
		}
		return s != size
	})
	return found, err
}

type worstFit struct{}

func (worstFit) find(l freeList, size int) (int, error) {
	found, worst := format.NoBlock, 0
	err := l.each(func(hdr, s int) bool {
		if s >= size && s > worst {
			found, worst = hdr, s
		}
		return true
	})
	return found, err
}
