package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joshuapare/heapkit/mem/alloc"
)

// BlockList holds the rows of the block pane: every block in arena order,
// or the free list in list order.
type BlockList struct {
	blocks []alloc.Block
}

// Len returns the number of rows.
func (l *BlockList) Len() int { return len(l.blocks) }

// At returns row i.
func (l *BlockList) At(i int) (alloc.Block, bool) {
	if i < 0 || i >= len(l.blocks) {
		return alloc.Block{}, false
	}
	return l.blocks[i], true
}

// Find returns the row holding p, or -1.
func (l *BlockList) Find(p alloc.Ptr) int {
	for i, b := range l.blocks {
		if b.Ptr == p {
			return i
		}
	}
	return -1
}

// NextUsed returns the first allocated row after from, wrapping around, or
// -1 when every row is free.
func (l *BlockList) NextUsed(from int) int {
	n := len(l.blocks)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if !l.blocks[i].Free {
			return i
		}
	}
	return -1
}

// Row renders one block.
func (l *BlockList) Row(i int, selected bool, width int) string {
	b := l.blocks[i]
	state, style := "used", usedStyle
	if b.Free {
		state, style = "free", freeStyle
	}
	line := fmt.Sprintf("0x%06x  %-4s  %8d  ptr=0x%06x", b.Header, state, b.Size, uint64(b.Ptr))
	if width > 0 {
		line = truncate(line, width)
	}
	if selected {
		return selectedStyle.Render(line)
	}
	return style.Render(line)
}

const (
	mapUsed = '█'
	mapFree = '░'
	mapNone = '·'
)

// arenaCells samples the arena at width evenly spaced offsets and marks each
// cell with the state of the block covering it. blocks must be in arena
// order.
func arenaCells(blocks []alloc.Block, end, width int) []rune {
	if width <= 0 {
		return nil
	}
	cells := make([]rune, width)
	for i := range cells {
		cells[i] = mapNone
		if end == 0 || len(blocks) == 0 {
			continue
		}
		off := i * end / width
		j := sort.Search(len(blocks), func(k int) bool { return blocks[k].End() > off })
		if j == len(blocks) {
			continue
		}
		if blocks[j].Free {
			cells[i] = mapFree
		} else {
			cells[i] = mapUsed
		}
	}
	return cells
}

// renderArenaMap styles runs of equal cells.
func renderArenaMap(cells []rune) string {
	var b strings.Builder
	for i := 0; i < len(cells); {
		j := i
		for j < len(cells) && cells[j] == cells[i] {
			j++
		}
		run := string(cells[i:j])
		switch cells[i] {
		case mapUsed:
			b.WriteString(mapUsedStyle.Render(run))
		case mapFree:
			b.WriteString(mapFreeStyle.Render(run))
		default:
			b.WriteString(run)
		}
		i = j
	}
	return b.String()
}
