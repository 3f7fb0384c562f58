package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/heapkit/mem/alloc"
	"github.com/joshuapare/heapkit/mem/arena"
)

// TestHelper drives a Model through key presses
type TestHelper struct {
	model Model
}

// NewTestHelper creates a helper over a compact heap in a static arena of
// arenaSize bytes, sized to a 120x40 terminal.
func NewTestHelper(t *testing.T, arenaSize int) *TestHelper {
	t.Helper()
	h := &TestHelper{model: NewModel(Options{
		Config:     alloc.ConfigCompact,
		NewBackend: func() (arena.Backend, error) { return arena.NewStatic(arenaSize), nil },
		MaxSize:    256,
		Seed:       1,
	})}
	if h.model.err != nil {
		t.Fatalf("NewModel: %v", h.model.err)
	}
	t.Cleanup(func() { _ = h.model.Close() })
	return h.SendWindowSize(120, 40)
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) *TestHelper {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// SendKey simulates a special key press
func (h *TestHelper) SendKey(keyType tea.KeyType) *TestHelper {
	updated, _ := h.model.Update(tea.KeyMsg{Type: keyType})
	h.model = updated.(Model)
	return h
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	updated, _ := h.model.Update(tea.WindowSizeMsg{Width: width, Height: height})
	h.model = updated.(Model)
	return h
}

// Rows returns the blocks currently listed
func (h *TestHelper) Rows() []alloc.Block {
	return append([]alloc.Block(nil), h.model.rows.blocks...)
}

// UsedCount returns the number of allocated blocks in the arena
func (h *TestHelper) UsedCount() int {
	return h.model.usage.UsedBlocks
}
