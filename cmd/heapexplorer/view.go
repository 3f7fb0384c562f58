package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"github.com/joshuapare/heapkit/mem/alloc"
)

// Layout constants
const (
	headerHeight = 3  // Title, arena map and a blank line
	statusHeight = 1  // Status or short help
	statsWidth   = 34 // Right-hand stats panel
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.showHelp {
		return m.renderHelpOverlay()
	}

	// The overlay is rebuilt each render; bubbletea hands Update a fresh
	// copy of the model, so a stored pointer would go stale.
	if m.detail.IsVisible() {
		detailOverlay := overlay.New(
			&m.detail,
			NewMainViewModel(&m),
			overlay.Center,
			overlay.Center,
			0,
			0,
		)
		return detailOverlay.View()
	}

	return m.renderMain()
}

func (m Model) renderMain() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderContent(),
		m.renderStatus(),
	)
}

// paneHeight is the number of list rows that fit between header and status.
func (m Model) paneHeight() int {
	// Pane border and title take 3 rows
	return max(m.height-headerHeight-statusHeight-3, 3)
}

// listWidth is the width of a row in the block pane.
func (m Model) listWidth() int {
	// Border and padding take 4 columns
	return max(m.width-statsWidth-4, 20)
}

func (m Model) renderHeader() string {
	cfg := m.heap.Config()
	info := fmt.Sprintf("Config: %s  Policy: %v  Arena: %d bytes", cfg.Name, m.heap.Policy(), m.heap.End())
	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		headerStyle.Render("Heap Explorer"),
		"  ",
		infoStyle.Render(info),
	)

	width := max(m.width-2, 10)
	cells := m.arenaMap(width)
	return lipgloss.JoinVertical(lipgloss.Left, title, renderArenaMap(cells), "")
}

// arenaMap samples the arena in address order regardless of the pane shown.
func (m Model) arenaMap(width int) []rune {
	if m.pane == ArenaPane {
		return arenaCells(m.rows.blocks, m.heap.End(), width)
	}
	var blocks []alloc.Block
	_ = m.heap.Walk(func(b alloc.Block) bool {
		blocks = append(blocks, b)
		return true
	})
	return arenaCells(blocks, m.heap.End(), width)
}

func (m Model) renderContent() string {
	title := fmt.Sprintf("Arena (%d blocks)", m.rows.Len())
	if m.pane == FreePane {
		title = fmt.Sprintf("Free list (%d blocks, %v)", m.rows.Len(), m.heap.Policy())
	}
	list := lipgloss.JoinVertical(lipgloss.Left, paneTitleStyle.Render(title), m.list.View())
	left := activePaneStyle.Width(m.listWidth() + 2).Render(list)
	right := paneStyle.Width(statsWidth - 4).Render(m.renderStats())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) renderStats() string {
	u, st := m.usage, m.stats
	rows := [][2]string{
		{"Used blocks", fmt.Sprint(u.UsedBlocks)},
		{"Used bytes", fmt.Sprint(u.UsedBytes)},
		{"Free blocks", fmt.Sprint(u.FreeBlocks)},
		{"Free bytes", fmt.Sprint(u.FreeBytes)},
		{"Largest free", fmt.Sprint(u.LargestFree)},
		{"Headers", fmt.Sprint(u.HeaderBytes)},
		{"Fragmentation", fmt.Sprintf("%.1f%%", u.Fragmentation()*100)},
		{"", ""},
		{"Allocs", fmt.Sprint(st.AllocCalls)},
		{"Frees", fmt.Sprint(st.FreeCalls)},
		{"Splits", fmt.Sprint(st.SplitCount)},
		{"Merges", fmt.Sprintf("%d fwd / %d back", st.CoalesceForward, st.CoalesceBackward)},
		{"Grows", fmt.Sprintf("%d (%d failed)", st.GrowCalls, st.GrowFailures)},
		{"Double frees", fmt.Sprint(st.DoubleFrees)},
		{"Bad pointers", fmt.Sprint(st.InvalidFrees)},
	}

	var b strings.Builder
	b.WriteString(paneTitleStyle.Render("Statistics"))
	b.WriteString("\n")
	for _, r := range rows {
		if r[0] == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(statLabelStyle.Render(r[0]))
		b.WriteString(statValueStyle.Render(r[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.checkErr != nil {
		b.WriteString(errorStyle.Render("Invariants: " + m.checkErr.Error()))
	} else {
		b.WriteString(okStyle.Render("Invariants: ok"))
	}
	return b.String()
}

func (m Model) renderStatus() string {
	if m.statusMessage != "" {
		return statusStyle.Render(m.statusMessage)
	}
	return statusStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString("Freeing a free block is rejected as a double free;\n")
	b.WriteString("the heap is left untouched.")
	return modalStyle.Render(b.String())
}
