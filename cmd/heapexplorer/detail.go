package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/mem/alloc"
)

// maxPreview caps the payload bytes shown in the detail view.
const maxPreview = 256

// BlockDetailModel shows one block's header fields and a payload preview.
type BlockDetailModel struct {
	block   alloc.Block
	payload []byte
	header  []byte
	visible bool

	viewport viewport.Model
	width    int
	height   int
}

// NewBlockDetailModel creates a hidden detail view.
func NewBlockDetailModel() BlockDetailModel {
	return BlockDetailModel{viewport: viewport.New(0, 0)}
}

// Init implements tea.Model
func (m *BlockDetailModel) Init() tea.Cmd {
	return nil
}

// Show displays b. header is the raw header bytes, payload the allocated
// payload (nil for a free block).
func (m *BlockDetailModel) Show(b alloc.Block, header, payload []byte) {
	m.block = b
	m.header = append(m.header[:0], header...)
	if len(payload) > maxPreview {
		payload = payload[:maxPreview]
	}
	m.payload = append(m.payload[:0], payload...)
	m.visible = true
	m.updateContent()
}

// Hide closes the detail view
func (m *BlockDetailModel) Hide() {
	m.visible = false
}

// IsVisible returns whether the detail view is currently shown
func (m *BlockDetailModel) IsVisible() bool {
	return m.visible
}

// Update handles messages
func (m *BlockDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		// Modal takes 80% of the screen; border and padding eat 6 columns, 4 rows
		m.viewport.Width = max(int(float64(m.width)*0.8)-6, 20)
		m.viewport.Height = max(int(float64(m.height)*0.8)-4, 5)
		m.updateContent()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m *BlockDetailModel) View() string {
	return modalStyle.Render(m.viewport.View())
}

// Content returns the unstyled text of the view.
func (m *BlockDetailModel) Content() string {
	return m.content()
}

func (m *BlockDetailModel) updateContent() {
	m.viewport.SetContent(m.content())
	m.viewport.GotoTop()
}

func (m *BlockDetailModel) content() string {
	b := m.block
	rule := strings.Repeat("─", max(m.viewport.Width-2, 16))

	var sb strings.Builder
	sb.WriteString(modalTitleStyle.Render(fmt.Sprintf("Block 0x%06x", b.Header)))
	sb.WriteString("\n")

	state := "allocated"
	if b.Free {
		state = "free"
	}
	fmt.Fprintf(&sb, "State:    %s\n", state)
	fmt.Fprintf(&sb, "Header:   0x%06x..0x%06x\n", b.Header, b.Header+format.HeaderSize)
	fmt.Fprintf(&sb, "Payload:  0x%06x..0x%06x (%d bytes)\n", uint64(b.Ptr), b.End(), b.Size)
	if len(m.header) >= format.HeaderSize {
		fmt.Fprintf(&sb, "Magic:    0x%08x\n", format.ReadU32(m.header, format.MagicOffset))
		if b.Free {
			fmt.Fprintf(&sb, "Links:    prev=%s next=%s\n", link(format.Prev(m.header, 0)), link(format.Next(m.header, 0)))
		}
	}
	sb.WriteString("\nHeader Bytes:\n")
	sb.WriteString(rule)
	sb.WriteString("\n")
	sb.WriteString(formatHexDump(m.header, b.Header))

	if !b.Free {
		fmt.Fprintf(&sb, "\n\nPayload (first %d bytes):\n", len(m.payload))
		sb.WriteString(rule)
		sb.WriteString("\n")
		sb.WriteString(formatHexDump(m.payload, int(b.Ptr)))
	}
	return sb.String()
}

func link(off int) string {
	if off == format.NoBlock {
		return "none"
	}
	return fmt.Sprintf("0x%06x", off)
}

// formatHexDump creates a hex dump with ASCII sidebar, labelled with arena
// offsets starting at base.
func formatHexDump(data []byte, base int) string {
	if len(data) == 0 {
		return "(empty)"
	}

	var b strings.Builder
	const bytesPerLine = 16

	for off := 0; off < len(data); off += bytesPerLine {
		end := min(off+bytesPerLine, len(data))
		fmt.Fprintf(&b, "%06x  ", base+off)
		for i := off; i < off+bytesPerLine; i++ {
			if i < end {
				fmt.Fprintf(&b, "%02x ", data[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" |")
		for _, c := range data[off:end] {
			if c >= 32 && c < 127 {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|")
		if end < len(data) {
			b.WriteString("\n")
		}
	}
	return b.String()
}
