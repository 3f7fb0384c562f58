// Package virtuallist renders only the visible window of a long list, so
// cursor movement costs the same for ten rows or a million.
package virtuallist

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
)

// Source supplies the rows of a list.
type Source interface {
	// Len returns the number of rows.
	Len() int

	// Row renders row i. selected marks the cursor row.
	Row(i int, selected bool, width int) string
}

// Renderer keeps a cursor and a scroll offset over a Source.
type Renderer struct {
	src      Source
	viewport viewport.Model
	cursor   int
	offset   int
	width    int
	height   int
}

// New returns a renderer over src.
func New(src Source) *Renderer {
	return &Renderer{src: src, viewport: viewport.New(0, 0)}
}

// SetSize sets the visible window in columns and rows.
func (r *Renderer) SetSize(width, height int) {
	r.width, r.height = width, height
	r.viewport.Width, r.viewport.Height = width, height
	r.clamp()
}

// Cursor returns the selected row.
func (r *Renderer) Cursor() int { return r.cursor }

// Offset returns the first visible row.
func (r *Renderer) Offset() int { return r.offset }

// SetCursor moves the cursor, clamped to the list, and scrolls it into view.
func (r *Renderer) SetCursor(i int) {
	r.cursor = i
	r.clamp()
}

// Move shifts the cursor by delta rows.
func (r *Renderer) Move(delta int) { r.SetCursor(r.cursor + delta) }

// Page returns the number of rows in one screen.
func (r *Renderer) Page() int { return max(r.height, 1) }

// Refresh re-clamps the cursor after the source changed length.
func (r *Renderer) Refresh() { r.clamp() }

func (r *Renderer) clamp() {
	n := r.src.Len()
	r.cursor = max(min(r.cursor, n-1), 0)
	if r.height <= 0 {
		return
	}
	if r.cursor < r.offset {
		r.offset = r.cursor
	}
	if r.cursor >= r.offset+r.height {
		r.offset = r.cursor - r.height + 1
	}
	r.offset = max(min(r.offset, n-r.height), 0)
}

// View renders the visible rows.
func (r *Renderer) View() string {
	n := r.src.Len()
	if n == 0 {
		return "(empty)"
	}
	height := r.height
	if height <= 0 {
		height = 20
	}
	end := min(r.offset+height, n)

	rows := make([]string, 0, end-r.offset)
	for i := r.offset; i < end; i++ {
		rows = append(rows, r.src.Row(i, i == r.cursor, r.width))
	}
	r.viewport.SetContent(strings.Join(rows, "\n"))
	r.viewport.YOffset = 0
	return r.viewport.View()
}
