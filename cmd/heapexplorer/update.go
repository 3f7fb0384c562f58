package main

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// statusTimeout is how long a status message stays up.
const statusTimeout = 2 * time.Second

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.list.SetSize(m.listWidth(), m.paneHeight())
		_, cmd := m.detail.Update(msg)
		return m, cmd

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// If help is showing, handle help keys
	if m.showHelp {
		if key.Matches(msg, m.keys.Esc) || key.Matches(msg, m.keys.Help) {
			m.showHelp = false
			return m, nil
		}
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	// If detail view is open, scroll it or close it
	if m.detail.IsVisible() {
		switch {
		case key.Matches(msg, m.keys.Esc), key.Matches(msg, m.keys.Enter):
			m.detail.Hide()
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down),
			key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			_, cmd := m.detail.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.err != nil || m.heap == nil {
		return m, nil
	}

	before := m.statusMessage
	switch {
	// Navigation
	case key.Matches(msg, m.keys.Up):
		m.list.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.list.Move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.list.Move(-m.list.Page())
	case key.Matches(msg, m.keys.PageDown):
		m.list.Move(m.list.Page())
	case key.Matches(msg, m.keys.Home):
		m.list.SetCursor(0)
	case key.Matches(msg, m.keys.End):
		m.list.SetCursor(m.rows.Len() - 1)
	case key.Matches(msg, m.keys.NextUsed):
		if i := m.rows.NextUsed(m.list.Cursor()); i >= 0 {
			m.list.SetCursor(i)
		} else {
			m.statusMessage = "No allocated blocks"
		}

	// Panes and overlays
	case key.Matches(msg, m.keys.Tab):
		m.togglePane()
	case key.Matches(msg, m.keys.Enter):
		m.showDetail()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	// Heap commands
	case key.Matches(msg, m.keys.Alloc):
		m.allocate(1)
	case key.Matches(msg, m.keys.Burst):
		m.allocate(burstSize)
	case key.Matches(msg, m.keys.Free):
		m.freeSelected()
	case key.Matches(msg, m.keys.FreeAll):
		m.freeAll()
	case key.Matches(msg, m.keys.Policy):
		m.cyclePolicy()
	case key.Matches(msg, m.keys.Reset):
		m.reset()
	case key.Matches(msg, m.keys.Copy):
		if b, ok := m.rows.At(m.list.Cursor()); ok {
			if err := clipboard.WriteAll(fmt.Sprintf("0x%x", uint64(b.Ptr))); err != nil {
				m.statusMessage = fmt.Sprintf("Copy failed: %v", err)
			} else {
				m.statusMessage = "Pointer copied to clipboard"
			}
		}
	}

	if m.statusMessage != "" && m.statusMessage != before {
		return m, tea.Tick(statusTimeout, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})
	}
	return m, nil
}
