package main

import (
	"fmt"
	"math/rand"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/heapkit/cmd/heapexplorer/virtuallist"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/mem/alloc"
	"github.com/joshuapare/heapkit/mem/arena"
)

// Pane selects what the block pane lists
type Pane int

const (
	ArenaPane Pane = iota // Every block in address order
	FreePane              // The free list in list order
)

// burstSize is the number of allocations made by the Burst key.
const burstSize = 16

// Options configures the explorer.
type Options struct {
	Config     alloc.Config
	NewBackend func() (arena.Backend, error)
	MaxSize    int   // Largest random request
	Seed       int64 // RNG seed for request sizes
}

// Model is the main application model
type Model struct {
	opts Options
	heap *alloc.Heap

	keys KeyMap
	help help.Model

	pane   Pane
	rows   *BlockList
	list   *virtuallist.Renderer
	detail BlockDetailModel

	usage    alloc.Usage
	stats    alloc.Stats
	checkErr error

	rng *rand.Rand

	width  int
	height int

	showHelp      bool
	statusMessage string

	err error
}

// NewModel creates a new TUI model over a fresh heap.
func NewModel(opts Options) Model {
	if opts.NewBackend == nil {
		opts.NewBackend = func() (arena.Backend, error) { return arena.NewMapped(0) }
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 512
	}

	rows := &BlockList{}
	m := Model{
		opts:   opts,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		rows:   rows,
		list:   virtuallist.New(rows),
		detail: NewBlockDetailModel(),
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}
	m.heap, m.err = newHeap(opts)
	if m.err == nil {
		m.refresh()
	}
	return m
}

func newHeap(opts Options) (*alloc.Heap, error) {
	be, err := opts.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("create arena: %w", err)
	}
	cfg := opts.Config
	h, err := alloc.New(be, &cfg)
	if err != nil {
		_ = be.Release()
		return nil, err
	}
	logger.Debug("heap created", "config", h.Config().Name, "policy", h.Policy().String())
	return h, nil
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Close releases the heap.
func (m *Model) Close() error {
	if m.heap == nil {
		return nil
	}
	err := m.heap.Close()
	m.heap = nil
	return err
}

// refresh reloads the rows, usage and stats and re-runs the invariant check.
func (m *Model) refresh() {
	m.rows.blocks = m.rows.blocks[:0]
	collect := func(b alloc.Block) bool {
		m.rows.blocks = append(m.rows.blocks, b)
		return true
	}

	var err error
	if m.pane == FreePane {
		err = m.heap.WalkFree(collect)
	} else {
		err = m.heap.Walk(collect)
	}
	if err == nil {
		m.usage, err = m.heap.Usage()
	}
	if err == nil {
		err = m.heap.Check()
	}
	if err != nil {
		logger.Error("heap check failed", "err", err)
	}
	m.checkErr = err
	m.stats = m.heap.Stats()
	m.list.Refresh()
}

// allocate makes count requests of random size and selects the last block.
func (m *Model) allocate(count int) {
	var last alloc.Ptr
	lastSize, done := 0, 0
	for range count {
		size := m.rng.Intn(m.opts.MaxSize) + 1
		p, b, err := m.heap.Alloc(size)
		if err != nil {
			logger.Warn("allocation failed", "size", size, "err", err)
			m.statusMessage = fmt.Sprintf("Allocation of %d bytes failed: %v", size, err)
			break
		}
		fillPattern(b, p)
		last, lastSize = p, size
		done++
	}
	m.refresh()

	if last == alloc.Nil {
		return
	}
	if done == count {
		if count == 1 {
			m.statusMessage = fmt.Sprintf("Allocated %d bytes at 0x%x", lastSize, uint64(last))
		} else {
			m.statusMessage = fmt.Sprintf("Allocated %d blocks", done)
		}
	}
	if m.pane == ArenaPane {
		if i := m.rows.Find(last); i >= 0 {
			m.list.SetCursor(i)
		}
	}
}

// fillPattern tags a payload with bytes derived from its pointer so blocks
// are easy to tell apart in the detail view.
func fillPattern(b []byte, p alloc.Ptr) {
	for i := range b {
		b[i] = byte(uint64(p)>>3) + byte(i)
	}
}

// freeSelected frees the block under the cursor. Freeing a free block
// exercises double-free detection.
func (m *Model) freeSelected() {
	b, ok := m.rows.At(m.list.Cursor())
	if !ok {
		return
	}
	if err := m.heap.Free(b.Ptr); err != nil {
		logger.Warn("free rejected", "ptr", uint64(b.Ptr), "err", err)
		m.statusMessage = fmt.Sprintf("Free of 0x%x rejected: %v", uint64(b.Ptr), err)
	} else {
		m.statusMessage = fmt.Sprintf("Freed %d bytes at 0x%x", b.Size, uint64(b.Ptr))
	}
	m.refresh()
}

// freeAll frees every allocated block.
func (m *Model) freeAll() {
	var live []alloc.Ptr
	err := m.heap.Walk(func(b alloc.Block) bool {
		if !b.Free {
			live = append(live, b.Ptr)
		}
		return true
	})
	for _, p := range live {
		if err == nil {
			err = m.heap.Free(p)
		}
	}
	if err != nil {
		m.statusMessage = fmt.Sprintf("Free all stopped: %v", err)
	} else {
		m.statusMessage = fmt.Sprintf("Freed %d blocks", len(live))
	}
	m.refresh()
}

// cyclePolicy switches to the next fit policy.
func (m *Model) cyclePolicy() {
	cur := m.heap.Policy()
	next := alloc.Policies[0]
	for i, p := range alloc.Policies {
		if p == cur {
			next = alloc.Policies[(i+1)%len(alloc.Policies)]
		}
	}
	if err := m.heap.SetPolicy(next); err != nil {
		m.statusMessage = err.Error()
		return
	}
	m.statusMessage = fmt.Sprintf("Fit policy: %v", next)
}

// reset replaces the heap with an empty one, keeping the current policy.
func (m *Model) reset() {
	policy := m.heap.Policy()
	if err := m.heap.Close(); err != nil {
		logger.Warn("error closing heap", "err", err)
	}
	opts := m.opts
	opts.Config.Policy = policy
	h, err := newHeap(opts)
	if err != nil {
		m.heap = nil
		m.err = err
		return
	}
	m.heap = h
	m.list.SetCursor(0)
	m.statusMessage = "Heap reset"
	m.refresh()
}

// togglePane switches between the arena and the free list.
func (m *Model) togglePane() {
	if m.pane == ArenaPane {
		m.pane = FreePane
	} else {
		m.pane = ArenaPane
	}
	m.list.SetCursor(0)
	m.refresh()
}

// showDetail opens the detail view for the block under the cursor.
func (m *Model) showDetail() {
	b, ok := m.rows.At(m.list.Cursor())
	if !ok {
		return
	}
	header, err := m.heap.HeaderBytes(b.Header)
	if err != nil {
		m.statusMessage = err.Error()
		return
	}
	var payload []byte
	if !b.Free {
		payload, err = m.heap.Bytes(b.Ptr)
		if err != nil {
			m.statusMessage = err.Error()
			return
		}
	}
	m.detail.Show(b, header, payload)
}

type clearStatusMsg struct{}
