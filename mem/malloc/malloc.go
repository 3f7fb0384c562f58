package malloc

import (
	"expvar"
	"fmt"
	"sync"

	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/mem/alloc"
	"github.com/joshuapare/heapkit/mem/arena"
)

// Options configures an Allocator.
type Options struct {
	// Config is the heap configuration (nil for alloc.DefaultConfig).
	Config *alloc.Config

	// NewBackend creates the arena at initialization. Default: a Mapped
	// backend with arena.DefaultLimit.
	NewBackend func() (arena.Backend, error)
}

// Allocator is a lazily initialized, mutex-guarded heap with a sticky error
// code. The zero value is ready to use with default options.
type Allocator struct {
	mu      sync.Mutex
	opts    Options
	heap    *alloc.Heap
	lastErr ErrorCode

	// Policy chosen before initialization, applied when the heap is created
	policy    alloc.Policy
	policySet bool
}

// New returns an Allocator that initializes itself on first use.
func New(opts Options) *Allocator {
	return &Allocator{opts: opts}
}

// Init creates the heap. Calling it again is a no-op.
func (a *Allocator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ensure()
}

func (a *Allocator) ensure() error {
	if a.heap != nil {
		return nil
	}

	newBackend := a.opts.NewBackend
	if newBackend == nil {
		newBackend = func() (arena.Backend, error) { return arena.NewMapped(0) }
	}
	be, err := newBackend()
	if err != nil {
		return fmt.Errorf("malloc: init: %w", err)
	}

	h, err := alloc.New(be, a.opts.Config)
	if err != nil {
		_ = be.Release()
		return fmt.Errorf("malloc: init: %w", err)
	}
	if a.policySet {
		if err := h.SetPolicy(a.policy); err != nil {
			_ = h.Close()
			return fmt.Errorf("malloc: init: %w", err)
		}
	}

	a.heap = h
	logger.Debug("heap initialized", "config", h.Config().Name, "policy", h.Policy().String())
	return nil
}

// Cleanup zeroes and releases the arena, clears the error code and the
// chosen policy, and returns the Allocator to its uninitialized state.
func (a *Allocator) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastErr = Success
	a.policySet = false
	if a.heap == nil {
		return nil
	}
	err := a.heap.Close()
	a.heap = nil
	logger.Debug("heap released")
	return err
}

// Malloc returns a pointer to at least n usable bytes, or alloc.Nil.
// A zero-byte request returns alloc.Nil without touching the error code.
func (a *Allocator) Malloc(n int) alloc.Ptr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready() {
		return alloc.Nil
	}
	p, _, err := a.heap.Alloc(n)
	if err != nil {
		a.fail("malloc", err, "size", n)
		return alloc.Nil
	}
	return p
}

// Free releases p. Freeing alloc.Nil is a no-op. Invalid pointers and
// double frees are detected, logged and recorded; the heap is not modified.
func (a *Allocator) Free(p alloc.Ptr) {
	if p == alloc.Nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.live("free", p) {
		return
	}
	if err := a.heap.Free(p); err != nil {
		a.fail("free", err, "ptr", uint64(p))
	}
}

// Calloc returns a pointer to count*size zeroed bytes, or alloc.Nil. An
// overflowing product records OutOfMemory.
func (a *Allocator) Calloc(count, size int) alloc.Ptr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready() {
		return alloc.Nil
	}
	p, _, err := a.heap.Calloc(count, size)
	if err != nil {
		a.fail("calloc", err, "count", count, "size", size)
		return alloc.Nil
	}
	return p
}

// Realloc resizes p to n bytes and returns the possibly moved pointer.
// Realloc(alloc.Nil, n) is Malloc(n); Realloc(p, 0) frees p and returns
// alloc.Nil. On failure alloc.Nil is returned and p stays valid.
func (a *Allocator) Realloc(p alloc.Ptr, n int) alloc.Ptr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p != alloc.Nil && !a.live("realloc", p) {
		return alloc.Nil
	}
	if !a.ready() {
		return alloc.Nil
	}
	q, _, err := a.heap.Realloc(p, n)
	if err != nil {
		a.fail("realloc", err, "ptr", uint64(p), "size", n)
		return alloc.Nil
	}
	return q
}

// Bytes returns the full usable payload of p, or nil for an invalid
// pointer. The slice aliases arena memory and is valid until p is freed.
func (a *Allocator) Bytes(p alloc.Ptr) []byte {
	if p == alloc.Nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.live("bytes", p) {
		return nil
	}
	b, err := a.heap.Bytes(p)
	if err != nil {
		a.fail("bytes", err, "ptr", uint64(p))
		return nil
	}
	return b
}

// UsableSize returns the usable size of p, zero for alloc.Nil or an invalid
// pointer.
func (a *Allocator) UsableSize(p alloc.Ptr) int {
	if p == alloc.Nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.live("usable size", p) {
		return 0
	}
	n, err := a.heap.UsableSize(p)
	if err != nil {
		a.fail("usable size", err, "ptr", uint64(p))
		return 0
	}
	return n
}

// LastError returns the code of the most recent failure. Successful calls
// do not reset it; only Cleanup does.
func (a *Allocator) LastError() ErrorCode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// SetFitPolicy selects the fit policy. Before initialization the choice is
// remembered and applied when the heap is created.
func (a *Allocator) SetFitPolicy(p alloc.Policy) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.heap != nil {
		if err := a.heap.SetPolicy(p); err != nil {
			return err
		}
	} else if !p.Valid() {
		return fmt.Errorf("%w: %v", alloc.ErrUnknownPolicy, p)
	}
	a.policy = p
	a.policySet = true
	return nil
}

// Stats returns the heap counters, zero before initialization.
func (a *Allocator) Stats() alloc.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.heap == nil {
		return alloc.Stats{}
	}
	return a.heap.Stats()
}

// Do runs fn with exclusive access to the underlying heap, initializing it
// first if needed. The heap must not be retained after fn returns.
func (a *Allocator) Do(fn func(h *alloc.Heap) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensure(); err != nil {
		return err
	}
	return fn(a.heap)
}

// Snapshot is the state exported by Publish.
type Snapshot struct {
	Initialized bool
	Policy      string
	LastError   string
	Stats       alloc.Stats
	Usage       alloc.Usage
}

// Snapshot captures the current state.
func (a *Allocator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{LastError: a.lastErr.String()}
	if a.heap == nil {
		s.Policy = a.pendingPolicy().String()
		return s
	}
	s.Initialized = true
	s.Policy = a.heap.Policy().String()
	s.Stats = a.heap.Stats()
	if u, err := a.heap.Usage(); err == nil {
		s.Usage = u
	}
	return s
}

// Publish exports Snapshot through expvar under name.
func (a *Allocator) Publish(name string) error {
	if expvar.Get(name) != nil {
		return fmt.Errorf("malloc: expvar %q already published", name)
	}
	expvar.Publish(name, expvar.Func(func() any { return a.Snapshot() }))
	return nil
}

func (a *Allocator) pendingPolicy() alloc.Policy {
	if a.policySet {
		return a.policy
	}
	if a.opts.Config != nil {
		return a.opts.Config.Policy
	}
	return alloc.DefaultConfig.Policy
}

// ready initializes the heap on first use. A failed initialization is an
// allocation failure.
func (a *Allocator) ready() bool {
	if err := a.ensure(); err != nil {
		a.lastErr = OutOfMemory
		logger.Error("heap initialization failed", "err", err)
		return false
	}
	return true
}

// live reports whether a heap exists for p to belong to. Before the first
// allocation every pointer is invalid, and no heap is created to say so.
func (a *Allocator) live(op string, p alloc.Ptr) bool {
	if a.heap != nil {
		return true
	}
	a.fail(op, fmt.Errorf("%w: %#x before initialization", alloc.ErrInvalidPointer, uint64(p)), "ptr", uint64(p))
	return false
}

// fail records err in the sticky error code and logs detected misuse.
func (a *Allocator) fail(op string, err error, args ...any) {
	code, ok := codeFor(err)
	if !ok {
		return
	}
	a.lastErr = code
	args = append(args, "code", code.String(), "err", err)
	switch code {
	case InvalidPointer:
		logger.Warn(op+": invalid magic number", args...)
	case DoubleFree:
		logger.Warn(op+": double free detected", args...)
	default:
		logger.Debug(op+": failed", args...)
	}
}
