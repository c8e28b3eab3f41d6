// Package lock implements the File Lock Manager: a process-global map from
// normalized path to a FIFO of pending closures, guaranteeing that
// operations touching the same path run strictly in submission order while
// operations on different paths proceed independently.
package lock

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Manager is the File Lock Manager described in spec.md §4.5. The zero
// value is not usable; construct with NewManager. A Manager's lifecycle is
// the process (spec.md §9 permits module-level state only for this
// component), so callers typically construct one Manager and share it.
type Manager struct {
	mu      sync.Mutex
	waiters map[string]chan struct{} // key -> channel closed when that key's current holder releases
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{waiters: make(map[string]chan struct{})}
}

// Handle is returned by Acquire and released exactly once, on completion
// (success or failure) of the closure it guards.
type Handle struct {
	mgr      *Manager
	path     string
	myTurn   chan struct{}
	released bool
	mu       sync.Mutex
}

// Normalize resolves path the way lock keys are compared: absolute and
// cleaned, so "./a.txt" and "/ws/a.txt" from the same workspace collide.
func Normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// Acquire places a new waiter at the tail of path's FIFO and blocks until
// every previously queued holder for that path has released, or ctx is
// cancelled first. On success the returned Handle must have Release called
// exactly once to let the next waiter (if any) proceed.
func (m *Manager) Acquire(ctx context.Context, path string) (*Handle, error) {
	key := Normalize(path)
	myTurn := make(chan struct{})

	m.mu.Lock()
	prev := m.waiters[key]
	m.waiters[key] = myTurn
	m.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// We never held the key. Pass our turn on only once the holder
			// ahead of us releases, as if we had acquired and released at
			// that moment, so whoever queued behind us still waits for that
			// holder. If nobody queued behind us by then, clean up the entry
			// entirely instead of leaving a closed channel keyed forever.
			go func() {
				<-prev
				m.mu.Lock()
				if m.waiters[key] == myTurn {
					delete(m.waiters, key)
				}
				m.mu.Unlock()
				close(myTurn)
			}()
			return nil, fmt.Errorf("lock: acquire %s: %w", key, ctx.Err())
		}
	}

	return &Handle{mgr: m, path: key, myTurn: myTurn}, nil
}

// Release lets the next queued waiter on this path (if any) proceed, and
// clears the path's entry entirely if this handle was the last in line.
// Safe to call more than once; only the first call has effect.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true

	h.mgr.mu.Lock()
	if h.mgr.waiters[h.path] == h.myTurn {
		delete(h.mgr.waiters, h.path)
	}
	h.mgr.mu.Unlock()

	close(h.myTurn)
}

// Run acquires path, runs fn, and releases unconditionally (success or
// panic-free failure) before returning fn's error. This is the shape
// Edit-kind tools use to wrap execute() for every path in
// ToolInvocation.AffectedPaths().
func (m *Manager) Run(ctx context.Context, path string, fn func() error) error {
	handle, err := m.Acquire(ctx, path)
	if err != nil {
		return err
	}
	defer handle.Release()
	return fn()
}

// IsLocked reports whether path currently has an active or queued holder.
func (m *Manager) IsLocked(path string) bool {
	key := Normalize(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.waiters[key]
	return ok
}

// LockedPaths returns every normalized path with an active or queued
// holder, sorted for stable output.
func (m *Manager) LockedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.waiters))
	for path := range m.waiters {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Clear forcibly drops path's queue, releasing every waiter blocked on it
// without running their closures. Administrative use only (teardown, test
// cleanup); it does not notify waiters' callers that their acquire will
// never have run their fn.
func (m *Manager) Clear(path string) {
	key := Normalize(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.waiters[key]; ok {
		delete(m.waiters, key)
		close(ch)
	}
}

// ClearAll forcibly drops every path's queue. Administrative use only.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, ch := range m.waiters {
		close(ch)
		delete(m.waiters, key)
	}
}
