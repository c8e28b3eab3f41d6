package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SerializesSamePath(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := m.Run(ctx, "/ws/x.txt", func() error {
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}(i)
		time.Sleep(2 * time.Millisecond) // stagger submission order
	}
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestManager_DifferentPathsAreIndependent(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for _, p := range []string{"/ws/a.txt", "/ws/b.txt"} {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			_ = m.Run(ctx, path, func() error {
				time.Sleep(30 * time.Millisecond)
				return nil
			})
		}(p)
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 60*time.Millisecond, "independent paths must not serialize")
}

func TestManager_IsLockedAndLockedPaths(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = m.Run(ctx, "/ws/held.txt", func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.True(t, m.IsLocked("/ws/held.txt"))
	assert.Contains(t, m.LockedPaths(), Normalize("/ws/held.txt"))

	close(release)
	time.Sleep(10 * time.Millisecond)
	assert.False(t, m.IsLocked("/ws/held.txt"))
}

func TestManager_AcquireRespectsContextCancellation(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = m.Run(ctx, "/ws/busy.txt", func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Acquire(cancelCtx, "/ws/busy.txt")
	assert.Error(t, err)

	close(release)
}

func TestManager_ReleaseIsIdempotent(t *testing.T) {
	m := NewManager()
	handle, err := m.Acquire(context.Background(), "/ws/once.txt")
	require.NoError(t, err)
	handle.Release()
	assert.NotPanics(t, func() { handle.Release() })
}

func TestManager_ClearAll(t *testing.T) {
	m := NewManager()
	_, err := m.Acquire(context.Background(), "/ws/a.txt")
	require.NoError(t, err)
	_, err = m.Acquire(context.Background(), "/ws/b.txt")
	require.NoError(t, err)

	m.ClearAll()
	assert.Empty(t, m.LockedPaths())
}
