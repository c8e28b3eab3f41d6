package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvyn/toolcore/pkg/tool"
)

func TestManager_AdmitsUpToMaxConcurrent(t *testing.T) {
	m := NewManager(2)
	var concurrent int32
	var maxSeen int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = m.Submit(context.Background(), Task{
				ExecutionID: "t",
				Run: func(ctx context.Context) (*tool.Result, error) {
					cur := atomic.AddInt32(&concurrent, 1)
					for {
						old := atomic.LoadInt32(&maxSeen)
						if cur <= old || atomic.CompareAndSwapInt32(&maxSeen, old, cur) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					atomic.AddInt32(&concurrent, -1)
					return tool.NewSuccess("ok", "", nil), nil
				},
			})
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), 2)
}

func TestManager_QueueDrainsInFIFOOrder(t *testing.T) {
	m := NewManager(1)
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = m.Submit(context.Background(), Task{
				ExecutionID: "t",
				Run: func(ctx context.Context) (*tool.Result, error) {
					time.Sleep(5 * time.Millisecond)
					mu.Lock()
					order = append(order, n)
					mu.Unlock()
					return tool.NewSuccess("ok", "", nil), nil
				},
			})
		}(i)
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestManager_RetriesRetryableFailureThenSucceeds(t *testing.T) {
	m := NewManager(1, WithRetryPolicy(RetryPolicy{
		Attempts: 3, InitialDelay: time.Millisecond, Multiplier: 2,
		RetryableKinds: map[tool.ErrorKind]bool{tool.ErrorTimeout: true},
	}))

	var attempts int32
	result, err := m.Submit(context.Background(), Task{
		ExecutionID: "net",
		Run: func(ctx context.Context) (*tool.Result, error) {
			n := atomic.AddInt32(&attempts, 1)
			if n <= 2 {
				return nil, &tool.TimeoutError{ToolName: "net"}
			}
			return tool.NewSuccess("ok", "", nil), nil
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 2, result.Metadata["retryCount"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestManager_NonRetryableFailsImmediately(t *testing.T) {
	m := NewManager(1)
	var attempts int32

	_, err := m.Submit(context.Background(), Task{
		ExecutionID: "bad",
		Run: func(ctx context.Context) (*tool.Result, error) {
			atomic.AddInt32(&attempts, 1)
			return nil, &tool.ValidationError{Field: "x", Message: "bad"}
		},
	})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestManager_TimeoutProducesTimeoutError(t *testing.T) {
	m := NewManager(1, WithTimeout(10*time.Millisecond), WithRetryPolicy(RetryPolicy{Attempts: 1}))

	_, err := m.Submit(context.Background(), Task{
		ExecutionID: "slow",
		Run: func(ctx context.Context) (*tool.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	var te *tool.TimeoutError
	require.ErrorAs(t, err, &te)
}

func TestManager_CancelAllRejectsQueuedAndAbortsRunning(t *testing.T) {
	m := NewManager(1)
	started := make(chan struct{})
	blocked := make(chan struct{})

	go func() {
		_, _ = m.Submit(context.Background(), Task{
			ExecutionID: "running",
			Run: func(ctx context.Context) (*tool.Result, error) {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			},
		})
		close(blocked)
	}()
	<-started

	queuedErrCh := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), Task{
			ExecutionID: "queued",
			Run: func(ctx context.Context) (*tool.Result, error) {
				return tool.NewSuccess("ok", "", nil), nil
			},
		})
		queuedErrCh <- err
	}()
	time.Sleep(10 * time.Millisecond)

	m.CancelAll()

	queuedErr := <-queuedErrCh
	var ce *tool.CancelledError
	assert.ErrorAs(t, queuedErr, &ce)
	<-blocked
}

func TestManager_EventsEmitted(t *testing.T) {
	var events []Event
	var mu sync.Mutex
	m := NewManager(1, WithListener(ListenerFunc(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})))

	_, _ = m.Submit(context.Background(), Task{
		ExecutionID: "t",
		Run: func(ctx context.Context) (*tool.Result, error) {
			return tool.NewSuccess("ok", "", nil), nil
		},
	})

	mu.Lock()
	defer mu.Unlock()
	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, EventStarted)
	assert.Contains(t, kinds, EventCompleted)
}
