package concurrency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corvyn/toolcore/pkg/tool"
)

// Manager is the Concurrency Manager described in spec.md §4.6.
type Manager struct {
	maxConcurrent int
	timeout       time.Duration
	retry         RetryPolicy
	listener      Listener

	// retryLimiter paces the *global* rate of retry attempts across every
	// in-flight task, independent of each task's own exponential backoff,
	// so a burst of simultaneously-failing tasks cannot hammer a struggling
	// downstream dependency all at once.
	retryLimiter *rate.Limiter

	mu       sync.Mutex
	running  int
	queue    []*waiter
	cancels  map[string]context.CancelFunc
	cancelled bool
}

type waiter struct {
	executionID string
	ready       chan struct{}
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithTimeout sets the per-invocation timeout. Zero (the default) means no
// timeout beyond the caller's own context.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(m *Manager) { m.retry = p }
}

// WithListener attaches an event listener.
func WithListener(l Listener) Option {
	return func(m *Manager) { m.listener = l }
}

// WithRetryRateLimit bounds the global retry attempt rate (attempts/sec,
// burst). A non-positive rate disables the limiter (the default).
func WithRetryRateLimit(attemptsPerSecond float64, burst int) Option {
	return func(m *Manager) {
		if attemptsPerSecond > 0 {
			m.retryLimiter = rate.NewLimiter(rate.Limit(attemptsPerSecond), burst)
		}
	}
}

// NewManager returns a Manager admitting at most maxConcurrent tasks at
// once; excess submissions queue FIFO.
func NewManager(maxConcurrent int, opts ...Option) *Manager {
	m := &Manager{
		maxConcurrent: maxConcurrent,
		retry:         DefaultRetryPolicy(),
		cancels:       make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) emit(kind EventKind, executionID string, attempt int, err error) {
	if m.listener != nil {
		m.listener.OnEvent(Event{Kind: kind, ExecutionID: executionID, Attempt: attempt, Err: err})
	}
}

// admit blocks until executionID may run: immediately if the running set
// has room, otherwise after every task queued ahead of it completes. It
// returns a release func to call on completion, or an error if ctx is
// cancelled while queued or the manager has been cancelled.
func (m *Manager) admit(ctx context.Context, executionID string) (func(), error) {
	m.mu.Lock()
	if m.cancelled {
		m.mu.Unlock()
		return nil, &tool.CancelledError{ToolName: executionID}
	}
	if m.running < m.maxConcurrent {
		m.running++
		m.mu.Unlock()
		m.emit(EventStarted, executionID, 0, nil)
		return m.release, nil
	}

	w := &waiter{executionID: executionID, ready: make(chan struct{})}
	m.queue = append(m.queue, w)
	m.mu.Unlock()
	m.emit(EventQueued, executionID, 0, nil)

	select {
	case <-w.ready:
		m.mu.Lock()
		cancelled := m.cancelled
		m.mu.Unlock()
		if cancelled {
			return nil, &tool.CancelledError{ToolName: executionID}
		}
		m.emit(EventDequeued, executionID, 0, nil)
		return m.release, nil
	case <-ctx.Done():
		m.removeFromQueue(w)
		return nil, &tool.CancelledError{ToolName: executionID}
	}
}

func (m *Manager) removeFromQueue(target *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.queue {
		if w == target {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// release is called exactly once per admitted task on completion. It
// admits the next queued waiter, if any.
func (m *Manager) release() {
	m.mu.Lock()
	m.running--
	if len(m.queue) == 0 || m.cancelled {
		m.mu.Unlock()
		return
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	m.running++
	m.mu.Unlock()
	close(next.ready)
}

// Submit runs task under admission control, a per-invocation timeout (if
// configured), and the Manager's retry policy. Exactly one of (*Result,
// nil) or (nil, error) is returned.
func (m *Manager) Submit(ctx context.Context, task Task) (*tool.Result, error) {
	release, err := m.admit(ctx, task.ExecutionID)
	if err != nil {
		return nil, err
	}
	defer release()

	var lastErr error
	delay := m.retry.InitialDelay
	attempts := m.retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		runCtx := ctx
		var cancel context.CancelFunc
		if m.timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, m.timeout)
		} else {
			runCtx, cancel = context.WithCancel(ctx)
		}

		m.mu.Lock()
		m.cancels[task.ExecutionID] = cancel
		m.mu.Unlock()

		result, runErr := task.Run(runCtx)

		m.mu.Lock()
		delete(m.cancels, task.ExecutionID)
		m.mu.Unlock()

		if runErr == nil {
			cancel()
			m.emit(EventCompleted, task.ExecutionID, attempt, nil)
			if attempt > 1 && result != nil {
				if result.Metadata == nil {
					result.Metadata = map[string]any{}
				}
				result.Metadata["retryCount"] = attempt - 1
			}
			return result, nil
		}

		if runCtx.Err() == context.DeadlineExceeded {
			runErr = &tool.TimeoutError{ToolName: task.ExecutionID, BudgetMs: m.timeout.Milliseconds()}
		}
		cancel()

		lastErr = runErr
		m.emit(EventAttemptFailed, task.ExecutionID, attempt, runErr)

		if ctx.Err() != nil {
			return nil, &tool.CancelledError{ToolName: task.ExecutionID}
		}
		if attempt == attempts || !tool.IsRetryable(runErr, m.retry.RetryableKinds) {
			break
		}

		if m.retryLimiter != nil {
			if werr := m.retryLimiter.Wait(ctx); werr != nil {
				return nil, &tool.CancelledError{ToolName: task.ExecutionID}
			}
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, &tool.CancelledError{ToolName: task.ExecutionID}
		}

		delay = time.Duration(float64(delay) * m.retry.Multiplier)
		if m.retry.MaxDelay > 0 && delay > m.retry.MaxDelay {
			delay = m.retry.MaxDelay
		}
	}

	if tagged, ok := lastErr.(tool.TaggedError); ok {
		return nil, tagged
	}
	return nil, &tool.ExecutionError{ToolName: task.ExecutionID, Cause: lastErr}
}

// Cancel aborts the running invocation for executionID (cooperatively, via
// context cancellation) if it is currently running. It has no effect on a
// queued-but-not-yet-running task beyond what CancelAll provides.
func (m *Manager) Cancel(executionID string) {
	m.mu.Lock()
	cancel, ok := m.cancels[executionID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelAll aborts every running invocation and rejects every queued one
// with a Cancelled error; already-completed results are retained by their
// callers (the Manager holds no result history of its own).
func (m *Manager) CancelAll() {
	m.mu.Lock()
	m.cancelled = true
	cancels := make([]context.CancelFunc, 0, len(m.cancels))
	for _, c := range m.cancels {
		cancels = append(cancels, c)
	}
	queued := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	for _, w := range queued {
		close(w.ready)
		m.emit(EventAborted, w.executionID, 0, nil)
	}
	m.emit(EventQueueCleared, "", 0, nil)
}

// sleep waits for d or returns ctx.Err() if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("concurrency: sleep interrupted: %w", ctx.Err())
	}
}
