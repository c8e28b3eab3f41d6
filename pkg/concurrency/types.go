// Package concurrency implements the Concurrency Manager: admission control
// over a running set and a pending FIFO queue, per-invocation timeouts,
// retry with exponential backoff on retryable failures, and cooperative
// cancellation, all keyed by executionId.
package concurrency

import (
	"context"
	"time"

	"github.com/corvyn/toolcore/pkg/tool"
)

// Task is one unit of work submitted to the Manager.
type Task struct {
	ExecutionID string
	Run         func(ctx context.Context) (*tool.Result, error)
}

// RetryPolicy configures the Manager's retry behavior.
type RetryPolicy struct {
	Attempts      int
	InitialDelay  time.Duration
	Multiplier    float64
	MaxDelay      time.Duration
	RetryableKinds map[tool.ErrorKind]bool
}

// DefaultRetryPolicy makes up to 3 attempts in total for timeout-kind
// failures, with a 100ms initial delay doubling to a 2s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     2 * time.Second,
		RetryableKinds: map[tool.ErrorKind]bool{
			tool.ErrorTimeout: true,
		},
	}
}

// EventKind enumerates the Manager's lifecycle events.
type EventKind string

const (
	EventStarted       EventKind = "started"
	EventCompleted     EventKind = "completed"
	EventQueued        EventKind = "queued"
	EventDequeued      EventKind = "dequeued"
	EventAttemptFailed EventKind = "attempt_failed"
	EventQueueCleared  EventKind = "queue_cleared"
	EventAborted       EventKind = "aborted"
)

// Event is emitted to an optional Listener as the Manager processes tasks.
type Event struct {
	Kind        EventKind
	ExecutionID string
	Attempt     int
	Err         error
}

// Listener receives Manager events. Implementations must not block for
// long; the Manager calls Listener synchronously from its own goroutines.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }
