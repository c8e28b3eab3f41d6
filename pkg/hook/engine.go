package hook

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Engine selects and runs hooks for lifecycle events against a fixed
// Config, bounding per-event concurrency and de-duplicating via an
// ExecutionGuard.
type Engine struct {
	cfg   Config
	guard *ExecutionGuard
}

// NewEngine returns an Engine over cfg. Config is a snapshot taken at
// construction time; the engine never holds a back-reference into whatever
// produced it, so config reloads require constructing a new Engine (spec.md
// §9: "the engine takes a snapshot of the config at event start").
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, guard: NewExecutionGuard()}
}

// Fire runs every hook selected for event against call, honoring
// maxConcurrentHooks, and returns the aggregated decision. toolUseID scopes
// the execution guard's dedup; pass a fresh ID per distinct invocation and
// the same ID across retries of that invocation.
func (e *Engine) Fire(ctx context.Context, toolUseID string, event Event, call CallInfo, input Input) Aggregated {
	entries := e.cfg.Selected(event, call)
	if len(entries) == 0 {
		return Aggregated{Decision: DecisionAllow, ShouldContinue: true}
	}

	outcomes := e.guard.Once(toolUseID, event, func() []Outcome {
		return e.runAll(ctx, entries, input)
	})

	return Aggregate(outcomes)
}

func (e *Engine) runAll(ctx context.Context, entries []Entry, input Input) []Outcome {
	limit := int64(e.cfg.MaxConcurrentHooks)
	if limit <= 0 {
		limit = int64(len(entries))
	}

	sem := semaphore.NewWeighted(limit)
	outcomes := make([]Outcome, len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context already cancelled; run remaining hooks inline so every
			// entry still produces an outcome for aggregation.
			outcomes[i] = Run(ctx, entry, input, e.cfg.DefaultTimeout)
			wg.Done()
			continue
		}
		go func(i int, entry Entry) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[i] = Run(ctx, entry, input, e.cfg.DefaultTimeout)
		}(i, entry)
	}
	wg.Wait()

	return outcomes
}
