package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/corvyn/toolcore/pkg/tool"
)

// Invocation is what the Scheduler actually runs for one node: the
// pipeline's per-request execution, already closed over validated
// arguments and the shared ExecutionContext.
type Invocation func(ctx context.Context) (*tool.Result, error)

// Outcome pairs a node's RequestID with its terminal Result or error.
type Outcome struct {
	RequestID string
	Result    *tool.Result
	Err       error
}

// DefaultFailureRatioThreshold is the cumulative-failure-ratio cutoff
// spec.md §4.8 applies when a batch doesn't request StrictFailureHandling.
const DefaultFailureRatioThreshold = 0.3

// Scheduler runs a batch of invocations stage by stage, honoring the
// DependencyGraph's explicit edges and resource-tag conflicts within a
// stage. Stages run sequentially; invocations within a stage run
// concurrently, capped at MaxConcurrent.
type Scheduler struct {
	MaxConcurrent int

	// StrictFailureHandling, when set, aborts every remaining stage as soon
	// as any invocation in a completed stage failed.
	StrictFailureHandling bool

	// FailureRatioThreshold is the cumulative failures/attempts ratio above
	// which the batch aborts even without StrictFailureHandling. Zero means
	// DefaultFailureRatioThreshold.
	FailureRatioThreshold float64
}

// NewScheduler returns a Scheduler capping per-stage fan-out at
// maxConcurrent, with the default (non-strict, 0.3 ratio) execution policy.
func NewScheduler(maxConcurrent int) *Scheduler {
	return &Scheduler{MaxConcurrent: maxConcurrent, FailureRatioThreshold: DefaultFailureRatioThreshold}
}

// WithStrictFailureHandling sets whether any stage failure aborts the rest
// of the batch outright.
func (s *Scheduler) WithStrictFailureHandling(strict bool) *Scheduler {
	s.StrictFailureHandling = strict
	return s
}

// WithFailureRatioThreshold overrides the cumulative failure ratio that
// aborts the batch when StrictFailureHandling is false.
func (s *Scheduler) WithFailureRatioThreshold(ratio float64) *Scheduler {
	s.FailureRatioThreshold = ratio
	return s
}

func (s *Scheduler) failureRatioThreshold() float64 {
	if s.FailureRatioThreshold > 0 {
		return s.FailureRatioThreshold
	}
	return DefaultFailureRatioThreshold
}

// RunBatch partitions graph into stages and runs invocations[id] for every
// node, stage by stage. It returns outcomes in the graph's original
// insertion order regardless of completion order within a stage. If graph
// contains a cycle, it returns a CyclicDependencyError and runs nothing.
func (s *Scheduler) RunBatch(ctx context.Context, graph *Graph, invocations map[string]Invocation) ([]Outcome, error) {
	if cycle := graph.DetectCycle(); cycle != nil {
		return nil, &tool.CyclicDependencyError{Cycle: cycle}
	}

	stages := graph.Stages(s.MaxConcurrent)
	results := make(map[string]Outcome, len(graph.order))

	var totalAttempted, totalFailed int
	aborted := false

	for _, stage := range stages {
		if aborted {
			break
		}

		group, groupCtx := errgroup.WithContext(ctx)
		stageResults := make([]Outcome, len(stage))

		for i, id := range stage {
			i, id := i, id
			group.Go(func() error {
				invoke, ok := invocations[id]
				if !ok {
					stageResults[i] = Outcome{RequestID: id, Err: &tool.ToolNotFoundError{ToolName: id}}
					return nil
				}
				result, err := invoke(groupCtx)
				stageResults[i] = Outcome{RequestID: id, Result: result, Err: err}
				return nil
			})
		}
		// Intentionally ignore the errgroup's own error: a single
		// invocation's failure becomes that node's Outcome.Err, not a
		// batch-aborting condition. Every invocation's own Invocation
		// closure must already honor groupCtx cancellation cooperatively.
		_ = group.Wait()

		stageFailed := false
		for _, o := range stageResults {
			results[o.RequestID] = o
			totalAttempted++
			if outcomeFailed(o) {
				totalFailed++
				stageFailed = true
			}
		}

		ratio := float64(totalFailed) / float64(totalAttempted)
		if stageFailed && s.StrictFailureHandling {
			aborted = true
		} else if ratio > s.failureRatioThreshold() {
			aborted = true
		}
	}

	if aborted {
		for _, id := range graph.order {
			if _, done := results[id]; !done {
				results[id] = Outcome{RequestID: id, Err: &tool.CancelledError{ToolName: id}}
			}
		}
	}

	ordered := make([]Outcome, 0, len(graph.order))
	for _, id := range graph.order {
		ordered = append(ordered, results[id])
	}
	return ordered, nil
}

func outcomeFailed(o Outcome) bool {
	return o.Err != nil || (o.Result != nil && !o.Result.Success())
}
