// Package pipeline runs a single tool call through the fixed sequence of
// stages described in spec.md §9: Discovery, Validation, Permission,
// Confirmation, Execution, Formatting. Each stage returns an explicit
// StageOutcome instead of using exceptions or sentinel errors as control
// flow.
package pipeline

import "github.com/corvyn/toolcore/pkg/tool"

// OutcomeKind discriminates a stage's result.
type OutcomeKind int

const (
	// Continue means the stage succeeded; the pipeline proceeds to the
	// next stage.
	Continue OutcomeKind = iota
	// AbortError means the stage failed; the pipeline stops and returns
	// the carried error as a failed Result.
	AbortError
	// AbortResult means the stage itself produced a terminal Result
	// (e.g. a hook rewrote the output); the pipeline stops and returns it
	// without running later stages.
	AbortResult
)

// StageOutcome is what every pipeline stage returns.
type StageOutcome struct {
	Kind   OutcomeKind
	Err    tool.TaggedError
	Result *tool.Result
}

func continueOutcome() StageOutcome { return StageOutcome{Kind: Continue} }

func abortError(err tool.TaggedError) StageOutcome {
	return StageOutcome{Kind: AbortError, Err: err}
}

func abortResult(result *tool.Result) StageOutcome {
	return StageOutcome{Kind: AbortResult, Result: result}
}
