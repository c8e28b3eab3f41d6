// Package result implements the Result Processor: it normalizes a batch of
// per-invocation outcomes into one summary the caller hands back to the
// model, merging successes, annotating partial failures, and aggregating a
// batch that failed outright.
package result

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corvyn/toolcore/pkg/tool"
)

// Item is one invocation's terminal outcome, keyed by request ID. Exactly
// one of Result (Result.Success() true) or Err is meaningful.
type Item struct {
	RequestID string
	Result    *tool.Result
	Err       error
}

// Status classifies a batch's overall outcome.
type Status string

const (
	AllSuccess     Status = "all_success"
	PartialSuccess Status = "partial_success"
	AllFailed      Status = "all_failed"
)

// Summary is the Result Processor's output for one batch.
type Summary struct {
	Status     Status
	Items      []Item
	Successes  []Item
	Failures   []Item
}

// Process classifies items and splits them into successes/failures,
// preserving input order within each group.
func Process(items []Item) *Summary {
	s := &Summary{Items: items}
	for _, item := range items {
		if item.Err == nil && item.Result != nil && item.Result.Success() {
			s.Successes = append(s.Successes, item)
		} else {
			s.Failures = append(s.Failures, item)
		}
	}

	switch {
	case len(s.Failures) == 0:
		s.Status = AllSuccess
	case len(s.Successes) == 0:
		s.Status = AllFailed
	default:
		s.Status = PartialSuccess
	}

	return s
}

// LLMContent renders the batch as the text handed back to the model: a
// structured union of {requestId, content} for an all-success batch, the
// same plus per-failure {requestId, error} entries for a partial batch, and
// a single aggregate error summary for an all-failed batch.
func (s *Summary) LLMContent() string {
	switch s.Status {
	case AllSuccess:
		return joinEntries(s.Items, false)
	case PartialSuccess:
		return joinEntries(s.Items, true)
	default:
		return s.AggregateError().Error()
	}
}

func joinEntries(items []Item, includeErrors bool) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		if item.Err == nil && item.Result != nil && item.Result.Success() {
			fmt.Fprintf(&b, "{requestId:%s, content:%q}", item.RequestID, item.Result.LLMContent)
			continue
		}
		if includeErrors {
			fmt.Fprintf(&b, "{requestId:%s, error:%q}", item.RequestID, errorMessage(item))
		}
	}
	return b.String()
}

func errorMessage(item Item) string {
	if item.Err != nil {
		return item.Err.Error()
	}
	if item.Result != nil && item.Result.Error != nil {
		return item.Result.Error.Error()
	}
	return "unknown error"
}

// AggregateError summarizes every failure in the batch into a single error,
// used when the whole batch failed outright.
func (s *Summary) AggregateError() error {
	if len(s.Failures) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		ids = append(ids, f.RequestID)
	}
	sort.Strings(ids)

	var messages []string
	for _, f := range s.Failures {
		messages = append(messages, fmt.Sprintf("%s: %s", f.RequestID, errorMessage(f)))
	}
	return fmt.Errorf("%d of %d invocations failed (%v): %s", len(s.Failures), len(s.Items), ids, strings.Join(messages, "; "))
}

// SatisfiesTaxonomy reports whether every failed item's error implements
// tool.TaggedError, the invariant spec.md §8 names: "every returned
// ToolResult satisfies: success=false ⇒ error present and error.kind in
// the taxonomy".
func (s *Summary) SatisfiesTaxonomy() bool {
	for _, f := range s.Failures {
		if f.Result != nil {
			if f.Result.Error == nil {
				return false
			}
			continue // Result.Error is already typed tool.TaggedError
		}
		if f.Err == nil {
			return false
		}
		if _, ok := f.Err.(tool.TaggedError); !ok {
			return false
		}
	}
	return true
}
