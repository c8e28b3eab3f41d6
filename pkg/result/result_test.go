package result

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corvyn/toolcore/pkg/tool"
)

func TestProcess_AllSuccess(t *testing.T) {
	items := []Item{
		{RequestID: "1", Result: tool.NewSuccess("a", "", nil)},
		{RequestID: "2", Result: tool.NewSuccess("b", "", nil)},
	}
	s := Process(items)
	assert.Equal(t, AllSuccess, s.Status)
	assert.Len(t, s.Successes, 2)
	assert.Empty(t, s.Failures)
	assert.Contains(t, s.LLMContent(), `{requestId:1, content:"a"}`)
}

func TestProcess_PartialSuccess(t *testing.T) {
	items := []Item{
		{RequestID: "1", Result: tool.NewSuccess("a", "", nil)},
		{RequestID: "2", Result: tool.NewFailure(&tool.ExecutionError{ToolName: "x"})},
	}
	s := Process(items)
	assert.Equal(t, PartialSuccess, s.Status)
	assert.Len(t, s.Successes, 1)
	assert.Len(t, s.Failures, 1)
	content := s.LLMContent()
	assert.Contains(t, content, "requestId:1")
	assert.Contains(t, content, "requestId:2")
}

func TestProcess_AllFailed(t *testing.T) {
	items := []Item{
		{RequestID: "1", Result: tool.NewFailure(&tool.ExecutionError{ToolName: "x"})},
		{RequestID: "2", Err: &tool.TimeoutError{ToolName: "y"}},
	}
	s := Process(items)
	assert.Equal(t, AllFailed, s.Status)
	assert.Empty(t, s.Successes)

	err := s.AggregateError()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 invocations failed")
}

func TestSummary_SatisfiesTaxonomy(t *testing.T) {
	ok := Process([]Item{
		{RequestID: "1", Result: tool.NewFailure(&tool.ValidationError{Field: "x"})},
	})
	assert.True(t, ok.SatisfiesTaxonomy())

	bad := Process([]Item{
		{RequestID: "1", Err: assertPlainError{}},
	})
	assert.False(t, bad.SatisfiesTaxonomy())
}

type assertPlainError struct{}

func (assertPlainError) Error() string { return "untagged" }
