package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_EmptyMatchesEverything(t *testing.T) {
	m := Matcher{}
	assert.True(t, m.Matches(CallInfo{ToolName: "Bash"}))
}

func TestMatcher_ToolNames(t *testing.T) {
	m := Matcher{ToolNames: []string{"Bash", "Read"}}
	assert.True(t, m.Matches(CallInfo{ToolName: "Bash"}))
	assert.False(t, m.Matches(CallInfo{ToolName: "Edit"}))
}

func TestMatcher_PathGlobs(t *testing.T) {
	m := Matcher{PathGlobs: []string{"**/*.go"}}
	assert.True(t, m.Matches(CallInfo{AffectedPaths: []string{"pkg/tool/registry.go"}}))
	assert.False(t, m.Matches(CallInfo{AffectedPaths: []string{"pkg/tool/README.md"}}))
}

func TestMatcher_CommandRegex(t *testing.T) {
	m := Matcher{CommandRegex: `^git push`}
	assert.True(t, m.Matches(CallInfo{Command: "git push origin main"}))
	assert.False(t, m.Matches(CallInfo{Command: "git status"}))
}

func TestMatcher_AllPredicatesMustMatch(t *testing.T) {
	m := Matcher{ToolNames: []string{"Bash"}, CommandRegex: `^git push`}
	assert.False(t, m.Matches(CallInfo{ToolName: "Bash", Command: "git status"}))
	assert.True(t, m.Matches(CallInfo{ToolName: "Bash", Command: "git push origin main"}))
}

func TestConfig_Selected(t *testing.T) {
	cfg := Config{Entries: []Entry{
		{Command: "echo a", Events: []Event{PreToolUse}, Matcher: Matcher{ToolNames: []string{"Bash"}}},
		{Command: "echo b", Events: []Event{PostToolUse}, Matcher: Matcher{ToolNames: []string{"Bash"}}},
		{Command: "echo c", Events: []Event{PreToolUse}, Matcher: Matcher{ToolNames: []string{"Read"}}},
	}}

	selected := cfg.Selected(PreToolUse, CallInfo{ToolName: "Bash"})
	assert.Len(t, selected, 1)
	assert.Equal(t, "echo a", selected[0].Command)
}
