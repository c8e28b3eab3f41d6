package hook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_NoMatchingHooksAllowsByDefault(t *testing.T) {
	e := NewEngine(Config{})
	agg := e.Fire(context.Background(), "tu-1", PreToolUse, CallInfo{ToolName: "Bash"}, Input{})
	assert.Equal(t, DecisionAllow, agg.Decision)
	assert.False(t, agg.Denied)
}

func TestEngine_FiresMatchingHookAndDenies(t *testing.T) {
	cfg := Config{Entries: []Entry{
		{
			Command: `echo "no git push" >&2; exit 2`,
			Events:  []Event{PreToolUse},
			Matcher: Matcher{ToolNames: []string{"Bash"}},
		},
	}}
	e := NewEngine(cfg)
	agg := e.Fire(context.Background(), "tu-1", PreToolUse, CallInfo{ToolName: "Bash"}, Input{})
	assert.True(t, agg.Denied)
	assert.Contains(t, agg.Reason, "no git push")
}

func TestEngine_SkipsNonMatchingHooks(t *testing.T) {
	cfg := Config{Entries: []Entry{
		{
			Command: `exit 2`,
			Events:  []Event{PreToolUse},
			Matcher: Matcher{ToolNames: []string{"Edit"}},
		},
	}}
	e := NewEngine(cfg)
	agg := e.Fire(context.Background(), "tu-1", PreToolUse, CallInfo{ToolName: "Bash"}, Input{})
	assert.False(t, agg.Denied)
}

func TestEngine_GuardPreventsDoubleFireAcrossRetries(t *testing.T) {
	cfg := Config{Entries: []Entry{
		{
			Command: `echo '{"hookSpecificOutput":{"permissionDecision":"allow"}}'`,
			Events:  []Event{PreToolUse},
		},
	}}
	e := NewEngine(cfg)

	first := e.Fire(context.Background(), "tu-1", PreToolUse, CallInfo{ToolName: "Bash"}, Input{})
	second := e.Fire(context.Background(), "tu-1", PreToolUse, CallInfo{ToolName: "Bash"}, Input{})

	require.Equal(t, first.Decision, second.Decision)
}
