package hook

import "github.com/corvyn/toolcore/pkg/tool"

// Input is the JSON object written to a hook's stdin.
type Input struct {
	Event          Event          `json:"event"`
	ExecutionID    string         `json:"executionId"`
	Timestamp      string         `json:"timestamp"` // RFC3339
	SessionID      string         `json:"sessionId"`
	ToolName       string         `json:"toolName,omitempty"`
	Args           map[string]any `json:"args,omitempty"`
	WorkspacePath  string         `json:"workspacePath"`
	PermissionMode tool.PermissionMode `json:"permissionMode"`

	// UserPrompt is populated for UserPromptSubmit.
	UserPrompt string `json:"userPrompt,omitempty"`
}

// PermissionDecision is the arbitration value a hook can return for
// PreToolUse / PermissionRequest events.
type PermissionDecision string

const (
	DecisionAllow PermissionDecision = "allow"
	DecisionDeny  PermissionDecision = "deny"
	DecisionAsk   PermissionDecision = "ask"
)

// HookSpecificOutput carries the event-specific fields a hook can set. Not
// every field is meaningful for every event; see Event doc comments.
type HookSpecificOutput struct {
	PermissionDecision       PermissionDecision `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string             `json:"permissionDecisionReason,omitempty"`

	// UpdatedInput replaces the call's arguments (PreToolUse). Must be
	// revalidated against the tool's schema before use.
	UpdatedInput map[string]any `json:"updatedInput,omitempty"`

	// AdditionalContext is injected into the LLM-facing result (PostToolUse).
	AdditionalContext string `json:"additionalContext,omitempty"`

	// UpdatedOutput replaces the tool's output (PostToolUse).
	UpdatedOutput string `json:"updatedOutput,omitempty"`

	// Continue vetoes a Stop/SubagentStop/Compaction request when false.
	Continue *bool  `json:"continue,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// RewrittenPrompt replaces the user prompt (UserPromptSubmit).
	RewrittenPrompt string `json:"rewrittenPrompt,omitempty"`
}

// Output is the JSON object a hook writes to stdout on exit 0.
type Output struct {
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}
