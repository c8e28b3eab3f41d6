package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvyn/toolcore/pkg/hook"
	"github.com/corvyn/toolcore/pkg/lock"
	"github.com/corvyn/toolcore/pkg/permission"
	"github.com/corvyn/toolcore/pkg/tool"
)

type fakeInvocation struct {
	paths   []string
	confirm *tool.ConfirmationDetails
}

func (f *fakeInvocation) AffectedPaths() []string             { return f.paths }
func (f *fakeInvocation) ShouldConfirm() *tool.ConfirmationDetails { return f.confirm }

type fakeTool struct {
	name    string
	kind    tool.Kind
	schema  *tool.Schema
	confirm *tool.ConfirmationDetails
	paths   []string
	execute func(ctx context.Context, args map[string]any) (*tool.Result, error)
}

func (f *fakeTool) Name() string            { return f.name }
func (f *fakeTool) DisplayName() string     { return f.name }
func (f *fakeTool) Description() string     { return "fake" }
func (f *fakeTool) Kind() tool.Kind         { return f.kind }
func (f *fakeTool) Schema() *tool.Schema    { return f.schema }
func (f *fakeTool) Dependencies() []string  { return nil }
func (f *fakeTool) ResourceTags() []string  { return nil }

func (f *fakeTool) Build(args map[string]any) (tool.ToolInvocation, error) {
	return &fakeInvocation{paths: f.paths, confirm: f.confirm}, nil
}

func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if f.execute != nil {
		return f.execute(ctx, args)
	}
	return tool.NewSuccess("ok", "", nil), nil
}

func newFakeTool(name string, kind tool.Kind) *fakeTool {
	return &fakeTool{name: name, kind: kind, schema: &tool.Schema{Type: "object"}}
}

func newPipeline(t *testing.T, reg *tool.Registry, checker *permission.Checker, hooks *hook.Engine, confirmation ConfirmationHandler) *Pipeline {
	t.Helper()
	return New(reg, checker, hooks, lock.NewManager(), confirmation, nil)
}

func execCtx() tool.ExecutionContext {
	return tool.ExecutionContext{Context: context.Background(), SessionID: "s1", WorkspaceRoot: "/ws", PermissionMode: tool.ModeDefault}
}

func TestPipeline_SuccessfulReadDoesNotPrompt(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(newFakeTool("Read", tool.KindRead)))

	p := newPipeline(t, reg, permission.NewChecker(permission.RuleSet{}), hook.NewEngine(hook.Config{}), AutoRejecter{})
	result := p.Execute(execCtx(), tool.ToolCallRequest{ID: "r1", ToolName: "Read", RawArgs: map[string]any{}})

	assert.True(t, result.Success())
	assert.Equal(t, "ok", result.LLMContent)
}

func TestPipeline_ToolNotFound(t *testing.T) {
	reg := tool.NewRegistry()
	p := newPipeline(t, reg, permission.NewChecker(permission.RuleSet{}), hook.NewEngine(hook.Config{}), AutoRejecter{})

	result := p.Execute(execCtx(), tool.ToolCallRequest{ID: "r1", ToolName: "Missing"})
	require.False(t, result.Success())
	assert.Equal(t, tool.ErrorToolNotFound, result.Error.Kind())
}

func TestPipeline_RuleDenyStopsBeforeExecute(t *testing.T) {
	reg := tool.NewRegistry()
	executed := false
	bashTool := newFakeTool("Bash", tool.KindExecute)
	bashTool.execute = func(ctx context.Context, args map[string]any) (*tool.Result, error) {
		executed = true
		return tool.NewSuccess("ran", "", nil), nil
	}
	require.NoError(t, reg.Register(bashTool))

	checker := permission.NewChecker(permission.RuleSet{Rules: []permission.Rule{
		{Pattern: "Bash*", Decision: permission.Deny},
	}})
	p := newPipeline(t, reg, checker, hook.NewEngine(hook.Config{}), AutoRejecter{})

	result := p.Execute(execCtx(), tool.ToolCallRequest{ID: "r1", ToolName: "Bash", RawArgs: map[string]any{"command": "git push"}})

	require.False(t, result.Success())
	assert.Equal(t, tool.ErrorPermissionDenied, result.Error.Kind())
	assert.False(t, executed)
}

func TestPipeline_PreToolUseHookDeniesBeforeExecute(t *testing.T) {
	reg := tool.NewRegistry()
	executed := false
	bashTool := newFakeTool("Bash", tool.KindExecute)
	bashTool.execute = func(ctx context.Context, args map[string]any) (*tool.Result, error) {
		executed = true
		return tool.NewSuccess("ran", "", nil), nil
	}
	require.NoError(t, reg.Register(bashTool))

	hookCfg := hook.Config{Entries: []hook.Entry{
		{
			Command: `echo "no git push" >&2; exit 2`,
			Events:  []hook.Event{hook.PreToolUse},
			Matcher: hook.Matcher{ToolNames: []string{"Bash"}},
		},
	}}
	checker := permission.NewChecker(permission.RuleSet{Rules: []permission.Rule{{Pattern: "*", Decision: permission.Allow}}})
	p := newPipeline(t, reg, checker, hook.NewEngine(hookCfg), AutoRejecter{})

	result := p.Execute(execCtx(), tool.ToolCallRequest{ID: "r1", ToolName: "Bash", RawArgs: map[string]any{"command": "git push"}})

	require.False(t, result.Success())
	assert.Equal(t, tool.ErrorPermissionDenied, result.Error.Kind())
	assert.Contains(t, result.Error.Error(), "no git push")
	assert.False(t, executed)
}

func TestPipeline_PreToolUseHookRewritesInput(t *testing.T) {
	reg := tool.NewRegistry()
	readTool := newFakeTool("Read", tool.KindRead)
	var receivedPath string
	readTool.execute = func(ctx context.Context, args map[string]any) (*tool.Result, error) {
		receivedPath, _ = args["file_path"].(string)
		return tool.NewSuccess(receivedPath, "", nil), nil
	}
	require.NoError(t, reg.Register(readTool))

	hookCfg := hook.Config{Entries: []hook.Entry{
		{
			Command: `echo '{"hookSpecificOutput":{"permissionDecision":"allow","updatedInput":{"file_path":"/ws/b.txt"}}}'`,
			Events:  []hook.Event{hook.PreToolUse},
			Matcher: hook.Matcher{ToolNames: []string{"Read"}},
		},
	}}
	checker := permission.NewChecker(permission.RuleSet{})
	p := newPipeline(t, reg, checker, hook.NewEngine(hookCfg), AutoRejecter{})

	result := p.Execute(execCtx(), tool.ToolCallRequest{ID: "r1", ToolName: "Read", RawArgs: map[string]any{"file_path": "/ws/a.txt"}})

	require.True(t, result.Success())
	assert.Equal(t, "/ws/b.txt", receivedPath)
	assert.Equal(t, "/ws/b.txt", result.LLMContent)
}

func TestPipeline_InvocationConfirmationRejected(t *testing.T) {
	reg := tool.NewRegistry()
	editTool := newFakeTool("Edit", tool.KindEdit)
	editTool.confirm = &tool.ConfirmationDetails{Title: "Delete file", Description: "this removes the file"}
	require.NoError(t, reg.Register(editTool))

	checker := permission.NewChecker(permission.RuleSet{Rules: []permission.Rule{{Pattern: "*", Decision: permission.Allow}}})
	p := newPipeline(t, reg, checker, hook.NewEngine(hook.Config{}), AutoRejecter{})

	result := p.Execute(execCtx(), tool.ToolCallRequest{ID: "r1", ToolName: "Edit", RawArgs: map[string]any{}})

	require.False(t, result.Success())
	assert.Equal(t, tool.ErrorConfirmationRejected, result.Error.Kind())
}

func TestPipeline_InvocationConfirmationApproved(t *testing.T) {
	reg := tool.NewRegistry()
	editTool := newFakeTool("Edit", tool.KindEdit)
	editTool.confirm = &tool.ConfirmationDetails{Title: "Delete file"}
	require.NoError(t, reg.Register(editTool))

	checker := permission.NewChecker(permission.RuleSet{Rules: []permission.Rule{{Pattern: "*", Decision: permission.Allow}}})
	p := newPipeline(t, reg, checker, hook.NewEngine(hook.Config{}), AutoApprover{})

	result := p.Execute(execCtx(), tool.ToolCallRequest{ID: "r1", ToolName: "Edit", RawArgs: map[string]any{}})
	assert.True(t, result.Success())
}

func TestPipeline_FileLockSerializesEditCalls(t *testing.T) {
	reg := tool.NewRegistry()
	var order []int
	editTool := newFakeTool("Edit", tool.KindEdit)
	editTool.paths = []string{"/ws/x.txt"}
	editTool.execute = func(ctx context.Context, args map[string]any) (*tool.Result, error) {
		time.Sleep(5 * time.Millisecond)
		n, _ := args["n"].(float64)
		order = append(order, int(n))
		return tool.NewSuccess("ok", "", nil), nil
	}
	require.NoError(t, reg.Register(editTool))

	checker := permission.NewChecker(permission.RuleSet{Rules: []permission.Rule{{Pattern: "*", Decision: permission.Allow}}})
	p := newPipeline(t, reg, checker, hook.NewEngine(hook.Config{}), AutoApprover{})

	done := make(chan struct{}, 2)
	go func() {
		p.Execute(execCtx(), tool.ToolCallRequest{ID: "1", ToolName: "Edit", RawArgs: map[string]any{"n": float64(1)}})
		done <- struct{}{}
	}()
	time.Sleep(2 * time.Millisecond)
	go func() {
		p.Execute(execCtx(), tool.ToolCallRequest{ID: "2", ToolName: "Edit", RawArgs: map[string]any{"n": float64(2)}})
		done <- struct{}{}
	}()
	<-done
	<-done

	assert.Equal(t, []int{1, 2}, order)
}
