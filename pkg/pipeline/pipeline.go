package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/corvyn/toolcore/pkg/hook"
	"github.com/corvyn/toolcore/pkg/lock"
	"github.com/corvyn/toolcore/pkg/metrics"
	"github.com/corvyn/toolcore/pkg/permission"
	"github.com/corvyn/toolcore/pkg/tool"
)

// Pipeline wires the Tool Registry, Permission Checker, Hook Engine, and
// File Lock Manager into the fixed six-stage call flow.
type Pipeline struct {
	Registry     *tool.Registry
	Permission   *permission.Checker
	Hooks        *hook.Engine
	Locks        *lock.Manager
	Confirmation ConfirmationHandler
	Logger       *slog.Logger
	Tracer       trace.Tracer
	Metrics      *metrics.Collector
}

// New returns a Pipeline. A nil Logger defaults to slog.Default(); a nil
// Confirmation defaults to AutoRejecter (fail closed). Tracer/Metrics are
// optional: a nil Tracer uses the no-op tracer, a nil Metrics disables
// recording.
func New(registry *tool.Registry, checker *permission.Checker, hooks *hook.Engine, locks *lock.Manager, confirmation ConfirmationHandler, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if confirmation == nil {
		confirmation = AutoRejecter{}
	}
	return &Pipeline{
		Registry: registry, Permission: checker, Hooks: hooks, Locks: locks,
		Confirmation: confirmation, Logger: logger, Tracer: trace.NewNoopTracerProvider().Tracer(""),
	}
}

// WithTracer attaches a tracer for per-call spans.
func (p *Pipeline) WithTracer(tracer trace.Tracer) *Pipeline {
	p.Tracer = tracer
	return p
}

// WithMetrics attaches a metrics collector for per-call counters.
func (p *Pipeline) WithMetrics(m *metrics.Collector) *Pipeline {
	p.Metrics = m
	return p
}

// Execute runs req through every stage in order and returns its terminal
// Result. Execute never returns a (nil, nil) pair: on failure it returns a
// non-nil *tool.Result with Error set, matching the "exactly one of
// llmContent or error" invariant.
func (p *Pipeline) Execute(ec tool.ExecutionContext, req tool.ToolCallRequest) *tool.Result {
	toolUseID := req.ID
	if toolUseID == "" {
		toolUseID = uuid.NewString()
	}

	tracer := p.Tracer
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("")
	}
	spanCtx, span := tracer.Start(ec.Context, "toolcore.pipeline.execute",
		trace.WithAttributes(attribute.String("tool.name", req.ToolName), attribute.String("tool_use_id", toolUseID)))
	ec.Context = spanCtx
	defer span.End()

	result := p.run(ec, toolUseID, req)

	if result != nil && !result.Success() {
		span.SetStatus(codes.Error, "tool execution failed")
	}
	if p.Metrics != nil {
		p.Metrics.RecordCall(req.ToolName, result != nil && result.Success())
	}
	return result
}

func (p *Pipeline) run(ec tool.ExecutionContext, toolUseID string, req tool.ToolCallRequest) *tool.Result {
	t, args, outcome := p.discover(req)
	if outcome.Kind != Continue {
		return p.finish(outcome)
	}

	invocation, normalizedArgs, outcome := p.validate(t, args)
	if outcome.Kind != Continue {
		return p.finish(outcome)
	}

	invocation, normalizedArgs, needsConfirm, outcome := p.checkPermission(ec, t, toolUseID, req, invocation, normalizedArgs)
	if outcome.Kind != Continue {
		return p.finish(outcome)
	}

	outcome = p.confirm(ec, invocation, needsConfirm)
	if outcome.Kind != Continue {
		return p.finish(outcome)
	}

	result, outcome := p.execute(ec, t, invocation, normalizedArgs)
	if outcome.Kind != Continue {
		return p.finish(outcome)
	}

	return p.format(ec, toolUseID, t, req, result)
}

func (p *Pipeline) finish(outcome StageOutcome) *tool.Result {
	switch outcome.Kind {
	case AbortResult:
		return outcome.Result
	case AbortError:
		return tool.NewFailure(outcome.Err)
	default:
		return tool.NewFailure(&tool.ExecutionError{Cause: fmt.Errorf("pipeline: stage returned Continue with no result")})
	}
}

// discover resolves the requested tool name against the Registry.
func (p *Pipeline) discover(req tool.ToolCallRequest) (tool.Tool, map[string]any, StageOutcome) {
	t, ok := p.Registry.Get(req.ToolName)
	if !ok {
		return nil, nil, abortError(&tool.ToolNotFoundError{ToolName: req.ToolName})
	}
	return t, req.RawArgs, continueOutcome()
}

// validate applies the Schema Validator and then Tool.Build.
func (p *Pipeline) validate(t tool.Tool, args map[string]any) (tool.ToolInvocation, map[string]any, StageOutcome) {
	normalized, err := tool.Validate(t.Schema(), args)
	if err != nil {
		if ve, ok := err.(*tool.ValidationError); ok {
			return nil, nil, abortError(ve)
		}
		return nil, nil, abortError(&tool.ValidationError{Message: err.Error()})
	}

	invocation, err := t.Build(normalized)
	if err != nil {
		return nil, nil, abortError(&tool.ValidationError{Message: err.Error()})
	}
	return invocation, normalized, continueOutcome()
}

// checkPermission fires PreToolUse hooks, applies the rule-based decision,
// and (on "ask") defers to a PermissionRequest hook as final arbiter before
// the Confirmation stage ever sees the call.
// checkPermission returns, alongside the (possibly hook-rewritten)
// invocation/args and a StageOutcome, whether the Confirmation stage must
// run regardless of the invocation's own ShouldConfirm() opinion: spec.md
// §4.7 requires confirmation whenever the resolved permission decision was
// "ask", not only when the tool itself opts into it.
func (p *Pipeline) checkPermission(ec tool.ExecutionContext, t tool.Tool, toolUseID string, req tool.ToolCallRequest, invocation tool.ToolInvocation, args map[string]any) (tool.ToolInvocation, map[string]any, bool, StageOutcome) {
	sig := BuildSignature(t.Name(), args)
	callInfo := hook.CallInfo{ToolName: t.Name(), AffectedPaths: invocation.AffectedPaths()}
	if cmd, ok := args["command"].(string); ok {
		callInfo.Command = cmd
	}

	if p.Hooks != nil {
		preAgg := p.Hooks.Fire(ec.Context, toolUseID, hook.PreToolUse, callInfo, hook.Input{
			Event: hook.PreToolUse, ExecutionID: toolUseID, ToolName: t.Name(), Args: args,
			WorkspacePath: ec.WorkspaceRoot, PermissionMode: ec.PermissionMode, SessionID: ec.SessionID,
		})
		if preAgg.Denied {
			return nil, nil, false, abortError(&tool.PermissionDeniedError{ToolName: t.Name(), Reason: preAgg.Reason, DeniedBy: "hook"})
		}
		if preAgg.UpdatedInput != nil {
			revalidated, err := tool.Validate(t.Schema(), preAgg.UpdatedInput)
			if err != nil {
				return nil, nil, false, abortError(&tool.ValidationError{Message: err.Error()})
			}
			newInvocation, err := t.Build(revalidated)
			if err != nil {
				return nil, nil, false, abortError(&tool.ValidationError{Message: err.Error()})
			}
			invocation, args = newInvocation, revalidated
			sig = BuildSignature(t.Name(), args)
		}
		if preAgg.DecisionSet {
			if preAgg.Decision == hook.DecisionAsk {
				return p.resolveAsk(ec, toolUseID, t, invocation, args)
			}
			// An explicit hook "allow" still only binds for this hook; the
			// rule-based decision below can still raise it to "ask" or
			// "deny" (most-restrictive-wins across the whole stage).
		}
	}

	call := permission.Call{ToolName: t.Name(), Kind: t.Kind(), AffectedPaths: invocation.AffectedPaths(), Signature: sig}
	decision := p.Permission.Decide(call, ec.PermissionMode)

	switch decision {
	case permission.Deny:
		return nil, nil, false, abortError(&tool.PermissionDeniedError{ToolName: t.Name(), Reason: "denied by rule", DeniedBy: "rule"})
	case permission.Ask:
		return p.resolveAsk(ec, toolUseID, t, invocation, args)
	default:
		return invocation, args, false, continueOutcome()
	}
}

// resolveAsk gives a PermissionRequest hook the chance to arbitrate an
// "ask" decision before it reaches the interactive Confirmation stage. The
// returned bool is true unless a hook explicitly resolved the decision to
// "allow" — an unresolved ask (no hook answered, or a hook also said ask)
// still requires confirmation.
func (p *Pipeline) resolveAsk(ec tool.ExecutionContext, toolUseID string, t tool.Tool, invocation tool.ToolInvocation, args map[string]any) (tool.ToolInvocation, map[string]any, bool, StageOutcome) {
	if p.Hooks == nil {
		return invocation, args, true, continueOutcome()
	}
	callInfo := hook.CallInfo{ToolName: t.Name(), AffectedPaths: invocation.AffectedPaths()}
	agg := p.Hooks.Fire(ec.Context, toolUseID, hook.PermissionReq, callInfo, hook.Input{
		Event: hook.PermissionReq, ExecutionID: toolUseID, ToolName: t.Name(), Args: args,
		WorkspacePath: ec.WorkspaceRoot, PermissionMode: ec.PermissionMode, SessionID: ec.SessionID,
	})
	if agg.Denied {
		return nil, nil, false, abortError(&tool.PermissionDeniedError{ToolName: t.Name(), Reason: agg.Reason, DeniedBy: "hook"})
	}
	resolvedToAllow := agg.DecisionSet && agg.Decision == hook.DecisionAllow
	// An explicit hook allow resolves the ask; anything else (no hook
	// opinion, or a hook that itself said ask) still falls through to the
	// Confirmation stage.
	return invocation, args, !resolvedToAllow, continueOutcome()
}

// confirm runs the interactive Confirmation stage when the invocation
// itself requests it, or when the Permission stage's resolved decision was
// "ask" (spec.md §4.7) — either condition alone is enough, independent of
// whether the other also holds (e.g. a destructive edit the rules happen
// to allow still confirms via ShouldConfirm()).
func (p *Pipeline) confirm(ec tool.ExecutionContext, invocation tool.ToolInvocation, needsConfirm bool) StageOutcome {
	details := invocation.ShouldConfirm()
	if details == nil && !needsConfirm {
		return continueOutcome()
	}
	if details == nil {
		details = &tool.ConfirmationDetails{Title: "Confirm tool call", Description: "Permission check resolved to \"ask\""}
	}
	approved, err := p.Confirmation.Confirm(ec.Context, details)
	if err != nil {
		return abortError(&tool.ExecutionError{Cause: err})
	}
	if !approved {
		return abortError(&tool.ConfirmationRejectedError{})
	}
	return continueOutcome()
}

// execute wraps Tool.Execute with the File Lock Manager for every affected
// path of an Edit-kind tool. It fires no hooks: PostToolUse hooks run later
// in format for any Result the tool returned, and no PostToolUseFailure hook
// is fired when Execute returns an error.
func (p *Pipeline) execute(ec tool.ExecutionContext, t tool.Tool, invocation tool.ToolInvocation, args map[string]any) (*tool.Result, StageOutcome) {
	var result *tool.Result
	var execErr error

	runExecute := func(ctx context.Context) error {
		result, execErr = t.Execute(ctx, args)
		return nil
	}

	paths := invocation.AffectedPaths()
	if p.Locks != nil && t.Kind() == tool.KindEdit && len(paths) > 0 {
		for _, path := range paths {
			path := path
			wrapped := runExecute
			runExecute = func(ctx context.Context) error {
				return p.Locks.Run(ctx, path, func() error { return wrapped(ctx) })
			}
		}
	}

	if err := runExecute(ec.Context); err != nil {
		return nil, abortError(&tool.ExecutionError{ToolName: t.Name(), Cause: err})
	}

	if execErr != nil {
		if tagged, ok := execErr.(tool.TaggedError); ok {
			return nil, abortError(tagged)
		}
		return nil, abortError(&tool.ExecutionError{ToolName: t.Name(), Cause: execErr})
	}

	return result, continueOutcome()
}

// format applies PostToolUse hook rewrites (additionalContext,
// updatedOutput) to the terminal Result.
func (p *Pipeline) format(ec tool.ExecutionContext, toolUseID string, t tool.Tool, req tool.ToolCallRequest, result *tool.Result) *tool.Result {
	if p.Hooks == nil || result == nil {
		return result
	}

	callInfo := hook.CallInfo{ToolName: t.Name()}
	agg := p.Hooks.Fire(ec.Context, toolUseID+":post", hook.PostToolUse, callInfo, hook.Input{
		Event: hook.PostToolUse, ExecutionID: toolUseID, ToolName: t.Name(),
		WorkspacePath: ec.WorkspaceRoot, PermissionMode: ec.PermissionMode, SessionID: ec.SessionID,
	})

	if agg.UpdatedOutput != "" {
		result.LLMContent = agg.UpdatedOutput
	}
	if agg.AdditionalContext != "" {
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		result.Metadata["additionalContext"] = agg.AdditionalContext
	}
	if len(agg.Warnings) > 0 {
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		result.Metadata["hookWarnings"] = agg.Warnings
	}

	return result
}
