package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvyn/toolcore/pkg/hook"
	"github.com/corvyn/toolcore/pkg/lock"
	"github.com/corvyn/toolcore/pkg/metrics"
	"github.com/corvyn/toolcore/pkg/permission"
	"github.com/corvyn/toolcore/pkg/pipeline"
	"github.com/corvyn/toolcore/pkg/tool"
	"github.com/corvyn/toolcore/pkg/tracing"
)

func newCallCommand() *cobra.Command {
	var (
		argsJSON    string
		rulesPath   string
		hooksPath   string
		mode        string
		workspace   string
		traceStderr bool
	)

	cmd := &cobra.Command{
		Use:   "call <tool> ",
		Short: "Run a single tool call through the six-stage pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolName := args[0]

			var rawArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &rawArgs); err != nil {
					return fmt.Errorf("invalid --args JSON: %w", err)
				}
			}

			registry, err := buildRegistry()
			if err != nil {
				return err
			}

			rules, err := loadRuleSet(rulesPath)
			if err != nil {
				return err
			}
			hooksCfg, err := loadHookConfig(hooksPath)
			if err != nil {
				return err
			}

			p := pipeline.New(
				registry,
				permission.NewChecker(rules),
				hook.NewEngine(hooksCfg),
				lock.NewManager(),
				pipeline.NewHuhConfirmer(),
				slog.New(slog.NewTextHandler(os.Stderr, nil)),
			)
			p.WithMetrics(metrics.NewCollector())

			if traceStderr {
				tp, err := tracing.NewProvider(os.Stderr)
				if err != nil {
					return fmt.Errorf("starting tracer: %w", err)
				}
				defer tracing.Shutdown(context.Background(), tp)
				p.WithTracer(tracing.Tracer(tp))
			}

			ec := tool.ExecutionContext{
				Context:        context.Background(),
				WorkspaceRoot:  workspace,
				PermissionMode: tool.PermissionMode(mode),
			}

			result := p.Execute(ec, tool.ToolCallRequest{ToolName: toolName, RawArgs: rawArgs})
			return printResult(result)
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "tool arguments as a JSON object")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to a permission rules YAML file")
	cmd.Flags().StringVar(&hooksPath, "hooks", "", "path to a hook config YAML file")
	cmd.Flags().StringVar(&mode, "mode", string(tool.ModeDefault), "permission mode: default, auto-edit, plan, yolo, spec")
	cmd.Flags().StringVar(&workspace, "workspace", ".", "workspace root for path-glob rules")
	cmd.Flags().BoolVar(&traceStderr, "trace", false, "write OpenTelemetry spans for this call to stderr as JSON")
	return cmd
}

func printResult(result *tool.Result) error {
	if result.Success() {
		fmt.Println(result.LLMContent)
		return nil
	}
	fmt.Fprintln(os.Stderr, result.Error.Error())
	os.Exit(1)
	return nil
}
