package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvyn/toolcore/pkg/hook"
	"github.com/corvyn/toolcore/pkg/lock"
	"github.com/corvyn/toolcore/pkg/mcpsurface"
	"github.com/corvyn/toolcore/pkg/metrics"
	"github.com/corvyn/toolcore/pkg/permission"
	"github.com/corvyn/toolcore/pkg/pipeline"
	"github.com/corvyn/toolcore/pkg/tool"
)

func newServeMCPCommand() *cobra.Command {
	var (
		rulesPath   string
		hooksPath   string
		mode        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Expose the tool registry as an MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
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
				pipeline.AutoRejecter{},
				slog.New(slog.NewTextHandler(os.Stderr, nil)),
			)

			if metricsAddr != "" {
				collector := metrics.NewCollector()
				p.WithMetrics(collector)
				mux := http.NewServeMux()
				mux.Handle("/metrics", collector.Handler())
				go func() {
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						fmt.Fprintf(os.Stderr, "toolcore: metrics server stopped: %v\n", err)
					}
				}()
			}

			adapter := &pipelineExecutor{pipeline: p, mode: tool.PermissionMode(mode)}
			srv := mcpsurface.NewServer("toolcore", version, registry, adapter, tool.PermissionMode(mode))

			fmt.Fprintln(os.Stderr, "toolcore: serving MCP over stdio")
			return srv.ServeStdio()
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to a permission rules YAML file")
	cmd.Flags().StringVar(&hooksPath, "hooks", "", "path to a hook config YAML file")
	cmd.Flags().StringVar(&mode, "mode", string(tool.ModeDefault), "permission mode: default, auto-edit, plan, yolo, spec")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics at this address (e.g. :9090)")
	return cmd
}

// pipelineExecutor adapts *pipeline.Pipeline to mcpsurface.Executor, binding
// the fixed permission mode an MCP session runs under (the interactive
// Confirmation stage never fires under serve-mcp since Pipeline was built
// with AutoRejecter{}, so an "ask" decision with no hook arbiter becomes a
// denial instead of blocking on stdio).
type pipelineExecutor struct {
	pipeline *pipeline.Pipeline
	mode     tool.PermissionMode
}

func (e *pipelineExecutor) Execute(ec tool.ExecutionContext, req tool.ToolCallRequest) *tool.Result {
	ec.PermissionMode = e.mode
	return e.pipeline.Execute(ec, req)
}
