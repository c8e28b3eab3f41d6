package main

import (
	"github.com/corvyn/toolcore/pkg/builtin"
	"github.com/corvyn/toolcore/pkg/tool"
)

// buildRegistry registers every built-in tool. Callers that need a custom
// set (tests, embedding) should build a *tool.Registry directly instead.
func buildRegistry() (*tool.Registry, error) {
	registry := tool.NewRegistry()
	tools := []tool.Tool{
		builtin.NewReadTool(),
		builtin.NewWriteTool(),
		builtin.NewShellTool(),
		builtin.NewHTTPTool(),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
