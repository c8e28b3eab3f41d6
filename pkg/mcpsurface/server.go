// Package mcpsurface exposes a Tool Registry's declarations as an MCP
// server, bridging inbound MCP tool calls into pipeline.Pipeline.Execute
// invocations.
package mcpsurface

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/corvyn/toolcore/pkg/pipeline"
	"github.com/corvyn/toolcore/pkg/tool"
)

// Executor runs one tool call through the execution core. pipeline.Pipeline
// satisfies this.
type Executor interface {
	Execute(ec tool.ExecutionContext, req tool.ToolCallRequest) *tool.Result
}

// Server wraps an MCP server exposing every tool in a Registry.
type Server struct {
	mcpServer *server.MCPServer
	registry  *tool.Registry
	executor  Executor
	mode      tool.PermissionMode
}

// NewServer builds an MCP server with one MCP tool per registered tool,
// each routed through executor.Execute.
func NewServer(name, version string, registry *tool.Registry, executor Executor, mode tool.PermissionMode) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version),
		registry:  registry,
		executor:  executor,
		mode:      mode,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	for _, decl := range s.registry.ListDeclarations() {
		mcpTool := mcp.Tool{
			Name:        decl.Name,
			Description: decl.Description,
			InputSchema: schemaToInputSchema(decl.Schema),
		}
		s.mcpServer.AddTool(mcpTool, s.handlerFor(decl.Name))
	}
}

func schemaToInputSchema(schema *tool.Schema) mcp.ToolInputSchema {
	input := mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}}
	if schema == nil {
		return input
	}
	for name, prop := range schema.Properties {
		entry := map[string]any{"type": prop.Type}
		if prop.Description != "" {
			entry["description"] = prop.Description
		}
		if len(prop.Enum) > 0 {
			entry["enum"] = prop.Enum
		}
		if prop.Default != nil {
			entry["default"] = prop.Default
		}
		input.Properties[name] = entry
	}
	input.Required = schema.Required
	return input
}

// handlerFor returns an MCP tool handler that bridges into executor.Execute.
func (s *Server) handlerFor(toolName string) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		ec := tool.ExecutionContext{
			Context:        ctx,
			PermissionMode: s.mode,
		}
		result := s.executor.Execute(ec, tool.ToolCallRequest{ToolName: toolName, RawArgs: args})

		if !result.Success() {
			msg := "tool execution failed"
			if result.Error != nil {
				msg = result.Error.Error()
			}
			return mcp.NewToolResultError(msg), nil
		}
		return textResult(result), nil
	}
}

func textResult(result *tool.Result) *mcp.CallToolResult {
	if result.LLMContent != "" {
		return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(result.LLMContent)}}
	}
	if len(result.Metadata) > 0 {
		data, err := json.MarshalIndent(result.Metadata, "", "  ")
		if err == nil {
			return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(data))}}
		}
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("%v", result))}}
}

// ServeStdio runs the MCP server over stdio until the context is cancelled
// or the transport closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
