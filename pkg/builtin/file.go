// Package builtin provides the concrete tools registered into a Registry:
// file read/write, shell execution, and HTTP fetch.
package builtin

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/corvyn/toolcore/pkg/tool"
)

// ReadTool reads a file from the local filesystem.
type ReadTool struct {
	maxFileSize int64
}

// NewReadTool returns a ReadTool with a 10 MiB default read limit.
func NewReadTool() *ReadTool {
	return &ReadTool{maxFileSize: 10 * 1024 * 1024}
}

func (t *ReadTool) WithMaxFileSize(size int64) *ReadTool {
	t.maxFileSize = size
	return t
}

func (t *ReadTool) Name() string           { return "Read" }
func (t *ReadTool) DisplayName() string    { return "Read" }
func (t *ReadTool) Description() string    { return "Read a file from the local filesystem" }
func (t *ReadTool) Dependencies() []string { return nil }
func (t *ReadTool) ResourceTags() []string { return nil }
func (t *ReadTool) Kind() tool.Kind        { return tool.KindRead }

func (t *ReadTool) Schema() *tool.Schema {
	return &tool.Schema{
		Type: "object",
		Properties: map[string]*tool.Property{
			"file_path": {Type: "string", Description: "absolute or relative file path"},
			"max_lines": {Type: "integer", Description: "maximum number of lines to read"},
			"offset":    {Type: "integer", Description: "number of lines to skip before reading", Default: float64(0)},
		},
		Required: []string{"file_path"},
	}
}

type readInvocation struct {
	path     string
	maxLines int
	offset   int
}

func (i *readInvocation) AffectedPaths() []string              { return []string{i.path} }
func (i *readInvocation) ShouldConfirm() *tool.ConfirmationDetails { return nil }

func (t *ReadTool) Build(args map[string]any) (tool.ToolInvocation, error) {
	path, _ := args["file_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("Read: file_path is required")
	}
	return &readInvocation{path: path, maxLines: intArg(args, "max_lines"), offset: intArg(args, "offset")}, nil
}

// Execute reads the bound file, honoring the optional max_lines/offset window.
func (t *ReadTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	inv, err := t.Build(args)
	if err != nil {
		return nil, &tool.ValidationError{Message: err.Error()}
	}
	ri := inv.(*readInvocation)

	info, err := os.Stat(ri.path)
	if err != nil {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: err}
	}
	if info.Size() > t.maxFileSize {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: fmt.Errorf("file %s exceeds max size %d bytes", ri.path, t.maxFileSize)}
	}

	f, err := os.Open(ri.path)
	if err != nil {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: err}
	}
	defer f.Close()

	content, linesRead, err := readWithLimits(f, ri.maxLines, ri.offset)
	if err != nil {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: err}
	}

	metadata := map[string]any{"lines_shown": linesRead, "start_line": ri.offset}
	if ri.maxLines > 0 {
		if total, terr := countFileLines(ri.path); terr == nil {
			metadata["total_lines"] = total
			metadata["truncated"] = linesRead+ri.offset < total
		}
	}

	return tool.NewSuccess(content, "", metadata), nil
}

// WriteTool writes a file to the local filesystem.
type WriteTool struct{}

// NewWriteTool returns a WriteTool.
func NewWriteTool() *WriteTool { return &WriteTool{} }

func (t *WriteTool) Name() string           { return "Write" }
func (t *WriteTool) DisplayName() string    { return "Write" }
func (t *WriteTool) Description() string    { return "Write a file to the local filesystem" }
func (t *WriteTool) Dependencies() []string { return nil }
func (t *WriteTool) ResourceTags() []string { return nil }
func (t *WriteTool) Kind() tool.Kind        { return tool.KindEdit }

func (t *WriteTool) Schema() *tool.Schema {
	return &tool.Schema{
		Type: "object",
		Properties: map[string]*tool.Property{
			"file_path": {Type: "string", Description: "absolute or relative file path"},
			"content":   {Type: "string", Description: "content to write"},
		},
		Required: []string{"file_path", "content"},
	}
}

type writeInvocation struct {
	path    string
	content string
}

func (i *writeInvocation) AffectedPaths() []string { return []string{i.path} }

func (i *writeInvocation) ShouldConfirm() *tool.ConfirmationDetails {
	return &tool.ConfirmationDetails{
		Title:         "Write file",
		Description:   fmt.Sprintf("Overwrite %s", i.path),
		AffectedPaths: []string{i.path},
	}
}

func (t *WriteTool) Build(args map[string]any) (tool.ToolInvocation, error) {
	path, _ := args["file_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("Write: file_path is required")
	}
	content, _ := args["content"].(string)
	return &writeInvocation{path: path, content: content}, nil
}

// Execute writes the bound content to the bound path.
func (t *WriteTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	inv, err := t.Build(args)
	if err != nil {
		return nil, &tool.ValidationError{Message: err.Error()}
	}
	wi := inv.(*writeInvocation)

	if err := os.WriteFile(wi.path, []byte(wi.content), 0o644); err != nil {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: err}
	}
	return tool.NewSuccess(fmt.Sprintf("wrote %d bytes to %s", len(wi.content), wi.path), "", nil), nil
}

func intArg(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// readWithLimits reads a file with optional line-based limits for memory
// efficiency. maxLines <= 0 means unlimited.
func readWithLimits(r *os.File, maxLines, offset int) (string, int, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	current, read := 0, 0
	for scanner.Scan() {
		if offset > 0 && current < offset {
			current++
			continue
		}
		if maxLines > 0 && read >= maxLines {
			break
		}
		lines = append(lines, scanner.Text())
		read++
		current++
	}
	if err := scanner.Err(); err != nil {
		return "", 0, err
	}
	return strings.Join(lines, "\n"), read, nil
}

func countFileLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
