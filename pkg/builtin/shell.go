package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/corvyn/toolcore/pkg/tool"
)

// ShellTool executes a shell command via "sh -c" under a bounded timeout.
// Output is passed through an envSecretMasker seeded from the process
// environment so that a command echoing an API key or password doesn't
// leak it into transcripts or logs.
type ShellTool struct {
	timeout    time.Duration
	workingDir string
	masker     *envSecretMasker
}

// NewShellTool returns a ShellTool with a 30s default timeout.
func NewShellTool() *ShellTool {
	return &ShellTool{timeout: 30 * time.Second, masker: newEnvSecretMasker(os.Environ())}
}

func (t *ShellTool) WithTimeout(d time.Duration) *ShellTool {
	t.timeout = d
	return t
}

func (t *ShellTool) WithWorkingDir(dir string) *ShellTool {
	t.workingDir = dir
	return t
}

func (t *ShellTool) Name() string          { return "Bash" }
func (t *ShellTool) DisplayName() string   { return "Bash" }
func (t *ShellTool) Description() string   { return "Execute a shell command" }
func (t *ShellTool) Dependencies() []string { return nil }
func (t *ShellTool) ResourceTags() []string { return []string{"shell"} }
func (t *ShellTool) Kind() tool.Kind        { return tool.KindExecute }

func (t *ShellTool) Schema() *tool.Schema {
	return &tool.Schema{
		Type: "object",
		Properties: map[string]*tool.Property{
			"command": {Type: "string", Description: "the shell command to run"},
		},
		Required: []string{"command"},
	}
}

type shellInvocation struct {
	command string
}

func (i *shellInvocation) AffectedPaths() []string { return nil }

func (i *shellInvocation) ShouldConfirm() *tool.ConfirmationDetails {
	return &tool.ConfirmationDetails{
		Title:       "Run shell command",
		Description: i.command,
	}
}

func (t *ShellTool) Build(args map[string]any) (tool.ToolInvocation, error) {
	cmd, _ := args["command"].(string)
	if cmd == "" {
		return nil, fmt.Errorf("shell: command is required")
	}
	return &shellInvocation{command: cmd}, nil
}

// Execute runs the command, terminating it with SIGTERM then SIGKILL on
// timeout, mirroring the hook runner's shutdown sequence.
func (t *ShellTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	inv, err := t.Build(args)
	if err != nil {
		return nil, &tool.ValidationError{Message: err.Error()}
	}
	command := inv.(*shellInvocation).command

	execCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.Command("sh", "-c", command)
	if t.workingDir != "" {
		cmd.Dir = t.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: err}
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		return t.finish(cmd, stdout.String(), stderr.String(), err)
	case <-execCtx.Done():
		if cmd.Process != nil {
			cmd.Process.Signal(syscall.SIGTERM)
		}
		select {
		case <-waitErr:
		case <-time.After(2 * time.Second):
			if cmd.Process != nil {
				cmd.Process.Kill()
			}
			<-waitErr
		}
		return nil, &tool.TimeoutError{ToolName: t.Name(), BudgetMs: t.timeout.Milliseconds()}
	}
}

func (t *ShellTool) finish(cmd *exec.Cmd, stdout, stderr string, waitErr error) (*tool.Result, error) {
	exitCode := 0
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if waitErr != nil {
		return nil, &tool.ExecutionError{ToolName: t.Name(), Cause: waitErr}
	}

	stdout, stderr = t.masker.Mask(stdout), t.masker.Mask(stderr)

	metadata := map[string]any{"exit_code": exitCode, "stderr": stderr}
	if exitCode != 0 {
		res := tool.NewFailure(&tool.ExecutionError{
			ToolName:  t.Name(),
			Cause:     fmt.Errorf("command exited %d: %s", exitCode, stderr),
			Retryable: false,
		})
		res.Metadata = metadata
		return res, nil
	}
	return tool.NewSuccess(stdout, "", metadata), nil
}
