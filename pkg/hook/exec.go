package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// Outcome is the result of running one hook entry.
type Outcome struct {
	Entry    Entry
	Output   *Output
	ExitCode int
	Stderr   string
	Err      error
	TimedOut bool
}

// Run executes a single hook entry: marshals input to JSON on stdin, runs
// the command under a timeout, and interprets the exit code per the
// protocol (0 success, 2 blocking error, other non-zero non-blocking,
// timeout reported separately so the caller can apply TimeoutBehavior).
func Run(ctx context.Context, entry Entry, input Input, defaultTimeout time.Duration) Outcome {
	timeout := entry.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return Outcome{Entry: entry, Err: fmt.Errorf("hook: marshal input: %w", err)}
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", entry.Command)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 2 * time.Second
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		return Outcome{Entry: entry, TimedOut: true, ExitCode: 124, Stderr: stderr.String()}
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Outcome{Entry: entry, Err: fmt.Errorf("hook: run %q: %w", entry.Command, runErr)}
		}
	}

	outcome := Outcome{Entry: entry, ExitCode: exitCode, Stderr: stderr.String()}

	if exitCode == 0 {
		var out Output
		if stdout.Len() > 0 {
			if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
				outcome.Err = fmt.Errorf("hook: parse output from %q: %w", entry.Command, err)
				return outcome
			}
		}
		outcome.Output = &out
	}

	return outcome
}
