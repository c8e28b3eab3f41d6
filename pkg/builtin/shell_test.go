package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellTool_SuccessfulCommand(t *testing.T) {
	s := NewShellTool()
	res, err := s.Execute(context.Background(), map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	require.True(t, res.Success())
	assert.Contains(t, res.LLMContent, "hello")
}

func TestShellTool_NonZeroExitIsFailureResult(t *testing.T) {
	s := NewShellTool()
	res, err := s.Execute(context.Background(), map[string]any{"command": "exit 3"})
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.Equal(t, 3, res.Metadata["exit_code"])
}

func TestShellTool_TimeoutKillsProcess(t *testing.T) {
	s := NewShellTool().WithTimeout(50 * time.Millisecond)
	_, err := s.Execute(context.Background(), map[string]any{"command": "sleep 5"})
	require.Error(t, err)
}

func TestShellTool_RequiresCommand(t *testing.T) {
	s := NewShellTool()
	_, err := s.Build(map[string]any{})
	assert.Error(t, err)
}
