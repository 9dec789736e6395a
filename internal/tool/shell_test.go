package tool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/magray-run/agentcore/internal/errors"
	"github.com/magray-run/agentcore/internal/config"
)

func TestShellExecTool_DryRunReturnsPreviewWithoutExecuting(t *testing.T) {
	// Given: a dry-run invocation of a destructive-looking command
	tool := ShellExecTool{}
	cfg := config.DefaultToolConfig()

	// When: it is executed
	result, err := tool.Execute(context.Background(), ShellInput{
		Command: "rm -rf /tmp/agentcore-shell-test-marker",
		DryRun:  true,
	}, cfg)

	// Then: it succeeds with a preview, no process ever ran
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.Output, "[dry-run]"))
	assert.Contains(t, result.Output, "rm -rf /tmp/agentcore-shell-test-marker")
}

func TestShellExecTool_CapturesStdoutOnSuccess(t *testing.T) {
	// Given: a command that writes to stdout and exits cleanly
	tool := ShellExecTool{}
	cfg := config.DefaultToolConfig()

	// When: it is executed
	result, err := tool.Execute(context.Background(), ShellInput{
		Command: "echo hello",
	}, cfg)

	// Then: success is true, exit code 0, output contains the text
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "hello")
}

func TestShellExecTool_NonZeroExitIsNotAnError(t *testing.T) {
	// Given: a command that exits nonzero
	tool := ShellExecTool{}
	cfg := config.DefaultToolConfig()

	// When: it is executed
	result, err := tool.Execute(context.Background(), ShellInput{
		Command: "exit 7",
	}, cfg)

	// Then: no Go error, but Success is false and ExitCode is captured
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 7, result.ExitCode)
}

func TestShellExecTool_TimeoutKillsChildAndReportsTimeout(t *testing.T) {
	// Given: a command that sleeps longer than its timeout
	tool := ShellExecTool{}
	cfg := config.DefaultToolConfig()

	// When: it is executed with a short timeout
	started := time.Now()
	_, err := tool.Execute(context.Background(), ShellInput{
		Command:   "sleep 5",
		TimeoutMS: 100,
	}, cfg)
	elapsed := time.Since(started)

	// Then: a timeout error is returned promptly, well before 5s
	require.Error(t, err)
	assert.Equal(t, agenterrors.KindTimeout, agenterrors.GetKind(err))
	assert.Less(t, elapsed, 2*time.Second)
}

func TestShellExecTool_TruncatesOutputPastMaxOutputKB(t *testing.T) {
	// Given: a command producing far more than a tiny output cap
	tool := ShellExecTool{}
	cfg := config.DefaultToolConfig()

	// When: it is executed with a 1KB cap
	result, err := tool.Execute(context.Background(), ShellInput{
		Command:     "head -c 100000 /dev/zero | tr '\\0' 'a'",
		MaxOutputKB: 1,
	}, cfg)

	// Then: output is capped and flagged truncated
	require.NoError(t, err)
	assert.True(t, result.StdoutTruncated)
	assert.LessOrEqual(t, len(result.Output), 1024+1)
}

func TestShellExecTool_RejectsEmptyCommand(t *testing.T) {
	// Given: an empty command string
	tool := ShellExecTool{}
	cfg := config.DefaultToolConfig()

	// When: it is executed
	_, err := tool.Execute(context.Background(), ShellInput{Command: "   "}, cfg)

	// Then: it is rejected as an invalid record, not run
	require.Error(t, err)
	assert.Equal(t, agenterrors.KindInvalidRecord, agenterrors.GetKind(err))
}
