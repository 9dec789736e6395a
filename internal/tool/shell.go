package tool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/magray-run/agentcore/internal/config"
	agenterrors "github.com/magray-run/agentcore/internal/errors"
)

// ShellInput is the parsed argument set for one shell_exec invocation,
// mirroring original_source's shell_ops.rs ShellExec parameters.
type ShellInput struct {
	Command    string
	Cwd        string
	TimeoutMS  int
	MaxOutputKB int
	DryRun     bool
}

// cappedBuffer accumulates up to limit bytes and silently drops anything
// past that, flagging Truncated instead of returning a write error —
// exec.Cmd treats a writer error as a process failure, which truncation
// is not.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			c.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// ShellExecTool is the one concrete native tool: it runs a command with an
// env-cleared (PATH-only) environment, a hard output byte cap, a timeout
// that kills the child on expiry, and a dry-run preview mode — reproducing
// original_source's crates/tools/src/shell_ops.rs ShellExec semantics.
type ShellExecTool struct{}

// Name is the manifest/registry name this tool is addressed by.
func (ShellExecTool) Name() string { return "shell_exec" }

// Execute runs input.Command, or previews it without side effects when
// input.DryRun is set. It returns a KindTimeout error if the command is
// killed for exceeding its deadline; a nonzero exit code is not an error,
// only a Success=false Result.
func (ShellExecTool) Execute(ctx context.Context, input ShellInput, cfg config.ToolConfig) (*Result, error) {
	command := strings.TrimSpace(input.Command)
	if command == "" {
		return nil, agenterrors.InvalidRecord(fmt.Errorf("shell_exec: command is required"))
	}

	maxOutputKB := cfg.MaxOutputKB
	if input.MaxOutputKB > 0 {
		maxOutputKB = input.MaxOutputKB
	}
	if maxOutputKB <= 0 {
		maxOutputKB = 256
	}

	if input.DryRun {
		return &Result{
			Success:     true,
			Output:      fmt.Sprintf("[dry-run] $ %s", command),
			Platform:    runtime.GOOS,
			Cwd:         input.Cwd,
			MaxOutputKB: maxOutputKB,
		}, nil
	}

	timeout := cfg.DefaultTimeout
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, shellName(), shellFlag(), command)
	cmd.Dir = input.Cwd
	cmd.Env = []string{"PATH=" + pathEnv()}

	stdout := &cappedBuffer{limit: maxOutputKB * 1024}
	stderr := &cappedBuffer{limit: maxOutputKB * 1024}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	err := cmd.Run()
	runtimeMS := time.Since(started).Milliseconds()

	result := &Result{
		Platform:        runtime.GOOS,
		Cwd:             input.Cwd,
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
		MaxOutputKB:     maxOutputKB,
		RuntimeMS:       runtimeMS,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return result, agenterrors.Timeout(runCtx.Err())
	}

	output := stdout.String()
	if stderr.String() != "" {
		output += stderr.String()
	}
	result.Output = output

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			result.Success = false
			return result, nil
		}
		return nil, fmt.Errorf("shell_exec: start command: %w", err)
	}

	result.ExitCode = 0
	result.Success = true
	return result, nil
}

func shellName() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "/bin/sh"
}

func shellFlag() string {
	if runtime.GOOS == "windows" {
		return "/C"
	}
	return "-c"
}

func pathEnv() string {
	return os.Getenv("PATH")
}
