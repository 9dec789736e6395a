package tool

import (
	"context"

	"github.com/magray-run/agentcore/internal/config"
)

// DefaultShellExecManifest is the manifest shell_exec registers itself
// under when no manifest file overrides it.
func DefaultShellExecManifest() *Manifest {
	return &Manifest{
		Name:           "shell_exec",
		Version:        "1.0.0",
		Description:    "Executes a shell command with a byte-capped, timeout-bounded, env-cleared sandbox.",
		Kind:           KindNative,
		EntryPoint:     "shell_exec",
		Capabilities:   []Capability{{Kind: CapabilityShell}},
		SupportsDryRun: true,
		RuntimeConfig: RuntimeConfig{
			MaxMemoryMB:        256,
			MaxExecutionTimeMS: 30_000,
		},
	}
}

// NewShellExecNativeFunc adapts ShellExecTool to the NativeFunc signature
// Registry.RegisterNative expects, parsing the loosely-typed args map the
// orchestrator's natural-language-to-tool-input step produces.
func NewShellExecNativeFunc(cfg config.ToolConfig) NativeFunc {
	tool := ShellExecTool{}
	return func(ctx context.Context, args map[string]any) (*Result, error) {
		input := ShellInput{
			Command: stringArg(args, "command"),
			Cwd:     stringArg(args, "cwd"),
			DryRun:  boolArg(args, "dry_run"),
		}
		if ms := intArg(args, "timeout_ms"); ms > 0 {
			input.TimeoutMS = ms
		}
		if kb := intArg(args, "max_output_kb"); kb > 0 {
			input.MaxOutputKB = kb
		}
		return tool.Execute(ctx, input, cfg)
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
