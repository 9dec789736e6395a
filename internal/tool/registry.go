package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magray-run/agentcore/internal/config"
	agenterrors "github.com/magray-run/agentcore/internal/errors"
)

// NativeFunc is the in-process implementation behind a KindNative tool.
type NativeFunc func(ctx context.Context, args map[string]any) (*Result, error)

// registeredTool pairs a validated manifest with its dispatch target.
// Exactly one of native/mcpDispatcher is populated, selected by
// manifest.Kind; KindWasm tools have neither.
type registeredTool struct {
	manifest      *Manifest
	native        NativeFunc
	mcpDispatcher *MCPDispatcher
}

// Registry holds every loaded tool manifest plus its dispatch target, and
// enforces the capability policy on every invocation.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*registeredTool
	policy *Policy
	cfg    config.ToolConfig
}

// NewRegistry compiles the capability policy and returns an empty
// registry. Tools are added via RegisterNative/RegisterMCP/RegisterWasm.
func NewRegistry(ctx context.Context, cfg config.ToolConfig) (*Registry, error) {
	policy, err := NewPolicy(ctx)
	if err != nil {
		return nil, err
	}
	return &Registry{
		tools:  make(map[string]*registeredTool),
		policy: policy,
		cfg:    cfg,
	}, nil
}

// RegisterNative adds an in-process tool. The manifest must declare
// KindNative and must already be validated (ValidateManifest).
func (r *Registry) RegisterNative(m *Manifest, fn NativeFunc) error {
	if m.Kind != KindNative {
		return fmt.Errorf("tool: %q manifest kind %q is not native", m.Name, m.Kind)
	}
	if fn == nil {
		return fmt.Errorf("tool: %q native func is required", m.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[m.Name] = &registeredTool{manifest: m, native: fn}
	return nil
}

// RegisterMCP adds a tool dispatched to an external MCP server via d.
func (r *Registry) RegisterMCP(m *Manifest, d *MCPDispatcher) error {
	if m.Kind != KindMCP {
		return fmt.Errorf("tool: %q manifest kind %q is not mcp", m.Name, m.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[m.Name] = &registeredTool{manifest: m, mcpDispatcher: d}
	return nil
}

// RegisterWasm adds a wasm-kind tool's manifest without a runnable
// dispatch target. It loads and validates like any other manifest; only
// Invoke fails for it, since no wasm runtime is wired into this repo.
func (r *Registry) RegisterWasm(m *Manifest) error {
	if m.Kind != KindWasm {
		return fmt.Errorf("tool: %q manifest kind %q is not wasm", m.Name, m.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[m.Name] = &registeredTool{manifest: m}
	return nil
}

// Manifest returns the manifest registered under name.
func (r *Registry) Manifest(name string) (*Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return t.manifest, true
}

// requestedCapability maps a tool's declared capabilities to the single
// one that gates this call. Tools rarely declare more than one capability
// in this registry's usage; the first capability present in priority
// order (shell, filesystem, network, process, env) is the one enforced.
func requestedCapability(m *Manifest) (Capability, bool) {
	for _, kind := range []CapabilityKind{CapabilityShell, CapabilityFilesystem, CapabilityNetwork, CapabilityProcess, CapabilityEnv} {
		if c, ok := m.Capability(kind); ok {
			return c, true
		}
	}
	return Capability{}, false
}

// Invoke enforces the capability policy for name, then dispatches to its
// native function, MCP server, or fails outright for a wasm tool.
// requestedAction is the capability-specific subject of the call (a
// filesystem path, a network domain, or the tool name itself for
// shell/process/env capabilities).
func (r *Registry) Invoke(ctx context.Context, name string, requestedAction string, args map[string]any) (*Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, agenterrors.NotFound(name)
	}

	if cap, ok := requestedCapability(t.manifest); ok {
		in := EnvGates()
		in.Tool = name
		in.CapabilityKind = cap.Kind
		in.Mode = cap.Mode
		in.RequestedAction = requestedAction
		if err := r.policy.Enforce(ctx, in); err != nil {
			slog.Warn("tool: capability denied",
				slog.String("tool", name),
				slog.String("capability", string(cap.Kind)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
	}

	switch t.manifest.Kind {
	case KindNative:
		runCtx, cancel := context.WithTimeout(ctx, stepTimeout(t.manifest, r.cfg))
		defer cancel()
		return t.native(runCtx, args)
	case KindMCP:
		out, err := t.mcpDispatcher.Call(ctx, t.manifest.EntryPoint, name, args)
		if err != nil {
			return nil, err
		}
		return &Result{Success: true, Output: out}, nil
	case KindWasm:
		return nil, fmt.Errorf("tool: %q is a wasm tool, but no wasm runtime is wired into this build", name)
	default:
		return nil, fmt.Errorf("tool: %q has unknown kind %q", name, t.manifest.Kind)
	}
}

func stepTimeout(m *Manifest, cfg config.ToolConfig) time.Duration {
	if m.RuntimeConfig.MaxExecutionTimeMS > 0 {
		return time.Duration(m.RuntimeConfig.MaxExecutionTimeMS) * time.Millisecond
	}
	return cfg.DefaultTimeout
}
