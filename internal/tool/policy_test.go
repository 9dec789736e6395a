package tool

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(context.Background())
	require.NoError(t, err)
	return p
}

func TestPolicy_DeniesShellByDefault(t *testing.T) {
	// Given: a compiled policy and no MAGRAY_ALLOW_SHELL override
	p := newTestPolicy(t)
	os.Unsetenv("MAGRAY_ALLOW_SHELL")

	// When: a shell capability is evaluated
	decision, err := p.Evaluate(context.Background(), Input{
		Tool:           "shell_exec",
		CapabilityKind: CapabilityShell,
		EnvAllowShell:  false,
	})

	// Then: it is denied
	require.NoError(t, err)
	assert.False(t, decision.Allow)
}

func TestPolicy_AllowsShellWhenEnvGateSet(t *testing.T) {
	// Given: a compiled policy with the shell gate enabled
	p := newTestPolicy(t)

	// When: a shell capability is evaluated
	decision, err := p.Evaluate(context.Background(), Input{
		Tool:           "shell_exec",
		CapabilityKind: CapabilityShell,
		EnvAllowShell:  true,
	})

	// Then: it is allowed
	require.NoError(t, err)
	assert.True(t, decision.Allow)
}

func TestPolicy_DeniesFilesystemExecuteModeUnconditionally(t *testing.T) {
	// Given: a compiled policy
	p := newTestPolicy(t)

	// When: an execute-mode filesystem capability is evaluated, sandbox off
	decision, err := p.Evaluate(context.Background(), Input{
		Tool:           "fs_tool",
		CapabilityKind: CapabilityFilesystem,
		Mode:           ModeExecute,
		EnvFSSandbox:   false,
	})

	// Then: it is denied regardless of the sandbox toggle
	require.NoError(t, err)
	assert.False(t, decision.Allow)
}

func TestPolicy_AllowsFilesystemWriteWithinSandboxRoot(t *testing.T) {
	// Given: a compiled policy with sandbox enabled and one allowed root
	p := newTestPolicy(t)

	// When: a write under that root is evaluated
	decision, err := p.Evaluate(context.Background(), Input{
		Tool:            "fs_tool",
		CapabilityKind:  CapabilityFilesystem,
		Mode:            ModeWrite,
		EnvFSSandbox:    true,
		EnvFSRoots:      []string{"/tmp/sandbox"},
		RequestedAction: "/tmp/sandbox/out.txt",
	})

	// Then: it is allowed
	require.NoError(t, err)
	assert.True(t, decision.Allow)
}

func TestPolicy_DeniesFilesystemWriteOutsideSandboxRoots(t *testing.T) {
	// Given: a compiled policy with sandbox enabled and one allowed root
	p := newTestPolicy(t)

	// When: a write outside that root is evaluated
	decision, err := p.Evaluate(context.Background(), Input{
		Tool:            "fs_tool",
		CapabilityKind:  CapabilityFilesystem,
		Mode:            ModeWrite,
		EnvFSSandbox:    true,
		EnvFSRoots:      []string{"/tmp/sandbox"},
		RequestedAction: "/etc/passwd",
	})

	// Then: it is denied
	require.NoError(t, err)
	assert.False(t, decision.Allow)
}

func TestPolicy_AllowsNetworkDomainInAllowlist(t *testing.T) {
	// Given: a compiled policy with one allowed domain
	p := newTestPolicy(t)

	// When: that domain is requested
	decision, err := p.Evaluate(context.Background(), Input{
		Tool:            "net_tool",
		CapabilityKind:  CapabilityNetwork,
		EnvNetAllow:     []string{"api.example.com"},
		RequestedAction: "api.example.com",
	})

	// Then: it is allowed
	require.NoError(t, err)
	assert.True(t, decision.Allow)
}

func TestPolicy_DeniesNetworkDomainNotInAllowlist(t *testing.T) {
	// Given: a compiled policy with one allowed domain
	p := newTestPolicy(t)

	// When: a different domain is requested
	decision, err := p.Evaluate(context.Background(), Input{
		Tool:            "net_tool",
		CapabilityKind:  CapabilityNetwork,
		EnvNetAllow:     []string{"api.example.com"},
		RequestedAction: "evil.example.com",
	})

	// Then: it is denied
	require.NoError(t, err)
	assert.False(t, decision.Allow)
}

func TestPolicy_Enforce_ReturnsCapabilityDeniedError(t *testing.T) {
	// Given: a compiled policy and a denied shell request
	p := newTestPolicy(t)

	// When: Enforce is called
	err := p.Enforce(context.Background(), Input{
		Tool:           "shell_exec",
		CapabilityKind: CapabilityShell,
		EnvAllowShell:  false,
	})

	// Then: a CapabilityDenied error is returned
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability_denied")
}
