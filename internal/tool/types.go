// Package tool implements the tool registry and sandbox: manifest-described
// tools (native Go funcs, MCP-dispatched tools, and wasm stubs), capability
// validation at load time, and capability enforcement at call time via an
// embedded OPA policy.
package tool

// Kind is the closed set of ways a tool can be implemented and dispatched.
type Kind string

const (
	// KindNative tools run as in-process Go functions.
	KindNative Kind = "native"
	// KindWasm tools run inside a wasm sandbox. No wasm runtime is wired in
	// this repository; KindWasm tools load and validate but fail at
	// invocation time (see Registry.Invoke).
	KindWasm Kind = "wasm"
	// KindMCP tools are dispatched to an external MCP server.
	KindMCP Kind = "mcp"
)

// CapabilityKind is the closed set of permissions a tool may declare.
type CapabilityKind string

const (
	CapabilityFilesystem CapabilityKind = "filesystem"
	CapabilityNetwork    CapabilityKind = "network"
	CapabilityShell      CapabilityKind = "shell"
	CapabilityProcess    CapabilityKind = "process"
	CapabilityEnv        CapabilityKind = "env"
)

// Filesystem and network capabilities carry a mode; these are the closed
// sets of valid values for Capability.Mode.
const (
	ModeRead     = "read"
	ModeWrite    = "write"
	ModeExecute  = "execute"
	ModeOutbound = "outbound"
	ModeInbound  = "inbound"
)

// Capability is one declared permission. Mode and the Paths/Domains slices
// are only meaningful for the capability kinds that use them: Filesystem
// reads Mode+Paths, Network reads Mode+Domains, Shell/Process/Env read
// neither.
type Capability struct {
	Kind    CapabilityKind `json:"kind"`
	Mode    string         `json:"mode,omitempty"`
	Paths   []string       `json:"paths,omitempty"`
	Domains []string       `json:"domains,omitempty"`
}

// RuntimeConfig bounds the resources a single invocation may consume.
// FuelLimit is optional (wasm-only) and zero means unset.
type RuntimeConfig struct {
	MaxMemoryMB        uint32 `json:"max_memory_mb"`
	MaxExecutionTimeMS uint32 `json:"max_execution_time_ms"`
	FuelLimit          uint64 `json:"fuel_limit,omitempty"`
}

// Manifest describes one registerable tool.
type Manifest struct {
	Name           string            `json:"name"`
	Version        string            `json:"version"`
	Description    string            `json:"description"`
	Kind           Kind              `json:"type"`
	EntryPoint     string            `json:"entry_point"`
	Capabilities   []Capability      `json:"capabilities"`
	RuntimeConfig  RuntimeConfig     `json:"runtime_config"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	SupportsDryRun bool              `json:"supports_dry_run,omitempty"`
}

// Has reports whether the manifest declares a capability of kind k.
func (m *Manifest) Has(k CapabilityKind) bool {
	for _, c := range m.Capabilities {
		if c.Kind == k {
			return true
		}
	}
	return false
}

// Capability returns the first declared capability of kind k, if any.
func (m *Manifest) Capability(k CapabilityKind) (Capability, bool) {
	for _, c := range m.Capabilities {
		if c.Kind == k {
			return c, true
		}
	}
	return Capability{}, false
}

// Result is the outcome of one tool invocation.
type Result struct {
	Success         bool   `json:"success"`
	Output          string `json:"result"`
	ExitCode        int    `json:"exit_code"`
	RuntimeMS       int64  `json:"runtime_ms"`
	Platform        string `json:"platform"`
	Cwd             string `json:"cwd,omitempty"`
	StdoutTruncated bool   `json:"stdout_truncated"`
	StderrTruncated bool   `json:"stderr_truncated"`
	MaxOutputKB     int    `json:"max_output_kb"`
}
