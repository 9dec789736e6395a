package tool

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/rego"

	agenterrors "github.com/magray-run/agentcore/internal/errors"
)

// capabilityPolicy is the embedded rego module evaluated on every tool
// invocation. It is intentionally small: one decision per
// {tool, capability, requested_action}, gated by the process's MAGRAY_*
// environment variables (§6). Modeled on Kocoro-lab-Shannon's
// data.shannon.task.decision query shape, retargeted from HTTP-request
// authorization to tool-capability authorization.
const capabilityPolicy = `
package agentcore.tool

path_in_roots {
	some root
	startswith(input.requested_action, input.env_fs_roots[root])
}

domain_allowed {
	some domain
	input.env_net_allow[domain] == input.requested_action
}

decision = {"allow": true, "reason": "env capability is ungated"} {
	input.capability_kind == "env"
} else = {"allow": true, "reason": "process capability is ungated"} {
	input.capability_kind == "process"
} else = {"allow": true, "reason": "shell allowed by MAGRAY_ALLOW_SHELL"} {
	input.capability_kind == "shell"
	input.env_allow_shell == true
} else = {"allow": false, "reason": "shell denied: MAGRAY_ALLOW_SHELL is not set"} {
	input.capability_kind == "shell"
} else = {"allow": false, "reason": "execute mode is never permitted in the sandbox"} {
	input.capability_kind == "filesystem"
	input.mode == "execute"
} else = {"allow": true, "reason": "filesystem sandbox is disabled"} {
	input.capability_kind == "filesystem"
	input.env_fs_sandbox == false
} else = {"allow": true, "reason": "path is within an allowed sandbox root"} {
	input.capability_kind == "filesystem"
	path_in_roots
} else = {"allow": false, "reason": "filesystem path is outside the sandbox roots"} {
	input.capability_kind == "filesystem"
} else = {"allow": true, "reason": "domain is in MAGRAY_NET_ALLOW"} {
	input.capability_kind == "network"
	domain_allowed
} else = {"allow": false, "reason": "domain is not in MAGRAY_NET_ALLOW"} {
	input.capability_kind == "network"
} else = {"allow": false, "reason": "no matching capability rule"} {
	true
}
`

// Input is the facts an invocation presents for capability evaluation.
type Input struct {
	Tool            string
	CapabilityKind  CapabilityKind
	Mode            string
	RequestedAction string
	EnvAllowShell   bool
	EnvNetAllow     []string
	EnvFSSandbox    bool
	EnvFSRoots      []string
}

// Decision is the policy evaluation result.
type Decision struct {
	Allow  bool
	Reason string
}

// Policy evaluates tool-capability requests against the embedded rego
// module. It is compiled once at construction and reused across calls.
type Policy struct {
	compiled rego.PreparedEvalQuery
}

// NewPolicy compiles the embedded capability policy.
func NewPolicy(ctx context.Context) (*Policy, error) {
	compiled, err := rego.New(
		rego.Query("data.agentcore.tool.decision"),
		rego.Module("capability.rego", capabilityPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("tool: compile capability policy: %w", err)
	}
	return &Policy{compiled: compiled}, nil
}

// EnvGates reads the MAGRAY_* environment gates that scope sandbox
// enforcement (§6): MAGRAY_ALLOW_SHELL, MAGRAY_NET_ALLOW,
// MAGRAY_FS_SANDBOX, MAGRAY_FS_ROOTS.
func EnvGates() Input {
	var domains []string
	if v := os.Getenv("MAGRAY_NET_ALLOW"); v != "" {
		domains = strings.Split(v, ",")
	}
	var roots []string
	if v := os.Getenv("MAGRAY_FS_ROOTS"); v != "" {
		roots = strings.Split(v, ",")
	}
	return Input{
		EnvAllowShell: os.Getenv("MAGRAY_ALLOW_SHELL") == "1" || os.Getenv("MAGRAY_ALLOW_SHELL") == "true",
		EnvNetAllow:   domains,
		EnvFSSandbox:  os.Getenv("MAGRAY_FS_SANDBOX") != "0" && os.Getenv("MAGRAY_FS_SANDBOX") != "false",
		EnvFSRoots:    roots,
	}
}

// Evaluate checks whether in is permitted under the declared capability
// and the process's environment gates, returning a CapabilityDenied error
// when it is not.
func (p *Policy) Evaluate(ctx context.Context, in Input) (*Decision, error) {
	input := map[string]any{
		"tool":             in.Tool,
		"capability_kind":  string(in.CapabilityKind),
		"mode":             in.Mode,
		"requested_action": in.RequestedAction,
		"env_allow_shell":  in.EnvAllowShell,
		"env_net_allow":    in.EnvNetAllow,
		"env_fs_sandbox":   in.EnvFSSandbox,
		"env_fs_roots":     in.EnvFSRoots,
	}

	results, err := p.compiled.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("tool: evaluate capability policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return &Decision{Allow: false, Reason: "no policy result"}, nil
	}

	decision := &Decision{Reason: "no matching capability rule"}
	if valueMap, ok := results[0].Expressions[0].Value.(map[string]any); ok {
		if allow, ok := valueMap["allow"].(bool); ok {
			decision.Allow = allow
		}
		if reason, ok := valueMap["reason"].(string); ok {
			decision.Reason = reason
		}
	}
	return decision, nil
}

// Enforce evaluates in and returns a CapabilityDenied AgentError if denied,
// nil otherwise.
func (p *Policy) Enforce(ctx context.Context, in Input) error {
	decision, err := p.Evaluate(ctx, in)
	if err != nil {
		return err
	}
	if !decision.Allow {
		return agenterrors.CapabilityDenied(in.Tool, string(in.CapabilityKind)).
			WithDetail("reason", decision.Reason)
	}
	return nil
}
