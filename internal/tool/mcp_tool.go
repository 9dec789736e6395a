package tool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPDispatcher calls a tool exposed by an external MCP server, reached by
// spawning the manifest's entry_point as a subprocess and speaking MCP over
// its stdio — the client-side counterpart to internal/mcp.Server's
// mcp.NewServer usage.
type MCPDispatcher struct {
	implementation *mcp.Implementation
}

// NewMCPDispatcher builds a dispatcher that identifies itself to MCP
// servers as impl.
func NewMCPDispatcher(impl *mcp.Implementation) *MCPDispatcher {
	if impl == nil {
		impl = &mcp.Implementation{Name: "agentcore", Version: "0.1.0"}
	}
	return &MCPDispatcher{implementation: impl}
}

// Call spawns entryPoint, invokes toolName with args over the resulting
// MCP session, and returns the concatenated text content of the response.
func (d *MCPDispatcher) Call(ctx context.Context, entryPoint string, toolName string, args map[string]any) (string, error) {
	parts := strings.Fields(entryPoint)
	if len(parts) == 0 {
		return "", fmt.Errorf("mcp tool: empty entry_point")
	}

	client := mcp.NewClient(d.implementation, nil)
	transport := &mcp.CommandTransport{Command: exec.CommandContext(ctx, parts[0], parts[1:]...)}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return "", fmt.Errorf("mcp tool: connect to %s: %w", entryPoint, err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcp tool: call %s: %w", toolName, err)
	}

	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), nil
}
