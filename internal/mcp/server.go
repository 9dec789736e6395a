package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/magray-run/agentcore/internal/record"
	"github.com/magray-run/agentcore/internal/tier"
	"github.com/magray-run/agentcore/internal/tool"
	"github.com/magray-run/agentcore/pkg/version"
)

// Server is the MCP server that bridges MCP clients (Claude Code, Cursor,
// or any other MCP host) to the memory engine and the tool orchestrator. It
// exposes exactly two tools: memory_search reads the tiered vector memory,
// tool_invoke dispatches to the tool registry.
type Server struct {
	mcp   *mcp.Server
	tiers *tier.Engine
	tools *tool.Registry

	logger *slog.Logger
	mu     sync.RWMutex
}

// MemorySearchInput defines the input schema for the memory_search tool.
type MemorySearchInput struct {
	Query    string   `json:"query" jsonschema:"the search query to execute"`
	Tiers    []string `json:"tiers,omitempty" jsonschema:"restrict to these tiers: interact, insights, assets; empty means all"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"maximum number of results, default 10"`
	MinScore float64  `json:"min_score,omitempty" jsonschema:"drop results scoring below this threshold"`
	Tags     []string `json:"tags,omitempty" jsonschema:"restrict to records carrying every listed tag"`
	Project  string   `json:"project,omitempty" jsonschema:"restrict to records scoped to this project"`
}

// MemorySearchOutput defines the output schema for the memory_search tool.
type MemorySearchOutput struct {
	Results []MemoryResultOutput `json:"results" jsonschema:"ranked search results"`
}

// MemoryResultOutput is a single rehydrated record returned by memory_search.
type MemoryResultOutput struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Text    string   `json:"text"`
	Tier    string   `json:"tier"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
	Project string   `json:"project,omitempty"`
}

// ToolInvokeInput defines the input schema for the tool_invoke tool.
type ToolInvokeInput struct {
	Name   string         `json:"name" jsonschema:"registered tool name to invoke"`
	Action string         `json:"action,omitempty" jsonschema:"requested action, for tools that support more than one"`
	Args   map[string]any `json:"args,omitempty" jsonschema:"arguments passed through to the tool"`
}

// ToolInvokeOutput defines the output schema for the tool_invoke tool.
type ToolInvokeOutput struct {
	Success   bool   `json:"success"`
	Output    string `json:"output"`
	ExitCode  int    `json:"exit_code"`
	RuntimeMS int64  `json:"runtime_ms"`
}

// NewServer creates a new MCP server over a tier engine and a tool registry.
func NewServer(tiers *tier.Engine, tools *tool.Registry) (*Server, error) {
	if tiers == nil {
		return nil, fmt.Errorf("mcp: tier engine is required")
	}
	if tools == nil {
		return nil, fmt.Errorf("mcp: tool registry is required")
	}

	s := &Server{
		tiers:  tiers,
		tools:  tools,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "agentcored",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// registerTools registers memory_search and tool_invoke with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_search",
		Description: "Search the tiered vector memory (interact, insights, assets) for records relevant to a query.",
	}, s.handleMemorySearch)
	s.logger.Debug("registered mcp tool", slog.String("name", "memory_search"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tool_invoke",
		Description: "Invoke a registered tool (native, MCP-backed, or Wasm) by name.",
	}, s.handleToolInvoke)
	s.logger.Debug("registered mcp tool", slog.String("name", "tool_invoke"))
}

func (s *Server) handleMemorySearch(ctx context.Context, _ *mcp.CallToolRequest, input MemorySearchInput) (
	*mcp.CallToolResult,
	MemorySearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, MemorySearchOutput{}, NewInvalidParamsError("query is required and must not be blank")
	}

	opts := tier.SearchOptions{
		TopK:     input.TopK,
		MinScore: input.MinScore,
		Tags:     input.Tags,
		Project:  input.Project,
	}
	for _, t := range input.Tiers {
		parsed, ok := parseTier(t)
		if !ok {
			return nil, MemorySearchOutput{}, NewInvalidParamsError(fmt.Sprintf("unknown tier %q", t))
		}
		opts.Tiers = append(opts.Tiers, parsed)
	}

	results, err := s.tiers.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, MemorySearchOutput{}, MapError(err)
	}

	output := MemorySearchOutput{Results: make([]MemoryResultOutput, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, toMemoryResultOutput(r))
	}
	return nil, output, nil
}

func (s *Server) handleToolInvoke(ctx context.Context, _ *mcp.CallToolRequest, input ToolInvokeInput) (
	*mcp.CallToolResult,
	ToolInvokeOutput,
	error,
) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ToolInvokeOutput{}, NewInvalidParamsError("name is required and must not be blank")
	}

	result, err := s.tools.Invoke(ctx, input.Name, input.Action, input.Args)
	if err != nil {
		return nil, ToolInvokeOutput{}, MapError(err)
	}

	return nil, ToolInvokeOutput{
		Success:   result.Success,
		Output:    result.Output,
		ExitCode:  result.ExitCode,
		RuntimeMS: result.RuntimeMS,
	}, nil
}

func toMemoryResultOutput(r tier.SearchResult) MemoryResultOutput {
	tags := make([]string, 0, len(r.Record.Tags))
	for tag := range r.Record.Tags {
		tags = append(tags, tag)
	}
	return MemoryResultOutput{
		ID:      r.Record.ID.String(),
		Kind:    r.Record.Kind,
		Text:    r.Record.Text,
		Tier:    r.Record.Tier.String(),
		Score:   r.Score,
		Tags:    tags,
		Project: r.Record.Project,
	}
}

func parseTier(s string) (record.Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "interact":
		return record.Interact, true
	case "insights":
		return record.Insights, true
	case "assets":
		return record.Assets, true
	default:
		return 0, false
	}
}

// Serve starts the server with the specified transport. Only stdio is
// implemented: agentcored is invoked as a subprocess by MCP hosts, not as a
// network-facing server.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting mcp server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("mcp: unknown transport %q (supported: stdio)", transport)
	}
}

// Close releases server resources. The underlying MCP server has none of
// its own; it stops when its Run context is canceled.
func (s *Server) Close() error {
	return nil
}
