// Package mcpserver exposes internal/engine.Engine over the Model
// Context Protocol (§4.12, ambient addition): five tools — repomap,
// find, zoom, graph, impact — mirroring the CLI's command surface for
// LLM-agent callers that talk MCP instead of a shell.
//
// Grounded on standardbeagle-lci's internal/mcp/server.go (mcp.NewServer
// construction, AddTool registration, StdioTransport.Run) and
// codebase_intelligence_tools.go's jsonschema.Schema-per-tool shape; the
// tool set itself is generalized down to SPEC_FULL §4.12's five named
// tools instead of the teacher's much larger ad hoc tool catalogue, and
// every handler calls into internal/engine rather than internal/mcp's
// MasterIndex/search/semantic packages.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/pui/internal/engine"
	"github.com/standardbeagle/pui/internal/pack"
	"github.com/standardbeagle/pui/internal/version"
)

// Server wraps an *engine.Engine behind an MCP tool surface.
type Server struct {
	engine *engine.Engine
	mcp    *mcp.Server
}

// New builds a Server with all five tools registered, ready for Run.
func New(e *engine.Engine) *Server {
	s := &Server{
		engine: e,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "pui-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the MCP protocol over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "repomap",
		Description: "Generate a token-budgeted repository orientation map: directory summary, module dependencies, symbol index, and call hotspots.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"focus":      {Type: "string", Description: "Optional directory or path to bias the map toward"},
				"max_tokens": {Type: "integer", Description: "Token budget (default 8000, max 16000)"},
				"format":     {Type: "string", Description: "\"markdown\" (default) or \"json\""},
			},
		},
	}, s.handleRepoMap)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "find",
		Description: "Full-text search over indexed symbol names and qualified names.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Search query"},
				"limit": {Type: "integer", Description: "Maximum results (default 20)"},
			},
			Required: []string{"query"},
		},
	}, s.handleFind)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "zoom",
		Description: "Render one symbol's signature, doc, skeleton, callers/callees, and full source slice as a token-budgeted pack.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"symbol":     {Type: "string", Description: "A symbol ID, \"path:line\", or a symbol name"},
				"max_tokens": {Type: "integer", Description: "Token budget (default 4000, max 8000)"},
				"format":     {Type: "string", Description: "\"markdown\" (default) or \"json\""},
			},
			Required: []string{"symbol"},
		},
	}, s.handleZoom)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "graph",
		Description: "Traverse the call graph from a symbol: callers, callees, or both, up to a bounded depth.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"symbol":         {Type: "string", Description: "A symbol ID, \"path:line\", or a symbol name"},
				"depth":          {Type: "integer", Description: "Maximum hop count (default 1)"},
				"direction":      {Type: "string", Description: "\"in\", \"out\", or \"both\" (default \"out\")"},
				"min_confidence": {Type: "number", Description: "Drop edges below this confidence (default 0)"},
			},
			Required: []string{"symbol"},
		},
	}, s.handleGraph)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "impact",
		Description: "Analyze the blast radius of a change: upstream callers, downstream callees, affected tests, and a risk-ranked file list.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"files":      {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Changed file paths"},
				"git_diff":   {Type: "string", Description: "A git revision range, or \"working-tree\" for uncommitted changes"},
				"max_tokens": {Type: "integer", Description: "Token budget (default 6000, max 12000)"},
			},
		},
	}, s.handleImpact)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}}}, nil
}

func errorResult(op string, err error) (*mcp.CallToolResult, error) {
	res, marshalErr := jsonResult(map[string]any{
		"success":   false,
		"operation": op,
		"error":     err.Error(),
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	res.IsError = true
	return res, nil
}

type repoMapParams struct {
	Focus     string `json:"focus"`
	MaxTokens int    `json:"max_tokens"`
	Format    string `json:"format"`
}

func (s *Server) handleRepoMap(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p repoMapParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("repomap", fmt.Errorf("invalid parameters: %w", err))
	}
	out, err := s.engine.RepoMap(ctx, p.Focus, packOptions(p.MaxTokens, p.Format))
	if err != nil {
		return errorResult("repomap", err)
	}
	return jsonResult(out)
}

type findParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleFind(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p findParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("find", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
	results, err := s.engine.Find(ctx, p.Query, p.Limit)
	if err != nil {
		return errorResult("find", err)
	}
	return jsonResult(results)
}

type zoomParams struct {
	Symbol    string `json:"symbol"`
	MaxTokens int    `json:"max_tokens"`
	Format    string `json:"format"`
}

func (s *Server) handleZoom(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p zoomParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("zoom", fmt.Errorf("invalid parameters: %w", err))
	}
	out, err := s.engine.Zoom(ctx, p.Symbol, packOptions(p.MaxTokens, p.Format))
	if err != nil {
		return errorResult("zoom", err)
	}
	return jsonResult(out)
}

type graphParams struct {
	Symbol        string  `json:"symbol"`
	Depth         int     `json:"depth"`
	Direction     string  `json:"direction"`
	MinConfidence float64 `json:"min_confidence"`
}

func (s *Server) handleGraph(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p graphParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("graph", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Depth <= 0 {
		p.Depth = 1
	}
	sym, hops, err := s.engine.Graph(ctx, engine.GraphQuery{
		SymbolQuery:   p.Symbol,
		Direction:     p.Direction,
		MaxDepth:      p.Depth,
		MinConfidence: p.MinConfidence,
	})
	if err != nil {
		return errorResult("graph", err)
	}
	return jsonResult(map[string]any{"root": sym, "hops": hops})
}

type impactParams struct {
	Files     []string `json:"files"`
	GitDiff   string   `json:"git_diff"`
	MaxTokens int      `json:"max_tokens"`
}

func (s *Server) handleImpact(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p impactParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("impact", fmt.Errorf("invalid parameters: %w", err))
	}
	res, err := s.engine.Impact(ctx, p.Files, p.GitDiff, defaultImpactDepth)
	if err != nil {
		return errorResult("impact", err)
	}
	out, err := s.engine.ImpactPack(ctx, res, packOptions(p.MaxTokens, ""))
	if err != nil {
		return errorResult("impact", err)
	}
	return jsonResult(out)
}

// defaultImpactDepth bounds downstream traversal for MCP-driven impact
// calls; the CLI exposes the same knob as a flag (§6 leaves it
// unspecified for impact, so this matches the default of the CLI's
// impact --max-depth flag).
const defaultImpactDepth = 3

func packOptions(maxTokens int, format string) pack.Options {
	opts := pack.Options{MaxTokens: maxTokens}
	if format == string(pack.FormatJSON) {
		opts.Format = pack.FormatJSON
	}
	return opts
}
