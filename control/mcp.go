package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP exposes the pipeline controls as MCP tools so an agent can
// drive feedsift over stdio or streamable HTTP. Arguments arrive as
// json.RawMessage in req.Params.Arguments; tool-level failures go
// through result.SetError, protocol errors are returned.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerStatsTool(srv)
	s.registerAnalyzeTool(srv)
	s.registerToggleTool(srv)
	s.registerUnfollowTool(srv)
	s.registerConsoleTool(srv)
}

func inputSchema(properties map[string]any, required []string) json.RawMessage {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("control: marshal input schema: %v", err))
	}
	return data
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		var res mcp.CallToolResult
		res.SetError(err)
		return &res, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res, nil
}

func (s *Server) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedsift_stats",
		Description: "Read the pipeline counters: items analyzed, items flagged, authors unfollowed.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := s.stats.GetStats(ctx)
		if err != nil {
			return errorResult(err)
		}
		return textResult(stats)
	})
}

func (s *Server) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedsift_analyze",
		Description: "Sweep the feed page and classify every item currently rendered.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := s.send(ctx, map[string]any{"action": "analyzeNow"})
		if err != nil {
			return errorResult(err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(resp)}},
		}, nil
	})
}

type toggleArgs struct {
	Setting string `json:"setting"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) registerToggleTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedsift_set_toggle",
		Description: "Flip a runtime toggle: debugMode, enableDetection, or autoUnfollow.",
		InputSchema: inputSchema(map[string]any{
			"setting": map[string]any{
				"type": "string",
				"enum": []string{"debugMode", "enableDetection", "autoUnfollow"},
			},
			"enabled": map[string]any{"type": "boolean"},
		}, []string{"setting", "enabled"}),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args toggleArgs
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return errorResult(fmt.Errorf("invalid arguments: %w", err))
		}
		act, ok := settingActions[args.Setting]
		if !ok {
			return errorResult(fmt.Errorf("unknown setting %q", args.Setting))
		}
		resp, err := s.send(ctx, map[string]any{"action": act, "enabled": args.Enabled})
		if err != nil {
			return errorResult(err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(resp)}},
		}, nil
	})
}

type unfollowArgs struct {
	AuthorID string `json:"authorId"`
}

func (s *Server) registerUnfollowTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedsift_unfollow",
		Description: "Unfollow an author by platform identifier. One attempt, no retry.",
		InputSchema: inputSchema(map[string]any{
			"authorId": map[string]any{"type": "string", "description": "Platform profile identifier"},
		}, []string{"authorId"}),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args unfollowArgs
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return errorResult(fmt.Errorf("invalid arguments: %w", err))
		}
		if args.AuthorID == "" {
			return errorResult(fmt.Errorf("authorId is required"))
		}
		resp, err := s.send(ctx, map[string]any{"action": "unfollow", "authorId": args.AuthorID})
		if err != nil {
			return errorResult(err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(resp)}},
		}, nil
	})
}

type consoleArgs struct {
	Limit int `json:"limit"`
}

func (s *Server) registerConsoleTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedsift_console",
		Description: "Read the debug console entries, oldest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max entries to return, 0 for all"},
		}, nil),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args consoleArgs
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Errorf("invalid arguments: %w", err))
			}
		}
		return textResult(map[string]any{
			"entries": s.console.Entries(args.Limit),
			"total":   s.console.Len(),
		})
	})
}
