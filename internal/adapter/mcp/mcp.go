// Package mcp exposes the memory engine as an MCP server over stdio
// (mark3labs/mcp-go), grounded on the teacher's inclusion of mcp-go in its
// dependency stack — the teacher ships a generated MCP client under mcp/;
// this package instead uses the library's server side, the natural wiring
// an agent-facing memory engine needs.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/memorai/memoraid/internal/engine"
	"github.com/memorai/memoraid/internal/model"
)

const (
	serverName    = "memoraid"
	serverVersion = "0.1.0"
)

// NewServer builds the MCP server, registering remember/recall/forget/
// context/stats as tools.
func NewServer(eng *engine.Engine) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion)

	s.AddTool(mcp.NewTool("remember",
		mcp.WithDescription("Persist a new memory for later recall."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The memory content to store.")),
		mcp.WithString("tenant_id", mcp.Required(), mcp.Description("Tenant isolation key.")),
		mcp.WithString("agent_id", mcp.Description("Optional agent scope within the tenant.")),
		mcp.WithString("type", mcp.Description("Optional memory type override; classified automatically when omitted.")),
	), rememberHandler(eng))

	s.AddTool(mcp.NewTool("recall",
		mcp.WithDescription("Search memories by semantic and keyword relevance."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query.")),
		mcp.WithString("tenant_id", mcp.Required()),
		mcp.WithString("agent_id", mcp.Description("Optional agent scope filter.")),
		mcp.WithString("type", mcp.Description("Optional memory type filter.")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return.")),
		mcp.WithNumber("threshold", mcp.Description("Minimum merged score to include a result.")),
		mcp.WithBoolean("time_decay", mcp.Description("Apply temporal confidence decay to scores.")),
	), recallHandler(eng))

	s.AddTool(mcp.NewTool("context",
		mcp.WithDescription("Return the most recently accessed memories plus a type summary."),
		mcp.WithString("tenant_id", mcp.Required()),
		mcp.WithString("agent_id", mcp.Description("Optional agent scope filter.")),
		mcp.WithNumber("max", mcp.Description("Maximum memories to return.")),
	), contextHandler(eng))

	s.AddTool(mcp.NewTool("forget",
		mcp.WithDescription("Delete a memory by id."),
		mcp.WithString("tenant_id", mcp.Required()),
		mcp.WithString("id", mcp.Required()),
	), forgetHandler(eng))

	s.AddTool(mcp.NewTool("stats",
		mcp.WithDescription("Return aggregate statistics for a tenant's memories."),
		mcp.WithString("tenant_id", mcp.Required()),
	), statsHandler(eng))

	return s
}

// Serve runs the MCP server over stdio until ctx is cancelled or stdin
// closes.
func Serve(ctx context.Context, eng *engine.Engine) error {
	return server.NewStdioServer(NewServer(eng)).Listen(ctx, os.Stdin, os.Stdout)
}

func rememberHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tenantID, err := req.RequireString("tenant_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		agentID := req.GetString("agent_id", "")
		typ := model.MemoryType(req.GetString("type", ""))

		id, err := eng.Remember(ctx, content, tenantID, agentID, engine.RememberOptions{Type: typ})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(id), nil
	}
}

func recallHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tenantID, err := req.RequireString("tenant_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		opts := engine.RecallOptions{
			AgentID:   req.GetString("agent_id", ""),
			Type:      model.MemoryType(req.GetString("type", "")),
			TimeDecay: req.GetBool("time_decay", false),
		}
		if limit := req.GetInt("limit", 0); limit > 0 {
			opts.Limit = &limit
		}
		if threshold := req.GetFloat("threshold", -1); threshold >= 0 {
			opts.Threshold = &threshold
		}

		resp, err := eng.Recall(ctx, query, tenantID, opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResultJSON(resp)
	}
}

func contextHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tenantID, err := req.RequireString("tenant_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		agentID := req.GetString("agent_id", "")
		max := req.GetInt("max", 10)

		result, err := eng.GetContext(ctx, tenantID, agentID, max)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResultJSON(result)
	}
}

func forgetHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tenantID, err := req.RequireString("tenant_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ok, err := eng.Forget(ctx, tenantID, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%v", ok)), nil
	}
}

func statsHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tenantID, err := req.RequireString("tenant_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s, err := eng.GetStats(ctx, tenantID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolResultJSON(s)
	}
}

func toolResultJSON(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
