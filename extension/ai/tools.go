package ai

import (
	"context"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/mark3labs/mcp-go/mcp"
)

func tools() []extension.MCPTool {
	return []extension.MCPTool{
		{Tool: mcp.NewTool("pim_ai_list",
			mcp.WithDescription("List archived AI conversations, most recent first"),
			mcp.WithNumber("limit"),
		), Handler: conversationList},
		{Tool: mcp.NewTool("pim_ai_get",
			mcp.WithDescription("Read an archived conversation with its messages"),
			mcp.WithString("id", mcp.Required()),
		), Handler: conversationGet},
		{Tool: mcp.NewTool("pim_ai_search",
			mcp.WithDescription("Search conversation titles and message content"),
			mcp.WithString("query", mcp.Required()),
			mcp.WithNumber("limit"),
		), Handler: conversationSearch},
	}
}

func mcpEvent(action, id string) *log.Builder {
	l := log.Event("mcp:ai", action).Author("mcp")
	if id != "" {
		l = l.Entity("conversation", id)
	}
	return l
}

func conversationList(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cs, err := ec.Store().Conversations(ctx, extension.Int(req, "limit", 20))
	mcpEvent("ai_list", "").Write(err)
	return cmd.ToolResult(cs, err)
}

func conversationGet(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	conv, err := ec.Store().Conversation(ctx, id)
	if err != nil {
		mcpEvent("ai_get", id).Write(err)
		return cmd.ToolResult(nil, err)
	}
	msgs, err := ec.Store().Messages(ctx, id)
	mcpEvent("ai_get", id).Write(err)
	return cmd.ToolResult(transcript{Conversation: *conv, Messages: msgs}, err)
}

func conversationSearch(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := extension.String(req, "query", "")
	cs, err := ec.Store().SearchConversations(ctx, q, extension.Int(req, "limit", 20))
	mcpEvent("ai_search", "").Detail("query", q).Write(err)
	return cmd.ToolResult(cs, err)
}
