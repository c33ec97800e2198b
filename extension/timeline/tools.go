package timeline

import (
	"context"
	"time"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

func tools() []extension.MCPTool {
	return []extension.MCPTool{
		{Tool: mcp.NewTool("pim_timeline_add",
			mcp.WithDescription("Add a timeline entry (date and time default to now)"),
			mcp.WithString("content", mcp.Required()),
			mcp.WithString("date", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("time", mcp.Description("HH:MM")),
			mcp.WithString("weather"),
			mcp.WithString("mood"),
		), Handler: timelineAdd},
		{Tool: mcp.NewTool("pim_timeline_day",
			mcp.WithDescription("List one day's timeline entries, latest first"),
			mcp.WithString("date", mcp.Description("YYYY-MM-DD, default today")),
		), Handler: timelineDay},
		{Tool: mcp.NewTool("pim_timeline_recent",
			mcp.WithDescription("List the latest timeline entries across all days"),
			mcp.WithNumber("limit"),
		), Handler: timelineRecent},
	}
}

func mcpEvent(action string) *log.Builder {
	return log.Event("mcp:timeline", action).Author("mcp")
}

func timelineAdd(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := ec.Store().CreateTimelineEntry(ctx, store.TimelineEntry{
		Content: extension.String(req, "content", ""),
		Date:    extension.String(req, "date", ""),
		Time:    extension.String(req, "time", ""),
		Weather: extension.OptString(req, "weather"),
		Mood:    extension.OptString(req, "mood"),
	})
	mcpEvent("timeline_add").Detail("id", id).Write(err)
	return cmd.ToolResult(map[string]int64{"id": id}, err)
}

func timelineDay(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := extension.String(req, "date", time.Now().Format(time.DateOnly))
	es, err := ec.Store().TimelineByDate(ctx, date)
	mcpEvent("timeline_day").Detail("date", date).Write(err)
	return cmd.ToolResult(es, err)
}

func timelineRecent(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	es, err := ec.Store().RecentTimeline(ctx, extension.Int(req, "limit", 0))
	mcpEvent("timeline_recent").Write(err)
	return cmd.ToolResult(es, err)
}
