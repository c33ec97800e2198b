package habit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/validate"
	"github.com/mark3labs/mcp-go/mcp"
)

func tools() []extension.MCPTool {
	return []extension.MCPTool{
		{Tool: mcp.NewTool("pim_habit_list",
			mcp.WithDescription("List habits"),
			mcp.WithBoolean("include_inactive"),
		), Handler: habitList},
		{Tool: mcp.NewTool("pim_habit_create",
			mcp.WithDescription("Create a habit"),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("description"),
			mcp.WithString("frequency", mcp.Enum("daily", "weekly", "monthly")),
			mcp.WithNumber("target_count"),
		), Handler: habitCreate},
		{Tool: mcp.NewTool("pim_habit_record",
			mcp.WithDescription("Record completions of a habit on a date (default today), replacing any earlier record"),
			mcp.WithNumber("habit_id", mcp.Required()),
			mcp.WithString("date", mcp.Description("YYYY-MM-DD")),
			mcp.WithNumber("count", mcp.Description("Completion count (default 1)")),
			mcp.WithString("notes"),
		), Handler: habitRecord},
		{Tool: mcp.NewTool("pim_habit_stats",
			mcp.WithDescription("Streaks and completion rates of a habit"),
			mcp.WithNumber("habit_id", mcp.Required()),
		), Handler: habitStats},
	}
}

func mcpEvent(action string, id int64) *log.Builder {
	l := log.Event("mcp:habit", action).Author("mcp")
	if id > 0 {
		l = l.Entity("habit", strconv.FormatInt(id, 10))
	}
	return l
}

func habitID(req mcp.CallToolRequest) (int64, error) {
	id := extension.OptInt64(req, "habit_id")
	if id == nil || *id <= 0 {
		return 0, fmt.Errorf("%w: habit_id is required", validate.ErrInvalid)
	}
	return *id, nil
}

func habitList(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hs, err := ec.Store().Habits(ctx, !extension.Bool(req, "include_inactive", false))
	mcpEvent("habit_list", 0).Write(err)
	return cmd.ToolResult(hs, err)
}

func habitCreate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := ec.Store().CreateHabit(ctx, store.NewHabit{
		Name:        extension.String(req, "name", ""),
		Description: extension.OptString(req, "description"),
		Frequency:   extension.String(req, "frequency", ""),
		TargetCount: extension.Int(req, "target_count", 0),
	})
	var id int64
	if h != nil {
		id = h.ID
	}
	mcpEvent("habit_create", id).Write(err)
	return cmd.ToolResult(h, err)
}

func habitRecord(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := habitID(req)
	if err != nil {
		return cmd.ToolResult(nil, err)
	}
	r, err := ec.Store().RecordHabit(ctx, id, extension.String(req, "date", ""),
		extension.Int(req, "count", 1), extension.OptString(req, "notes"))
	mcpEvent("habit_record", id).Write(err)
	return cmd.ToolResult(r, err)
}

func habitStats(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := habitID(req)
	if err != nil {
		return cmd.ToolResult(nil, err)
	}
	st, err := ec.Store().HabitStats(ctx, id)
	mcpEvent("habit_stats", id).Write(err)
	return cmd.ToolResult(st, err)
}
