package tasks

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

func tool(t mcp.Tool, h extension.MCPHandler) extension.MCPTool {
	return extension.MCPTool{Tool: t, Handler: h}
}

func mcpEvent(action string, id int64) *log.Builder {
	l := log.Event("mcp:tasks", action).Author("mcp")
	if id > 0 {
		l = l.Entity("task", strconv.FormatInt(id, 10))
	}
	return l
}

func requireID(req mcp.CallToolRequest) (int64, error) {
	id := extension.OptInt64(req, "id")
	if id == nil || *id <= 0 {
		return 0, fmt.Errorf("%w: id is required", validate.ErrInvalid)
	}
	return *id, nil
}

func tools() []extension.MCPTool {
	return []extension.MCPTool{
		tool(mcp.NewTool("pim_task_list",
			mcp.WithDescription("List tasks. filter: today, week, pending, high, completed; or status; or project_id (0 for none)"),
			mcp.WithString("filter"),
			mcp.WithString("status"),
			mcp.WithNumber("project_id"),
		), taskList),
		tool(mcp.NewTool("pim_task_create",
			mcp.WithDescription("Add a task"),
			mcp.WithString("title", mcp.Required()),
			mcp.WithString("description"),
			mcp.WithString("status", mcp.Enum(store.StatusTodo, store.StatusInProgress, store.StatusCompleted, store.StatusCancelled)),
			mcp.WithString("priority", mcp.Enum("low", "medium", "high", "urgent")),
			mcp.WithString("due_date", mcp.Description("YYYY-MM-DD")),
			mcp.WithNumber("project_id"),
		), taskCreate),
		tool(mcp.NewTool("pim_task_update",
			mcp.WithDescription("Change a task. Completing it stamps completed_at"),
			mcp.WithNumber("id", mcp.Required()),
			mcp.WithString("title"),
			mcp.WithString("description"),
			mcp.WithString("status"),
			mcp.WithString("priority"),
			mcp.WithString("due_date", mcp.Description("YYYY-MM-DD, empty to clear")),
		), taskUpdate),
		tool(mcp.NewTool("pim_task_delete",
			mcp.WithDescription("Soft-delete a task"),
			mcp.WithNumber("id", mcp.Required()),
		), taskDelete),
		tool(mcp.NewTool("pim_task_search",
			mcp.WithDescription("Search task titles and descriptions"),
			mcp.WithString("query", mcp.Required()),
		), taskSearch),
		tool(mcp.NewTool("pim_project_list",
			mcp.WithDescription("List task projects"),
		), projectList),
	}
}

func taskList(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := ec.Store()
	var tasks []store.Task
	var err error
	switch {
	case extension.String(req, "filter", "") != "":
		tasks, err = st.TasksByFilter(ctx, extension.String(req, "filter", ""))
	case extension.String(req, "status", "") != "":
		tasks, err = st.TasksByStatus(ctx, extension.String(req, "status", ""))
	case extension.OptInt64(req, "project_id") != nil:
		project := extension.OptInt64(req, "project_id")
		if *project == 0 {
			project = nil
		}
		tasks, err = st.TasksByProject(ctx, project)
	default:
		tasks, err = st.Tasks(ctx)
	}
	mcpEvent("task_list", 0).Detail("count", len(tasks)).Write(err)
	return cmd.ToolResult(tasks, err)
}

func taskCreate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := ec.Store().CreateTask(ctx, store.NewTask{
		Title:       extension.String(req, "title", ""),
		Description: extension.OptString(req, "description"),
		Status:      extension.String(req, "status", ""),
		Priority:    extension.String(req, "priority", ""),
		DueDate:     extension.OptString(req, "due_date"),
		ProjectID:   extension.OptInt64(req, "project_id"),
	})
	var id int64
	if t != nil {
		id = t.ID
	}
	mcpEvent("task_create", id).Write(err)
	return cmd.ToolResult(t, err)
}

func taskUpdate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return cmd.ToolResult(nil, err)
	}
	t, err := ec.Store().UpdateTask(ctx, id, store.TaskPatch{
		Title:       extension.OptString(req, "title"),
		Description: extension.OptString(req, "description"),
		Status:      extension.OptString(req, "status"),
		Priority:    extension.OptString(req, "priority"),
		DueDate:     extension.OptString(req, "due_date"),
	})
	mcpEvent("task_update", id).Write(err)
	return cmd.ToolResult(t, err)
}

func taskDelete(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return cmd.ToolResult(nil, err)
	}
	err = ec.Store().DeleteTask(ctx, id, false)
	mcpEvent("task_delete", id).Write(err)
	return cmd.ToolResult(map[string]int64{"deleted": id}, err)
}

func taskSearch(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := extension.String(req, "query", "")
	tasks, err := ec.Store().SearchTasks(ctx, q)
	mcpEvent("task_search", 0).Detail("query", q).Detail("count", len(tasks)).Write(err)
	return cmd.ToolResult(tasks, err)
}

func projectList(ctx context.Context, ec extension.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ps, err := ec.Store().Projects(ctx)
	mcpEvent("project_list", 0).Write(err)
	return cmd.ToolResult(ps, err)
}
