package tasks

import (
	"fmt"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func (e *Extension) newTaskCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runTaskAdd,
	}
	add.Flags().String(extension.FlagDescription, "", "Description")
	add.Flags().String(extension.FlagStatus, "", "todo, in_progress, completed or cancelled (default todo)")
	add.Flags().String(extension.FlagPriority, "", "low, medium, high or urgent (default medium)")
	add.Flags().String(extension.FlagDue, "", "Due date (YYYY-MM-DD)")
	add.Flags().String(extension.FlagProject, "", "Project id")

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Long: `List live tasks, newest first. At most one selector applies:

  --filter    today, week, pending, high or completed (last 7 days)
  --status    one status
  --project   a project id, or "none" for tasks without a project
  --start/--end  due date range (either bound may be omitted)`,
		Args: cobra.NoArgs,
		RunE: e.runTaskList,
	}
	ls.Flags().String(extension.FlagFilter, "", "Named filter")
	ls.Flags().String(extension.FlagStatus, "", "Status")
	ls.Flags().String(extension.FlagProject, "", "Project id or none")
	ls.Flags().String(extension.FlagStart, "", "Due on or after (YYYY-MM-DD)")
	ls.Flags().String(extension.FlagEnd, "", "Due on or before (YYYY-MM-DD)")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a task",
		Long:  `Change a task. An empty --due clears the due date.`,
		Args:  cobra.ExactArgs(1),
		RunE:  e.runTaskUpdate,
	}
	update.Flags().String(extension.FlagTitle, "", "New title")
	update.Flags().String(extension.FlagDescription, "", "New description")
	update.Flags().String(extension.FlagStatus, "", "New status")
	update.Flags().String(extension.FlagPriority, "", "New priority")
	update.Flags().String(extension.FlagDue, "", "New due date")

	mv := &cobra.Command{
		Use:   "mv <id>",
		Short: "File a task under a project",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runTaskMove,
	}
	mv.Flags().String(extension.FlagProject, "none", "Project id, or none")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task (restorable unless --hard)",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runTaskDelete,
	}
	rm.Flags().Bool(extension.FlagHard, false, "Delete permanently")

	pending := &cobra.Command{
		Use:   "pending",
		Short: "Show unfinished tasks, most urgent first",
		Args:  cobra.NoArgs,
		RunE:  e.runTaskPending,
	}
	pending.Flags().Int(extension.FlagLimit, store.FilterLimit, "Maximum tasks")

	c.AddCommand(
		add, ls, update, mv, rm, pending,
		&cobra.Command{Use: "show <id>", Short: "Show a task", Args: cobra.ExactArgs(1), RunE: e.runTaskShow},
		&cobra.Command{Use: "done <id>", Short: "Mark a task completed", Args: cobra.ExactArgs(1), RunE: e.runTaskDone},
		&cobra.Command{Use: "restore <id>", Short: "Restore a deleted task", Args: cobra.ExactArgs(1), RunE: e.runTaskRestore},
		&cobra.Command{Use: "search <query>", Short: "Search task titles and descriptions", Args: cobra.ExactArgs(1), RunE: e.runTaskSearch},
		&cobra.Command{Use: "trash", Short: "List deleted tasks", Args: cobra.NoArgs, RunE: e.runTaskTrash},
	)
	return c
}

func printTasks(tasks []store.Task) {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		project := ""
		if t.ProjectID != nil {
			project = fmt.Sprint(*t.ProjectID)
		}
		rows = append(rows, []string{fmt.Sprint(t.ID), t.Status, t.Priority, format.Deref(t.DueDate, ""), project, t.Title})
	}
	format.Table(cmd.Out(), []string{"id", "status", "priority", "due", "project", "title"}, rows)
}

func (e *Extension) printOne(t *store.Task, verb string) error {
	if cmd.JSON() {
		return cmd.PrintJSON(t)
	}
	fmt.Fprintf(cmd.Out(), "%s task %d\n", verb, t.ID)
	return nil
}

func (e *Extension) runTaskAdd(c *cobra.Command, args []string) error {
	project, _, err := projectFlag(c)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	status, _ := c.Flags().GetString(extension.FlagStatus)
	priority, _ := c.Flags().GetString(extension.FlagPriority)
	t, err := e.st.CreateTask(c.Context(), store.NewTask{
		Title:       args[0],
		Description: extension.OptStringFlag(c, extension.FlagDescription),
		Status:      status,
		Priority:    priority,
		DueDate:     extension.OptStringFlag(c, extension.FlagDue),
		ProjectID:   project,
	})
	var id int64
	if t != nil {
		id = t.ID
	}
	event("task", "create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task add: %w", err))
	}
	return e.printOne(t, "Added")
}

func (e *Extension) runTaskList(c *cobra.Command, _ []string) error {
	ctx := c.Context()
	project, byProject, err := projectFlag(c)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	filter, _ := c.Flags().GetString(extension.FlagFilter)
	status, _ := c.Flags().GetString(extension.FlagStatus)
	start := extension.OptStringFlag(c, extension.FlagStart)
	end := extension.OptStringFlag(c, extension.FlagEnd)

	var tasks []store.Task
	switch {
	case filter != "":
		tasks, err = e.st.TasksByFilter(ctx, filter)
	case status != "":
		tasks, err = e.st.TasksByStatus(ctx, status)
	case byProject:
		tasks, err = e.st.TasksByProject(ctx, project)
	case start != nil || end != nil:
		tasks, err = e.st.TasksByDateRange(ctx, start, end)
	default:
		tasks, err = e.st.Tasks(ctx)
	}
	event("task", "list", 0).Detail("filter", filter).Detail("count", len(tasks)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(tasks)
	}
	printTasks(tasks)
	return nil
}

func (e *Extension) runTaskShow(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	t, err := e.st.Task(c.Context(), id)
	event("task", "show", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task show %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(t)
	}
	w := cmd.Out()
	fmt.Fprintf(w, "#%d %s\n", t.ID, t.Title)
	fmt.Fprintf(w, "Status:    %s\n", t.Status)
	fmt.Fprintf(w, "Priority:  %s\n", t.Priority)
	if t.DueDate != nil {
		fmt.Fprintf(w, "Due:       %s\n", *t.DueDate)
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "Completed: %s\n", *t.CompletedAt)
	}
	if t.ProjectID != nil {
		fmt.Fprintf(w, "Project:   %d\n", *t.ProjectID)
	}
	if t.Description != nil && *t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", *t.Description)
	}
	return nil
}

func (e *Extension) runTaskUpdate(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	t, err := e.st.UpdateTask(c.Context(), id, store.TaskPatch{
		Title:       extension.OptStringFlag(c, extension.FlagTitle),
		Description: extension.OptStringFlag(c, extension.FlagDescription),
		Status:      extension.OptStringFlag(c, extension.FlagStatus),
		Priority:    extension.OptStringFlag(c, extension.FlagPriority),
		DueDate:     extension.OptStringFlag(c, extension.FlagDue),
	})
	event("task", "update", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task update %d: %w", id, err))
	}
	return e.printOne(t, "Updated")
}

func (e *Extension) runTaskDone(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	status := store.StatusCompleted
	t, err := e.st.UpdateTask(c.Context(), id, store.TaskPatch{Status: &status})
	event("task", "done", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task done %d: %w", id, err))
	}
	return e.printOne(t, "Completed")
}

func (e *Extension) runTaskMove(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	project, _, err := projectFlag(c)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	t, err := e.st.MoveTask(c.Context(), id, project)
	event("task", "move", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task mv %d: %w", id, err))
	}
	return e.printOne(t, "Moved")
}

func (e *Extension) runTaskDelete(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	hard, _ := c.Flags().GetBool(extension.FlagHard)
	if hard && !cmd.Force() && !cmd.Confirm(fmt.Sprintf("Permanently delete task %d?", id)) {
		return nil
	}
	err = e.st.DeleteTask(c.Context(), id, hard)
	event("task", "delete", id).Detail("hard", hard).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task rm %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"deleted": id, "hard": hard})
	}
	fmt.Fprintf(cmd.Out(), "Deleted task %d\n", id)
	return nil
}

func (e *Extension) runTaskRestore(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	t, err := e.st.RestoreTask(c.Context(), id)
	event("task", "restore", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task restore %d: %w", id, err))
	}
	return e.printOne(t, "Restored")
}

func (e *Extension) runTaskSearch(c *cobra.Command, args []string) error {
	tasks, err := e.st.SearchTasks(c.Context(), args[0])
	event("task", "search", 0).Detail("query", args[0]).Detail("count", len(tasks)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task search: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(tasks)
	}
	printTasks(tasks)
	return nil
}

func (e *Extension) runTaskPending(c *cobra.Command, _ []string) error {
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	tasks, err := e.st.PendingTasks(c.Context(), limit)
	event("task", "pending", 0).Detail("count", len(tasks)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task pending: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(tasks)
	}
	printTasks(tasks)
	return nil
}

func (e *Extension) runTaskTrash(c *cobra.Command, _ []string) error {
	tasks, err := e.st.DeletedTasks(c.Context())
	event("task", "trash", 0).Detail("count", len(tasks)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("task trash: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(tasks)
	}
	printTasks(tasks)
	return nil
}
