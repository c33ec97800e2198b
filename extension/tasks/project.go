package tasks

import (
	"fmt"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func (e *Extension) newProjectCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "project",
		Short: "Manage task projects",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runProjectCreate,
	}
	create.Flags().String(extension.FlagIcon, "", "Icon")
	create.Flags().String(extension.FlagColor, "", "Hex colour")
	create.Flags().String(extension.FlagDescription, "", "Description")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a project",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runProjectUpdate,
	}
	update.Flags().String(extension.FlagName, "", "New name")
	update.Flags().String(extension.FlagIcon, "", "New icon")
	update.Flags().String(extension.FlagColor, "", "New hex colour")
	update.Flags().String(extension.FlagDescription, "", "New description")

	c.AddCommand(
		create, update,
		&cobra.Command{Use: "ls", Aliases: []string{"list"}, Short: "List projects", Args: cobra.NoArgs, RunE: e.runProjectList},
		&cobra.Command{Use: "show <id>", Short: "Show a project with task counts", Args: cobra.ExactArgs(1), RunE: e.runProjectShow},
		&cobra.Command{Use: "rm <id>", Short: "Delete a project, keeping its tasks", Args: cobra.ExactArgs(1), RunE: e.runProjectDelete},
	)
	return c
}

func (e *Extension) runProjectCreate(c *cobra.Command, args []string) error {
	icon, _ := c.Flags().GetString(extension.FlagIcon)
	p, err := e.st.CreateProject(c.Context(), store.NewProject{
		Name:        args[0],
		Icon:        icon,
		Color:       extension.OptStringFlag(c, extension.FlagColor),
		Description: extension.OptStringFlag(c, extension.FlagDescription),
	})
	var id int64
	if p != nil {
		id = p.ID
	}
	event("project", "create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("project create: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(p)
	}
	fmt.Fprintf(cmd.Out(), "Created project %s (%d)\n", p.Name, p.ID)
	return nil
}

func (e *Extension) runProjectList(c *cobra.Command, _ []string) error {
	ps, err := e.st.Projects(c.Context())
	event("project", "list", 0).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("project ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(ps)
	}
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []string{fmt.Sprint(p.ID), p.Icon + " " + p.Name, format.Deref(p.Description, "")})
	}
	format.Table(cmd.Out(), []string{"id", "name", "description"}, rows)
	return nil
}

func (e *Extension) runProjectShow(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	l := event("project", "show", id)
	p, err := e.st.Project(ctx, id)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("project show %d: %w", id, err))
	}
	stats, err := e.st.ProjectStats(ctx, id)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("project show %d: %w", id, err))
	}
	tasks, err := e.st.TasksByProject(ctx, &id)
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("project show %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"project": p, "stats": stats, "tasks": tasks})
	}
	fmt.Fprintf(cmd.Out(), "%s %s\n", p.Icon, p.Name)
	if p.Description != nil {
		fmt.Fprintln(cmd.Out(), *p.Description)
	}
	fmt.Fprintf(cmd.Out(), "%d tasks, %d completed, %d overdue\n\n", stats.Total, stats.Completed, stats.Overdue)
	printTasks(tasks)
	return nil
}

func (e *Extension) runProjectUpdate(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	p, err := e.st.UpdateProject(c.Context(), id, store.ProjectPatch{
		Name:        extension.OptStringFlag(c, extension.FlagName),
		Icon:        extension.OptStringFlag(c, extension.FlagIcon),
		Color:       extension.OptStringFlag(c, extension.FlagColor),
		Description: extension.OptStringFlag(c, extension.FlagDescription),
	})
	event("project", "update", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("project update %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(p)
	}
	fmt.Fprintf(cmd.Out(), "Updated project %d\n", id)
	return nil
}

func (e *Extension) runProjectDelete(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	err = e.st.DeleteProject(c.Context(), id)
	event("project", "delete", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("project rm %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int64{"deleted": id})
	}
	fmt.Fprintf(cmd.Out(), "Deleted project %d\n", id)
	return nil
}
