// Package habit provides the habit tracker extension for pim.
// It registers commands: habit.
package habit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the habit extension.
type Extension struct {
	st store.Store
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "habit".
func (e *Extension) Name() string { return "habit" }

// Init receives the shared store.
func (e *Extension) Init(ctx extension.Context) error {
	e.st = ctx.Store()
	return nil
}

// Commands returns the habit command.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{e.newHabitCmd()}
}

// MCPTools returns the habit tools.
func (e *Extension) MCPTools() []extension.MCPTool {
	return tools()
}

func event(action string, id int64) *log.Builder {
	l := log.Event("habit:habit", action).Author(cmd.Author())
	if id > 0 {
		l = l.Entity("habit", strconv.FormatInt(id, 10))
	}
	return l
}

func (e *Extension) newHabitCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "habit",
		Short: "Track recurring habits",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a habit",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runCreate,
	}
	create.Flags().String(extension.FlagDescription, "", "Description")
	create.Flags().String(extension.FlagIcon, "", "Icon")
	create.Flags().String(extension.FlagColor, "", "Hex colour")
	create.Flags().String(extension.FlagFrequency, "", "daily, weekly or monthly (default daily)")
	create.Flags().Int(extension.FlagTarget, 0, "Completions per period (default 1)")

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List active habits",
		Args:    cobra.NoArgs,
		RunE:    e.runList,
	}
	ls.Flags().Bool(extension.FlagAll, false, "Include inactive habits")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a habit",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runUpdate,
	}
	update.Flags().String(extension.FlagName, "", "New name")
	update.Flags().String(extension.FlagDescription, "", "New description")
	update.Flags().String(extension.FlagIcon, "", "New icon")
	update.Flags().String(extension.FlagColor, "", "New hex colour")
	update.Flags().String(extension.FlagFrequency, "", "New frequency")
	update.Flags().Int(extension.FlagTarget, 0, "New target count")
	update.Flags().Bool("active", true, "Set whether the habit is active")

	record := &cobra.Command{
		Use:   "record <id>",
		Short: "Record completions for a date, replacing any earlier record",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runRecord,
	}
	record.Flags().String(extension.FlagDate, "", "Date (YYYY-MM-DD, default today)")
	record.Flags().Int(extension.FlagCount, 1, "Completion count")
	record.Flags().String(extension.FlagNotes, "", "Notes")

	records := &cobra.Command{
		Use:   "records <id>",
		Short: "List a habit's records, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runRecords,
	}
	records.Flags().String(extension.FlagStart, "", "From date")
	records.Flags().String(extension.FlagEnd, "", "To date")

	unrecord := &cobra.Command{
		Use:   "unrecord <id>",
		Short: "Remove the record for a date",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runUnrecord,
	}
	unrecord.Flags().String(extension.FlagDate, "", "Date (YYYY-MM-DD, required)")
	_ = unrecord.MarkFlagRequired(extension.FlagDate)

	c.AddCommand(
		create, ls, update, record, records, unrecord,
		&cobra.Command{Use: "show <id>", Short: "Show a habit and its statistics", Args: cobra.ExactArgs(1), RunE: e.runShow},
		&cobra.Command{Use: "rm <id>", Short: "Delete a habit and its records", Args: cobra.ExactArgs(1), RunE: e.runDelete},
	)
	return c
}

func (e *Extension) runCreate(c *cobra.Command, args []string) error {
	in := store.NewHabit{
		Name:        args[0],
		Description: extension.OptStringFlag(c, extension.FlagDescription),
	}
	in.Icon, _ = c.Flags().GetString(extension.FlagIcon)
	in.Color, _ = c.Flags().GetString(extension.FlagColor)
	in.Frequency, _ = c.Flags().GetString(extension.FlagFrequency)
	in.TargetCount, _ = c.Flags().GetInt(extension.FlagTarget)
	h, err := e.st.CreateHabit(c.Context(), in)
	var id int64
	if h != nil {
		id = h.ID
	}
	event("create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("habit create: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(h)
	}
	fmt.Fprintf(cmd.Out(), "Created habit %s (%d)\n", h.Name, h.ID)
	return nil
}

func (e *Extension) runList(c *cobra.Command, _ []string) error {
	all, _ := c.Flags().GetBool(extension.FlagAll)
	hs, err := e.st.Habits(c.Context(), !all)
	event("list", 0).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("habit ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(hs)
	}
	rows := make([][]string, 0, len(hs))
	for _, h := range hs {
		active := ""
		if !h.IsActive {
			active = "inactive"
		}
		rows = append(rows, []string{fmt.Sprint(h.ID), h.Icon + " " + h.Name, h.Frequency, fmt.Sprint(h.TargetCount), active})
	}
	format.Table(cmd.Out(), []string{"id", "name", "frequency", "target", ""}, rows)
	return nil
}

func (e *Extension) runShow(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	l := event("show", id)
	h, err := e.st.Habit(ctx, id)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("habit show %d: %w", id, err))
	}
	stats, err := e.st.HabitStats(ctx, id)
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("habit show %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"habit": h, "stats": stats})
	}
	w := cmd.Out()
	fmt.Fprintf(w, "%s %s (%s, target %d)\n", h.Icon, h.Name, h.Frequency, h.TargetCount)
	if h.Description != nil {
		fmt.Fprintln(w, *h.Description)
	}
	fmt.Fprintf(w, "\nCompleted:       %d of %d days (%.0f%%)\n", stats.CompletedDays, stats.TotalDays, stats.CompletionRate)
	fmt.Fprintf(w, "Current streak:  %d\n", stats.CurrentStreak)
	fmt.Fprintf(w, "Longest streak:  %d\n", stats.LongestStreak)
	fmt.Fprintf(w, "This week:       %d\n", stats.ThisWeekCompletion)
	fmt.Fprintf(w, "This month:      %d\n", stats.ThisMonthCompletion)
	return nil
}

func (e *Extension) runUpdate(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	h, err := e.st.UpdateHabit(c.Context(), id, store.HabitPatch{
		Name:        extension.OptStringFlag(c, extension.FlagName),
		Description: extension.OptStringFlag(c, extension.FlagDescription),
		Icon:        extension.OptStringFlag(c, extension.FlagIcon),
		Color:       extension.OptStringFlag(c, extension.FlagColor),
		Frequency:   extension.OptStringFlag(c, extension.FlagFrequency),
		TargetCount: extension.OptIntFlag(c, extension.FlagTarget),
		IsActive:    extension.OptBoolFlag(c, "active"),
	})
	event("update", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("habit update %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(h)
	}
	fmt.Fprintf(cmd.Out(), "Updated habit %d\n", id)
	return nil
}

func (e *Extension) runDelete(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if !cmd.Force() && !cmd.Confirm(fmt.Sprintf("Delete habit %d and all its records?", id)) {
		return nil
	}
	err = e.st.DeleteHabit(c.Context(), id)
	event("delete", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("habit rm %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int64{"deleted": id})
	}
	fmt.Fprintf(cmd.Out(), "Deleted habit %d\n", id)
	return nil
}

func (e *Extension) runRecord(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	date, _ := c.Flags().GetString(extension.FlagDate)
	count, _ := c.Flags().GetInt(extension.FlagCount)
	r, err := e.st.RecordHabit(c.Context(), id, date, count, extension.OptStringFlag(c, extension.FlagNotes))
	event("record", id).Detail("date", date).Detail("count", count).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("habit record %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(r)
	}
	fmt.Fprintf(cmd.Out(), "Recorded %d for habit %d on %s\n", r.CompletedCount, id, r.Date)
	return nil
}

func (e *Extension) runRecords(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	rs, err := e.st.HabitRecords(c.Context(), id,
		extension.OptStringFlag(c, extension.FlagStart), extension.OptStringFlag(c, extension.FlagEnd))
	event("records", id).Detail("count", len(rs)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("habit records %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(rs)
	}
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []string{r.Date, fmt.Sprint(r.CompletedCount), strings.ReplaceAll(format.Deref(r.Notes, ""), "\n", " ")})
	}
	format.Table(cmd.Out(), []string{"date", "count", "notes"}, rows)
	return nil
}

func (e *Extension) runUnrecord(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	date, _ := c.Flags().GetString(extension.FlagDate)
	err = e.st.DeleteHabitRecordByDate(c.Context(), id, date)
	event("unrecord", id).Detail("date", date).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("habit unrecord %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"habit_id": id, "date": date})
	}
	fmt.Fprintf(cmd.Out(), "Removed record for habit %d on %s\n", id, date)
	return nil
}
