// Package timeline provides the daily timeline and markdown journal
// extension for pim.
// It registers commands: timeline, journal.
package timeline

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/journal"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/progress"
	"github.com/jpl-au/pim/internal/repo"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the timeline extension.
type Extension struct {
	st      store.Store
	dataDir string
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "timeline".
func (e *Extension) Name() string { return "timeline" }

// Init receives the shared store and data directory.
func (e *Extension) Init(ctx extension.Context) error {
	e.st = ctx.Store()
	e.dataDir = ctx.DataDir()
	return nil
}

// Commands returns the timeline and journal commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{e.newTimelineCmd(), e.newJournalCmd()}
}

// MCPTools returns the timeline tools.
func (e *Extension) MCPTools() []extension.MCPTool {
	return tools()
}

func event(action string, id int64) *log.Builder {
	l := log.Event("timeline:entry", action).Author(cmd.Author())
	if id > 0 {
		l = l.Entity("timeline_entry", strconv.FormatInt(id, 10))
	}
	return l
}

func (e *Extension) newTimelineCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "timeline",
		Short: "Short timestamped entries grouped by day",
	}

	add := &cobra.Command{
		Use:   "add <content>",
		Short: `Add an entry ("-" reads stdin)`,
		Args:  cobra.ExactArgs(1),
		RunE:  e.runAdd,
	}
	add.Flags().String(extension.FlagDate, "", "Date (YYYY-MM-DD, default today)")
	add.Flags().String(extension.FlagTime, "", "Time (HH:MM, default now)")
	add.Flags().String(extension.FlagWeather, "", "Weather")
	add.Flags().String(extension.FlagMood, "", "Mood")

	recent := &cobra.Command{
		Use:   "recent",
		Short: "Show the latest entries across all days",
		Args:  cobra.NoArgs,
		RunE:  e.runRecent,
	}
	recent.Flags().Int(extension.FlagLimit, 0, "Maximum entries")

	imp := &cobra.Command{
		Use:   "import [dir]",
		Short: "Copy markdown journal files into the timeline",
		Long: `Copy every YYYY-MM-DD.md journal file in dir (default: the data
directory's journal) into the timeline. Entries already present are skipped,
so importing twice is harmless.`,
		Args: cobra.MaximumNArgs(1),
		RunE: e.runImport,
	}

	c.AddCommand(
		add, recent, imp,
		&cobra.Command{Use: "day [date]", Short: "Show one day's entries (default today, UTC)", Args: cobra.MaximumNArgs(1), RunE: e.runDay},
		&cobra.Command{Use: "rm <id>", Short: "Delete an entry", Args: cobra.ExactArgs(1), RunE: e.runDelete},
	)
	return c
}

func printEntries(es []store.TimelineEntry) {
	rows := make([][]string, 0, len(es))
	for _, en := range es {
		rows = append(rows, []string{fmt.Sprint(en.ID), en.Date, en.Time, format.Deref(en.Mood, ""), en.Content})
	}
	format.Table(cmd.Out(), []string{"id", "date", "time", "mood", "content"}, rows)
}

func (e *Extension) runAdd(c *cobra.Command, args []string) error {
	body, err := extension.Body(args[0], os.Stdin)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	en := store.TimelineEntry{
		Content: body,
		Weather: extension.OptStringFlag(c, extension.FlagWeather),
		Mood:    extension.OptStringFlag(c, extension.FlagMood),
	}
	en.Date, _ = c.Flags().GetString(extension.FlagDate)
	en.Time, _ = c.Flags().GetString(extension.FlagTime)
	id, err := e.st.CreateTimelineEntry(c.Context(), en)
	event("create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("timeline add: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int64{"id": id})
	}
	fmt.Fprintf(cmd.Out(), "Added entry %d\n", id)
	return nil
}

func (e *Extension) runDay(c *cobra.Command, args []string) error {
	date := time.Now().Format(time.DateOnly)
	if len(args) == 1 {
		date = args[0]
	}
	es, err := e.st.TimelineByDate(c.Context(), date)
	event("day", 0).Detail("date", date).Detail("count", len(es)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("timeline day %s: %w", date, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(es)
	}
	printEntries(es)
	return nil
}

func (e *Extension) runRecent(c *cobra.Command, _ []string) error {
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	es, err := e.st.RecentTimeline(c.Context(), limit)
	event("recent", 0).Detail("count", len(es)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("timeline recent: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(es)
	}
	printEntries(es)
	return nil
}

func (e *Extension) runDelete(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	err = e.st.DeleteTimelineEntry(c.Context(), id)
	event("delete", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("timeline rm %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int64{"deleted": id})
	}
	fmt.Fprintf(cmd.Out(), "Deleted entry %d\n", id)
	return nil
}

func (e *Extension) runImport(c *cobra.Command, args []string) error {
	dir := repo.JournalDir(e.dataDir)
	if len(args) == 1 {
		dir = args[0]
	}
	dates, err := journal.New(dir).Dates()
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("timeline import: %w", err))
	}
	p := progress.New("Importing", len(dates))
	n, err := journal.ImportJournal(c.Context(), dir, e.st, p.Step)
	p.Done()
	event("import", 0).Detail("dir", dir).Detail("files", len(dates)).Detail("count", n).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("timeline import: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int{"files": len(dates), "imported": n})
	}
	fmt.Fprintf(cmd.Out(), "Imported %d entr(ies) from %d file(s)\n", n, len(dates))
	return nil
}
