package timeline

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/journal"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/repo"
	"github.com/spf13/cobra"
)

func (e *Extension) journal() *journal.Journal {
	return journal.New(repo.JournalDir(e.dataDir))
}

func journalEvent(action, date string) *log.Builder {
	l := log.Event("timeline:journal", action).Author(cmd.Author())
	if date != "" {
		l = l.Entity("journal", date)
	}
	return l
}

func (e *Extension) newJournalCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "journal",
		Short: "Markdown journal files, one per day",
		Long: `The journal is a directory of YYYY-MM-DD.md files under the data
directory, editable by hand. "pim timeline import" copies it into the
timeline.`,
	}

	add := &cobra.Command{
		Use:   "add <content>",
		Short: `Append an entry to today's file ("-" reads stdin)`,
		Args:  cobra.ExactArgs(1),
		RunE:  e.runJournalAdd,
	}
	add.Flags().String(extension.FlagWeather, "", "Weather (kept if the day already has one)")
	add.Flags().String(extension.FlagMood, "", "Mood (kept if the day already has one)")

	c.AddCommand(
		add,
		&cobra.Command{Use: "show [date]", Short: "Show a day's journal (default today)", Args: cobra.MaximumNArgs(1), RunE: e.runJournalShow},
		&cobra.Command{Use: "ls", Aliases: []string{"list"}, Short: "List journal days", Args: cobra.NoArgs, RunE: e.runJournalList},
	)
	return c
}

func (e *Extension) runJournalAdd(c *cobra.Command, args []string) error {
	body, err := extension.Body(args[0], os.Stdin)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	weather, _ := c.Flags().GetString(extension.FlagWeather)
	mood, _ := c.Flags().GetString(extension.FlagMood)
	now := time.Now()
	err = e.journal().Append(now, body, weather, mood)
	date := now.Format(time.DateOnly)
	journalEvent("append", date).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("journal add: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"date": date, "time": now.Format("15:04")})
	}
	fmt.Fprintf(cmd.Out(), "Added to %s\n", date)
	return nil
}

func (e *Extension) runJournalShow(_ *cobra.Command, args []string) error {
	date := time.Now().Format(time.DateOnly)
	if len(args) == 1 {
		date = args[0]
	}
	d, err := e.journal().Read(date)
	journalEvent("show", date).Write(err)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if cmd.JSON() {
		return cmd.PrintJSON(d)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", d.Meta.Date, d.Meta.Day)
	var meta []string
	if d.Meta.Weather != "" {
		meta = append(meta, "weather: "+d.Meta.Weather)
	}
	if d.Meta.Mood != "" {
		meta = append(meta, "mood: "+d.Meta.Mood)
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "_%s_\n\n", strings.Join(meta, ", "))
	}
	for _, en := range d.Entries {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", en.Time, en.Content)
	}
	return format.Markdown(cmd.Out(), b.String())
}

func (e *Extension) runJournalList(_ *cobra.Command, _ []string) error {
	dates, err := e.journal().Dates()
	journalEvent("list", "").Detail("count", len(dates)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("journal ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(dates)
	}
	for _, d := range dates {
		fmt.Fprintln(cmd.Out(), d)
	}
	return nil
}
