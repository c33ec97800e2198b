// stats.go implements "pim stats": row counts per entity family plus the
// size of the files in the data directory.

package core

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/repo"
	"github.com/jpl-au/pim/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
)

// Report is the stats output.
type Report struct {
	*store.Stats
	DataDir string      `json:"data_dir"`
	Files   []repo.File `json:"files"`
}

func (e *Extension) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			r, err := report(c.Context(), e.ctx)
			log.Event("core:stats", "stats").Author(cmd.Author()).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("stats: %w", err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(r)
			}
			printReport(r)
			return nil
		},
	}
}

func report(ctx context.Context, ec extension.Context) (*Report, error) {
	st, err := ec.Store().Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Report{Stats: st, DataDir: ec.DataDir(), Files: repo.Files(ec.DataDir())}, nil
}

func printReport(r *Report) {
	w := tabwriter.NewWriter(cmd.Out(), 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		n     int
	}{
		{"Knowledge bases", r.KnowledgeBases},
		{"Pages", r.Pages},
		{"Blocks", r.Blocks},
		{"Page versions", r.PageVersions},
		{"Tags", r.Tags},
		{"Card boxes", r.CardBoxes},
		{"Cards", r.Cards},
		{"Archived cards", r.ArchivedCards},
		{"Tasks", r.Tasks},
		{"Projects", r.Projects},
		{"Habits", r.Habits},
		{"Habit records", r.HabitRecords},
		{"Vault entries", r.PasswordEntries},
		{"Conversations", r.Conversations},
		{"Messages", r.Messages},
		{"Books", r.Books},
		{"Timeline entries", r.TimelineEntries},
		{"Deleted pages", r.DeletedPages},
		{"Deleted tasks", r.DeletedTasks},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d\n", row.label, row.n)
	}
	_ = w.Flush()

	fmt.Fprintf(cmd.Out(), "\nData directory: %s\n", r.DataDir)
	for _, f := range r.Files {
		fmt.Fprintf(cmd.Out(), "  %-20s %s\n", f.Name, format.HumanSize(f.Size))
	}
}

func statsTool() extension.MCPTool {
	return extension.MCPTool{
		Tool: mcp.NewTool("pim_stats",
			mcp.WithDescription("Row counts for every entity family and data file sizes"),
		),
		Handler: func(ctx context.Context, ec extension.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			r, err := report(ctx, ec)
			log.Event("mcp:stats", "stats").Write(err)
			return cmd.ToolResult(r, err)
		},
	}
}
