package knowledge

import (
	"fmt"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/log"
	"github.com/spf13/cobra"
)

func (e *Extension) newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over page and block content",
		Long: `Full-text search over page and block content.

Queries use SQLite FTS5 syntax: words, "exact phrases", prefix*, AND/OR/NOT.
Matches are highlighted in the snippet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			hits, err := e.st.SearchContent(c.Context(), args[0])
			log.Event("knowledge:search", "search").Author(cmd.Author()).Detail("query", args[0]).Detail("hits", len(hits)).Write(err)
			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("search: %w", err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(hits)
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.Out(), "No matches")
				return nil
			}
			format.SearchHits(cmd.Out(), hits)
			return nil
		},
	}
}
