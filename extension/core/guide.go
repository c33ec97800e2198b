// guide.go implements "pim guide". Guides are embedded in the binary and
// rendered with glamour on a terminal.

package core

import (
	"fmt"
	"strings"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/guide"
	"github.com/jpl-au/pim/internal/format"
	"github.com/spf13/cobra"
)

func newGuideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guide [topic]",
		Short: "Show the pim usage guide",
		Long: `Outputs the pim guide.

  pim guide            # main guide
  pim guide vault      # the password vault
  pim guide mcp        # MCP tools for LLM clients`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			content, err := guide.Get(name)
			if err != nil {
				available, listErr := guide.List()
				if listErr != nil {
					return listErr
				}
				return cmd.PrintJSONError(fmt.Errorf("guide %q not found. Available: %s", name, strings.Join(available, ", ")))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(map[string]string{"guide": content})
			}
			return format.Markdown(cmd.Out(), content)
		},
	}
}
