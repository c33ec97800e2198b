// serve.go implements "pim serve", which runs the MCP server over stdio
// until the client disconnects.

package core

import (
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/mcp"
	"github.com/spf13/cobra"
)

func (e *Extension) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start MCP server",
		Long: `Start an MCP (Model Context Protocol) server over stdio.

Knowledge base, card, task, habit, book, timeline and search operations are
exposed as pim_<family>_<verb> tools. Pages are also readable as
pim://pages/{id} resources. The vault is not exposed.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return mcp.Serve(c.Context(), e.ctx, extension.Tools())
		},
	}
}
