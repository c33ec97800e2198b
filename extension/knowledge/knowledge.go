// Package knowledge provides the knowledge base extension for pim.
// It registers commands: kb, page, block, search.
package knowledge

import (
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the knowledge extension.
type Extension struct {
	ctx extension.Context
	st  store.Store
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "knowledge".
func (e *Extension) Name() string { return "knowledge" }

// Init receives the shared context; page changes are fired through it.
func (e *Extension) Init(ctx extension.Context) error {
	e.ctx = ctx
	e.st = ctx.Store()
	return nil
}

// Commands returns the kb, page, block and search commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		e.newKBCmd(),
		e.newPageCmd(),
		e.newBlockCmd(),
		e.newSearchCmd(),
	}
}

// MCPTools returns the knowledge base tools.
func (e *Extension) MCPTools() []extension.MCPTool {
	return tools()
}
