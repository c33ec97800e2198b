// Package core provides the core extension for pim.
// It registers commands: init, config, stats, vacuum, serve, guide, version.
package core

import (
	"github.com/jpl-au/pim/extension"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the core extension.
type Extension struct {
	ctx extension.Context
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
	_ extension.Storeless     = (*Extension)(nil)
)

// Name returns "core".
func (e *Extension) Name() string { return "core" }

// Init keeps the shared context for stats, vacuum and serve.
func (e *Extension) Init(ctx extension.Context) error {
	e.ctx = ctx
	return nil
}

// Commands returns the repository management commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		newInitCmd(),
		newConfigCmd(),
		e.newStatsCmd(),
		e.newVacuumCmd(),
		e.newServeCmd(),
		newGuideCmd(),
		newVersionCmd(),
	}
}

// MCPTools exposes repository statistics; the entity tools live with their
// families.
func (e *Extension) MCPTools() []extension.MCPTool {
	return []extension.MCPTool{statsTool()}
}

// NoStoreCommands: init creates the store itself; config, guide and
// version never touch it.
func (e *Extension) NoStoreCommands() []string {
	return []string{"init", "config", "guide", "version"}
}
