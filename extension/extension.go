// Package extension provides the plugin architecture for pim. Each entity
// family (knowledge, cards, tasks, ...) is an extension that contributes CLI
// commands and MCP tools and registers itself at init time.
package extension

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// Extension defines the contract for pim extensions.
type Extension interface {
	// Name returns a unique identifier for this extension.
	Name() string

	// Commands returns CLI commands to register with the root command.
	Commands() []*cobra.Command

	// MCPTools returns MCP tools to register with the server.
	MCPTools() []MCPTool
}

// Initializable extensions receive the shared Context once the store is open.
type Initializable interface {
	Extension
	Init(ctx Context) error
}

// Storeless is implemented by extensions with commands that must run
// without opening the store (init, config, guide, version).
type Storeless interface {
	NoStoreCommands() []string
}

// Vacuumable extensions purge their own soft-deleted rows. The vacuum
// command calls every Vacuumable after the core purge and reports the counts.
type Vacuumable interface {
	Extension
	// Vacuum permanently deletes soft-deleted records older than olderThan,
	// or all of them when olderThan is nil.
	Vacuum(ctx context.Context, olderThan *time.Duration) (int64, error)
}
