// Package ai provides the AI conversation archive extension for pim.
// It registers commands: ai.
//
// pim stores conversations, provider settings and agent presets; it does
// not talk to any provider itself.
package ai

import (
	"context"
	"time"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the ai extension.
type Extension struct {
	st store.Store
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
	_ extension.Vacuumable    = (*Extension)(nil)
)

// Name returns "ai".
func (e *Extension) Name() string { return "ai" }

// Init receives the shared store.
func (e *Extension) Init(ctx extension.Context) error {
	e.st = ctx.Store()
	return nil
}

// Commands returns the ai command.
func (e *Extension) Commands() []*cobra.Command {
	c := &cobra.Command{
		Use:   "ai",
		Short: "AI conversations, providers and agents",
	}
	c.AddCommand(e.conversationCommands()...)
	c.AddCommand(e.newProviderCmd(), e.newAgentCmd())
	return []*cobra.Command{c}
}

// MCPTools returns the conversation tools.
func (e *Extension) MCPTools() []extension.MCPTool {
	return tools()
}

// Vacuum removes conversations idle for longer than olderThan. Without an
// age nothing is removed: conversations have no trash.
func (e *Extension) Vacuum(ctx context.Context, olderThan *time.Duration) (int64, error) {
	if olderThan == nil {
		return 0, nil
	}
	n, err := e.st.CleanupConversations(ctx, *olderThan)
	return int64(n), err
}

func event(kind, action, id string) *log.Builder {
	l := log.Event("ai:"+kind, action).Author(cmd.Author())
	if id != "" {
		l = l.Entity(kind, id)
	}
	return l
}
