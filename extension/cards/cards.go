// Package cards provides the card box extension for pim.
// It registers commands: box, card.
package cards

import (
	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the cards extension.
type Extension struct {
	st store.Store
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "cards".
func (e *Extension) Name() string { return "cards" }

// Init receives the shared store.
func (e *Extension) Init(ctx extension.Context) error {
	e.st = ctx.Store()
	return nil
}

// Commands returns the box and card commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{e.newBoxCmd(), e.newCardCmd()}
}

// MCPTools returns the card tools.
func (e *Extension) MCPTools() []extension.MCPTool {
	return tools()
}

func event(kind, action, id string) *log.Builder {
	return log.Event("cards:"+kind, action).Author(cmd.Author()).Entity(kind, id)
}
