// Package tasks provides the task and project extension for pim.
// It registers commands: task, project.
package tasks

import (
	"fmt"
	"strconv"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the tasks extension.
type Extension struct {
	st store.Store
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "tasks".
func (e *Extension) Name() string { return "tasks" }

// Init receives the shared store.
func (e *Extension) Init(ctx extension.Context) error {
	e.st = ctx.Store()
	return nil
}

// Commands returns the task and project commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{e.newTaskCmd(), e.newProjectCmd()}
}

// MCPTools returns the task tools.
func (e *Extension) MCPTools() []extension.MCPTool {
	return tools()
}

func event(kind, action string, id int64) *log.Builder {
	l := log.Event("tasks:"+kind, action).Author(cmd.Author())
	if id > 0 {
		l = l.Entity(kind, strconv.FormatInt(id, 10))
	}
	return l
}

// projectFlag reads --project. "none" selects tasks without a project; the
// second result is false when the flag was not given.
func projectFlag(c *cobra.Command) (*int64, bool, error) {
	v := extension.OptStringFlag(c, extension.FlagProject)
	if v == nil {
		return nil, false, nil
	}
	if *v == "none" || *v == "" {
		return nil, true, nil
	}
	id, err := extension.ParseID(*v)
	if err != nil {
		return nil, true, fmt.Errorf("--project: %w", err)
	}
	return &id, true, nil
}
