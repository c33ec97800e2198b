// init.go implements "pim init".
//
// Init creates the data directory and database. Other commands create them
// on first use too, so init mostly matters for --force, which recreates the
// database from scratch.

package core

import (
	"errors"
	"fmt"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/repo"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialise the pim database",
		Long: `Creates the data directory and database.db inside it.

The data directory is --dir, then $PIM_DIR, then data.dir from config, then
the per-user config directory (for example ~/.config/pim).

Use --force to delete an existing database and start again.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(c *cobra.Command, _ []string) error {
	dir := cmd.DataDir()
	if dir == "" {
		return cmd.PrintJSONError(errors.New("init: data directory could not be resolved"))
	}

	err := repo.Init(c.Context(), dir, cmd.Force(), cmd.StoreOptions())

	log.Event("core:init", "init").
		Author(cmd.Author()).
		Detail("dir", dir).
		Detail("force", cmd.Force()).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("init: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"database": repo.DBPath(dir)})
	}
	fmt.Fprintf(cmd.Out(), "Initialised pim database in %s\n", repo.DBPath(dir))
	return nil
}
