// vacuum.go implements "pim vacuum" for permanent deletion of soft-deleted
// pages and tasks.

package core

import (
	"fmt"
	"log/slog"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/duration"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func (e *Extension) newVacuumCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "vacuum",
		Short: "Permanently delete soft-deleted pages and tasks",
		Long: `Permanently delete soft-deleted pages (with their blocks and versions)
and soft-deleted tasks. With --older-than, AI conversations untouched for
that long are removed as well.

This is irreversible. Use --force to skip confirmation.

Duration formats: 12h (hours), 7d (days), 4w (weeks), 3m (months)`,
		Args: cobra.NoArgs,
		RunE: e.runVacuum,
	}
	c.Flags().String(extension.FlagOlderThan, "", "Only purge deletions older than duration (e.g., 7d, 4w, 3m)")
	c.Flags().BoolP(extension.FlagDryRun, "n", false, "Show what would be deleted")
	return c
}

type vacuumResult struct {
	DryRun     bool             `json:"dry_run"`
	Deleted    int64            `json:"deleted"`
	Extensions map[string]int64 `json:"extensions,omitempty"`
	Pages      int              `json:"deleted_pages,omitempty"`
	Tasks      int              `json:"deleted_tasks,omitempty"`
}

func (e *Extension) runVacuum(c *cobra.Command, _ []string) error {
	ctx := c.Context()
	olderThanFlag, _ := c.Flags().GetString(extension.FlagOlderThan)
	dryRun, _ := c.Flags().GetBool(extension.FlagDryRun)

	olderThan, err := duration.ParseOptional(olderThanFlag)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("parse duration %q: %w", olderThanFlag, err))
	}

	if dryRun {
		st, err := e.ctx.Store().Stats(ctx)
		log.Event("core:vacuum", "vacuum").Author(cmd.Author()).Detail("dry_run", true).Write(err)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("vacuum dry run: %w", err))
		}
		r := vacuumResult{DryRun: true, Pages: st.DeletedPages, Tasks: st.DeletedTasks}
		if cmd.JSON() {
			return cmd.PrintJSON(r)
		}
		fmt.Fprintf(cmd.Out(), "Trash holds %d page(s) and %d task(s)", r.Pages, r.Tasks)
		if olderThan != nil {
			fmt.Fprintf(cmd.Out(), "; only those deleted more than %s ago would be purged", olderThanFlag)
		}
		fmt.Fprintln(cmd.Out())
		return nil
	}

	if !cmd.Force() && !cmd.JSON() && !cmd.Confirm("Permanently delete soft-deleted pages and tasks? This cannot be undone.") {
		fmt.Fprintln(cmd.Out(), "Cancelled")
		return nil
	}

	n, err := e.ctx.Store().Vacuum(ctx, olderThan)
	l := log.Event("core:vacuum", "vacuum").
		Author(cmd.Author()).
		Detail("older_than", olderThanFlag).
		Detail("count", n)
	if store.IsIndexWarning(err) {
		slog.Warn("vacuum committed with stale search rows", "err", err)
		l = l.Detail("warning", err.Error())
		err = nil
	}
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vacuum: %w", err))
	}

	r := vacuumResult{Deleted: n, Extensions: map[string]int64{}}
	for _, ext := range extension.All() {
		v, ok := ext.(extension.Vacuumable)
		if !ok {
			continue
		}
		count, err := v.Vacuum(ctx, olderThan)
		log.Event("core:vacuum", "vacuum").Author(cmd.Author()).Detail("extension", ext.Name()).Detail("count", count).Write(err)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("vacuum extension %s: %w", ext.Name(), err))
		}
		if count > 0 {
			r.Extensions[ext.Name()] = count
		}
	}

	if err := e.ctx.Store().Checkpoint(ctx); err != nil {
		return cmd.PrintJSONError(fmt.Errorf("checkpoint: %w", err))
	}

	if cmd.JSON() {
		return cmd.PrintJSON(r)
	}
	fmt.Fprintf(cmd.Out(), "Vacuumed %d row(s)\n", n)
	for name, count := range r.Extensions {
		fmt.Fprintf(cmd.Out(), "Vacuumed %d row(s) from %s\n", count, name)
	}
	return nil
}
