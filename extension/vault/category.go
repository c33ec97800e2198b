package vault

import (
	"fmt"
	"strconv"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func categoryEvent(action string, id int64) *log.Builder {
	l := log.Event("vault:category", action).Author(cmd.Author())
	if id > 0 {
		l = l.Entity("password_category", strconv.FormatInt(id, 10))
	}
	return l
}

func (e *Extension) newCategoryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "category",
		Short: "Manage credential categories",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runCategoryCreate,
	}
	create.Flags().String(extension.FlagIcon, "", "Icon")
	create.Flags().String(extension.FlagColor, "", "Hex colour")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a category",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runCategoryUpdate,
	}
	update.Flags().String(extension.FlagName, "", "New name")
	update.Flags().String(extension.FlagIcon, "", "New icon")
	update.Flags().String(extension.FlagColor, "", "New hex colour")

	c.AddCommand(
		create, update,
		&cobra.Command{Use: "ls", Aliases: []string{"list"}, Short: "List categories", Args: cobra.NoArgs, RunE: e.runCategoryList},
		&cobra.Command{Use: "rm <id>", Short: "Delete a category, keeping its entries", Args: cobra.ExactArgs(1), RunE: e.runCategoryDelete},
	)
	return c
}

func (e *Extension) runCategoryCreate(c *cobra.Command, args []string) error {
	icon, _ := c.Flags().GetString(extension.FlagIcon)
	cat, err := e.st.CreatePasswordCategory(c.Context(), store.NewPasswordCategory{
		Name:  args[0],
		Icon:  icon,
		Color: extension.OptStringFlag(c, extension.FlagColor),
	})
	var id int64
	if cat != nil {
		id = cat.ID
	}
	categoryEvent("create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("category create: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cat)
	}
	fmt.Fprintf(cmd.Out(), "Created category %s (%d)\n", cat.Name, cat.ID)
	return nil
}

func (e *Extension) runCategoryList(c *cobra.Command, _ []string) error {
	cats, err := e.st.PasswordCategories(c.Context())
	categoryEvent("list", 0).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("category ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cats)
	}
	rows := make([][]string, 0, len(cats))
	for _, ct := range cats {
		rows = append(rows, []string{fmt.Sprint(ct.ID), ct.Icon + " " + ct.Name, fmt.Sprint(ct.Entries)})
	}
	format.Table(cmd.Out(), []string{"id", "name", "entries"}, rows)
	return nil
}

func (e *Extension) runCategoryUpdate(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	cat, err := e.st.UpdatePasswordCategory(c.Context(), id, store.PasswordCategoryPatch{
		Name:  extension.OptStringFlag(c, extension.FlagName),
		Icon:  extension.OptStringFlag(c, extension.FlagIcon),
		Color: extension.OptStringFlag(c, extension.FlagColor),
	})
	categoryEvent("update", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("category update %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cat)
	}
	fmt.Fprintf(cmd.Out(), "Updated category %d\n", id)
	return nil
}

func (e *Extension) runCategoryDelete(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	err = e.st.DeletePasswordCategory(c.Context(), id)
	categoryEvent("delete", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("category rm %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int64{"deleted": id})
	}
	fmt.Fprintf(cmd.Out(), "Deleted category %d\n", id)
	return nil
}
