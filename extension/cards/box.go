package cards

import (
	"fmt"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func (e *Extension) newBoxCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "box",
		Short: "Manage card boxes",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a card box",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runBoxCreate,
	}
	create.Flags().String(extension.FlagDescription, "", "Description")
	create.Flags().String(extension.FlagColor, "", "Hex colour (#rrggbb)")
	create.Flags().String(extension.FlagIcon, "", "Icon")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a card box",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runBoxUpdate,
	}
	update.Flags().String(extension.FlagName, "", "New name")
	update.Flags().String(extension.FlagDescription, "", "New description")
	update.Flags().String(extension.FlagColor, "", "New hex colour")
	update.Flags().String(extension.FlagIcon, "", "New icon")

	c.AddCommand(
		create, update,
		&cobra.Command{Use: "ls", Aliases: []string{"list"}, Short: "List card boxes", Args: cobra.NoArgs, RunE: e.runBoxList},
		&cobra.Command{Use: "show <id>", Short: "Show a card box", Args: cobra.ExactArgs(1), RunE: e.runBoxShow},
		&cobra.Command{Use: "rm <id>", Short: "Delete an empty card box", Args: cobra.ExactArgs(1), RunE: e.runBoxDelete},
		&cobra.Command{Use: "check", Short: "Compare stored card counts with actual counts", Args: cobra.NoArgs, RunE: e.runBoxCheck},
	)
	return c
}

func (e *Extension) runBoxCreate(c *cobra.Command, args []string) error {
	b, err := e.st.CreateCardBox(c.Context(), store.NewCardBox{
		Name:        args[0],
		Description: extension.OptStringFlag(c, extension.FlagDescription),
		Color:       extension.OptStringFlag(c, extension.FlagColor),
		Icon:        extension.OptStringFlag(c, extension.FlagIcon),
	})
	id := ""
	if b != nil {
		id = b.ID
	}
	event("box", "create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("box create: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(b)
	}
	fmt.Fprintf(cmd.Out(), "Created box %s (%s)\n", b.Name, b.ID)
	return nil
}

func (e *Extension) runBoxList(c *cobra.Command, _ []string) error {
	boxes, err := e.st.CardBoxes(c.Context())
	event("box", "list", "").Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("box ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(boxes)
	}
	rows := make([][]string, 0, len(boxes))
	for _, b := range boxes {
		rows = append(rows, []string{b.ID, format.Deref(b.Icon, "") + " " + b.Name, fmt.Sprint(b.CardsCount)})
	}
	format.Table(cmd.Out(), []string{"id", "name", "cards"}, rows)
	return nil
}

func (e *Extension) runBoxShow(c *cobra.Command, args []string) error {
	ctx := c.Context()
	l := event("box", "show", args[0])
	b, err := e.st.CardBox(ctx, args[0])
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("box show %s: %w", args[0], err))
	}
	cards, err := e.st.Cards(ctx, store.CardFilter{BoxID: &b.ID})
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("box show %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"box": b, "cards": cards})
	}
	fmt.Fprintf(cmd.Out(), "%s %s (%d cards)\n", format.Deref(b.Icon, ""), b.Name, b.CardsCount)
	if b.Description != nil {
		fmt.Fprintln(cmd.Out(), *b.Description)
	}
	fmt.Fprintln(cmd.Out())
	printCards(cards)
	return nil
}

func (e *Extension) runBoxUpdate(c *cobra.Command, args []string) error {
	b, err := e.st.UpdateCardBox(c.Context(), args[0], store.CardBoxPatch{
		Name:        extension.OptStringFlag(c, extension.FlagName),
		Description: extension.OptStringFlag(c, extension.FlagDescription),
		Color:       extension.OptStringFlag(c, extension.FlagColor),
		Icon:        extension.OptStringFlag(c, extension.FlagIcon),
	})
	event("box", "update", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("box update %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(b)
	}
	fmt.Fprintf(cmd.Out(), "Updated box %s\n", args[0])
	return nil
}

func (e *Extension) runBoxDelete(c *cobra.Command, args []string) error {
	err := e.st.DeleteCardBox(c.Context(), args[0])
	event("box", "delete", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("box rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted box %s\n", args[0])
	return nil
}

func (e *Extension) runBoxCheck(c *cobra.Command, _ []string) error {
	counts, err := e.st.CheckCardCounts(c.Context())
	event("box", "check", "").Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("box check: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(counts)
	}
	rows := make([][]string, 0, len(counts))
	for _, bc := range counts {
		status := "ok"
		if bc.Stored != bc.Actual {
			status = "MISMATCH"
		}
		rows = append(rows, []string{bc.BoxID, bc.Name, fmt.Sprint(bc.Stored), fmt.Sprint(bc.Actual), status})
	}
	format.Table(cmd.Out(), []string{"id", "name", "stored", "actual", "status"}, rows)
	return nil
}
