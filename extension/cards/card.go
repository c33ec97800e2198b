package cards

import (
	"fmt"
	"os"
	"strings"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func (e *Extension) newCardCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "card",
		Short: "Manage cards",
	}

	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a card in a box",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runCardCreate,
	}
	create.Flags().String(extension.FlagBox, "", "Box id (required)")
	create.Flags().String(extension.FlagContent, "", `Card content ("-" reads stdin)`)
	create.Flags().String(extension.FlagColor, "", "Hex colour")
	create.Flags().StringSlice(extension.FlagTag, nil, "Tag (repeatable)")
	_ = create.MarkFlagRequired(extension.FlagBox)

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cards, pinned first",
		Args:    cobra.NoArgs,
		RunE:    e.runCardList,
	}
	ls.Flags().String(extension.FlagBox, "", "Only this box")
	ls.Flags().Bool(extension.FlagAll, false, "Include archived cards")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a card",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runCardUpdate,
	}
	update.Flags().String(extension.FlagTitle, "", "New title")
	update.Flags().String(extension.FlagContent, "", `New content ("-" reads stdin)`)
	update.Flags().String(extension.FlagColor, "", "New hex colour")
	update.Flags().StringSlice(extension.FlagTag, nil, "Replace tags (repeatable)")

	pin := &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin or unpin a card",
		Args:  cobra.ExactArgs(1),
		RunE:  e.toggle("pin", func(v bool) store.CardPatch { return store.CardPatch{IsPinned: &v} }),
	}
	pin.Flags().Bool("off", false, "Unpin")
	archive := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive or unarchive a card",
		Args:  cobra.ExactArgs(1),
		RunE:  e.toggle("archive", func(v bool) store.CardPatch { return store.CardPatch{IsArchived: &v} }),
	}
	archive.Flags().Bool("off", false, "Unarchive")

	link := &cobra.Command{
		Use:   "link <from> <to>",
		Short: "Link two cards",
		Args:  cobra.ExactArgs(2),
		RunE:  e.runCardLink,
	}
	link.Flags().String(extension.FlagType, store.DefaultCardLinkType, "Link type")

	c.AddCommand(
		create, ls, update, pin, archive, link,
		&cobra.Command{Use: "show <id>", Short: "Show a card", Args: cobra.ExactArgs(1), RunE: e.runCardShow},
		&cobra.Command{Use: "mv <id> <box>", Short: "Move a card to another box", Args: cobra.ExactArgs(2), RunE: e.runCardMove},
		&cobra.Command{Use: "rm <id>", Short: "Delete a card", Args: cobra.ExactArgs(1), RunE: e.runCardDelete},
		&cobra.Command{Use: "search <query>", Short: "Search card titles, content and tags", Args: cobra.ExactArgs(1), RunE: e.runCardSearch},
		&cobra.Command{Use: "unlink <from> <to>", Short: "Remove the link between two cards", Args: cobra.ExactArgs(2), RunE: e.runCardUnlink},
		&cobra.Command{Use: "links <id>", Short: "List a card's links", Args: cobra.ExactArgs(1), RunE: e.runCardLinks},
	)
	return c
}

func content(c *cobra.Command) (*string, error) {
	v := extension.OptStringFlag(c, extension.FlagContent)
	if v == nil {
		return nil, nil
	}
	body, err := extension.Body(*v, os.Stdin)
	if err != nil {
		return nil, err
	}
	return &body, nil
}

func printCards(cards []store.Card) {
	rows := make([][]string, 0, len(cards))
	for _, cd := range cards {
		flags := ""
		if cd.IsPinned {
			flags += "P"
		}
		if cd.IsArchived {
			flags += "A"
		}
		rows = append(rows, []string{cd.ID, flags, cd.Title, strings.Join(cd.Tags, ",")})
	}
	format.Table(cmd.Out(), []string{"id", "", "title", "tags"}, rows)
}

func (e *Extension) runCardCreate(c *cobra.Command, args []string) error {
	box, _ := c.Flags().GetString(extension.FlagBox)
	tags, _ := c.Flags().GetStringSlice(extension.FlagTag)
	body, err := content(c)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	in := store.NewCard{
		BoxID: box,
		Title: args[0],
		Color: extension.OptStringFlag(c, extension.FlagColor),
		Tags:  tags,
	}
	if body != nil {
		in.Content = *body
	}
	cd, err := e.st.CreateCard(c.Context(), in)
	id := ""
	if cd != nil {
		id = cd.ID
	}
	event("card", "create", id).Detail("box", box).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card create: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cd)
	}
	fmt.Fprintf(cmd.Out(), "Created card %s\n", cd.ID)
	return nil
}

func (e *Extension) runCardList(c *cobra.Command, _ []string) error {
	all, _ := c.Flags().GetBool(extension.FlagAll)
	f := store.CardFilter{BoxID: extension.OptStringFlag(c, extension.FlagBox), IncludeArchived: all}
	cards, err := e.st.Cards(c.Context(), f)
	event("card", "list", format.Deref(f.BoxID, "")).Detail("count", len(cards)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cards)
	}
	printCards(cards)
	return nil
}

func (e *Extension) runCardShow(c *cobra.Command, args []string) error {
	cd, err := e.st.Card(c.Context(), args[0])
	event("card", "show", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card show %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cd)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", cd.Title)
	if len(cd.Tags) > 0 {
		fmt.Fprintf(&b, "_%s_\n\n", strings.Join(cd.Tags, ", "))
	}
	b.WriteString(cd.Content)
	b.WriteString("\n")
	return format.Markdown(cmd.Out(), b.String())
}

func (e *Extension) runCardUpdate(c *cobra.Command, args []string) error {
	body, err := content(c)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	p := store.CardPatch{
		Title:   extension.OptStringFlag(c, extension.FlagTitle),
		Content: body,
		Color:   extension.OptStringFlag(c, extension.FlagColor),
	}
	if c.Flags().Changed(extension.FlagTag) {
		tags, _ := c.Flags().GetStringSlice(extension.FlagTag)
		p.Tags = &tags
	}
	cd, err := e.st.UpdateCard(c.Context(), args[0], p)
	event("card", "update", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card update %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cd)
	}
	fmt.Fprintf(cmd.Out(), "Updated card %s\n", args[0])
	return nil
}

// toggle builds the run function for pin and archive, which share an --off
// flag.
func (e *Extension) toggle(action string, patch func(bool) store.CardPatch) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		off, _ := c.Flags().GetBool("off")
		cd, err := e.st.UpdateCard(c.Context(), args[0], patch(!off))
		event("card", action, args[0]).Detail("off", off).Write(err)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("card %s %s: %w", action, args[0], err))
		}
		if cmd.JSON() {
			return cmd.PrintJSON(cd)
		}
		verb := map[string]string{"pin": "pinned", "archive": "archived"}[action]
		if off {
			verb = "un" + verb
		}
		fmt.Fprintf(cmd.Out(), "Card %s %s\n", args[0], verb)
		return nil
	}
}

func (e *Extension) runCardMove(c *cobra.Command, args []string) error {
	cd, err := e.st.MoveCard(c.Context(), args[0], args[1])
	event("card", "move", args[0]).Detail("box", args[1]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card mv %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cd)
	}
	fmt.Fprintf(cmd.Out(), "Moved card %s to box %s\n", args[0], args[1])
	return nil
}

func (e *Extension) runCardDelete(c *cobra.Command, args []string) error {
	err := e.st.DeleteCard(c.Context(), args[0])
	event("card", "delete", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted card %s\n", args[0])
	return nil
}

func (e *Extension) runCardSearch(c *cobra.Command, args []string) error {
	cards, err := e.st.SearchCards(c.Context(), args[0])
	event("card", "search", "").Detail("query", args[0]).Detail("count", len(cards)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card search: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cards)
	}
	printCards(cards)
	return nil
}

func (e *Extension) runCardLink(c *cobra.Command, args []string) error {
	typ, _ := c.Flags().GetString(extension.FlagType)
	l, err := e.st.LinkCards(c.Context(), args[0], args[1], typ)
	event("card", "link", args[0]).Detail("to", args[1]).Detail("type", typ).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card link: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(l)
	}
	fmt.Fprintf(cmd.Out(), "Linked %s -> %s (%s)\n", l.SourceID, l.TargetID, l.LinkType)
	return nil
}

func (e *Extension) runCardUnlink(c *cobra.Command, args []string) error {
	err := e.st.UnlinkCards(c.Context(), args[0], args[1])
	event("card", "unlink", args[0]).Detail("to", args[1]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card unlink: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"from": args[0], "to": args[1]})
	}
	fmt.Fprintf(cmd.Out(), "Unlinked %s -> %s\n", args[0], args[1])
	return nil
}

func (e *Extension) runCardLinks(c *cobra.Command, args []string) error {
	links, err := e.st.CardLinks(c.Context(), args[0])
	event("card", "links", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("card links %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(links)
	}
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		rows = append(rows, []string{l.SourceID, l.TargetID, l.LinkType})
	}
	format.Table(cmd.Out(), []string{"from", "to", "type"}, rows)
	return nil
}
