package book

import (
	"fmt"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

const flagChapter = "chapter"

func (e *Extension) newNoteCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "note",
		Short: "Reading notes",
	}

	add := &cobra.Command{
		Use:   "add <book> <content>",
		Short: `Add a reading note ("-" reads stdin)`,
		Args:  cobra.ExactArgs(2),
		RunE:  e.runNoteAdd,
	}
	add.Flags().String(flagChapter, "", "Chapter")
	add.Flags().Int64(extension.FlagPage, 0, "Page number")
	add.Flags().String(extension.FlagType, "note", "note, thought or summary")

	c.AddCommand(
		add,
		&cobra.Command{Use: "ls <book>", Short: "List a book's notes", Args: cobra.ExactArgs(1), RunE: e.runNoteList},
		&cobra.Command{Use: "rm <id>", Short: "Delete a note", Args: cobra.ExactArgs(1), RunE: e.runNoteDelete},
	)
	return c
}

func (e *Extension) runNoteAdd(c *cobra.Command, args []string) error {
	body, err := text(args[1])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	typ, _ := c.Flags().GetString(extension.FlagType)
	n, err := e.st.CreateReadingNote(c.Context(), store.ReadingNote{
		BookID:     args[0],
		Chapter:    extension.OptStringFlag(c, flagChapter),
		PageNumber: extension.OptInt64Flag(c, extension.FlagPage),
		Content:    body,
		NoteType:   typ,
	})
	id := ""
	if n != nil {
		id = n.ID
	}
	event("note", "create", id).Detail("book", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("note add: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(n)
	}
	fmt.Fprintf(cmd.Out(), "Added note %s\n", n.ID)
	return nil
}

func (e *Extension) runNoteList(c *cobra.Command, args []string) error {
	notes, err := e.st.ReadingNotes(c.Context(), args[0])
	event("note", "list", "").Detail("book", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("note ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(notes)
	}
	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		page := ""
		if n.PageNumber != nil {
			page = fmt.Sprint(*n.PageNumber)
		}
		rows = append(rows, []string{n.ID, n.NoteType, format.Deref(n.Chapter, ""), page, n.Content})
	}
	format.Table(cmd.Out(), []string{"id", "type", "chapter", "page", "content"}, rows)
	return nil
}

func (e *Extension) runNoteDelete(c *cobra.Command, args []string) error {
	err := e.st.DeleteReadingNote(c.Context(), args[0])
	event("note", "delete", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("note rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted note %s\n", args[0])
	return nil
}

func (e *Extension) newHighlightCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "highlight",
		Short: "Highlighted passages",
	}

	add := &cobra.Command{
		Use:   "add <book> <text>",
		Short: `Highlight a passage ("-" reads stdin)`,
		Args:  cobra.ExactArgs(2),
		RunE:  e.runHighlightAdd,
	}
	add.Flags().Int64(extension.FlagPage, 0, "Page number")
	add.Flags().String(extension.FlagColor, "", "Colour")
	add.Flags().String(extension.FlagNotes, "", "Comment")
	add.Flags().String("note", "", "Attach to this reading note")

	c.AddCommand(
		add,
		&cobra.Command{Use: "ls <book>", Short: "List a book's highlights", Args: cobra.ExactArgs(1), RunE: e.runHighlightList},
		&cobra.Command{Use: "rm <id>", Short: "Delete a highlight", Args: cobra.ExactArgs(1), RunE: e.runHighlightDelete},
	)
	return c
}

func (e *Extension) runHighlightAdd(c *cobra.Command, args []string) error {
	body, err := text(args[1])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	color, _ := c.Flags().GetString(extension.FlagColor)
	h, err := e.st.CreateHighlight(c.Context(), store.Highlight{
		BookID:     args[0],
		NoteID:     extension.OptStringFlag(c, "note"),
		Text:       body,
		PageNumber: extension.OptInt64Flag(c, extension.FlagPage),
		Color:      color,
		Notes:      extension.OptStringFlag(c, extension.FlagNotes),
	})
	id := ""
	if h != nil {
		id = h.ID
	}
	event("highlight", "create", id).Detail("book", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("highlight add: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(h)
	}
	fmt.Fprintf(cmd.Out(), "Added highlight %s\n", h.ID)
	return nil
}

func (e *Extension) runHighlightList(c *cobra.Command, args []string) error {
	hs, err := e.st.Highlights(c.Context(), args[0])
	event("highlight", "list", "").Detail("book", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("highlight ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(hs)
	}
	rows := make([][]string, 0, len(hs))
	for _, h := range hs {
		page := ""
		if h.PageNumber != nil {
			page = fmt.Sprint(*h.PageNumber)
		}
		rows = append(rows, []string{h.ID, page, h.Text})
	}
	format.Table(cmd.Out(), []string{"id", "page", "text"}, rows)
	return nil
}

func (e *Extension) runHighlightDelete(c *cobra.Command, args []string) error {
	err := e.st.DeleteHighlight(c.Context(), args[0])
	event("highlight", "delete", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("highlight rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted highlight %s\n", args[0])
	return nil
}
