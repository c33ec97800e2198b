// Package book provides the reading list extension for pim.
// It registers commands: book.
package book

import (
	"fmt"
	"os"
	"strings"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the book extension.
type Extension struct {
	st store.Store
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "book".
func (e *Extension) Name() string { return "book" }

// Init receives the shared store.
func (e *Extension) Init(ctx extension.Context) error {
	e.st = ctx.Store()
	return nil
}

// Commands returns the book command.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{e.newBookCmd()}
}

// MCPTools returns the book tools.
func (e *Extension) MCPTools() []extension.MCPTool {
	return tools()
}

func event(kind, action, id string) *log.Builder {
	l := log.Event("book:"+kind, action).Author(cmd.Author())
	if id != "" {
		l = l.Entity(kind, id)
	}
	return l
}

func (e *Extension) newBookCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "book",
		Short: "Keep a reading list with notes and highlights",
	}

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a book",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runAdd,
	}
	add.Flags().String(extension.FlagAuthor, "", "Author")
	add.Flags().String(extension.FlagISBN, "", "ISBN")
	add.Flags().String(extension.FlagStatus, "", "wanted, reading or finished (default wanted)")
	add.Flags().Int64(extension.FlagPages, 0, "Total pages")
	add.Flags().String(extension.FlagDescription, "", "Description")
	add.Flags().StringSlice(extension.FlagTag, nil, "Tag (repeatable)")

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List books",
		Args:    cobra.NoArgs,
		RunE:    e.runList,
	}
	ls.Flags().String(extension.FlagStatus, "", "Only this status")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a book or record reading progress",
		Long: `Change a book. Moving to reading stamps the start date and moving to
finished stamps the finish date.`,
		Args: cobra.ExactArgs(1),
		RunE: e.runUpdate,
	}
	update.Flags().String(extension.FlagTitle, "", "New title")
	update.Flags().String(extension.FlagAuthor, "", "New author")
	update.Flags().String(extension.FlagISBN, "", "New ISBN")
	update.Flags().String(extension.FlagStatus, "", "New status")
	update.Flags().Int64(extension.FlagPages, 0, "Total pages")
	update.Flags().Int64(extension.FlagPage, 0, "Current page")
	update.Flags().Int64(extension.FlagRating, 0, "Rating 0-5")
	update.Flags().String(extension.FlagDescription, "", "New description")
	update.Flags().StringSlice(extension.FlagTag, nil, "Replace tags (repeatable)")

	c.AddCommand(
		add, ls, update,
		&cobra.Command{Use: "show <id>", Short: "Show a book with its notes and highlights", Args: cobra.ExactArgs(1), RunE: e.runShow},
		&cobra.Command{Use: "rm <id>", Short: "Delete a book with its notes and highlights", Args: cobra.ExactArgs(1), RunE: e.runDelete},
		&cobra.Command{Use: "search <query>", Short: "Search titles, authors, descriptions and tags", Args: cobra.ExactArgs(1), RunE: e.runSearch},
		e.newNoteCmd(),
		e.newHighlightCmd(),
	)
	return c
}

func printBooks(bs []store.Book) {
	rows := make([][]string, 0, len(bs))
	for _, b := range bs {
		progress := ""
		if b.TotalPages != nil && *b.TotalPages > 0 {
			progress = fmt.Sprintf("%d/%d", b.CurrentPage, *b.TotalPages)
		}
		rating := ""
		if b.Rating != nil {
			rating = strings.Repeat("*", int(*b.Rating))
		}
		rows = append(rows, []string{b.ID, b.Status, b.Title, format.Deref(b.Author, ""), progress, rating})
	}
	format.Table(cmd.Out(), []string{"id", "status", "title", "author", "progress", "rating"}, rows)
}

func (e *Extension) runAdd(c *cobra.Command, args []string) error {
	status, _ := c.Flags().GetString(extension.FlagStatus)
	tags, _ := c.Flags().GetStringSlice(extension.FlagTag)
	b, err := e.st.CreateBook(c.Context(), store.NewBook{
		Title:       args[0],
		Author:      extension.OptStringFlag(c, extension.FlagAuthor),
		ISBN:        extension.OptStringFlag(c, extension.FlagISBN),
		Status:      status,
		TotalPages:  extension.OptInt64Flag(c, extension.FlagPages),
		Tags:        tags,
		Description: extension.OptStringFlag(c, extension.FlagDescription),
	})
	id := ""
	if b != nil {
		id = b.ID
	}
	event("book", "create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("book add: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(b)
	}
	fmt.Fprintf(cmd.Out(), "Added %s (%s)\n", b.Title, b.ID)
	return nil
}

func (e *Extension) runList(c *cobra.Command, _ []string) error {
	bs, err := e.st.Books(c.Context(), extension.OptStringFlag(c, extension.FlagStatus))
	event("book", "list", "").Detail("count", len(bs)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("book ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(bs)
	}
	printBooks(bs)
	return nil
}

func (e *Extension) runSearch(c *cobra.Command, args []string) error {
	bs, err := e.st.SearchBooks(c.Context(), args[0])
	event("book", "search", "").Detail("query", args[0]).Detail("count", len(bs)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("book search: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(bs)
	}
	printBooks(bs)
	return nil
}

func (e *Extension) runShow(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]
	l := event("book", "show", id)
	b, err := e.st.Book(ctx, id)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("book show %s: %w", id, err))
	}
	notes, err := e.st.ReadingNotes(ctx, id)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("book show %s: %w", id, err))
	}
	hs, err := e.st.Highlights(ctx, id)
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("book show %s: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"book": b, "notes": notes, "highlights": hs})
	}
	return format.Markdown(cmd.Out(), bookMarkdown(b, notes, hs))
}

func bookMarkdown(b *store.Book, notes []store.ReadingNote, hs []store.Highlight) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	if b.Author != nil {
		fmt.Fprintf(&sb, "_by %s_\n\n", *b.Author)
	}
	fmt.Fprintf(&sb, "Status: %s", b.Status)
	if b.TotalPages != nil && *b.TotalPages > 0 {
		fmt.Fprintf(&sb, ", page %d of %d", b.CurrentPage, *b.TotalPages)
	}
	if b.Rating != nil {
		fmt.Fprintf(&sb, ", rated %d/5", *b.Rating)
	}
	sb.WriteString("\n\n")
	if b.Description != nil && *b.Description != "" {
		sb.WriteString(*b.Description + "\n\n")
	}
	if len(notes) > 0 {
		sb.WriteString("## Notes\n\n")
		for _, n := range notes {
			where := n.NoteType
			if n.Chapter != nil {
				where += ", " + *n.Chapter
			}
			if n.PageNumber != nil {
				where += fmt.Sprintf(", p.%d", *n.PageNumber)
			}
			fmt.Fprintf(&sb, "- **%s** (%s): %s\n", n.ID, where, n.Content)
		}
		sb.WriteString("\n")
	}
	if len(hs) > 0 {
		sb.WriteString("## Highlights\n\n")
		for _, h := range hs {
			fmt.Fprintf(&sb, "> %s\n", h.Text)
			if h.PageNumber != nil {
				fmt.Fprintf(&sb, ">\n> p.%d\n", *h.PageNumber)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (e *Extension) runUpdate(c *cobra.Command, args []string) error {
	p := store.BookPatch{
		Title:       extension.OptStringFlag(c, extension.FlagTitle),
		Author:      extension.OptStringFlag(c, extension.FlagAuthor),
		ISBN:        extension.OptStringFlag(c, extension.FlagISBN),
		Status:      extension.OptStringFlag(c, extension.FlagStatus),
		TotalPages:  extension.OptInt64Flag(c, extension.FlagPages),
		CurrentPage: extension.OptInt64Flag(c, extension.FlagPage),
		Rating:      extension.OptInt64Flag(c, extension.FlagRating),
		Description: extension.OptStringFlag(c, extension.FlagDescription),
	}
	if c.Flags().Changed(extension.FlagTag) {
		tags, _ := c.Flags().GetStringSlice(extension.FlagTag)
		p.Tags = &tags
	}
	b, err := e.st.UpdateBook(c.Context(), args[0], p)
	event("book", "update", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("book update %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(b)
	}
	fmt.Fprintf(cmd.Out(), "Updated %s\n", args[0])
	return nil
}

func (e *Extension) runDelete(c *cobra.Command, args []string) error {
	if !cmd.Force() && !cmd.Confirm(fmt.Sprintf("Delete book %s with its notes and highlights?", args[0])) {
		return nil
	}
	err := e.st.DeleteBook(c.Context(), args[0])
	event("book", "delete", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("book rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted book %s\n", args[0])
	return nil
}

// text reads a positional body argument; "-" reads stdin.
func text(arg string) (string, error) {
	return extension.Body(arg, os.Stdin)
}
