package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/diff"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/validate"
	"github.com/spf13/cobra"
)

func (e *Extension) newPageCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "page",
		Short: "Manage pages, versions, links and tags",
		Long: `Pages live in a knowledge base and nest under other pages.

Content is stored as an Editor.js document. Plain text given with --content
is converted: blank lines separate paragraphs and "# " lines become headers.
Use --content - to read standard input.`,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a page",
		Args:  cobra.NoArgs,
		RunE:  e.runPageCreate,
	}
	create.Flags().String(extension.FlagKB, "", "Knowledge base id (required)")
	create.Flags().String(extension.FlagTitle, "", "Title")
	create.Flags().String(extension.FlagParent, "", "Parent page id")
	create.Flags().String(extension.FlagContent, "", "Content (- for stdin)")
	extension.PlacementFlags(create)
	_ = create.MarkFlagRequired(extension.FlagKB)

	list := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List pages of a knowledge base",
		Args:    cobra.NoArgs,
		RunE:    e.runPageList,
	}
	list.Flags().String(extension.FlagKB, "", "Knowledge base id (required)")
	list.Flags().String(extension.FlagParent, "", "List children of this page")
	list.Flags().Bool(extension.FlagTree, false, "Show the whole hierarchy")
	list.Flags().Bool(extension.FlagDeleted, false, "Show pages in the trash")
	_ = list.MarkFlagRequired(extension.FlagKB)

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show page content",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runPageShow,
	}
	show.Flags().Bool(extension.FlagRaw, false, "Print the stored Editor.js JSON")
	show.Flags().Int(extension.FlagVersion, 0, "Show a stored version")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a page's title or content",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runPageEdit,
	}
	edit.Flags().String(extension.FlagTitle, "", "New title")
	edit.Flags().String(extension.FlagContent, "", "New content (- for stdin)")
	edit.Flags().Bool(extension.FlagSnapshot, false, "Record the new content as a version")

	move := &cobra.Command{
		Use:   "mv <id>",
		Short: "Move a page under another parent or among its siblings",
		Long: `Move a page. --parent "" moves it to the root of its knowledge base;
without --parent the page stays under its current parent and only
--after/--before apply.`,
		Args: cobra.ExactArgs(1),
		RunE: e.runPageMove,
	}
	move.Flags().String(extension.FlagParent, "", "New parent page id")
	extension.PlacementFlags(move)

	diffCmd := &cobra.Command{
		Use:   "diff <id>",
		Short: "Compare page versions",
		Long: `Compare two versions of a page, or a version with the current content.

  pim page diff <id>                  # latest version vs current
  pim page diff <id> --versions 2:5   # version 2 vs version 5
  pim page diff <id> --versions 3:    # version 3 vs current`,
		Args: cobra.ExactArgs(1),
		RunE: e.runPageDiff,
	}
	diffCmd.Flags().String(extension.FlagVersions, "", "Version range a:b")

	c.AddCommand(
		create, list, show, edit, move, diffCmd,
		&cobra.Command{Use: "rm <id>", Short: "Move a page and its subpages to the trash", Args: cobra.ExactArgs(1), RunE: e.runPageDelete},
		&cobra.Command{Use: "restore <id>", Short: "Restore a page from the trash", Args: cobra.ExactArgs(1), RunE: e.runPageRestore},
		&cobra.Command{Use: "versions <id>", Short: "List stored versions", Args: cobra.ExactArgs(1), RunE: e.runPageVersions},
		&cobra.Command{Use: "path <id>", Short: "Show the ancestors of a page", Args: cobra.ExactArgs(1), RunE: e.runPagePath},
		&cobra.Command{Use: "search <query>", Short: "Find pages by title", Args: cobra.ExactArgs(1), RunE: e.runPageSearch},
		&cobra.Command{Use: "link <from> <to>", Short: "Link one page to another", Args: cobra.ExactArgs(2), RunE: e.runPageLink},
		&cobra.Command{Use: "unlink <from> <to>", Short: "Remove a page link", Args: cobra.ExactArgs(2), RunE: e.runPageUnlink},
		&cobra.Command{Use: "links <id>", Short: "Show outgoing links and backlinks", Args: cobra.ExactArgs(1), RunE: e.runPageLinks},
		&cobra.Command{Use: "tag <id> <tag>", Short: "Tag a page", Args: cobra.ExactArgs(2), RunE: e.runPageTag},
		&cobra.Command{Use: "untag <id> <tag>", Short: "Remove a tag from a page", Args: cobra.ExactArgs(2), RunE: e.runPageUntag},
		&cobra.Command{Use: "tags [id]", Short: "List a page's tags, or every tag with its page count", Args: cobra.MaximumNArgs(1), RunE: e.runPageTags},
		&cobra.Command{Use: "tagged <tag>", Short: "List pages with a tag", Args: cobra.ExactArgs(1), RunE: e.runPageTagged},
	)
	return c
}

func pageEvent(action, id string) *log.Builder {
	return log.Event("knowledge:page", action).Author(cmd.Author()).Entity("page", id)
}

// warnIndex clears a search-index warning: the entity was saved and the
// store has already logged the warning.
func warnIndex(err error) error {
	if store.IsIndexWarning(err) {
		return nil
	}
	return err
}

func (e *Extension) runPageCreate(c *cobra.Command, _ []string) error {
	kb, _ := c.Flags().GetString(extension.FlagKB)
	title, _ := c.Flags().GetString(extension.FlagTitle)
	in := store.NewPage{
		KBID:      kb,
		Title:     title,
		ParentID:  extension.OptStringFlag(c, extension.FlagParent),
		Placement: extension.Placement(c),
	}
	if raw := extension.OptStringFlag(c, extension.FlagContent); raw != nil {
		body, err := extension.Body(*raw, c.InOrStdin())
		if err != nil {
			return cmd.PrintJSONError(err)
		}
		content := format.EditorJSON(body)
		in.Content = &content
	}

	p, err := e.st.CreatePage(c.Context(), in)
	err = warnIndex(err)
	id := ""
	if p != nil {
		id = p.ID
	}
	pageEvent("create", id).Detail("kb", kb).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page create: %w", err))
	}
	extension.Fire(e.ctx, extension.PageWriteEvent{PageID: id, KBID: kb, Author: cmd.Author(), Created: true})
	if cmd.JSON() {
		return cmd.PrintJSON(p)
	}
	fmt.Fprintf(cmd.Out(), "Created page %s\n", p.ID)
	return nil
}

func (e *Extension) runPageList(c *cobra.Command, _ []string) error {
	ctx := c.Context()
	kb, _ := c.Flags().GetString(extension.FlagKB)
	tree, _ := c.Flags().GetBool(extension.FlagTree)
	deleted, _ := c.Flags().GetBool(extension.FlagDeleted)

	l := log.Event("knowledge:page", "list").Author(cmd.Author()).Entity("knowledge_base", kb)
	if tree {
		nodes, err := e.st.PageTree(ctx, kb)
		l.Write(err)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("page ls: %w", err))
		}
		if cmd.JSON() {
			return cmd.PrintJSON(nodes)
		}
		format.Tree(cmd.Out(), nodes)
		return nil
	}

	var pages []store.Page
	var err error
	if deleted {
		pages, err = e.st.DeletedPages(ctx, kb)
	} else {
		pages, err = e.st.Pages(ctx, kb, extension.OptStringFlag(c, extension.FlagParent))
	}
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(pages)
	}
	printPages(pages)
	return nil
}

func printPages(pages []store.Page) {
	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		title := p.Title
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{p.ID, title})
	}
	format.Table(cmd.Out(), []string{"id", "title"}, rows)
}

func (e *Extension) runPageShow(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]
	raw, _ := c.Flags().GetBool(extension.FlagRaw)
	v, _ := c.Flags().GetInt(extension.FlagVersion)

	l := pageEvent("show", id).Detail("version", v)
	p, err := e.st.Page(ctx, id, false)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("page show %s: %w", id, err))
	}
	var content string
	if v > 0 {
		var pv *store.PageVersion
		pv, err = e.st.PageVersion(ctx, id, v)
		if pv != nil {
			content = pv.Content
		}
	} else {
		content, err = e.st.PageContent(ctx, id)
	}
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page show %s: %w", id, err))
	}

	if cmd.JSON() {
		p.Content = &content
		return cmd.PrintJSON(p)
	}
	if raw {
		fmt.Fprintln(cmd.Out(), content)
		return nil
	}
	return format.Markdown(cmd.Out(), format.PageMarkdown(p.Title, content))
}

func (e *Extension) runPageEdit(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]
	snapshot, _ := c.Flags().GetBool(extension.FlagSnapshot)
	title := extension.OptStringFlag(c, extension.FlagTitle)
	raw := extension.OptStringFlag(c, extension.FlagContent)
	if title == nil && raw == nil {
		return cmd.PrintJSONError(fmt.Errorf("page edit %s: nothing to change (use --title or --content)", id))
	}

	l := pageEvent("edit", id).Detail("snapshot", snapshot)
	if title != nil {
		if _, err := e.st.UpdatePage(ctx, id, store.PagePatch{Title: title}); warnIndex(err) != nil {
			l.Write(err)
			return cmd.PrintJSONError(fmt.Errorf("page edit %s: %w", id, err))
		}
	}

	version := 0
	if raw != nil {
		body, err := extension.Body(*raw, c.InOrStdin())
		if err != nil {
			return cmd.PrintJSONError(err)
		}
		version, err = e.st.SavePageContent(ctx, id, format.EditorJSON(body), snapshot)
		if err = warnIndex(err); err != nil {
			l.Write(err)
			return cmd.PrintJSONError(fmt.Errorf("page edit %s: %w", id, err))
		}
	}
	l.Detail("version", version).Write(nil)
	extension.Fire(e.ctx, extension.PageWriteEvent{PageID: id, Author: cmd.Author()})

	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"id": id, "version": version})
	}
	if version > 0 {
		fmt.Fprintf(cmd.Out(), "Saved page %s as version %d\n", id, version)
	} else {
		fmt.Fprintf(cmd.Out(), "Saved page %s\n", id)
	}
	return nil
}

func (e *Extension) runPageMove(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]
	parent, err := e.targetParent(ctx, c, id)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page mv %s: %w", id, err))
	}
	p, err := e.st.MovePage(ctx, id, parent, extension.Placement(c))
	pageEvent("move", id).Detail("parent", format.Deref(parent, "")).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page mv %s: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(p)
	}
	fmt.Fprintf(cmd.Out(), "Moved page %s\n", id)
	return nil
}

// targetParent reads --parent: absent keeps the current parent, empty
// means the root.
func (e *Extension) targetParent(ctx context.Context, c *cobra.Command, id string) (*string, error) {
	flag := extension.OptStringFlag(c, extension.FlagParent)
	if flag == nil {
		p, err := e.st.Page(ctx, id, false)
		if err != nil {
			return nil, err
		}
		return p.ParentID, nil
	}
	if *flag == "" {
		return nil, nil
	}
	return flag, nil
}

func (e *Extension) runPageDelete(c *cobra.Command, args []string) error {
	n, err := e.st.DeletePage(c.Context(), args[0])
	pageEvent("delete", args[0]).Detail("count", n).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page rm %s: %w", args[0], err))
	}
	extension.Fire(e.ctx, extension.PageDeleteEvent{PageID: args[0], Count: n})
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"deleted": args[0], "count": n})
	}
	fmt.Fprintf(cmd.Out(), "Moved %d page(s) to the trash\n", n)
	return nil
}

func (e *Extension) runPageRestore(c *cobra.Command, args []string) error {
	p, err := e.st.RestorePage(c.Context(), args[0])
	err = warnIndex(err)
	pageEvent("restore", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page restore %s: %w", args[0], err))
	}
	extension.Fire(e.ctx, extension.PageRestoreEvent{PageID: args[0]})
	if cmd.JSON() {
		return cmd.PrintJSON(p)
	}
	fmt.Fprintf(cmd.Out(), "Restored page %s\n", args[0])
	return nil
}

func (e *Extension) runPageVersions(c *cobra.Command, args []string) error {
	vs, err := e.st.PageVersions(c.Context(), args[0])
	pageEvent("versions", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page versions %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(vs)
	}
	rows := make([][]string, 0, len(vs))
	for _, v := range vs {
		rows = append(rows, []string{
			fmt.Sprint(v.Version),
			format.Unix(v.CreatedAt),
			format.Deref(v.CreatedBy, "-"),
		})
	}
	format.Table(cmd.Out(), []string{"version", "created", "author"}, rows)
	return nil
}

func (e *Extension) runPageDiff(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]
	versions, _ := c.Flags().GetString(extension.FlagVersions)

	l := pageEvent("diff", id).Detail("versions", versions)
	r, err := e.pageDiff(ctx, id, versions)
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page diff %s: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(r)
	}
	if !r.Changed() {
		fmt.Fprintln(cmd.Out(), "No differences")
		return nil
	}
	fmt.Fprint(cmd.Out(), r.Format(format.IsTerminal(cmd.Out())))
	return nil
}

// pageDiff compares the markdown rendering of two versions. Version 0 is
// the current content; an empty range compares the latest version with it.
func (e *Extension) pageDiff(ctx context.Context, id, versions string) (diff.Result, error) {
	var v1, v2 int
	if versions == "" {
		vs, err := e.st.PageVersions(ctx, id)
		if err != nil {
			return diff.Result{}, err
		}
		if len(vs) == 0 {
			return diff.Result{}, fmt.Errorf("page %s has no stored versions", id)
		}
		v1 = vs[0].Version
		for _, v := range vs {
			v1 = max(v1, v.Version)
		}
	} else {
		var err error
		if v1, v2, err = diff.ParseVersionRange(versions); err != nil {
			return diff.Result{}, err
		}
	}

	text := func(v int) (string, string, error) {
		if v == 0 {
			c, err := e.st.PageContent(ctx, id)
			return format.PageMarkdown("", c), "current", err
		}
		pv, err := e.st.PageVersion(ctx, id, v)
		if err != nil {
			return "", "", err
		}
		return format.PageMarkdown("", pv.Content), fmt.Sprintf("v%d", v), nil
	}
	oldText, oldLabel, err := text(v1)
	if err != nil {
		return diff.Result{}, err
	}
	newText, newLabel, err := text(v2)
	if err != nil {
		return diff.Result{}, err
	}
	return diff.Compute(oldText, newText, oldLabel, newLabel), nil
}

func (e *Extension) runPagePath(c *cobra.Command, args []string) error {
	crumbs, err := e.st.Breadcrumb(c.Context(), args[0])
	pageEvent("path", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page path %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(crumbs)
	}
	titles := make([]string, 0, len(crumbs))
	for _, p := range crumbs {
		titles = append(titles, p.Title)
	}
	fmt.Fprintln(cmd.Out(), strings.Join(titles, " / "))
	return nil
}

func (e *Extension) runPageSearch(c *cobra.Command, args []string) error {
	pages, err := e.st.SearchPages(c.Context(), args[0])
	log.Event("knowledge:page", "search").Author(cmd.Author()).Detail("query", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page search: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(pages)
	}
	printPages(pages)
	return nil
}

func (e *Extension) runPageLink(c *cobra.Command, args []string) error {
	err := validate.Link(args[0], args[1])
	if err == nil {
		err = e.st.LinkPages(c.Context(), args[0], args[1])
	}
	pageEvent("link", args[0]).Detail("to", args[1]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page link: %w", err))
	}
	extension.Fire(e.ctx, extension.LinkEvent{From: args[0], To: args[1], Created: true})
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"from": args[0], "to": args[1]})
	}
	fmt.Fprintf(cmd.Out(), "Linked %s -> %s\n", args[0], args[1])
	return nil
}

func (e *Extension) runPageUnlink(c *cobra.Command, args []string) error {
	err := e.st.UnlinkPages(c.Context(), args[0], args[1])
	pageEvent("unlink", args[0]).Detail("to", args[1]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page unlink: %w", err))
	}
	extension.Fire(e.ctx, extension.LinkEvent{From: args[0], To: args[1]})
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"from": args[0], "to": args[1]})
	}
	fmt.Fprintf(cmd.Out(), "Unlinked %s -> %s\n", args[0], args[1])
	return nil
}

func (e *Extension) runPageLinks(c *cobra.Command, args []string) error {
	ctx := c.Context()
	l := pageEvent("links", args[0])
	out, err := e.st.PageLinks(ctx, args[0])
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("page links %s: %w", args[0], err))
	}
	back, err := e.st.Backlinks(ctx, args[0])
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page links %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string][]store.Page{"links": out, "backlinks": back})
	}
	fmt.Fprintln(cmd.Out(), "Links:")
	printPages(out)
	fmt.Fprintln(cmd.Out(), "\nBacklinks:")
	printPages(back)
	return nil
}

func (e *Extension) runPageTag(c *cobra.Command, args []string) error {
	tag, err := validate.Tag(args[1])
	if err == nil {
		err = e.st.TagPage(c.Context(), args[0], tag)
	}
	pageEvent("tag", args[0]).Detail("tag", args[1]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page tag: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"page": args[0], "tag": tag})
	}
	fmt.Fprintf(cmd.Out(), "Tagged %s with %s\n", args[0], tag)
	return nil
}

func (e *Extension) runPageUntag(c *cobra.Command, args []string) error {
	err := e.st.UntagPage(c.Context(), args[0], args[1])
	pageEvent("untag", args[0]).Detail("tag", args[1]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page untag: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"page": args[0], "tag": args[1]})
	}
	fmt.Fprintf(cmd.Out(), "Removed tag %s from %s\n", args[1], args[0])
	return nil
}

func (e *Extension) runPageTags(c *cobra.Command, args []string) error {
	ctx := c.Context()
	if len(args) == 1 {
		tags, err := e.st.PageTags(ctx, args[0])
		pageEvent("tags", args[0]).Write(err)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("page tags %s: %w", args[0], err))
		}
		if cmd.JSON() {
			return cmd.PrintJSON(tags)
		}
		for _, t := range tags {
			fmt.Fprintln(cmd.Out(), t)
		}
		return nil
	}

	tags, err := e.st.Tags(ctx)
	log.Event("knowledge:page", "tags").Author(cmd.Author()).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page tags: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(tags)
	}
	rows := make([][]string, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, []string{t.Name, fmt.Sprint(t.Pages)})
	}
	format.Table(cmd.Out(), []string{"tag", "pages"}, rows)
	return nil
}

func (e *Extension) runPageTagged(c *cobra.Command, args []string) error {
	pages, err := e.st.PagesByTag(c.Context(), args[0])
	log.Event("knowledge:page", "tagged").Author(cmd.Author()).Detail("tag", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("page tagged %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(pages)
	}
	printPages(pages)
	return nil
}
