package knowledge

import (
	"fmt"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

func (e *Extension) newBlockCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "block",
		Short: "Manage the blocks of a page",
	}

	add := &cobra.Command{
		Use:   "add <page-id>",
		Short: "Add a block to a page",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runBlockAdd,
	}
	add.Flags().String(extension.FlagType, "paragraph", "Block type")
	add.Flags().String(extension.FlagContent, "", "Text content (- for stdin)")
	add.Flags().String(extension.FlagData, "", "Block data as JSON")
	add.Flags().String(extension.FlagParent, "", "Parent block id")
	extension.PlacementFlags(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a block",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runBlockUpdate,
	}
	update.Flags().String(extension.FlagType, "", "New type")
	update.Flags().String(extension.FlagContent, "", "New text content (- for stdin)")
	update.Flags().String(extension.FlagData, "", "New block data as JSON")

	move := &cobra.Command{
		Use:   "mv <id>",
		Short: "Move a block",
		Long:  `Move a block. --parent "" makes it top-level; without --parent only --after/--before apply.`,
		Args:  cobra.ExactArgs(1),
		RunE:  e.runBlockMove,
	}
	move.Flags().String(extension.FlagParent, "", "New parent block id")
	extension.PlacementFlags(move)

	list := &cobra.Command{
		Use:     "ls <page-id>",
		Aliases: []string{"list"},
		Short:   "List a page's blocks in order",
		Long:    `List a page's blocks. --parent <id> lists that block's children; --parent "" lists top-level blocks.`,
		Args:    cobra.ExactArgs(1),
		RunE:    e.runBlockList,
	}
	list.Flags().String(extension.FlagParent, "", "Only children of this block")

	c.AddCommand(
		add, update, move, list,
		&cobra.Command{Use: "show <id>", Short: "Show a block", Args: cobra.ExactArgs(1), RunE: e.runBlockShow},
		&cobra.Command{Use: "rm <id>", Short: "Delete a block and its children", Args: cobra.ExactArgs(1), RunE: e.runBlockDelete},
		&cobra.Command{Use: "search <page-id> <query>", Short: "Search the blocks of a page", Args: cobra.ExactArgs(2), RunE: e.runBlockSearch},
	)
	return c
}

func blockEvent(action, id string) *log.Builder {
	return log.Event("knowledge:block", action).Author(cmd.Author()).Entity("block", id)
}

func (e *Extension) runBlockAdd(c *cobra.Command, args []string) error {
	typ, _ := c.Flags().GetString(extension.FlagType)
	raw, _ := c.Flags().GetString(extension.FlagContent)
	data, _ := c.Flags().GetString(extension.FlagData)
	content, err := extension.Body(raw, c.InOrStdin())
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	in := store.NewBlock{
		PageID:    args[0],
		Type:      typ,
		Content:   content,
		Data:      data,
		ParentID:  extension.OptStringFlag(c, extension.FlagParent),
		Placement: extension.Placement(c),
	}
	b, err := e.st.CreateBlock(c.Context(), in)
	err = warnIndex(err)
	id := ""
	if b != nil {
		id = b.ID
	}
	blockEvent("create", id).Detail("page", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("block add: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(b)
	}
	fmt.Fprintf(cmd.Out(), "Added block %s\n", b.ID)
	return nil
}

func (e *Extension) runBlockList(c *cobra.Command, args []string) error {
	parent := extension.OptStringFlag(c, extension.FlagParent)
	blocks, err := e.st.Blocks(c.Context(), args[0], parent)
	ev := log.Event("knowledge:block", "list").Author(cmd.Author()).Entity("page", args[0])
	if parent != nil {
		ev = ev.Detail("parent", *parent)
	}
	ev.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("block ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(blocks)
	}
	printBlocks(blocks)
	return nil
}

func printBlocks(blocks []store.Block) {
	rows := make([][]string, 0, len(blocks))
	for _, b := range blocks {
		indent := ""
		if b.ParentID != nil {
			indent = "  "
		}
		rows = append(rows, []string{b.ID, b.Type, indent + firstLine(b.Content)})
	}
	format.Table(cmd.Out(), []string{"id", "type", "content"}, rows)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + "…"
		}
	}
	return s
}

func (e *Extension) runBlockShow(c *cobra.Command, args []string) error {
	b, err := e.st.Block(c.Context(), args[0])
	blockEvent("show", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("block show %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(b)
	}
	fmt.Fprintf(cmd.Out(), "%s (%s)\n\n%s\n", b.ID, b.Type, b.Content)
	if b.Data != "" && b.Data != "{}" {
		fmt.Fprintf(cmd.Out(), "\ndata: %s\n", b.Data)
	}
	return nil
}

func (e *Extension) runBlockUpdate(c *cobra.Command, args []string) error {
	patch := store.BlockPatch{
		Type: extension.OptStringFlag(c, extension.FlagType),
		Data: extension.OptStringFlag(c, extension.FlagData),
	}
	if raw := extension.OptStringFlag(c, extension.FlagContent); raw != nil {
		body, err := extension.Body(*raw, c.InOrStdin())
		if err != nil {
			return cmd.PrintJSONError(err)
		}
		patch.Content = &body
	}
	b, err := e.st.UpdateBlock(c.Context(), args[0], patch)
	err = warnIndex(err)
	blockEvent("update", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("block update %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(b)
	}
	fmt.Fprintf(cmd.Out(), "Updated block %s\n", args[0])
	return nil
}

func (e *Extension) runBlockMove(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]
	parent := extension.OptStringFlag(c, extension.FlagParent)
	if parent == nil {
		cur, err := e.st.Block(ctx, id)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("block mv %s: %w", id, err))
		}
		parent = cur.ParentID
	} else if *parent == "" {
		parent = nil
	}
	b, err := e.st.MoveBlock(ctx, id, parent, extension.Placement(c))
	blockEvent("move", id).Detail("parent", format.Deref(parent, "")).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("block mv %s: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(b)
	}
	fmt.Fprintf(cmd.Out(), "Moved block %s\n", id)
	return nil
}

func (e *Extension) runBlockDelete(c *cobra.Command, args []string) error {
	n, err := e.st.DeleteBlock(c.Context(), args[0])
	blockEvent("delete", args[0]).Detail("count", n).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("block rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"deleted": args[0], "count": n})
	}
	fmt.Fprintf(cmd.Out(), "Deleted %d block(s)\n", n)
	return nil
}

func (e *Extension) runBlockSearch(c *cobra.Command, args []string) error {
	blocks, err := e.st.SearchBlocks(c.Context(), args[0], args[1])
	log.Event("knowledge:block", "search").Author(cmd.Author()).Entity("page", args[0]).Detail("query", args[1]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("block search: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(blocks)
	}
	printBlocks(blocks)
	return nil
}
