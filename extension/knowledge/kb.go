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

func (e *Extension) newKBCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "kb",
		Short: "Manage knowledge bases",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runKBCreate,
	}
	create.Flags().String(extension.FlagIcon, "", "Icon (default 📚)")
	create.Flags().String(extension.FlagDescription, "", "Description")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or describe a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runKBUpdate,
	}
	update.Flags().String(extension.FlagName, "", "New name")
	update.Flags().String(extension.FlagIcon, "", "New icon")
	update.Flags().String(extension.FlagDescription, "", "New description")

	c.AddCommand(
		create,
		&cobra.Command{
			Use:     "ls",
			Aliases: []string{"list"},
			Short:   "List knowledge bases",
			Args:    cobra.NoArgs,
			RunE:    e.runKBList,
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a knowledge base and its page tree",
			Args:  cobra.ExactArgs(1),
			RunE:  e.runKBShow,
		},
		update,
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a knowledge base with all of its pages",
			Args:  cobra.ExactArgs(1),
			RunE:  e.runKBDelete,
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Find knowledge bases by name or description",
			Args:  cobra.ExactArgs(1),
			RunE:  e.runKBSearch,
		},
	)
	return c
}

func (e *Extension) runKBCreate(c *cobra.Command, args []string) error {
	icon, _ := c.Flags().GetString(extension.FlagIcon)
	in := store.NewKnowledgeBase{
		Name:        args[0],
		Icon:        icon,
		Description: extension.OptStringFlag(c, extension.FlagDescription),
	}
	kb, err := e.st.CreateKnowledgeBase(c.Context(), in)
	l := log.Event("knowledge:kb", "create").Author(cmd.Author())
	if kb != nil {
		l.Entity("knowledge_base", kb.ID)
	}
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("kb create: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(kb)
	}
	fmt.Fprintf(cmd.Out(), "Created knowledge base %s %s (%s)\n", kb.Icon, kb.Name, kb.ID)
	return nil
}

func (e *Extension) runKBList(c *cobra.Command, _ []string) error {
	kbs, err := e.st.KnowledgeBases(c.Context())
	log.Event("knowledge:kb", "list").Author(cmd.Author()).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("kb ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(kbs)
	}
	printKBs(kbs)
	return nil
}

func printKBs(kbs []store.KnowledgeBase) {
	rows := make([][]string, 0, len(kbs))
	for _, kb := range kbs {
		rows = append(rows, []string{kb.ID, kb.Icon + " " + kb.Name, format.Deref(kb.Description, "")})
	}
	format.Table(cmd.Out(), []string{"id", "name", "description"}, rows)
}

func (e *Extension) runKBShow(c *cobra.Command, args []string) error {
	ctx := c.Context()
	l := log.Event("knowledge:kb", "show").Author(cmd.Author()).Entity("knowledge_base", args[0])
	kb, err := e.st.KnowledgeBase(ctx, args[0])
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("kb show %s: %w", args[0], err))
	}
	tree, err := e.st.PageTree(ctx, kb.ID)
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("kb show %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"knowledge_base": kb, "pages": tree})
	}
	fmt.Fprintf(cmd.Out(), "%s %s\n", kb.Icon, kb.Name)
	if kb.Description != nil {
		fmt.Fprintln(cmd.Out(), *kb.Description)
	}
	fmt.Fprintln(cmd.Out())
	format.Tree(cmd.Out(), tree)
	return nil
}

func (e *Extension) runKBUpdate(c *cobra.Command, args []string) error {
	patch := store.KnowledgeBasePatch{
		Name:        extension.OptStringFlag(c, extension.FlagName),
		Icon:        extension.OptStringFlag(c, extension.FlagIcon),
		Description: extension.OptStringFlag(c, extension.FlagDescription),
	}
	kb, err := e.st.UpdateKnowledgeBase(c.Context(), args[0], patch)
	log.Event("knowledge:kb", "update").Author(cmd.Author()).Entity("knowledge_base", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("kb update %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(kb)
	}
	fmt.Fprintf(cmd.Out(), "Updated knowledge base %s\n", kb.ID)
	return nil
}

func (e *Extension) runKBDelete(c *cobra.Command, args []string) error {
	if !cmd.Force() && !cmd.JSON() && !cmd.Confirm(fmt.Sprintf("Delete knowledge base %s and all of its pages?", args[0])) {
		fmt.Fprintln(cmd.Out(), "Cancelled")
		return nil
	}
	err := e.st.DeleteKnowledgeBase(c.Context(), args[0])
	log.Event("knowledge:kb", "delete").Author(cmd.Author()).Entity("knowledge_base", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("kb rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted knowledge base %s\n", args[0])
	return nil
}

func (e *Extension) runKBSearch(c *cobra.Command, args []string) error {
	kbs, err := e.st.SearchKnowledgeBases(c.Context(), args[0])
	log.Event("knowledge:kb", "search").Author(cmd.Author()).Detail("query", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("kb search: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(kbs)
	}
	printKBs(kbs)
	return nil
}
