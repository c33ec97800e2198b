package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/duration"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

// transcript is the import and export form of a conversation.
type transcript struct {
	Conversation store.Conversation `json:"conversation"`
	Messages     []store.Message    `json:"messages"`
}

func (e *Extension) conversationCommands() []*cobra.Command {
	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE:    e.runList,
	}
	ls.Flags().Int(extension.FlagLimit, 0, "Maximum conversations (0 for all)")

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversation titles and message content",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runSearch,
	}
	search.Flags().Int(extension.FlagLimit, 20, "Maximum conversations")

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete conversations idle for longer than --older-than",
		Args:  cobra.NoArgs,
		RunE:  e.runCleanup,
	}
	cleanup.Flags().String(extension.FlagOlderThan, "", "Age such as 30d or 2w (required)")
	_ = cleanup.MarkFlagRequired(extension.FlagOlderThan)

	create := &cobra.Command{
		Use:   "new <title>",
		Short: "Start a conversation",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runNew,
	}
	create.Flags().String(extension.FlagProvider, "claude", "deepseek or claude")
	create.Flags().String(extension.FlagModel, "", "Model name (required)")
	_ = create.MarkFlagRequired(extension.FlagModel)

	say := &cobra.Command{
		Use:   "say <conversation> <content>",
		Short: `Append a message ("-" reads stdin)`,
		Args:  cobra.ExactArgs(2),
		RunE:  e.runSay,
	}
	say.Flags().String("role", "user", "user, assistant or system")

	return []*cobra.Command{
		ls, search, cleanup, create, say,
		{Use: "show <id>", Short: "Show a conversation transcript", Args: cobra.ExactArgs(1), RunE: e.runShow},
		{Use: "rename <id> <title>", Short: "Rename a conversation", Args: cobra.ExactArgs(2), RunE: e.runRename},
		{Use: "rm <id>", Short: "Delete a conversation and its messages", Args: cobra.ExactArgs(1), RunE: e.runDelete},
		{Use: "import <file>", Short: `Import a transcript from JSON ("-" reads stdin)`, Args: cobra.ExactArgs(1), RunE: e.runImport},
		{Use: "export <id>", Short: "Write a conversation as JSON", Args: cobra.ExactArgs(1), RunE: e.runExport},
	}
}

func printConversations(cs []store.Conversation) {
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []string{c.ID, c.UpdatedAt, c.Provider + "/" + c.Model, c.Title})
	}
	format.Table(cmd.Out(), []string{"id", "updated", "model", "title"}, rows)
}

func (e *Extension) runList(c *cobra.Command, _ []string) error {
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	cs, err := e.st.Conversations(c.Context(), limit)
	event("conversation", "list", "").Detail("count", len(cs)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cs)
	}
	printConversations(cs)
	return nil
}

func (e *Extension) runSearch(c *cobra.Command, args []string) error {
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	cs, err := e.st.SearchConversations(c.Context(), args[0], limit)
	event("conversation", "search", "").Detail("query", args[0]).Detail("count", len(cs)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai search: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(cs)
	}
	printConversations(cs)
	return nil
}

func (e *Extension) runCleanup(c *cobra.Command, _ []string) error {
	raw, _ := c.Flags().GetString(extension.FlagOlderThan)
	age, err := duration.ParseOptional(raw)
	if err == nil && age == nil {
		err = fmt.Errorf("--%s is required", extension.FlagOlderThan)
	}
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	n, err := e.st.CleanupConversations(c.Context(), *age)
	event("conversation", "cleanup", "").Detail("older_than", raw).Detail("count", n).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai cleanup: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int{"deleted": n})
	}
	fmt.Fprintf(cmd.Out(), "Deleted %d conversation(s)\n", n)
	return nil
}

func (e *Extension) runNew(c *cobra.Command, args []string) error {
	provider, _ := c.Flags().GetString(extension.FlagProvider)
	model, _ := c.Flags().GetString(extension.FlagModel)
	conv, err := e.st.SaveConversation(c.Context(), store.Conversation{Title: args[0], Provider: provider, Model: model})
	id := ""
	if conv != nil {
		id = conv.ID
	}
	event("conversation", "create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai new: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(conv)
	}
	fmt.Fprintf(cmd.Out(), "Started conversation %s\n", conv.ID)
	return nil
}

func (e *Extension) runSay(c *cobra.Command, args []string) error {
	ctx := c.Context()
	role, _ := c.Flags().GetString("role")
	body, err := extension.Body(args[1], os.Stdin)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	l := event("conversation", "message", args[0])
	conv, err := e.st.Conversation(ctx, args[0])
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("ai say %s: %w", args[0], err))
	}
	m := store.Message{ConversationID: conv.ID, Role: role, Content: body}
	if role == "assistant" {
		m.Provider, m.Model = &conv.Provider, &conv.Model
	}
	saved, err := e.st.SaveMessage(ctx, m)
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai say %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(saved)
	}
	fmt.Fprintf(cmd.Out(), "Added message %s\n", saved.ID)
	return nil
}

func (e *Extension) load(c *cobra.Command, id string) (*transcript, error) {
	conv, err := e.st.Conversation(c.Context(), id)
	if err != nil {
		return nil, err
	}
	msgs, err := e.st.Messages(c.Context(), id)
	if err != nil {
		return nil, err
	}
	return &transcript{Conversation: *conv, Messages: msgs}, nil
}

func (e *Extension) runShow(c *cobra.Command, args []string) error {
	t, err := e.load(c, args[0])
	event("conversation", "show", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai show %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(t)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n_%s / %s_\n\n", t.Conversation.Title, t.Conversation.Provider, t.Conversation.Model)
	for _, m := range t.Messages {
		heading := m.Role
		if m.Error {
			heading += " (error)"
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", heading, m.Content)
	}
	return format.Markdown(cmd.Out(), b.String())
}

func (e *Extension) runExport(c *cobra.Command, args []string) error {
	t, err := e.load(c, args[0])
	event("conversation", "export", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai export %s: %w", args[0], err))
	}
	return cmd.PrintJSON(t)
}

func (e *Extension) runImport(c *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return cmd.PrintJSONError(err)
		}
		defer f.Close()
		r = f
	}
	var t transcript
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai import: decode %s: %w", args[0], err))
	}
	conv, err := e.st.SaveConversationWithMessages(c.Context(), t.Conversation, t.Messages)
	id := ""
	if conv != nil {
		id = conv.ID
	}
	event("conversation", "import", id).Detail("messages", len(t.Messages)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai import: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(conv)
	}
	fmt.Fprintf(cmd.Out(), "Imported conversation %s (%d messages)\n", conv.ID, len(t.Messages))
	return nil
}

func (e *Extension) runRename(c *cobra.Command, args []string) error {
	err := e.st.RenameConversation(c.Context(), args[0], args[1])
	event("conversation", "rename", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai rename %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"id": args[0], "title": args[1]})
	}
	fmt.Fprintf(cmd.Out(), "Renamed %s\n", args[0])
	return nil
}

func (e *Extension) runDelete(c *cobra.Command, args []string) error {
	err := e.st.DeleteConversation(c.Context(), args[0])
	event("conversation", "delete", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ai rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted conversation %s\n", args[0])
	return nil
}
