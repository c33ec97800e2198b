package vault

import (
	"fmt"
	"strings"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	pimvault "github.com/jpl-au/pim/internal/vault"
	"github.com/spf13/cobra"
)

// Connection detail flags, local to vault entries.
const (
	flagIP         = "ip"
	flagDBType     = "db-type"
	flagDBIP       = "db-ip"
	flagDBUsername = "db-username"
	flagApp        = "app"
	flagReveal     = "reveal"
	flagGenerate   = "generate"
)

func entryFlags(c *cobra.Command) {
	c.Flags().String(extension.FlagUsername, "", "Username")
	c.Flags().String(extension.FlagURL, "", "URL")
	c.Flags().String(extension.FlagNotes, "", "Notes")
	c.Flags().Int64(extension.FlagCategory, 0, "Category id")
	c.Flags().StringSlice(extension.FlagTag, nil, "Tag (repeatable)")
	c.Flags().Bool(extension.FlagFavorite, false, "Mark as favourite")
	c.Flags().String(flagIP, "", "Server IP")
	c.Flags().String(flagDBType, "", "Database type")
	c.Flags().String(flagDBIP, "", "Database host")
	c.Flags().String(flagDBUsername, "", "Database user")
	c.Flags().String(flagApp, "", "Application name")
}

func (e *Extension) entryCommands() []*cobra.Command {
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Store a credential",
		Long: `Store a credential. The password is read after the master password;
--generate stores a random one instead and prints it.`,
		Args: cobra.ExactArgs(1),
		RunE: e.runAdd,
	}
	entryFlags(add)
	add.Flags().Bool(flagGenerate, false, "Generate the password")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a credential",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runUpdate,
	}
	entryFlags(update)
	update.Flags().String(extension.FlagTitle, "", "New title")
	update.Flags().Bool("password", false, "Prompt for a new password")

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List credentials (no secrets)",
		Args:    cobra.NoArgs,
		RunE:    e.runList,
	}
	ls.Flags().Int64(extension.FlagCategory, 0, "Only this category (0 for uncategorised)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a credential",
		Args:  cobra.ExactArgs(1),
		RunE:  e.runShow,
	}
	show.Flags().Bool(flagReveal, false, "Decrypt and print the password")

	return []*cobra.Command{
		add, update, ls, show,
		{Use: "rm <id>", Short: "Delete a credential", Args: cobra.ExactArgs(1), RunE: e.runDelete},
		{Use: "search <query>", Short: "Search titles, usernames, URLs, notes and tags", Args: cobra.ExactArgs(1), RunE: e.runSearch},
	}
}

func printEntries(es []store.PasswordEntry) {
	rows := make([][]string, 0, len(es))
	for _, en := range es {
		fav := ""
		if en.IsFavorite {
			fav = "*"
		}
		rows = append(rows, []string{fmt.Sprint(en.ID), fav, en.Title, format.Deref(en.Username, ""), format.Deref(en.URL, "")})
	}
	format.Table(cmd.Out(), []string{"id", "", "title", "username", "url"}, rows)
}

func (e *Extension) runAdd(c *cobra.Command, args []string) error {
	if err := e.unlock(c); err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault add: %w", err))
	}
	defer e.lock()

	gen, _ := c.Flags().GetBool(flagGenerate)
	var pw string
	var err error
	if gen {
		pw, err = pimvault.GeneratePassword(pimvault.DefaultGenerateOptions())
	} else {
		pw, err = readSecret("Password: ")
	}
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	ct, err := e.v.Encrypt(session, pw)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault add: %w", err))
	}

	tags, _ := c.Flags().GetStringSlice(extension.FlagTag)
	fav, _ := c.Flags().GetBool(extension.FlagFavorite)
	en, err := e.st.CreatePasswordEntry(c.Context(), store.NewPasswordEntry{
		Title:      args[0],
		Username:   extension.OptStringFlag(c, extension.FlagUsername),
		Password:   ct,
		URL:        extension.OptStringFlag(c, extension.FlagURL),
		Notes:      extension.OptStringFlag(c, extension.FlagNotes),
		CategoryID: extension.OptInt64Flag(c, extension.FlagCategory),
		Tags:       tags,
		IsFavorite: fav,
		IP:         extension.OptStringFlag(c, flagIP),
		DBType:     extension.OptStringFlag(c, flagDBType),
		DBIP:       extension.OptStringFlag(c, flagDBIP),
		DBUsername: extension.OptStringFlag(c, flagDBUsername),
		AppName:    extension.OptStringFlag(c, flagApp),
	})
	var id int64
	if en != nil {
		id = en.ID
	}
	event("create", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault add: %w", err))
	}
	if cmd.JSON() {
		out := map[string]any{"entry": en}
		if gen {
			out["password"] = pw
		}
		return cmd.PrintJSON(out)
	}
	fmt.Fprintf(cmd.Out(), "Stored %s (%d)\n", en.Title, en.ID)
	if gen {
		fmt.Fprintln(cmd.Out(), pw)
	}
	return nil
}

func (e *Extension) runUpdate(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	p := store.PasswordEntryPatch{
		Title:      extension.OptStringFlag(c, extension.FlagTitle),
		Username:   extension.OptStringFlag(c, extension.FlagUsername),
		URL:        extension.OptStringFlag(c, extension.FlagURL),
		Notes:      extension.OptStringFlag(c, extension.FlagNotes),
		CategoryID: extension.OptInt64Flag(c, extension.FlagCategory),
		IsFavorite: extension.OptBoolFlag(c, extension.FlagFavorite),
		IP:         extension.OptStringFlag(c, flagIP),
		DBType:     extension.OptStringFlag(c, flagDBType),
		DBIP:       extension.OptStringFlag(c, flagDBIP),
		DBUsername: extension.OptStringFlag(c, flagDBUsername),
		AppName:    extension.OptStringFlag(c, flagApp),
	}
	if c.Flags().Changed(extension.FlagTag) {
		tags, _ := c.Flags().GetStringSlice(extension.FlagTag)
		p.Tags = &tags
	}
	if newPW, _ := c.Flags().GetBool("password"); newPW {
		if err := e.unlock(c); err != nil {
			return cmd.PrintJSONError(fmt.Errorf("vault update %d: %w", id, err))
		}
		defer e.lock()
		pw, err := readSecret("New password: ")
		if err != nil {
			return cmd.PrintJSONError(err)
		}
		ct, err := e.v.Encrypt(session, pw)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("vault update %d: %w", id, err))
		}
		p.Password = &ct
	}
	en, err := e.st.UpdatePasswordEntry(c.Context(), id, p)
	event("update", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault update %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(en)
	}
	fmt.Fprintf(cmd.Out(), "Updated %d\n", id)
	return nil
}

func (e *Extension) runList(c *cobra.Command, _ []string) error {
	var es []store.PasswordEntry
	var err error
	if cat := extension.OptInt64Flag(c, extension.FlagCategory); cat != nil {
		if *cat == 0 {
			cat = nil
		}
		es, err = e.st.PasswordEntriesByCategory(c.Context(), cat)
	} else {
		es, err = e.st.PasswordEntries(c.Context())
	}
	event("list", 0).Detail("count", len(es)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault ls: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(es)
	}
	printEntries(es)
	return nil
}

func (e *Extension) runShow(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	reveal, _ := c.Flags().GetBool(flagReveal)
	l := event("show", id).Detail("reveal", reveal)
	en, err := e.st.PasswordEntry(ctx, id)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("vault show %d: %w", id, err))
	}
	var pw string
	if reveal {
		if err = e.unlock(c); err == nil {
			defer e.lock()
			var ct string
			if ct, err = e.st.PasswordSecret(ctx, id); err == nil {
				pw, err = e.v.Decrypt(session, ct)
			}
		}
	}
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault show %d: %w", id, err))
	}
	if cmd.JSON() {
		out := map[string]any{"entry": en}
		if reveal {
			out["password"] = pw
		}
		return cmd.PrintJSON(out)
	}
	w := cmd.Out()
	fmt.Fprintf(w, "%s\n", en.Title)
	for _, f := range []struct {
		label string
		v     *string
	}{
		{"Username", en.Username}, {"URL", en.URL}, {"IP", en.IP}, {"DB type", en.DBType},
		{"DB host", en.DBIP}, {"DB user", en.DBUsername}, {"App", en.AppName}, {"Last used", en.LastUsedAt},
	} {
		if f.v != nil && *f.v != "" {
			fmt.Fprintf(w, "%-10s %s\n", f.label+":", *f.v)
		}
	}
	if len(en.Tags) > 0 {
		fmt.Fprintf(w, "%-10s %s\n", "Tags:", strings.Join(en.Tags, ", "))
	}
	if reveal {
		fmt.Fprintf(w, "%-10s %s\n", "Password:", pw)
	}
	if en.Notes != nil && *en.Notes != "" {
		fmt.Fprintf(w, "\n%s\n", *en.Notes)
	}
	return nil
}

func (e *Extension) runDelete(c *cobra.Command, args []string) error {
	id, err := extension.ParseID(args[0])
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if !cmd.Force() && !cmd.Confirm(fmt.Sprintf("Delete credential %d?", id)) {
		return nil
	}
	err = e.st.DeletePasswordEntry(c.Context(), id)
	event("delete", id).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault rm %d: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]int64{"deleted": id})
	}
	fmt.Fprintf(cmd.Out(), "Deleted %d\n", id)
	return nil
}

func (e *Extension) runSearch(c *cobra.Command, args []string) error {
	es, err := e.st.SearchPasswordEntries(c.Context(), args[0])
	event("search", 0).Detail("query", args[0]).Detail("count", len(es)).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vault search: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(es)
	}
	printEntries(es)
	return nil
}
