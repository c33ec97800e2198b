package ai

import (
	"fmt"
	"os"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/store"
	"github.com/spf13/cobra"
)

// KeyEnv supplies a provider API key without putting it on the command line.
const KeyEnv = "PIM_API_KEY"

// Settings flags shared by providers and agents.
const (
	flagKey          = "api-key"
	flagBaseURL      = "base-url"
	flagTemperature  = "temperature"
	flagMaxTokens    = "max-tokens"
	flagSystemPrompt = "system-prompt"
	flagDisabled     = "disabled"
	flagCurrent      = "current"
)

// mask shows the last four characters of an API key.
func mask(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func (e *Extension) newProviderCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "provider",
		Short: "Manage AI provider settings",
	}

	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Create or replace a provider's settings",
		Long:  `Create or replace a provider's settings. The API key may also come from ` + KeyEnv + `.`,
		Args:  cobra.ExactArgs(1),
		RunE:  e.runProviderSet,
	}
	set.Flags().String(flagKey, "", "API key")
	set.Flags().String(extension.FlagModel, "", "Model (required)")
	set.Flags().String(flagBaseURL, "", "Base URL")
	set.Flags().Float64(flagTemperature, 0.7, "Sampling temperature (0-2)")
	set.Flags().Int(flagMaxTokens, 0, "Maximum tokens (default 2000)")
	set.Flags().String(flagSystemPrompt, "", "System prompt")
	set.Flags().Bool(flagDisabled, false, "Store the provider disabled")
	set.Flags().Bool(flagCurrent, false, "Make it the current provider")
	_ = set.MarkFlagRequired(extension.FlagModel)

	c.AddCommand(
		set,
		&cobra.Command{Use: "ls", Aliases: []string{"list"}, Short: "List providers", Args: cobra.NoArgs, RunE: e.runProviderList},
		&cobra.Command{Use: "use <name>", Short: "Make a provider current", Args: cobra.ExactArgs(1), RunE: e.runProviderUse},
		&cobra.Command{Use: "current", Short: "Show the current provider", Args: cobra.NoArgs, RunE: e.runProviderCurrent},
		&cobra.Command{Use: "rm <name>", Short: "Delete a provider", Args: cobra.ExactArgs(1), RunE: e.runProviderDelete},
	)
	return c
}

func (e *Extension) runProviderSet(c *cobra.Command, args []string) error {
	key, _ := c.Flags().GetString(flagKey)
	if key == "" {
		key = os.Getenv(KeyEnv)
	}
	p := store.Provider{
		Provider:     args[0],
		APIKey:       key,
		BaseURL:      extension.OptStringFlag(c, flagBaseURL),
		SystemPrompt: extension.OptStringFlag(c, flagSystemPrompt),
	}
	p.Model, _ = c.Flags().GetString(extension.FlagModel)
	p.Temperature, _ = c.Flags().GetFloat64(flagTemperature)
	p.MaxTokens, _ = c.Flags().GetInt(flagMaxTokens)
	disabled, _ := c.Flags().GetBool(flagDisabled)
	p.Enabled = !disabled
	p.IsCurrent, _ = c.Flags().GetBool(flagCurrent)

	saved, err := e.st.SaveProvider(c.Context(), p)
	event("provider", "save", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("provider set %s: %w", args[0], err))
	}
	saved.APIKey = mask(saved.APIKey)
	if cmd.JSON() {
		return cmd.PrintJSON(saved)
	}
	fmt.Fprintf(cmd.Out(), "Saved provider %s\n", saved.Provider)
	return nil
}

func (e *Extension) runProviderList(c *cobra.Command, _ []string) error {
	ps, err := e.st.Providers(c.Context())
	event("provider", "list", "").Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("provider ls: %w", err))
	}
	for i := range ps {
		ps[i].APIKey = mask(ps[i].APIKey)
	}
	if cmd.JSON() {
		return cmd.PrintJSON(ps)
	}
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		state := ""
		switch {
		case p.IsCurrent:
			state = "current"
		case !p.Enabled:
			state = "disabled"
		}
		rows = append(rows, []string{p.Provider, p.Model, p.APIKey, format.Deref(p.BaseURL, ""), state})
	}
	format.Table(cmd.Out(), []string{"provider", "model", "key", "base url", ""}, rows)
	return nil
}

func (e *Extension) runProviderUse(c *cobra.Command, args []string) error {
	err := e.st.SetCurrentProvider(c.Context(), args[0])
	event("provider", "use", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("provider use %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"current": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Current provider: %s\n", args[0])
	return nil
}

func (e *Extension) runProviderCurrent(c *cobra.Command, _ []string) error {
	p, err := e.st.CurrentProvider(c.Context())
	event("provider", "current", "").Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("provider current: %w", err))
	}
	p.APIKey = mask(p.APIKey)
	if cmd.JSON() {
		return cmd.PrintJSON(p)
	}
	fmt.Fprintf(cmd.Out(), "%s (%s)\n", p.Provider, p.Model)
	return nil
}

func (e *Extension) runProviderDelete(c *cobra.Command, args []string) error {
	err := e.st.DeleteProvider(c.Context(), args[0])
	event("provider", "delete", args[0]).Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("provider rm %s: %w", args[0], err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(cmd.Out(), "Deleted provider %s\n", args[0])
	return nil
}
